package main

/*
encompass-count counts how many features from one sorted stream (e.g.
mutations) fall within the features of another sorted stream (e.g.
nucleosomes or genes), stratifying the counts into a nested table.

Both inputs are whitespace-delimited text with columns chromosome, start,
end, [context, alteration,] strand, sorted by chromosome (lexicographic)
then start and end (numeric), e.g. via sort -k1,1 -k2,2n -k3,3n.
*/

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/encompass/encompass"
	"github.com/grailbio/encompass/feature"
	"v.io/x/lib/vlog"
)

var (
	out         = flag.String("out", "encompass-count.tsv", "Output path. A .gz suffix enables bgzip compression; a .bed suffix with -incremental preserves the source record's columns")
	parallelism = flag.Int("parallelism", 1, "Bgzip compressor parallelism")

	radius           = flag.Int("radius", encompass.DefaultOpts.ExtraRadius, "Pad each encompassing feature's range by this many bases on each side")
	skipSortCheck    = flag.Bool("skip-sort-check", encompass.DefaultOpts.SkipSortCheck, "Skip the input sortedness pre-flight check")
	encompassedHdr   = flag.Bool("encompassed-header", encompass.DefaultOpts.EncompassedHasHeader, "Skip a header line in the encompassed input")
	encompassingHdr  = flag.Bool("encompassing-header", encompass.DefaultOpts.EncompassingHasHeader, "Skip a header line in the encompassing input")
	acceptableChroms = flag.String("chroms", "", "Comma-separated whitelist of chromosomes; a record on any other chromosome is a fatal error")
	plusStrand       = flag.Bool("assume-plus-strand", false, "Inputs have no strand column; assume '+'")
	contextCols      = flag.Bool("context-cols", false, "Encompassed input carries context and alteration in columns 4-5")
	nameCol          = flag.Int("name-col", 0, "1-based column of the encompassing input holding a site name (0 = none)")
	seqCol           = flag.Int("seq-col", 0, "1-based column of the encompassing input holding a sequence (0 = none)")

	ambiguity      = flag.String("ambiguity", "record", "Ambiguity handling for the stratifiers below: 'tolerate', 'ignore', or 'record'")
	byEncompassed  = flag.Bool("by-encompassed", false, "Stratify by encompassed feature (one row per feature)")
	byEncompassing = flag.Bool("by-encompassing", false, "Stratify by encompassing feature (one row per feature)")
	strandComp     = flag.Bool("strand-comparison", false, "Stratify by whether the two features' strands match")
	contextSize    = flag.Int("context", 0, "Stratify by the encompassed feature's surrounding context, trimmed to this size (0 = off); requires -context-cols")
	includeAltered = flag.Bool("include-altered", false, "Suffix the context key with the observed alteration")
	fractionNum    = flag.Int("feature-fraction", 0, "Stratify by fractional bin within the encompassing feature, using this many bins (0 = off)")
	flankBinSize   = flag.Int("flank-bin-size", 0, "Size of each flanking bin outside the encompassing feature")
	flankBinNum    = flag.Int("flank-bin-num", 0, "Number of flanking bins on each side")
	relativePos    = flag.Bool("relative-pos", false, "Stratify by position within the encompassing feature (all encompassing features must share one length)")
	centered       = flag.Bool("centered", true, "Measure relative position from the encompassing feature's center rather than its start")
	placeholder    = flag.Bool("counts-column", false, "Append a final raw-counts column (required with -incremental)")

	incremental          = flag.String("incremental", "", "Write rows incrementally, per 'encompassed' or 'encompassing' feature, bounding memory; requires the matching -by-* stratifier first")
	trackAllEncompassing = flag.Bool("track-all-encompassing", false, "Track encompassing features that encompass nothing (for zero-count rows)")
	trackAllEncompassed  = flag.Bool("track-all-encompassed", false, "Track encompassed features that are never encompassed")
	countAllEncompassed  = flag.Bool("count-all-encompassed", false, "Also count tracked-but-suppressed features, e.g. for a denominator")
)

func usage() {
	fmt.Printf("Usage: %s [OPTIONS] encompassed_path encompassing_path\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func parseOpts() encompass.Opts {
	opts := encompass.Opts{
		ExtraRadius:           *radius,
		SkipSortCheck:         *skipSortCheck,
		EncompassedHasHeader:  *encompassedHdr,
		EncompassingHasHeader: *encompassingHdr,
	}
	if *acceptableChroms != "" {
		chroms := make(map[string]bool)
		for _, c := range strings.Split(*acceptableChroms, ",") {
			chroms[c] = true
		}
		opts.EncompassedParse.AcceptableChroms = chroms
		opts.EncompassingParse.AcceptableChroms = chroms
	}
	opts.EncompassedParse.AssumePlusStrand = *plusStrand
	opts.EncompassingParse.AssumePlusStrand = *plusStrand
	opts.EncompassedParse.ContextColumns = *contextCols
	opts.EncompassingParse.NameColumn = *nameCol - 1
	opts.EncompassingParse.SeqColumn = *seqCol - 1
	return opts
}

func run(encompassedPath, encompassingPath string) (err error) {
	ctx := vcontext.Background()
	opts := parseOpts()

	amb, err := encompass.ParseAmbiguity(*ambiguity)
	if err != nil {
		return err
	}
	var mode encompass.IncrementalMode
	switch *incremental {
	case "":
		mode = encompass.NoIncremental
	case "encompassed":
		mode = encompass.IncrementalEncompassed
	case "encompassing":
		mode = encompass.IncrementalEncompassing
	default:
		return fmt.Errorf("invalid -incremental value %q", *incremental)
	}

	h, err := encompass.NewHandler(encompass.HandlerOpts{
		Incremental:          mode,
		TrackAllEncompassing: *trackAllEncompassing,
		TrackAllEncompassed:  *trackAllEncompassed,
		CountAllEncompassed:  *countAllEncompassed,
	})
	if err != nil {
		return err
	}

	// Stratifier order is fixed: identity layers first (incremental
	// writing requires a leading identity layer), then the joint layers,
	// with the raw-counts column last.
	if *byEncompassed {
		h.AddEncompassedIdentityStratifier("Encompassed_Feature")
	}
	if *byEncompassing {
		h.AddEncompassingIdentityStratifier(amb, "Encompassing_Feature")
	}
	if *strandComp {
		h.AddStrandComparisonStratifier(amb, "Strand_Comparison")
	}
	if *contextSize > 0 {
		if !*contextCols {
			return fmt.Errorf("-context requires -context-cols")
		}
		h.AddSequenceContextStratifier(*contextSize, *includeAltered, "Context")
	}
	if *fractionNum > 0 {
		h.AddFeatureFractionStratifier(amb, "Feature_Fraction", *fractionNum, *flankBinSize, *flankBinNum)
	}
	if *relativePos {
		ref, peekErr := feature.PeekEncompassing(ctx, encompassingPath, &opts.EncompassingParse, opts.EncompassingHasHeader)
		if peekErr != nil {
			return peekErr
		}
		if ref == nil {
			return fmt.Errorf("-relative-pos: no encompassing features in %s to size the position range from", encompassingPath)
		}
		vlog.VI(1).Infof("sizing relative positions from %s (length %g)", ref.LocationString(), ref.Length())
		h.AddRelativePositionStratifier(ref, *centered, *radius, amb, "Relative_Pos")
	}
	if *placeholder {
		h.AddPlaceholderStratifier(encompass.Tolerate, "")
	}

	dst, err := file.Create(ctx, *out)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, dst, &err)

	w := encompass.NewWriter(dst.Writer(ctx), encompass.WriterOpts{
		PreserveSource: strings.HasSuffix(*out, ".bed") && mode != encompass.NoIncremental,
		Bgzip:          strings.HasSuffix(*out, ".gz"),
		Parallelism:    *parallelism,
	})
	if err = h.CreateWriter(w); err != nil {
		return err
	}
	return encompass.CountFiles(ctx, h, encompassedPath, encompassingPath, opts)
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 2 {
		log.Fatalf("Expected exactly 2 positional arguments (encompassed_path and encompassing_path), got '%s'", strings.Join(flag.Args(), " "))
	}
	if err := run(flag.Arg(0), flag.Arg(1)); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
