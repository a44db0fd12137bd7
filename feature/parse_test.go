package feature

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestParseEncompassed(t *testing.T) {
	tests := []struct {
		line   string
		pos    float64
		strand byte
	}{
		{"chr1\t100\t101\t.\t.\t+", 100, '+'},
		{"chr1\t100\t102\t.\t.\t-", 100.5, '-'},
		{"chr2 4 6 . . +", 4.5, '+'},
	}
	for _, tt := range tests {
		rec, err := ParseEncompassed(tt.line, &ParseOpts{})
		expect.NoError(t, err)
		expect.EQ(t, rec.Pos, tt.pos)
		expect.EQ(t, rec.Strand, tt.strand)
		expect.EQ(t, len(rec.Fields), 6)
	}
}

func TestParseEncompassedContext(t *testing.T) {
	rec, err := ParseEncompassed("chr1\t100\t101\tTCG\tA\t+", &ParseOpts{ContextColumns: true})
	expect.NoError(t, err)
	expect.EQ(t, rec.Context, "TCG")
	expect.EQ(t, rec.AlteredTo, "A")
	expect.EQ(t, rec.Mutation(), "TCG>A")

	_, err = ParseEncompassed("chr1\t100\t101", &ParseOpts{ContextColumns: true, AssumePlusStrand: true})
	expect.HasSubstr(t, err.Error(), "columns")
}

func TestParseEncompassedErrors(t *testing.T) {
	opts := &ParseOpts{}
	for _, line := range []string{
		"chr1\t100",
		"chr1\tx\t101\t.\t.\t+",
		"chr1\t100\ty\t.\t.\t+",
		"chr1\t101\t100\t.\t.\t+",
		"chr1\t100\t101\t.\t.\t*",
		"chr1\t100\t101",
	} {
		_, err := ParseEncompassed(line, opts)
		expect.NotNil(t, err, "line %q", line)
	}
}

func TestParseEncompassedDefaultStrand(t *testing.T) {
	rec, err := ParseEncompassed("chr1\t100\t101", &ParseOpts{AssumePlusStrand: true})
	expect.NoError(t, err)
	expect.EQ(t, rec.Strand, byte('+'))
}

func TestParseEncompassedAcceptableChroms(t *testing.T) {
	opts := &ParseOpts{AcceptableChroms: map[string]bool{"chr1": true}}
	_, err := ParseEncompassed("chr1\t100\t101\t.\t.\t+", opts)
	expect.NoError(t, err)
	_, err = ParseEncompassed("chrM\t100\t101\t.\t.\t+", opts)
	expect.HasSubstr(t, err.Error(), "chrM")
}

func TestParseEncompassing(t *testing.T) {
	span, err := ParseEncompassing("chr1\t50\t151\t.\t.\t+", &ParseOpts{})
	expect.NoError(t, err)
	expect.EQ(t, span.Start, 50.0)
	expect.EQ(t, span.End, 150.0)
	expect.EQ(t, span.Center, 100.0)
	expect.EQ(t, span.Length(), 101.0)
	expect.EQ(t, span.LocationString(), "chr1:50-150(+)")

	// An even-length interval has a half-integer center.
	span, err = ParseEncompassing("chr1\t0\t10\t.\t.\t-", &ParseOpts{})
	expect.NoError(t, err)
	expect.EQ(t, span.Center, 4.5)
	expect.EQ(t, span.Length(), 10.0)
}

func TestParseEncompassingNameAndSeq(t *testing.T) {
	opts := &ParseOpts{NameColumn: 6, SeqColumn: 7}
	span, err := ParseEncompassing("chr1\t50\t151\t.\t.\t+\tCTCF\tacgt", opts)
	expect.NoError(t, err)
	expect.EQ(t, span.Name, "CTCF")
	expect.EQ(t, span.Seq, "acgt")

	_, err = ParseEncompassing("chr1\t50\t151\t.\t.\t+", opts)
	expect.HasSubstr(t, err.Error(), "site name")
}

func TestLess(t *testing.T) {
	a := &Encompassed{Chrom: "chr1", Pos: 10}
	b := &Encompassed{Chrom: "chr1", Pos: 10.5}
	c := &Encompassed{Chrom: "chr2", Pos: 1}
	expect.True(t, a.Less(b))
	expect.True(t, b.Less(c))
	expect.False(t, c.Less(a))

	// Strand is excluded from ordering.
	d := &Encompassed{Chrom: "chr1", Pos: 10, Strand: '-'}
	expect.False(t, a.Less(d))
	expect.False(t, d.Less(a))

	s1 := &Encompassing{Chrom: "chr1", Start: 0, End: 9}
	s2 := &Encompassing{Chrom: "chr1", Start: 0, End: 10}
	s3 := &Encompassing{Chrom: "chr1", Start: 5, End: 6}
	expect.True(t, s1.Less(s2))
	expect.True(t, s2.Less(s3))
}

func TestFormatPos(t *testing.T) {
	expect.EQ(t, FormatPos(100), "100")
	expect.EQ(t, FormatPos(100.5), "100.5")
	expect.EQ(t, FormatPos(-4.5), "-4.5")
}
