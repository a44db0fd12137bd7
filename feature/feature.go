// Package feature defines the two record types consumed by the encompass
// counting engine: point-like encompassed features (e.g. mutations) and
// interval encompassing features (e.g. nucleosomes, genes, binding sites),
// along with their text parsing, ordering, and sortedness verification.
//
// Both record types use 0-based coordinates.  A record's textual end
// coordinate is exclusive on input (BED convention) and stored inclusive
// after a -1 adjustment; a single-base record at textual [100, 101) therefore
// has position 100.  Positions are float64 so that the midpoint of a 2-base
// span lands on a half-integer.
package feature

import "strconv"

// Encompassed is a point-like record expected to fall inside encompassing
// features.  Pos is the midpoint of the record's span.  Ordering is by
// (Chrom, Pos); Strand participates in identity but not in ordering, so two
// input lines at the same location and strand intentionally collide.
type Encompassed struct {
	Chrom  string
	Pos    float64
	Strand byte
	// Context and AlteredTo are only populated by the with-context parse
	// variant (e.g. trinucleotide context and the mutant base).
	Context   string
	AlteredTo string
	// Fields holds the whitespace-split columns of the original input line.
	Fields []string
}

// Less orders by (Chrom, Pos).  Strand is deliberately excluded.
func (e *Encompassed) Less(o *Encompassed) bool {
	if e.Chrom != o.Chrom {
		return e.Chrom < o.Chrom
	}
	return e.Pos < o.Pos
}

// LocationString renders the record as chrom:pos(strand).
func (e *Encompassed) LocationString() string {
	return e.Chrom + ":" + FormatPos(e.Pos) + "(" + string(e.Strand) + ")"
}

// Mutation renders the record's alteration as context>alteredTo.
func (e *Encompassed) Mutation() string {
	return e.Context + ">" + e.AlteredTo
}

// Encompassing is an interval record that may contain encompassed features.
// End is inclusive (textual end minus one).  Ordering is by
// (Chrom, Start, End); Strand participates in identity but not in ordering.
type Encompassing struct {
	Chrom      string
	Start, End float64
	Center     float64
	Strand     byte
	// Name is the label of a named site (e.g. a TFBS), when the parse
	// options designate a name column.
	Name string
	// Seq is the interval's pre-computed sequence, when the parse options
	// designate a sequence column.  The engine never performs coordinate
	// lookups itself.
	Seq    string
	Fields []string
}

// Less orders by (Chrom, Start, End).
func (s *Encompassing) Less(o *Encompassing) bool {
	if s.Chrom != o.Chrom {
		return s.Chrom < o.Chrom
	}
	if s.Start != o.Start {
		return s.Start < o.Start
	}
	return s.End < o.End
}

// Length returns the number of bases covered by the interval.
func (s *Encompassing) Length() float64 {
	return s.End - s.Start + 1
}

// LocationString renders the record as chrom:start-end(strand).
func (s *Encompassing) LocationString() string {
	return s.Chrom + ":" + FormatPos(s.Start) + "-" + FormatPos(s.End) + "(" + string(s.Strand) + ")"
}

// FormatPos renders a coordinate without a trailing ".0" for whole numbers;
// half positions keep their fraction (e.g. "100", "100.5").
func FormatPos(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
