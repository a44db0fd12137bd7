package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncompassedOrdering(t *testing.T) {
	tests := []struct {
		a, b Encompassed
		want bool
	}{
		{Encompassed{Chrom: "chr1", Pos: 100}, Encompassed{Chrom: "chr1", Pos: 200}, true},
		{Encompassed{Chrom: "chr1", Pos: 200}, Encompassed{Chrom: "chr1", Pos: 100}, false},
		{Encompassed{Chrom: "chr1", Pos: 200}, Encompassed{Chrom: "chr2", Pos: 100}, true},
		{Encompassed{Chrom: "chr1", Pos: 100.5}, Encompassed{Chrom: "chr1", Pos: 101}, true},
		// Strand does not participate in ordering.
		{Encompassed{Chrom: "chr1", Pos: 100, Strand: '-'}, Encompassed{Chrom: "chr1", Pos: 100, Strand: '+'}, false},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.a.Less(&test.b), "%s vs %s", test.a.LocationString(), test.b.LocationString())
	}
}

func TestEncompassingOrdering(t *testing.T) {
	tests := []struct {
		a, b Encompassing
		want bool
	}{
		{Encompassing{Chrom: "chr1", Start: 0, End: 99}, Encompassing{Chrom: "chr1", Start: 50, End: 99}, true},
		{Encompassing{Chrom: "chr1", Start: 0, End: 50}, Encompassing{Chrom: "chr1", Start: 0, End: 99}, true},
		{Encompassing{Chrom: "chr2", Start: 0, End: 99}, Encompassing{Chrom: "chr1", Start: 50, End: 99}, false},
		{Encompassing{Chrom: "chr1", Start: 0, End: 99}, Encompassing{Chrom: "chr1", Start: 0, End: 99}, false},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.a.Less(&test.b), "%s vs %s", test.a.LocationString(), test.b.LocationString())
	}
}

func TestEncompassingLength(t *testing.T) {
	s := Encompassing{Chrom: "chr1", Start: 100, End: 200}
	assert.Equal(t, 101.0, s.Length())
	single := Encompassing{Chrom: "chr1", Start: 100, End: 100}
	assert.Equal(t, 1.0, single.Length())
}

func TestMutation(t *testing.T) {
	e := Encompassed{Context: "TCG", AlteredTo: "A"}
	assert.Equal(t, "TCG>A", e.Mutation())
}

func TestLocationStrings(t *testing.T) {
	e := Encompassed{Chrom: "chr1", Pos: 100.5, Strand: '-'}
	assert.Equal(t, "chr1:100.5(-)", e.LocationString())
	s := Encompassing{Chrom: "chrX", Start: 0, End: 9, Strand: '+'}
	assert.Equal(t, "chrX:0-9(+)", s.LocationString())
}
