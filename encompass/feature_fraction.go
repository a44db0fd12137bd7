package encompass

import (
	"github.com/grailbio/encompass/feature"
)

// featureFractionStratifier bins each overlap by which fraction of the
// encompassing feature it falls in (bins 1..fractionNum), with optional
// fixed-width flanking bins outside the interval (0, -1, ... upstream and
// fractionNum+1, fractionNum+2, ... downstream).  Bin numbering follows the
// encompassing feature's strand, so bin 1 is always at the 5' end.
type featureFractionStratifier struct {
	stratBase
	fractionNum     int
	flankingBinSize int
	flankingBinNum  int
}

func newFeatureFractionStratifier(amb Ambiguity, name string, fractionNum, flankingBinSize, flankingBinNum int) *featureFractionStratifier {
	s := &featureFractionStratifier{
		stratBase:       newStratBase(name, amb),
		fractionNum:     fractionNum,
		flankingBinSize: flankingBinSize,
		flankingBinNum:  flankingBinNum,
	}
	for fraction := 0; fraction < fractionNum; fraction++ {
		s.addKey(NumKey(float64(fraction + 1)))
	}
	for i := 0; i < flankingBinNum; i++ {
		s.addKey(NumKey(float64(0 - i)))
		s.addKey(NumKey(float64(fractionNum + 1 + i)))
	}
	return s
}

func (s *featureFractionStratifier) Update(t *tracked, span *feature.Encompassing) error {
	nonFlankingSize := span.Length() - float64(2*s.flankingBinSize*s.flankingBinNum)
	binSize := nonFlankingSize / float64(s.fractionNum)
	if binSize <= 0 {
		return errorf("invalid bin size %s for %s", feature.FormatPos(nonFlankingSize), span.LocationString())
	}

	var relativePos float64
	if span.Strand == '+' {
		relativePos = t.rec.Pos - span.Start
	} else {
		relativePos = span.End - t.rec.Pos
	}
	// Shift so 0 is the first base past the upstream flank and
	// nonFlankingSize is the first base of the downstream flank.
	relativePos -= float64(s.flankingBinSize * s.flankingBinNum)

	// The flank arithmetic's truncation at bin edges is a fixed convention;
	// see TestFeatureFractionFlankBoundaries before changing it.
	var bin int
	switch {
	case relativePos < 0:
		bin = int((relativePos + 1) / float64(s.flankingBinSize))
	case relativePos >= nonFlankingSize:
		bin = int((relativePos-nonFlankingSize)/float64(s.flankingBinSize)) + s.fractionNum + 1
	default:
		bin = int(relativePos/binSize) + 1
	}
	t.update(s.slot, NumKey(float64(bin)))
	return nil
}

func (s *featureFractionStratifier) Key(t *tracked) (Key, bool) { return s.slotKey(t) }
