package encompass

import (
	"github.com/grailbio/encompass/feature"
)

// relativePositionStratifier keys each overlap by the encompassed position
// relative to the encompassing feature (offset from its center or start).
// The key space is precomputed from one reference encompassing feature's
// span, so every feature in the input is expected to share that span's
// length (e.g. a nucleosome map).  Both integer and half-integer offsets are
// precomputed; only the kinds actually observed are emitted.
type relativePositionStratifier struct {
	stratBase
	centered bool
	intKeys  map[Key]bool
	halfKeys map[Key]bool
	usedInt  bool
	usedHalf bool
}

func newRelativePositionStratifier(ref *feature.Encompassing, centered bool, extraRadius int, amb Ambiguity, name string) *relativePositionStratifier {
	s := &relativePositionStratifier{
		stratBase: newStratBase(name, amb),
		centered:  centered,
		intKeys:   make(map[Key]bool),
		halfKeys:  make(map[Key]bool),
	}
	rangeLen := int(ref.End-ref.Start) + extraRadius*2 + 1
	var lo, hi int // half-open [lo, hi)
	if centered {
		half := rangeLen / 2
		if rangeLen%2 == 0 {
			lo, hi = -half+1, half
		} else {
			lo, hi = -half, half+1
		}
	} else {
		lo, hi = 0, rangeLen
	}
	if rangeLen%2 == 0 && centered {
		s.halfKeys[NumKey(float64(lo)-0.5)] = true
	}
	for i := lo; i < hi; i++ {
		s.intKeys[NumKey(float64(i))] = true
		// The trailing half position only exists when the range extends
		// past the last integer (even, centered spans).
		if (rangeLen%2 == 0 && centered) || i != hi-1 {
			s.halfKeys[NumKey(float64(i)+0.5)] = true
		}
	}
	return s
}

func (s *relativePositionStratifier) Update(t *tracked, span *feature.Encompassing) error {
	var rel float64
	if s.centered {
		rel = t.rec.Pos - span.Center
	} else {
		rel = t.rec.Pos - span.Start
	}
	t.update(s.slot, NumKey(rel))
	return nil
}

func (s *relativePositionStratifier) Key(t *tracked) (Key, bool) {
	k, ok := s.slotKey(t)
	if !ok {
		return k, false
	}
	if !s.usedInt && s.intKeys[k] {
		s.usedInt = true
	}
	if !s.usedHalf && s.halfKeys[k] {
		s.usedHalf = true
	}
	return k, true
}

// Keys emits integer offsets, half offsets, or both, depending on which were
// observed.  An untouched stratifier emits the integer offsets.
func (s *relativePositionStratifier) Keys() []Key {
	var keys []Key
	if s.usedInt || !s.usedHalf {
		for k := range s.intKeys {
			keys = append(keys, k)
		}
	}
	if s.usedHalf {
		for k := range s.halfKeys {
			keys = append(keys, k)
		}
	}
	if s.amb == Record {
		keys = append(keys, KeyAmbiguous)
	}
	sortKeys(keys)
	return keys
}
