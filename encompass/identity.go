package encompass

import (
	"github.com/grailbio/encompass/feature"
)

// encompassingIdentityStratifier keys each overlap by the encompassing
// feature itself, producing one output row (or row group) per encompassing
// feature.  When the handler tracks all encompassing features, the
// stratifier also asserts that their coordinates are unique.
type encompassingIdentityStratifier struct {
	stratBase
}

func newEncompassingIdentityStratifier(amb Ambiguity, name string) *encompassingIdentityStratifier {
	return &encompassingIdentityStratifier{stratBase: newStratBase(name, amb)}
}

func (s *encompassingIdentityStratifier) Update(t *tracked, span *feature.Encompassing) error {
	t.update(s.slot, SpanKey(span))
	return nil
}

func (s *encompassingIdentityStratifier) OnNewEncompassing(span *feature.Encompassing) error {
	k := SpanKey(span)
	if s.keys[k] {
		return errorf("2 encompassing features have the same location data: %s", span.LocationString())
	}
	s.addKey(k)
	return nil
}

func (s *encompassingIdentityStratifier) Key(t *tracked) (Key, bool) {
	k, ok := s.slotKey(t)
	if ok {
		s.addKey(k)
	}
	return k, ok
}

// encompassedIdentityStratifier keys by the encompassed feature itself,
// producing per-feature output rows.  A feature's identity cannot conflict
// with itself, so ambiguity handling is forced to tolerate.
type encompassedIdentityStratifier struct {
	stratBase
}

func newEncompassedIdentityStratifier(name string) *encompassedIdentityStratifier {
	return &encompassedIdentityStratifier{stratBase: newStratBase(name, Tolerate)}
}

func (s *encompassedIdentityStratifier) Key(t *tracked) (Key, bool) {
	k := FeatureKey(t.rec)
	s.addKey(k)
	return k, true
}

func (s *encompassedIdentityStratifier) OnNonEncompassed(t *tracked) error {
	s.addKey(FeatureKey(t.rec))
	return nil
}
