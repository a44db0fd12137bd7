package encompass

import (
	"github.com/grailbio/encompass/feature"
)

// strandComparisonStratifier keys each overlap by whether the encompassed
// and encompassing strands match.
type strandComparisonStratifier struct {
	stratBase
}

func newStrandComparisonStratifier(amb Ambiguity, name string) *strandComparisonStratifier {
	s := &strandComparisonStratifier{stratBase: newStratBase(name, amb)}
	s.addKey(BoolKey(true))
	s.addKey(BoolKey(false))
	return s
}

func (s *strandComparisonStratifier) Update(t *tracked, span *feature.Encompassing) error {
	t.update(s.slot, BoolKey(t.rec.Strand == span.Strand))
	return nil
}

func (s *strandComparisonStratifier) Key(t *tracked) (Key, bool) { return s.slotKey(t) }

// placeholderStratifier contributes no real dimension; it exists so the
// table always has a final count-only level.
type placeholderStratifier struct {
	stratBase
}

func newPlaceholderStratifier(amb Ambiguity, name string) *placeholderStratifier {
	s := &placeholderStratifier{stratBase: newStratBase(name, amb)}
	s.addKey(KeyNone)
	return s
}

func (s *placeholderStratifier) Key(t *tracked) (Key, bool) { return KeyNone, true }

func (s *placeholderStratifier) Format(k Key) string {
	if s.name != "" {
		return s.name
	}
	return "Counts"
}

// Side selects which of the two records a column-driven component reads.
type Side int

const (
	// EncompassedSide reads the encompassed (point) record.
	EncompassedSide Side = iota
	// EncompassingSide reads the encompassing (interval) record.
	EncompassingSide
)

// columnStratifier keys by a literal column value copied from either record,
// supporting user-defined stratification without a bespoke variant.  The key
// space is discovered as values are encountered.
type columnStratifier struct {
	stratBase
	side Side
	col  int
}

func newColumnStratifier(side Side, col int, amb Ambiguity, name string) *columnStratifier {
	return &columnStratifier{stratBase: newStratBase(name, amb), side: side, col: col}
}

func (s *columnStratifier) Update(t *tracked, span *feature.Encompassing) error {
	fields := t.rec.Fields
	if s.side == EncompassingSide {
		fields = span.Fields
	}
	if s.col >= len(fields) {
		return errorf("record has %d columns, but column stratifier %q wants column %d", len(fields), s.name, s.col+1)
	}
	t.update(s.slot, StringKey(fields[s.col]))
	return nil
}

func (s *columnStratifier) Key(t *tracked) (Key, bool) {
	k, ok := s.slotKey(t)
	if ok {
		s.addKey(k)
	}
	return k, ok
}

// sequenceContextStratifier keys by a fixed-width substring centered on the
// encompassed feature's context column, optionally suffixed with the
// observed alteration.  The key is intrinsic to the feature, so there is no
// ambiguity to handle.
type sequenceContextStratifier struct {
	stratBase
	contextSize      int
	includeAlteredTo bool
}

func newSequenceContextStratifier(contextSize int, includeAlteredTo bool, name string) *sequenceContextStratifier {
	return &sequenceContextStratifier{
		stratBase:        newStratBase(name, Tolerate),
		contextSize:      contextSize,
		includeAlteredTo: includeAlteredTo,
	}
}

func (s *sequenceContextStratifier) derive(t *tracked) error {
	context := t.rec.Context
	if len(context) < s.contextSize {
		return errorf("context %q of %s has insufficient length for desired size %d",
			context, t.rec.LocationString(), s.contextSize)
	}
	if len(context)%2 != s.contextSize%2 {
		return errorf("context %q of %s does not have the same parity as context size %d",
			context, t.rec.LocationString(), s.contextSize)
	}
	trim := (len(context) - s.contextSize) / 2
	key := context[trim : trim+s.contextSize]
	if s.includeAlteredTo {
		key = key + ">" + t.rec.AlteredTo
	}
	k := StringKey(key)
	s.addKey(k)
	t.update(s.slot, k)
	return nil
}

func (s *sequenceContextStratifier) Update(t *tracked, span *feature.Encompassing) error {
	return s.derive(t)
}

func (s *sequenceContextStratifier) OnNonEncompassed(t *tracked) error { return s.derive(t) }

func (s *sequenceContextStratifier) Key(t *tracked) (Key, bool) { return s.slotKey(t) }
