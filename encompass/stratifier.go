package encompass

import (
	"sort"

	"github.com/grailbio/encompass/feature"
)

// Ambiguity selects how a stratifier treats a feature whose key differs
// across the encompassing contexts it was seen in.
type Ambiguity int

const (
	// Tolerate records every concurrent classification; a feature may be
	// counted once per encompassing context.
	Tolerate Ambiguity = iota
	// Ignore permanently excludes a feature from counting once two
	// different keys have been observed for it.
	Ignore
	// Record collapses conflicting keys to the reserved ambiguous sentinel;
	// the feature is still counted exactly once.
	Record
)

// ParseAmbiguity converts a flag value to an Ambiguity.
func ParseAmbiguity(s string) (Ambiguity, error) {
	switch s {
	case "tolerate":
		return Tolerate, nil
	case "ignore":
		return Ignore, nil
	case "record":
		return Record, nil
	}
	return 0, errorf("invalid ambiguity handling %q, expected tolerate, ignore, or record", s)
}

// tracked pairs a parsed encompassed record with the pipeline's per-feature
// side table: one slot per stratifier, indexed by the stratifier's position
// in the pipeline.  Slots are the only per-feature mutable state.
type tracked struct {
	rec   *feature.Encompassed
	slots []stratSlot
}

type stratSlot struct {
	key       Key
	set       bool
	ambiguous bool
}

// update records a stratifier's derived key, flagging ambiguity when it
// conflicts with a previously derived key.  The latest value wins so that
// tolerate-mode counting always sees the current context's key.
func (t *tracked) update(slot int, key Key) {
	s := &t.slots[slot]
	if s.set && s.key != key {
		s.ambiguous = true
	}
	s.key = key
	s.set = true
}

// stratifier is one layer of the output pipeline.  Each implementation
// contributes one dimension to the nested count table.
type stratifier interface {
	// Name is the layer's output column header.
	Name() string
	Ambiguity() Ambiguity
	// Update derives the layer's key for t as seen within span and records
	// it in t's slot.
	Update(t *tracked, span *feature.Encompassing) error
	// Key returns the table key for t at this level.  ok is false when the
	// feature cannot be keyed here (ignore-mode ambiguity, or no value yet).
	Key(t *tracked) (key Key, ok bool)
	// OnNewEncompassing reacts to a brand-new encompassing feature,
	// independent of any overlap.
	OnNewEncompassing(span *feature.Encompassing) error
	// OnNonEncompassed reacts to a feature that was never encompassed.
	OnNonEncompassed(t *tracked) error
	// Keys returns the layer's key space, sorted for output.
	Keys() []Key
	// Format renders a key for output.
	Format(k Key) string

	base() *stratBase
}

// stratBase carries the state shared by every stratifier variant.
type stratBase struct {
	name     string
	amb      Ambiguity
	slot     int
	keys     map[Key]bool
	sorted   []Key
	handlers []SupplementalHandler
}

func newStratBase(name string, amb Ambiguity) stratBase {
	b := stratBase{name: name, amb: amb, keys: make(map[Key]bool)}
	if amb == Record {
		b.keys[KeyAmbiguous] = true
	}
	return b
}

func (b *stratBase) Name() string         { return b.name }
func (b *stratBase) Ambiguity() Ambiguity { return b.amb }
func (b *stratBase) base() *stratBase     { return b }

func (b *stratBase) addKey(k Key) {
	if !b.keys[k] {
		b.keys[k] = true
		b.sorted = nil
	}
}

func (b *stratBase) removeKey(k Key) {
	if b.keys[k] {
		delete(b.keys, k)
		b.sorted = nil
	}
}

func (b *stratBase) Keys() []Key {
	if b.sorted == nil {
		b.sorted = make([]Key, 0, len(b.keys))
		for k := range b.keys {
			b.sorted = append(b.sorted, k)
		}
		sortKeys(b.sorted)
	}
	return b.sorted
}

func (b *stratBase) Format(k Key) string { return k.String() }

// slotKey resolves t's slot under this layer's ambiguity handling.
func (b *stratBase) slotKey(t *tracked) (Key, bool) {
	s := t.slots[b.slot]
	if !s.set {
		return Key{}, false
	}
	if s.ambiguous && b.amb != Tolerate {
		if b.amb == Record {
			return KeyAmbiguous, true
		}
		return Key{}, false
	}
	return s.key, true
}

// Default no-op hooks; variants override as needed.
func (b *stratBase) Update(t *tracked, span *feature.Encompassing) error { return nil }
func (b *stratBase) OnNewEncompassing(span *feature.Encompassing) error  { return nil }
func (b *stratBase) OnNonEncompassed(t *tracked) error                   { return nil }

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
}
