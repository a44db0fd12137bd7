package encompass

import (
	"strconv"

	"github.com/grailbio/encompass/feature"
)

type keyKind uint8

const (
	keyNone keyKind = iota
	keyAmbiguous
	keyNum
	keyBool
	keyString
	keyEncompassed
	keyEncompassing
)

// Key is one coordinate of the nested count table: a comparable tagged union
// over the value kinds the stratifiers produce.  Feature-identity keys embed
// the identity tuple itself rather than a pointer, so two input lines with
// the same location and strand share a table row.
type Key struct {
	kind keyKind
	str  string
	num  float64
	end  float64
	sb   byte
}

// KeyNone is the placeholder stratifier's single key.
var KeyNone = Key{kind: keyNone}

// KeyAmbiguous is the reserved sentinel under record-mode ambiguity
// handling.  Stratifier key values must never collide with it.
var KeyAmbiguous = Key{kind: keyAmbiguous}

// NumKey returns a numeric key.  Integer and half-integer offsets share this
// kind.
func NumKey(v float64) Key { return Key{kind: keyNum, num: v} }

// BoolKey returns a boolean key.
func BoolKey(v bool) Key {
	k := Key{kind: keyBool}
	if v {
		k.sb = 1
	}
	return k
}

// StringKey returns a string-valued key.
func StringKey(s string) Key { return Key{kind: keyString, str: s} }

// FeatureKey returns the identity key of an encompassed feature.
func FeatureKey(e *feature.Encompassed) Key {
	return Key{kind: keyEncompassed, str: e.Chrom, num: e.Pos, sb: e.Strand}
}

// SpanKey returns the identity key of an encompassing feature.
func SpanKey(s *feature.Encompassing) Key {
	return Key{kind: keyEncompassing, str: s.Chrom, num: s.Start, end: s.End, sb: s.Strand}
}

// less orders keys for output: within a level, ambiguous sorts last, true
// before false for booleans, and identity keys follow genomic order
// (chromosome, start, end).
func (k Key) less(o Key) bool {
	if k.kind != o.kind {
		// The ambiguous sentinel is the only cross-kind pairing that occurs
		// within one level.
		if k.kind == keyAmbiguous {
			return false
		}
		if o.kind == keyAmbiguous {
			return true
		}
		return k.kind < o.kind
	}
	switch k.kind {
	case keyNum:
		return k.num < o.num
	case keyBool:
		return k.sb > o.sb
	case keyString:
		return k.str < o.str
	case keyEncompassed:
		if k.str != o.str {
			return k.str < o.str
		}
		return k.num < o.num
	case keyEncompassing:
		if k.str != o.str {
			return k.str < o.str
		}
		if k.num != o.num {
			return k.num < o.num
		}
		return k.end < o.end
	}
	return false
}

// String renders the key the way the default stratifier formatting does.
func (k Key) String() string {
	switch k.kind {
	case keyNone:
		return "None"
	case keyAmbiguous:
		return "Ambiguous"
	case keyNum:
		return feature.FormatPos(k.num)
	case keyBool:
		return strconv.FormatBool(k.sb == 1)
	case keyString:
		return k.str
	case keyEncompassed:
		return k.str + ":" + feature.FormatPos(k.num) + "(" + string(k.sb) + ")"
	case keyEncompassing:
		return k.str + ":" + feature.FormatPos(k.num) + "-" + feature.FormatPos(k.end) + "(" + string(k.sb) + ")"
	}
	return ""
}
