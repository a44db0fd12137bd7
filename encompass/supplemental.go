package encompass

import (
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/encompass/feature"
)

// SupplementalHandler accumulates extra per-cell output alongside the counts
// at one table level.  Handlers attach to a stratifier and store their state
// in that stratifier's child level, so they cannot attach to the terminal
// stratifier.  UpdateUntilExit handlers run on every confirmed overlap;
// UpdateOnCount handlers run only at the moment a feature is counted.
type SupplementalHandler interface {
	// Name is the handler's output column header.
	Name() string
	UpdateUntilExit() bool
	UpdateOnCount() bool
	// Init returns the zero accumulator for a fresh table cell.
	Init() interface{}
	// Update folds one (encompassed, encompassing) observation into state
	// and returns the result.  span is nil when an otherwise-excluded
	// feature is counted for a denominator, so handlers reading the
	// encompassing record should be configured UpdateUntilExit.
	Update(state interface{}, rec *feature.Encompassed, span *feature.Encompassing) interface{}
	// Format renders the accumulator for file output.
	Format(state interface{}) string
}

type handlerBase struct {
	name      string
	untilExit bool
	onCount   bool
}

func (h *handlerBase) Name() string          { return h.name }
func (h *handlerBase) UpdateUntilExit() bool { return h.untilExit }
func (h *handlerBase) UpdateOnCount() bool   { return h.onCount }

// SiteNamesHandler accumulates the deduplicated set of encompassing site
// names (name plus strand) seen at a table cell.
type SiteNamesHandler struct {
	handlerBase
}

// NewSiteNamesHandler returns a SiteNamesHandler updating on every overlap.
func NewSiteNamesHandler(name string) *SiteNamesHandler {
	return &SiteNamesHandler{handlerBase{name: name, untilExit: true}}
}

func (h *SiteNamesHandler) Init() interface{} { return map[string]bool{} }

func (h *SiteNamesHandler) Update(state interface{}, rec *feature.Encompassed, span *feature.Encompassing) interface{} {
	state.(map[string]bool)[span.Name+string(span.Strand)] = true
	return state
}

func (h *SiteNamesHandler) Format(state interface{}) string {
	names := make([]string, 0, len(state.(map[string]bool)))
	for name := range state.(map[string]bool) {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// CategoryCountsHandler accumulates a frequency table of the encompassed
// features' mutations (context>alteration), formatted "C>A:4,C>T:2".
type CategoryCountsHandler struct {
	handlerBase
}

// NewCategoryCountsHandler returns a CategoryCountsHandler updating at
// counting time, so its tallies match the counts column under any ambiguity
// handling.
func NewCategoryCountsHandler(name string) *CategoryCountsHandler {
	return &CategoryCountsHandler{handlerBase{name: name, onCount: true}}
}

func (h *CategoryCountsHandler) Init() interface{} { return map[string]int{} }

func (h *CategoryCountsHandler) Update(state interface{}, rec *feature.Encompassed, span *feature.Encompassing) interface{} {
	state.(map[string]int)[rec.Mutation()]++
	return state
}

func (h *CategoryCountsHandler) Format(state interface{}) string {
	counts := state.(map[string]int)
	categories := make([]string, 0, len(counts))
	for category := range counts {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	parts := make([]string, len(categories))
	for i, category := range categories {
		parts[i] = category + ":" + strconv.Itoa(counts[category])
	}
	return strings.Join(parts, ",")
}

// longestSeq is the LongestSequenceHandler accumulator.
type longestSeq struct {
	length float64
	seq    string
}

// LongestSequenceHandler keeps the sequence of the largest encompassing
// feature seen at a table cell, lowercased with the encompassed position
// capitalized (two bases for a half position).  The offset into the
// sequence follows the encompassing feature's strand.
type LongestSequenceHandler struct {
	handlerBase
}

// NewLongestSequenceHandler returns a LongestSequenceHandler updating on
// every overlap.
func NewLongestSequenceHandler(name string) *LongestSequenceHandler {
	return &LongestSequenceHandler{handlerBase{name: name, untilExit: true}}
}

func (h *LongestSequenceHandler) Init() interface{} { return longestSeq{} }

func (h *LongestSequenceHandler) Update(state interface{}, rec *feature.Encompassed, span *feature.Encompassing) interface{} {
	cur := state.(longestSeq)
	if cur.seq != "" && cur.length >= span.End-span.Start {
		return cur
	}
	var posDiff float64
	if span.Strand == '-' {
		posDiff = span.End - rec.Pos
	} else {
		posDiff = rec.Pos - span.Start
	}
	lo, hi := int(posDiff), int(posDiff)
	if posDiff != float64(int(posDiff)) {
		lo, hi = int(posDiff-0.5), int(posDiff+0.5)
	}
	seq := strings.ToLower(span.Seq)
	if lo < 0 || hi >= len(seq) {
		// The position falls outside the supplied sequence (padding in
		// effect); keep the previous state rather than truncate.
		return cur
	}
	seq = seq[:lo] + strings.ToUpper(seq[lo:hi+1]) + seq[hi+1:]
	return longestSeq{length: span.End - span.Start, seq: seq}
}

func (h *LongestSequenceHandler) Format(state interface{}) string {
	return state.(longestSeq).seq
}

// ColumnHandler collects a literal column value from either record at each
// table cell, with optional deduplication.
type ColumnHandler struct {
	handlerBase
	side       Side
	col        int
	emptySub   string
	removeDups bool
	separator  string
}

// columnValues preserves first-seen order; seen is nil unless deduplicating.
type columnValues struct {
	seen map[string]bool
	vals []string
}

// NewColumnHandler returns a handler collecting column col (0-based) of the
// given record side on every overlap.  Duplicates are dropped when
// removeDups is set; emptySub substitutes for cells that saw no values.
func NewColumnHandler(name string, side Side, col int, removeDups bool, separator, emptySub string) *ColumnHandler {
	return &ColumnHandler{
		handlerBase: handlerBase{name: name, untilExit: true},
		side:        side,
		col:         col,
		emptySub:    emptySub,
		removeDups:  removeDups,
		separator:   separator,
	}
}

func (h *ColumnHandler) Init() interface{} {
	v := &columnValues{}
	if h.removeDups {
		v.seen = make(map[string]bool)
	}
	return v
}

func (h *ColumnHandler) Update(state interface{}, rec *feature.Encompassed, span *feature.Encompassing) interface{} {
	v := state.(*columnValues)
	var fields []string
	if h.side == EncompassingSide {
		if span == nil {
			return v
		}
		fields = span.Fields
	} else {
		fields = rec.Fields
	}
	if h.col >= len(fields) {
		return v
	}
	value := fields[h.col]
	if h.removeDups {
		if v.seen[value] {
			return v
		}
		v.seen[value] = true
	}
	v.vals = append(v.vals, value)
	return v
}

func (h *ColumnHandler) Format(state interface{}) string {
	v := state.(*columnValues)
	if len(v.vals) == 0 {
		return h.emptySub
	}
	return strings.Join(v.vals, h.separator)
}
