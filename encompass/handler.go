package encompass

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/encompass/feature"
)

func errorf(format string, args ...interface{}) error {
	return errors.E(fmt.Sprintf(format, args...))
}

// IncrementalMode selects which input's features, if any, trigger
// incremental row output as they leave the counter's working set.
type IncrementalMode int

const (
	// NoIncremental buffers the full table and writes it once at the end.
	NoIncremental IncrementalMode = iota
	// IncrementalEncompassed writes one row per encompassed feature once
	// the feature cannot be seen again.
	IncrementalEncompassed
	// IncrementalEncompassing writes one row per encompassing feature once
	// the feature cannot be seen again.
	IncrementalEncompassing
)

// HandlerOpts configures a Handler.
type HandlerOpts struct {
	Incremental IncrementalMode
	// TrackAllEncompassing registers every encompassing feature in the
	// relevant key spaces, even those that encompass nothing.
	TrackAllEncompassing bool
	// TrackAllEncompassed registers every encompassed feature, even those
	// that are never encompassed or whose counting is suppressed.
	TrackAllEncompassed bool
	// CountAllEncompassed additionally counts the features
	// TrackAllEncompassed registers.  Requires TrackAllEncompassed.
	CountAllEncompassed bool
}

// Handler receives encompassment events from a Counter, runs them through
// the stratifier pipeline, and maintains the nested count table.
type Handler struct {
	opts   HandlerOpts
	strats []stratifier
	root   *tableNode

	// total is the count when no stratifiers were added.
	total int64

	// Resolved by CreateWriter.
	nontolerant  bool
	ignoreStrats []stratifier
	writer       *Writer

	// pending maps leading-stratifier keys to the source fields of features
	// awaiting an incremental write.
	pending map[Key][]string
}

// NewHandler returns a Handler with no stratifiers.
func NewHandler(opts HandlerOpts) (*Handler, error) {
	if opts.CountAllEncompassed && !opts.TrackAllEncompassed {
		return nil, errorf("encompass.NewHandler: CountAllEncompassed requires TrackAllEncompassed")
	}
	h := &Handler{opts: opts, root: &tableNode{}}
	if opts.Incremental != NoIncremental {
		h.pending = make(map[Key][]string)
	}
	return h, nil
}

func (h *Handler) addStratifier(s stratifier) {
	s.base().slot = len(h.strats)
	h.strats = append(h.strats, s)
}

// AddStrandComparisonStratifier stratifies by whether the encompassed and
// encompassing strands match.
func (h *Handler) AddStrandComparisonStratifier(amb Ambiguity, name string) {
	h.addStratifier(newStrandComparisonStratifier(amb, name))
}

// AddRelativePositionStratifier stratifies by the encompassed feature's
// offset within the encompassing feature.  ref sizes the key space, so every
// encompassing feature is expected to share its span length; extraRadius
// widens the key space for padded counting.
func (h *Handler) AddRelativePositionStratifier(ref *feature.Encompassing, centered bool, extraRadius int, amb Ambiguity, name string) {
	h.addStratifier(newRelativePositionStratifier(ref, centered, extraRadius, amb, name))
}

// AddFeatureFractionStratifier stratifies by fractional bin within the
// encompassing feature, with optional flanking bins on each side.
func (h *Handler) AddFeatureFractionStratifier(amb Ambiguity, name string, fractionNum, flankingBinSize, flankingBinNum int) {
	h.addStratifier(newFeatureFractionStratifier(amb, name, fractionNum, flankingBinSize, flankingBinNum))
}

// AddEncompassingIdentityStratifier stratifies by encompassing feature.
func (h *Handler) AddEncompassingIdentityStratifier(amb Ambiguity, name string) {
	h.addStratifier(newEncompassingIdentityStratifier(amb, name))
}

// AddEncompassedIdentityStratifier stratifies by encompassed feature.  A
// feature has exactly one identity, so the layer is ambiguity-free.
func (h *Handler) AddEncompassedIdentityStratifier(name string) {
	h.addStratifier(newEncompassedIdentityStratifier(name))
}

// AddSequenceContextStratifier stratifies by the encompassed feature's
// surrounding nucleotide context, trimmed to contextSize.
func (h *Handler) AddSequenceContextStratifier(contextSize int, includeAlteredTo bool, name string) {
	h.addStratifier(newSequenceContextStratifier(contextSize, includeAlteredTo, name))
}

// AddColumnStratifier stratifies by the literal value of column col
// (0-based) of the given record side.
func (h *Handler) AddColumnStratifier(side Side, col int, amb Ambiguity, name string) {
	h.addStratifier(newColumnStratifier(side, col, amb, name))
}

// AddPlaceholderStratifier adds a single-key layer, forcing the last output
// column to be a raw count.  Use Record to guarantee each feature counts at
// most once.
func (h *Handler) AddPlaceholderStratifier(amb Ambiguity, name string) {
	h.addStratifier(newPlaceholderStratifier(amb, name))
}

// AddSupplementalHandler attaches sh to the stratifier at the given level.
// Supplemental state lives in that level's child nodes, so the terminal
// stratifier cannot carry handlers.
func (h *Handler) AddSupplementalHandler(level int, sh SupplementalHandler) error {
	if level < 0 || level >= len(h.strats) {
		return errorf("encompass.AddSupplementalHandler: level %d out of range (have %d stratifiers)", level, len(h.strats))
	}
	if level == len(h.strats)-1 {
		return errorf("encompass.AddSupplementalHandler: cannot attach %q to the last stratifier", sh.Name())
	}
	b := h.strats[level].base()
	b.handlers = append(b.handlers, sh)
	return nil
}

// newTracked wraps rec with a side-table slot per stratifier.
func (h *Handler) newTracked(rec *feature.Encompassed) *tracked {
	return &tracked{rec: rec, slots: make([]stratSlot, len(h.strats))}
}

func (h *Handler) addPending(key Key, fields []string) {
	if _, ok := h.pending[key]; !ok {
		h.pending[key] = fields
	}
}

// pendingCount reports the number of features awaiting an incremental write.
func (h *Handler) pendingCount() int { return len(h.pending) }

// newEncompassing reports a brand-new encompassing feature, before any
// overlap with it is known.
func (h *Handler) newEncompassing(span *feature.Encompassing) error {
	if !h.opts.TrackAllEncompassing {
		return nil
	}
	for _, s := range h.strats {
		if err := s.OnNewEncompassing(span); err != nil {
			return err
		}
	}
	if h.opts.Incremental == IncrementalEncompassing {
		h.addPending(SpanKey(span), span.Fields)
	}
	return nil
}

// encompassed reports that t lies within span.  When exiting is set, t has
// been seen before and is now guaranteed never to be encompassed again; the
// deferred counting for non-tolerant ambiguity handling happens here.
func (h *Handler) encompassed(t *tracked, span *feature.Encompassing, exiting bool) error {
	if h.opts.Incremental == IncrementalEncompassing {
		h.addPending(SpanKey(span), span.Fields)
	}
	if !exiting {
		if err := h.updateStrats(t, span); err != nil {
			return err
		}
	}
	if !h.nontolerant {
		if !exiting {
			h.countFeature(t, span)
		} else if h.opts.Incremental == IncrementalEncompassed {
			h.addPending(FeatureKey(t.rec), t.rec.Fields)
		}
		return nil
	}
	if !exiting {
		return nil
	}
	for _, s := range h.ignoreStrats {
		if _, ok := s.Key(t); !ok {
			return h.nonCounted(t, span)
		}
	}
	h.countFeature(t, span)
	if h.opts.Incremental == IncrementalEncompassed {
		h.addPending(FeatureKey(t.rec), t.rec.Fields)
	}
	return nil
}

// nonCounted reports a feature that left the working set without being
// counted, either never encompassed or suppressed by ignore-mode ambiguity.
// span is nil in the never-encompassed case.
func (h *Handler) nonCounted(t *tracked, span *feature.Encompassing) error {
	if !h.opts.TrackAllEncompassed {
		return nil
	}
	for _, s := range h.strats {
		if err := s.OnNonEncompassed(t); err != nil {
			return err
		}
	}
	if h.opts.Incremental == IncrementalEncompassed {
		h.addPending(FeatureKey(t.rec), t.rec.Fields)
	}
	if h.opts.CountAllEncompassed {
		h.countFeature(t, span)
	}
	return nil
}

// updateStrats derives each layer's key for t within span and folds the
// observation into update-until-exit supplemental state along t's current
// table path.  Supplemental updates below a level whose key is unavailable
// are skipped.
func (h *Handler) updateStrats(t *tracked, span *feature.Encompassing) error {
	node := h.root
	for level, s := range h.strats {
		if err := s.Update(t, span); err != nil {
			return err
		}
		if level == len(h.strats)-1 || node == nil {
			continue
		}
		key, ok := s.Key(t)
		if !ok {
			node = nil
			continue
		}
		node = h.child(node, key, level)
		for i, sh := range s.base().handlers {
			if sh.UpdateUntilExit() {
				node.supp[i] = sh.Update(node.supp[i], t.rec, span)
			}
		}
	}
	return nil
}

// countFeature increments the table cell addressed by t's current keys and
// runs update-on-count supplemental handlers along the path.  A feature
// whose key is unavailable at any level is not counted.  span may be nil
// when counting a never-encompassed feature.
func (h *Handler) countFeature(t *tracked, span *feature.Encompassing) {
	if len(h.strats) == 0 {
		h.total++
		return
	}
	node := h.root
	for level, s := range h.strats[:len(h.strats)-1] {
		key, ok := s.Key(t)
		if !ok {
			return
		}
		node = h.child(node, key, level)
		for i, sh := range s.base().handlers {
			if sh.UpdateOnCount() {
				node.supp[i] = sh.Update(node.supp[i], t.rec, span)
			}
		}
	}
	key, ok := h.strats[len(h.strats)-1].Key(t)
	if !ok {
		return
	}
	if node.counts == nil {
		node.counts = make(map[Key]int64)
	}
	node.counts[key]++
}

// WriteWaiting writes every pending feature's row in sort order and prunes
// the written branches from the table and the leading key space.  Sorted
// input guarantees the features cannot be seen again.
func (h *Handler) WriteWaiting() error {
	return h.writeWaitingExcept(Key{}, false)
}

// writeWaitingExcept is WriteWaiting with one feature held back: the
// encompassing feature still under the counter's cursor may gather more
// counts, so flushing it early would split its row.
func (h *Handler) writeWaitingExcept(hold Key, haveHold bool) error {
	if h.opts.Incremental == NoIncremental || len(h.pending) == 0 {
		return nil
	}
	if h.writer == nil {
		return errorf("encompass.WriteWaiting: no writer; call CreateWriter first")
	}
	keys := make([]Key, 0, len(h.pending))
	for k := range h.pending {
		if haveHold && k == hold {
			continue
		}
		keys = append(keys, k)
	}
	sortKeys(keys)
	lead := h.strats[0]
	for _, k := range keys {
		if err := h.writer.writeFeatureRow(k, h.pending[k]); err != nil {
			return err
		}
		delete(h.root.children, k)
		lead.base().removeKey(k)
		delete(h.pending, k)
	}
	return nil
}

// Compact drops table subtrees that hold no counts and no supplemental
// state.  The writer recovers their rows as zeros from the key spaces, so
// compaction never changes output.
func (h *Handler) Compact() {
	compactNode(h.root)
}

func compactNode(n *tableNode) bool {
	for key, child := range n.children {
		if compactNode(child) {
			delete(n.children, key)
		}
	}
	return len(n.children) == 0 && len(n.counts) == 0 && n.supp == nil
}

// CreateWriter resolves the pipeline's ambiguity handling, validates the
// configuration, and attaches an output writer.  In incremental mode the
// header row is written immediately so batch and incremental outputs match.
func (h *Handler) CreateWriter(w *Writer) error {
	h.nontolerant = false
	h.ignoreStrats = nil
	for _, s := range h.strats {
		switch s.Ambiguity() {
		case Tolerate:
		case Record:
			h.nontolerant = true
		case Ignore:
			h.nontolerant = true
			h.ignoreStrats = append(h.ignoreStrats, s)
			if h.opts.CountAllEncompassed {
				log.Error.Printf("ignore-mode ambiguity handling on %q is pointless when counting all encompassed features", s.Name())
			}
		}
	}
	if h.opts.Incremental != NoIncremental {
		if len(h.strats) < 2 {
			return errorf("encompass.CreateWriter: incremental writing requires at least 2 stratifiers, have %d", len(h.strats))
		}
		switch h.opts.Incremental {
		case IncrementalEncompassed:
			if _, ok := h.strats[0].(*encompassedIdentityStratifier); !ok {
				return errorf("encompass.CreateWriter: incremental encompassed writing requires a leading encompassed-identity stratifier")
			}
		case IncrementalEncompassing:
			if _, ok := h.strats[0].(*encompassingIdentityStratifier); !ok {
				return errorf("encompass.CreateWriter: incremental encompassing writing requires a leading encompassing-identity stratifier")
			}
		}
	}
	if err := w.bind(h); err != nil {
		return err
	}
	h.writer = w
	if h.opts.Incremental != NoIncremental {
		return w.writeHeader()
	}
	return nil
}

// Finish flushes any remaining output.  In batch mode this writes the whole
// table; in incremental mode the rows are already out and only the trailing
// buffer is flushed.
func (h *Handler) Finish() error {
	if h.writer == nil {
		return errorf("encompass.Finish: no writer; call CreateWriter first")
	}
	if h.opts.Incremental == NoIncremental {
		if err := h.writer.WriteResults(); err != nil {
			return err
		}
	} else if err := h.WriteWaiting(); err != nil {
		return err
	}
	return h.writer.Close()
}
