package encompass

import (
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// Sentinel values for WriterOpts.Subs entries.
const (
	// SubAppend appends the computed value as a new trailing column.
	SubAppend = -1
	// SubDrop omits the computed value entirely.
	SubDrop = -2
)

// DerivedColumns appends caller-computed columns to every data row, e.g.
// combined-strand totals over the count cells.
type DerivedColumns struct {
	Headers []string
	// Compute receives the row's cells so far (stratifier names,
	// supplemental values, and counts) plus the key path addressing the
	// row, and returns exactly len(Headers) cells.
	Compute func(cells []string, path []Key) []string
}

// WriterOpts configures table output.
type WriterOpts struct {
	// Subs routes each logical output column when PreserveSource is set:
	// a 0-based index substitutes the value into that column of the
	// original record, SubAppend appends it, and SubDrop omits it.  Length
	// must match the header count; nil appends everything.
	Subs []int
	// CustomNames overrides per-level key display names.  When non-nil its
	// length must match the stratifier count; nil entries keep default
	// formatting.
	CustomNames []map[Key]string
	Derived     *DerivedColumns
	// PreserveSource echoes the original record's columns in incremental
	// rows instead of the formatted feature key, substituting computed
	// cells per Subs.  Incremental mode only.
	PreserveSource bool
	// Bgzip compresses the output with bgzf using Parallelism writer
	// threads.
	Bgzip       bool
	Parallelism int
}

// Writer serializes the nested count table, either all at once or one
// feature row at a time.  Close flushes the writer but not the underlying
// file.
type Writer struct {
	opts WriterOpts
	out  *tsv.Writer
	bgzf *bgzf.Writer

	h           *Handler
	headers     []string
	wroteHeader bool
	path        []Key
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer, opts WriterOpts) *Writer {
	wr := &Writer{opts: opts}
	if opts.Bgzip {
		parallelism := opts.Parallelism
		if parallelism <= 0 {
			parallelism = 1
		}
		wr.bgzf = bgzf.NewWriter(w, parallelism)
		wr.out = tsv.NewWriter(wr.bgzf)
	} else {
		wr.out = tsv.NewWriter(w)
	}
	return wr
}

// bind attaches the writer to h and validates the configuration against the
// assembled pipeline.
func (w *Writer) bind(h *Handler) error {
	w.h = h
	if w.opts.CustomNames != nil && len(w.opts.CustomNames) != len(h.strats) {
		return errorf("encompass.Writer: %d custom name maps for %d stratifiers", len(w.opts.CustomNames), len(h.strats))
	}
	for level, names := range w.opts.CustomNames {
		if names == nil {
			continue
		}
		if _, ok := names[KeyAmbiguous]; ok && h.strats[level].Ambiguity() != Record {
			return errorf("encompass.Writer: custom name for the reserved ambiguous key on %q, which does not record ambiguity", h.strats[level].Name())
		}
	}
	if w.opts.Subs != nil && !w.opts.PreserveSource {
		return errorf("encompass.Writer: Subs requires PreserveSource")
	}
	if w.opts.PreserveSource && h.opts.Incremental == NoIncremental {
		return errorf("encompass.Writer: PreserveSource requires incremental writing")
	}
	if w.opts.Derived != nil && w.opts.Derived.Compute == nil {
		return errorf("encompass.Writer: DerivedColumns without a Compute function")
	}
	return nil
}

func (w *Writer) keyName(level int, k Key) string {
	if w.opts.CustomNames != nil && w.opts.CustomNames[level] != nil {
		if name, ok := w.opts.CustomNames[level][k]; ok {
			return name
		}
	}
	return w.h.strats[level].Format(k)
}

func (w *Writer) buildHeaders() error {
	strats := w.h.strats
	var headers []string
	if len(strats) > 1 {
		for _, s := range strats[:len(strats)-1] {
			headers = append(headers, s.Name())
			for _, sh := range s.base().handlers {
				headers = append(headers, sh.Name())
			}
		}
	}
	if len(strats) > 0 {
		last := len(strats) - 1
		for _, k := range strats[last].Keys() {
			headers = append(headers, w.keyName(last, k))
		}
	}
	if w.opts.Derived != nil {
		headers = append(headers, w.opts.Derived.Headers...)
	}
	if w.opts.Subs != nil {
		if len(w.opts.Subs) != len(headers) {
			return errorf("encompass.Writer: %d Subs entries for %d output columns", len(w.opts.Subs), len(headers))
		}
		if w.opts.Subs[0] != SubAppend {
			return errorf("encompass.Writer: the leading column carries the source record and cannot be substituted or dropped")
		}
	}
	w.headers = headers
	return nil
}

// writeHeader emits the header row once.  Source-preserving output stays
// headerless so downstream tools keep parsing it as a plain record file.
func (w *Writer) writeHeader() error {
	if w.wroteHeader {
		return nil
	}
	if err := w.buildHeaders(); err != nil {
		return err
	}
	w.wroteHeader = true
	if w.opts.PreserveSource {
		return nil
	}
	for _, name := range w.headers {
		w.out.WriteString(name)
	}
	return w.out.EndLine()
}

// rowState is the row under construction.  cells is indexed by header
// position; src carries the original record's columns when preserving
// source formatting, in which case cell 0 is represented by src itself.
type rowState struct {
	src   []string
	cells []string
}

func (w *Writer) flushRow(row *rowState) error {
	if row.src == nil {
		for _, c := range row.cells {
			w.out.WriteString(c)
		}
		return w.out.EndLine()
	}
	src := make([]string, len(row.src))
	copy(src, row.src)
	var appended []string
	for i, cell := range row.cells[1:] {
		sub := SubAppend
		if w.opts.Subs != nil {
			sub = w.opts.Subs[i+1]
		}
		switch {
		case sub == SubDrop:
		case sub == SubAppend:
			appended = append(appended, cell)
		default:
			if sub < 0 || sub >= len(src) {
				return errorf("encompass.Writer: Subs index %d out of range for a %d-column record", sub, len(src))
			}
			src[sub] = cell
		}
	}
	for _, c := range src {
		w.out.WriteString(c)
	}
	for _, c := range appended {
		w.out.WriteString(c)
	}
	return w.out.EndLine()
}

// writeRows recursively emits every row reachable at or below level.  node
// may be nil: an unmaterialized branch renders as zero counts and empty
// supplemental state.
func (w *Writer) writeRows(node *tableNode, level, col int, row *rowState) error {
	strats := w.h.strats
	s := strats[level]
	if level < len(strats)-1 {
		handlers := s.base().handlers
		for _, k := range s.Keys() {
			row.cells[col] = w.keyName(level, k)
			var child *tableNode
			if node != nil {
				child = node.children[k]
			}
			for i, sh := range handlers {
				state := sh.Init()
				if child != nil {
					state = child.supp[i]
				}
				row.cells[col+1+i] = sh.Format(state)
			}
			w.path = append(w.path, k)
			err := w.writeRows(child, level+1, col+1+len(handlers), row)
			w.path = w.path[:len(w.path)-1]
			if err != nil {
				return err
			}
		}
		return nil
	}
	keys := s.Keys()
	for i, k := range keys {
		var c int64
		if node != nil {
			c = node.counts[k]
		}
		row.cells[col+i] = strconv.FormatInt(c, 10)
	}
	if w.opts.Derived != nil {
		derived := w.opts.Derived.Compute(row.cells[:col+len(keys)], w.path)
		copy(row.cells[col+len(keys):], derived)
	}
	return w.flushRow(row)
}

// writeFeatureRow emits the single row addressed by the leading-stratifier
// key k.  srcFields is the feature's original record for source-preserving
// output.
func (w *Writer) writeFeatureRow(k Key, srcFields []string) error {
	strats := w.h.strats
	row := &rowState{cells: make([]string, len(w.headers))}
	if w.opts.PreserveSource {
		row.src = srcFields
	} else {
		row.cells[0] = w.keyName(0, k)
	}
	node := w.h.root.children[k]
	lead := strats[0].base()
	for i, sh := range lead.handlers {
		state := sh.Init()
		if node != nil {
			state = node.supp[i]
		}
		row.cells[1+i] = sh.Format(state)
	}
	w.path = append(w.path[:0], k)
	return w.writeRows(node, 1, 1+len(lead.handlers), row)
}

// WriteResults writes the whole table at once: the header row followed by
// one row per key path.  With no stratifiers the output is the bare total.
func (w *Writer) WriteResults() error {
	if len(w.h.strats) == 0 {
		w.out.WriteString(strconv.FormatInt(w.h.total, 10))
		return w.out.EndLine()
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	row := &rowState{cells: make([]string, len(w.headers))}
	w.path = w.path[:0]
	return w.writeRows(w.h.root, 0, 0, row)
}

// Close flushes buffered output.  The caller owns the underlying file.
func (w *Writer) Close() error {
	if err := w.out.Flush(); err != nil {
		return err
	}
	if w.bgzf != nil {
		return w.bgzf.Close()
	}
	return nil
}
