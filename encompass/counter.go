package encompass

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/encompass/feature"
)

// maxPendingWrites bounds the incremental pending set: a long stretch of
// never-encompassed features between two encompassing features would
// otherwise accumulate without a flush point.
const maxPendingWrites = 10000

const maxLineBytes = 4 << 20

// Counter runs the merge-join over the two sorted inputs, reporting
// encompassment events to its Handler.  Both inputs must be sorted by
// (chromosome, start, end), chromosome lexicographic and coordinates
// numeric; the counter assumes the invariant and produces garbage without
// it.
type Counter struct {
	h    *Handler
	opts Opts

	encompassed  *bufio.Scanner
	encompassing *bufio.Scanner

	cur      *tracked
	curSpan  *feature.Encompassing
	prevSpan *feature.Encompassing

	// confirmed holds features known to lie within prevSpan whose exit has
	// not yet been established.
	confirmed []*tracked

	curEncompassed     bool
	lastNonEncompassed *feature.Encompassed
}

// NewCounter returns a Counter joining the encompassed and encompassing
// streams.  The handler's pipeline and writer must be fully assembled
// first.
func NewCounter(h *Handler, encompassed, encompassing io.Reader, opts Opts) (*Counter, error) {
	c := &Counter{
		h:            h,
		opts:         opts,
		encompassed:  bufio.NewScanner(encompassed),
		encompassing: bufio.NewScanner(encompassing),
	}
	c.encompassed.Buffer(nil, maxLineBytes)
	c.encompassing.Buffer(nil, maxLineBytes)
	if opts.EncompassedHasHeader {
		c.encompassed.Scan()
	}
	if opts.EncompassingHasHeader {
		c.encompassing.Scan()
	}
	if err := c.readNextEncompassed(); err != nil {
		return nil, err
	}
	if err := c.readNextSpan(); err != nil {
		return nil, err
	}
	return c, nil
}

// nextLine returns the next non-blank line, or ok=false at EOF.
func nextLine(s *bufio.Scanner) (line string, ok bool, err error) {
	for s.Scan() {
		if line = s.Text(); strings.TrimSpace(line) != "" {
			return line, true, nil
		}
	}
	return "", false, s.Err()
}

// readNextEncompassed advances the encompassed cursor.  A cursor feature
// that was never confirmed encompassed is reported to the handler first.
func (c *Counter) readNextEncompassed() error {
	if c.cur != nil && !c.curEncompassed {
		if c.h.opts.Incremental == IncrementalEncompassed && c.h.pendingCount() > maxPendingWrites &&
			c.lastNonEncompassed != nil && c.lastNonEncompassed.Less(c.cur.rec) {
			if err := c.h.WriteWaiting(); err != nil {
				return err
			}
		}
		if err := c.h.nonCounted(c.cur, nil); err != nil {
			return err
		}
		c.lastNonEncompassed = c.cur.rec
	}
	c.curEncompassed = false

	line, ok, err := nextLine(c.encompassed)
	if err != nil {
		return err
	}
	if !ok {
		c.cur = nil
		return nil
	}
	rec, err := feature.ParseEncompassed(line, &c.opts.EncompassedParse)
	if err != nil {
		return err
	}
	c.cur = c.h.newTracked(rec)
	return nil
}

// readNextSpan advances the encompassing cursor, then reconciles the
// confirmed working set against the new feature.
func (c *Counter) readNextSpan() error {
	c.prevSpan = c.curSpan

	line, ok, err := nextLine(c.encompassing)
	if err != nil {
		return err
	}
	if !ok {
		c.curSpan = nil
	} else {
		span, parseErr := feature.ParseEncompassing(line, &c.opts.EncompassingParse)
		if parseErr != nil {
			return parseErr
		}
		c.curSpan = span
		if err = c.h.newEncompassing(span); err != nil {
			return err
		}
		if c.prevSpan == nil || c.prevSpan.Chrom != span.Chrom {
			log.Printf("counting in %s", span.Chrom)
		}
	}

	if c.prevSpan != nil {
		return c.checkConfirmed()
	}
	return nil
}

func (c *Counter) radius() float64 { return float64(c.opts.ExtraRadius) }

// pastSpan reports whether the encompassed cursor has moved past the
// current encompassing feature's padded range.
func (c *Counter) pastSpan() bool {
	if c.cur == nil {
		return true
	}
	return c.cur.rec.Pos > c.curSpan.End+c.radius() ||
		c.cur.rec.Chrom != c.curSpan.Chrom
}

func (c *Counter) within(rec *feature.Encompassed, span *feature.Encompassing) bool {
	return rec.Pos >= span.Start-c.radius() && rec.Pos <= span.End+c.radius()
}

// exiting reports whether t falls before the new encompassing feature's
// padded range, reporting the exit (against the previous feature) to the
// handler when so.
func (c *Counter) exiting(t *tracked) (bool, error) {
	if t.rec.Pos < c.curSpan.Start-c.radius() || t.rec.Chrom != c.curSpan.Chrom {
		return true, c.h.encompassed(t, c.prevSpan, true)
	}
	return false, nil
}

// checkConfirmed reconciles the confirmed working set after the
// encompassing cursor advanced: features behind the new range exit against
// the previous feature, and survivors inside the new range are re-reported
// as non-exiting overlaps.
func (c *Counter) checkConfirmed() error {
	if c.curSpan == nil {
		for _, t := range c.confirmed {
			if err := c.h.encompassed(t, c.prevSpan, true); err != nil {
				return err
			}
		}
		c.confirmed = c.confirmed[:0]
	} else {
		kept := c.confirmed[:0]
		for _, t := range c.confirmed {
			exited, err := c.exiting(t)
			if err != nil {
				return err
			}
			if !exited {
				kept = append(kept, t)
			}
		}
		c.confirmed = kept
		for _, t := range c.confirmed {
			if c.within(t.rec, c.curSpan) {
				if err := c.h.encompassed(t, c.curSpan, false); err != nil {
					return err
				}
			}
		}
	}
	if c.h.opts.Incremental != NoIncremental {
		if c.h.opts.Incremental == IncrementalEncompassing && c.curSpan != nil {
			return c.h.writeWaitingExcept(SpanKey(c.curSpan), true)
		}
		return c.h.WriteWaiting()
	}
	return nil
}

// reconcile advances whichever cursor is on the earlier chromosome until
// both cursors agree or either input is exhausted.
func (c *Counter) reconcile() error {
	for c.cur != nil && c.curSpan != nil && c.cur.rec.Chrom != c.curSpan.Chrom {
		if c.cur.rec.Chrom < c.curSpan.Chrom {
			if err := c.readNextEncompassed(); err != nil {
				return err
			}
		} else if err := c.readNextSpan(); err != nil {
			return err
		}
	}
	return nil
}

// Count runs the join to completion and finishes the handler's output.
// Each encompassing feature is scanned against encompassed features until
// one moves past its padded range, then the encompassing cursor advances
// and the working set is reconciled.
func (c *Counter) Count() error {
	if c.cur == nil || c.curSpan == nil {
		log.Error.Printf("empty input file(s); output will most likely be unhelpful")
	} else if err := c.reconcile(); err != nil {
		return err
	}

	for c.curSpan != nil {
		for !c.pastSpan() {
			if c.within(c.cur.rec, c.curSpan) {
				if err := c.h.encompassed(c.cur, c.curSpan, false); err != nil {
					return err
				}
				c.confirmed = append(c.confirmed, c.cur)
				c.curEncompassed = true
			}
			if err := c.readNextEncompassed(); err != nil {
				return err
			}
		}
		if err := c.readNextSpan(); err != nil {
			return err
		}
		if err := c.reconcile(); err != nil {
			return err
		}
	}

	// Drain the remaining encompassed features so non-encompassed tracking
	// sees them.
	for c.cur != nil {
		if err := c.readNextEncompassed(); err != nil {
			return err
		}
	}
	return c.h.Finish()
}

// CountFiles verifies both inputs are sorted, then joins them into h and
// writes the output.  h must already have its writer attached.
func CountFiles(ctx context.Context, h *Handler, encompassedPath, encompassingPath string, opts Opts) (err error) {
	if !opts.SkipSortCheck {
		if err = feature.CheckSortedPath(ctx, encompassedPath, opts.EncompassedHasHeader); err != nil {
			return err
		}
		if err = feature.CheckSortedPath(ctx, encompassingPath, opts.EncompassingHasHeader); err != nil {
			return err
		}
	}
	encompassed, err := feature.Open(ctx, encompassedPath)
	if err != nil {
		return err
	}
	defer func() {
		if e := encompassed.Close(); e != nil && err == nil {
			err = e
		}
	}()
	encompassing, err := feature.Open(ctx, encompassingPath)
	if err != nil {
		return err
	}
	defer func() {
		if e := encompassing.Close(); e != nil && err == nil {
			err = e
		}
	}()
	c, err := NewCounter(h, encompassed, encompassing, opts)
	if err != nil {
		return err
	}
	return c.Count()
}
