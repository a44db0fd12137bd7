package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseOpts selects between the supported input-line layouts.  The common
// layout is BED-like: chromosome, start, end, then optional payload columns,
// with strand in column 6.
type ParseOpts struct {
	// AcceptableChroms restricts records to the listed chromosomes.  A record
	// on any other chromosome is a parse error.  nil accepts everything.
	AcceptableChroms map[string]bool
	// AssumePlusStrand handles inputs without a usable strand column (e.g.
	// nucleosome maps) by assigning '+' to every record.
	AssumePlusStrand bool
	// ContextColumns expects columns 4 and 5 to carry the record's sequence
	// context and alteration (encompassed records only).
	ContextColumns bool
	// NameColumn is the 0-based column holding a named site's label
	// (encompassing records only).  Values <= 0 disable it.
	NameColumn int
	// SeqColumn is the 0-based column holding the interval's pre-computed
	// sequence (encompassing records only).  Values <= 0 disable it.
	SeqColumn int
}

func parseCommon(line string, opts *ParseOpts) (fields []string, start, end float64, strand byte, err error) {
	fields = strings.Fields(line)
	if len(fields) < 3 {
		err = fmt.Errorf("feature: line has %d columns, expected at least 3", len(fields))
		return
	}
	if start, err = strconv.ParseFloat(fields[1], 64); err != nil {
		err = fmt.Errorf("feature: non-numeric start coordinate %q", fields[1])
		return
	}
	if end, err = strconv.ParseFloat(fields[2], 64); err != nil {
		err = fmt.Errorf("feature: non-numeric end coordinate %q", fields[2])
		return
	}
	if end < start {
		err = fmt.Errorf("feature: invalid coordinate pair [%s, %s)", fields[1], fields[2])
		return
	}
	strand = '+'
	if !opts.AssumePlusStrand {
		if len(fields) < 6 {
			err = fmt.Errorf("feature: line has %d columns, expected a strand in column 6", len(fields))
			return
		}
		switch fields[5] {
		case "+", "-":
			strand = fields[5][0]
		default:
			err = fmt.Errorf("feature: invalid strand %q, expected + or -", fields[5])
			return
		}
	}
	if opts.AcceptableChroms != nil && !opts.AcceptableChroms[fields[0]] {
		err = fmt.Errorf("feature: %s is not a valid chromosome for this genome", fields[0])
	}
	return
}

// ParseEncompassed parses one whitespace-delimited line into a point record.
// The record's position is the midpoint of its textual [start, end) span.
func ParseEncompassed(line string, opts *ParseOpts) (*Encompassed, error) {
	fields, start, end, strand, err := parseCommon(line, opts)
	if err != nil {
		return nil, err
	}
	e := &Encompassed{
		Chrom:  fields[0],
		Pos:    (start + end - 1) / 2,
		Strand: strand,
		Fields: fields,
	}
	if opts.ContextColumns {
		if len(fields) < 5 {
			return nil, fmt.Errorf("feature: line has %d columns, expected context and alteration in columns 4-5", len(fields))
		}
		e.Context = fields[3]
		e.AlteredTo = fields[4]
	}
	return e, nil
}

// ParseEncompassing parses one whitespace-delimited line into an interval
// record.  The stored End is the textual end minus one (inclusive).
func ParseEncompassing(line string, opts *ParseOpts) (*Encompassing, error) {
	fields, start, end, strand, err := parseCommon(line, opts)
	if err != nil {
		return nil, err
	}
	s := &Encompassing{
		Chrom:  fields[0],
		Start:  start,
		End:    end - 1,
		Center: (start + end - 1) / 2,
		Strand: strand,
		Fields: fields,
	}
	if opts.NameColumn > 0 {
		if len(fields) <= opts.NameColumn {
			return nil, fmt.Errorf("feature: line has %d columns, expected a site name in column %d", len(fields), opts.NameColumn+1)
		}
		s.Name = fields[opts.NameColumn]
	}
	if opts.SeqColumn > 0 {
		if len(fields) <= opts.SeqColumn {
			return nil, fmt.Errorf("feature: line has %d columns, expected a sequence in column %d", len(fields), opts.SeqColumn+1)
		}
		s.Seq = fields[opts.SeqColumn]
	}
	return s, nil
}
