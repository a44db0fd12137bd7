package feature

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CheckSorted verifies that r holds records sorted ascending by chromosome
// (lexicographic) then start and end coordinates (numeric), the same order
// enforced by "sort -k1,1 -k2,2n -k3,3n -s".  name is used in error text.
// Blank lines are skipped; any other line must carry at least three columns
// with numeric coordinates.  skipHeader ignores the first non-blank line.
func CheckSorted(r io.Reader, name string, skipHeader bool) error {
	scanner := bufio.NewScanner(r)
	lineIdx := 0
	skipped := !skipHeader
	prevChrom := ""
	var prevStart, prevEnd float64
	havePrev := false
	for scanner.Scan() {
		lineIdx++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if !skipped {
			skipped = true
			continue
		}
		if len(fields) < 3 {
			return errors.Errorf("%s: line %d: expected at least 3 columns, found %d", name, lineIdx, len(fields))
		}
		start, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return errors.Wrapf(err, "%s: line %d: non-numeric start coordinate %q", name, lineIdx, fields[1])
		}
		end, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return errors.Wrapf(err, "%s: line %d: non-numeric end coordinate %q", name, lineIdx, fields[2])
		}
		if havePrev {
			switch {
			case fields[0] < prevChrom:
				return errors.Errorf("%s: line %d: unsorted input: expected chromosome >= %s, found %s",
					name, lineIdx, prevChrom, fields[0])
			case fields[0] == prevChrom && start < prevStart:
				return errors.Errorf("%s: line %d: unsorted input: expected start >= %s, found %s",
					name, lineIdx, FormatPos(prevStart), fields[1])
			case fields[0] == prevChrom && start == prevStart && end < prevEnd:
				return errors.Errorf("%s: line %d: unsorted input: expected end >= %s, found %s",
					name, lineIdx, FormatPos(prevEnd), fields[2])
			}
		}
		prevChrom, prevStart, prevEnd = fields[0], start, end
		havePrev = true
	}
	return scanner.Err()
}

// CheckSortedPath is a wrapper for CheckSorted that takes a path.
func CheckSortedPath(ctx context.Context, path string, skipHeader bool) (err error) {
	in, err := Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return CheckSorted(in, path, skipHeader)
}
