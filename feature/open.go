package feature

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

type pathReader struct {
	io.Reader
	close func() error
}

func (r *pathReader) Close() error { return r.close() }

// Open opens path for reading, transparently decompressing gzipped files.
func Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	r := io.Reader(f.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if r, err = gzip.NewReader(r); err != nil {
			_ = f.Close(ctx)
			return nil, err
		}
	}
	return &pathReader{Reader: r, close: func() error { return f.Close(ctx) }}, nil
}

// PeekEncompassing reads the first record of an encompassing-feature file
// without disturbing later processing.  Stratifiers with precomputed key
// spaces (relative position) are sized from it.
func PeekEncompassing(ctx context.Context, path string, opts *ParseOpts, skipHeader bool) (rec *Encompassing, err error) {
	in, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	scanner := bufio.NewScanner(in)
	skipped := !skipHeader
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !skipped {
			skipped = true
			continue
		}
		return ParseEncompassing(line, opts)
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}
