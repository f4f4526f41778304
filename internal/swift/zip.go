package swift

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
)

const defaultZipConcurrency = 8

type zipConfig struct {
	concurrency  int
	placeholders bool
}

type ZipOption func(*zipConfig)

// WithConcurrency bounds the number of objects fetched at once.
func WithConcurrency(n int) ZipOption {
	return func(z *zipConfig) { z.concurrency = n }
}

// WithErrorPlaceholders adds a "<path>.error.txt" entry describing the
// failure for every object that could not be fetched.
func WithErrorPlaceholders() ZipOption {
	return func(z *zipConfig) { z.placeholders = true }
}

// Zip fetches paths concurrently and packs them into an in-memory zip
// archive, in the order given. A failed fetch does not abort the others:
// the archive is always returned, and the failures are reported together
// as a *ZipError.
func (c *Client) Zip(ctx context.Context, paths []string, opts ...ZipOption) ([]byte, error) {
	cfg := zipConfig{concurrency: defaultZipConcurrency}
	for _, o := range opts {
		o(&cfg)
	}

	type result struct {
		data []byte
		err  error
	}
	results := make([]result, len(paths))

	var g errgroup.Group
	if cfg.concurrency > 0 {
		g.SetLimit(cfg.concurrency)
	}
	for i, p := range paths {
		g.Go(func() error {
			data, err := c.Get(ctx, p)
			results[i] = result{data: data, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	failed := map[string]error{}
	now := time.Now()

	for i, p := range paths {
		r := results[i]
		name, err := pathx.Clean(p)
		if err != nil && r.err == nil {
			r.err = err
		}
		if r.err != nil {
			failed[p] = r.err
			c.log.Warn(ctx, "zip entry failed", "path", p, "error", r.err)
			if cfg.placeholders && name != "" {
				if err := writeEntry(zw, name+".error.txt", []byte(r.err.Error()+"\n"), now); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := writeEntry(zw, name, r.data, now); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("swift: zip: %w", err)
	}

	if len(failed) > 0 {
		return buf.Bytes(), &ZipError{Errors: failed}
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, mod time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod})
	if err != nil {
		return fmt.Errorf("swift: zip %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("swift: zip %s: %w", name, err)
	}
	return nil
}
