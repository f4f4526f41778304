package swift

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
)

const headerInputName = "X-Object-Meta-Inputname"

// ProgressFunc receives the number of bytes or items processed so far and
// the best known total.
type ProgressFunc func(done, total int64)

// UploadOptions describe the stored object.
type UploadOptions struct {
	ContentType string
	// InputName is the original file name. It defaults to the last path segment.
	InputName string
}

// Upload stores size bytes from r at path. progress, when set, is called
// with monotonically increasing byte counts and, on success, once more
// with (size, size).
func (c *Client) Upload(ctx context.Context, path string, r io.Reader, size int64, opts UploadOptions, progress ProgressFunc) error {
	key, err := c.resolver.Key(c.level, path)
	if err != nil {
		return err
	}

	name := opts.InputName
	if name == "" {
		name = pathx.Base(path)
	}
	h := http.Header{}
	h.Set(headerInputName, url.PathEscape(name))
	if cd := mime.FormatMediaType("attachment", map[string]string{"filename": name}); cd != "" {
		h.Set("Content-Disposition", cd)
	}
	if opts.ContentType != "" {
		h.Set("Content-Type", opts.ContentType)
	}

	body := r
	if progress != nil {
		body = &progressReader{r: r, total: size, fn: progress}
	}

	resp, err := c.do(ctx, call{method: http.MethodPut, key: key, header: h, body: body, size: size})
	if err != nil {
		return err
	}
	drain(resp)

	if progress != nil {
		progress(size, size)
	}
	c.log.Info(ctx, "object uploaded", "path", path, "size", size)
	return nil
}

type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		total := p.total
		if p.read > total {
			total = p.read
		}
		p.fn(p.read, total)
	}
	return n, err
}
