package swift

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/dmitrijs2005/swiftvfs/internal/models"
	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
	"github.com/dmitrijs2005/swiftvfs/internal/scope"
)

// ListItem is one entry of a shallow listing: a directory when File is nil.
type ListItem struct {
	// Path is relative to the client's scope.
	Path string
	File *models.RemoteFile
}

func (i ListItem) IsDir() bool { return i.File == nil }

// List enumerates one level below prefix. The sequence is lazy and can be
// ranged over once; a second range yields ErrIterated.
func (c *Client) List(ctx context.Context, prefix string, progress ProgressFunc) iter.Seq2[ListItem, error] {
	var used atomic.Bool
	return func(yield func(ListItem, error) bool) {
		if used.Swap(true) {
			yield(ListItem{}, ErrIterated)
			return
		}
		for e, err := range c.entries(ctx, prefix, true, progress) {
			if err != nil {
				yield(ListItem{}, err)
				return
			}
			item := ListItem{Path: scope.EntryPath(c.Prefix(), e)}
			if !e.IsDir() {
				f := c.remoteFile(e)
				item.File = &f
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// DeepList enumerates every object below prefix. Each call starts a fresh
// traversal.
func (c *Client) DeepList(ctx context.Context, prefix string, progress ProgressFunc) iter.Seq2[models.RemoteFile, error] {
	return func(yield func(models.RemoteFile, error) bool) {
		for e, err := range c.entries(ctx, prefix, false, progress) {
			if err != nil {
				yield(models.RemoteFile{}, err)
				return
			}
			if e.IsDir() {
				continue
			}
			if !yield(c.remoteFile(e), nil) {
				return
			}
		}
	}
}

func (c *Client) remoteFile(e scope.Entry) models.RemoteFile {
	p := scope.EntryPath(c.Prefix(), e)
	return models.RemoteFile{
		Name:         pathx.Base(p),
		Type:         e.ContentType,
		Size:         e.Bytes,
		CreationDate: e.Modified(),
		RemotePath:   p,
		Status:       models.StatusSuccess,
	}
}

// entries pages through the container listing below prefix. Pages are
// fetched one at a time and only while the consumer keeps pulling.
func (c *Client) entries(ctx context.Context, prefix string, shallow bool, progress ProgressFunc) iter.Seq2[scope.Entry, error] {
	return func(yield func(scope.Entry, error) bool) {
		key, err := c.resolver.Key(c.level, prefix)
		if err != nil {
			yield(scope.Entry{}, err)
			return
		}

		var (
			marker string
			count  int64
		)
		for {
			page, total, err := c.page(ctx, key, marker, shallow)
			if err != nil {
				yield(scope.Entry{}, err)
				return
			}

			for _, e := range page {
				count++
				if progress != nil {
					progress(count, max(total, count))
				}
				if !yield(e, nil) {
					return
				}
			}

			if len(page) < c.pageLimit {
				return
			}
			marker = page[len(page)-1].Key()
		}
	}
}

func (c *Client) page(ctx context.Context, key, marker string, shallow bool) ([]scope.Entry, int64, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(c.pageLimit))
	q.Set("prefix", scope.DirPrefix(key))
	if shallow {
		q.Set("delimiter", pathx.Delimiter)
	}
	if marker != "" {
		q.Set("marker", marker)
	}

	c.log.Debug(ctx, "listing page", "prefix", key, "marker", marker)
	resp, err := c.do(ctx, call{method: http.MethodGet, key: key, listing: true, query: q})
	if err != nil {
		return nil, 0, err
	}
	defer drain(resp)

	var page []scope.Entry
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return nil, 0, fmt.Errorf("swift: decode listing: %w", err)
		}
	}

	total, _ := strconv.ParseInt(resp.Header.Get("X-Container-Object-Count"), 10, 64)
	return page, total, nil
}
