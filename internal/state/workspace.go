package state

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/logging"
	"github.com/dmitrijs2005/swiftvfs/internal/models"
	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
	"github.com/dmitrijs2005/swiftvfs/internal/swift"
)

// Workspace runs storage operations and mirrors their outcome into a
// State, the scope's file inventory and, optionally, a Store.
type Workspace struct {
	state  *State
	client *swift.Client
	inv    *swift.Inventory
	store  *Store
	log    logging.Logger
}

type Option func(*Workspace)

// WithStore caches file records in s.
func WithStore(s *Store) Option {
	return func(w *Workspace) { w.store = s }
}

func WithLogger(l logging.Logger) Option {
	return func(w *Workspace) { w.log = logging.OrNop(l) }
}

// Open reads the scope's inventory once and seeds st with it. Cached
// records, when a Store is set, fill in sizes and types.
func Open(ctx context.Context, st *State, client *swift.Client, opts ...Option) (*Workspace, error) {
	w := &Workspace{state: st, client: client, log: logging.Nop()}
	for _, o := range opts {
		o(w)
	}

	inv, err := swift.LoadInventory(ctx, client)
	if err != nil {
		return nil, err
	}
	w.inv = inv

	cached := map[string]models.RemoteFile{}
	if w.store != nil {
		fs, err := w.store.LoadFiles(ctx, client.Prefix())
		if err != nil {
			w.log.Warn(ctx, "file cache unavailable", "error", err)
		}
		for _, f := range fs {
			cached[f.RemotePath] = f
		}
	}

	var files []models.RemoteFile
	for _, p := range inv.Paths() {
		f, ok := cached[p]
		if !ok {
			f = models.RemoteFile{Name: pathx.Base(p), RemotePath: p}
		}
		f.Status = models.StatusSuccess
		files = append(files, f)
	}
	st.ResetFiles(files)
	return w, nil
}

// State returns the state w writes to.
func (w *Workspace) State() *State { return w.state }

// Client returns the storage client of w.
func (w *Workspace) Client() *swift.Client { return w.client }

// Refresh rebuilds the file collection from a recursive listing and
// rewrites the inventory to match.
func (w *Workspace) Refresh(ctx context.Context, progress swift.ProgressFunc) error {
	var (
		files []models.RemoteFile
		paths []string
	)
	for f, err := range w.client.DeepList(ctx, "", progress) {
		if err != nil {
			return err
		}
		if f.RemotePath == swift.InventoryPath {
			continue
		}
		files = append(files, f)
		paths = append(paths, f.RemotePath)
	}

	w.state.ResetFiles(files)
	if err := w.inv.Replace(ctx, paths); err != nil {
		return err
	}
	w.cache(ctx, func(s *Store) error { return s.SaveFiles(ctx, w.client.Prefix(), files) })
	return nil
}

// Upload stores r at path, tracking progress and outcome in the state. The
// path is cleaned the way the client cleans object keys.
func (w *Workspace) Upload(ctx context.Context, path string, r io.Reader, size int64, opts swift.UploadOptions) error {
	p, err := pathx.Clean(path)
	if err != nil {
		return err
	}
	w.state.PutFile(models.RemoteFile{
		Name:         pathx.Base(p),
		Type:         opts.ContentType,
		Size:         size,
		CreationDate: time.Now().UTC(),
		RemotePath:   p,
		Status:       models.StatusInProgress,
	})

	err = w.client.Upload(ctx, p, r, size, opts, func(done, _ int64) {
		w.state.UpdateFile(p, func(f *models.RemoteFile) { f.Loaded = done })
	})
	if err != nil {
		w.fail(p, err)
		return err
	}

	w.state.UpdateFile(p, func(f *models.RemoteFile) {
		f.Status = models.StatusSuccess
		f.Error = models.ErrorNone
		f.Loaded = size
	})
	if err := w.inv.Add(ctx, p); err != nil {
		return err
	}
	if f, ok := w.state.File(p); ok {
		w.cache(ctx, func(s *Store) error { return s.putFile(ctx, w.client.Prefix(), f) })
	}
	return nil
}

// Delete removes path from storage and from the state. A file that is
// already gone from storage is still removed locally.
func (w *Workspace) Delete(ctx context.Context, path string) error {
	p, err := pathx.Clean(path)
	if err != nil {
		return err
	}
	if err := w.client.Delete(ctx, p); err != nil && !swift.IsNotFound(err) {
		w.fail(p, err)
		return err
	}

	w.state.RemoveFile(p)
	if err := w.inv.Remove(ctx, p); err != nil {
		return err
	}
	w.cache(ctx, func(s *Store) error { return s.deleteFile(ctx, w.client.Prefix(), p) })
	return nil
}

func (w *Workspace) fail(p string, err error) {
	w.state.UpdateFile(p, func(f *models.RemoteFile) {
		f.Status = models.StatusError
		f.Error = swift.ErrorCode(err)
	})
}

// cache applies fn to the store. Cache failures are logged, not returned.
func (w *Workspace) cache(ctx context.Context, fn func(s *Store) error) {
	if w.store == nil {
		return
	}
	if err := fn(w.store); err != nil {
		w.log.Warn(ctx, "file cache update failed", "error", err)
	}
}
