package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/export"
	"github.com/dmitrijs2005/swiftvfs/internal/filex"
	"github.com/dmitrijs2005/swiftvfs/internal/models"
	"github.com/dmitrijs2005/swiftvfs/internal/state"
	"github.com/dmitrijs2005/swiftvfs/internal/swift"
)

func (a *App) ls(ctx context.Context, args []string) error {
	fs := a.flagSet("ls")
	id := addStorageIdentity(fs)
	deep := fs.Bool("deep", false, "list recursively")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) > 1 {
		return ErrUsage
	}
	var prefix string
	if len(rest) == 1 {
		prefix = rest[0]
	}

	c, _, err := a.storage(ctx, id)
	if err != nil {
		return err
	}
	progress := func(done, total int64) {
		a.log.Debug(ctx, "listing", "prefix", prefix, "done", done, "total", total)
	}

	if *deep {
		for f, err := range c.DeepList(ctx, prefix, progress) {
			if err != nil {
				return err
			}
			a.printFile(f)
		}
		return nil
	}
	for item, err := range c.List(ctx, prefix, progress) {
		if err != nil {
			return err
		}
		if item.IsDir() {
			fmt.Fprintf(a.out, "%10s  %-20s  %s/\n", "-", "", item.Path)
			continue
		}
		a.printFile(*item.File)
	}
	return nil
}

func (a *App) printFile(f models.RemoteFile) {
	var created string
	if !f.CreationDate.IsZero() {
		created = f.CreationDate.Local().Format(time.DateTime)
	}
	fmt.Fprintf(a.out, "%10s  %-20s  %s\n", humanSize(f.Size), created, f.RemotePath)
}

func (a *App) sync(ctx context.Context, args []string) error {
	fs := a.flagSet("sync")
	id := addStorageIdentity(fs)
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	ws, closeStore, err := a.workspace(ctx, id)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := ws.Refresh(ctx, nil); err != nil {
		return err
	}
	files := ws.State().Files()
	for _, f := range files {
		a.printFile(f)
	}
	a.log.Info(ctx, "scope synchronized", "prefix", ws.Client().Prefix(), "files", len(files))
	return nil
}

func (a *App) put(ctx context.Context, args []string) error {
	fs := a.flagSet("put")
	id := addStorageIdentity(fs)
	contentType := fs.String("type", "", "content type, default from the file extension")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return ErrUsage
	}
	local, remote := rest[0], rest[1]

	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	ws, closeStore, err := a.workspace(ctx, id)
	if err != nil {
		return err
	}
	defer closeStore()

	unsubscribe := ws.State().Subscribe(func(e state.Event) {
		if e.Kind == state.FileUpdated && e.File.Status == models.StatusInProgress {
			a.log.Debug(ctx, "uploading", "path", e.File.RemotePath, "done", e.File.Loaded, "total", e.File.Size)
		}
	})
	defer unsubscribe()

	ct := *contentType
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(local))
	}
	opts := swift.UploadOptions{ContentType: ct, InputName: filepath.Base(local)}
	if err := ws.Upload(ctx, remote, f, fi.Size(), opts); err != nil {
		return err
	}
	fmt.Fprintln(a.out, remote)
	return nil
}

func (a *App) rm(ctx context.Context, args []string) error {
	fs := a.flagSet("rm")
	id := addStorageIdentity(fs)
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return ErrUsage
	}

	ws, closeStore, err := a.workspace(ctx, id)
	if err != nil {
		return err
	}
	defer closeStore()

	var errs []error
	for _, p := range rest {
		if err := ws.Delete(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) zip(ctx context.Context, args []string) error {
	fs := a.flagSet("zip")
	id := addStorageIdentity(fs)
	out := fs.String("o", "swiftvfs.zip", "archive file")
	doExport := fs.Bool("export", false, "upload the archive to the configured S3 bucket")
	placeholders := fs.Bool("placeholders", false, "add an .error.txt entry for every failed file")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return ErrUsage
	}

	c, _, err := a.storage(ctx, id)
	if err != nil {
		return err
	}
	var opts []swift.ZipOption
	if *placeholders {
		opts = append(opts, swift.WithErrorPlaceholders())
	}

	archive, err := c.Zip(ctx, rest, opts...)
	var zerr *swift.ZipError
	if errors.As(err, &zerr) {
		failed := make([]string, 0, len(zerr.Errors))
		for p := range zerr.Errors {
			failed = append(failed, p)
		}
		sort.Strings(failed)
		for _, p := range failed {
			fmt.Fprintf(a.errOut, "skipped %s: %v\n", p, zerr.Errors[p])
		}
		if len(failed) == len(rest) {
			return err
		}
	} else if err != nil {
		return err
	}

	if *doExport {
		res, err := export.NewS3Exporter(a.cfg.Export(), a.log).Export(ctx, filepath.Base(*out), archive)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, res.URL)
		return nil
	}

	if err := filex.WriteFile(*out, archive, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(a.out, *out)
	return nil
}
