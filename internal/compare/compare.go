// Package compare drives image comparisons for a single pair of files and
// for whole directories.
package compare

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"exediff/internal/config"
	"exediff/internal/diff"
	"exediff/internal/dirscan"
	"exediff/internal/image"
	"exediff/internal/metrics"
	"exediff/internal/report"
)

var ErrNotDir = errors.New("not a folder")

// DirError reports a batch root that is missing or not a directory.
type DirError struct {
	Path string
	Err  error
}

func (e *DirError) Error() string {
	if errors.Is(e.Err, ErrNotDir) {
		return "not a folder: " + e.Path
	}
	return e.Err.Error()
}

func (e *DirError) Unwrap() error { return e.Err }

type Comparator struct {
	cfg    config.Config
	loader image.Loader
	out    io.Writer
	log    zerolog.Logger
	stats  *metrics.Stats
	onPair func()
}

type Option func(*Comparator)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Comparator) { c.log = l }
}

// WithStats records every pair's outcome into s.
func WithStats(s *metrics.Stats) Option {
	return func(c *Comparator) { c.stats = s }
}

// WithPairHook calls fn after each pair has been reported.
func WithPairHook(fn func()) Option {
	return func(c *Comparator) { c.onPair = fn }
}

func New(cfg config.Config, loader image.Loader, out io.Writer, opts ...Option) *Comparator {
	c := &Comparator{cfg: cfg, loader: loader, out: out, log: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Files compares one pair of images.
func (c *Comparator) Files(path1, path2 string) diff.Result {
	return c.pair(path1, path2, false)
}

// pair loads both images, reports on them and releases them. The report is
// buffered so one pair's output is never split by another's.
func (c *Comparator) pair(path1, path2 string, batch bool) (res diff.Result) {
	var buf bytes.Buffer
	defer func() {
		if _, err := c.out.Write(buf.Bytes()); err != nil {
			c.log.Warn().Err(err).Msg("write report")
		}
		if c.stats != nil {
			c.stats.Record(res)
		}
		if c.onPair != nil {
			c.onPair()
		}
	}()

	c.log.Debug().Str("file1", path1).Str("file2", path2).Msg("compare pair")

	img1, err := c.loader.Load(path1)
	if err != nil {
		c.loadFailed(path1, err)
		return diff.Result{LoadFailed: true}
	}
	img2, err := c.loader.Load(path2)
	if err != nil {
		c.loadFailed(path2, err)
		return diff.Result{LoadFailed: true}
	}

	if c.cfg.Dump() {
		for _, img := range []*image.Image{img1, img2} {
			if err := report.Dump(&buf, img); err != nil {
				c.log.Warn().Err(err).Str("path", img.Name).Msg("dump image")
			}
		}
	}

	rep := report.New(&buf, c.cfg)
	if batch {
		rep.Banner(img1.Name, img2.Name)
	}
	return diff.Images(rep, c.cfg, img1, img2)
}

func (c *Comparator) loadFailed(path string, err error) {
	ev := c.log.Error().Str("path", path)
	var le *image.LoadError
	if errors.As(err, &le) {
		if errno, ok := le.Errno(); ok {
			ev = ev.Int("errno", int(errno))
		}
	}
	ev.Err(err).Msg("cannot load image")
}

// Dirs compares every file in dir2 matching pattern against the file of the
// same name in dir1. A name missing from dir1 is an ordinary load failure
// for that pair. The returned code is the union of all pair codes; an error
// is returned only when a root is unusable or dir2 cannot be listed.
func (c *Comparator) Dirs(dir1, dir2, pattern string) (diff.Code, error) {
	for _, d := range []string{dir1, dir2} {
		if err := validateDir(d); err != nil {
			return diff.Identical, err
		}
	}
	if !dirscan.ValidPattern(pattern) {
		return diff.Identical, errors.Wrapf(filepath.ErrBadPattern, "%q", pattern)
	}

	c.log.Info().Str("dir1", dir1).Str("dir2", dir2).Str("pattern", pattern).Msg("batch start")

	code := diff.Identical
	for e, err := range dirscan.Matching(dir2, pattern) {
		if err != nil {
			return code, &DirError{Path: dir2, Err: err}
		}
		if e.IsDir {
			continue
		}
		res := c.pair(filepath.Join(dir1, e.Name), filepath.Join(dir2, e.Name), true)
		code = code.Union(res.Code())
	}

	c.log.Info().Int("code", int(code)).Msg("batch done")
	return code, nil
}

func validateDir(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return &DirError{Path: path, Err: errors.WithStack(err)}
	}
	if !st.IsDir() {
		return &DirError{Path: path, Err: errors.WithStack(ErrNotDir)}
	}
	return nil
}
