// Package dirscan lists directory entries lazily.
package dirscan

import (
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const batchSize = 64

type Entry struct {
	Name  string
	IsDir bool
}

type handle interface {
	ReadDir(n int) ([]os.DirEntry, error)
	Close() error
}

var openDir = func(name string) (handle, error) {
	return os.Open(name) // #nosec G304
}

// ValidPattern reports whether pattern is well-formed for Matching.
func ValidPattern(pattern string) bool {
	_, err := filepath.Match(pattern, "")
	return err == nil
}

// Matching yields the entries of dir whose base name matches pattern, in
// the order the directory returns them. The directory handle is held only
// while the sequence is being ranged over and is closed on every exit,
// including an early break by the caller.
func Matching(dir, pattern string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		h, err := openDir(dir)
		if err != nil {
			yield(Entry{}, errors.WithStack(err))
			return
		}
		defer func() {
			_ = h.Close()
		}()

		for {
			batch, rerr := h.ReadDir(batchSize)
			for _, de := range batch {
				ok, err := filepath.Match(pattern, de.Name())
				if err != nil {
					yield(Entry{}, errors.Wrapf(err, "pattern %q", pattern))
					return
				}
				if !ok {
					continue
				}
				if !yield(Entry{Name: de.Name(), IsDir: isDir(dir, de)}, nil) {
					return
				}
			}
			if rerr == io.EOF {
				return
			}
			if rerr != nil {
				yield(Entry{}, errors.WithStack(rerr))
				return
			}
		}
	}
}

// isDir follows symlinks so a link to a directory is skipped like the
// directory itself.
func isDir(dir string, de os.DirEntry) bool {
	if de.Type()&os.ModeSymlink == 0 {
		return de.IsDir()
	}
	st, err := os.Stat(filepath.Join(dir, de.Name()))
	return err == nil && st.IsDir()
}
