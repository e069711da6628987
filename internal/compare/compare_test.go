package compare

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exediff/internal/config"
	"exediff/internal/diff"
	"exediff/internal/image"
	"exediff/internal/image/imagetest"
	"exediff/internal/metrics"
)

func differing() imagetest.Builder {
	b := imagetest.Default().Clone()
	b.Sections[0].Data[10] ^= 0xff
	return b
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	a := imagetest.Default().Write(t, dir, "a.exe")
	same := imagetest.Default().Write(t, dir, "same.exe")
	other := differing().Write(t, dir, "other.exe")

	tests := []struct {
		name     string
		p1, p2   string
		wantCode diff.Code
		wantOut  string
	}{
		{"identical", a, same, diff.Identical, "are identical"},
		{"differ", a, other, diff.Differ, "differ"},
		{"missing second", a, filepath.Join(dir, "nope.exe"), diff.LoadFailed, ""},
		{"missing first", filepath.Join(dir, "nope.exe"), a, diff.LoadFailed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := New(config.Default(), image.FileLoader{}, &out)
			res := c.Files(tt.p1, tt.p2)
			assert.Equal(t, tt.wantCode, res.Code())
			if tt.wantOut == "" {
				assert.Empty(t, out.String())
				return
			}
			assert.Contains(t, out.String(), tt.wantOut)
			assert.NotContains(t, out.String(), "=====")
		})
	}
}

func TestFiles_LoadFailureLogged(t *testing.T) {
	var out, logs bytes.Buffer
	missing := filepath.Join(t.TempDir(), "gone.dll")
	c := New(config.Default(), image.FileLoader{}, &out, WithLogger(zerolog.New(&logs)))

	res := c.Files(missing, missing)
	require.True(t, res.LoadFailed)
	assert.Contains(t, logs.String(), `"level":"error"`)
	assert.Contains(t, logs.String(), missing)
	assert.Contains(t, logs.String(), `"errno":`)
}

func TestFiles_Dump(t *testing.T) {
	dir := t.TempDir()
	a := imagetest.Default().Write(t, dir, "a.exe")
	b := imagetest.Default().Write(t, dir, "b.exe")

	var out bytes.Buffer
	c := New(config.New(config.Options{Dump: true, DiffCap: 4}), image.FileLoader{}, &out)
	c.Files(a, b)

	s := out.String()
	assert.Equal(t, 2, strings.Count(s, "Section RawData[1]"))
	assert.True(t, strings.HasSuffix(s, "are identical\n"))
}

func batchDirs(t *testing.T) (string, string) {
	t.Helper()
	d1, d2 := t.TempDir(), t.TempDir()

	imagetest.Default().Write(t, d1, "same.dll")
	imagetest.Default().Write(t, d2, "same.dll")
	imagetest.Default().Write(t, d1, "changed.dll")
	differing().Write(t, d2, "changed.dll")
	// broken in dir1, so the pair is a load failure
	require.NoError(t, os.WriteFile(filepath.Join(d1, "broken.dll"), []byte("MZ"), 0o600))
	imagetest.Default().Write(t, d2, "broken.dll")
	// not matched by *.dll
	imagetest.Default().Write(t, d2, "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(d2, "sub.dll"), 0o755))
	return d1, d2
}

func TestDirs(t *testing.T) {
	d1, d2 := batchDirs(t)

	var out bytes.Buffer
	st := &metrics.Stats{}
	hooks := 0
	c := New(config.Default(), image.FileLoader{}, &out,
		WithStats(st), WithPairHook(func() { hooks++ }))

	code, err := c.Dirs(d1, d2, "*.dll")
	require.NoError(t, err)
	assert.Equal(t, diff.Differ|diff.LoadFailed, code)

	s := out.String()
	assert.Equal(t, 2, strings.Count(s, "===== compare"))
	assert.Contains(t, s, "same.dll\" are identical")
	assert.Contains(t, s, "changed.dll\" differ")
	assert.NotContains(t, s, "notes.txt")
	assert.NotContains(t, s, "sub.dll")

	snap := st.Snapshot()
	assert.Equal(t, int64(3), snap.Pairs)
	assert.Equal(t, int64(1), snap.Identical)
	assert.Equal(t, int64(1), snap.Differ)
	assert.Equal(t, int64(1), snap.LoadFailures)
	assert.Equal(t, 3, hooks)
}

func TestDirs_MissingCounterpart(t *testing.T) {
	d1, d2 := t.TempDir(), t.TempDir()
	imagetest.Default().Write(t, d2, "only.exe")

	var out bytes.Buffer
	c := New(config.Default(), image.FileLoader{}, &out)
	code, err := c.Dirs(d1, d2, "*")
	require.NoError(t, err)
	assert.Equal(t, diff.LoadFailed, code)
	assert.Empty(t, out.String())
}

func TestDirs_EmptyMatch(t *testing.T) {
	d1, d2 := t.TempDir(), t.TempDir()
	var out bytes.Buffer
	code, err := New(config.Default(), image.FileLoader{}, &out).Dirs(d1, d2, "*.sys")
	require.NoError(t, err)
	assert.Equal(t, diff.Identical, code)
}

func TestDirs_Quiet(t *testing.T) {
	d1, d2 := batchDirs(t)

	var out bytes.Buffer
	cfg := config.New(config.Options{Quiet: true, DiffCap: 4})
	_, err := New(cfg, image.FileLoader{}, &out).Dirs(d1, d2, "*.dll")
	require.NoError(t, err)

	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		assert.Regexp(t, `^".*" and ".*" (differ|are identical)$`, line)
	}
}

func TestDirs_BadRoot(t *testing.T) {
	dir := t.TempDir()
	file := imagetest.Default().Write(t, dir, "a.exe")

	tests := []struct {
		name       string
		dir1, dir2 string
		wantPath   string
		wantErr    error
	}{
		{"missing first", filepath.Join(dir, "none"), dir, filepath.Join(dir, "none"), syscall.ENOENT},
		{"missing second", dir, filepath.Join(dir, "none"), filepath.Join(dir, "none"), syscall.ENOENT},
		{"file root", dir, file, file, ErrNotDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := New(config.Default(), image.FileLoader{}, &out).Dirs(tt.dir1, tt.dir2, "*")
			var de *DirError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.wantPath, de.Path)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, out.String())
		})
	}
}
