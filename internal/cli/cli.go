// Package cli parses the exediff command line and runs the selected mode.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"exediff/internal/compare"
	"exediff/internal/config"
	"exediff/internal/diff"
	"exediff/internal/image"
	"exediff/internal/logging"
	"exediff/internal/metrics"
	"exediff/internal/progress"
)

const (
	maxPath    = 4096
	maxPattern = 255
)

const usageLine = "usage: exediff [-h?tdq] [-n#] (FILE1 FILE2 | DIR1 DIR2 [WILD] | DIR1 DIR2\\WILD)\n"

const usageArgs = `  FILE1/2  compare exe/dll file
  DIR1/2   compare folder
  WILD     compare files pattern in DIR2. default is *
`

// UsageError is a malformed command line.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

type flags struct {
	help      bool
	usage     bool
	ignoreTS  bool
	dump      bool
	quiet     bool
	diffCap   int
	progress  bool
	stats     bool
	logLevel  string
	positions []string
}

func newFlagSet(f *flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("exediff", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	// options end at the first path
	fs.SetInterspersed(false)

	fs.BoolVarP(&f.help, "help", "h", false, "this help")
	fs.BoolVarP(&f.usage, "usage", "?", false, "this help")
	_ = fs.MarkHidden("usage")
	fs.BoolVarP(&f.ignoreTS, "ignore-timestamp", "t", false, "ignore time stamp")
	fs.BoolVarP(&f.dump, "dump", "d", false, "dump file image")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "quiet mode")
	fs.IntVarP(&f.diffCap, "snip", "n", config.DefaultDiffCap, "max length of differ rawdatas")
	fs.BoolVar(&f.progress, "progress", false, "show batch progress on a terminal")
	fs.BoolVar(&f.stats, "stats", false, "print batch counters to stderr")
	fs.StringVar(&f.logLevel, "log-level", "warn", "diagnostics level (debug, info, warn, error)")
	return fs
}

// parse returns the flag values, or a UsageError. Help is not an error.
func parse(args []string) (flags, *pflag.FlagSet, error) {
	var f flags
	fs := newFlagSet(&f)
	if err := fs.Parse(longHelp(args)); err != nil {
		return f, fs, usagef("%v", err)
	}
	f.positions = fs.Args()
	if f.help || f.usage {
		return f, fs, nil
	}
	if f.diffCap < 0 {
		return f, fs, usagef("-n must not be negative: %d", f.diffCap)
	}
	if _, ok := logging.ParseLevel(f.logLevel); !ok {
		return f, fs, usagef("unknown log level: %s", f.logLevel)
	}
	if len(f.positions) < 2 {
		return f, fs, usagef("please specify FILE or DIR")
	}
	if len(f.positions) > 3 {
		return f, fs, usagef("too many arguments: %s", strings.Join(f.positions[3:], " "))
	}
	for _, p := range f.positions {
		if len(p) >= maxPath {
			return f, fs, usagef("too long pathname: %s", p)
		}
	}
	return f, fs, nil
}

// longHelp accepts the single-dash -help spelling.
func longHelp(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i, a := range out {
		if !strings.HasPrefix(a, "-") || a == "--" {
			break
		}
		if a == "-help" {
			out[i] = "--help"
		}
	}
	return out
}

func (f flags) config() config.Config {
	return config.New(config.Options{
		IgnoreTimestamp: f.ignoreTS,
		Dump:            f.dump,
		Quiet:           f.quiet,
		DiffCap:         f.diffCap,
		Progress:        f.progress,
		Stats:           f.stats,
		LogLevel:        f.logLevel,
	})
}

// target is what the positional arguments resolve to.
type target struct {
	single     bool
	file1      string
	file2      string
	dir1, dir2 string
	pattern    string
}

func resolve(args []string) (target, error) {
	if len(args) == 2 && isRegularFile(args[0]) {
		return target{single: true, file1: args[0], file2: args[1]}, nil
	}

	t := target{dir1: args[0], dir2: args[1], pattern: "*"}
	if len(args) == 3 {
		t.pattern = args[2]
	} else if strings.ContainsAny(t.dir2, "*?") {
		t.dir2, t.pattern = splitWild(t.dir2)
	}
	if len(t.pattern) >= maxPattern {
		return t, usagef("too long pattern: %s", t.pattern)
	}
	return t, nil
}

// splitWild splits DIR\WILD or DIR/WILD at the last separator.
func splitWild(p string) (dir, pattern string) {
	i := strings.LastIndexAny(p, `/\`)
	switch {
	case i < 0:
		return ".", p
	case i == 0:
		return p[:1], p[1:]
	}
	return p[:i], p[i+1:]
}

func isRegularFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}

// Run executes exediff with args (without the program name) and returns
// the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	f, fs, err := parse(args)
	if err != nil {
		fmt.Fprint(stderr, usageLine)
		fmt.Fprintln(stderr, err)
		return 1
	}
	if f.help || f.usage {
		fmt.Fprint(stderr, usageLine)
		fmt.Fprint(stderr, fs.FlagUsages())
		fmt.Fprint(stderr, usageArgs)
		return 1
	}

	t, err := resolve(f.positions)
	if err != nil {
		fmt.Fprint(stderr, usageLine)
		fmt.Fprintln(stderr, err)
		return 1
	}

	cfg := f.config()
	log := logging.New(logging.Config{Level: cfg.LogLevel(), Pretty: true, Output: stderr})

	if t.single {
		c := compare.New(cfg, image.FileLoader{}, stdout, compare.WithLogger(log))
		return int(c.Files(t.file1, t.file2).Code())
	}

	stats := &metrics.Stats{}
	opts := []compare.Option{compare.WithLogger(log), compare.WithStats(stats)}
	stats.Start()
	var bar *progress.Bar
	if cfg.Progress() && logging.IsTerminal(stderr) {
		bar = progress.New(stderr, func() (int64, int64, int64, int64, int64) {
			s := stats.Snapshot()
			return s.Pairs, s.Identical, s.Differ, s.LoadFailures, s.BytesCompared
		})
		opts = append(opts, compare.WithPairHook(bar.Pair))
	}

	code, err := compare.New(cfg, image.FileLoader{}, stdout, opts...).Dirs(t.dir1, t.dir2, t.pattern)
	if bar != nil {
		bar.Close()
	}
	stats.Stop()
	if err != nil {
		var de *compare.DirError
		if errors.As(err, &de) {
			fmt.Fprint(stderr, usageLine)
		}
		fmt.Fprintln(stderr, err)
		log.Debug().Err(err).Msg("batch aborted")
		return int(code.Union(diff.Differ))
	}
	if cfg.Stats() {
		metrics.Print(stderr, stats)
	}
	return int(code)
}
