// Package config holds the run-wide comparison settings. A Config is built
// once at startup and passed by value; it has no setters.
package config

const DefaultDiffCap = 4

type Options struct {
	IgnoreTimestamp bool
	Dump            bool
	Quiet           bool
	DiffCap         int
	Progress        bool
	Stats           bool
	LogLevel        string
}

type Config struct {
	ignoreTimestamp bool
	dump            bool
	quiet           bool
	diffCap         int
	progress        bool
	stats           bool
	logLevel        string
}

func New(o Options) Config {
	if o.DiffCap < 0 {
		o.DiffCap = 0
	}
	if o.LogLevel == "" {
		o.LogLevel = "warn"
	}
	return Config{
		ignoreTimestamp: o.IgnoreTimestamp,
		dump:            o.Dump,
		quiet:           o.Quiet,
		diffCap:         o.DiffCap,
		progress:        o.Progress,
		stats:           o.Stats,
		logLevel:        o.LogLevel,
	}
}

// Default matches running with no options.
func Default() Config {
	return New(Options{DiffCap: DefaultDiffCap})
}

func (c Config) IgnoreTimestamp() bool { return c.ignoreTimestamp }
func (c Config) Dump() bool            { return c.dump }
func (c Config) Quiet() bool           { return c.quiet }

// DiffCap is the number of differing byte positions reported per section
// before the rest of the section is skipped.
func (c Config) DiffCap() int { return c.diffCap }

func (c Config) Progress() bool   { return c.progress }
func (c Config) Stats() bool      { return c.stats }
func (c Config) LogLevel() string { return c.logLevel }
