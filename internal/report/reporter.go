package report

import (
	"fmt"
	"io"

	"exediff/internal/config"
	"exediff/internal/diff"
)

// Reporter writes comparison findings as text. In quiet mode only the
// "only in" notices and the closing summary line are written.
type Reporter struct {
	w     io.Writer
	quiet bool
	err   error
}

func New(w io.Writer, cfg config.Config) *Reporter {
	return &Reporter{w: w, quiet: cfg.Quiet()}
}

// Err returns the first write error, if any.
func (r *Reporter) Err() error { return r.err }

func (r *Reporter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *Reporter) detailf(format string, args ...any) {
	if !r.quiet {
		r.printf(format, args...)
	}
}

// Banner opens one pair's report in batch mode.
func (r *Reporter) Banner(name1, name2 string) {
	r.detailf("===== compare \"%s\" and \"%s\" =====\n", name1, name2)
}

func (r *Reporter) Mismatch(m diff.Mismatch) {
	r.detailf("\n%s.%s:\n<%s\n>%s\n", m.Prompt, m.Field, m.Value1, m.Value2)
}

func (r *Reporter) SectionOnly(section, module string) {
	r.printf("%s section is only in \"%s\"\n", section, module)
}

func (r *Reporter) RawHeader(prompt string) {
	r.detailf("\n%s\n", prompt)
}

func (r *Reporter) RawEntry(e diff.RawDiffEntry) {
	r.detailf("+%08X: %s <=> %s\n", e.Offset, rawByte(e.Byte1), rawByte(e.Byte2))
}

func (r *Reporter) RawSnip(limit int) {
	r.detailf("\t<snip> differ more than %d bytes.\n", limit)
}

func (r *Reporter) Summary(name1, name2 string, differ bool) {
	if differ {
		r.printf("\"%s\" and \"%s\" differ\n", name1, name2)
		return
	}
	r.printf("\"%s\" and \"%s\" are identical\n", name1, name2)
}

func rawByte(c int) string {
	if c == diff.Absent {
		return "-----"
	}
	return fmt.Sprintf("%02X(%c)", c, Printable(byte(c)))
}

// Printable maps control and non-ASCII bytes to '.'.
func Printable(c byte) byte {
	if c < 0x20 || c > 0x7e {
		return '.'
	}
	return c
}
