package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"exediff/internal/diff"
	"exediff/internal/image"
)

const bytesPerRow = 16

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func dumpFields[T any](d *dumper, rec T, table []diff.Field[T]) {
	for _, f := range table {
		d.printf("%24s : %s\n", f.Name, f.Format(rec))
	}
}

// Dump writes every header field of img and a hex listing of each section's
// compared raw data. Skip predicates do not apply here.
func Dump(w io.Writer, img *image.Image) error {
	d := &dumper{w: w}
	sum := sha256.Sum256(img.Bytes())

	d.printf("===== dump of \"%s\" =====\n", img.Name)
	d.printf("%24s : %08X\n", "Signature", img.Signature)
	d.printf("%24s : %s\n", "SHA256", strings.ToUpper(hex.EncodeToString(sum[:])))

	d.printf("----- FileHeader -----\n")
	dumpFields(d, &img.FileHeader, diff.FileHeaderFields)

	opt := &img.OptionalHeader
	d.printf("----- OptionalHeader -----\n")
	dumpFields(d, opt, diff.OptionalHeaderFields)

	d.printf("----- Rva, Size -----\n")
	for i, dd := range opt.DataDirectory {
		d.printf("%20s[%2d] : %08X, %08X\n", "DataDirectory", i, dd.VirtualAddress, dd.Size)
	}

	base := "%08X"
	if opt.Is64() {
		base = "%016X"
	}
	for i := range img.Sections {
		sec := &img.Sections[i]
		d.printf("----- Section Header[%d] -----\n", i+1)
		dumpFields(d, sec, diff.SectionHeaderFields)

		d.printf("----- Section RawData[%d] (BaseAddress:"+base+", Size:%d bytes) -----\n",
			i+1, opt.ImageBase+uint64(sec.VirtualAddress), sec.VirtualSize)
		dumpRaw(d, sec.NameString(), img.RawData(i))
	}
	return d.err
}

// dumpRaw prints 16 bytes per row with a '-' between the two 8-byte halves
// and a printable projection on the right.
func dumpRaw(d *dumper, name string, p []byte) {
	for off := 0; off < len(p); off += bytesPerRow {
		row := p[off:min(off+bytesPerRow, len(p))]
		var hx, asc strings.Builder
		for i, c := range row {
			sep := byte(' ')
			if i == 7 {
				sep = '-'
			}
			fmt.Fprintf(&hx, "%02X%c", c, sep)
			asc.WriteByte(Printable(c))
		}
		d.printf("%14s +%08X : %-48s:%-16s\n", name, off, hx.String(), asc.String())
	}
}
