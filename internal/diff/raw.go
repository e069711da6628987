package diff

import (
	"exediff/internal/config"
)

func byteAt(p []byte, i int) int {
	if i < len(p) {
		return int(p[i])
	}
	return Absent
}

// Raw compares two byte runs position by position. The header line is sent
// on the first difference only. Once more than cfg.DiffCap() positions
// differ, a snip notice is sent and the rest of the data is not examined.
func Raw(sink Sink, cfg config.Config, prompt string, p1, p2 []byte) RawReport {
	var (
		rep       RawReport
		differing int
		limit     = cfg.DiffCap()
	)
	for i := 0; i < len(p1) || i < len(p2); i++ {
		c1, c2 := byteAt(p1, i), byteAt(p2, i)
		if c1 == c2 {
			continue
		}
		if differing == 0 {
			sink.RawHeader(prompt)
		}
		differing++
		if differing > limit {
			rep.Truncated = true
			sink.RawSnip(limit)
			break
		}
		e := RawDiffEntry{Offset: uint64(i), Byte1: c1, Byte2: c2}
		rep.Entries = append(rep.Entries, e)
		sink.RawEntry(e)
	}
	return rep
}
