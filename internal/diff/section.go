package diff

import (
	"fmt"

	"exediff/internal/config"
	"exediff/internal/image"
)

// Sections pairs sections by table position. A section beyond the other
// image's count is reported once as present on one side and not compared
// further. Sections are never matched by name, so a reordered table shows
// up as a run of pairwise differences.
func Sections(sink Sink, cfg config.Config, img1, img2 *image.Image) Result {
	var res Result
	n1, n2 := len(img1.Sections), len(img2.Sections)
	for i := 0; i < max(n1, n2); i++ {
		if i >= n1 {
			sink.SectionOnly(img2.Sections[i].NameString(), img2.Name)
			res.Differences++
			continue
		}
		if i >= n2 {
			sink.SectionOnly(img1.Sections[i].NameString(), img1.Name)
			res.Differences++
			continue
		}

		s1, s2 := &img1.Sections[i], &img2.Sections[i]
		prompt := fmt.Sprintf("Section Header[%d]", i+1)
		res.Differences += len(Fields(sink, cfg, prompt, s1, s2, SectionHeaderFields))

		raw1, raw2 := img1.RawData(i), img2.RawData(i)
		prompt = fmt.Sprintf("Section RawData[%d] %s <=> %s:", i+1, s1.NameString(), s2.NameString())
		if Raw(sink, cfg, prompt, raw1, raw2).Differ() {
			res.RawSections++
		}
		res.Sections++
		res.BytesCompared += uint64(max(len(raw1), len(raw2)))
	}
	return res
}

// Images runs the full structural comparison of two loaded images and sends
// the closing summary to sink.
func Images(sink Sink, cfg config.Config, img1, img2 *image.Image) Result {
	headers := len(Fields(sink, cfg, "FileHeader", &img1.FileHeader, &img2.FileHeader, FileHeaderFields))
	headers += len(Fields(sink, cfg, "OptionalHeader", &img1.OptionalHeader, &img2.OptionalHeader, OptionalHeaderFields))

	res := Sections(sink, cfg, img1, img2)
	res.Differences += headers
	sink.Summary(img1.Name, img2.Name, res.Differ())
	return res
}
