package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exediff/internal/config"
	"exediff/internal/image"
	"exediff/internal/image/imagetest"
)

type recorder struct {
	mismatches []Mismatch
	onlyIn     []string
	headers    []string
	entries    []RawDiffEntry
	snips      []int
	summaries  []bool
}

func (r *recorder) Mismatch(m Mismatch)                { r.mismatches = append(r.mismatches, m) }
func (r *recorder) SectionOnly(section, module string) { r.onlyIn = append(r.onlyIn, section+"@"+module) }
func (r *recorder) RawHeader(prompt string)            { r.headers = append(r.headers, prompt) }
func (r *recorder) RawEntry(e RawDiffEntry)            { r.entries = append(r.entries, e) }
func (r *recorder) RawSnip(limit int)                  { r.snips = append(r.snips, limit) }
func (r *recorder) Summary(_, _ string, differ bool)   { r.summaries = append(r.summaries, differ) }

func parse(t *testing.T, name string, b imagetest.Builder) *image.Image {
	t.Helper()
	img, err := image.Parse(name, b.Bytes())
	require.NoError(t, err)
	return img
}

func capCfg(n int) config.Config {
	return config.New(config.Options{DiffCap: n})
}

func TestFields_FileHeader(t *testing.T) {
	base := imagetest.Default()
	stamped := base.Clone()
	stamped.TimeDateStamp++
	img1, img2 := parse(t, "a", base), parse(t, "b", stamped)

	tests := []struct {
		name string
		cfg  config.Config
		want int
	}{
		{"timestamp compared", config.Default(), 1},
		{"timestamp ignored", config.New(config.Options{IgnoreTimestamp: true, DiffCap: 4}), 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			got := Fields(rec, tt.cfg, "FileHeader", &img1.FileHeader, &img2.FileHeader, FileHeaderFields)
			assert.Len(t, got, tt.want)
			assert.Equal(t, got, rec.mismatches)
		})
	}

	got := Fields(Discard, config.Default(), "FileHeader", &img1.FileHeader, &img2.FileHeader, FileHeaderFields)
	require.Len(t, got, 1)
	assert.Equal(t, Mismatch{
		Prompt: "FileHeader",
		Field:  "TimeDateStamp",
		Value1: "40E25A00(Wed Jun 30 06:13:20 2004)",
		Value2: "40E25A01(Wed Jun 30 06:13:21 2004)",
	}, got[0])
}

func TestFields_VersionAndWidth(t *testing.T) {
	a := image.OptionalHeader{Magic: image.Magic64, LinkerVersion: image.Version{Major: 14, Minor: 29}, ImageBase: 0x140000000}
	b := a
	b.LinkerVersion.Minor = 30
	b.ImageBase = 0x180000000

	got := Fields(Discard, config.Default(), "OptionalHeader", &a, &b, OptionalHeaderFields)
	require.Len(t, got, 2)
	assert.Equal(t, Mismatch{"OptionalHeader", "LinkerVersion", "14.29", "14.30"}, got[0])
	assert.Equal(t, Mismatch{"OptionalHeader", "ImageBase", "0000000140000000", "0000000180000000"}, got[1])
}

func TestFields_SkippedFieldNeverReported(t *testing.T) {
	table := []Field[*image.FileHeader]{
		Word("NumberOfSections", func(h *image.FileHeader) uint16 { return h.NumberOfSections }).
			SkipIf(func(config.Config) bool { return true }),
	}
	a, b := image.FileHeader{NumberOfSections: 1}, image.FileHeader{NumberOfSections: 2}
	rec := &recorder{}
	assert.Empty(t, Fields(rec, config.Default(), "FileHeader", &a, &b, table))
	assert.Empty(t, rec.mismatches)
}

func TestRaw_TableDriven(t *testing.T) {
	tests := []struct {
		name      string
		cap       int
		p1, p2    []byte
		want      []RawDiffEntry
		truncated bool
	}{
		{
			name: "identical",
			cap:  4,
			p1:   []byte("abcdef"),
			p2:   []byte("abcdef"),
		},
		{
			name: "one byte",
			cap:  4,
			p1:   []byte("abcdef"),
			p2:   []byte("abXdef"),
			want: []RawDiffEntry{{Offset: 2, Byte1: 'c', Byte2: 'X'}},
		},
		{
			name: "second side shorter",
			cap:  4,
			p1:   []byte{1, 2, 3},
			p2:   []byte{1},
			want: []RawDiffEntry{{1, 2, Absent}, {2, 3, Absent}},
		},
		{
			name: "first side empty",
			cap:  4,
			p1:   nil,
			p2:   []byte{0},
			want: []RawDiffEntry{{0, Absent, 0}},
		},
		{
			name:      "capped",
			cap:       2,
			p1:        []byte{0, 0, 0, 0, 0},
			p2:        []byte{1, 1, 1, 1, 1},
			want:      []RawDiffEntry{{0, 0, 1}, {1, 0, 1}},
			truncated: true,
		},
		{
			name: "exactly at cap",
			cap:  2,
			p1:   []byte{0, 0},
			p2:   []byte{1, 1},
			want: []RawDiffEntry{{0, 0, 1}, {1, 0, 1}},
		},
		{
			name:      "zero cap snips at first difference",
			cap:       0,
			p1:        []byte{0},
			p2:        []byte{1},
			truncated: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			rep := Raw(rec, capCfg(tt.cap), "prompt", tt.p1, tt.p2)

			assert.Equal(t, tt.want, rep.Entries)
			assert.Equal(t, tt.want, rec.entries)
			assert.Equal(t, tt.truncated, rep.Truncated)
			assert.Equal(t, len(tt.want) > 0 || tt.truncated, rep.Differ())

			if rep.Differ() {
				assert.Equal(t, []string{"prompt"}, rec.headers)
			} else {
				assert.Empty(t, rec.headers)
			}
			if tt.truncated {
				assert.Equal(t, []int{tt.cap}, rec.snips)
			} else {
				assert.Empty(t, rec.snips)
			}
		})
	}
}

func TestImages_IdenticalAndOneByte(t *testing.T) {
	base := imagetest.Default()
	changed := base.Clone()
	changed.Sections[1].Data[5] ^= 0xff

	rec := &recorder{}
	res := Images(rec, config.Default(), parse(t, "a", base), parse(t, "b", base))
	assert.Equal(t, Identical, res.Code())
	assert.Zero(t, res.Differences)
	assert.Equal(t, 2, res.Sections)
	assert.Equal(t, []bool{false}, rec.summaries)

	rec = &recorder{}
	res = Images(rec, config.Default(), parse(t, "a", base), parse(t, "b", changed))
	assert.Equal(t, Differ, res.Code())
	assert.Zero(t, res.Differences)
	assert.Equal(t, 1, res.RawSections)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, uint64(5), rec.entries[0].Offset)
	assert.Equal(t, []string{"Section RawData[2] .data <=> .data:"}, rec.headers)
	assert.Equal(t, []bool{true}, rec.summaries)
}

func TestImages_TimestampOnly(t *testing.T) {
	base := imagetest.Default()
	stamped := base.Clone()
	stamped.TimeDateStamp = 0x50000000

	res := Images(Discard, config.Default(), parse(t, "a", base), parse(t, "b", stamped))
	assert.Equal(t, 1, res.Differences)
	assert.Equal(t, Differ, res.Code())

	ignore := config.New(config.Options{IgnoreTimestamp: true, DiffCap: 4})
	res = Images(Discard, ignore, parse(t, "a", base), parse(t, "b", stamped))
	assert.Zero(t, res.Differences)
	assert.Equal(t, Identical, res.Code())
}

func TestSections_ExtraTrailingSection(t *testing.T) {
	base := imagetest.Default()
	extended := base.Clone()
	extended.Sections = append(extended.Sections, imagetest.Section{
		Name: ".reloc", Data: []byte{1, 2, 3, 4}, Characteristics: 0x42000040,
	})
	img1, img2 := parse(t, "one.exe", base), parse(t, "two.exe", extended)

	rec := &recorder{}
	res := Sections(rec, config.Default(), img1, img2)
	assert.Equal(t, []string{".reloc@two.exe"}, rec.onlyIn)
	assert.Equal(t, 1, res.Differences)
	assert.Equal(t, 2, res.Sections)
	assert.Empty(t, rec.headers)
	assert.Empty(t, rec.mismatches)

	rec = &recorder{}
	res = Sections(rec, config.Default(), img2, img1)
	assert.Equal(t, []string{".reloc@two.exe"}, rec.onlyIn)
	assert.Equal(t, 1, res.Differences)
}

func TestSections_ReorderedAreComparedByPosition(t *testing.T) {
	base := imagetest.Default()
	swapped := base.Clone()
	swapped.Sections[0], swapped.Sections[1] = swapped.Sections[1], swapped.Sections[0]

	rec := &recorder{}
	res := Sections(rec, config.Default(), parse(t, "a", base), parse(t, "b", swapped))
	assert.Empty(t, rec.onlyIn)
	assert.Equal(t, 2, res.RawSections)
	assert.Positive(t, res.Differences)
}

func TestCode_Union(t *testing.T) {
	codes := []Code{Identical, Differ, LoadFailed}
	agg := Identical
	for _, c := range codes {
		agg = agg.Union(c)
	}
	assert.Equal(t, Code(3), agg)
	assert.Equal(t, Differ, Differ.Union(Differ))
	assert.Equal(t, LoadFailed, Result{LoadFailed: true}.Code())
}
