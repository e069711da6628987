package diff

// Code is a per-pair outcome. Codes of a batch fold together with Union.
type Code int

const (
	Identical  Code = 0
	Differ     Code = 1
	LoadFailed Code = 2
)

// Union combines two codes as a bit set, so a batch with both differing and
// unloadable pairs reports Differ|LoadFailed.
func (c Code) Union(o Code) Code { return c | o }

type Mismatch struct {
	Prompt string
	Field  string
	Value1 string
	Value2 string
}

// Absent marks a byte position past the end of one side's data.
const Absent = -1

type RawDiffEntry struct {
	Offset uint64
	Byte1  int
	Byte2  int
}

type RawReport struct {
	Entries   []RawDiffEntry
	Truncated bool
}

func (r RawReport) Differ() bool {
	return len(r.Entries) > 0 || r.Truncated
}

type Result struct {
	// Differences counts header field mismatches plus sections present on
	// one side only.
	Differences int
	// RawSections counts compared sections whose raw data differ.
	RawSections int
	LoadFailed  bool

	Sections      int
	BytesCompared uint64
}

func (r Result) Differ() bool {
	return r.Differences > 0 || r.RawSections > 0
}

func (r Result) Code() Code {
	code := Identical
	if r.Differ() {
		code = code.Union(Differ)
	}
	if r.LoadFailed {
		code = code.Union(LoadFailed)
	}
	return code
}

// Sink receives findings as they are produced. Implementations decide what
// is shown; the differs count everything regardless.
type Sink interface {
	Mismatch(m Mismatch)
	SectionOnly(section, module string)
	RawHeader(prompt string)
	RawEntry(e RawDiffEntry)
	RawSnip(limit int)
	Summary(name1, name2 string, differ bool)
}

type discard struct{}

func (discard) Mismatch(Mismatch) {}
func (discard) SectionOnly(string, string) {}
func (discard) RawHeader(string) {}
func (discard) RawEntry(RawDiffEntry) {}
func (discard) RawSnip(int) {}
func (discard) Summary(string, string, bool) {}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}
