// Package imagetest builds small but well-formed PE files for tests.
package imagetest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/lunixbochs/struc"

	"exediff/internal/image"
)

const (
	lfanew    = 0x40
	fileAlign = 0x200
	sectAlign = 0x1000
	numDirs   = image.MaxDataDirectories
)

type Section struct {
	Name            string
	Data            []byte
	VirtualSize     uint32 // defaults to len(Data)
	Characteristics uint32
}

type Builder struct {
	Machine         uint16
	TimeDateStamp   uint32
	Characteristics uint16
	PE64            bool
	ImageBase       uint64
	Subsystem       uint16
	LinkerMajor     uint8
	LinkerMinor     uint8
	Sections        []Section
}

// Default returns a PE32 console image with .text and .data sections.
func Default() Builder {
	return Builder{
		Machine:         0x14c,
		TimeDateStamp:   0x40e25a00,
		Characteristics: 0x0102,
		ImageBase:       0x400000,
		Subsystem:       3,
		LinkerMajor:     6,
		Sections: []Section{
			{Name: ".text", Data: bytes.Repeat([]byte{0x90, 0xc3, 'A', 0x00}, 64), Characteristics: 0x60000020},
			{Name: ".data", Data: []byte("hello, world\x00\x01\x02\x03"), Characteristics: 0xc0000040},
		},
	}
}

// Clone returns a deep copy so callers can mutate section data freely.
func (b Builder) Clone() Builder {
	out := b
	out.Sections = make([]Section, len(b.Sections))
	for i, s := range b.Sections {
		s.Data = append([]byte(nil), s.Data...)
		out.Sections[i] = s
	}
	return out
}

type optional32 struct {
	Magic               uint16
	LinkerMajor         uint8
	LinkerMinor         uint8
	SizeOfCode          uint32
	SizeOfInitData      uint32
	SizeOfUninitData    uint32
	AddressOfEntryPoint uint32
	BaseOfCode          uint32
	BaseOfData          uint32
	ImageBase           uint32
	SectionAlignment    uint32
	FileAlignment       uint32
	Versions            [6]uint16
	Win32VersionValue   uint32
	SizeOfImage         uint32
	SizeOfHeaders       uint32
	CheckSum            uint32
	Subsystem           uint16
	DllCharacteristics  uint16
	Sizes               [4]uint32
	LoaderFlags         uint32
	NumberOfRvaAndSizes uint32
	Dirs                [numDirs * 2]uint32
}

type optional64 struct {
	Magic               uint16
	LinkerMajor         uint8
	LinkerMinor         uint8
	SizeOfCode          uint32
	SizeOfInitData      uint32
	SizeOfUninitData    uint32
	AddressOfEntryPoint uint32
	BaseOfCode          uint32
	ImageBase           uint64
	SectionAlignment    uint32
	FileAlignment       uint32
	Versions            [6]uint16
	Win32VersionValue   uint32
	SizeOfImage         uint32
	SizeOfHeaders       uint32
	CheckSum            uint32
	Subsystem           uint16
	DllCharacteristics  uint16
	Sizes               [4]uint64
	LoaderFlags         uint32
	NumberOfRvaAndSizes uint32
	Dirs                [numDirs * 2]uint32
}

func align(n, a uint32) uint32 {
	return (n + a - 1) / a * a
}

func pack(dst []byte, off int, v interface{}) {
	var buf bytes.Buffer
	if err := struc.PackWithOrder(&buf, v, binary.LittleEndian); err != nil {
		panic(err)
	}
	copy(dst[off:], buf.Bytes())
}

// Bytes lays the image out on disk: DOS stub, NT headers, section table,
// then each section's raw data on a file-alignment boundary.
func (b Builder) Bytes() []byte {
	optSize := 96 + numDirs*8
	if b.PE64 {
		optSize = 112 + numDirs*8
	}
	tableOff := lfanew + 4 + 20 + optSize
	headers := align(uint32(tableOff+40*len(b.Sections)), fileAlign)

	secs := make([]image.SectionHeader, len(b.Sections))
	rawOff, rva := headers, uint32(sectAlign)
	var code, data uint32
	for i, s := range b.Sections {
		vsize := s.VirtualSize
		if vsize == 0 {
			vsize = uint32(len(s.Data))
		}
		rawSize := align(uint32(len(s.Data)), fileAlign)
		var name [8]byte
		copy(name[:], s.Name)
		secs[i] = image.SectionHeader{
			Name:             name,
			VirtualSize:      vsize,
			VirtualAddress:   rva,
			SizeOfRawData:    rawSize,
			PointerToRawData: rawOff,
			Characteristics:  s.Characteristics,
		}
		if s.Characteristics&0x20 != 0 {
			code += rawSize
		} else {
			data += rawSize
		}
		rawOff += rawSize
		rva += align(max(vsize, 1), sectAlign)
	}

	out := make([]byte, rawOff)
	pack(out, 0, &struct {
		Magic  uint16
		Pad    [58]byte
		Lfanew uint32
	}{Magic: 0x5a4d, Lfanew: lfanew})
	pack(out, lfanew, &struct{ Sig uint32 }{0x00004550})

	fh := image.FileHeader{
		Machine:              b.Machine,
		NumberOfSections:     uint16(len(b.Sections)),
		TimeDateStamp:        b.TimeDateStamp,
		SizeOfOptionalHeader: uint16(optSize),
		Characteristics:      b.Characteristics,
	}
	pack(out, lfanew+4, &fh)

	versions := [6]uint16{4, 0, 0, 0, 4, 0}
	if b.PE64 {
		pack(out, lfanew+24, &optional64{
			Magic: image.Magic64, LinkerMajor: b.LinkerMajor, LinkerMinor: b.LinkerMinor,
			SizeOfCode: code, SizeOfInitData: data, AddressOfEntryPoint: sectAlign, BaseOfCode: sectAlign,
			ImageBase: b.ImageBase, SectionAlignment: sectAlign, FileAlignment: fileAlign,
			Versions: versions, SizeOfImage: rva, SizeOfHeaders: headers, Subsystem: b.Subsystem,
			Sizes:               [4]uint64{0x100000, 0x1000, 0x100000, 0x1000},
			NumberOfRvaAndSizes: numDirs,
		})
	} else {
		pack(out, lfanew+24, &optional32{
			Magic: image.Magic32, LinkerMajor: b.LinkerMajor, LinkerMinor: b.LinkerMinor,
			SizeOfCode: code, SizeOfInitData: data, AddressOfEntryPoint: sectAlign, BaseOfCode: sectAlign,
			ImageBase: uint32(b.ImageBase), SectionAlignment: sectAlign, FileAlignment: fileAlign,
			Versions: versions, SizeOfImage: rva, SizeOfHeaders: headers, Subsystem: b.Subsystem,
			Sizes:               [4]uint32{0x100000, 0x1000, 0x100000, 0x1000},
			NumberOfRvaAndSizes: numDirs,
		})
	}

	for i := range secs {
		pack(out, tableOff+40*i, &secs[i])
		copy(out[secs[i].PointerToRawData:], b.Sections[i].Data)
	}
	return out
}

// Write stores the image under dir and returns its path.
func (b Builder) Write(t testing.TB, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, b.Bytes(), 0o600); err != nil {
		t.Fatalf("write image %s: %v", p, err)
	}
	return p
}
