package image

import (
	"bytes"
	"fmt"
)

const (
	Magic32 = 0x10b
	Magic64 = 0x20b

	MaxDataDirectories = 16
)

type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type Version struct {
	Major uint16
	Minor uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// OptionalHeader holds both PE32 and PE32+ layouts. Address-sized fields are
// widened to 64 bits; BaseOfData is always zero for PE32+.
type OptionalHeader struct {
	Magic                   uint16
	LinkerVersion           Version
	SizeOfCode              uint32
	SizeOfInitializedData   uint32
	SizeOfUninitializedData uint32
	AddressOfEntryPoint     uint32
	BaseOfCode              uint32
	BaseOfData              uint32
	ImageBase               uint64
	SectionAlignment        uint32
	FileAlignment           uint32
	OperatingSystemVersion  Version
	ImageVersion            Version
	SubsystemVersion        Version
	Win32VersionValue       uint32
	SizeOfImage             uint32
	SizeOfHeaders           uint32
	CheckSum                uint32
	Subsystem               uint16
	DllCharacteristics      uint16
	SizeOfStackReserve      uint64
	SizeOfStackCommit       uint64
	SizeOfHeapReserve       uint64
	SizeOfHeapCommit        uint64
	LoaderFlags             uint32
	NumberOfRvaAndSizes     uint32
	DataDirectory           []DataDirectory
}

func (h *OptionalHeader) Is64() bool {
	return h.Magic == Magic64
}

type SectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// NameString returns the section name up to the first NUL.
func (s *SectionHeader) NameString() string {
	if i := bytes.IndexByte(s.Name[:], 0); i >= 0 {
		return string(s.Name[:i])
	}
	return string(s.Name[:])
}

// RawSize is the number of section bytes that are compared.
func (s *SectionHeader) RawSize() uint32 {
	return min(s.VirtualSize, s.SizeOfRawData)
}

type Image struct {
	Name           string
	Signature      uint32
	FileHeader     FileHeader
	OptionalHeader OptionalHeader
	Sections       []SectionHeader

	data []byte
}

// RawData returns the compared slice of section i, clamped to the file size.
func (img *Image) RawData(i int) []byte {
	if i < 0 || i >= len(img.Sections) {
		return nil
	}
	sec := &img.Sections[i]
	start := uint64(sec.PointerToRawData)
	end := start + uint64(sec.RawSize())
	size := uint64(len(img.data))
	if start > size {
		return nil
	}
	if end > size {
		end = size
	}
	return img.data[start:end]
}

// Bytes returns the whole file content the image was parsed from.
func (img *Image) Bytes() []byte {
	return img.data
}
