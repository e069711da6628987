package image

import (
	"bytes"
	"encoding/binary"
	"os"
	"syscall"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

const (
	dosHeaderSize  = 64
	signatureSize  = 4
	fileHeaderSize = 20
	optional32Size = 96
	optional64Size = 112
	dataDirSize    = 8
	sectionSize    = 40

	dosMagic  = 0x5a4d     // MZ
	peMagicNT = 0x00004550 // PE\0\0
)

var (
	ErrNotPE     = errors.New("not a PE image")
	ErrTruncated = errors.New("image is truncated")
	ErrNoOptHdr  = errors.New("image has no optional header")
	ErrBadMagic  = errors.New("unknown optional header magic")
)

// Loader turns a path into an Image.
type Loader interface {
	Load(path string) (*Image, error)
}

// LoadError is returned by FileLoader for any file that could not be read
// or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Errno reports the OS error code behind the failure, if there is one.
func (e *LoadError) Errno() (syscall.Errno, bool) {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno, true
	}
	return 0, false
}

type FileLoader struct{}

func (FileLoader) Load(path string) (*Image, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, &LoadError{Path: path, Err: errors.WithStack(err)}
	}
	img, err := Parse(path, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return img, nil
}

type dosHeader struct {
	Magic  uint16
	Unused [58]byte
	Lfanew uint32
}

type ntSignature struct {
	Signature uint32
}

type dataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

type optionalHeader32 struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	BaseOfData                  uint32
	ImageBase                   uint32
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint32
	SizeOfStackCommit           uint32
	SizeOfHeapReserve           uint32
	SizeOfHeapCommit            uint32
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
}

type optionalHeader64 struct {
	Magic                       uint16
	MajorLinkerVersion          uint8
	MinorLinkerVersion          uint8
	SizeOfCode                  uint32
	SizeOfInitializedData       uint32
	SizeOfUninitializedData     uint32
	AddressOfEntryPoint         uint32
	BaseOfCode                  uint32
	ImageBase                   uint64
	SectionAlignment            uint32
	FileAlignment               uint32
	MajorOperatingSystemVersion uint16
	MinorOperatingSystemVersion uint16
	MajorImageVersion           uint16
	MinorImageVersion           uint16
	MajorSubsystemVersion       uint16
	MinorSubsystemVersion       uint16
	Win32VersionValue           uint32
	SizeOfImage                 uint32
	SizeOfHeaders               uint32
	CheckSum                    uint32
	Subsystem                   uint16
	DllCharacteristics          uint16
	SizeOfStackReserve          uint64
	SizeOfStackCommit           uint64
	SizeOfHeapReserve           uint64
	SizeOfHeapCommit            uint64
	LoaderFlags                 uint32
	NumberOfRvaAndSizes         uint32
}

// unpack decodes a little-endian record of the given size at off.
func unpack(data []byte, off uint64, size int, v interface{}) error {
	if off > uint64(len(data)) || uint64(len(data))-off < uint64(size) {
		return errors.Wrapf(ErrTruncated, "need %d bytes at offset %#x", size, off)
	}
	r := bytes.NewReader(data[off : off+uint64(size)])
	return errors.Wrapf(struc.UnpackWithOrder(r, v, binary.LittleEndian), "decode at offset %#x", off)
}

// Parse decodes an in-memory PE file. The returned Image keeps a reference
// to data for section slicing.
func Parse(name string, data []byte) (*Image, error) {
	var dos dosHeader
	if err := unpack(data, 0, dosHeaderSize, &dos); err != nil {
		return nil, errors.Wrap(err, "DOS header")
	}
	if dos.Magic != dosMagic {
		return nil, errors.WithStack(ErrNotPE)
	}

	off := uint64(dos.Lfanew)
	var sig ntSignature
	if err := unpack(data, off, signatureSize, &sig); err != nil {
		return nil, errors.Wrap(err, "NT signature")
	}
	if sig.Signature != peMagicNT {
		return nil, errors.WithStack(ErrNotPE)
	}
	off += signatureSize

	img := &Image{Name: name, Signature: sig.Signature, data: data}
	if err := unpack(data, off, fileHeaderSize, &img.FileHeader); err != nil {
		return nil, errors.Wrap(err, "file header")
	}
	off += fileHeaderSize

	optSize := uint64(img.FileHeader.SizeOfOptionalHeader)
	if optSize < 2 {
		return nil, errors.WithStack(ErrNoOptHdr)
	}
	if err := parseOptional(data, off, optSize, &img.OptionalHeader); err != nil {
		return nil, errors.Wrap(err, "optional header")
	}
	off += optSize

	img.Sections = make([]SectionHeader, img.FileHeader.NumberOfSections)
	for i := range img.Sections {
		if err := unpack(data, off, sectionSize, &img.Sections[i]); err != nil {
			return nil, errors.Wrapf(err, "section header %d", i+1)
		}
		off += sectionSize
	}
	return img, nil
}

func parseOptional(data []byte, off, size uint64, h *OptionalHeader) error {
	if off+2 > uint64(len(data)) {
		return errors.WithStack(ErrTruncated)
	}
	var fixed uint64
	switch magic := binary.LittleEndian.Uint16(data[off:]); magic {
	case Magic32:
		var raw optionalHeader32
		if size < optional32Size {
			return errors.Wrapf(ErrTruncated, "PE32 optional header is %d bytes", size)
		}
		if err := unpack(data, off, optional32Size, &raw); err != nil {
			return err
		}
		*h = OptionalHeader{
			Magic:                   raw.Magic,
			LinkerVersion:           Version{uint16(raw.MajorLinkerVersion), uint16(raw.MinorLinkerVersion)},
			SizeOfCode:              raw.SizeOfCode,
			SizeOfInitializedData:   raw.SizeOfInitializedData,
			SizeOfUninitializedData: raw.SizeOfUninitializedData,
			AddressOfEntryPoint:     raw.AddressOfEntryPoint,
			BaseOfCode:              raw.BaseOfCode,
			BaseOfData:              raw.BaseOfData,
			ImageBase:               uint64(raw.ImageBase),
			SectionAlignment:        raw.SectionAlignment,
			FileAlignment:           raw.FileAlignment,
			OperatingSystemVersion:  Version{raw.MajorOperatingSystemVersion, raw.MinorOperatingSystemVersion},
			ImageVersion:            Version{raw.MajorImageVersion, raw.MinorImageVersion},
			SubsystemVersion:        Version{raw.MajorSubsystemVersion, raw.MinorSubsystemVersion},
			Win32VersionValue:       raw.Win32VersionValue,
			SizeOfImage:             raw.SizeOfImage,
			SizeOfHeaders:           raw.SizeOfHeaders,
			CheckSum:                raw.CheckSum,
			Subsystem:               raw.Subsystem,
			DllCharacteristics:      raw.DllCharacteristics,
			SizeOfStackReserve:      uint64(raw.SizeOfStackReserve),
			SizeOfStackCommit:       uint64(raw.SizeOfStackCommit),
			SizeOfHeapReserve:       uint64(raw.SizeOfHeapReserve),
			SizeOfHeapCommit:        uint64(raw.SizeOfHeapCommit),
			LoaderFlags:             raw.LoaderFlags,
			NumberOfRvaAndSizes:     raw.NumberOfRvaAndSizes,
		}
		fixed = optional32Size
	case Magic64:
		var raw optionalHeader64
		if size < optional64Size {
			return errors.Wrapf(ErrTruncated, "PE32+ optional header is %d bytes", size)
		}
		if err := unpack(data, off, optional64Size, &raw); err != nil {
			return err
		}
		*h = OptionalHeader{
			Magic:                   raw.Magic,
			LinkerVersion:           Version{uint16(raw.MajorLinkerVersion), uint16(raw.MinorLinkerVersion)},
			SizeOfCode:              raw.SizeOfCode,
			SizeOfInitializedData:   raw.SizeOfInitializedData,
			SizeOfUninitializedData: raw.SizeOfUninitializedData,
			AddressOfEntryPoint:     raw.AddressOfEntryPoint,
			BaseOfCode:              raw.BaseOfCode,
			ImageBase:               raw.ImageBase,
			SectionAlignment:        raw.SectionAlignment,
			FileAlignment:           raw.FileAlignment,
			OperatingSystemVersion:  Version{raw.MajorOperatingSystemVersion, raw.MinorOperatingSystemVersion},
			ImageVersion:            Version{raw.MajorImageVersion, raw.MinorImageVersion},
			SubsystemVersion:        Version{raw.MajorSubsystemVersion, raw.MinorSubsystemVersion},
			Win32VersionValue:       raw.Win32VersionValue,
			SizeOfImage:             raw.SizeOfImage,
			SizeOfHeaders:           raw.SizeOfHeaders,
			CheckSum:                raw.CheckSum,
			Subsystem:               raw.Subsystem,
			DllCharacteristics:      raw.DllCharacteristics,
			SizeOfStackReserve:      raw.SizeOfStackReserve,
			SizeOfStackCommit:       raw.SizeOfStackCommit,
			SizeOfHeapReserve:       raw.SizeOfHeapReserve,
			SizeOfHeapCommit:        raw.SizeOfHeapCommit,
			LoaderFlags:             raw.LoaderFlags,
			NumberOfRvaAndSizes:     raw.NumberOfRvaAndSizes,
		}
		fixed = optional64Size
	default:
		return errors.Wrapf(ErrBadMagic, "%#04x", magic)
	}

	n := min(uint64(h.NumberOfRvaAndSizes), MaxDataDirectories, (size-fixed)/dataDirSize)
	h.DataDirectory = make([]DataDirectory, n)
	for i := range h.DataDirectory {
		var d dataDirectory
		if err := unpack(data, off+fixed+uint64(i)*dataDirSize, dataDirSize, &d); err != nil {
			return errors.Wrapf(err, "data directory %d", i)
		}
		h.DataDirectory[i] = DataDirectory{VirtualAddress: d.VirtualAddress, Size: d.Size}
	}
	return nil
}
