package diff

import (
	"fmt"

	"exediff/internal/config"
	"exediff/internal/flags"
	"exediff/internal/image"
)

type (
	fileHdr = *image.FileHeader
	optHdr  = *image.OptionalHeader
	secHdr  = *image.SectionHeader
)

func ignoreTimestamp(c config.Config) bool { return c.IgnoreTimestamp() }

var FileHeaderFields = []Field[fileHdr]{
	Formatted("Machine", func(h fileHdr) uint16 { return h.Machine }, flags.MachineString),
	Word("NumberOfSections", func(h fileHdr) uint16 { return h.NumberOfSections }),
	Formatted("TimeDateStamp", func(h fileHdr) uint32 { return h.TimeDateStamp }, flags.TimeDateString).
		SkipIf(ignoreTimestamp),
	Long("PointerToSymbolTable", func(h fileHdr) uint32 { return h.PointerToSymbolTable }),
	Long("NumberOfSymbols", func(h fileHdr) uint32 { return h.NumberOfSymbols }),
	Word("SizeOfOptionalHeader", func(h fileHdr) uint16 { return h.SizeOfOptionalHeader }),
	Formatted("Characteristics", func(h fileHdr) uint16 { return h.Characteristics }, flags.FileCharacteristicsString),
}

// addr renders address-sized fields at the width of the image format.
func addr(name string, get func(optHdr) uint64) Field[optHdr] {
	return Field[optHdr]{
		Name:  name,
		Value: func(h optHdr) any { return get(h) },
		Format: func(h optHdr) string {
			if h.Is64() {
				return fmt.Sprintf("%016X", get(h))
			}
			return fmt.Sprintf("%08X", get(h))
		},
	}
}

// OptionalHeaderFields leaves out the data directories: their entries
// point into section data, which is compared byte-wise instead.
var OptionalHeaderFields = []Field[optHdr]{
	Word("Magic", func(h optHdr) uint16 { return h.Magic }),
	Version("LinkerVersion", func(h optHdr) image.Version { return h.LinkerVersion }),
	Long("SizeOfCode", func(h optHdr) uint32 { return h.SizeOfCode }),
	Long("SizeOfInitializedData", func(h optHdr) uint32 { return h.SizeOfInitializedData }),
	Long("SizeOfUninitializedData", func(h optHdr) uint32 { return h.SizeOfUninitializedData }),
	Long("AddressOfEntryPoint", func(h optHdr) uint32 { return h.AddressOfEntryPoint }),
	Long("BaseOfCode", func(h optHdr) uint32 { return h.BaseOfCode }),
	Long("BaseOfData", func(h optHdr) uint32 { return h.BaseOfData }),
	addr("ImageBase", func(h optHdr) uint64 { return h.ImageBase }),
	Long("SectionAlignment", func(h optHdr) uint32 { return h.SectionAlignment }),
	Long("FileAlignment", func(h optHdr) uint32 { return h.FileAlignment }),
	Version("OperatingSystemVersion", func(h optHdr) image.Version { return h.OperatingSystemVersion }),
	Version("ImageVersion", func(h optHdr) image.Version { return h.ImageVersion }),
	Version("SubsystemVersion", func(h optHdr) image.Version { return h.SubsystemVersion }),
	Long("Win32VersionValue", func(h optHdr) uint32 { return h.Win32VersionValue }),
	Long("SizeOfImage", func(h optHdr) uint32 { return h.SizeOfImage }),
	Long("SizeOfHeaders", func(h optHdr) uint32 { return h.SizeOfHeaders }),
	Long("CheckSum", func(h optHdr) uint32 { return h.CheckSum }),
	Formatted("Subsystem", func(h optHdr) uint16 { return h.Subsystem }, flags.SubsystemString),
	Formatted("DllCharacteristics", func(h optHdr) uint16 { return h.DllCharacteristics }, flags.DllCharacteristicsString),
	addr("SizeOfStackReserve", func(h optHdr) uint64 { return h.SizeOfStackReserve }),
	addr("SizeOfStackCommit", func(h optHdr) uint64 { return h.SizeOfStackCommit }),
	addr("SizeOfHeapReserve", func(h optHdr) uint64 { return h.SizeOfHeapReserve }),
	addr("SizeOfHeapCommit", func(h optHdr) uint64 { return h.SizeOfHeapCommit }),
	Long("LoaderFlags", func(h optHdr) uint32 { return h.LoaderFlags }),
	Long("NumberOfRvaAndSizes", func(h optHdr) uint32 { return h.NumberOfRvaAndSizes }),
}

func sectionName(n [8]byte) string {
	h := image.SectionHeader{Name: n}
	return h.NameString()
}

var SectionHeaderFields = []Field[secHdr]{
	Formatted("Name", func(s secHdr) [8]byte { return s.Name }, sectionName),
	Long("VirtualSize", func(s secHdr) uint32 { return s.VirtualSize }),
	Long("VirtualAddress", func(s secHdr) uint32 { return s.VirtualAddress }),
	Long("SizeOfRawData", func(s secHdr) uint32 { return s.SizeOfRawData }),
	Long("PointerToRawData", func(s secHdr) uint32 { return s.PointerToRawData }),
	Long("PointerToRelocations", func(s secHdr) uint32 { return s.PointerToRelocations }),
	Long("PointerToLinenumbers", func(s secHdr) uint32 { return s.PointerToLinenumbers }),
	Word("NumberOfRelocations", func(s secHdr) uint16 { return s.NumberOfRelocations }),
	Word("NumberOfLinenumbers", func(s secHdr) uint16 { return s.NumberOfLinenumbers }),
	Formatted("Characteristics", func(s secHdr) uint32 { return s.Characteristics }, flags.SectionCharacteristicsString),
}
