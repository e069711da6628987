// Package flags renders PE header codes and bitfields for display.
//
// Every domain is an ordered table of (mask, label) pairs. Bitfields list the
// labels of all set bits in table order; enumerations print the label of the
// exact value or "?".
package flags

import (
	"fmt"
	"strings"
	"time"
)

type Bit struct {
	Mask  uint32
	Label string
}

type Table []Bit

// Set returns the labels of every entry whose mask is fully set in v.
func (t Table) Set(v uint32) []string {
	var out []string
	for _, b := range t {
		if b.Mask != 0 && v&b.Mask == b.Mask {
			out = append(out, b.Label)
		}
	}
	return out
}

// Lookup returns the label of the entry equal to v.
func (t Table) Lookup(v uint32) (string, bool) {
	for _, b := range t {
		if b.Mask == v {
			return b.Label, true
		}
	}
	return "", false
}

var Machine = Table{
	{0x014c, "32-bit Intel"},
	{0x0200, "64-bit Intel"},
	{0x8664, "64-bit AMD"},
	{0x0184, "DEC Alpha"},
	{0x01f0, "Power PC"},
	{0x01c0, "ARM"},
	{0x01c4, "ARM Thumb-2"},
	{0xaa64, "ARM64"},
}

var FileCharacteristics = Table{
	{0x0001, "relocations stripped"},
	{0x0002, "executable image"},
	{0x0004, "linenumbers stripped"},
	{0x0008, "symbols stripped"},
	{0x0010, "AGGRESIVE_WS_TRIM"},
	{0x0020, "LARGE_ADDRESS_AWARE"},
	{0x0080, "BYTES_REVERSED_LO"},
	{0x0100, "32BIT_MACHINE"},
	{0x0200, "debuginfo stripped"},
	{0x0400, "REMOVABLE_RUN_FROM_SWAP"},
	{0x0800, "NET_RUN_FROM_SWAP"},
	{0x1000, "system file"},
	{0x2000, "DLL file"},
	{0x4000, "UP_SYSTEM_ONLY"},
	{0x8000, "BYTES_REVERSED_HI"},
}

var DllCharacteristics = Table{
	{0x0020, "HIGH_ENTROPY_VA"},
	{0x0040, "DYNAMIC_BASE"},
	{0x0080, "FORCE_INTEGRITY"},
	{0x0100, "NX_COMPAT"},
	{0x0200, "NO_ISOLATION"},
	{0x0400, "NO_SEH"},
	{0x0800, "NO_BIND"},
	{0x1000, "APPCONTAINER"},
	{0x2000, "WDM_DRIVER"},
	{0x4000, "GUARD_CF"},
	{0x8000, "TERMINAL_SERVER_AWARE"},
}

// sectionAlignMask covers the 4-bit alignment field of section flags. It is
// an enumeration embedded in the bitfield, so it is matched by value.
const sectionAlignMask = 0x00f00000

var SectionAlignment = Table{
	{0x00100000, "1-byte align"},
	{0x00200000, "2-byte align"},
	{0x00300000, "4-byte align"},
	{0x00400000, "8-byte align"},
	{0x00500000, "16-byte align"},
	{0x00600000, "32-byte align"},
	{0x00700000, "64-byte align"},
	{0x00800000, "128-byte align"},
	{0x00900000, "256-byte align"},
	{0x00a00000, "512-byte align"},
	{0x00b00000, "1024-byte align"},
	{0x00c00000, "2048-byte align"},
	{0x00d00000, "4096-byte align"},
	{0x00e00000, "8192-byte align"},
}

var sectionLow = Table{
	{0x00000008, "*no pad"},
	{0x00000020, "code"},
	{0x00000040, "data"},
	{0x00000080, "bss"},
	{0x00000200, "*info"},
	{0x00001000, "comdat"},
	{0x00008000, "*fardata"},
	{0x00020000, "*purgeable"},
	{0x00040000, "*locked"},
	{0x00080000, "*preload"},
}

var sectionHigh = Table{
	{0x01000000, "extended relocations"},
	{0x02000000, "discardable"},
	{0x04000000, "cannot be cached"},
	{0x08000000, "cannot be paged"},
	{0x10000000, "shared"},
	{0x20000000, "execute"},
	{0x40000000, "read"},
	{0x80000000, "write"},
}

var Subsystem = Table{
	{0, "unknown"},
	{1, "native"},
	{2, "WIN32 GUI"},
	{3, "WIN32 console"},
	{5, "OS/2 console"},
	{7, "POSIX console"},
	{9, "Windows CE"},
	{10, "EFI application"},
	{11, "EFI boot driver"},
	{12, "EFI runtime driver"},
	{13, "EFI ROM"},
	{14, "Xbox"},
	{16, "boot application"},
}

func bits(hex string, v uint32, labels []string) string {
	return fmt.Sprintf(hex, v) + "(" + strings.Join(labels, ", ") + ")"
}

func enum(t Table, v uint16) string {
	label, ok := t.Lookup(uint32(v))
	if !ok {
		label = "?"
	}
	return fmt.Sprintf("%04X(%s)", v, label)
}

func MachineString(v uint16) string { return enum(Machine, v) }

func SubsystemString(v uint16) string { return enum(Subsystem, v) }

func FileCharacteristicsString(v uint16) string {
	return bits("%04X", uint32(v), FileCharacteristics.Set(uint32(v)))
}

func DllCharacteristicsString(v uint16) string {
	return bits("%04X", uint32(v), DllCharacteristics.Set(uint32(v)))
}

func SectionCharacteristicsString(v uint32) string {
	labels := sectionLow.Set(v)
	if a, ok := SectionAlignment.Lookup(v & sectionAlignMask); ok {
		labels = append(labels, a)
	}
	labels = append(labels, sectionHigh.Set(v)...)
	return bits("%08X", v, labels)
}

// TimeDateString renders a build timestamp in ctime layout, in UTC.
func TimeDateString(v uint32) string {
	return fmt.Sprintf("%08X(%s)", v, time.Unix(int64(v), 0).UTC().Format(time.ANSIC))
}
