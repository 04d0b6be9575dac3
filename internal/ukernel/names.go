package ukernel

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Catalog names shared with the packaging step that builds the catalog.
const (
	Base64Name = "ukernel_bitcode_64bit_base.bc"
	Base32Name = "ukernel_bitcode_32bit_base.bc"

	archPrefix = "ukernel_bitcode_"
	archSuffix = ".bc"

	// composed names must fit a 64-byte buffer including the terminator
	maxNameLen = 63
)

// BaseName returns the base module name for m's pointer width.
func BaseName(m Machine) (string, bool) {
	if m == nil {
		return "", false
	}
	switch {
	case m.IsArch64Bit():
		return Base64Name, true
	case m.IsArch32Bit():
		return Base32Name, true
	default:
		return "", false
	}
}

// ArchFileName composes the architecture-specific module name for arch.
// Any encodable name is accepted: catalog matching is exact, so a name
// nothing was packed under simply resolves to Absent.
func ArchFileName(arch string) (string, error) {
	if arch == "" {
		return "", fmt.Errorf("no ukernel architecture name for target")
	}
	if !utf8.ValidString(arch) || strings.IndexByte(arch, 0) >= 0 {
		return "", fmt.Errorf("architecture name %q is not encodable", arch)
	}
	name := archPrefix + arch + archSuffix
	if len(name) > maxNameLen {
		return "", fmt.Errorf("architecture name %q too long (%d > %d bytes)", arch, len(name), maxNameLen)
	}
	return name, nil
}
