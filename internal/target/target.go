// Package target models the code-generation target of a compilation as an
// LLVM target triple plus the pointer properties derived from it.
package target

import (
	"fmt"
	"runtime"
	"strings"
)

// Width is the pointer width class of a target.
type Width uint8

const (
	WidthUnknown Width = iota
	Width16
	Width32
	Width64
)

// String returns the string representation of Width.
func (w Width) String() string {
	switch w {
	case Width16:
		return "16bit"
	case Width32:
		return "32bit"
	case Width64:
		return "64bit"
	default:
		return "unknown"
	}
}

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-unknown-linux-gnu"
	Arch     string // arch component of the triple, e.g. "x86_64"
	Width    Width
	PtrSize  int    // bytes
	PtrAlign int    // bytes
	archName string // canonical ukernel arch name, UnknownArch without ukernels
}

// Parse classifies an LLVM target triple. Only the arch component is
// interpreted; vendor, OS and environment are kept verbatim in Triple.
// Unknown architectures are not an error: the returned target reports
// WidthUnknown and ArchName UnknownArch.
func Parse(triple string) (Target, error) {
	triple = strings.TrimSpace(triple)
	if triple == "" {
		return Target{}, fmt.Errorf("empty target triple")
	}
	arch, _, _ := strings.Cut(triple, "-")
	if arch == "" {
		return Target{}, fmt.Errorf("target triple %q has no architecture", triple)
	}
	width, name := classify(strings.ToLower(arch))
	t := Target{
		Triple:   triple,
		Arch:     arch,
		Width:    width,
		archName: name,
	}
	switch width {
	case Width16:
		t.PtrSize, t.PtrAlign = 2, 2
	case Width32:
		t.PtrSize, t.PtrAlign = 4, 4
	case Width64:
		t.PtrSize, t.PtrAlign = 8, 8
	}
	return t, nil
}

// MustParse is like Parse but panics on error.
func MustParse(triple string) Target {
	t, err := Parse(triple)
	if err != nil {
		panic(err)
	}
	return t
}

// UnknownArch is the arch name of targets without specialized ukernels.
// No catalog ships a module for it, so arch lookups come back absent.
const UnknownArch = "unknown"

// ukernelArch maps triple arch components to ukernel arch names.
var ukernelArch = map[string]string{
	"x86_64": "x86_64", "amd64": "x86_64", "x86_64h": "x86_64",
	"i386": "x86_32", "i486": "x86_32", "i586": "x86_32", "i686": "x86_32", "x86": "x86_32",
	"aarch64": "arm_64", "arm64": "arm_64", "aarch64_be": "arm_64", "arm64e": "arm_64",
	"riscv64": "riscv_64", "riscv32": "riscv_32",
	"wasm64": "wasm_64", "wasm32": "wasm_32",
}

// archWidth lists the pointer width of every LLVM arch that is not matched
// by a prefix rule in classify.
var archWidth = map[string]Width{
	"x86_64": Width64, "amd64": Width64, "x86_64h": Width64,
	"i386": Width32, "i486": Width32, "i586": Width32, "i686": Width32, "x86": Width32,
	"aarch64": Width64, "arm64": Width64, "aarch64_be": Width64, "arm64e": Width64,
	"aarch64_32": Width32, "arm64_32": Width32,
	"riscv64": Width64, "riscv32": Width32,
	"wasm64": Width64, "wasm32": Width32,
	"powerpc64": Width64, "powerpc64le": Width64, "ppc64": Width64, "ppc64le": Width64,
	"powerpc": Width32, "powerpcle": Width32, "ppc": Width32, "ppc32": Width32, "ppcle": Width32, "ppc32le": Width32,
	"s390x": Width64, "systemz": Width64,
	"sparcv9": Width64, "sparc64": Width64, "sparc": Width32, "sparcel": Width32,
	"loongarch64": Width64, "loongarch32": Width32,
	"bpf": Width64, "bpfel": Width64, "bpfeb": Width64,
	"amdgcn": Width64, "nvptx64": Width64, "le64": Width64, "amdil64": Width64,
	"hsail64": Width64, "spir64": Width64, "spirv64": Width64, "renderscript64": Width64,
	"ve": Width64,
	"nvptx": Width32, "le32": Width32, "amdil": Width32, "hsail": Width32,
	"spir": Width32, "spirv32": Width32, "renderscript32": Width32, "r600": Width32,
	"hexagon": Width32, "lanai": Width32, "xcore": Width32, "m68k": Width32,
	"csky": Width32, "arc": Width32, "xtensa": Width32, "kalimba": Width32,
	"shave": Width32, "tce": Width32, "tcele": Width32,
	"avr": Width16, "msp430": Width16,
}

func classify(arch string) (Width, string) {
	width, ok := archWidth[arch]
	if !ok {
		switch {
		case strings.HasPrefix(arch, "mips64") || strings.HasPrefix(arch, "mipsisa64"):
			width = Width64
		case strings.HasPrefix(arch, "mips"):
			width = Width32
		case strings.HasPrefix(arch, "arm") || strings.HasPrefix(arch, "thumb"):
			return Width32, "arm_32"
		}
	}
	name, ok := ukernelArch[arch]
	if !ok {
		name = UnknownArch
	}
	return width, name
}

// IsArch64Bit reports whether the target has 64-bit pointers.
func (t Target) IsArch64Bit() bool { return t.Width == Width64 }

// IsArch32Bit reports whether the target has 32-bit pointers.
func (t Target) IsArch32Bit() bool { return t.Width == Width32 }

// ArchName returns the canonical architecture name used to select
// architecture-specific micro-kernels, or "" if the target has none.
func (t Target) ArchName() string { return t.archName }

func (t Target) String() string { return t.Triple }

// Host returns the target triple of the running process.
func Host() Target {
	return MustParse(hostTriple(runtime.GOARCH, runtime.GOOS))
}

// hostTriple spells a GOARCH/GOOS pair as an LLVM triple.
func hostTriple(goarch, goos string) string {
	arch := goarch
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "386":
		arch = "i686"
	case "arm64":
		arch = "aarch64"
	case "ppc64":
		arch = "powerpc64"
	case "ppc64le":
		arch = "powerpc64le"
	case "loong64":
		arch = "loongarch64"
	case "mipsle":
		arch = "mipsel"
	case "mips64le":
		arch = "mips64el"
	case "wasm":
		arch = "wasm32"
	}
	switch goos {
	case "linux":
		return arch + "-unknown-linux-gnu"
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	default:
		return arch + "-unknown-" + goos
	}
}
