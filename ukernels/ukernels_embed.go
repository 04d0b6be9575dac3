// Package ukernelsembed provides the embedded micro-kernel IR catalog.
package ukernelsembed

import (
	"embed"
	"io/fs"
)

//go:generate go run ../cmd/ukbc pack -o . src/ukernel_bitcode_64bit_base.ll src/ukernel_bitcode_32bit_base.ll
//go:generate go run ../cmd/ukbc pack -o . --triple x86_64-unknown-unknown-eabi-elf src/ukernel_bitcode_x86_64.ll
//go:generate go run ../cmd/ukbc pack -o . --triple aarch64-unknown-unknown-eabi-elf src/ukernel_bitcode_arm_64.ll

//go:embed *.bc
var catalogFS embed.FS

// FS exposes the embedded catalog blobs at the root of the returned FS.
func FS() fs.FS {
	return catalogFS
}
