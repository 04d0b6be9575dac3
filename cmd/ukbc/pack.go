package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ukernel/internal/bitcode"
)

var (
	packOutDir   string
	packTriple   string
	packNoVerify bool
)

func init() {
	packCmd.Flags().StringVarP(&packOutDir, "out", "o", ".", "directory receiving the .bc files")
	packCmd.Flags().StringVar(&packTriple, "triple", "", "target triple recorded in the envelopes")
	packCmd.Flags().BoolVar(&packNoVerify, "no-verify", false, "skip parsing the IR before writing")
}

var packCmd = &cobra.Command{
	Use:   "pack [flags] file.ll...",
	Short: "Wrap textual IR files into catalog envelopes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := packFiles(packOutDir, packTriple, !packNoVerify, args)
		if !quietFlag(cmd) {
			for _, path := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			}
		}
		return err
	},
}

// catalogName maps foo/ukernel_bitcode_x86_64.ll to ukernel_bitcode_x86_64.bc.
func catalogName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".bc"
}

// packFiles encodes every file into outDir and returns the written paths.
// With verify set, each payload is parsed first so broken IR never reaches
// the catalog. It stops at the first error.
func packFiles(outDir, triple string, verify bool, files []string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	seen := make(map[string]string, len(files))
	written := make([]string, 0, len(files))
	for _, file := range files {
		name := catalogName(file)
		if prev, dup := seen[name]; dup {
			return written, fmt.Errorf("%s and %s both pack to %s", prev, file, name)
		}
		seen[name] = file

		// #nosec G304 -- paths come from the command line
		src, err := os.ReadFile(file)
		if err != nil {
			return written, fmt.Errorf("failed to read %s: %w", file, err)
		}
		data, err := bitcode.Encode(&bitcode.Envelope{Name: name, Triple: triple, IR: src})
		if err != nil {
			return written, err
		}
		if verify {
			if _, err := (bitcode.Parser{}).Parse(data, name, bitcode.NewContext()); err != nil {
				return written, fmt.Errorf("%s: %w", file, err)
			}
		}
		dst := filepath.Join(outDir, name)
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		written = append(written, dst)
	}
	return written, nil
}
