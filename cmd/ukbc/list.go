package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"ukernel/internal/bitcode"
	"ukernel/internal/catalog"
	"ukernel/internal/ui"
)

var listNamesOnly bool

func init() {
	listCmd.Flags().BoolVar(&listNamesOnly, "names", false, "print entry names only")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the modules of the micro-kernel catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tbl, source, err := openCatalog(cmd, cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if listNamesOnly {
			for _, name := range tbl.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		}
		if err := renderCatalog(out, tbl, useColor()); err != nil {
			return err
		}
		if !quietFlag(cmd) {
			fmt.Fprintf(out, "\n%d modules (%s catalog)\n", tbl.Len(), source)
		}
		return nil
	},
}

// renderCatalog prints one row per entry. Entries whose envelope does not
// decode are listed with status "error" instead of failing the listing.
func renderCatalog(out io.Writer, p catalog.Provider, colored bool) error {
	tbl := ui.NewTable("NAME", "SIZE", "SCHEMA", "TRIPLE", "STATUS")
	tbl.MaxWidth = 48
	tbl.StatusColumn = 4
	tbl.Color = colored
	for _, e := range p.Entries() {
		size := strconv.Itoa(e.Size)
		env, err := bitcode.Decode(e.Data, e.Name)
		if err != nil {
			tbl.Append(e.Name, size, "-", "-", "error")
			continue
		}
		triple := env.Triple
		if triple == "" {
			triple = "-"
		}
		tbl.Append(e.Name, size, strconv.Itoa(int(env.Schema)), triple, "ok")
	}
	return tbl.Render(out)
}
