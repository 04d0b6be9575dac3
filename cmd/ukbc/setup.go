package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ukernel/internal/catalog"
	"ukernel/internal/config"
	ukernelsembed "ukernel/ukernels"
)

const embeddedCatalog = "embedded"

// loadConfig reads --config, or searches for ukbc.toml upwards from the
// working directory. A missing file yields the default config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	cfg, _, err := config.Discover(".")
	return cfg, err
}

// openCatalog picks the catalog: --catalog, then [catalog].dir, then the
// embedded one. The second result names the source for messages.
func openCatalog(cmd *cobra.Command, cfg *config.Config) (*catalog.Table, string, error) {
	dir, err := cmd.Root().PersistentFlags().GetString("catalog")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get catalog flag: %w", err)
	}
	if dir == "" && cfg != nil {
		dir = cfg.CatalogDir()
	}
	return loadCatalog(dir)
}

func loadCatalog(dir string) (*catalog.Table, string, error) {
	if dir == "" {
		tbl, err := catalog.FromFS(ukernelsembed.FS(), ".")
		return tbl, embeddedCatalog, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, dir, fmt.Errorf("catalog dir: %w", err)
	}
	if !info.IsDir() {
		return nil, dir, fmt.Errorf("catalog dir %q is not a directory", dir)
	}
	tbl, err := catalog.FromFS(os.DirFS(dir), ".")
	return tbl, dir, err
}
