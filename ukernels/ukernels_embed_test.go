package ukernelsembed_test

import (
	"testing"

	"ukernel/internal/bitcode"
	"ukernel/internal/catalog"
	"ukernel/internal/ukernel"
	ukernelsembed "ukernel/ukernels"
)

func TestEmbeddedCatalog_BaseModulesPresent(t *testing.T) {
	tbl, err := catalog.FromFS(ukernelsembed.FS(), ".")
	if err != nil {
		t.Fatalf("FromFS: %v", err)
	}
	for _, name := range []string{ukernel.Base64Name, ukernel.Base32Name} {
		if _, ok := tbl.Lookup(name); !ok {
			t.Errorf("embedded catalog lacks %s (build bug)", name)
		}
	}
}

func TestEmbeddedCatalog_EveryEntryParses(t *testing.T) {
	tbl, err := catalog.FromFS(ukernelsembed.FS(), ".")
	if err != nil {
		t.Fatalf("FromFS: %v", err)
	}
	if tbl.Len() == 0 {
		t.Fatal("embedded catalog is empty")
	}
	for _, e := range tbl.Entries() {
		t.Run(e.Name, func(t *testing.T) {
			env, err := bitcode.Decode(e.Data, e.Name)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if env.Name != e.Name {
				t.Errorf("envelope name %q does not match catalog name", env.Name)
			}
			m, err := bitcode.Parser{}.Parse(e.Data, e.Name, bitcode.NewContext())
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(m.Funcs) == 0 {
				t.Error("module defines no functions")
			}
		})
	}
}
