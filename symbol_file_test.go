// symbol_file_test.go - Reference symbol TOML loader tests

package recomp

import (
	"os"
	"path/filepath"
	"testing"
)

const testSymbolToml = `
[[section]]
name = ".text"
rom = 0x1000
vram = 0x80000400
size = 0x200
functions = [
    { name = "osInitialize", vram = 0x80000400, size = 0x40 },
    { name = "osGetCount", vram = 0x80000440, size = 0x10 },
]

[[section]]
name = ".bss"
vram = 0x80010000
size = 0x100
functions = []
`

func writeSymbolFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "syms.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write symbol file: %v", err)
	}
	return path
}

// TestFromSymbolFile loads sections and functions, with .bss carrying the
// absent-rom sentinel.
func TestFromSymbolFile(t *testing.T) {
	path := writeSymbolFile(t, testSymbolToml)
	ctx := NewContext()
	if err := FromSymbolFile(path, nil, ctx); err != nil {
		t.Fatalf("FromSymbolFile: %v", err)
	}

	if len(ctx.Sections) != 2 {
		t.Fatalf("loaded %d sections, expected 2", len(ctx.Sections))
	}
	if ctx.Sections[0].ROMAddr != 0x1000 || ctx.Sections[0].RAMAddr != 0x80000400 {
		t.Fatalf("text section = %+v", ctx.Sections[0])
	}
	if ctx.Sections[1].ROMAddr != ROM_ADDR_NONE {
		t.Fatalf("bss section rom addr = 0x%X, expected the absent sentinel", ctx.Sections[1].ROMAddr)
	}

	if len(ctx.Functions) != 2 {
		t.Fatalf("loaded %d functions, expected 2", len(ctx.Functions))
	}
	fn, ok := ctx.FunctionsByName["osGetCount"]
	if !ok {
		t.Fatalf("osGetCount not indexed by name")
	}
	if ctx.Functions[fn].VRAM != 0x80000440 || len(ctx.Functions[fn].Words) != 4 {
		t.Fatalf("osGetCount = %+v", ctx.Functions[fn])
	}
}

// TestFromSymbolFileRejectsOutOfSection fails functions outside their
// section's range.
func TestFromSymbolFileRejectsOutOfSection(t *testing.T) {
	path := writeSymbolFile(t, `
[[section]]
name = ".text"
rom = 0x1000
vram = 0x80000400
size = 0x10
functions = [
    { name = "too_far", vram = 0x80000800, size = 0x10 },
]
`)
	ctx := NewContext()
	if err := FromSymbolFile(path, nil, ctx); err == nil {
		t.Fatalf("expected out-of-section error")
	}
}

// TestFromSymbolFileReferenceImport wires the loader output through the
// reference import, matching the mod front end flow.
func TestFromSymbolFileReferenceImport(t *testing.T) {
	path := writeSymbolFile(t, testSymbolToml)
	ref := NewContext()
	if err := FromSymbolFile(path, nil, ref); err != nil {
		t.Fatalf("FromSymbolFile: %v", err)
	}

	ctx := NewContext()
	ctx.ImportReferenceContext(ref)
	if len(ctx.ReferenceSymbols) != 2 {
		t.Fatalf("imported %d reference symbols, expected 2", len(ctx.ReferenceSymbols))
	}
	sym, err := ctx.GetReferenceSymbol(0, 1)
	if err != nil || sym.Name != "osGetCount" || sym.SectionOffset != 0x40 {
		t.Fatalf("reference symbol 1 = %+v (err %v)", sym, err)
	}

	byROM := ref.SectionsByROM()
	if byROM[0x1000] != 0 {
		t.Fatalf("sections-by-rom lookup broken: %v", byROM)
	}
}
