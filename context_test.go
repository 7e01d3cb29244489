// context_test.go - Context and reference import tests

package recomp

import (
	"strings"
	"testing"
)

// buildReferenceContext makes a small base-ROM context: one text section
// with two functions.
func buildReferenceContext() *Context {
	ref := NewContext()
	ref.Sections = append(ref.Sections, Section{
		Name:       ".text",
		ROMAddr:    0x1000,
		RAMAddr:    0x80000400,
		Size:       0x100,
		Executable: true,
	})
	ref.SectionFunctions = append(ref.SectionFunctions, nil)
	ref.AddFunction(Function{
		VRAM:         0x80000400,
		ROM:          0x1000,
		Words:        make([]uint32, 4),
		Name:         "ref_entry",
		SectionIndex: 0,
	})
	ref.AddFunction(Function{
		VRAM:         0x80000410,
		ROM:          0x1010,
		Words:        make([]uint32, 4),
		Name:         "ref_helper",
		SectionIndex: 0,
	})
	return ref
}

// TestImportReferenceContext verifies the value copy and index addressing of
// imported reference data.
func TestImportReferenceContext(t *testing.T) {
	ref := buildReferenceContext()
	ctx := NewContext()
	ctx.ImportReferenceContext(ref)

	if len(ctx.ReferenceSections) != 1 {
		t.Fatalf("imported %d reference sections, expected 1", len(ctx.ReferenceSections))
	}
	if len(ctx.ReferenceSymbols) != 2 {
		t.Fatalf("imported %d reference symbols, expected 2", len(ctx.ReferenceSymbols))
	}

	sym, err := ctx.GetReferenceSymbol(0, 1)
	if err != nil {
		t.Fatalf("GetReferenceSymbol: %v", err)
	}
	if sym.Name != "ref_helper" || sym.SectionOffset != 0x10 || !sym.IsFunction {
		t.Fatalf("reference symbol 1 = %+v", sym)
	}

	// Mutating the source context must not affect the imported copy.
	ref.Sections[0].RAMAddr = 0
	if vram, _ := ctx.ReferenceSectionVRAM(0); vram != 0x80000400 {
		t.Fatalf("reference section vram changed with source mutation: 0x%08X", vram)
	}
}

// TestBindReferenceRelocs exercises the R_MIPS_26 fix-up pass: after
// binding, the reloc's symbol index names a reference symbol in the reloc's
// own target section at the target address.
func TestBindReferenceRelocs(t *testing.T) {
	ref := buildReferenceContext()
	ctx := NewContext()
	ctx.Sections = append(ctx.Sections, Section{
		RAMAddr:    0x81000000,
		ROMAddr:    0,
		Size:       0x10,
		Executable: true,
		Relocs: []Reloc{{
			SectionOffset:       0,
			Type:                R_MIPS_26,
			TargetSection:       0,
			TargetSectionOffset: 0x10,
			ReferenceSymbol:     true,
			SymbolIndex:         0xDEAD,
		}},
	})
	ctx.ImportReferenceContext(ref)

	if err := ctx.BindReferenceRelocs(); err != nil {
		t.Fatalf("BindReferenceRelocs: %v", err)
	}

	reloc := &ctx.Sections[0].Relocs[0]
	sym := &ctx.ReferenceSymbols[reloc.SymbolIndex]
	if sym.SectionIndex != reloc.TargetSection {
		t.Fatalf("bound symbol section %d != reloc target %d", sym.SectionIndex, reloc.TargetSection)
	}
	if sym.SectionOffset != reloc.TargetSectionOffset {
		t.Fatalf("bound symbol offset 0x%X != reloc offset 0x%X", sym.SectionOffset, reloc.TargetSectionOffset)
	}
}

// TestBindReferenceRelocsUnmatched requires a fatal error when no reference
// symbol exists at the target address.
func TestBindReferenceRelocsUnmatched(t *testing.T) {
	ref := buildReferenceContext()
	ctx := NewContext()
	ctx.Sections = append(ctx.Sections, Section{
		RAMAddr: 0x81000000,
		Size:    0x10,
		Relocs: []Reloc{{
			Type:                R_MIPS_26,
			TargetSection:       0,
			TargetSectionOffset: 0x44, // nothing lives here
			ReferenceSymbol:     true,
		}},
	})
	ctx.ImportReferenceContext(ref)

	err := ctx.BindReferenceRelocs()
	if err == nil {
		t.Fatalf("expected binding failure for unmatched reloc")
	}
	if !strings.Contains(err.Error(), "R_MIPS_26") {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestFunctionsByVRAMOverlays allows duplicate start addresses.
func TestFunctionsByVRAMOverlays(t *testing.T) {
	ctx := NewContext()
	ctx.Sections = append(ctx.Sections, Section{RAMAddr: 0x80000000, Size: 0x100})
	ctx.AddFunction(Function{VRAM: 0x80000000, SectionIndex: 0, Words: make([]uint32, 1)})
	ctx.AddFunction(Function{VRAM: 0x80000000, SectionIndex: 0, Words: make([]uint32, 1)})

	if got := len(ctx.FunctionsAtVRAM(0x80000000)); got != 2 {
		t.Fatalf("FunctionsAtVRAM listed %d entries, expected 2 (overlays)", got)
	}
}

// TestAddDependencyDedupes interns dependency ids.
func TestAddDependencyDedupes(t *testing.T) {
	ctx := NewContext()
	a := ctx.AddDependency("core")
	b := ctx.AddDependency("extras")
	c := ctx.AddDependency("core")
	if a != c || a == b || len(ctx.Dependencies) != 2 {
		t.Fatalf("dependency interning broken: a=%d b=%d c=%d deps=%v", a, b, c, ctx.Dependencies)
	}
}
