// merger_test.go - Mod context merge laws

package recomp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// contextSnapshot captures the merge-visible state of a context for
// structural comparison.
type contextSnapshot struct {
	ROM              []byte
	Sections         []Section
	Functions        []Function
	ImportSymbols    []ImportSymbol
	ExportedFuncs    []uint32
	EventSymbols     []EventSymbol
	DependencyEvents []DependencyEvent
	Callbacks        []Callback
	Hooks            []FunctionHook
	Replacements     []FunctionReplacement
	Dependencies     []string
}

func snapshotTables(ctx *Context) contextSnapshot {
	return contextSnapshot{
		ROM:              append([]byte(nil), ctx.ROM...),
		Sections:         append([]Section(nil), ctx.Sections...),
		Functions:        append([]Function(nil), ctx.Functions...),
		ImportSymbols:    append([]ImportSymbol(nil), ctx.ImportSymbols...),
		ExportedFuncs:    append([]uint32(nil), ctx.ExportedFuncs...),
		EventSymbols:     append([]EventSymbol(nil), ctx.EventSymbols...),
		DependencyEvents: append([]DependencyEvent(nil), ctx.DependencyEvents...),
		Callbacks:        append([]Callback(nil), ctx.Callbacks...),
		Hooks:            append([]FunctionHook(nil), ctx.Hooks...),
		Replacements:     append([]FunctionReplacement(nil), ctx.Replacements...),
		Dependencies:     append([]string(nil), ctx.Dependencies...),
	}
}

// mergerTestMod builds one small mod context: a single section at rom 0x1000
// with one function and one import of the named dependency.
func mergerTestMod(ref *Context, dep string, importName string) *Context {
	ctx := NewContext()
	ctx.ROM = buildModROM(0x1020)
	ctx.ImportReferenceContext(ref)
	ctx.Sections = append(ctx.Sections, Section{
		ROMAddr:         0x1000,
		RAMAddr:         0x81000000,
		Size:            0x20,
		BSSSectionIndex: SECTION_NONE,
		Executable:      true,
		Relocs: []Reloc{
			{SectionOffset: 0, Type: R_MIPS_26, TargetSection: SECTION_IMPORT, SymbolIndex: 0},
			{SectionOffset: 4, Type: R_MIPS_HI16, TargetSection: 0, TargetSectionOffset: 8},
		},
	})
	ctx.SectionFunctions = make([][]uint32, 1)
	ctx.AddFunction(Function{VRAM: 0x81000000, ROM: 0x1000, Words: []uint32{0x03E00008, 0}, SectionIndex: 0})
	depIndex := ctx.AddDependency(dep)
	ctx.ImportSymbols = append(ctx.ImportSymbols, ImportSymbol{Name: importName, DependencyIndex: depIndex})
	ctx.EventSymbols = append(ctx.EventSymbols, EventSymbol{Name: "ev_" + importName})
	ctx.Hooks = append(ctx.Hooks, FunctionHook{FuncIndex: 0, Flags: HOOK_AT_ENTRY})
	ctx.Replacements = append(ctx.Replacements, FunctionReplacement{FuncIndex: 0, TargetVRAM: 0x80000400})
	return ctx
}

// TestMergeIdentity merges an empty context into a populated one; nothing
// may change.
func TestMergeIdentity(t *testing.T) {
	ref := buildReferenceContext()
	merged := NewContext()
	merged.ImportReferenceContext(ref)
	CopyIntoContext(merged, mergerTestMod(ref, "core", "core_alloc"))

	before := snapshotTables(merged)
	if !CopyIntoContext(merged, NewContext()) {
		t.Fatalf("merge of empty context failed")
	}
	after := snapshotTables(merged)

	if diff := cmp.Diff(before, after, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("identity merge changed the context: %s", diff)
	}
}

// TestMergeShiftLaw verifies the index rewrites: section indices shift by
// the prior section count, rom addresses by the prior rom size, and regular
// reloc targets follow.
func TestMergeShiftLaw(t *testing.T) {
	ref := buildReferenceContext()
	merged := NewContext()
	merged.ImportReferenceContext(ref)

	modA := mergerTestMod(ref, "core", "core_alloc")
	modB := mergerTestMod(ref, "core", "core_free")
	CopyIntoContext(merged, modA)
	romOffset := uint32(len(modA.ROM))
	CopyIntoContext(merged, modB)

	if len(merged.Sections) != 2 {
		t.Fatalf("merged %d sections, expected 2", len(merged.Sections))
	}

	// Mod B's function image.
	fn := &merged.Functions[1]
	if fn.SectionIndex != 1 {
		t.Fatalf("second function section index %d, expected 1", fn.SectionIndex)
	}
	if fn.ROM != 0x1000+romOffset {
		t.Fatalf("second function rom 0x%X, expected 0x%X", fn.ROM, 0x1000+romOffset)
	}
	if merged.Sections[1].ROMAddr != 0x1000+romOffset {
		t.Fatalf("second section rom 0x%X, expected 0x%X", merged.Sections[1].ROMAddr, 0x1000+romOffset)
	}

	// Regular reloc targets shift with their section; sentinels do not.
	relocs := merged.Sections[1].Relocs
	if relocs[0].TargetSection != SECTION_IMPORT {
		t.Fatalf("sentinel reloc target rewritten to %d", relocs[0].TargetSection)
	}
	if relocs[1].TargetSection != 1 {
		t.Fatalf("regular reloc target %d, expected 1", relocs[1].TargetSection)
	}

	// Function-carrying tables were rewritten through the function offset.
	if merged.Hooks[1].FuncIndex != 1 || merged.Replacements[1].FuncIndex != 1 {
		t.Fatalf("hook/replacement indices not shifted: %+v %+v", merged.Hooks[1], merged.Replacements[1])
	}

	// Every index in the merged context resolves within it.
	for si := range merged.Sections {
		for _, reloc := range merged.Sections[si].Relocs {
			if IsRegularSection(reloc.TargetSection) && !reloc.ReferenceSymbol {
				if int(reloc.TargetSection) >= len(merged.Sections) {
					t.Fatalf("reloc target %d outside merged context", reloc.TargetSection)
				}
			}
		}
	}
	for _, fi := range merged.SectionFunctions[1] {
		if merged.Functions[fi].SectionIndex != 1 {
			t.Fatalf("section function list broken for merged section")
		}
	}
}

// TestMergeDedupe covers the S5 scenario: shared dependency names collapse,
// import symbols dedupe on (dependency, name).
func TestMergeDedupe(t *testing.T) {
	ref := buildReferenceContext()

	// Same import name in both mods: one merged import.
	merged := NewContext()
	merged.ImportReferenceContext(ref)
	CopyIntoContext(merged, mergerTestMod(ref, "core", "core_alloc"))
	CopyIntoContext(merged, mergerTestMod(ref, "core", "core_alloc"))

	if len(merged.Dependencies) != 1 {
		t.Fatalf("merged %d dependencies, expected 1", len(merged.Dependencies))
	}
	if len(merged.ImportSymbols) != 1 {
		t.Fatalf("merged %d imports, expected 1 (same name dedupes)", len(merged.ImportSymbols))
	}
	if len(merged.Functions) != 2 || len(merged.Sections) != 2 {
		t.Fatalf("merged %d functions / %d sections, expected 2/2", len(merged.Functions), len(merged.Sections))
	}
	if merged.Functions[0].SectionIndex != 0 || merged.Functions[1].SectionIndex != 1 {
		t.Fatalf("function section indices %d/%d, expected 0/1",
			merged.Functions[0].SectionIndex, merged.Functions[1].SectionIndex)
	}
	// Both import relocs resolve to the single merged import.
	if merged.Sections[1].Relocs[0].SymbolIndex != 0 {
		t.Fatalf("second mod's import reloc remapped to %d, expected 0", merged.Sections[1].Relocs[0].SymbolIndex)
	}

	// Different import names: two imports, one dependency.
	merged = NewContext()
	merged.ImportReferenceContext(ref)
	CopyIntoContext(merged, mergerTestMod(ref, "core", "core_alloc"))
	CopyIntoContext(merged, mergerTestMod(ref, "core", "core_free"))

	if len(merged.Dependencies) != 1 || len(merged.ImportSymbols) != 2 {
		t.Fatalf("merged %d deps / %d imports, expected 1/2", len(merged.Dependencies), len(merged.ImportSymbols))
	}

	// Each mod's event symbol is appended: two events in total.
	if len(merged.EventSymbols) != 2 {
		t.Fatalf("merged %d events, expected 2", len(merged.EventSymbols))
	}
}

// TestMergeRoundTripsThroughCodec merges two mods and feeds the result back
// through the symbol codec, mirroring the merger front end.
func TestMergeRoundTripsThroughCodec(t *testing.T) {
	ref := buildReferenceContext()
	merged := NewContext()
	merged.ImportReferenceContext(ref)
	CopyIntoContext(merged, mergerTestMod(ref, "core", "core_alloc"))
	CopyIntoContext(merged, mergerTestMod(ref, "extras", "extras_draw"))

	bin := SymbolsToBinV1(merged)
	parsed := NewContext()
	if status := ParseModSymbols(bin, merged.ROM, ref.SectionsByROM(), parsed); status != MOD_SYMS_GOOD {
		t.Fatalf("re-parse of merged symbols: %v", status)
	}
	if len(parsed.Sections) != 2 || len(parsed.Functions) != 2 || len(parsed.ImportSymbols) != 2 {
		t.Fatalf("re-parsed shape %d/%d/%d", len(parsed.Sections), len(parsed.Functions), len(parsed.ImportSymbols))
	}
}
