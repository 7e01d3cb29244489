// emitter_test.go - Translation unit preamble and naming tests

package recomp

import (
	"bytes"
	"strings"
	"testing"
)

// TestModEmitterPreamble checks the runtime binding tables of an empty mod:
// every array still has at least one element, the API version is exported,
// and the runtime service pointers are present.
func TestModEmitterPreamble(t *testing.T) {
	ref := buildReferenceContext()
	ctx := NewContext()
	ctx.ImportReferenceContext(ref)

	var buf bytes.Buffer
	if err := RecompileMod(ctx, &buf); err != nil {
		t.Fatalf("RecompileMod: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"#include \"mod_recomp.h\"",
		"RECOMP_EXPORT uint32_t recomp_api_version = 1;",
		"RECOMP_EXPORT recomp_func_t* imported_funcs[1] = {0};",
		"RECOMP_EXPORT recomp_func_t* reference_symbol_funcs[1] = {0};",
		"RECOMP_EXPORT uint32_t base_event_index;",
		"RECOMP_EXPORT void (*recomp_trigger_event)(uint8_t* rdram, recomp_context* ctx, uint32_t) = NULL;",
		"RECOMP_EXPORT recomp_func_t* (*get_function)(int32_t vram) = NULL;",
		"RECOMP_EXPORT void (*cop0_status_write)(recomp_context* ctx, gpr value) = NULL;",
		"RECOMP_EXPORT gpr (*cop0_status_read)(recomp_context* ctx) = NULL;",
		"RECOMP_EXPORT void (*switch_error)(const char* func, uint32_t vram, uint32_t jtbl) = NULL;",
		"RECOMP_EXPORT void (*do_break)(uint32_t vram) = NULL;",
		"RECOMP_EXPORT int32_t* reference_section_addresses = NULL;",
		"RECOMP_EXPORT int32_t section_addresses[1] = {0};",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("preamble missing %q in:\n%s", want, out)
		}
	}
}

// TestModEmitterTwoPassNaming renames non-exported functions mod_func_<N>
// while exported functions keep their symbol names, and call sites agree
// with the prototypes.
func TestModEmitterTwoPassNaming(t *testing.T) {
	ref := buildReferenceContext()
	ctx := NewContext()
	ctx.ImportReferenceContext(ref)
	ctx.Sections = append(ctx.Sections, Section{
		ROMAddr: 0, RAMAddr: 0x81000000, Size: 0x20, Executable: true,
	})
	ctx.SectionFunctions = make([][]uint32, 1)
	// Function 0 calls function 1.
	ctx.AddFunction(Function{
		VRAM: 0x81000000,
		Words: []uint32{
			0x0C000000 | (0x81000010>>2)&0x03FFFFFF, // jal 0x81000010
			0x00000000,
			0x03E00008,
			0x00000000,
		},
		SectionIndex: 0,
	})
	ctx.AddFunction(Function{
		VRAM:         0x81000010,
		Words:        []uint32{0x03E00008, 0x00000000},
		Name:         "exported_entry",
		SectionIndex: 0,
	})
	ctx.ExportedFuncs = append(ctx.ExportedFuncs, 1)

	var buf bytes.Buffer
	if err := RecompileMod(ctx, &buf); err != nil {
		t.Fatalf("RecompileMod: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "RECOMP_FUNC void mod_func_0(uint8_t* rdram, recomp_context* ctx);") {
		t.Fatalf("unexported function not renamed:\n%s", out)
	}
	if !strings.Contains(out, "RECOMP_FUNC void exported_entry(uint8_t* rdram, recomp_context* ctx);") {
		t.Fatalf("export renamed:\n%s", out)
	}
	if !strings.Contains(out, "exported_entry(rdram, ctx);") {
		t.Fatalf("call site does not use the export name:\n%s", out)
	}
}

// TestModEmitterReferenceSymbolDefines: first use of each reference symbol
// claims a slot define; duplicates are counted but not re-defined.
func TestModEmitterReferenceSymbolDefines(t *testing.T) {
	ref := buildReferenceContext()
	ctx := NewContext()
	ctx.ImportReferenceContext(ref)
	ctx.Sections = append(ctx.Sections, Section{
		ROMAddr: 0, RAMAddr: 0x81000000, Size: 0x20, Executable: true,
		Relocs: []Reloc{
			{SectionOffset: 0x0, Type: R_MIPS_26, TargetSection: 0, TargetSectionOffset: 0x10, ReferenceSymbol: true},
			{SectionOffset: 0x8, Type: R_MIPS_26, TargetSection: 0, TargetSectionOffset: 0x10, ReferenceSymbol: true},
		},
	})
	ctx.SectionFunctions = make([][]uint32, 1)
	ctx.AddFunction(Function{
		VRAM: 0x81000000,
		Words: []uint32{
			0x0C000000, 0x00000000, // jal ref_helper; nop
			0x0C000000, 0x00000000, // jal ref_helper; nop
			0x03E00008, 0x00000000,
		},
		SectionIndex: 0,
	})
	if err := ctx.BindReferenceRelocs(); err != nil {
		t.Fatalf("BindReferenceRelocs: %v", err)
	}

	var buf bytes.Buffer
	if err := RecompileMod(ctx, &buf); err != nil {
		t.Fatalf("RecompileMod: %v", err)
	}
	out := buf.String()

	if strings.Count(out, "#define ref_helper reference_symbol_funcs[0]") != 1 {
		t.Fatalf("reference symbol define missing or duplicated:\n%s", out)
	}
	// Two call sites counted: the array spans both slots.
	if !strings.Contains(out, "RECOMP_EXPORT recomp_func_t* reference_symbol_funcs[2] = {0};") {
		t.Fatalf("reference symbol array sized wrong:\n%s", out)
	}
	if strings.Count(out, "ref_helper(rdram, ctx);") != 2 {
		t.Fatalf("reference calls missing:\n%s", out)
	}
}

// TestRecompileAllStaticMode emits the section address table and generated
// names for unnamed functions.
func TestRecompileAllStaticMode(t *testing.T) {
	ctx := NewContext()
	ctx.Sections = append(ctx.Sections, Section{
		Name: ".text", RAMAddr: 0x80000400, ROMAddr: 0x1000, Size: 0x20, Executable: true,
	})
	ctx.SectionFunctions = make([][]uint32, 1)
	ctx.AddFunction(Function{
		VRAM:         0x80000400,
		Words:        []uint32{0x03E00008, 0x00000000},
		SectionIndex: 0,
	})

	var buf bytes.Buffer
	if err := RecompileAll(ctx, &buf); err != nil {
		t.Fatalf("RecompileAll: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "(int32_t)0x80000400,") {
		t.Fatalf("section address table missing:\n%s", out)
	}
	if !strings.Contains(out, "RECOMP_FUNC void func_80000400(uint8_t* rdram, recomp_context* ctx)") {
		t.Fatalf("generated function name missing:\n%s", out)
	}
}
