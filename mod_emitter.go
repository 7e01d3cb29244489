// mod_emitter.go - Loadable mod translation unit emitter

package recomp

import (
	"fmt"
	"io"
)

// RecompileMod writes the complete C translation unit for a mod context:
// the runtime binding preamble, then every function in two passes. Pass one
// names all non-exported functions so pass two's call sites resolve
// consistently.
func RecompileMod(ctx *Context, w io.Writer) error {
	out := &cWriter{w: w}

	out.linef("#include \"mod_recomp.h\"")
	out.linef("")
	out.linef("RECOMP_EXPORT uint32_t recomp_api_version = 1;")
	out.linef("")
	out.linef("// Values populated by the runtime:")
	out.linef("")

	// Import function pointer array with defines aliasing their names.
	out.linef("// Array of pointers to imported functions with defines to alias their names.")
	numImports := len(ctx.ImportSymbols)
	for importIndex, sym := range ctx.ImportSymbols {
		out.linef("#define %s imported_funcs[%d]", sym.Name, importIndex)
	}
	out.linef("RECOMP_EXPORT recomp_func_t* imported_funcs[%d] = {0};", maxInt(1, numImports))
	out.linef("")

	// Reference symbol function pointer array, driven by the reloc list.
	// Duplicate call targets keep their first slot's define; later slots stay
	// unreferenced, which is fine for offline mod recompilation.
	out.linef("// Array of pointers to functions from the original ROM with defines to alias their names.")
	writtenReferenceSymbols := make(map[string]bool)
	numReferenceSymbols := 0
	for si := range ctx.Sections {
		for ri := range ctx.Sections[si].Relocs {
			reloc := &ctx.Sections[si].Relocs[ri]
			if reloc.Type != R_MIPS_26 || !reloc.ReferenceSymbol || !ctx.IsRegularReferenceSection(reloc.TargetSection) {
				continue
			}
			sym, err := ctx.GetReferenceSymbol(reloc.TargetSection, reloc.SymbolIndex)
			if err != nil {
				return fmt.Errorf("internal error: mod emitter: %v", err)
			}
			if !writtenReferenceSymbols[sym.Name] {
				out.linef("#define %s reference_symbol_funcs[%d]", sym.Name, numReferenceSymbols)
				writtenReferenceSymbols[sym.Name] = true
			}
			numReferenceSymbols++
		}
	}
	// C doesn't allow zero-sized arrays, so every table has at least one
	// member. The true sizes come from the mod symbols.
	out.linef("RECOMP_EXPORT recomp_func_t* reference_symbol_funcs[%d] = {0};", maxInt(1, numReferenceSymbols))
	out.linef("")

	out.linef("// Base global event index for this mod's events.")
	out.linef("RECOMP_EXPORT uint32_t base_event_index;")
	out.linef("")
	out.linef("// Pointer to the runtime function for triggering events.")
	out.linef("RECOMP_EXPORT void (*recomp_trigger_event)(uint8_t* rdram, recomp_context* ctx, uint32_t) = NULL;")
	out.linef("")
	out.linef("// Pointer to the runtime function for looking up functions from vram address.")
	out.linef("RECOMP_EXPORT recomp_func_t* (*get_function)(int32_t vram) = NULL;")
	out.linef("")
	out.linef("// Pointer to the runtime function for running registered function hooks.")
	out.linef("RECOMP_EXPORT void (*recomp_run_hook)(uint8_t* rdram, recomp_context* ctx, uint32_t hook_id) = NULL;")
	out.linef("")
	out.linef("// Pointer to the runtime function for performing a cop0 status register write.")
	out.linef("RECOMP_EXPORT void (*cop0_status_write)(recomp_context* ctx, gpr value) = NULL;")
	out.linef("")
	out.linef("// Pointer to the runtime function for performing a cop0 status register read.")
	out.linef("RECOMP_EXPORT gpr (*cop0_status_read)(recomp_context* ctx) = NULL;")
	out.linef("")
	out.linef("// Pointer to the runtime function for reporting switch case errors.")
	out.linef("RECOMP_EXPORT void (*switch_error)(const char* func, uint32_t vram, uint32_t jtbl) = NULL;")
	out.linef("")
	out.linef("// Pointer to the runtime function for handling the break instruction.")
	out.linef("RECOMP_EXPORT void (*do_break)(uint32_t vram) = NULL;")
	out.linef("")
	out.linef("// Pointer to the runtime's array of loaded section addresses for the base ROM.")
	out.linef("RECOMP_EXPORT int32_t* reference_section_addresses = NULL;")
	out.linef("")
	out.linef("// Array of this mod's loaded section addresses.")
	out.linef("RECOMP_EXPORT int32_t section_addresses[%d] = {0};", maxInt(1, len(ctx.Sections)))
	out.linef("")

	if out.err != nil {
		return out.err
	}

	// Exported functions keep their symbol file names.
	exportIndices := make(map[uint32]bool, len(ctx.ExportedFuncs))
	for _, fi := range ctx.ExportedFuncs {
		exportIndices[fi] = true
	}

	// Pass one: name everything and emit prototypes.
	out.linef("// Function prototypes.")
	for funcIndex := range ctx.Functions {
		fn := &ctx.Functions[funcIndex]
		if !exportIndices[uint32(funcIndex)] {
			fn.Name = fmt.Sprintf("mod_func_%d", funcIndex)
		}
		if fn.IgnoreFunc || fn.Reimplemented {
			continue
		}
		out.linef("RECOMP_FUNC void %s(uint8_t* rdram, recomp_context* ctx);", fn.Name)
	}
	out.linef("")
	if out.err != nil {
		return out.err
	}

	// Pass two: recompile every function body.
	staticFuncsBySection := make([][]uint32, len(ctx.Sections))
	for funcIndex := range ctx.Functions {
		if err := RecompileFunction(ctx, uint32(funcIndex), w, staticFuncsBySection, true); err != nil {
			return err
		}
	}
	return out.err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
