// emitter.go - Whole-ROM translation unit emitter

package recomp

import (
	"bytes"
	"fmt"
	"io"
	"sort"
)

// RecompileAll writes the C translation of every function in a statically
// addressed context. Pass one names everything; pass two recompiles bodies
// into a staging buffer so that functions discovered only as call targets
// can still get prototypes ahead of the first call site.
func RecompileAll(ctx *Context, w io.Writer) error {
	// Pass one: give unnamed functions a stable generated name.
	for funcIndex := range ctx.Functions {
		fn := &ctx.Functions[funcIndex]
		if fn.Name == "" {
			fn.Name = fmt.Sprintf("func_%08X", fn.VRAM)
		}
	}

	// Pass two: bodies, staged.
	var bodies bytes.Buffer
	staticFuncsBySection := make([][]uint32, len(ctx.Sections))
	for funcIndex := range ctx.Functions {
		if err := RecompileFunction(ctx, uint32(funcIndex), &bodies, staticFuncsBySection, false); err != nil {
			return err
		}
	}

	// Dedupe the call-target-only functions per section, in address order.
	for sectionIndex, vrams := range staticFuncsBySection {
		seen := make(map[uint32]bool)
		unique := vrams[:0]
		for _, vram := range vrams {
			if !seen[vram] {
				seen[vram] = true
				unique = append(unique, vram)
			}
		}
		sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
		staticFuncsBySection[sectionIndex] = unique
	}

	out := &cWriter{w: w}
	out.linef("#include \"recomp.h\"")
	out.linef("")

	out.linef("// Load addresses of every section.")
	out.linef("RECOMP_EXPORT int32_t section_addresses[%d] = {", maxInt(1, len(ctx.Sections)))
	if len(ctx.Sections) == 0 {
		out.linef("    0,")
	}
	for i := range ctx.Sections {
		out.linef("    (int32_t)0x%08X,", ctx.Sections[i].RAMAddr)
	}
	out.linef("};")
	out.linef("")

	out.linef("// Function prototypes.")
	for funcIndex := range ctx.Functions {
		fn := &ctx.Functions[funcIndex]
		if fn.Reimplemented || fn.IgnoreFunc {
			continue
		}
		out.linef("RECOMP_FUNC void %s(uint8_t* rdram, recomp_context* ctx);", fn.Name)
	}
	for sectionIndex, vrams := range staticFuncsBySection {
		for _, vram := range vrams {
			out.linef("RECOMP_FUNC void %s(uint8_t* rdram, recomp_context* ctx);", staticFuncName(uint16(sectionIndex), vram))
		}
	}
	out.linef("")
	if out.err != nil {
		return out.err
	}

	if _, err := io.Copy(w, &bodies); err != nil {
		return err
	}

	// Call-target-only functions delegate to the runtime lookup.
	for sectionIndex, vrams := range staticFuncsBySection {
		for _, vram := range vrams {
			out.linef("RECOMP_FUNC void %s(uint8_t* rdram, recomp_context* ctx) {", staticFuncName(uint16(sectionIndex), vram))
			out.linef("    get_function((int32_t)0x%08X)(rdram, ctx);", vram)
			out.linef("}")
			out.linef("")
		}
	}

	return out.err
}
