// recompiler.go - Per-function MIPS to C translation

/*
(c) 2024 - 2025 Zayn Otley
https://github.com/IntuitionAmiga/RecompEngine

License: GPLv3 or later
*/

package recomp

import (
	"fmt"
	"io"
)

// cWriter accumulates emitted C and remembers the first write error so the
// emission code can stay free of error plumbing.
type cWriter struct {
	w   io.Writer
	err error
}

func (c *cWriter) linef(format string, args ...interface{}) {
	if c.err != nil {
		return
	}
	_, c.err = fmt.Fprintf(c.w, format+"\n", args...)
}

// gpr renders a general purpose register read.
func gpr(n uint8) string {
	return fmt.Sprintf("ctx->r[%d]", n)
}

// funcRecompiler carries the per-function emission state.
type funcRecompiler struct {
	ctx        *Context
	fn         *Function
	section    *Section
	out        *cWriter
	isMod      bool
	labels     map[uint32]bool
	relocs     map[uint32]*Reloc
	jumpTables map[uint32]*JumpTable
	statics    [][]uint32
}

// RecompileFunction translates one function into C. staticFuncsBySection
// collects the start addresses of functions discovered only as call targets;
// the whole-ROM emitter gives those delegate bodies that forward to
// get_function afterwards. isMod selects
// runtime-relocated addressing over static addresses.
func RecompileFunction(ctx *Context, funcIndex uint32, w io.Writer, staticFuncsBySection [][]uint32, isMod bool) error {
	fn := &ctx.Functions[funcIndex]
	if fn.IgnoreFunc || fn.Reimplemented {
		return nil
	}
	section := &ctx.Sections[fn.SectionIndex]

	r := &funcRecompiler{
		ctx:        ctx,
		fn:         fn,
		section:    section,
		out:        &cWriter{w: w},
		isMod:      isMod,
		labels:     make(map[uint32]bool),
		relocs:     make(map[uint32]*Reloc),
		jumpTables: make(map[uint32]*JumpTable),
		statics:    staticFuncsBySection,
	}

	funcStart := fn.VRAM
	funcEnd := fn.VRAM + uint32(len(fn.Words))*4
	sectionOffset := fn.VRAM - section.RAMAddr

	for ri := range section.Relocs {
		reloc := &section.Relocs[ri]
		if reloc.SectionOffset >= sectionOffset && reloc.SectionOffset < sectionOffset+uint32(len(fn.Words))*4 {
			r.relocs[funcStart+(reloc.SectionOffset-sectionOffset)] = reloc
		}
	}

	for ti := range ctx.JumpTables {
		jt := &ctx.JumpTables[ti]
		if jt.JumpVRAM >= funcStart && jt.JumpVRAM < funcEnd {
			r.jumpTables[jt.JumpVRAM] = jt
			for _, entry := range jt.Entries {
				if entry >= funcStart && entry < funcEnd {
					r.labels[entry] = true
				}
			}
		}
	}

	decoder := NewDecoder(DecoderConfig{})
	needsHiLo := false
	needsBranchTemp := false
	needsJumpTemp := false
	for i, word := range fn.Words {
		ins := decoder.Decode(word, funcStart+uint32(i)*4)
		switch ins.Op {
		case OP_MULT, OP_MULTU, OP_DIV, OP_DIVU, OP_MFHI, OP_MFLO, OP_MTHI, OP_MTLO:
			needsHiLo = true
		}
		switch ins.Branch {
		case BRANCH_CONDITIONAL:
			needsBranchTemp = true
		case JALR:
			needsJumpTemp = true
		case JUMP_REGISTER:
			if ins.Rs != 31 {
				needsJumpTemp = true
			}
		}
		if ins.Branch == BRANCH_CONDITIONAL || ins.Branch == BRANCH_LIKELY {
			if ins.Target >= funcStart && ins.Target < funcEnd {
				r.labels[ins.Target] = true
			}
		}
		if ins.Op == OP_J && ins.Target >= funcStart && ins.Target < funcEnd {
			r.labels[ins.Target] = true
		}
	}

	if fn.Stubbed {
		r.out.linef("RECOMP_FUNC void %s(uint8_t* rdram, recomp_context* ctx) {", fn.Name)
		r.out.linef("    return;")
		r.out.linef("}")
		r.out.linef("")
		return r.out.err
	}

	r.out.linef("RECOMP_FUNC void %s(uint8_t* rdram, recomp_context* ctx) {", fn.Name)
	if needsHiLo {
		r.out.linef("    uint64_t hi = 0, lo = 0;")
	}
	if needsBranchTemp {
		r.out.linef("    int branch_taken = 0;")
	}
	if needsJumpTemp {
		r.out.linef("    uint64_t jump_target = 0;")
	}
	r.emitHookCall(funcIndex, HOOK_AT_ENTRY)

	i := 0
	for i < len(fn.Words) {
		vram := funcStart + uint32(i)*4
		ins := decoder.Decode(fn.Words[i], vram)

		if r.labels[vram] {
			// Trailing empty statement: C99 labels cannot precede a declaration.
			r.out.linef("L_%08X:;", vram)
		}
		r.out.linef("    // 0x%08X: %s", vram, decoder.Mnemonic(ins))

		if ins.IsBranch() {
			if i+1 >= len(fn.Words) {
				return fmt.Errorf("function %s: branch at 0x%08X has no delay slot", fn.Name, vram)
			}
			delayVRAM := vram + 4
			delay := decoder.Decode(fn.Words[i+1], delayVRAM)
			if delay.IsBranch() {
				return fmt.Errorf("function %s: branch in delay slot at 0x%08X", fn.Name, delayVRAM)
			}
			if r.labels[delayVRAM] {
				return fmt.Errorf("function %s: branch into delay slot at 0x%08X", fn.Name, delayVRAM)
			}
			if err := r.emitBranch(funcIndex, ins, delay, decoder); err != nil {
				return err
			}
			i += 2
			continue
		}

		if err := r.emitInstruction(ins, "    "); err != nil {
			return err
		}
		i++
	}

	// Fall off the end: return rather than continue into the next function.
	r.out.linef("    return;")
	r.out.linef("}")
	r.out.linef("")
	return r.out.err
}

// emitHookCall emits the runtime hook dispatch for functions with entry or
// return hooks registered.
func (r *funcRecompiler) emitHookCall(funcIndex uint32, flags uint32) {
	if !r.isMod {
		return
	}
	for hi := range r.ctx.Hooks {
		hook := &r.ctx.Hooks[hi]
		if hook.FuncIndex == funcIndex && hook.Flags == flags {
			r.out.linef("    recomp_run_hook(rdram, ctx, %d);", hi)
		}
	}
}

// relocTarget is a resolved reloc address: a known constant for static
// emission or a runtime section-relative expression for mods.
type relocTarget struct {
	expr   string
	value  uint32
	static bool
}

// relocAddr resolves the target address of a HI16/LO16/32 reloc.
func (r *funcRecompiler) relocAddr(reloc *Reloc) (relocTarget, error) {
	if reloc.TargetSection == SECTION_ABSOLUTE {
		return staticTarget(reloc.TargetSectionOffset), nil
	}
	if reloc.ReferenceSymbol {
		if !r.ctx.IsRegularReferenceSection(reloc.TargetSection) {
			return relocTarget{}, fmt.Errorf("reloc at offset 0x%X references invalid section %d", reloc.SectionOffset, reloc.TargetSection)
		}
		if r.isMod {
			return relocTarget{expr: fmt.Sprintf("(uint32_t)(reference_section_addresses[%d] + 0x%X)",
				reloc.TargetSection, reloc.TargetSectionOffset)}, nil
		}
		vram, err := r.ctx.ReferenceSectionVRAM(reloc.TargetSection)
		if err != nil {
			return relocTarget{}, err
		}
		return staticTarget(vram + reloc.TargetSectionOffset), nil
	}
	if !IsRegularSection(reloc.TargetSection) || int(reloc.TargetSection) >= len(r.ctx.Sections) {
		return relocTarget{}, fmt.Errorf("reloc at offset 0x%X targets invalid section %d", reloc.SectionOffset, reloc.TargetSection)
	}
	if r.isMod {
		return relocTarget{expr: fmt.Sprintf("(uint32_t)(section_addresses[%d] + 0x%X)",
			reloc.TargetSection, reloc.TargetSectionOffset)}, nil
	}
	return staticTarget(r.ctx.Sections[reloc.TargetSection].RAMAddr + reloc.TargetSectionOffset), nil
}

func staticTarget(value uint32) relocTarget {
	return relocTarget{expr: fmt.Sprintf("0x%08X", value), value: value, static: true}
}

// setGPR renders an assignment, suppressing writes to register zero.
func (r *funcRecompiler) setGPR(indent string, n uint8, expr string) {
	if n == 0 {
		return
	}
	r.out.linef("%s%s = %s;", indent, gpr(n), expr)
}

// emitInstruction translates one non-branch instruction.
func (r *funcRecompiler) emitInstruction(ins Instruction, indent string) error {
	reloc := r.relocs[ins.VRAM]

	switch ins.Op {
	case OP_NOP:
		return nil

	case OP_SLL:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(int32_t)((uint32_t)%s << %d)", gpr(ins.Rt), ins.Sa))
	case OP_SRL:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(int32_t)((uint32_t)%s >> %d)", gpr(ins.Rt), ins.Sa))
	case OP_SRA:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(int32_t)%s >> %d", gpr(ins.Rt), ins.Sa))
	case OP_SLLV:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(int32_t)((uint32_t)%s << (%s & 31))", gpr(ins.Rt), gpr(ins.Rs)))
	case OP_SRLV:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(int32_t)((uint32_t)%s >> (%s & 31))", gpr(ins.Rt), gpr(ins.Rs)))
	case OP_SRAV:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(int32_t)%s >> (%s & 31)", gpr(ins.Rt), gpr(ins.Rs)))
	case OP_DSLL:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("%s << %d", gpr(ins.Rt), ins.Sa))
	case OP_DSRL:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(uint64_t)%s >> %d", gpr(ins.Rt), ins.Sa))
	case OP_DSRA:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(int64_t)%s >> %d", gpr(ins.Rt), ins.Sa))
	case OP_DSLL32:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("%s << %d", gpr(ins.Rt), uint32(ins.Sa)+32))
	case OP_DSRL32:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(uint64_t)%s >> %d", gpr(ins.Rt), uint32(ins.Sa)+32))
	case OP_DSRA32:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(int64_t)%s >> %d", gpr(ins.Rt), uint32(ins.Sa)+32))

	case OP_ADD, OP_ADDU:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("ADD32(%s, %s)", gpr(ins.Rs), gpr(ins.Rt)))
	case OP_SUB, OP_SUBU:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("SUB32(%s, %s)", gpr(ins.Rs), gpr(ins.Rt)))
	case OP_AND:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("%s & %s", gpr(ins.Rs), gpr(ins.Rt)))
	case OP_OR:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("%s | %s", gpr(ins.Rs), gpr(ins.Rt)))
	case OP_XOR:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("%s ^ %s", gpr(ins.Rs), gpr(ins.Rt)))
	case OP_NOR:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("~(%s | %s)", gpr(ins.Rs), gpr(ins.Rt)))
	case OP_SLT:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(int64_t)%s < (int64_t)%s ? 1 : 0", gpr(ins.Rs), gpr(ins.Rt)))
	case OP_SLTU:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("(uint64_t)%s < (uint64_t)%s ? 1 : 0", gpr(ins.Rs), gpr(ins.Rt)))
	case OP_DADDU:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("%s + %s", gpr(ins.Rs), gpr(ins.Rt)))
	case OP_DSUBU:
		r.setGPR(indent, ins.Rd, fmt.Sprintf("%s - %s", gpr(ins.Rs), gpr(ins.Rt)))

	case OP_ADDI, OP_ADDIU, OP_DADDI, OP_DADDIU:
		if reloc != nil && reloc.Type == R_MIPS_LO16 {
			// The HI16/LO16 pair collapses to the full symbol address.
			target, err := r.relocAddr(reloc)
			if err != nil {
				return err
			}
			r.setGPR(indent, ins.Rt, fmt.Sprintf("(int32_t)%s", target.expr))
			return nil
		}
		if ins.Rs == 0 {
			r.setGPR(indent, ins.Rt, fmt.Sprintf("(int32_t)%d", ins.SImm))
		} else if ins.Op == OP_DADDI || ins.Op == OP_DADDIU {
			r.setGPR(indent, ins.Rt, fmt.Sprintf("%s + %d", gpr(ins.Rs), ins.SImm))
		} else {
			r.setGPR(indent, ins.Rt, fmt.Sprintf("ADD32(%s, %d)", gpr(ins.Rs), ins.SImm))
		}
	case OP_SLTI:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("(int64_t)%s < %d ? 1 : 0", gpr(ins.Rs), ins.SImm))
	case OP_SLTIU:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("(uint64_t)%s < (uint64_t)(int64_t)%d ? 1 : 0", gpr(ins.Rs), ins.SImm))
	case OP_ANDI:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("%s & 0x%X", gpr(ins.Rs), ins.Imm))
	case OP_ORI:
		if reloc != nil && reloc.Type == R_MIPS_LO16 {
			target, err := r.relocAddr(reloc)
			if err != nil {
				return err
			}
			r.setGPR(indent, ins.Rt, fmt.Sprintf("%s | ((uint32_t)%s & 0xFFFF)", gpr(ins.Rs), target.expr))
			return nil
		}
		r.setGPR(indent, ins.Rt, fmt.Sprintf("%s | 0x%X", gpr(ins.Rs), ins.Imm))
	case OP_XORI:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("%s ^ 0x%X", gpr(ins.Rs), ins.Imm))
	case OP_LUI:
		if reloc != nil && reloc.Type == R_MIPS_HI16 {
			target, err := r.relocAddr(reloc)
			if err != nil {
				return err
			}
			if target.static {
				r.setGPR(indent, ins.Rt, fmt.Sprintf("(int32_t)0x%08X", (target.value+0x8000)&0xFFFF0000))
			} else {
				r.setGPR(indent, ins.Rt, fmt.Sprintf("(int32_t)((%s + 0x8000) & 0xFFFF0000)", target.expr))
			}
			return nil
		}
		r.setGPR(indent, ins.Rt, fmt.Sprintf("(int32_t)0x%08X", uint32(ins.Imm)<<16))

	case OP_MULT:
		r.out.linef("%s{ int64_t result = (int64_t)(int32_t)%s * (int64_t)(int32_t)%s; lo = (int32_t)result; hi = (int32_t)(result >> 32); }",
			indent, gpr(ins.Rs), gpr(ins.Rt))
	case OP_MULTU:
		r.out.linef("%s{ uint64_t result = (uint64_t)(uint32_t)%s * (uint64_t)(uint32_t)%s; lo = (int32_t)result; hi = (int32_t)(result >> 32); }",
			indent, gpr(ins.Rs), gpr(ins.Rt))
	case OP_DIV:
		r.out.linef("%sif ((int32_t)%s != 0) { lo = (int32_t)%s / (int32_t)%s; hi = (int32_t)%s %% (int32_t)%s; }",
			indent, gpr(ins.Rt), gpr(ins.Rs), gpr(ins.Rt), gpr(ins.Rs), gpr(ins.Rt))
	case OP_DIVU:
		r.out.linef("%sif ((uint32_t)%s != 0) { lo = (int32_t)((uint32_t)%s / (uint32_t)%s); hi = (int32_t)((uint32_t)%s %% (uint32_t)%s); }",
			indent, gpr(ins.Rt), gpr(ins.Rs), gpr(ins.Rt), gpr(ins.Rs), gpr(ins.Rt))
	case OP_MFHI:
		r.setGPR(indent, ins.Rd, "hi")
	case OP_MFLO:
		r.setGPR(indent, ins.Rd, "lo")
	case OP_MTHI:
		r.out.linef("%shi = %s;", indent, gpr(ins.Rs))
	case OP_MTLO:
		r.out.linef("%slo = %s;", indent, gpr(ins.Rs))

	case OP_LB:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("MEM_B(%s, %s)", r.memOffset(ins, reloc), gpr(ins.Rs)))
	case OP_LBU:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("MEM_BU(%s, %s)", r.memOffset(ins, reloc), gpr(ins.Rs)))
	case OP_LH:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("MEM_H(%s, %s)", r.memOffset(ins, reloc), gpr(ins.Rs)))
	case OP_LHU:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("MEM_HU(%s, %s)", r.memOffset(ins, reloc), gpr(ins.Rs)))
	case OP_LW:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("MEM_W(%s, %s)", r.memOffset(ins, reloc), gpr(ins.Rs)))
	case OP_LWU:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("MEM_WU(%s, %s)", r.memOffset(ins, reloc), gpr(ins.Rs)))
	case OP_LD:
		r.setGPR(indent, ins.Rt, fmt.Sprintf("MEM_D(%s, %s)", r.memOffset(ins, reloc), gpr(ins.Rs)))
	case OP_SB:
		r.out.linef("%sMEM_B(%s, %s) = (uint8_t)%s;", indent, r.memOffset(ins, reloc), gpr(ins.Rs), gpr(ins.Rt))
	case OP_SH:
		r.out.linef("%sMEM_H(%s, %s) = (uint16_t)%s;", indent, r.memOffset(ins, reloc), gpr(ins.Rs), gpr(ins.Rt))
	case OP_SW:
		r.out.linef("%sMEM_W(%s, %s) = (uint32_t)%s;", indent, r.memOffset(ins, reloc), gpr(ins.Rs), gpr(ins.Rt))
	case OP_SD:
		r.out.linef("%sMEM_D(%s, %s) = %s;", indent, r.memOffset(ins, reloc), gpr(ins.Rs), gpr(ins.Rt))

	case OP_MFC0:
		if ins.Rd == 12 {
			r.setGPR(indent, ins.Rt, "cop0_status_read(ctx)")
		} else {
			r.out.linef("%sdo_break(0x%08X);", indent, ins.VRAM)
			r.out.linef("%sreturn;", indent)
		}
	case OP_MTC0:
		if ins.Rd == 12 {
			r.out.linef("%scop0_status_write(ctx, %s);", indent, gpr(ins.Rt))
		} else {
			r.out.linef("%sdo_break(0x%08X);", indent, ins.VRAM)
			r.out.linef("%sreturn;", indent)
		}

	default:
		// Runtime-trapping fallback for anything outside the translated set.
		r.out.linef("%sdo_break(0x%08X);", indent, ins.VRAM)
		r.out.linef("%sreturn;", indent)
	}
	return nil
}

// memOffset renders the immediate operand of a load/store, substituting the
// low half of a relocated address when a LO16 reloc applies.
func (r *funcRecompiler) memOffset(ins Instruction, reloc *Reloc) string {
	if reloc != nil && reloc.Type == R_MIPS_LO16 {
		if target, err := r.relocAddr(reloc); err == nil {
			if target.static {
				return fmt.Sprintf("%d", int16(target.value))
			}
			return fmt.Sprintf("(int16_t)(%s & 0xFFFF)", target.expr)
		}
	}
	return fmt.Sprintf("%d", ins.SImm)
}

// branchCondition renders the comparison of a conditional branch.
func branchCondition(ins Instruction) string {
	switch ins.Op {
	case OP_BEQ, OP_BEQL:
		return fmt.Sprintf("%s == %s", gpr(ins.Rs), gpr(ins.Rt))
	case OP_BNE, OP_BNEL:
		return fmt.Sprintf("%s != %s", gpr(ins.Rs), gpr(ins.Rt))
	case OP_BLEZ, OP_BLEZL:
		return fmt.Sprintf("(int64_t)%s <= 0", gpr(ins.Rs))
	case OP_BGTZ, OP_BGTZL:
		return fmt.Sprintf("(int64_t)%s > 0", gpr(ins.Rs))
	case OP_BLTZ, OP_BLTZL, OP_BLTZAL:
		return fmt.Sprintf("(int64_t)%s < 0", gpr(ins.Rs))
	case OP_BGEZ, OP_BGEZL, OP_BGEZAL:
		return fmt.Sprintf("(int64_t)%s >= 0", gpr(ins.Rs))
	}
	return "0"
}

// callSite is a resolved direct call: either a named callee or an event
// trigger through the runtime.
type callSite struct {
	name       string
	event      bool
	eventIndex uint32
}

// callTarget resolves a direct call site: imports, events and reference
// symbols through their reloc, local functions by vram.
func (r *funcRecompiler) callTarget(ins Instruction) (callSite, error) {
	if reloc := r.relocs[ins.VRAM]; reloc != nil && reloc.Type == R_MIPS_26 {
		switch {
		case reloc.TargetSection == SECTION_IMPORT:
			if reloc.SymbolIndex >= uint32(len(r.ctx.ImportSymbols)) {
				return callSite{}, fmt.Errorf("call at 0x%08X: import index %d out of range", ins.VRAM, reloc.SymbolIndex)
			}
			return callSite{name: r.ctx.ImportSymbols[reloc.SymbolIndex].Name}, nil
		case reloc.TargetSection == SECTION_EVENT:
			if reloc.SymbolIndex >= uint32(len(r.ctx.EventSymbols)) {
				return callSite{}, fmt.Errorf("call at 0x%08X: event index %d out of range", ins.VRAM, reloc.SymbolIndex)
			}
			return callSite{event: true, eventIndex: reloc.SymbolIndex}, nil
		case reloc.ReferenceSymbol:
			sym, err := r.ctx.GetReferenceSymbol(reloc.TargetSection, reloc.SymbolIndex)
			if err != nil {
				return callSite{}, fmt.Errorf("call at 0x%08X: %v", ins.VRAM, err)
			}
			return callSite{name: sym.Name}, nil
		default:
			// Local R_MIPS_26: fall through to the vram lookup below.
		}
	}

	for _, fi := range r.ctx.FunctionsAtVRAM(ins.Target) {
		if r.ctx.Functions[fi].Name != "" {
			return callSite{name: r.ctx.Functions[fi].Name}, nil
		}
	}

	// Not in the function table: record it as a static function of this
	// section so the emitter can give it a body later.
	if r.statics != nil && int(r.fn.SectionIndex) < len(r.statics) {
		r.statics[r.fn.SectionIndex] = append(r.statics[r.fn.SectionIndex], ins.Target)
		return callSite{name: staticFuncName(r.fn.SectionIndex, ins.Target)}, nil
	}
	return callSite{}, fmt.Errorf("call at 0x%08X: no function at vram 0x%08X", ins.VRAM, ins.Target)
}

func staticFuncName(section uint16, vram uint32) string {
	return fmt.Sprintf("static_%d_%08X", section, vram)
}

func (r *funcRecompiler) emitCall(indent string, site callSite) {
	if site.event {
		r.out.linef("%srecomp_trigger_event(rdram, ctx, base_event_index + %d);", indent, site.eventIndex)
		return
	}
	r.out.linef("%s%s(rdram, ctx);", indent, site.name)
}

// emitBranch emits a control-flow instruction paired with its delay slot.
func (r *funcRecompiler) emitBranch(funcIndex uint32, ins, delay Instruction, decoder *Decoder) error {
	funcStart := r.fn.VRAM
	funcEnd := funcStart + uint32(len(r.fn.Words))*4
	delayComment := fmt.Sprintf("// 0x%08X: %s", delay.VRAM, decoder.Mnemonic(delay))

	switch ins.Branch {
	case BRANCH_CONDITIONAL:
		isCall := ins.Op == OP_BLTZAL || ins.Op == OP_BGEZAL
		r.out.linef("    branch_taken = %s;", branchCondition(ins))
		r.out.linef("    %s", delayComment)
		if err := r.emitInstruction(delay, "    "); err != nil {
			return err
		}
		if isCall {
			site, err := r.callTarget(Instruction{VRAM: ins.VRAM, Target: ins.Target})
			if err != nil {
				return err
			}
			r.out.linef("    if (branch_taken) {")
			r.emitCall("        ", site)
			r.out.linef("    }")
			return nil
		}
		if ins.Target < funcStart || ins.Target >= funcEnd {
			return fmt.Errorf("function %s: branch at 0x%08X targets 0x%08X outside the function",
				r.fn.Name, ins.VRAM, ins.Target)
		}
		r.out.linef("    if (branch_taken) {")
		r.out.linef("        goto L_%08X;", ins.Target)
		r.out.linef("    }")

	case BRANCH_LIKELY:
		if ins.Target < funcStart || ins.Target >= funcEnd {
			return fmt.Errorf("function %s: branch at 0x%08X targets 0x%08X outside the function",
				r.fn.Name, ins.VRAM, ins.Target)
		}
		r.out.linef("    if (%s) {", branchCondition(ins))
		r.out.linef("        %s", delayComment)
		if err := r.emitInstruction(delay, "        "); err != nil {
			return err
		}
		r.out.linef("        goto L_%08X;", ins.Target)
		r.out.linef("    }")

	case JUMP_IMMEDIATE:
		if ins.Target >= funcStart && ins.Target < funcEnd {
			r.out.linef("    %s", delayComment)
			if err := r.emitInstruction(delay, "    "); err != nil {
				return err
			}
			r.out.linef("    goto L_%08X;", ins.Target)
			return nil
		}
		// Jump to another function: tail call.
		site, err := r.callTarget(ins)
		if err != nil {
			return err
		}
		r.out.linef("    %s", delayComment)
		if err := r.emitInstruction(delay, "    "); err != nil {
			return err
		}
		r.emitCall("    ", site)
		r.out.linef("    return;")

	case JAL_IMMEDIATE:
		site, err := r.callTarget(ins)
		if err != nil {
			return err
		}
		r.out.linef("    %s", delayComment)
		if err := r.emitInstruction(delay, "    "); err != nil {
			return err
		}
		r.emitCall("    ", site)

	case JUMP_REGISTER:
		if ins.Rs == 31 {
			r.out.linef("    %s", delayComment)
			if err := r.emitInstruction(delay, "    "); err != nil {
				return err
			}
			r.emitHookCall(funcIndex, HOOK_AT_RETURN)
			r.out.linef("    return;")
			return nil
		}
		if jt, ok := r.jumpTables[ins.VRAM]; ok {
			r.out.linef("    jump_target = %s;", gpr(ins.Rs))
			r.out.linef("    %s", delayComment)
			if err := r.emitInstruction(delay, "    "); err != nil {
				return err
			}
			r.out.linef("    switch ((uint32_t)jump_target) {")
			for _, entry := range jt.Entries {
				if entry < funcStart || entry >= funcEnd {
					return fmt.Errorf("function %s: jump table entry 0x%08X outside the function", r.fn.Name, entry)
				}
				r.out.linef("    case 0x%08X: goto L_%08X;", entry, entry)
			}
			r.out.linef("    default:")
			r.out.linef("        switch_error(\"%s\", 0x%08X, 0x%08X);", r.fn.Name, ins.VRAM, jt.VRAM)
			r.out.linef("        return;")
			r.out.linef("    }")
			return nil
		}
		if !r.isMod {
			return fmt.Errorf("function %s: indirect jump without jump table at 0x%08X", r.fn.Name, ins.VRAM)
		}
		r.out.linef("    jump_target = %s;", gpr(ins.Rs))
		r.out.linef("    %s", delayComment)
		if err := r.emitInstruction(delay, "    "); err != nil {
			return err
		}
		r.out.linef("    get_function((int32_t)jump_target)(rdram, ctx);")
		r.out.linef("    return;")

	case JALR:
		r.out.linef("    jump_target = %s;", gpr(ins.Rs))
		r.out.linef("    %s", delayComment)
		if err := r.emitInstruction(delay, "    "); err != nil {
			return err
		}
		r.out.linef("    get_function((int32_t)jump_target)(rdram, ctx);")
	}
	return nil
}
