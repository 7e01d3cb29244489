// mips_decoder.go - MIPS R4300i instruction decoder and classifier

package recomp

import "fmt"

// BranchKind classifies the control-flow behavior of a decoded instruction.
// The branch and jump kinds (those IsBranch reports) own the instruction that
// follows them (the delay slot); BRANCH_NONE, ERET, BREAK and SYSCALL do not.
type BranchKind uint8

const (
	BRANCH_NONE BranchKind = iota
	BRANCH_CONDITIONAL
	BRANCH_LIKELY
	JUMP_IMMEDIATE
	JUMP_REGISTER
	JAL_IMMEDIATE
	JALR
	ERET
	BREAK
	SYSCALL
)

// Operation identifiers for the subset of the R4300i the emitter translates.
// Anything outside the subset decodes to OP_INVALID and is emitted as a
// runtime trap, not rejected at recompile time.
type MipsOp uint16

const (
	OP_INVALID MipsOp = iota
	OP_NOP
	OP_SLL
	OP_SRL
	OP_SRA
	OP_SLLV
	OP_SRLV
	OP_SRAV
	OP_DSLL
	OP_DSRL
	OP_DSRA
	OP_DSLL32
	OP_DSRL32
	OP_DSRA32
	OP_JR
	OP_JALR
	OP_SYSCALL
	OP_BREAK
	OP_MFHI
	OP_MTHI
	OP_MFLO
	OP_MTLO
	OP_MULT
	OP_MULTU
	OP_DIV
	OP_DIVU
	OP_ADD
	OP_ADDU
	OP_SUB
	OP_SUBU
	OP_AND
	OP_OR
	OP_XOR
	OP_NOR
	OP_SLT
	OP_SLTU
	OP_DADDU
	OP_DSUBU
	OP_BLTZ
	OP_BGEZ
	OP_BLTZL
	OP_BGEZL
	OP_BLTZAL
	OP_BGEZAL
	OP_J
	OP_JAL
	OP_BEQ
	OP_BNE
	OP_BLEZ
	OP_BGTZ
	OP_BEQL
	OP_BNEL
	OP_BLEZL
	OP_BGTZL
	OP_ADDI
	OP_ADDIU
	OP_SLTI
	OP_SLTIU
	OP_ANDI
	OP_ORI
	OP_XORI
	OP_LUI
	OP_DADDI
	OP_DADDIU
	OP_MFC0
	OP_MTC0
	OP_ERET
	OP_LB
	OP_LH
	OP_LW
	OP_LBU
	OP_LHU
	OP_LWU
	OP_LD
	OP_SB
	OP_SH
	OP_SW
	OP_SD
)

// Instruction is one classified 32-bit word.
type Instruction struct {
	Word   uint32
	VRAM   uint32
	Op     MipsOp
	Rs     uint8
	Rt     uint8
	Rd     uint8
	Sa     uint8
	Imm    uint16
	SImm   int16
	Target uint32 // absolute vram of jump/branch targets
	Branch BranchKind
}

// DecoderConfig replaces the process-wide toggles of the original
// disassembler with an explicit value passed to the decoder. The pseudo
// flags only affect mnemonic rendering, never classification.
type DecoderConfig struct {
	PseudoMove bool
	PseudoBeqz bool
	PseudoBnez bool
	PseudoNot  bool
	PseudoBal  bool
}

// Decoder classifies raw instruction words. It is pure; one decoder may be
// shared by any number of emission passes.
type Decoder struct {
	cfg DecoderConfig
}

func NewDecoder(cfg DecoderConfig) *Decoder {
	return &Decoder{cfg: cfg}
}

// mipsGPRNames uses the o32 ABI names in rendered mnemonics.
var mipsGPRNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

var specialOps = map[uint32]MipsOp{
	0x00: OP_SLL, 0x02: OP_SRL, 0x03: OP_SRA,
	0x04: OP_SLLV, 0x06: OP_SRLV, 0x07: OP_SRAV,
	0x08: OP_JR, 0x09: OP_JALR,
	0x0C: OP_SYSCALL, 0x0D: OP_BREAK,
	0x10: OP_MFHI, 0x11: OP_MTHI, 0x12: OP_MFLO, 0x13: OP_MTLO,
	0x18: OP_MULT, 0x19: OP_MULTU, 0x1A: OP_DIV, 0x1B: OP_DIVU,
	0x20: OP_ADD, 0x21: OP_ADDU, 0x22: OP_SUB, 0x23: OP_SUBU,
	0x24: OP_AND, 0x25: OP_OR, 0x26: OP_XOR, 0x27: OP_NOR,
	0x2A: OP_SLT, 0x2B: OP_SLTU,
	0x2D: OP_DADDU, 0x2F: OP_DSUBU,
	0x38: OP_DSLL, 0x3A: OP_DSRL, 0x3B: OP_DSRA,
	0x3C: OP_DSLL32, 0x3E: OP_DSRL32, 0x3F: OP_DSRA32,
}

var regimmOps = map[uint32]MipsOp{
	0x00: OP_BLTZ, 0x01: OP_BGEZ,
	0x02: OP_BLTZL, 0x03: OP_BGEZL,
	0x10: OP_BLTZAL, 0x11: OP_BGEZAL,
}

var immediateOps = map[uint32]MipsOp{
	0x04: OP_BEQ, 0x05: OP_BNE, 0x06: OP_BLEZ, 0x07: OP_BGTZ,
	0x08: OP_ADDI, 0x09: OP_ADDIU, 0x0A: OP_SLTI, 0x0B: OP_SLTIU,
	0x0C: OP_ANDI, 0x0D: OP_ORI, 0x0E: OP_XORI, 0x0F: OP_LUI,
	0x14: OP_BEQL, 0x15: OP_BNEL, 0x16: OP_BLEZL, 0x17: OP_BGTZL,
	0x18: OP_DADDI, 0x19: OP_DADDIU,
	0x20: OP_LB, 0x21: OP_LH, 0x23: OP_LW, 0x24: OP_LBU, 0x25: OP_LHU,
	0x27: OP_LWU, 0x28: OP_SB, 0x29: OP_SH, 0x2B: OP_SW,
	0x37: OP_LD, 0x3F: OP_SD,
}

var branchKinds = map[MipsOp]BranchKind{
	OP_BEQ: BRANCH_CONDITIONAL, OP_BNE: BRANCH_CONDITIONAL,
	OP_BLEZ: BRANCH_CONDITIONAL, OP_BGTZ: BRANCH_CONDITIONAL,
	OP_BLTZ: BRANCH_CONDITIONAL, OP_BGEZ: BRANCH_CONDITIONAL,
	OP_BLTZAL: BRANCH_CONDITIONAL, OP_BGEZAL: BRANCH_CONDITIONAL,
	OP_BEQL: BRANCH_LIKELY, OP_BNEL: BRANCH_LIKELY,
	OP_BLEZL: BRANCH_LIKELY, OP_BGTZL: BRANCH_LIKELY,
	OP_BLTZL: BRANCH_LIKELY, OP_BGEZL: BRANCH_LIKELY,
	OP_J: JUMP_IMMEDIATE, OP_JAL: JAL_IMMEDIATE,
	OP_JR: JUMP_REGISTER, OP_JALR: JALR,
	OP_ERET: ERET, OP_BREAK: BREAK, OP_SYSCALL: SYSCALL,
}

// Decode classifies one big-endian word fetched from vram.
func (d *Decoder) Decode(word uint32, vram uint32) Instruction {
	ins := Instruction{
		Word: word,
		VRAM: vram,
		Rs:   uint8(word >> 21 & 31),
		Rt:   uint8(word >> 16 & 31),
		Rd:   uint8(word >> 11 & 31),
		Sa:   uint8(word >> 6 & 31),
		Imm:  uint16(word),
		SImm: int16(word),
		Op:   OP_INVALID,
	}

	op := word >> 26
	switch op {
	case 0x00:
		if word == 0 {
			ins.Op = OP_NOP
			return ins
		}
		if mapped, ok := specialOps[word&0x3F]; ok {
			ins.Op = mapped
		}
	case 0x01:
		if mapped, ok := regimmOps[uint32(ins.Rt)]; ok {
			ins.Op = mapped
		}
	case 0x02, 0x03:
		if op == 0x02 {
			ins.Op = OP_J
		} else {
			ins.Op = OP_JAL
		}
		ins.Target = (vram+4)&0xF0000000 | (word&0x03FFFFFF)<<2
	case 0x10:
		// COP0: only the status register moves and eret are translated.
		switch word >> 21 & 31 {
		case 0x00:
			ins.Op = OP_MFC0
		case 0x04:
			ins.Op = OP_MTC0
		case 0x10:
			if word&0x3F == 0x18 {
				ins.Op = OP_ERET
			}
		}
	default:
		if mapped, ok := immediateOps[op]; ok {
			ins.Op = mapped
		}
	}

	if kind, ok := branchKinds[ins.Op]; ok {
		ins.Branch = kind
	}
	if ins.Branch == BRANCH_CONDITIONAL || ins.Branch == BRANCH_LIKELY {
		ins.Target = vram + 4 + uint32(int32(ins.SImm))<<2
	}
	return ins
}

// IsBranch reports whether the instruction owns a delay slot.
func (ins *Instruction) IsBranch() bool {
	switch ins.Branch {
	case BRANCH_CONDITIONAL, BRANCH_LIKELY, JUMP_IMMEDIATE, JUMP_REGISTER, JAL_IMMEDIATE, JALR:
		return true
	}
	return false
}

var mipsOpNames = map[MipsOp]string{
	OP_NOP: "nop", OP_SLL: "sll", OP_SRL: "srl", OP_SRA: "sra",
	OP_SLLV: "sllv", OP_SRLV: "srlv", OP_SRAV: "srav",
	OP_DSLL: "dsll", OP_DSRL: "dsrl", OP_DSRA: "dsra",
	OP_DSLL32: "dsll32", OP_DSRL32: "dsrl32", OP_DSRA32: "dsra32",
	OP_JR: "jr", OP_JALR: "jalr", OP_SYSCALL: "syscall", OP_BREAK: "break",
	OP_MFHI: "mfhi", OP_MTHI: "mthi", OP_MFLO: "mflo", OP_MTLO: "mtlo",
	OP_MULT: "mult", OP_MULTU: "multu", OP_DIV: "div", OP_DIVU: "divu",
	OP_ADD: "add", OP_ADDU: "addu", OP_SUB: "sub", OP_SUBU: "subu",
	OP_AND: "and", OP_OR: "or", OP_XOR: "xor", OP_NOR: "nor",
	OP_SLT: "slt", OP_SLTU: "sltu", OP_DADDU: "daddu", OP_DSUBU: "dsubu",
	OP_BLTZ: "bltz", OP_BGEZ: "bgez", OP_BLTZL: "bltzl", OP_BGEZL: "bgezl",
	OP_BLTZAL: "bltzal", OP_BGEZAL: "bgezal",
	OP_J: "j", OP_JAL: "jal",
	OP_BEQ: "beq", OP_BNE: "bne", OP_BLEZ: "blez", OP_BGTZ: "bgtz",
	OP_BEQL: "beql", OP_BNEL: "bnel", OP_BLEZL: "blezl", OP_BGTZL: "bgtzl",
	OP_ADDI: "addi", OP_ADDIU: "addiu", OP_SLTI: "slti", OP_SLTIU: "sltiu",
	OP_ANDI: "andi", OP_ORI: "ori", OP_XORI: "xori", OP_LUI: "lui",
	OP_DADDI: "daddi", OP_DADDIU: "daddiu",
	OP_MFC0: "mfc0", OP_MTC0: "mtc0", OP_ERET: "eret",
	OP_LB: "lb", OP_LH: "lh", OP_LW: "lw", OP_LBU: "lbu", OP_LHU: "lhu",
	OP_LWU: "lwu", OP_LD: "ld",
	OP_SB: "sb", OP_SH: "sh", OP_SW: "sw", OP_SD: "sd",
}

// Mnemonic renders a disassembly line for emitted-C comments. Pseudo
// rendering follows the decoder config; classification is never affected.
func (d *Decoder) Mnemonic(ins Instruction) string {
	name, ok := mipsOpNames[ins.Op]
	if !ok {
		return fmt.Sprintf(".word 0x%08X", ins.Word)
	}
	r := func(n uint8) string { return "$" + mipsGPRNames[n] }

	switch ins.Op {
	case OP_NOP, OP_SYSCALL, OP_BREAK, OP_ERET:
		return name
	case OP_SLL, OP_SRL, OP_SRA, OP_DSLL, OP_DSRL, OP_DSRA, OP_DSLL32, OP_DSRL32, OP_DSRA32:
		return fmt.Sprintf("%s %s, %s, %d", name, r(ins.Rd), r(ins.Rt), ins.Sa)
	case OP_SLLV, OP_SRLV, OP_SRAV:
		return fmt.Sprintf("%s %s, %s, %s", name, r(ins.Rd), r(ins.Rt), r(ins.Rs))
	case OP_JR:
		return fmt.Sprintf("%s %s", name, r(ins.Rs))
	case OP_JALR:
		if ins.Rd == 31 {
			return fmt.Sprintf("%s %s", name, r(ins.Rs))
		}
		return fmt.Sprintf("%s %s, %s", name, r(ins.Rd), r(ins.Rs))
	case OP_MFHI, OP_MFLO:
		return fmt.Sprintf("%s %s", name, r(ins.Rd))
	case OP_MTHI, OP_MTLO:
		return fmt.Sprintf("%s %s", name, r(ins.Rs))
	case OP_MULT, OP_MULTU, OP_DIV, OP_DIVU:
		return fmt.Sprintf("%s %s, %s", name, r(ins.Rs), r(ins.Rt))
	case OP_ADD, OP_ADDU, OP_SUB, OP_SUBU, OP_AND, OP_XOR, OP_SLT, OP_SLTU, OP_DADDU, OP_DSUBU:
		return fmt.Sprintf("%s %s, %s, %s", name, r(ins.Rd), r(ins.Rs), r(ins.Rt))
	case OP_OR:
		if d.cfg.PseudoMove && ins.Rt == 0 {
			return fmt.Sprintf("move %s, %s", r(ins.Rd), r(ins.Rs))
		}
		return fmt.Sprintf("%s %s, %s, %s", name, r(ins.Rd), r(ins.Rs), r(ins.Rt))
	case OP_NOR:
		if d.cfg.PseudoNot && ins.Rt == 0 {
			return fmt.Sprintf("not %s, %s", r(ins.Rd), r(ins.Rs))
		}
		return fmt.Sprintf("%s %s, %s, %s", name, r(ins.Rd), r(ins.Rs), r(ins.Rt))
	case OP_J, OP_JAL:
		return fmt.Sprintf("%s 0x%08X", name, ins.Target)
	case OP_BEQ:
		if d.cfg.PseudoBeqz && ins.Rt == 0 {
			return fmt.Sprintf("beqz %s, 0x%08X", r(ins.Rs), ins.Target)
		}
		return fmt.Sprintf("%s %s, %s, 0x%08X", name, r(ins.Rs), r(ins.Rt), ins.Target)
	case OP_BNE:
		if d.cfg.PseudoBnez && ins.Rt == 0 {
			return fmt.Sprintf("bnez %s, 0x%08X", r(ins.Rs), ins.Target)
		}
		return fmt.Sprintf("%s %s, %s, 0x%08X", name, r(ins.Rs), r(ins.Rt), ins.Target)
	case OP_BEQL, OP_BNEL:
		return fmt.Sprintf("%s %s, %s, 0x%08X", name, r(ins.Rs), r(ins.Rt), ins.Target)
	case OP_BLEZ, OP_BGTZ, OP_BLEZL, OP_BGTZL, OP_BLTZ, OP_BGEZ, OP_BLTZL, OP_BGEZL, OP_BLTZAL:
		return fmt.Sprintf("%s %s, 0x%08X", name, r(ins.Rs), ins.Target)
	case OP_BGEZAL:
		if d.cfg.PseudoBal && ins.Rs == 0 {
			return fmt.Sprintf("bal 0x%08X", ins.Target)
		}
		return fmt.Sprintf("%s %s, 0x%08X", name, r(ins.Rs), ins.Target)
	case OP_ADDI, OP_ADDIU, OP_SLTI, OP_SLTIU, OP_DADDI, OP_DADDIU:
		return fmt.Sprintf("%s %s, %s, %d", name, r(ins.Rt), r(ins.Rs), ins.SImm)
	case OP_ANDI, OP_ORI, OP_XORI:
		return fmt.Sprintf("%s %s, %s, 0x%X", name, r(ins.Rt), r(ins.Rs), ins.Imm)
	case OP_LUI:
		return fmt.Sprintf("%s %s, 0x%X", name, r(ins.Rt), ins.Imm)
	case OP_MFC0, OP_MTC0:
		return fmt.Sprintf("%s %s, $%d", name, r(ins.Rt), ins.Rd)
	case OP_LB, OP_LH, OP_LW, OP_LBU, OP_LHU, OP_LWU, OP_LD, OP_SB, OP_SH, OP_SW, OP_SD:
		return fmt.Sprintf("%s %s, %d(%s)", name, r(ins.Rt), ins.SImm, r(ins.Rs))
	}
	return name
}
