// mips_decoder_test.go - Decoder classification tests

package recomp

import "testing"

// TestDecodeFields verifies operand field extraction on an I-type word.
func TestDecodeFields(t *testing.T) {
	d := NewDecoder(DecoderConfig{})
	// addiu $t0, $zero, 1
	ins := d.Decode(0x24080001, 0x80000000)
	if ins.Op != OP_ADDIU {
		t.Fatalf("decoded op %d, expected OP_ADDIU", ins.Op)
	}
	if ins.Rs != 0 || ins.Rt != 8 || ins.SImm != 1 {
		t.Fatalf("decoded rs=%d rt=%d imm=%d, expected 0/8/1", ins.Rs, ins.Rt, ins.SImm)
	}
	if ins.Branch != BRANCH_NONE {
		t.Fatalf("addiu classified as branch kind %d", ins.Branch)
	}
}

// TestDecodeBranchCategories walks one word of each control-flow category.
func TestDecodeBranchCategories(t *testing.T) {
	d := NewDecoder(DecoderConfig{})
	cases := []struct {
		name string
		word uint32
		kind BranchKind
	}{
		{"beq", 0x11090004, BRANCH_CONDITIONAL},
		{"bne", 0x15090004, BRANCH_CONDITIONAL},
		{"bltz", 0x05000004, BRANCH_CONDITIONAL},
		{"beql", 0x51090004, BRANCH_LIKELY},
		{"bgezl", 0x04230004, BRANCH_LIKELY},
		{"j", 0x08000100, JUMP_IMMEDIATE},
		{"jal", 0x0C000100, JAL_IMMEDIATE},
		{"jr", 0x03E00008, JUMP_REGISTER},
		{"jalr", 0x0040F809, JALR},
		{"eret", 0x42000018, ERET},
		{"break", 0x0000000D, BREAK},
		{"syscall", 0x0000000C, SYSCALL},
		{"nop", 0x00000000, BRANCH_NONE},
		{"lw", 0x8D090004, BRANCH_NONE},
	}
	for _, tc := range cases {
		ins := d.Decode(tc.word, 0x80000400)
		if ins.Branch != tc.kind {
			t.Errorf("%s: classified as kind %d, expected %d", tc.name, ins.Branch, tc.kind)
		}
	}
}

// TestDecodeBranchTarget verifies relative branch and absolute jump target
// computation.
func TestDecodeBranchTarget(t *testing.T) {
	d := NewDecoder(DecoderConfig{})

	// beq $t0, $t1, +4 instructions
	ins := d.Decode(0x11090004, 0x80000400)
	if ins.Target != 0x80000400+4+16 {
		t.Fatalf("branch target 0x%08X, expected 0x%08X", ins.Target, uint32(0x80000414))
	}

	// backwards branch
	ins = d.Decode(0x1109FFFF, 0x80000400)
	if ins.Target != 0x80000400 {
		t.Fatalf("backwards branch target 0x%08X, expected 0x80000400", ins.Target)
	}

	// jal combines the 26-bit index with the upper bits of the delay slot pc
	ins = d.Decode(0x0C000100, 0x80000400)
	if ins.Target != 0x80000400&0xF0000000|0x100<<2 {
		t.Fatalf("jal target 0x%08X", ins.Target)
	}
}

// TestDecodeInvalid ensures untranslated opcodes classify as OP_INVALID
// rather than failing.
func TestDecodeInvalid(t *testing.T) {
	d := NewDecoder(DecoderConfig{})
	// lwc1 $f0, 0($t0) - FPU loads are outside the translated set
	ins := d.Decode(0xC5000000, 0x80000000)
	if ins.Op != OP_INVALID {
		t.Fatalf("cop1 load decoded as op %d, expected OP_INVALID", ins.Op)
	}
}

// TestMnemonicPseudos checks that pseudo rendering follows the decoder
// config without changing classification.
func TestMnemonicPseudos(t *testing.T) {
	plain := NewDecoder(DecoderConfig{})
	pseudo := NewDecoder(DecoderConfig{PseudoMove: true, PseudoBeqz: true})

	// or $v0, $a0, $zero
	ins := plain.Decode(0x00801025, 0x80000000)
	if got := plain.Mnemonic(ins); got != "or $v0, $a0, $zero" {
		t.Errorf("plain or rendered %q", got)
	}
	if got := pseudo.Mnemonic(ins); got != "move $v0, $a0" {
		t.Errorf("pseudo move rendered %q", got)
	}

	// beq $t0, $zero, +1
	ins = plain.Decode(0x11000001, 0x80000000)
	if got := pseudo.Mnemonic(ins); got != "beqz $t0, 0x80000008" {
		t.Errorf("pseudo beqz rendered %q", got)
	}
	if ins.Branch != BRANCH_CONDITIONAL {
		t.Errorf("pseudo config changed classification")
	}
}
