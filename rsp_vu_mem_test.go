// rsp_vu_mem_test.go - Vector load/store wraparound and scaling tests

package recomp

import "testing"

// TestLQVAlignedFullLoad loads a full quad from an aligned address.
func TestLQVAlignedFullLoad(t *testing.T) {
	v := NewVectorUnit()
	for i := 0; i < 16; i++ {
		v.DMEM[0x40+i] = byte(i + 1)
	}
	v.LQV(1, 0x40, 0, 0)
	for i := 0; i < 16; i++ {
		if v.R[1].Byte(i) != byte(i+1) {
			t.Fatalf("byte %d = 0x%02X, expected 0x%02X", i, v.R[1].Byte(i), i+1)
		}
	}
}

// TestLQVUnalignedStopsAtBoundary: an unaligned quad load only fills up to
// the next 16-byte boundary.
func TestLQVUnalignedStopsAtBoundary(t *testing.T) {
	v := NewVectorUnit()
	for i := 0; i < 32; i++ {
		v.DMEM[0x40+i] = byte(i + 1)
	}
	v.R[1] = Vreg{}
	v.LQV(1, 0x44, 0, 0)
	// Bytes 0..11 come from 0x44..0x4F; bytes 12..15 stay untouched.
	for i := 0; i < 12; i++ {
		if v.R[1].Byte(i) != byte(5+i) {
			t.Fatalf("byte %d = 0x%02X, expected 0x%02X", i, v.R[1].Byte(i), 5+i)
		}
	}
	for i := 12; i < 16; i++ {
		if v.R[1].Byte(i) != 0 {
			t.Fatalf("byte %d was written past the boundary", i)
		}
	}
}

// TestLRVFillsTail: the right-load fills the lanes the matching LQV left.
func TestLRVFillsTail(t *testing.T) {
	v := NewVectorUnit()
	for i := 0; i < 32; i++ {
		v.DMEM[0x40+i] = byte(i + 1)
	}
	v.R[1] = Vreg{}
	v.LQV(1, 0x44, 0, 0)
	v.LRV(1, 0x54, 0, 0)
	for i := 0; i < 16; i++ {
		if v.R[1].Byte(i) != byte(5+i) {
			t.Fatalf("byte %d = 0x%02X after lqv/lrv pair, expected 0x%02X", i, v.R[1].Byte(i), 5+i)
		}
	}
}

// TestLPVPackedScaling: packed loads place each byte in a lane shifted left
// by 8.
func TestLPVPackedScaling(t *testing.T) {
	v := NewVectorUnit()
	for i := 0; i < 8; i++ {
		v.DMEM[0x20+i] = byte(0x10 + i)
	}
	v.LPV(2, 0x20, 0, 0)
	for n := 0; n < 8; n++ {
		want := uint16(0x10+n) << 8
		if v.R[2][n] != want {
			t.Fatalf("lane %d = 0x%04X, expected 0x%04X", n, v.R[2][n], want)
		}
	}
}

// TestLUVPackedUnsignedScaling: unsigned packed loads scale by 7 bits.
func TestLUVPackedUnsignedScaling(t *testing.T) {
	v := NewVectorUnit()
	for i := 0; i < 8; i++ {
		v.DMEM[0x20+i] = byte(0x80 + i)
	}
	v.LUV(2, 0x20, 0, 0)
	for n := 0; n < 8; n++ {
		want := uint16(0x80+n) << 7
		if v.R[2][n] != want {
			t.Fatalf("lane %d = 0x%04X, expected 0x%04X", n, v.R[2][n], want)
		}
	}
}

// TestSDVLDVRoundTrip stores a double and loads it back at a second
// element offset, exercising the modular byte indexing.
func TestSDVLDVRoundTrip(t *testing.T) {
	v := NewVectorUnit()
	v.R[3] = Vreg{0x1122, 0x3344, 0x5566, 0x7788, 0x99AA, 0xBBCC, 0xDDEE, 0xFF00}
	v.SDV(3, 0x30, 0, 0)

	v.LDV(4, 0x30, 0, 8)
	for i := 0; i < 8; i++ {
		if v.R[4].Byte(8+i) != v.R[3].Byte(i) {
			t.Fatalf("byte %d = 0x%02X, expected 0x%02X", 8+i, v.R[4].Byte(8+i), v.R[3].Byte(i))
		}
	}
}

// TestSPVSUVPackedStores verifies the in-range element path (e=0) of both
// packed stores: SPV stores each lane's high byte, SUV stores each lane
// shifted right by 7.
func TestSPVSUVPackedStores(t *testing.T) {
	v := NewVectorUnit()
	v.R[3] = Vreg{0x8100, 0x8202, 0x8304, 0x8406, 0x8508, 0x860A, 0x870C, 0x880E}

	v.SPV(3, 0x60, 0, 0)
	for i := 0; i < 8; i++ {
		want := v.R[3].Byte(i * 2)
		if v.DMEM[0x60+i] != want {
			t.Fatalf("spv byte %d = 0x%02X, expected 0x%02X", i, v.DMEM[0x60+i], want)
		}
	}

	v.SUV(3, 0x70, 0, 0)
	for i := 0; i < 8; i++ {
		want := uint8(v.R[3][i] >> 7)
		if v.DMEM[0x70+i] != want {
			t.Fatalf("suv byte %d = 0x%02X, expected 0x%02X", i, v.DMEM[0x70+i], want)
		}
	}
}

// TestSQVSRVPairRoundTrip writes an unaligned quad with the SQV/SRV pair and
// reads it back bytewise.
func TestSQVSRVPairRoundTrip(t *testing.T) {
	v := NewVectorUnit()
	for i := 0; i < 16; i++ {
		v.R[5].SetByte(i, byte(0xA0+i))
	}
	v.SQV(5, 0x84, 0, 0)
	v.SRV(5, 0x94, 0, 0)
	for i := 0; i < 16; i++ {
		if v.DMEM[0x84+i] != byte(0xA0+i) {
			t.Fatalf("byte 0x%02X = 0x%02X, expected 0x%02X", 0x84+i, v.DMEM[0x84+i], 0xA0+i)
		}
	}
}

// TestLTVRotatesLanes: the transposed load spreads pairs across the
// register group.
func TestLTVRotatesLanes(t *testing.T) {
	v := NewVectorUnit()
	for i := 0; i < 16; i++ {
		v.DMEM[0x00+i] = byte(i)
	}
	v.LTV(8, 0x00, 0, 0)
	// e=0, aligned: register 8+k receives lane k from bytes (2k, 2k+1).
	for k := 0; k < 8; k++ {
		want := uint16(2*k)<<8 | uint16(2*k+1)
		if v.R[8+k][k] != want {
			t.Fatalf("reg %d lane %d = 0x%04X, expected 0x%04X", 8+k, k, v.R[8+k][k], want)
		}
	}
}

// TestMTC2DropsFinalByte: a write at byte 15 keeps only the high byte.
func TestMTC2DropsFinalByte(t *testing.T) {
	v := NewVectorUnit()
	v.MTC2(0xABCD, 1, 15)
	if v.R[1].Byte(15) != 0xAB {
		t.Fatalf("high byte = 0x%02X, expected 0xAB", v.R[1].Byte(15))
	}
	if v.R[1].Byte(0) != 0 {
		t.Fatalf("write at byte 15 wrapped into byte 0")
	}
}
