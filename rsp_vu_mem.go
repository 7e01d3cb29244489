// rsp_vu_mem.go - RSP vector load/store ops with element wraparound

package recomp

// All forms take the target register index, the base address already read
// from the scalar unit, the signed element-scaled offset from the opcode,
// and the element operand e. Address and lane arithmetic is modular; the
// wrap conditions and the <<7 / <<8 scaling on packed loads are part of the
// semantics.

func (v *VectorUnit) LBV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset)
	v.R[vt].SetByte(e, v.memRead(address))
}

func (v *VectorUnit) LDV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*8)
	end := e + 8
	if end > 16 {
		end = 16
	}
	for off := e; off < end; off++ {
		v.R[vt].SetByte(off&15, v.memRead(address))
		address++
	}
}

func (v *VectorUnit) LFV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	index := int(address&7) - e
	address &^= 7
	end := e + 8
	if end > 16 {
		end = 16
	}
	var tmp Vreg
	for off := 0; off < 4; off++ {
		tmp[off+0] = uint16(v.memRead(address+uint32((index+off*4+0)&15))) << 7
		tmp[off+4] = uint16(v.memRead(address+uint32((index+off*4+8)&15))) << 7
	}
	for off := e; off < end; off++ {
		v.R[vt].SetByte(off, tmp.Byte(off))
	}
}

func (v *VectorUnit) LHV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	index := int(address&7) - e
	address &^= 7
	for off := 0; off < 8; off++ {
		v.R[vt][off] = uint16(v.memRead(address+uint32((index+off*2)&15))) << 7
	}
}

func (v *VectorUnit) LLV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*4)
	end := e + 4
	if end > 16 {
		end = 16
	}
	for off := e; off < end; off++ {
		v.R[vt].SetByte(off&15, v.memRead(address))
		address++
	}
}

func (v *VectorUnit) LPV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*8)
	index := int(address&7) - e
	address &^= 7
	for off := 0; off < 8; off++ {
		v.R[vt][off] = uint16(v.memRead(address+uint32((index+off)&15))) << 8
	}
}

func (v *VectorUnit) LQV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	end := 16 + e - int(address&15)
	if end > 16 {
		end = 16
	}
	for off := e; off < end; off++ {
		v.R[vt].SetByte(off&15, v.memRead(address))
		address++
	}
}

func (v *VectorUnit) LRV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	start := 16 - (int(address&15) - e)
	address &^= 15
	for off := start; off < 16; off++ {
		v.R[vt].SetByte(off&15, v.memRead(address))
		address++
	}
}

func (v *VectorUnit) LSV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*2)
	end := e + 2
	if end > 16 {
		end = 16
	}
	for off := e; off < end; off++ {
		v.R[vt].SetByte(off&15, v.memRead(address))
		address++
	}
}

// LTV loads eight registers of a group with a rotating lane assignment.
func (v *VectorUnit) LTV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	begin := address &^ 7
	address = begin + ((uint32(e) + (address & 8)) & 15)
	vtbase := vt &^ 7
	vtoff := e >> 1
	for i := 0; i < 8; i++ {
		v.R[vtbase+vtoff].SetByte(i*2+0, v.memRead(address))
		address++
		if address == begin+16 {
			address = begin
		}
		v.R[vtbase+vtoff].SetByte(i*2+1, v.memRead(address))
		address++
		if address == begin+16 {
			address = begin
		}
		vtoff = (vtoff + 1) & 7
	}
}

func (v *VectorUnit) LUV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*8)
	index := int(address&7) - e
	address &^= 7
	for off := 0; off < 8; off++ {
		v.R[vt][off] = uint16(v.memRead(address+uint32((index+off)&15))) << 7
	}
}

func (v *VectorUnit) LWV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	start := 16 - e
	end := e + 16
	for off := start; off < end; off++ {
		v.R[vt].SetByte(off&15, v.memRead(address))
		address += 4
	}
}

func (v *VectorUnit) SBV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset)
	v.memWrite(address, v.R[vt].Byte(e))
}

func (v *VectorUnit) SDV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*8)
	for off := e; off < e+8; off++ {
		v.memWrite(address, v.R[vt].Byte(off&15))
		address++
	}
}

// sfvElements maps the element operand to the four stored lanes; elements
// outside the table store zeros.
var sfvElements = map[int][4]int{
	0: {0, 1, 2, 3}, 15: {0, 1, 2, 3},
	1:  {6, 7, 4, 5},
	4:  {1, 2, 3, 0},
	5:  {7, 4, 5, 6},
	8:  {4, 5, 6, 7},
	11: {3, 0, 1, 2},
	12: {5, 6, 7, 4},
}

func (v *VectorUnit) SFV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	b := address & 7
	address &^= 7
	lanes, ok := sfvElements[e]
	for i := 0; i < 4; i++ {
		var value uint8
		if ok {
			value = uint8(v.R[vt][lanes[i]] >> 7)
		}
		v.memWrite(address+(b+uint32(i)*4)&15, value)
	}
}

func (v *VectorUnit) SHV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	index := address & 7
	address &^= 7
	for off := 0; off < 8; off++ {
		b := e + off*2
		value := v.R[vt].Byte(b&15)<<1 | v.R[vt].Byte((b+1)&15)>>7
		v.memWrite(address+(index+uint32(off)*2)&15, value)
	}
}

func (v *VectorUnit) SLV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*4)
	for off := e; off < e+4; off++ {
		v.memWrite(address, v.R[vt].Byte(off&15))
		address++
	}
}

func (v *VectorUnit) SPV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*8)
	for off := e; off < e+8; off++ {
		if off&15 < 8 {
			v.memWrite(address, v.R[vt].Byte((off&7)<<1))
		} else {
			v.memWrite(address, uint8(v.R[vt][off&7]>>7))
		}
		address++
	}
}

func (v *VectorUnit) SQV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	end := e + (16 - int(address&15))
	for off := e; off < end; off++ {
		v.memWrite(address, v.R[vt].Byte(off&15))
		address++
	}
}

func (v *VectorUnit) SRV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	end := e + int(address&15)
	b := 16 - int(address&15)
	address &^= 15
	for off := e; off < end; off++ {
		v.memWrite(address, v.R[vt].Byte((off+b)&15))
		address++
	}
}

func (v *VectorUnit) SSV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*2)
	for off := e; off < e+2; off++ {
		v.memWrite(address, v.R[vt].Byte(off&15))
		address++
	}
}

// STV stores eight registers of a group with a rotating element window.
func (v *VectorUnit) STV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	start := vt &^ 7
	element := 16 - (e &^ 1)
	b := int(address&7) - (e &^ 1)
	address &^= 7
	for reg := start; reg < start+8; reg++ {
		v.memWrite(address+uint32(b&15), v.R[reg].Byte(element&15))
		b++
		element++
		v.memWrite(address+uint32(b&15), v.R[reg].Byte(element&15))
		b++
		element++
	}
}

func (v *VectorUnit) SUV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*8)
	for off := e; off < e+8; off++ {
		if off&15 < 8 {
			v.memWrite(address, uint8(v.R[vt][off&7]>>7))
		} else {
			v.memWrite(address, v.R[vt].Byte((off&7)<<1))
		}
		address++
	}
}

func (v *VectorUnit) SWV(vt int, base uint32, offset int32, e int) {
	address := base + uint32(offset*16)
	b := address & 7
	address &^= 7
	for off := e; off < e+16; off++ {
		v.memWrite(address+b&15, v.R[vt].Byte(off&15))
		b++
	}
}
