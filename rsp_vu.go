// rsp_vu.go - RSP vector unit state and scalar reference semantics

/*
(c) 2024 - 2025 Zayn Otley
https://github.com/IntuitionAmiga/RecompEngine

License: GPLv3 or later
*/

package recomp

import "math/bits"

// Vreg is one 128-bit vector register as eight 16-bit lanes. Byte index 0 is
// the high byte of lane 0, matching the element numbering of the hardware.
type Vreg [8]uint16

func (v Vreg) U16(n int) uint16  { return v[n] }
func (v Vreg) S16(n int) int16   { return int16(v[n]) }
func (v *Vreg) SetU16(n int, x uint16) { v[n] = x }
func (v *Vreg) SetS16(n int, x int16)  { v[n] = uint16(x) }

// Byte addresses the register at byte granularity: byte 2n is the high byte
// of lane n.
func (v Vreg) Byte(n int) uint8 {
	n &= 15
	if n&1 == 0 {
		return uint8(v[n>>1] >> 8)
	}
	return uint8(v[n>>1])
}

func (v *Vreg) SetByte(n int, x uint8) {
	n &= 15
	if n&1 == 0 {
		v[n>>1] = v[n>>1]&0x00FF | uint16(x)<<8
	} else {
		v[n>>1] = v[n>>1]&0xFF00 | uint16(x)
	}
}

// Broadcast applies the element selection operator vt(e): identity for 0-1,
// quarter broadcasts for 2-3, half broadcasts for 4-7, full broadcasts of
// lane e-8 for 8-15.
func (v Vreg) Broadcast(e int) Vreg {
	out := v
	switch e & 15 {
	case 0, 1:
	case 2:
		out[1], out[3], out[5], out[7] = out[0], out[2], out[4], out[6]
	case 3:
		out[0], out[2], out[4], out[6] = out[1], out[3], out[5], out[7]
	case 4:
		out[1], out[2], out[3] = out[0], out[0], out[0]
		out[5], out[6], out[7] = out[4], out[4], out[4]
	case 5:
		out[0], out[2], out[3] = out[1], out[1], out[1]
		out[4], out[6], out[7] = out[5], out[5], out[5]
	case 6:
		out[0], out[1], out[3] = out[2], out[2], out[2]
		out[4], out[5], out[7] = out[6], out[6], out[6]
	case 7:
		out[0], out[1], out[2] = out[3], out[3], out[3]
		out[4], out[5], out[6] = out[7], out[7], out[7]
	default:
		lane := v[(e-8)&7]
		for n := range out {
			out[n] = lane
		}
	}
	return out
}

// VFlags is one of the 8-lane one-bit flag registers (VCO/VCC/VCE halves).
// Bit n is lane n.
type VFlags uint8

func (f VFlags) Get(n int) bool { return f>>uint(n)&1 != 0 }

// Set stores cond into lane n and returns cond, mirroring how the flag
// update feeds the same-lane select in the compare ops.
func (f *VFlags) Set(n int, cond bool) bool {
	if cond {
		*f |= 1 << uint(n)
	} else {
		*f &^= 1 << uint(n)
	}
	return cond
}

// VectorUnit models the RSP vector coprocessor: 32 vector registers, the
// 48-bit per-lane accumulator, the flag registers and the divide unit.
// DMEM backs the vector load/store ops; addresses wrap at its size.
//
// Every op has a scalar reference implementation. Ops with an accelerated
// lane-parallel formulation dispatch to it when Accel is set; both paths
// produce identical post-states for all inputs.
type VectorUnit struct {
	R [32]Vreg

	AccH, AccM, AccL Vreg

	VCOL, VCOH VFlags
	VCCL, VCCH VFlags
	VCE        VFlags

	DivIn  uint16
	DivOut uint16
	DivDP  bool

	Accel bool

	DMEM []byte
}

// NewVectorUnit returns a vector unit with a 4KB DMEM.
func NewVectorUnit() *VectorUnit {
	return &VectorUnit{DMEM: make([]byte, 4096)}
}

func (v *VectorUnit) memRead(addr uint32) uint8 {
	return v.DMEM[addr&uint32(len(v.DMEM)-1)]
}

func (v *VectorUnit) memWrite(addr uint32, val uint8) {
	v.DMEM[addr&uint32(len(v.DMEM)-1)] = val
}

func sclamp16(x int64) int16 {
	if x < -32768 {
		return -32768
	}
	if x > 32767 {
		return 32767
	}
	return int16(x)
}

func sclip48(x int64) int64 {
	return x << 16 >> 16
}

// AccGet assembles the 48-bit accumulator for lane n.
func (v *VectorUnit) AccGet(n int) uint64 {
	return uint64(v.AccH[n])<<32 | uint64(v.AccM[n])<<16 | uint64(v.AccL[n])
}

// AccSet splits value into the three accumulator components of lane n.
func (v *VectorUnit) AccSet(n int, value uint64) {
	v.AccH[n] = uint16(value >> 32)
	v.AccM[n] = uint16(value >> 16)
	v.AccL[n] = uint16(value)
}

// accSaturate reads the accumulator of lane n clamped by its sign: negative
// and positive are the rail values, slice selects the middle component on
// the in-range path.
func (v *VectorUnit) accSaturate(n int, slice bool, negative, positive uint16) uint16 {
	if int16(v.AccH[n]) < 0 {
		if v.AccH[n] != 0xFFFF {
			return negative
		}
		if int16(v.AccM[n]) >= 0 {
			return negative
		}
	} else {
		if v.AccH[n] != 0x0000 {
			return positive
		}
		if int16(v.AccM[n]) < 0 {
			return positive
		}
	}
	if !slice {
		return v.AccL[n]
	}
	return v.AccM[n]
}

// CFC2 packs a flag register pair into a sign-extended 32-bit value.
func (v *VectorUnit) CFC2(rd uint8) int32 {
	var hi, lo VFlags
	switch rd & 3 {
	case 0:
		hi, lo = v.VCOH, v.VCOL
	case 1:
		hi, lo = v.VCCH, v.VCCL
	case 2, 3:
		hi, lo = 0, v.VCE
	}
	return int32(int16(uint16(hi)<<8 | uint16(lo)))
}

// CTC2 unpacks rt into a flag register pair.
func (v *VectorUnit) CTC2(rt uint32, rd uint8) {
	lo := VFlags(rt)
	hi := VFlags(rt >> 8)
	switch rd & 3 {
	case 0:
		v.VCOH, v.VCOL = hi, lo
	case 1:
		v.VCCH, v.VCCL = hi, lo
	case 2, 3:
		v.VCE = lo
	}
}

// MFC2 reads a 16-bit value from byte offset e of vs, sign extended.
func (v *VectorUnit) MFC2(vs int, e int) int32 {
	hi := v.R[vs].Byte(e)
	lo := v.R[vs].Byte((e + 1) & 15)
	return int32(int16(uint16(hi)<<8 | uint16(lo)))
}

// MTC2 writes the low 16 bits of rt at byte offset e of vs. The final byte
// is dropped rather than wrapped.
func (v *VectorUnit) MTC2(rt uint32, vs int, e int) {
	v.R[vs].SetByte(e, uint8(rt>>8))
	if e != 15 {
		v.R[vs].SetByte(e+1, uint8(rt))
	}
}

func (v *VectorUnit) VABS(vd, vs, vt, e int) {
	if v.Accel {
		v.vabsAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		switch {
		case v.R[vs].S16(n) < 0:
			if vte.S16(n) == -32768 {
				v.AccL.SetS16(n, -32768)
				v.R[vd].SetS16(n, 32767)
			} else {
				v.AccL.SetS16(n, -vte.S16(n))
				v.R[vd].SetS16(n, -vte.S16(n))
			}
		case v.R[vs].S16(n) > 0:
			v.AccL.SetS16(n, vte.S16(n))
			v.R[vd].SetS16(n, vte.S16(n))
		default:
			v.AccL[n] = 0
			v.R[vd][n] = 0
		}
	}
}

func (v *VectorUnit) VADD(vd, vs, vt, e int) {
	if v.Accel {
		v.vaddAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	var out Vreg
	for n := 0; n < 8; n++ {
		carry := int32(0)
		if v.VCOL.Get(n) {
			carry = 1
		}
		result := int32(v.R[vs].S16(n)) + int32(vte.S16(n)) + carry
		v.AccL.SetS16(n, int16(result))
		out.SetS16(n, sclamp16(int64(result)))
	}
	v.R[vd] = out
	v.VCOL = 0
	v.VCOH = 0
}

func (v *VectorUnit) VADDC(vd, vs, vt, e int) {
	if v.Accel {
		v.vaddcAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		result := uint32(v.R[vs][n]) + uint32(vte[n])
		v.AccL[n] = uint16(result)
		v.VCOL.Set(n, result>>16 != 0)
	}
	v.VCOH = 0
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VAND(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		v.AccL[n] = v.R[vs][n] & vte[n]
	}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VCH(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		if v.R[vs].S16(n)^vte.S16(n) < 0 {
			result := int16(v.R[vs].S16(n) + vte.S16(n))
			if result <= 0 {
				v.AccL.SetS16(n, -vte.S16(n))
			} else {
				v.AccL.SetS16(n, v.R[vs].S16(n))
			}
			v.VCCL.Set(n, result <= 0)
			v.VCCH.Set(n, vte.S16(n) < 0)
			v.VCOL.Set(n, true)
			v.VCOH.Set(n, result != 0 && v.R[vs][n] != vte[n]^0xFFFF)
			v.VCE.Set(n, result == -1)
		} else {
			result := int16(v.R[vs].S16(n) - vte.S16(n))
			if result >= 0 {
				v.AccL[n] = vte[n]
			} else {
				v.AccL[n] = v.R[vs][n]
			}
			v.VCCL.Set(n, vte.S16(n) < 0)
			v.VCCH.Set(n, result >= 0)
			v.VCOL.Set(n, false)
			v.VCOH.Set(n, result != 0 && v.R[vs][n] != vte[n]^0xFFFF)
			v.VCE.Set(n, false)
		}
	}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VCL(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		if v.VCOL.Get(n) {
			if v.VCOH.Get(n) {
				if v.VCCL.Get(n) {
					v.AccL[n] = -vte[n]
				} else {
					v.AccL[n] = v.R[vs][n]
				}
			} else {
				sum := uint16(v.R[vs][n] + vte[n])
				carry := uint32(v.R[vs][n])+uint32(vte[n]) != uint32(sum)
				var take bool
				if v.VCE.Get(n) {
					take = v.VCCL.Set(n, sum == 0 || !carry)
				} else {
					take = v.VCCL.Set(n, sum == 0 && !carry)
				}
				if take {
					v.AccL[n] = -vte[n]
				} else {
					v.AccL[n] = v.R[vs][n]
				}
			}
		} else {
			if v.VCOH.Get(n) {
				if v.VCCH.Get(n) {
					v.AccL[n] = vte[n]
				} else {
					v.AccL[n] = v.R[vs][n]
				}
			} else {
				if v.VCCH.Set(n, int32(v.R[vs][n])-int32(vte[n]) >= 0) {
					v.AccL[n] = vte[n]
				} else {
					v.AccL[n] = v.R[vs][n]
				}
			}
		}
	}
	v.VCOL = 0
	v.VCOH = 0
	v.VCE = 0
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VCR(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		if v.R[vs].S16(n)^vte.S16(n) < 0 {
			v.VCCH.Set(n, vte.S16(n) < 0)
			if v.VCCL.Set(n, int32(v.R[vs].S16(n))+int32(vte.S16(n))+1 <= 0) {
				v.AccL[n] = ^vte[n]
			} else {
				v.AccL[n] = v.R[vs][n]
			}
		} else {
			v.VCCL.Set(n, vte.S16(n) < 0)
			if v.VCCH.Set(n, int32(v.R[vs].S16(n))-int32(vte.S16(n)) >= 0) {
				v.AccL[n] = vte[n]
			} else {
				v.AccL[n] = v.R[vs][n]
			}
		}
	}
	v.VCOL = 0
	v.VCOH = 0
	v.VCE = 0
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VEQ(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		if v.VCCL.Set(n, !v.VCOH.Get(n) && v.R[vs][n] == vte[n]) {
			v.AccL[n] = v.R[vs][n]
		} else {
			v.AccL[n] = vte[n]
		}
	}
	v.VCCH = 0
	v.VCOL = 0
	v.VCOH = 0
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VGE(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		cond := v.R[vs].S16(n) > vte.S16(n) ||
			(v.R[vs].S16(n) == vte.S16(n) && (!v.VCOL.Get(n) || !v.VCOH.Get(n)))
		if v.VCCL.Set(n, cond) {
			v.AccL[n] = v.R[vs][n]
		} else {
			v.AccL[n] = vte[n]
		}
	}
	v.VCCH = 0
	v.VCOL = 0
	v.VCOH = 0
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VLT(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		cond := v.R[vs].S16(n) < vte.S16(n) ||
			(v.R[vs].S16(n) == vte.S16(n) && v.VCOL.Get(n) && v.VCOH.Get(n))
		if v.VCCL.Set(n, cond) {
			v.AccL[n] = v.R[vs][n]
		} else {
			v.AccL[n] = vte[n]
		}
	}
	v.VCCH = 0
	v.VCOL = 0
	v.VCOH = 0
	v.R[vd] = v.AccL
}

func (v *VectorUnit) vmacf(vd, vs, vt, e int, unsigned bool) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := int64(v.R[vs].S16(n)) * int64(vte.S16(n)) * 2
		v.AccSet(n, uint64(int64(v.AccGet(n))+product)&0xFFFFFFFFFFFF)
		if !unsigned {
			v.R[vd][n] = v.accSaturate(n, true, 0x8000, 0x7FFF)
		} else {
			switch {
			case int16(v.AccH[n]) < 0:
				v.R[vd][n] = 0x0000
			case v.AccH[n] != 0 || int16(v.AccM[n]) < 0:
				v.R[vd][n] = 0xFFFF
			default:
				v.R[vd][n] = v.AccM[n]
			}
		}
	}
}

func (v *VectorUnit) VMACF(vd, vs, vt, e int) {
	if v.Accel {
		v.vmacfAccel(vd, vs, vt, e, false)
		return
	}
	v.vmacf(vd, vs, vt, e, false)
}

func (v *VectorUnit) VMACU(vd, vs, vt, e int) {
	if v.Accel {
		v.vmacfAccel(vd, vs, vt, e, true)
		return
	}
	v.vmacf(vd, vs, vt, e, true)
}

func (v *VectorUnit) VMACQ(vd int) {
	for n := 0; n < 8; n++ {
		product := int32(uint32(v.AccH[n])<<16 | uint32(v.AccM[n]))
		if product < 0 && product&(1<<5) == 0 {
			product += 32
		} else if product >= 32 && product&(1<<5) == 0 {
			product -= 32
		}
		v.AccH[n] = uint16(product >> 16)
		v.AccM[n] = uint16(product)
		v.R[vd][n] = uint16(sclamp16(int64(product>>1))) & ^uint16(15)
	}
}

func (v *VectorUnit) VMADH(vd, vs, vt, e int) {
	if v.Accel {
		v.vmadhAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		result := int32(uint32(v.AccGet(n)>>16)) + int32(v.R[vs].S16(n))*int32(vte.S16(n))
		v.AccH[n] = uint16(result >> 16)
		v.AccM[n] = uint16(result)
		v.R[vd][n] = v.accSaturate(n, true, 0x8000, 0x7FFF)
	}
}

func (v *VectorUnit) VMADL(vd, vs, vt, e int) {
	if v.Accel {
		v.vmadlAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := uint64(uint32(v.R[vs][n]) * uint32(vte[n]) >> 16)
		v.AccSet(n, (v.AccGet(n)+product)&0xFFFFFFFFFFFF)
		v.R[vd][n] = v.accSaturate(n, false, 0x0000, 0xFFFF)
	}
}

func (v *VectorUnit) VMADM(vd, vs, vt, e int) {
	if v.Accel {
		v.vmadmAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := int64(int32(v.R[vs].S16(n)) * int32(vte[n]))
		v.AccSet(n, uint64(int64(v.AccGet(n))+product)&0xFFFFFFFFFFFF)
		v.R[vd][n] = v.accSaturate(n, true, 0x8000, 0x7FFF)
	}
}

func (v *VectorUnit) VMADN(vd, vs, vt, e int) {
	if v.Accel {
		v.vmadnAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := int64(uint32(v.R[vs][n])) * int64(vte.S16(n))
		v.AccSet(n, uint64(int64(v.AccGet(n))+product)&0xFFFFFFFFFFFF)
		v.R[vd][n] = v.accSaturate(n, false, 0x0000, 0xFFFF)
	}
}

func (v *VectorUnit) VMOV(vd int, de int, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	v.R[vd][de&7] = vte[de&7]
	v.AccL = vte
}

func (v *VectorUnit) VMRG(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		if v.VCCL.Get(n) {
			v.AccL[n] = v.R[vs][n]
		} else {
			v.AccL[n] = vte[n]
		}
	}
	v.VCOH = 0
	v.VCOL = 0
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VMUDH(vd, vs, vt, e int) {
	if v.Accel {
		v.vmudhAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := int64(int32(v.R[vs].S16(n))*int32(vte.S16(n))) << 16
		v.AccSet(n, uint64(product)&0xFFFFFFFFFFFF)
		v.R[vd][n] = v.accSaturate(n, true, 0x8000, 0x7FFF)
	}
}

func (v *VectorUnit) VMUDL(vd, vs, vt, e int) {
	if v.Accel {
		v.vmudlAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		v.AccSet(n, uint64(uint16(uint32(v.R[vs][n])*uint32(vte[n])>>16)))
	}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VMUDM(vd, vs, vt, e int) {
	if v.Accel {
		v.vmudmAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := int32(v.R[vs].S16(n)) * int32(vte[n])
		v.AccSet(n, uint64(int64(product))&0xFFFFFFFFFFFF)
	}
	v.R[vd] = v.AccM
}

func (v *VectorUnit) VMUDN(vd, vs, vt, e int) {
	if v.Accel {
		v.vmudnAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := int32(v.R[vs][n]) * int32(vte.S16(n))
		v.AccSet(n, uint64(int64(product))&0xFFFFFFFFFFFF)
	}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) vmulf(vd, vs, vt, e int, unsigned bool) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := int64(v.R[vs].S16(n))*int64(vte.S16(n))*2 + 0x8000
		v.AccSet(n, uint64(product)&0xFFFFFFFFFFFF)
		if !unsigned {
			v.R[vd][n] = v.accSaturate(n, true, 0x8000, 0x7FFF)
		} else {
			switch {
			case int16(v.AccH[n]) < 0:
				v.R[vd][n] = 0x0000
			case int16(v.AccH[n])^int16(v.AccM[n]) < 0:
				v.R[vd][n] = 0xFFFF
			default:
				v.R[vd][n] = v.AccM[n]
			}
		}
	}
}

func (v *VectorUnit) VMULF(vd, vs, vt, e int) {
	if v.Accel {
		v.vmulfAccel(vd, vs, vt, e, false)
		return
	}
	v.vmulf(vd, vs, vt, e, false)
}

func (v *VectorUnit) VMULU(vd, vs, vt, e int) {
	if v.Accel {
		v.vmulfAccel(vd, vs, vt, e, true)
		return
	}
	v.vmulf(vd, vs, vt, e, true)
}

func (v *VectorUnit) VMULQ(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := int32(v.R[vs].S16(n)) * int32(vte.S16(n))
		if product < 0 {
			product += 31
		}
		v.AccH[n] = uint16(product >> 16)
		v.AccM[n] = uint16(product)
		v.AccL[n] = 0
		v.R[vd][n] = uint16(sclamp16(int64(product>>1))) & ^uint16(15)
	}
}

func (v *VectorUnit) VNAND(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		v.AccL[n] = ^(v.R[vs][n] & vte[n])
	}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VNE(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		if v.VCCL.Set(n, v.R[vs][n] != vte[n] || v.VCOH.Get(n)) {
			v.AccL[n] = v.R[vs][n]
		} else {
			v.AccL[n] = vte[n]
		}
	}
	v.VCCH = 0
	v.VCOL = 0
	v.VCOH = 0
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VNOP() {}

func (v *VectorUnit) VNOR(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		v.AccL[n] = ^(v.R[vs][n] | vte[n])
	}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VNXOR(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		v.AccL[n] = ^(v.R[vs][n] ^ vte[n])
	}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VOR(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		v.AccL[n] = v.R[vs][n] | vte[n]
	}
	v.R[vd] = v.AccL
}

// vrcpInput selects the divide input: double precision reads the latched
// high half, single precision sign-extends the selected lane.
func (v *VectorUnit) vrcpInput(vt, e int, dp bool) int32 {
	if dp && v.DivDP {
		return int32(uint32(v.DivIn)<<16 | uint32(v.R[vt][e&7]))
	}
	return int32(int16(v.R[vt][e&7]))
}

func (v *VectorUnit) vrcp(vd int, de int, vt, e int, dp bool) {
	input := v.vrcpInput(vt, e, dp)
	var result int32
	mask := input >> 31
	data := input ^ mask
	if input > -32768 {
		data -= mask
	}
	switch {
	case data == 0:
		result = 0x7FFFFFFF
	case input == -32768:
		result = -0x10000
	default:
		shift := uint32(bits.LeadingZeros32(uint32(data)))
		index := (uint64(uint32(data)) << shift & 0x7FC00000) >> 22
		result = int32(rspReciprocals[index])
		result = (0x10000 | result) << 14
		result = result>>(31-shift) ^ mask
	}
	v.DivDP = false
	v.DivOut = uint16(result >> 16)
	v.AccL = v.R[vt].Broadcast(e)
	v.R[vd][de&7] = uint16(result)
}

func (v *VectorUnit) VRCP(vd int, de int, vt, e int)  { v.vrcp(vd, de, vt, e, false) }
func (v *VectorUnit) VRCPL(vd int, de int, vt, e int) { v.vrcp(vd, de, vt, e, true) }

func (v *VectorUnit) VRCPH(vd int, de int, vt, e int) {
	v.AccL = v.R[vt].Broadcast(e)
	v.DivDP = true
	v.DivIn = v.R[vt][e&7]
	v.R[vd][de&7] = v.DivOut
}

func (v *VectorUnit) vrsq(vd int, de int, vt, e int, dp bool) {
	input := v.vrcpInput(vt, e, dp)
	var result int32
	mask := input >> 31
	data := input ^ mask
	if input > -32768 {
		data -= mask
	}
	switch {
	case data == 0:
		result = 0x7FFFFFFF
	case input == -32768:
		result = -0x10000
	default:
		shift := uint32(bits.LeadingZeros32(uint32(data)))
		index := (uint64(uint32(data)) << shift & 0x7FC00000) >> 22
		result = int32(rspInverseSquareRoots[index&0x1FE|uint64(shift&1)])
		result = (0x10000 | result) << 14
		result = result>>((31-shift)>>1) ^ mask
	}
	v.DivDP = false
	v.DivOut = uint16(result >> 16)
	v.AccL = v.R[vt].Broadcast(e)
	v.R[vd][de&7] = uint16(result)
}

func (v *VectorUnit) VRSQ(vd int, de int, vt, e int)  { v.vrsq(vd, de, vt, e, false) }
func (v *VectorUnit) VRSQL(vd int, de int, vt, e int) { v.vrsq(vd, de, vt, e, true) }

func (v *VectorUnit) VRSQH(vd int, de int, vt, e int) {
	v.AccL = v.R[vt].Broadcast(e)
	v.DivDP = true
	v.DivIn = v.R[vt][e&7]
	v.R[vd][de&7] = v.DivOut
}

func (v *VectorUnit) vrnd(vd int, vs int, vt, e int, positive bool) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		product := int64(int16(vte[n]))
		if vs&1 != 0 {
			product <<= 16
		}
		acc := int64(v.AccH[n])<<32 | int64(v.AccM[n])<<16 | int64(v.AccL[n])
		acc = acc << 16 >> 16
		if !positive && acc < 0 {
			acc = sclip48(acc + product)
		}
		if positive && acc >= 0 {
			acc = sclip48(acc + product)
		}
		v.AccH[n] = uint16(acc >> 32)
		v.AccM[n] = uint16(acc >> 16)
		v.AccL[n] = uint16(acc)
		v.R[vd][n] = uint16(sclamp16(acc >> 16))
	}
}

func (v *VectorUnit) VRNDN(vd int, vs int, vt, e int) { v.vrnd(vd, vs, vt, e, false) }
func (v *VectorUnit) VRNDP(vd int, vs int, vt, e int) { v.vrnd(vd, vs, vt, e, true) }

func (v *VectorUnit) VSAR(vd, vs, e int) {
	switch e {
	case 0x8:
		v.R[vd] = v.AccH
	case 0x9:
		v.R[vd] = v.AccM
	case 0xA:
		v.R[vd] = v.AccL
	default:
		v.R[vd] = Vreg{}
	}
}

func (v *VectorUnit) VSUB(vd, vs, vt, e int) {
	if v.Accel {
		v.vsubAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	var out Vreg
	for n := 0; n < 8; n++ {
		borrow := int32(0)
		if v.VCOL.Get(n) {
			borrow = 1
		}
		result := int32(v.R[vs].S16(n)) - int32(vte.S16(n)) - borrow
		v.AccL.SetS16(n, int16(result))
		out.SetS16(n, sclamp16(int64(result)))
	}
	v.R[vd] = out
	v.VCOL = 0
	v.VCOH = 0
}

func (v *VectorUnit) VSUBC(vd, vs, vt, e int) {
	if v.Accel {
		v.vsubcAccel(vd, vs, vt, e)
		return
	}
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		result := uint32(v.R[vs][n]) - uint32(vte[n])
		v.AccL[n] = uint16(result)
		v.VCOL.Set(n, result>>16 != 0)
		v.VCOH.Set(n, result != 0)
	}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VXOR(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		v.AccL[n] = v.R[vs][n] ^ vte[n]
	}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) VZERO(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	for n := 0; n < 8; n++ {
		result := int32(v.R[vs].S16(n)) + int32(vte.S16(n))
		v.AccL.SetS16(n, int16(result))
	}
	v.R[vd] = Vreg{}
}
