// rsp_vu_accel.go - Accelerated lane-parallel path for the RSP vector ops

package recomp

// The accelerated path recasts each op as a branch-free sequence over whole
// registers, the same formulation a 128-bit SIMD unit executes. Lanes hold
// 0xFFFF for true in every mask-valued intermediate. Results must match the
// scalar reference bit-for-bit; the test suite sweeps both paths.

func laneAdd(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = a[n] + b[n]
	}
	return out
}

func laneSub(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = a[n] - b[n]
	}
	return out
}

func laneAddsS16(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = uint16(sclamp16(int64(int16(a[n])) + int64(int16(b[n]))))
	}
	return out
}

func laneSubsS16(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = uint16(sclamp16(int64(int16(a[n])) - int64(int16(b[n]))))
	}
	return out
}

func laneAddsU16(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		sum := uint32(a[n]) + uint32(b[n])
		if sum > 0xFFFF {
			sum = 0xFFFF
		}
		out[n] = uint16(sum)
	}
	return out
}

func laneSubsU16(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		if a[n] > b[n] {
			out[n] = a[n] - b[n]
		}
	}
	return out
}

func laneMullo(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = uint16(int32(int16(a[n])) * int32(int16(b[n])))
	}
	return out
}

func laneMulhiS16(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = uint16(int32(int16(a[n])) * int32(int16(b[n])) >> 16)
	}
	return out
}

func laneMulhiU16(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = uint16(uint32(a[n]) * uint32(b[n]) >> 16)
	}
	return out
}

func laneShl(a Vreg, s uint) Vreg {
	var out Vreg
	for n := range out {
		out[n] = a[n] << s
	}
	return out
}

func laneShrL(a Vreg, s uint) Vreg {
	var out Vreg
	for n := range out {
		out[n] = a[n] >> s
	}
	return out
}

func laneShrA(a Vreg, s uint) Vreg {
	var out Vreg
	for n := range out {
		out[n] = uint16(int16(a[n]) >> s)
	}
	return out
}

func laneCmpEq(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		if a[n] == b[n] {
			out[n] = 0xFFFF
		}
	}
	return out
}

func laneCmpGt(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		if int16(a[n]) > int16(b[n]) {
			out[n] = 0xFFFF
		}
	}
	return out
}

func laneMinS16(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		if int16(a[n]) < int16(b[n]) {
			out[n] = a[n]
		} else {
			out[n] = b[n]
		}
	}
	return out
}

func laneMaxS16(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		if int16(a[n]) > int16(b[n]) {
			out[n] = a[n]
		} else {
			out[n] = b[n]
		}
	}
	return out
}

func laneAnd(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = a[n] & b[n]
	}
	return out
}

func laneAndNot(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = ^a[n] & b[n]
	}
	return out
}

func laneOr(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = a[n] | b[n]
	}
	return out
}

func laneXor(a, b Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = a[n] ^ b[n]
	}
	return out
}

// laneBlend picks b where the mask lane is set, a elsewhere.
func laneBlend(a, b, mask Vreg) Vreg {
	var out Vreg
	for n := range out {
		if mask[n] != 0 {
			out[n] = b[n]
		} else {
			out[n] = a[n]
		}
	}
	return out
}

// lanePackMH saturates each (mid, high) accumulator pair as a signed 32-bit
// value into 16 bits.
func lanePackMH(mid, high Vreg) Vreg {
	var out Vreg
	for n := range out {
		out[n] = uint16(sclamp16(int64(int32(uint32(high[n])<<16 | uint32(mid[n])))))
	}
	return out
}

func flagsToMask(f VFlags) Vreg {
	var out Vreg
	for n := range out {
		if f.Get(n) {
			out[n] = 0xFFFF
		}
	}
	return out
}

func maskToFlags(m Vreg) VFlags {
	var f VFlags
	for n := range m {
		f.Set(n, m[n] != 0)
	}
	return f
}

func (v *VectorUnit) vabsAccel(vd, vs, vt, e int) {
	var zero Vreg
	vte := v.R[vt].Broadcast(e)
	vs0 := laneCmpEq(v.R[vs], zero)
	slt := laneShrA(v.R[vs], 15)
	out := laneAndNot(vs0, vte)
	out = laneXor(out, slt)
	v.AccL = laneSub(out, slt)
	v.R[vd] = laneSubsS16(out, slt)
}

func (v *VectorUnit) vaddAccel(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	carry := flagsToMask(v.VCOL)
	sum := laneAdd(v.R[vs], vte)
	v.AccL = laneSub(sum, carry)
	min := laneMinS16(v.R[vs], vte)
	max := laneMaxS16(v.R[vs], vte)
	min = laneSubsS16(min, carry)
	v.R[vd] = laneAddsS16(min, max)
	v.VCOL = 0
	v.VCOH = 0
}

func (v *VectorUnit) vaddcAccel(vd, vs, vt, e int) {
	var zero Vreg
	vte := v.R[vt].Broadcast(e)
	sum := laneAddsU16(v.R[vs], vte)
	v.AccL = laneAdd(v.R[vs], vte)
	carry := laneCmpEq(laneCmpEq(sum, v.AccL), zero)
	v.VCOL = maskToFlags(carry)
	v.VCOH = 0
	v.R[vd] = v.AccL
}

func (v *VectorUnit) vmacfAccel(vd, vs, vt, e int, unsigned bool) {
	var zero Vreg
	vte := v.R[vt].Broadcast(e)
	lo := laneMullo(v.R[vs], vte)
	hi := laneMulhiS16(v.R[vs], vte)
	md := laneShl(hi, 1)
	carry := laneShrL(lo, 15)
	hi = laneShrA(hi, 15)
	md = laneOr(md, carry)
	lo = laneShl(lo, 1)
	omask := laneAddsU16(v.AccL, lo)
	v.AccL = laneAdd(v.AccL, lo)
	omask = laneCmpEq(laneCmpEq(v.AccL, omask), zero)
	md = laneSub(md, omask)
	carry = laneAnd(laneCmpEq(md, zero), omask)
	hi = laneSub(hi, carry)
	omask = laneAddsU16(v.AccM, md)
	v.AccM = laneAdd(v.AccM, md)
	omask = laneCmpEq(laneCmpEq(v.AccM, omask), zero)
	v.AccH = laneAdd(v.AccH, hi)
	v.AccH = laneSub(v.AccH, omask)
	if !unsigned {
		v.R[vd] = lanePackMH(v.AccM, v.AccH)
	} else {
		mmask := laneShrA(v.AccM, 15)
		hmask := laneShrA(v.AccH, 15)
		md = laneOr(mmask, v.AccM)
		omask = laneCmpGt(v.AccH, zero)
		md = laneAndNot(hmask, md)
		v.R[vd] = laneOr(omask, md)
	}
}

func (v *VectorUnit) vmadhAccel(vd, vs, vt, e int) {
	var zero Vreg
	vte := v.R[vt].Broadcast(e)
	lo := laneMullo(v.R[vs], vte)
	hi := laneMulhiS16(v.R[vs], vte)
	omask := laneAddsU16(v.AccM, lo)
	v.AccM = laneAdd(v.AccM, lo)
	omask = laneCmpEq(laneCmpEq(v.AccM, omask), zero)
	hi = laneSub(hi, omask)
	v.AccH = laneAdd(v.AccH, hi)
	v.R[vd] = lanePackMH(v.AccM, v.AccH)
}

func (v *VectorUnit) vmadlAccel(vd, vs, vt, e int) {
	var zero Vreg
	vte := v.R[vt].Broadcast(e)
	hi := laneMulhiU16(v.R[vs], vte)
	omask := laneAddsU16(v.AccL, hi)
	v.AccL = laneAdd(v.AccL, hi)
	omask = laneCmpEq(laneCmpEq(v.AccL, omask), zero)
	hi = laneSub(zero, omask)
	omask = laneAddsU16(v.AccM, hi)
	v.AccM = laneAdd(v.AccM, hi)
	omask = laneCmpEq(laneCmpEq(v.AccM, omask), zero)
	v.AccH = laneSub(v.AccH, omask)
	nhi := laneShrA(v.AccH, 15)
	nmd := laneShrA(v.AccM, 15)
	shi := laneCmpEq(nhi, v.AccH)
	smd := laneCmpEq(nhi, nmd)
	cmask := laneAnd(smd, shi)
	cval := laneCmpEq(nhi, zero)
	v.R[vd] = laneBlend(cval, v.AccL, cmask)
}

func (v *VectorUnit) vmadmAccel(vd, vs, vt, e int) {
	var zero Vreg
	vte := v.R[vt].Broadcast(e)
	lo := laneMullo(v.R[vs], vte)
	hi := laneMulhiU16(v.R[vs], vte)
	sign := laneShrA(v.R[vs], 15)
	vta := laneAnd(vte, sign)
	hi = laneSub(hi, vta)
	omask := laneAddsU16(v.AccL, lo)
	v.AccL = laneAdd(v.AccL, lo)
	omask = laneCmpEq(laneCmpEq(v.AccL, omask), zero)
	hi = laneSub(hi, omask)
	omask = laneAddsU16(v.AccM, hi)
	v.AccM = laneAdd(v.AccM, hi)
	omask = laneCmpEq(laneCmpEq(v.AccM, omask), zero)
	hi = laneShrA(hi, 15)
	v.AccH = laneAdd(v.AccH, hi)
	v.AccH = laneSub(v.AccH, omask)
	v.R[vd] = lanePackMH(v.AccM, v.AccH)
}

func (v *VectorUnit) vmadnAccel(vd, vs, vt, e int) {
	var zero Vreg
	vte := v.R[vt].Broadcast(e)
	lo := laneMullo(v.R[vs], vte)
	hi := laneMulhiU16(v.R[vs], vte)
	sign := laneShrA(vte, 15)
	vsa := laneAnd(v.R[vs], sign)
	hi = laneSub(hi, vsa)
	omask := laneAddsU16(v.AccL, lo)
	v.AccL = laneAdd(v.AccL, lo)
	omask = laneCmpEq(laneCmpEq(v.AccL, omask), zero)
	hi = laneSub(hi, omask)
	omask = laneAddsU16(v.AccM, hi)
	v.AccM = laneAdd(v.AccM, hi)
	omask = laneCmpEq(laneCmpEq(v.AccM, omask), zero)
	hi = laneShrA(hi, 15)
	v.AccH = laneAdd(v.AccH, hi)
	v.AccH = laneSub(v.AccH, omask)
	nhi := laneShrA(v.AccH, 15)
	nmd := laneShrA(v.AccM, 15)
	shi := laneCmpEq(nhi, v.AccH)
	smd := laneCmpEq(nhi, nmd)
	cmask := laneAnd(smd, shi)
	cval := laneCmpEq(nhi, zero)
	v.R[vd] = laneBlend(cval, v.AccL, cmask)
}

func (v *VectorUnit) vmudhAccel(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	v.AccL = Vreg{}
	v.AccM = laneMullo(v.R[vs], vte)
	v.AccH = laneMulhiS16(v.R[vs], vte)
	v.R[vd] = lanePackMH(v.AccM, v.AccH)
}

func (v *VectorUnit) vmudlAccel(vd, vs, vt, e int) {
	v.AccL = laneMulhiU16(v.R[vs], v.R[vt].Broadcast(e))
	v.AccM = Vreg{}
	v.AccH = Vreg{}
	v.R[vd] = v.AccL
}

func (v *VectorUnit) vmudmAccel(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	v.AccL = laneMullo(v.R[vs], vte)
	v.AccM = laneMulhiU16(v.R[vs], vte)
	sign := laneShrA(v.R[vs], 15)
	vta := laneAnd(vte, sign)
	v.AccM = laneSub(v.AccM, vta)
	v.AccH = laneShrA(v.AccM, 15)
	v.R[vd] = v.AccM
}

func (v *VectorUnit) vmudnAccel(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	v.AccL = laneMullo(v.R[vs], vte)
	v.AccM = laneMulhiU16(v.R[vs], vte)
	sign := laneShrA(vte, 15)
	vsa := laneAnd(v.R[vs], sign)
	v.AccM = laneSub(v.AccM, vsa)
	v.AccH = laneShrA(v.AccM, 15)
	v.R[vd] = v.AccL
}

func (v *VectorUnit) vmulfAccel(vd, vs, vt, e int, unsigned bool) {
	vte := v.R[vt].Broadcast(e)
	lo := laneMullo(v.R[vs], vte)
	var round Vreg
	for n := range round {
		round[n] = 0x8000
	}
	sign1 := laneShrL(lo, 15)
	lo = laneAdd(lo, lo)
	hi := laneMulhiS16(v.R[vs], vte)
	sign2 := laneShrL(lo, 15)
	v.AccL = laneAdd(round, lo)
	sign1 = laneAdd(sign1, sign2)
	hi = laneShl(hi, 1)
	neq := laneCmpEq(v.R[vs], vte)
	v.AccM = laneAdd(hi, sign1)
	neg := laneShrA(v.AccM, 15)
	if !unsigned {
		eq := laneAnd(neq, neg)
		v.AccH = laneAndNot(neq, neg)
		v.R[vd] = laneAdd(v.AccM, eq)
	} else {
		v.AccH = laneAndNot(neq, neg)
		hi = laneOr(v.AccM, neg)
		v.R[vd] = laneAndNot(v.AccH, hi)
	}
}

func (v *VectorUnit) vsubAccel(vd, vs, vt, e int) {
	vte := v.R[vt].Broadcast(e)
	borrow := flagsToMask(v.VCOL)
	udiff := laneSub(vte, borrow)
	sdiff := laneSubsS16(vte, borrow)
	v.AccL = laneSub(v.R[vs], udiff)
	ov := laneCmpGt(sdiff, udiff)
	out := laneSubsS16(v.R[vs], sdiff)
	v.R[vd] = laneAddsS16(out, ov)
	v.VCOL = 0
	v.VCOH = 0
}

func (v *VectorUnit) vsubcAccel(vd, vs, vt, e int) {
	var zero Vreg
	vte := v.R[vt].Broadcast(e)
	udiff := laneSubsU16(v.R[vs], vte)
	equal := laneCmpEq(v.R[vs], vte)
	diff0 := laneCmpEq(udiff, zero)
	v.VCOH = maskToFlags(laneCmpEq(equal, zero))
	v.VCOL = maskToFlags(laneAndNot(equal, diff0))
	v.AccL = laneSub(v.R[vs], vte)
	v.R[vd] = v.AccL
}
