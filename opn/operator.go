package opn

// egState is the envelope generator phase. The ordering matters: states
// above egRel are the ones a key-off moves to release.
type egState uint8

const (
	egOff egState = iota
	egRel
	egSus
	egDec
	egAtt
)

func (s egState) String() string {
	switch s {
	case egOff:
		return "OFF"
	case egRel:
		return "REL"
	case egSus:
		return "SUS"
	case egDec:
		return "DEC"
	case egAtt:
		return "ATT"
	}
	return "?"
}

// Operator slots in register order. Registers step through operators
// 1,3,2,4, so slot1 is index 0 and slot3 index 1.
const (
	slot1 = 0
	slot2 = 2
	slot3 = 1
	slot4 = 3
)

// SSG-EG mode bits.
const (
	ssgEnable    = 0x08
	ssgAttack    = 0x04
	ssgAlternate = 0x02
	ssgHold      = 0x01
)

// operator is one sine generator plus its envelope generator.
type operator struct {
	dt       uint8 // row of Chip.dtTab (0-7)
	ksrShift uint8 // 3 - KS
	ksr      uint8 // keycode >> ksrShift
	mul      uint32

	// Effective rates: 32 + 2*R, or 0 for R=0. Release is 34 + 4*RR.
	ar, d1r, d2r, rr uint32

	phase uint32
	incr  int32

	state  egState
	tl     uint32
	volume int32
	sl     uint32
	volOut uint32
	ssg    uint8
	ssgn   uint8
	key    bool
	amMask uint32

	egShAR, egSelAR   uint8
	egShD1R, egSelD1R uint8
	egShD2R, egSelD2R uint8
	egShRR, egSelRR   uint8
}

// egOut returns the attenuation fed to the sine lookup, including AM.
func (op *operator) egOut(am uint32) uint32 {
	return op.volOut + (am & op.amMask)
}

// setDetMul handles 0x30: DT in bits 4-6, MUL in bits 0-3.
func (c *Chip) setDetMul(ch *channel, op *operator, v uint8) {
	if m := uint32(v & 0x0f); m != 0 {
		op.mul = m * 2
	} else {
		op.mul = 1
	}
	op.dt = (v >> 4) & 7
	ch.dirty = true
}

// setTL handles 0x40: 7-bit total level.
func setTL(op *operator, v uint8) {
	op.tl = uint32(v&0x7f) << (envBits - 7)
}

// setARKSR handles 0x50: KS in bits 6-7, AR in bits 0-4.
func (c *Chip) setARKSR(ch *channel, op *operator, v uint8) {
	oldShift := op.ksrShift

	if r := uint32(v & 0x1f); r != 0 {
		op.ar = 32 + (r << 1)
	} else {
		op.ar = 0
	}

	op.ksrShift = 3 - (v >> 6)
	if op.ksrShift != oldShift {
		ch.dirty = true
	}

	c.refreshAttack(op)
}

// refreshAttack recomputes the attack shift/select for the current ksr.
func (c *Chip) refreshAttack(op *operator) {
	r := op.ar + uint32(op.ksr)
	if r < instantAttackRate {
		op.egShAR = egRateShift[r]
		op.egSelAR = c.model.rateSelect()[r]
	} else {
		op.egShAR = 0
		op.egSelAR = egSelAttackMax
	}
}

// setDR handles the decay rate half of 0x60.
func (c *Chip) setDR(op *operator, v uint8) {
	if r := uint32(v & 0x1f); r != 0 {
		op.d1r = 32 + (r << 1)
	} else {
		op.d1r = 0
	}
	r := op.d1r + uint32(op.ksr)
	op.egShD1R = egRateShift[r]
	op.egSelD1R = c.model.rateSelect()[r]
}

// setSR handles 0x70: sustain (second decay) rate.
func (c *Chip) setSR(op *operator, v uint8) {
	if r := uint32(v & 0x1f); r != 0 {
		op.d2r = 32 + (r << 1)
	} else {
		op.d2r = 0
	}
	r := op.d2r + uint32(op.ksr)
	op.egShD2R = egRateShift[r]
	op.egSelD2R = c.model.rateSelect()[r]
}

// setSLRR handles 0x80: SL in bits 4-7, RR in bits 0-3.
func (c *Chip) setSLRR(op *operator, v uint8) {
	op.sl = slTable[v>>4]
	op.rr = 34 + (uint32(v&0x0f) << 2)
	r := op.rr + uint32(op.ksr)
	op.egShRR = egRateShift[r]
	op.egSelRR = c.model.rateSelect()[r]
}

// setSSG handles 0x90. Bit 1 of ssgn tracks inversion, seeded from the
// attack bit.
func setSSG(op *operator, v uint8) {
	op.ssg = v & 0x0f
	op.ssgn = (v & ssgAttack) >> 1
}

// refreshSlot recomputes the phase increment from a channel frequency and
// keycode, and the cached EG rates when the key scale changed.
func (c *Chip) refreshSlot(op *operator, fc int32, kc uint8) {
	ksr := kc >> op.ksrShift

	fc += c.dtTab[op.dt][kc]
	if fc < 0 {
		fc += int32(c.fnMax)
	}
	op.incr = int32((int64(fc) * int64(op.mul)) >> 1)

	if op.ksr == ksr {
		return
	}
	op.ksr = ksr

	c.refreshAttack(op)

	sel := c.model.rateSelect()
	op.egShD1R = egRateShift[op.d1r+uint32(ksr)]
	op.egShD2R = egRateShift[op.d2r+uint32(ksr)]
	op.egShRR = egRateShift[op.rr+uint32(ksr)]
	op.egSelD1R = sel[op.d1r+uint32(ksr)]
	op.egSelD2R = sel[op.d2r+uint32(ksr)]
	op.egSelRR = sel[op.rr+uint32(ksr)]
}

// keyOn starts the envelope if the key is not already held.
func (c *Chip) keyOn(op *operator) {
	if op.key {
		return
	}
	op.key = true
	op.phase = 0
	op.ssgn = (op.ssg & ssgAttack) >> 1

	if c.model.NemesisEG && op.ar+uint32(op.ksr) >= instantAttackRate {
		op.volume = minAttIndex
		op.state = egDec
		return
	}
	op.state = egAtt
}

// keyOff moves a held operator to release.
func keyOff(op *operator) {
	if !op.key {
		return
	}
	op.key = false
	if op.state > egRel {
		op.state = egRel
	}
}

// opCalc evaluates a modulated operator. pm is the summed output of the
// operators feeding it.
func opCalc(phase uint32, env uint32, pm int32) int32 {
	idx := ((phase &^ freqMask) + uint32(pm<<15)) >> freqSH
	p := (env << 3) + sinTab[idx&sinMask]
	if p >= tlTabLen {
		return 0
	}
	return tlTab[p]
}

// opCalc1 evaluates operator 1, whose feedback input is pre-scaled.
func opCalc1(phase uint32, env uint32, pm int32) int32 {
	idx := ((phase &^ freqMask) + uint32(pm)) >> freqSH
	p := (env << 3) + sinTab[idx&sinMask]
	if p >= tlTabLen {
		return 0
	}
	return tlTab[p]
}
