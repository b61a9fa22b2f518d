package opn

// sink names where an operator's output is accumulated during one sample.
type sink uint8

const (
	sinkMem sink = iota // one-sample delay, read back next sample
	sinkM2              // modulation input of operator 3
	sinkC1              // modulation input of operator 2
	sinkC2              // modulation input of operator 4
	sinkOut             // channel output
)

// accum holds the per-sample scratch values of a channel evaluation.
type accum struct {
	m2, c1, c2, mem, out int32
}

func (a *accum) add(s sink, v int32) {
	switch s {
	case sinkMem:
		a.mem += v
	case sinkM2:
		a.m2 += v
	case sinkC1:
		a.c1 += v
	case sinkC2:
		a.c2 += v
	case sinkOut:
		a.out += v
	}
}

// routing is one algorithm's wiring. Operator 4 always feeds the output.
type routing struct {
	op1, op2, op3 sink
	mem           sink
	op1Fanout     bool // algorithm 5: op1 drives operators 2, 3 and 4
}

var algorithms = [8]routing{
	// 1->2->MEM->3->4->out
	{op1: sinkC1, op2: sinkMem, op3: sinkC2, mem: sinkM2},
	// (1+2)->MEM->3->4->out
	{op1: sinkMem, op2: sinkMem, op3: sinkC2, mem: sinkM2},
	// (1 + 2->MEM->3)->4->out
	{op1: sinkC2, op2: sinkMem, op3: sinkC2, mem: sinkM2},
	// (1->2->MEM + 3)->4->out
	{op1: sinkC1, op2: sinkMem, op3: sinkC2, mem: sinkC2},
	// 1->2 + 3->4
	{op1: sinkC1, op2: sinkOut, op3: sinkC2, mem: sinkMem},
	// 1 -> (MEM->3, 2, 4)
	{op1Fanout: true, op2: sinkOut, op3: sinkOut, mem: sinkM2},
	// 1->2 + 3 + 4
	{op1: sinkC1, op2: sinkOut, op3: sinkOut, mem: sinkMem},
	// 1 + 2 + 3 + 4
	{op1: sinkOut, op2: sinkOut, op3: sinkOut, mem: sinkMem},
}

// channel is four operators and their connection.
type channel struct {
	op [4]operator

	algo   uint8
	fb     uint8 // feedback shift: 0 off, else 7-13
	op1Out [2]int32
	route  routing
	memVal int32

	pms uint32 // PM depth * 32
	ams uint8  // AM depth shift

	fc        int32
	kcode     uint8
	blockFnum uint32

	panL, panR uint32

	// dirty requests an increment refresh before the next sample.
	dirty bool
}

// setAlgoFB handles 0xB0: FB in bits 3-5, algorithm in bits 0-2.
func (ch *channel) setAlgoFB(v uint8) {
	ch.algo = v & 7
	if fb := (v >> 3) & 7; fb != 0 {
		ch.fb = fb + 6
	} else {
		ch.fb = 0
	}
	ch.route = algorithms[ch.algo]
}

// setPanLFO handles 0xB4: L in bit 7, R in bit 6, AMS in bits 4-5,
// PMS in bits 0-2.
func (ch *channel) setPanLFO(v uint8) {
	ch.pms = uint32(v&7) * 32
	ch.ams = lfoAMSDepthShift[(v>>4)&3]
	ch.panL = mask(v&0x80 != 0)
	ch.panR = mask(v&0x40 != 0)
}

func mask(on bool) uint32 {
	if on {
		return ^uint32(0)
	}
	return 0
}

// freqFromLatch decodes a block/fnum pair into the base increment, the
// keycode, and the plain block_fnum form the LFO works from.
func (c *Chip) freqFromLatch(fnH, lo uint8) (fc int32, kc uint8, blockFnum uint32) {
	fn := uint32(fnH&7)<<8 | uint32(lo)
	blk := fnH >> 3
	kc = blk<<2 | fkTable[fn>>7]
	fc = int32(c.fnTable[fn*2] >> (7 - blk))
	blockFnum = uint32(blk)<<11 | fn
	return fc, kc, blockFnum
}

// refreshChannel recomputes increments for a channel flagged dirty.
func (c *Chip) refreshChannel(ch *channel) {
	if !ch.dirty {
		return
	}
	for i := range ch.op {
		c.refreshSlot(&ch.op[i], ch.fc, ch.kcode)
	}
	ch.dirty = false
}

// refreshSlot3 is refreshChannel for channel 2 in 3-slot mode, where
// operators 1-3 take their frequency from the 0xA8-0xAE registers.
func (c *Chip) refreshSlot3(ch *channel) {
	if !ch.dirty {
		return
	}
	c.refreshSlot(&ch.op[slot1], c.sl3.fc[1], c.sl3.kcode[1])
	c.refreshSlot(&ch.op[slot2], c.sl3.fc[2], c.sl3.kcode[2])
	c.refreshSlot(&ch.op[slot3], c.sl3.fc[0], c.sl3.kcode[0])
	c.refreshSlot(&ch.op[slot4], ch.fc, ch.kcode)
	ch.dirty = false
}

// calcChannel evaluates one sample of a channel and advances its phases.
// It returns the channel output before panning.
func (c *Chip) calcChannel(ch *channel, chnum int) int32 {
	am := c.lfoAM >> ch.ams
	var acc accum
	r := &ch.route

	acc.add(r.mem, ch.memVal)

	eg := ch.op[slot1].egOut(am)
	out := ch.op1Out[0] + ch.op1Out[1]
	ch.op1Out[0] = ch.op1Out[1]

	if r.op1Fanout {
		acc.mem = ch.op1Out[0]
		acc.c1 = ch.op1Out[0]
		acc.c2 = ch.op1Out[0]
	} else {
		acc.add(r.op1, ch.op1Out[0])
	}

	ch.op1Out[1] = 0
	if eg < envQuiet {
		if ch.fb == 0 {
			out = 0
		}
		ch.op1Out[1] = opCalc1(ch.op[slot1].phase, eg, out<<ch.fb)
	}

	if eg = ch.op[slot3].egOut(am); eg < envQuiet {
		acc.add(r.op3, opCalc(ch.op[slot3].phase, eg, acc.m2))
	}
	if eg = ch.op[slot2].egOut(am); eg < envQuiet {
		acc.add(r.op2, opCalc(ch.op[slot2].phase, eg, acc.c1))
	}
	if eg = ch.op[slot4].egOut(am); eg < envQuiet {
		acc.out += opCalc(ch.op[slot4].phase, eg, acc.c2)
	}

	ch.memVal = acc.mem

	switch {
	case ch.pms == 0:
		for i := range ch.op {
			ch.op[i].phase += uint32(ch.op[i].incr)
		}
	case chnum == 2 && c.mode&0xc0 != 0:
		c.advancePhaseLFO(&ch.op[slot1], ch.pms, c.sl3.blockFnum[1])
		c.advancePhaseLFO(&ch.op[slot2], ch.pms, c.sl3.blockFnum[2])
		c.advancePhaseLFO(&ch.op[slot3], ch.pms, c.sl3.blockFnum[0])
		c.advancePhaseLFO(&ch.op[slot4], ch.pms, ch.blockFnum)
	default:
		for i := range ch.op {
			c.advancePhaseLFO(&ch.op[i], ch.pms, ch.blockFnum)
		}
	}

	return acc.out
}

// advancePhaseLFO advances an operator's phase with the LFO's current PM
// offset applied to its block/fnum. The cached increment is left alone.
func (c *Chip) advancePhaseLFO(op *operator, pms uint32, blockFnum uint32) {
	offset := lfoPMTable[((blockFnum&0x7f0)>>4)*256+pms+uint32(c.lfoPM)]
	if offset == 0 {
		op.phase += uint32(op.incr)
		return
	}

	blockFnum = blockFnum*2 + uint32(offset)
	blk := (blockFnum & 0x7000) >> 12
	fn := blockFnum & 0xfff
	kc := uint8(blk<<2) | fkTable[fn>>8]

	fc := int32(c.fnTable[fn]>>(7-blk)) + c.dtTab[op.dt][kc]
	if fc < 0 {
		fc += int32(c.fnMax)
	}
	op.phase += uint32((int64(fc) * int64(op.mul)) >> 1)
}
