package opn

// slot3Freq holds the per-operator frequencies used by channel 2 in
// 3-slot and CSM mode.
type slot3Freq struct {
	fc        [3]int32
	fnH       uint8
	kcode     [3]uint8
	blockFnum [3]uint32
}

// WriteRegister writes v to register addr. Addresses 0x100-0x1FF reach
// the second bank on 6-channel chips. Unmapped addresses are ignored.
func (c *Chip) WriteRegister(addr uint16, v uint8) {
	addr &= 0x1ff
	if int(addr) >= c.model.RegisterSpace() {
		return
	}
	c.regs[addr] = v
	c.busy = 1 << timerSH

	if addr < 0x30 {
		if addr >= 0x20 {
			c.writeMode(uint8(addr), v)
		}
		return
	}
	c.writeReg(addr, v)
}

// WritePort emulates the chip's four bus ports: 0 and 2 latch an address
// for bank 0 and 1, 1 and 3 write data to the latched address. A data
// write to the bank that was not latched is dropped, as on the chip.
func (c *Chip) WritePort(port uint8, v uint8) {
	switch port & 3 {
	case 0:
		c.addr = v
		c.addrA1 = 0
		// The prescaler strobes act on the address write alone.
		if v >= 0x2d && v <= 0x2f && c.model.PrescalerDivider != 0 {
			c.writePrescaler(v)
		}
	case 1:
		if c.addrA1 != 0 {
			return
		}
		c.WriteRegister(uint16(c.addr), v)
	case 2:
		c.addr = v
		c.addrA1 = 1
	case 3:
		if c.addrA1 != 1 {
			return
		}
		c.WriteRegister(uint16(c.addr)|0x100, v)
	}
}

// writeMode handles the global registers 0x20-0x2F.
func (c *Chip) writeMode(r uint8, v uint8) {
	switch r {
	case 0x21: // test
	case 0x22:
		if c.model.LFOPan {
			c.setLFO(v)
		}
	case 0x24:
		c.ta = (c.ta & 0x03) | int(v)<<2
	case 0x25:
		c.ta = (c.ta & 0x3fc) | int(v&3)
	case 0x26:
		c.tb = int(v)
	case 0x27:
		c.setTimers(v)
	case 0x28:
		c.writeKey(v)
	case 0x2a:
		if c.model.HasDAC {
			c.dacOut = (int32(v) - 0x80) << 6
		}
	case 0x2b:
		if c.model.HasDAC {
			c.dacEnabled = v&0x80 != 0
		}
	case 0x2d, 0x2e, 0x2f:
		if c.model.PrescalerDivider != 0 {
			c.writePrescaler(r)
		}
	}
}

// writeKey handles 0x28: channel in bits 0-2, operators 1-4 in bits 4-7.
// Bit 2 selects the second channel group only on 6-channel chips.
func (c *Chip) writeKey(v uint8) {
	n := int(v & 3)
	if n == 3 {
		return
	}
	if v&0x04 != 0 && c.model.Channels > 3 {
		n += 3
	}
	ch := &c.ch[n]
	for i, s := range [4]int{slot1, slot2, slot3, slot4} {
		if v&(0x10<<uint(i)) != 0 {
			c.keyOn(&ch.op[s])
		} else {
			keyOff(&ch.op[s])
		}
	}
}

// writeReg handles the per-operator and per-channel registers 0x30-0xB6
// of either bank.
func (c *Chip) writeReg(r uint16, v uint8) {
	n := int(r & 3)
	if n == 3 {
		return
	}
	bank1 := r >= 0x100
	if bank1 {
		n += 3
	}
	ch := &c.ch[n]
	op := &ch.op[(r>>2)&3]

	switch r & 0xf0 {
	case 0x30:
		c.setDetMul(ch, op, v)
	case 0x40:
		setTL(op, v)
	case 0x50:
		c.setARKSR(ch, op, v)
	case 0x60:
		c.setDR(op, v)
		if c.model.LFOPan {
			op.amMask = mask(v&0x80 != 0)
		}
	case 0x70:
		c.setSR(op, v)
	case 0x80:
		c.setSLRR(op, v)
	case 0x90:
		setSSG(op, v)
	case 0xa0:
		c.writeFreq(ch, n, bank1, (r>>2)&3, v)
	case 0xb0:
		switch (r >> 2) & 3 {
		case 0:
			ch.setAlgoFB(v)
		case 1:
			if c.model.LFOPan {
				ch.setPanLFO(v)
			}
		}
	}
}

// writeFreq handles 0xA0-0xAE.
func (c *Chip) writeFreq(ch *channel, n int, bank1 bool, sel uint16, v uint8) {
	switch sel {
	case 0: // 0xA0-0xA2: fnum low, applies the latched high byte
		ch.fc, ch.kcode, ch.blockFnum = c.freqFromLatch(c.fnH, v)
		ch.dirty = true
	case 1: // 0xA4-0xA6: block and fnum high, latched
		c.fnH = v & 0x3f
	case 2: // 0xA8-0xAA: 3-slot fnum low
		if bank1 {
			return
		}
		c.sl3.fc[n], c.sl3.kcode[n], c.sl3.blockFnum[n] = c.freqFromLatch(c.sl3.fnH, v)
		c.ch[2].dirty = true
	case 3: // 0xAC-0xAE: 3-slot block and fnum high
		if bank1 {
			return
		}
		c.sl3.fnH = v & 0x3f
	}
}

// opnPres holds the prescaler divisors for each selector state.
var opnPres = [4]int{2 * 12, 2 * 12, 6 * 12, 3 * 12}

// writePrescaler handles the 0x2D-0x2F divider strobes.
//
//	0x2D selects 1/1 for the 1/3 line
//	0x2E selects the 1/3 line for output
//	0x2F clears both selectors to 1/2
func (c *Chip) writePrescaler(r uint8) {
	switch r {
	case 0x2d:
		c.prescalerSel |= 0x02
	case 0x2e:
		c.prescalerSel |= 0x01
	case 0x2f:
		c.prescalerSel = 0
	}
	c.setPrescaler(opnPres[c.prescalerSel&3] * c.model.PrescalerDivider)
}
