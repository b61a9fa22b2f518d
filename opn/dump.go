package opn

import "fmt"

// Dump returns a copy of the register file: 256 bytes on 3-channel
// models, 512 on 6-channel ones.
func (c *Chip) Dump() []byte {
	out := make([]byte, c.model.RegisterSpace())
	copy(out, c.regs[:])
	return out
}

// Restore replays a register file produced by Dump through the normal
// write path. The key-on strobe (0x28) and the prescaler strobes are not
// replayed, so every operator comes back keyed off and the prescaler is
// left as is. Phase accumulators are not part of the register file.
func (c *Chip) Restore(regs []byte) error {
	if len(regs) != c.model.RegisterSpace() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrRegisterDumpSize, len(regs), c.model.RegisterSpace())
	}

	w := func(addr uint16) {
		if int(addr) < len(regs) {
			c.WriteRegister(addr, regs[addr])
		}
	}

	// DAC before the FM registers so channel 6 starts in the right mode.
	w(0x2a)
	w(0x2b)

	w(0x22)
	for r := uint16(0x24); r <= 0x27; r++ {
		w(r)
	}

	for _, bank := range []uint16{0, 0x100} {
		for r := uint16(0x30); r < 0xa0; r++ {
			if r&3 != 3 {
				w(bank | r)
			}
		}
		// The high byte is latched, so it goes first.
		for n := uint16(0); n < 3; n++ {
			w(bank | (0xa4 + n))
			w(bank | (0xa0 + n))
		}
		if bank == 0 {
			for n := uint16(0); n < 3; n++ {
				w(0xac + n)
				w(0xa8 + n)
			}
		}
		for r := uint16(0xb0); r <= 0xb6; r++ {
			if r&3 != 3 {
				w(bank | r)
			}
		}
	}

	// Registers with no decoded effect still come back verbatim.
	copy(c.regs[:], regs)
	c.busy = 0
	return nil
}
