package opn

// setLFO handles 0x22: bit 3 enables the LFO, bits 0-2 select the speed.
func (c *Chip) setLFO(v uint8) {
	if v&0x08 != 0 {
		c.lfoInc = c.lfoFreq[v&7]
	} else {
		c.lfoInc = 0
	}
}

// advanceLFO steps the LFO by one sample and updates the AM and PM
// outputs. AM is a 0-126 triangle; PM moves at a quarter of the AM rate.
func (c *Chip) advanceLFO() {
	if c.lfoInc == 0 {
		c.lfoAM = 0
		c.lfoPM = 0
		return
	}

	c.lfoCnt += c.lfoInc
	pos := (c.lfoCnt >> lfoSH) & 127

	if pos < 64 {
		c.lfoAM = (pos & 63) * 2
	} else {
		c.lfoAM = 126 - (pos&63)*2
	}

	c.lfoPM = int32(pos >> 2)
}
