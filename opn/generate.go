package opn

// Generate renders len(buf)/2 stereo frames into buf, interleaved L,R.
// Output is added to what buf already holds, then scaled by volume
// percent (and x1.5 when loud), clipped to 16 bits and low-pass filtered
// if enabled.
func (c *Chip) Generate(buf []int16, volume int, loud bool) {
	n := len(buf) / 2
	if n == 0 {
		return
	}

	var out [6]int32
	for i := 0; i < n; i++ {
		c.refreshDirty()
		c.advanceLFO()

		for j := range c.ch {
			out[j] = 0
			if !c.model.hasChannel(j) {
				continue
			}
			if j == 5 && c.dacEnabled {
				out[j] = c.dacOut
				continue
			}
			out[j] = c.calcChannel(&c.ch[j], j)
		}

		c.egTimer += c.egTimerAdd
		for c.egTimer >= c.egTimerOverflow {
			c.egTimer -= c.egTimerOverflow
			c.egCnt++
			for j := range c.ch {
				c.advanceEG(&c.ch[j])
			}
		}

		var lt, rt int32
		for j := range c.ch {
			lt += int32(uint32(out[j]) & c.ch[j].panL)
			rt += int32(uint32(out[j]) & c.ch[j].panR)
		}

		buf[i*2] = mixSample(lt, buf[i*2], volume, loud, c.lpfCutoff, &c.lpfMemL)
		buf[i*2+1] = mixSample(rt, buf[i*2+1], volume, loud, c.lpfCutoff, &c.lpfMemR)

		c.stepTimerA()
		c.stepBusy()
	}
	c.stepTimerB(n)
}

// refreshDirty recomputes phase increments and key-scaled rates of any
// channel whose frequency, multiplier, detune or key scale changed.
func (c *Chip) refreshDirty() {
	for j := range c.ch {
		ch := &c.ch[j]
		if !ch.dirty {
			continue
		}
		if j == 2 && c.mode&0xc0 != 0 {
			c.refreshSlot3(ch)
		} else {
			c.refreshChannel(ch)
		}
	}
}
