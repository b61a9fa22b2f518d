package opn

// TimerID selects Timer A or Timer B.
type TimerID int

const (
	TimerA TimerID = iota
	TimerB
)

func (t TimerID) String() string {
	if t == TimerB {
		return "B"
	}
	return "A"
}

// TimerHandler is called whenever a timer is loaded, reloaded after an
// overflow, or stopped. ticks is the new period in timer clocks (0 when
// stopped) and tickSeconds the length of one timer clock.
type TimerHandler func(chip int, timer TimerID, ticks int, tickSeconds float64)

// IRQHandler is called when the IRQ line changes level.
type IRQHandler func(chip int, asserted bool)

// Status bits.
const (
	StatusTimerA = 0x01
	StatusTimerB = 0x02
	StatusBusy   = 0x80
)

// setStatus sets status flags and raises the IRQ on a 0->1 transition.
func (c *Chip) setStatus(flag uint8) {
	c.status |= flag
	if !c.irq && c.status&c.irqMask != 0 {
		c.irq = true
		if c.irqHandler != nil {
			c.irqHandler(c.index, true)
		}
	}
}

// resetStatus clears status flags and drops the IRQ on a 1->0 transition.
func (c *Chip) resetStatus(flag uint8) {
	c.status &^= flag
	if c.irq && c.status&c.irqMask == 0 {
		c.irq = false
		if c.irqHandler != nil {
			c.irqHandler(c.index, false)
		}
	}
}

// setIRQMask replaces the IRQ mask and re-evaluates the line.
func (c *Chip) setIRQMask(m uint8) {
	c.irqMask = m
	c.setStatus(0)
	c.resetStatus(0)
}

func (c *Chip) timerAPeriod() int { return 1024 - c.ta }
func (c *Chip) timerBPeriod() int { return (256 - c.tb) << 4 }

func (c *Chip) notifyTimer(t TimerID, ticks int) {
	if c.timerHandler != nil {
		c.timerHandler(c.index, t, ticks, c.timerBase)
	}
}

// setTimers handles 0x27.
//
//	b7 CSM mode      b6 3-slot mode
//	b5 reset B flag  b4 reset A flag
//	b3 enable B flag b2 enable A flag
//	b1 load B        b0 load A
func (c *Chip) setTimers(v uint8) {
	if (c.mode^v)&0xc0 != 0 {
		c.ch[2].dirty = true
	}
	c.mode = v

	if v&0x20 != 0 {
		c.resetStatus(StatusTimerB)
	}
	if v&0x10 != 0 {
		c.resetStatus(StatusTimerA)
	}

	if v&0x02 != 0 {
		if c.tbc == 0 {
			c.tbc = int64(c.timerBPeriod()) << timerSH
			c.notifyTimer(TimerB, c.timerBPeriod())
		}
	} else if c.tbc != 0 {
		c.tbc = 0
		c.notifyTimer(TimerB, 0)
	}

	if v&0x01 != 0 {
		if c.tac == 0 {
			c.tac = int64(c.timerAPeriod()) << timerSH
			c.notifyTimer(TimerA, c.timerAPeriod())
		}
	} else if c.tac != 0 {
		c.tac = 0
		c.notifyTimer(TimerA, 0)
	}
}

func (c *Chip) timerAOver() {
	if c.mode&0x04 != 0 {
		c.setStatus(StatusTimerA)
	}
	c.tac = int64(c.timerAPeriod()) << timerSH
	c.notifyTimer(TimerA, c.timerAPeriod())
}

func (c *Chip) timerBOver() {
	if c.mode&0x08 != 0 {
		c.setStatus(StatusTimerB)
	}
	c.tbc = int64(c.timerBPeriod()) << timerSH
	c.notifyTimer(TimerB, c.timerBPeriod())
}

// csmKeyControl fires one key-on/key-off pair on every operator of
// channel 2 that is not held by register 0x28.
func (c *Chip) csmKeyControl() {
	ch := &c.ch[2]
	for _, s := range [4]int{slot1, slot2, slot3, slot4} {
		op := &ch.op[s]
		if !op.key {
			c.keyOn(op)
			keyOff(op)
		}
	}
}

// stepTimerA runs Timer A for one output sample.
func (c *Chip) stepTimerA() {
	if c.tac == 0 || c.externalTimers {
		return
	}
	c.tac -= c.timerStep
	if c.tac <= 0 {
		c.timerAOver()
		if c.mode&0x80 != 0 {
			c.csmKeyControl()
		}
	}
}

// stepTimerB runs Timer B for a block of n output samples.
func (c *Chip) stepTimerB(n int) {
	if c.tbc == 0 || c.externalTimers {
		return
	}
	c.tbc -= c.timerStep * int64(n)
	if c.tbc <= 0 {
		c.timerBOver()
	}
}

// stepBusy counts down the busy flag for one output sample.
func (c *Chip) stepBusy() {
	if c.busy > 0 {
		c.busy -= c.timerStep
	}
}

// TimerOver signals a timer overflow from an external timer source.
// Use it with WithExternalTimers, driven by the TimerHandler periods.
func (c *Chip) TimerOver(t TimerID) bool {
	if t == TimerB {
		c.timerBOver()
	} else {
		c.timerAOver()
		if c.mode&0x80 != 0 {
			c.csmKeyControl()
		}
	}
	return c.irq
}
