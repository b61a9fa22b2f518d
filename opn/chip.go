package opn

// Chip is one OPN-family FM sound chip.
//
// A Chip is not safe for concurrent use. Register writes take effect from
// the next generated sample.
type Chip struct {
	model *Model
	index int

	clock int
	rate  int

	regs   [512]uint8
	addr   uint8
	addrA1 uint8

	freqbase     float64
	prescalerSel uint8
	timerBase    float64 // seconds per timer clock
	timerStep    int64   // timer clocks per output sample, << timerSH

	fnTable [4096]uint32
	fnMax   uint32
	dtTab   [8][32]int32

	egTimer         uint32
	egTimerAdd      uint32
	egTimerOverflow uint32
	egCnt           uint32

	lfoFreq [8]uint32
	lfoCnt  uint32
	lfoInc  uint32
	lfoAM   uint32
	lfoPM   int32

	fnH uint8
	sl3 slot3Freq
	ch  [6]channel

	status  uint8
	irq     bool
	irqMask uint8
	mode    uint8
	ta, tb  int
	tac     int64
	tbc     int64
	busy    int64

	dacEnabled bool
	dacOut     int32

	lpfCutoff      int32
	lpfMemL        int32
	lpfMemR        int32
	externalTimers bool

	timerHandler TimerHandler
	irqHandler   IRQHandler
}

// Option configures a Chip at construction.
type Option func(*Chip)

// WithIndex sets the chip number passed to handlers.
func WithIndex(i int) Option {
	return func(c *Chip) { c.index = i }
}

// WithTimerHandler installs the timer load/reload callback.
func WithTimerHandler(h TimerHandler) Option {
	return func(c *Chip) { c.timerHandler = h }
}

// WithIRQHandler installs the IRQ level callback.
func WithIRQHandler(h IRQHandler) Option {
	return func(c *Chip) { c.irqHandler = h }
}

// WithExternalTimers disables internal timer counting. The host drives
// overflows through TimerOver instead.
func WithExternalTimers() Option {
	return func(c *Chip) { c.externalTimers = true }
}

// WithLowpass enables the output low-pass filter. cutoff is the filter
// coefficient in 1/65536 units; 0 disables it.
func WithLowpass(cutoff int) Option {
	return func(c *Chip) { c.SetLowpass(cutoff) }
}

// New creates a chip of the given model running at clockHz and producing
// rateHz output samples per second. The chip is returned reset.
func New(model *Model, clockHz, rateHz int, opts ...Option) (*Chip, error) {
	if model == nil {
		return nil, ErrUnknownModel
	}
	if clockHz <= 0 {
		return nil, ErrInvalidClock
	}
	if rateHz <= 0 {
		return nil, ErrInvalidRate
	}

	buildTables()

	m := *model
	c := &Chip{
		model: &m,
		clock: clockHz,
		rate:  rateHz,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c, nil
}

// Model returns a copy of the chip's model, taken when the chip was built.
func (c *Chip) Model() Model { return *c.model }

// Index returns the chip number passed to handlers.
func (c *Chip) Index() int { return c.index }

// Clock returns the input clock in Hz.
func (c *Chip) Clock() int { return c.clock }

// SampleRate returns the output sample rate in Hz.
func (c *Chip) SampleRate() int { return c.rate }

// SetLowpass sets the low-pass coefficient (1/65536 units, 0 = off).
func (c *Chip) SetLowpass(cutoff int) {
	if cutoff < 0 {
		cutoff = 0
	}
	if cutoff > 0x10000 {
		cutoff = 0x10000
	}
	c.lpfCutoff = int32(cutoff)
}

// IRQ reports the current IRQ line level.
func (c *Chip) IRQ() bool { return c.irq }

// setPrescaler recomputes every table that depends on the ratio of chip
// clock to output rate.
func (c *Chip) setPrescaler(pres int) {
	c.freqbase = float64(c.clock) / float64(c.rate) / float64(pres)

	c.egTimerAdd = uint32(float64(1<<egSH) * c.freqbase)
	c.egTimerOverflow = 3 * (1 << egSH)

	c.timerBase = 1.0 / (float64(c.clock) / float64(pres))
	c.timerStep = int64(c.freqbase * (1 << timerSH))

	for d := 0; d < 4; d++ {
		for i := 0; i < 32; i++ {
			rate := float64(dtTab[d*32+i]) * sinLen * c.freqbase * (1 << freqSH) / float64(1<<20)
			c.dtTab[d][i] = int32(rate)
			c.dtTab[d+4][i] = -c.dtTab[d][i]
		}
	}

	// 4096 entries: the LFO works with one more bit than the 2048
	// register values.
	for i := range c.fnTable {
		c.fnTable[i] = uint32(float64(i) * 32 * c.freqbase * (1 << (freqSH - 10)))
	}
	c.fnMax = uint32(float64(0x20000) * c.freqbase * (1 << (freqSH - 10)))

	for i := range c.lfoFreq {
		c.lfoFreq[i] = uint32((1.0 / float64(lfoSamplesPerStep[i])) * (1 << lfoSH) * c.freqbase)
	}

	for i := range c.ch {
		c.ch[i].dirty = true
	}
}

// Reset returns the chip to its power-on state.
func (c *Chip) Reset() {
	c.prescalerSel = 2
	c.setPrescaler(c.model.Prescaler)

	c.setIRQMask(StatusTimerA | StatusTimerB)
	c.busy = 0
	c.writeMode(0x27, 0x30)

	c.egTimer = 0
	c.egCnt = 0
	c.lfoCnt = 0
	c.lfoAM = 0
	c.lfoPM = 0

	c.resetStatus(0xff)
	c.resetChannels()

	for r := uint16(0xb6); r >= 0xb4; r-- {
		c.writeReg(r, 0xc0)
		c.writeReg(r|0x100, 0xc0)
	}
	for r := uint16(0xb2); r >= 0x30; r-- {
		c.writeReg(r, 0)
		c.writeReg(r|0x100, 0)
	}
	for r := uint8(0x26); r >= 0x20; r-- {
		c.writeMode(r, 0)
	}

	// Chips without pan registers drive both outputs.
	if !c.model.LFOPan {
		for i := range c.ch {
			c.ch[i].panL = mask(true)
			c.ch[i].panR = mask(true)
		}
	}

	c.dacEnabled = false
	c.dacOut = 0
	c.lpfMemL = 0
	c.lpfMemR = 0
	c.addr = 0
	c.addrA1 = 0
	c.regs = [512]uint8{}

	// The pan defaults written above are part of the register file.
	if c.model.LFOPan {
		for r := 0xb4; r <= 0xb6; r++ {
			c.regs[r] = 0xc0
			if c.model.Channels > 3 {
				c.regs[r|0x100] = 0xc0
			}
		}
	}
}

func (c *Chip) resetChannels() {
	c.mode = 0
	c.ta = 0
	c.tac = 0
	c.tb = 0
	c.tbc = 0

	for i := range c.ch {
		ch := &c.ch[i]
		ch.fc = 0
		ch.op1Out = [2]int32{}
		ch.memVal = 0
		for j := range ch.op {
			op := &ch.op[j]
			op.ssg = 0
			op.ssgn = 0
			op.state = egOff
			op.key = false
			op.volume = maxAttIndex
			op.volOut = maxAttIndex
			op.phase = 0
		}
	}
}

// ReadStatus returns the status byte: timer flags in bits 0-1 and the
// busy flag in bit 7. Every port returns the same byte.
func (c *Chip) ReadStatus(port uint8) uint8 {
	if c.busy > 0 {
		return c.status | StatusBusy
	}
	return c.status
}
