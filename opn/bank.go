package opn

import "sync"

// Config describes a set of identical chips sharing one clock and rate.
type Config struct {
	Model      *Model
	Chips      int
	ClockHz    int
	SampleRate int

	// MJazz runs chip i at SampleRate << i, for boards that stack chips
	// at multiplied rates.
	MJazz bool

	TimerHandler   TimerHandler
	IRQHandler     IRQHandler
	ExternalTimers bool

	// LowpassCutoff is the output filter coefficient, 0 for none.
	LowpassCutoff int
}

// Bank is an ordered set of chips built from one Config. Chip i reports
// index i to the handlers.
type Bank struct {
	chips  []*Chip
	global bool
}

// NewBank builds cfg.Chips chips. It returns an error, and no chips, if
// any chip cannot be built.
func NewBank(cfg Config) (*Bank, error) {
	if cfg.Chips < 1 {
		return nil, ErrInvalidChipCount
	}
	if cfg.Model == nil {
		cfg.Model = YM2612
	}

	b := &Bank{chips: make([]*Chip, 0, cfg.Chips)}
	for i := 0; i < cfg.Chips; i++ {
		rate := cfg.SampleRate
		if cfg.MJazz {
			rate <<= uint(i)
		}

		opts := []Option{
			WithIndex(i),
			WithTimerHandler(cfg.TimerHandler),
			WithIRQHandler(cfg.IRQHandler),
			WithLowpass(cfg.LowpassCutoff),
		}
		if cfg.ExternalTimers {
			opts = append(opts, WithExternalTimers())
		}

		c, err := New(cfg.Model, cfg.ClockHz, rate, opts...)
		if err != nil {
			b.chips = nil
			return nil, err
		}
		b.chips = append(b.chips, c)
	}
	return b, nil
}

// Len returns the number of chips.
func (b *Bank) Len() int { return len(b.chips) }

// Chip returns chip i.
func (b *Bank) Chip(i int) *Chip { return b.chips[i] }

// Reset resets every chip.
func (b *Bank) Reset() {
	for _, c := range b.chips {
		c.Reset()
	}
}

// Close releases the chips. Closing the bank returned by Init frees the
// process-wide slot for another Init.
func (b *Bank) Close() {
	if b.global {
		globalMu.Lock()
		if global == b {
			global = nil
		}
		globalMu.Unlock()
	}
	b.chips = nil
}

var (
	globalMu sync.Mutex
	global   *Bank
)

// Init builds the process-wide bank. Only one may be live at a time;
// a second Init before Shutdown returns ErrAlreadyInitialized.
func Init(cfg Config) (*Bank, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return nil, ErrAlreadyInitialized
	}
	b, err := NewBank(cfg)
	if err != nil {
		return nil, err
	}
	b.global = true
	global = b
	return b, nil
}

// Shutdown releases the process-wide bank, if any.
func Shutdown() {
	globalMu.Lock()
	b := global
	global = nil
	globalMu.Unlock()

	if b != nil {
		b.chips = nil
	}
}
