// Package player renders parsed VGM streams through the OPN core and the
// SN76489 PSG into interleaved 16-bit stereo PCM.
package player

import (
	"errors"
	"fmt"

	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/opnfm/opn"
	"github.com/user-none/opnfm/vgm"
)

// DefaultPSGGain scales the PSG's 0-1 float output into the FM range.
const DefaultPSGGain = 1898.0

var (
	ErrNoChips     = errors.New("player: stream uses no supported chip")
	ErrInvalidRate = errors.New("player: sample rate must be positive")
)

// Config controls rendering.
type Config struct {
	SampleRate int

	// Loops is how many extra times the loop section is played. A
	// negative value loops forever.
	Loops int

	Volume  int // percent, applied to FM and PSG
	Loud    bool
	PSGGain float32

	// LowpassHz enables the FM output filter at this cutoff; 0 disables it.
	LowpassHz float64
}

// DefaultConfig returns the settings used by the command.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		Loops:      1,
		Volume:     100,
		PSGGain:    DefaultPSGGain,
	}
}

// fmBank is the set of chips one chip type in the stream addresses.
type fmBank struct {
	kind vgm.ChipType
	bank *opn.Bank
}

// psgUnit runs one SN76489 clock-accurately against the output rate.
type psgUnit struct {
	chip   *sn76489.SN76489
	cps    float64
	clocks float64
}

// Player renders one VGM file. It is not safe for concurrent use.
type Player struct {
	file *vgm.File
	cfg  Config

	fm  []fmBank
	psg [2]*psgUnit

	pos       int
	wait      uint32 // VGM samples left before the next command
	acc       int    // rate conversion accumulator
	loopsLeft int
	pcmPos    int
	done      bool

	elapsed     uint64 // VGM samples played
	loopElapsed uint64 // elapsed at the last loop jump
	looped      bool

	scratch []int16 // one FM chip's output
	fmSum   []int32
}

// New builds the chips the stream's header declares.
func New(f *vgm.File, cfg Config) (*Player, error) {
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidRate
	}

	p := &Player{file: f, cfg: cfg, loopsLeft: cfg.Loops}
	cutoff := opn.LowpassCutoffForHz(cfg.LowpassHz, cfg.SampleRate)

	h := f.Header
	ym2610 := opn.YM2610
	if h.YM2610B {
		ym2610 = opn.YM2610B
	}
	decl := []struct {
		kind  vgm.ChipType
		model *opn.Model
		clock vgm.ChipClock
	}{
		{vgm.ChipYM2612, opn.YM2612, h.YM2612},
		{vgm.ChipYM2203, opn.YM2203, h.YM2203},
		{vgm.ChipYM2608, opn.YM2608, h.YM2608},
		{vgm.ChipYM2610, ym2610, h.YM2610},
	}
	for _, d := range decl {
		if !d.clock.Used() {
			continue
		}
		n := 1
		if d.clock.Dual {
			n = 2
		}
		b, err := opn.NewBank(opn.Config{
			Model:         d.model,
			Chips:         n,
			ClockHz:       d.clock.Hz,
			SampleRate:    cfg.SampleRate,
			LowpassCutoff: cutoff,
		})
		if err != nil {
			return nil, fmt.Errorf("player: %s: %w", d.kind, err)
		}
		p.fm = append(p.fm, fmBank{kind: d.kind, bank: b})
	}

	if h.PSG.Used() {
		n := 1
		if h.PSG.Dual {
			n = 2
		}
		for i := 0; i < n; i++ {
			psg := sn76489.New(h.PSG.Hz, cfg.SampleRate, 1, sn76489.Sega)
			psg.SetGain(cfg.PSGGain)
			p.psg[i] = &psgUnit{chip: psg, cps: float64(h.PSG.Hz) / float64(cfg.SampleRate)}
		}
	}

	if len(p.fm) == 0 && p.psg[0] == nil {
		return nil, ErrNoChips
	}
	return p, nil
}

// Done reports whether the stream has ended.
func (p *Player) Done() bool { return p.done }

// Elapsed returns the stream position in VGM samples (44100 per second).
func (p *Player) Elapsed() uint64 { return p.elapsed }

// File returns the stream being played.
func (p *Player) File() *vgm.File { return p.file }

// Chip returns chip index of the given type, or nil if the stream does not
// use it.
func (p *Player) Chip(kind vgm.ChipType, index int) *opn.Chip {
	for _, b := range p.fm {
		if b.kind == kind && index < b.bank.Len() {
			return b.bank.Chip(index)
		}
	}
	return nil
}

// Chips returns every FM chip in a fixed order.
func (p *Player) Chips() []*opn.Chip {
	var out []*opn.Chip
	for _, b := range p.fm {
		for i := 0; i < b.bank.Len(); i++ {
			out = append(out, b.bank.Chip(i))
		}
	}
	return out
}

// Render fills buf with len(buf)/2 stereo frames and returns the number of
// frames produced. It returns fewer only once the stream has ended; the
// rest of buf is left silent.
func (p *Player) Render(buf []int16) int {
	clear(buf)
	if p.done {
		return 0
	}
	frames := len(buf) / 2
	start, end := 0, frames

render:
	for i := 0; i < frames; i++ {
		p.acc += vgm.SampleRate
		for p.acc >= p.cfg.SampleRate {
			p.acc -= p.cfg.SampleRate
			if p.wait == 0 {
				// Writes land between output frames.
				p.generate(buf[start*2 : i*2])
				start = i
				p.runCommands()
				if p.done {
					end = i
					break render
				}
			}
			p.wait--
			p.elapsed++
		}
	}
	p.generate(buf[start*2 : end*2])
	return end
}

// runCommands executes commands until a wait is pending or the stream
// ends.
func (p *Player) runCommands() {
	cmds := p.file.Commands
	for p.wait == 0 {
		if p.pos >= len(cmds) {
			if !p.loop() {
				p.done = true
				return
			}
			continue
		}

		c := cmds[p.pos]
		p.pos++

		switch c.Kind {
		case vgm.KindWrite:
			p.write(c)
		case vgm.KindWait:
			p.wait = c.Samples
		case vgm.KindPCM:
			if p.pcmPos < len(p.file.PCM) {
				if chip := p.Chip(vgm.ChipYM2612, 0); chip != nil {
					chip.WriteRegister(0x2a, p.file.PCM[p.pcmPos])
				}
				p.pcmPos++
			}
			p.wait = c.Samples
		case vgm.KindSeek:
			p.pcmPos = int(c.Offset)
		}
	}
}

// loop jumps back to the loop point if any passes remain. A loop section
// that did not advance time is not repeated.
func (p *Player) loop() bool {
	if !p.file.Loops() || p.loopsLeft == 0 {
		return false
	}
	if p.looped && p.elapsed == p.loopElapsed {
		return false
	}
	if p.loopsLeft > 0 {
		p.loopsLeft--
	}
	p.looped = true
	p.loopElapsed = p.elapsed
	p.pos = p.file.LoopIndex
	return true
}

func (p *Player) write(c vgm.Command) {
	if c.Chip == vgm.ChipPSG {
		if u := p.psg[c.Index&1]; u != nil {
			u.chip.Write(c.Value)
		}
		return
	}
	if chip := p.Chip(c.Chip, int(c.Index)); chip != nil {
		chip.WriteRegister(uint16(c.Port&1)<<8|uint16(c.Reg), c.Value)
	}
}

// generate renders buf on every chip, FM first. Each FM chip renders at
// unity gain into scratch; loud and volume apply once to their sum.
func (p *Player) generate(buf []int16) {
	if len(buf) == 0 {
		return
	}
	if len(p.fm) > 0 {
		if cap(p.scratch) < len(buf) {
			p.scratch = make([]int16, len(buf))
			p.fmSum = make([]int32, len(buf))
		}
		scratch, sum := p.scratch[:len(buf)], p.fmSum[:len(buf)]
		clear(sum)
		for _, b := range p.fm {
			for i := 0; i < b.bank.Len(); i++ {
				clear(scratch)
				b.bank.Chip(i).Generate(scratch, 100, false)
				for k, v := range scratch {
					sum[k] += int32(v)
				}
			}
		}
		for k, v := range sum {
			buf[k] = clampInt16(int32(buf[k]) + p.fmLevel(v))
		}
	}
	for _, u := range p.psg {
		if u != nil {
			u.render(buf, p.cfg.Volume)
		}
	}
}

// fmLevel applies the loud boost and volume to summed FM output.
func (p *Player) fmLevel(v int32) int32 {
	if p.cfg.Loud {
		v = (v * 3) >> 1
	}
	if p.cfg.Volume != 100 {
		v = int32(int64(v) * int64(p.cfg.Volume) / 100)
	}
	return v
}

func (u *psgUnit) render(buf []int16, volume int) {
	for i := 0; i+1 < len(buf); i += 2 {
		u.clocks += u.cps
		n := int(u.clocks)
		u.clocks -= float64(n)
		for k := 0; k < n; k++ {
			u.chip.Clock()
		}
		v := int32(u.chip.Sample()) * int32(volume) / 100
		buf[i] = clampInt16(int32(buf[i]) + v)
		buf[i+1] = clampInt16(int32(buf[i+1]) + v)
	}
}

func clampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
