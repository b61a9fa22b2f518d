// Package vgm parses VGM and VGZ register-write streams for the OPN family
// and the SN76489 PSG that accompanies them on the Mega Drive.
package vgm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// SampleRate is the fixed rate all VGM wait commands are expressed in.
const SampleRate = 44100

// ChipType identifies the chip a write command targets.
type ChipType uint8

const (
	ChipPSG ChipType = iota
	ChipYM2612
	ChipYM2203
	ChipYM2608
	ChipYM2610
)

var chipNames = [...]string{"SN76489", "YM2612", "YM2203", "YM2608", "YM2610"}

func (c ChipType) String() string {
	if int(c) < len(chipNames) {
		return chipNames[c]
	}
	return fmt.Sprintf("ChipType(%d)", uint8(c))
}

// Kind is the type of a Command.
type Kind uint8

const (
	// KindWrite writes Value to Reg on Port of a chip. PSG writes use
	// only Value.
	KindWrite Kind = iota
	// KindWait advances time by Samples.
	KindWait
	// KindPCM writes the next PCM bank byte to YM2612 register 0x2A,
	// then waits Samples.
	KindPCM
	// KindSeek moves the PCM bank cursor to Offset.
	KindSeek
)

// Command is one decoded stream event.
type Command struct {
	Kind    Kind
	Chip    ChipType
	Index   uint8 // 1 for the second chip of a dual-chip stream
	Port    uint8
	Reg     uint8
	Value   uint8
	Samples uint32
	Offset  uint32
}

// ChipClock is a chip's header entry.
type ChipClock struct {
	Hz   int
	Dual bool
}

// Used reports whether the stream declares the chip.
func (c ChipClock) Used() bool { return c.Hz > 0 }

// Header holds the fields of the VGM header the player needs.
type Header struct {
	Version      uint32
	TotalSamples uint32
	LoopOffset   uint32 // absolute file offset, 0 when the stream does not loop
	LoopSamples  uint32
	Rate         uint32
	DataOffset   uint32 // absolute file offset of the first command

	PSG     ChipClock
	YM2612  ChipClock
	YM2203  ChipClock
	YM2608  ChipClock
	YM2610  ChipClock
	YM2610B bool
}

// File is a parsed VGM stream.
type File struct {
	Header   Header
	Tag      Tag
	Commands []Command

	// LoopIndex is the index into Commands the stream jumps back to at
	// the end, or -1 when it does not loop.
	LoopIndex int

	// PCM is the concatenation of all type 0x00 data blocks, read by
	// KindPCM commands.
	PCM []byte
}

// Loops reports whether the stream has a loop point.
func (f *File) Loops() bool { return f.LoopIndex >= 0 }

const (
	dualBit    = 1 << 30
	ym2610BBit = 1 << 31
	clockMask  = dualBit - 1
)

func chipClock(v uint32) ChipClock {
	return ChipClock{Hz: int(v & clockMask), Dual: v&dualBit != 0}
}

// MaxSize bounds an inflated VGZ stream.
const MaxSize = 64 << 20

// Decompress returns data unchanged unless it starts with the gzip magic,
// in which case it returns the inflated stream. Streams inflating past
// MaxSize fail with ErrTooLarge.
func Decompress(data []byte) ([]byte, error) {
	return inflate(data, MaxSize)
}

func inflate(data []byte, limit int) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("vgm: gzip: %w", err)
	}
	defer gz.Close()
	out, err := io.ReadAll(io.LimitReader(gz, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("vgm: gzip: %w", err)
	}
	if len(out) > limit {
		return nil, ErrTooLarge
	}
	return out, nil
}

// Parse decodes a VGM stream, inflating it first if it is gzip-compressed
// (VGZ).
func Parse(data []byte) (*File, error) {
	data, err := Decompress(data)
	if err != nil {
		return nil, err
	}
	if len(data) < 0x40 {
		return nil, ErrTooShort
	}
	if string(data[0:4]) != "Vgm " {
		return nil, ErrBadMagic
	}

	le := binary.LittleEndian
	h := Header{
		Version:      le.Uint32(data[0x08:]),
		TotalSamples: le.Uint32(data[0x18:]),
		LoopSamples:  le.Uint32(data[0x20:]),
		Rate:         le.Uint32(data[0x24:]),
	}

	dataStart := uint32(0x40)
	if h.Version >= 0x150 {
		if off := le.Uint32(data[0x34:]); off != 0 {
			if uint64(off) > uint64(len(data))-0x34 {
				return nil, fmt.Errorf("%w: 0x34+0x%X", ErrDataOffset, off)
			}
			dataStart = 0x34 + off
		}
	}
	if dataStart > uint32(len(data)) {
		return nil, fmt.Errorf("%w: 0x%X", ErrDataOffset, dataStart)
	}
	h.DataOffset = dataStart

	// Fields beyond the header a file actually carries read as zero.
	field := func(off uint32) uint32 {
		if off+4 > dataStart {
			return 0
		}
		return le.Uint32(data[off:])
	}

	if off := le.Uint32(data[0x1c:]); off != 0 {
		h.LoopOffset = 0x1c + off
	}

	h.PSG = chipClock(field(0x0c))
	if h.Version < 0x110 {
		// Before 1.10 the YM2413 clock doubled as the YM2612 clock.
		h.YM2612 = chipClock(field(0x10))
	} else {
		h.YM2612 = chipClock(field(0x2c))
	}
	if h.Version >= 0x151 {
		h.YM2203 = chipClock(field(0x44))
		h.YM2608 = chipClock(field(0x48))
		v := field(0x4c)
		h.YM2610 = chipClock(v &^ ym2610BBit)
		h.YM2610B = v&ym2610BBit != 0
	}

	f := &File{Header: h, LoopIndex: -1}

	if gd3 := le.Uint32(data[0x14:]); gd3 != 0 {
		// A damaged tag does not make the stream unplayable.
		f.Tag, _ = parseTag(data, 0x14+gd3)
	}

	if err := f.parseCommands(data, dataStart); err != nil {
		return nil, err
	}
	return f, nil
}

// opnWrite maps the two-operand write commands to their chip and port.
// The second chip of a dual-chip stream uses the command plus 0x50.
var opnWrite = map[uint8]struct {
	chip ChipType
	port uint8
}{
	0x52: {ChipYM2612, 0},
	0x53: {ChipYM2612, 1},
	0x55: {ChipYM2203, 0},
	0x56: {ChipYM2608, 0},
	0x57: {ChipYM2608, 1},
	0x58: {ChipYM2610, 0},
	0x59: {ChipYM2610, 1},
}

func (f *File) parseCommands(data []byte, start uint32) error {
	le := binary.LittleEndian
	i := int(start)
	loopStart := int(f.Header.LoopOffset)

	for i < len(data) {
		if loopStart != 0 && i == loopStart && f.LoopIndex < 0 {
			f.LoopIndex = len(f.Commands)
		}

		cmd := data[i]
		need := commandLength(cmd)
		if cmd != 0x67 && i+need > len(data) {
			return fmt.Errorf("%w 0x%02X at 0x%X", ErrTruncated, cmd, i)
		}

		switch {
		case cmd == 0x66:
			return nil

		case cmd == 0x50 || cmd == 0x30:
			f.Commands = append(f.Commands, Command{
				Kind:  KindWrite,
				Chip:  ChipPSG,
				Index: boolIndex(cmd == 0x30),
				Value: data[i+1],
			})

		case cmd >= 0x52 && cmd <= 0x59 || cmd >= 0xa2 && cmd <= 0xa9:
			base := cmd
			if cmd >= 0xa2 {
				base = cmd - 0x50
			}
			w, ok := opnWrite[base]
			if !ok {
				break
			}
			f.Commands = append(f.Commands, Command{
				Kind:  KindWrite,
				Chip:  w.chip,
				Index: boolIndex(cmd >= 0xa2),
				Port:  w.port,
				Reg:   data[i+1],
				Value: data[i+2],
			})

		case cmd == 0x61:
			f.wait(uint32(le.Uint16(data[i+1:])))
		case cmd == 0x62:
			f.wait(735)
		case cmd == 0x63:
			f.wait(882)
		case cmd >= 0x70 && cmd <= 0x7f:
			f.wait(uint32(cmd&0x0f) + 1)

		case cmd >= 0x80 && cmd <= 0x8f:
			f.Commands = append(f.Commands, Command{
				Kind:    KindPCM,
				Chip:    ChipYM2612,
				Samples: uint32(cmd & 0x0f),
			})

		case cmd == 0xe0:
			f.Commands = append(f.Commands, Command{
				Kind:   KindSeek,
				Offset: le.Uint32(data[i+1:]),
			})

		case cmd == 0x67:
			// 0x67 0x66 tt ss ss ss ss data
			if i+7 > len(data) || data[i+1] != 0x66 {
				return fmt.Errorf("%w data block at 0x%X", ErrTruncated, i)
			}
			typ := data[i+2]
			size := int(le.Uint32(data[i+3:]) & 0x7fffffff)
			if i+7+size > len(data) {
				return fmt.Errorf("%w data block at 0x%X", ErrTruncated, i)
			}
			if typ == 0x00 {
				f.PCM = append(f.PCM, data[i+7:i+7+size]...)
			}
			need = 7 + size
		}

		i += need
	}
	return nil
}

// wait appends a wait, merging it into a directly preceding wait.
func (f *File) wait(n uint32) {
	if k := len(f.Commands); k > 0 && f.Commands[k-1].Kind == KindWait && k != f.LoopIndex {
		f.Commands[k-1].Samples += n
		return
	}
	f.Commands = append(f.Commands, Command{Kind: KindWait, Samples: n})
}

func boolIndex(second bool) uint8 {
	if second {
		return 1
	}
	return 0
}

// commandLength returns the encoded size of a command including its
// opcode byte. Data blocks report the fixed part only.
func commandLength(cmd uint8) int {
	switch {
	case cmd >= 0x30 && cmd <= 0x3f:
		return 2
	case cmd >= 0x40 && cmd <= 0x4e:
		return 3
	case cmd == 0x4f || cmd == 0x50:
		return 2
	case cmd >= 0x51 && cmd <= 0x5f:
		return 3
	case cmd == 0x61:
		return 3
	case cmd == 0x67:
		return 7
	case cmd == 0x68:
		return 12
	case cmd == 0x90 || cmd == 0x91 || cmd == 0x95:
		return 5
	case cmd == 0x92:
		return 6
	case cmd == 0x93:
		return 11
	case cmd == 0x94:
		return 2
	case cmd >= 0xa0 && cmd <= 0xbf:
		return 3
	case cmd >= 0xc0 && cmd <= 0xdf:
		return 4
	case cmd >= 0xe0:
		return 5
	}
	// 0x62, 0x63, 0x66, 0x7n, 0x8n and the unassigned single bytes.
	return 1
}
