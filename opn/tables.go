package opn

import (
	"math"
	"sync"
)

const (
	envBits     = 10
	envLen      = 1 << envBits
	envStep     = 128.0 / envLen
	maxAttIndex = envLen - 1 // 1023
	minAttIndex = 0

	sinBits = 10
	sinLen  = 1 << sinBits
	sinMask = sinLen - 1

	// 256 attenuation steps per doubling, sign interleaved, 13 doublings.
	tlResLen = 256
	tlTabLen = 13 * 2 * tlResLen

	// envQuiet is the attenuation past which an operator contributes nothing.
	envQuiet = tlTabLen >> 3

	freqSH   = 16
	freqMask = (1 << freqSH) - 1

	lfoSH = 24
	egSH  = 16

	timerSH = 12
)

var (
	tlTab  [tlTabLen]int32
	sinTab [sinLen]uint32

	// lfoPMTable holds all 128 PM waveforms:
	// [fnum bits 4-10][depth 0-7][step 0-31].
	lfoPMTable [128 * 8 * 32]int32

	tablesOnce sync.Once
)

// buildTables fills the process-wide lookup tables. Safe to call from any
// number of goroutines; the work happens exactly once.
func buildTables() {
	tablesOnce.Do(func() {
		buildTLTable()
		buildSinTable()
		buildPMTable()
	})
}

// buildTLTable builds the log-to-linear table. Entry 2x holds the
// positive magnitude for attenuation step x, entry 2x+1 its negation.
// Each further block of 512 entries is the same curve one octave down.
func buildTLTable() {
	for x := 0; x < tlResLen; x++ {
		m := float64(1<<16) / math.Pow(2, float64(x+1)*(envStep/4.0)/8.0)
		m = math.Floor(m)

		n := int32(m)
		n >>= 4
		if n&1 != 0 {
			n = (n >> 1) + 1
		} else {
			n >>= 1
		}
		n <<= 2 // 13 bits, as on the chip
		tlTab[x*2] = n
		tlTab[x*2+1] = -n

		for i := 1; i < 13; i++ {
			tlTab[x*2+i*2*tlResLen] = n >> uint(i)
			tlTab[x*2+1+i*2*tlResLen] = -(n >> uint(i))
		}
	}
}

// buildSinTable builds the log-sine table. Each entry is an index into
// tlTab: attenuation in the upper bits, sign in bit 0.
func buildSinTable() {
	for i := 0; i < sinLen; i++ {
		m := math.Sin(float64(i*2+1) * math.Pi / sinLen)

		var o float64
		if m > 0 {
			o = 8 * math.Log(1.0/m) / math.Log(2)
		} else {
			o = 8 * math.Log(-1.0/m) / math.Log(2)
		}
		o /= envStep / 4

		n := int32(2.0 * o)
		if n&1 != 0 {
			n = (n >> 1) + 1
		} else {
			n >>= 1
		}

		sign := uint32(0)
		if m < 0 {
			sign = 1
		}
		sinTab[i] = uint32(n)*2 + sign
	}
}

// buildPMTable expands lfoPMOutput into the full 32-step waveforms.
// Steps 0-7 are the seed, 8-15 its mirror, 16-31 the negated halves.
func buildPMTable() {
	for depth := 0; depth < 8; depth++ {
		for fnum := 0; fnum < 128; fnum++ {
			base := fnum*32*8 + depth*32
			for step := 0; step < 8; step++ {
				var value int32
				for bit := 0; bit < 7; bit++ {
					if fnum&(1<<bit) != 0 {
						value += int32(lfoPMOutput[bit*8+depth][step])
					}
				}
				lfoPMTable[base+step] = value
				lfoPMTable[base+(step^7)+8] = value
				lfoPMTable[base+step+16] = -value
				lfoPMTable[base+(step^7)+24] = -value
			}
		}
	}
}

// pmOffset returns the PM table entry for the given fnum bits, depth and step.
func pmOffset(fnumBits, depth, step int) int32 {
	return lfoPMTable[fnumBits*256+depth*32+step]
}

// slTable maps the 4-bit sustain level to attenuation: 3 dB steps, with
// the last entry jumping to 93 dB.
var slTable = [16]uint32{
	sc(0), sc(1), sc(2), sc(3), sc(4), sc(5), sc(6), sc(7),
	sc(8), sc(9), sc(10), sc(11), sc(12), sc(13), sc(14), sc(31),
}

func sc(db float64) uint32 { return uint32(db * (4.0 / envStep)) }

const rateSteps = 8

// egInc holds the 8-step increment cycles. Rows 0-3 are rates 0-11 with
// the four fractional patterns, 4-16 rates 12-15, 17 the attack-only
// rate 15 row, 18 the infinite rate.
var egInc = [19 * rateSteps]uint8{
	0, 1, 0, 1, 0, 1, 0, 1, // 0
	0, 1, 0, 1, 1, 1, 0, 1, // 1
	0, 1, 1, 1, 0, 1, 1, 1, // 2
	0, 1, 1, 1, 1, 1, 1, 1, // 3

	1, 1, 1, 1, 1, 1, 1, 1, // 4: rate 12
	1, 1, 1, 2, 1, 1, 1, 2, // 5
	1, 2, 1, 2, 1, 2, 1, 2, // 6
	1, 2, 2, 2, 1, 2, 2, 2, // 7

	2, 2, 2, 2, 2, 2, 2, 2, // 8: rate 13
	2, 2, 2, 4, 2, 2, 2, 4, // 9
	2, 4, 2, 4, 2, 4, 2, 4, // 10
	2, 4, 4, 4, 2, 4, 4, 4, // 11

	4, 4, 4, 4, 4, 4, 4, 4, // 12: rate 14
	4, 4, 4, 8, 4, 4, 4, 8, // 13
	4, 8, 4, 8, 4, 8, 4, 8, // 14
	4, 8, 8, 8, 4, 8, 8, 8, // 15

	8, 8, 8, 8, 8, 8, 8, 8, // 16: rate 15
	16, 16, 16, 16, 16, 16, 16, 16, // 17: rate 15 attack
	0, 0, 0, 0, 0, 0, 0, 0, // 18: infinite
}

// egSelAttackMax selects the all-16 row for attack rates at or past
// the instant-attack threshold.
const egSelAttackMax = 17 * rateSteps

// instantAttackRate is the ar+ksr value at which attack becomes instant.
const instantAttackRate = 32 + 62

func egRow(row uint8) uint8 { return row * rateSteps }

// egRateSelect maps rate+ksr (32 infinite + 64 + 32 dummy) to an egInc row
// offset. Used by YM2203/YM2610/YM2610B.
var egRateSelect = buildRateSelect(false)

// egRateSelect2612 is the YM2612/YM2608 variant, calibrated against
// hardware measurements for rates 0 and 1.
var egRateSelect2612 = buildRateSelect(true)

func buildRateSelect(nemesis bool) [128]uint8 {
	var t [128]uint8
	for i := 0; i < 32; i++ {
		t[i] = egRow(18)
	}
	for i := 0; i < 48; i++ {
		t[32+i] = egRow(uint8(i & 3))
	}
	if nemesis {
		copy(t[32:40], []uint8{egRow(18), egRow(18), egRow(0), egRow(0), egRow(0), egRow(0), egRow(2), egRow(2)})
	}
	for i := 0; i < 12; i++ {
		t[80+i] = egRow(uint8(4 + i))
	}
	for i := 92; i < 128; i++ {
		t[i] = egRow(16)
	}
	return t
}

// egRateShift maps rate+ksr to the number of low EG counter bits that
// must be zero for an update to happen.
var egRateShift = func() [128]uint8 {
	var t [128]uint8
	for i := 0; i < 48; i++ {
		t[32+i] = uint8(11 - i/4)
	}
	return t
}()

// dtTab is the detune table in 10.10 fixed point, rows FD=0..3.
var dtTab = [4 * 32]uint8{
	// FD=0
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	// FD=1
	0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2,
	2, 3, 3, 3, 4, 4, 4, 5, 5, 6, 6, 7, 8, 8, 8, 8,
	// FD=2
	1, 1, 1, 1, 2, 2, 2, 2, 2, 3, 3, 3, 4, 4, 4, 5,
	5, 6, 6, 7, 8, 8, 9, 10, 11, 12, 13, 14, 16, 16, 16, 16,
	// FD=3
	2, 2, 2, 2, 2, 3, 3, 3, 4, 4, 4, 5, 5, 6, 6, 7,
	8, 8, 9, 10, 11, 12, 13, 14, 16, 17, 19, 20, 22, 22, 22, 22,
}

// fkTable maps the top 4 fnum bits to the low 2 keycode bits.
var fkTable = [16]uint8{0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 3, 3, 3, 3, 3, 3}

// lfoSamplesPerStep is the number of samples one LFO level lasts for,
// per speed setting.
var lfoSamplesPerStep = [8]uint32{108, 77, 71, 67, 62, 44, 8, 5}

// lfoAMSDepthShift turns the 0-126 AM triangle into the four depths
// (0, 1.4, 5.9, 11.8 dB).
var lfoAMSDepthShift = [4]uint8{8, 3, 1, 0}

// lfoPMOutput is the positive quarter of the PM waveform per fnum bit
// (4-10) and depth (0-7). One value spans four AM steps.
var lfoPMOutput = [7 * 8][8]uint8{
	// FNUM bit 4
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 1, 1, 1, 1},

	// FNUM bit 5
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 1, 1, 1, 1},
	{0, 0, 1, 1, 2, 2, 2, 3},

	// FNUM bit 6
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 1},
	{0, 0, 0, 0, 1, 1, 1, 1},
	{0, 0, 1, 1, 2, 2, 2, 3},
	{0, 0, 2, 3, 4, 4, 5, 6},

	// FNUM bit 7
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 0, 0, 1, 1},
	{0, 0, 0, 0, 1, 1, 1, 1},
	{0, 0, 0, 1, 1, 1, 1, 2},
	{0, 0, 1, 1, 2, 2, 2, 3},
	{0, 0, 2, 3, 4, 4, 5, 6},
	{0, 0, 4, 6, 8, 8, 0xa, 0xc},

	// FNUM bit 8
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 1, 1, 1, 1},
	{0, 0, 0, 1, 1, 1, 2, 2},
	{0, 0, 1, 1, 2, 2, 3, 3},
	{0, 0, 1, 2, 2, 2, 3, 4},
	{0, 0, 2, 3, 4, 4, 5, 6},
	{0, 0, 4, 6, 8, 8, 0xa, 0xc},
	{0, 0, 8, 0xc, 0x10, 0x10, 0x14, 0x18},

	// FNUM bit 9
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 2, 2, 2, 2},
	{0, 0, 0, 2, 2, 2, 4, 4},
	{0, 0, 2, 2, 4, 4, 6, 6},
	{0, 0, 2, 4, 4, 4, 6, 8},
	{0, 0, 4, 6, 8, 8, 0xa, 0xc},
	{0, 0, 8, 0xc, 0x10, 0x10, 0x14, 0x18},
	{0, 0, 0x10, 0x18, 0x20, 0x20, 0x28, 0x30},

	// FNUM bit 10
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 4, 4, 4, 4},
	{0, 0, 0, 4, 4, 4, 8, 8},
	{0, 0, 4, 4, 8, 8, 0xc, 0xc},
	{0, 0, 4, 8, 8, 8, 0xc, 0x10},
	{0, 0, 8, 0xc, 0x10, 0x10, 0x14, 0x18},
	{0, 0, 0x10, 0x18, 0x20, 0x20, 0x28, 0x30},
	{0, 0, 0x20, 0x30, 0x40, 0x40, 0x50, 0x60},
}
