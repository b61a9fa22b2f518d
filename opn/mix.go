package opn

import "math"

// mixSample folds one channel-sum into an existing output sample: add,
// optional x1.5 boost, volume percent, clip, then the one-pole low-pass.
func mixSample(v int32, cur int16, volume int, loud bool, cutoff int32, mem *int32) int16 {
	v += int32(cur)
	if loud {
		v = (v * 3) >> 1
	}
	if volume != 100 {
		v = int32(int64(v) * int64(volume) / 100)
	}
	v = clip16(v)
	if cutoff != 0 {
		v = lowpass(mem, cutoff, v)
	}
	return int16(v)
}

// clip16 limits v to [-32767, 32767].
func clip16(v int32) int32 {
	if v > 32767 {
		return 32767
	}
	if v < -32767 {
		return -32767
	}
	return v
}

// lowpass is a one-pole filter in 16.16 fixed point:
// mem = mem*(1-cutoff) + sample*cutoff.
func lowpass(mem *int32, cutoff int32, sample int32) int32 {
	b := int64(0x10000 - cutoff)
	m := (int64(*mem)*b + int64(sample)*int64(cutoff)) >> 16
	*mem = int32(m)
	return *mem
}

// LowpassCutoffForHz converts an RC cutoff frequency into the filter
// coefficient taken by WithLowpass and SetLowpass. Derived from
// alpha = dt / (RC + dt) where RC = 1/(2*pi*fc).
func LowpassCutoffForHz(hz float64, rate int) int {
	if hz <= 0 || rate <= 0 {
		return 0
	}
	alpha := 1.0 / (float64(rate)/(2*math.Pi*hz) + 1)
	return int(math.Round(alpha * 0x10000))
}
