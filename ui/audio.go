package ui

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrRateMismatch is returned when a player asks for a different rate than
// the process-wide audio context was opened with.
var ErrRateMismatch = errors.New("ui: audio context already open at another sample rate")

// Buffer lengths in milliseconds of audio.
const (
	ringBufferMillis   = 170
	playerBufferMillis = 100
)

// AudioPlayer plays interleaved int16 stereo frames through oto.
// Frames are queued into a ring buffer that oto's player pulls from.
type AudioPlayer struct {
	player     *oto.Player
	ringBuffer *AudioRingBuffer
	rate       int
}

// oto allows a single context per process.
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

func ensureOtoContext(rate int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != rate {
			return nil, fmt.Errorf("%w: have %d Hz, want %d Hz", ErrRateMismatch, otoRate, rate)
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready
	otoCtx = ctx
	otoRate = rate
	return ctx, nil
}

// bytesForMillis returns the size of ms of 16-bit stereo audio at rate.
func bytesForMillis(rate, ms int) int {
	return rate * ms / 1000 * frameBytes
}

// NewAudioPlayer opens audio output at rate Hz.
func NewAudioPlayer(rate int, volume float64) (*AudioPlayer, error) {
	ctx, err := ensureOtoContext(rate)
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	rb := NewAudioRingBuffer(bytesForMillis(rate, ringBufferMillis))
	player := ctx.NewPlayer(rb)
	player.SetBufferSize(bytesForMillis(rate, playerBufferMillis))
	player.SetVolume(volume)
	player.Play()

	return &AudioPlayer{
		player:     player,
		ringBuffer: rb,
		rate:       rate,
	}, nil
}

// SampleRate returns the output rate.
func (a *AudioPlayer) SampleRate() int { return a.rate }

// QueueSamples queues interleaved stereo samples for playback.
func (a *AudioPlayer) QueueSamples(samples []int16) {
	a.ringBuffer.WriteSamples(samples)
}

// GetBufferLevel returns the bytes of audio queued but not yet played,
// across the ring buffer and oto's own buffer. Used for ADT pacing.
func (a *AudioPlayer) GetBufferLevel() int {
	return a.ringBuffer.Buffered() + a.player.BufferedSize()
}

// SetVolume sets the playback volume (0.0 = silent, 1.0 = full).
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(vol)
}

// Close stops playback.
func (a *AudioPlayer) Close() {
	if a.ringBuffer != nil {
		a.ringBuffer.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
}
