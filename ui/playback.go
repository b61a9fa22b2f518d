package ui

import (
	"sync"
	"time"

	"github.com/user-none/opnfm/opn"
)

// ChannelMeter is one channel's state as shown by the visualizer.
type ChannelMeter struct {
	Key   bool
	Level int // 0-1023
}

// ChipMeter is a snapshot of one chip's channels.
type ChipMeter struct {
	Name     string
	Channels []ChannelMeter
}

// SharedMeters holds channel meters written by the render goroutine and
// read by Ebiten's Draw. Update fills a write copy; Read copies it into a
// read copy that the caller may use without holding the lock.
type SharedMeters struct {
	mu      sync.Mutex
	write   []ChipMeter
	read    []ChipMeter
	elapsed uint64
	done    bool
}

// Update samples the meters of chips. elapsed is the stream position in
// VGM samples.
func (sm *SharedMeters) Update(chips []*opn.Chip, elapsed uint64, done bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.write = resizeMeters(sm.write, chips)
	for i, c := range chips {
		m := &sm.write[i]
		m.Name = c.Model().Name
		for ch := range m.Channels {
			m.Channels[ch].Key, m.Channels[ch].Level = c.ChannelMeter(ch)
		}
	}
	sm.elapsed = elapsed
	sm.done = done
}

// Read returns the latest snapshot.
func (sm *SharedMeters) Read() (meters []ChipMeter, elapsed uint64, done bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if cap(sm.read) < len(sm.write) {
		sm.read = make([]ChipMeter, len(sm.write))
	}
	sm.read = sm.read[:len(sm.write)]
	for i, m := range sm.write {
		r := &sm.read[i]
		r.Name = m.Name
		r.Channels = append(r.Channels[:0], m.Channels...)
	}
	return sm.read, sm.elapsed, sm.done
}

func resizeMeters(m []ChipMeter, chips []*opn.Chip) []ChipMeter {
	if cap(m) < len(chips) {
		m = make([]ChipMeter, len(chips))
	}
	m = m[:len(chips)]
	for i, c := range chips {
		n := c.Model().Channels
		if cap(m[i].Channels) < n {
			m[i].Channels = make([]ChannelMeter, n)
		}
		m[i].Channels = m[i].Channels[:n]
	}
	return m
}

// PlaybackControl coordinates pause, resume and stop between the Ebiten
// thread and the render goroutine.
type PlaybackControl struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	stopReq  bool
	ackCh    chan struct{}
}

// NewPlaybackControl creates a control in the running state.
func NewPlaybackControl() *PlaybackControl {
	return &PlaybackControl{ackCh: make(chan struct{}, 1)}
}

// RequestPause asks the render goroutine to pause and blocks until it
// acknowledges.
func (pc *PlaybackControl) RequestPause() {
	pc.mu.Lock()
	if pc.paused || pc.pauseReq || pc.stopReq {
		pc.mu.Unlock()
		return
	}
	pc.pauseReq = true
	pc.mu.Unlock()

	<-pc.ackCh
}

// RequestResume lets a paused render goroutine continue.
func (pc *PlaybackControl) RequestResume() {
	pc.mu.Lock()
	pc.pauseReq = false
	pc.paused = false
	pc.mu.Unlock()
}

// Toggle pauses a running goroutine or resumes a paused one.
func (pc *PlaybackControl) Toggle() {
	if pc.IsPaused() {
		pc.RequestResume()
		return
	}
	pc.RequestPause()
}

// CheckPause is called by the render goroutine between chunks. It parks
// while a pause is requested and returns false once the goroutine should
// exit.
func (pc *PlaybackControl) CheckPause() bool {
	pc.mu.Lock()
	if pc.stopReq {
		pc.mu.Unlock()
		return false
	}
	if !pc.pauseReq {
		pc.mu.Unlock()
		return true
	}
	pc.paused = true
	pc.mu.Unlock()

	select {
	case pc.ackCh <- struct{}{}:
	default:
	}

	for {
		pc.mu.Lock()
		if pc.stopReq {
			pc.mu.Unlock()
			return false
		}
		if !pc.pauseReq {
			pc.paused = false
			pc.mu.Unlock()
			return true
		}
		pc.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop tells the render goroutine to exit. A pending RequestPause is
// released.
func (pc *PlaybackControl) Stop() {
	pc.mu.Lock()
	pc.stopReq = true
	pending := pc.pauseReq && !pc.paused
	pc.pauseReq = false
	pc.mu.Unlock()

	if pending {
		select {
		case pc.ackCh <- struct{}{}:
		default:
		}
	}
}

// ShouldRun reports whether the render goroutine should keep going.
func (pc *PlaybackControl) ShouldRun() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return !pc.stopReq
}

// IsPaused reports whether the render goroutine is parked.
func (pc *PlaybackControl) IsPaused() bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.paused
}
