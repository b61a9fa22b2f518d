// Package cli provides the real-time player window: a render goroutine
// feeding audio output, and an Ebiten window drawing per-channel meters.
package cli

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/user-none/opnfm/player"
	"github.com/user-none/opnfm/ui"
	"github.com/user-none/opnfm/vgm"
)

// ADT thresholds in milliseconds of queued audio.
const (
	adtMinMillis = 50
	adtMaxMillis = 100
)

// chunksPerSecond sets the render granularity.
const chunksPerSecond = 60

// Window layout.
const (
	ScreenWidth  = 480
	ScreenHeight = 320

	meterTop    = 40
	meterHeight = 180
	meterGap    = 4
)

var (
	colorBackground = color.RGBA{0x10, 0x10, 0x18, 0xff}
	colorLevel      = color.RGBA{0x40, 0xc0, 0x60, 0xff}
	colorKeyOn      = color.RGBA{0xf0, 0xd0, 0x40, 0xff}
	colorKeyOff     = color.RGBA{0x30, 0x30, 0x40, 0xff}
)

// Runner plays one VGM stream in real time.
// The player runs on a dedicated goroutine with audio-driven timing.
// The Ebiten thread handles keys and draws from the shared meters.
type Runner struct {
	player      *player.Player
	audioPlayer *ui.AudioPlayer
	title       string
	rate        int

	control    *ui.PlaybackControl
	meters     *ui.SharedMeters
	renderDone chan struct{}
}

// NewRunner starts playback of p. Audio initialization failure is
// non-fatal; the meters still run, paced by the wall clock.
func NewRunner(p *player.Player, rate int, title string) *Runner {
	audio, err := ui.NewAudioPlayer(rate, 1.0)
	if err != nil {
		log.Printf("Warning: audio initialization failed: %v", err)
	}

	r := &Runner{
		player:      p,
		audioPlayer: audio,
		title:       title,
		rate:        rate,
		control:     ui.NewPlaybackControl(),
		meters:      &ui.SharedMeters{},
		renderDone:  make(chan struct{}),
	}

	go r.renderLoop()

	return r
}

// Close stops playback and releases audio.
func (r *Runner) Close() {
	if r.control != nil {
		r.control.Stop()
		<-r.renderDone
	}

	if r.audioPlayer != nil {
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
}

func (r *Runner) adtBytes(ms int) int {
	return r.rate * ms / 1000 * 4
}

// renderLoop runs on a dedicated goroutine with ADT.
func (r *Runner) renderLoop() {
	defer close(r.renderDone)
	// Releases a pause requested after the stream ended.
	defer r.control.Stop()

	frames := r.rate / chunksPerSecond
	buf := make([]int16, frames*2)
	chunkTime := time.Second / chunksPerSecond
	last := time.Now()
	minBuf, maxBuf := r.adtBytes(adtMinMillis), r.adtBytes(adtMaxMillis)

	for {
		if !r.control.CheckPause() {
			return
		}

		n := r.player.Render(buf)
		if r.audioPlayer != nil && n > 0 {
			r.audioPlayer.QueueSamples(buf[:n*2])
		}
		r.meters.Update(r.player.Chips(), r.player.Elapsed(), r.player.Done())

		if r.player.Done() {
			return
		}

		sleep := chunkTime - time.Since(last)
		if r.audioPlayer != nil {
			level := r.audioPlayer.GetBufferLevel()
			if level < minBuf {
				sleep = time.Duration(float64(sleep) * 0.9)
			} else if level > maxBuf {
				sleep = time.Duration(float64(sleep) * 1.1)
			}
		}
		if sleep > time.Millisecond {
			time.Sleep(sleep)
		}
		last = time.Now()
	}
}

// finished reports whether the stream ended and its audio has drained.
func (r *Runner) finished(done bool) bool {
	if !done {
		return false
	}
	return r.audioPlayer == nil || r.audioPlayer.GetBufferLevel() == 0
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	// Pausing is moot once the render goroutine has exited.
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && r.control.ShouldRun() {
		r.control.Toggle()
	}

	_, _, done := r.meters.Read()
	if r.finished(done) {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)

	meters, elapsed, _ := r.meters.Read()
	secs := elapsed / vgm.SampleRate
	status := fmt.Sprintf("%s  %d:%02d", r.title, secs/60, secs%60)
	if r.control.IsPaused() {
		status += "  [paused]"
	}
	ebitenutil.DebugPrintAt(screen, status, 8, 8)

	total := 0
	for _, m := range meters {
		total += len(m.Channels)
	}
	if total == 0 {
		return
	}

	width := (ScreenWidth - 16 - meterGap*(total-1)) / total
	x := 8
	for _, m := range meters {
		ebitenutil.DebugPrintAt(screen, m.Name, x, meterTop-16)
		for _, ch := range m.Channels {
			drawMeter(screen, x, width, ch)
			x += width + meterGap
		}
	}
	ebitenutil.DebugPrintAt(screen, "space: pause  esc: quit", 8, ScreenHeight-20)
}

// drawMeter draws one channel: a key lamp above a level bar.
func drawMeter(screen *ebiten.Image, x, width int, ch ui.ChannelMeter) {
	lamp := colorKeyOff
	if ch.Key {
		lamp = colorKeyOn
	}
	fillRect(screen, image.Rect(x, meterTop, x+width, meterTop+8), lamp)

	bottom := meterTop + 12 + meterHeight
	h := ch.Level * meterHeight / 1023
	fillRect(screen, image.Rect(x, bottom-meterHeight, x+width, bottom), colorKeyOff)
	fillRect(screen, image.Rect(x, bottom-h, x+width, bottom), colorLevel)
}

func fillRect(screen *ebiten.Image, r image.Rectangle, c color.Color) {
	if r.Empty() {
		return
	}
	screen.SubImage(r).(*ebiten.Image).Fill(c)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}
