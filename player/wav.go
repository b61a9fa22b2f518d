package player

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrEndless is returned when asked to write a stream that loops forever.
var ErrEndless = errors.New("player: cannot write an endlessly looping stream")

const wavChunkFrames = 4096

// WriteWAV renders p to the end of its stream and writes the result to w
// as 16-bit stereo PCM at the player's sample rate. It returns the number
// of frames written.
func WriteWAV(w io.WriteSeeker, p *Player) (int, error) {
	if p.cfg.Loops < 0 && p.file.Loops() {
		return 0, ErrEndless
	}

	enc := wav.NewEncoder(w, p.cfg.SampleRate, 16, 2, 1)
	pcm := make([]int16, wavChunkFrames*2)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: p.cfg.SampleRate},
		Data:           make([]int, 0, len(pcm)),
		SourceBitDepth: 16,
	}

	total := 0
	for !p.Done() {
		n := p.Render(pcm)
		if n == 0 {
			break
		}
		buf.Data = buf.Data[:0]
		for _, s := range pcm[:n*2] {
			buf.Data = append(buf.Data, int(s))
		}
		if err := enc.Write(buf); err != nil {
			return total, fmt.Errorf("player: wav: %w", err)
		}
		total += n
	}

	if err := enc.Close(); err != nil {
		return total, fmt.Errorf("player: wav: %w", err)
	}
	return total, nil
}
