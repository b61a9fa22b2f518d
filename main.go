package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/afero"
	"github.com/user-none/opnfm/cli"
	"github.com/user-none/opnfm/loader"
	"github.com/user-none/opnfm/player"
	"golang.org/x/term"
)

func main() {
	inPath := flag.String("in", "", "path to a .vgm, .vgz, .zip or .7z file")
	track := flag.Int("track", 0, "track number within an archive")
	outPath := flag.String("o", "", "render to this WAV file instead of playing")
	play := flag.Bool("play", false, "play in a window (default when no other output is chosen)")
	dump := flag.Bool("dump", false, "print the register files after the stream ends")
	batchDir := flag.String("batch", "", "render every supported file in this directory")
	outDir := flag.String("outdir", ".", "output directory for -batch")
	jobs := flag.Int("j", runtime.NumCPU(), "concurrent renders for -batch")
	rate := flag.Int("rate", 44100, "output sample rate in Hz")
	loops := flag.Int("loops", 1, "extra passes through the loop section (-1: forever, play only)")
	volume := flag.Int("volume", 100, "output volume in percent")
	loud := flag.Bool("loud", false, "boost FM output by 1.5x")
	lpf := flag.Float64("lpf", 0, "FM low-pass cutoff in Hz (0: off)")
	psgGain := flag.Float64("psg", player.DefaultPSGGain, "PSG gain")
	verbose := flag.Bool("v", false, "print progress")
	flag.Parse()

	cfg := player.Config{
		SampleRate: *rate,
		Loops:      *loops,
		Volume:     *volume,
		Loud:       *loud,
		PSGGain:    float32(*psgGain),
		LowpassHz:  *lpf,
	}
	fs := afero.NewOsFs()

	if *batchDir != "" {
		if cfg.Loops < 0 {
			log.Fatal("-loops -1 cannot be used with -batch")
		}
		tty := term.IsTerminal(int(os.Stdout.Fd()))
		count := 0
		err := renderBatch(context.Background(), fs, *batchDir, *outDir, cfg, *jobs, func(r batchResult) {
			count++
			if tty {
				fmt.Printf("\r%d rendered: %s", count, r.Out)
			} else if *verbose {
				fmt.Printf("%s (%d frames)\n", r.Out, r.Frames)
			}
		})
		if tty && count > 0 {
			fmt.Println()
		}
		if err != nil {
			log.Fatalf("Batch render failed: %v", err)
		}
		return
	}

	if *inPath == "" {
		log.Fatal("Input path is required. Usage: opnfm -in <file> [-o out.wav | -play | -dump]")
	}

	tracks, err := loader.Tracks(fs, *inPath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *inPath, err)
	}
	if *track < 0 || *track >= len(tracks) {
		log.Fatalf("Invalid track %d (file holds %d)", *track, len(tracks))
	}
	tr := tracks[*track]

	if *outPath != "" {
		if cfg.Loops < 0 {
			log.Fatal("-loops -1 cannot be used with -o")
		}
		n, err := renderToWAV(fs, tr, *outPath, cfg)
		if err != nil {
			log.Fatalf("Render failed: %v", err)
		}
		if *verbose {
			fmt.Printf("%s: %d frames at %d Hz\n", *outPath, n, cfg.SampleRate)
		}
		if !*dump && !*play {
			return
		}
	}

	if *dump {
		if cfg.Loops < 0 {
			cfg.Loops = 0
		}
		p, err := openTrack(tr, cfg)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", tr.Name, err)
		}
		buf := make([]int16, 4096*2)
		for !p.Done() {
			p.Render(buf)
		}
		dumpRegisters(os.Stdout, p.Chips())
		if !*play {
			return
		}
	}

	p, err := openTrack(tr, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", tr.Name, err)
	}

	title := tr.Name
	if t := p.File().Tag; t.Track != "" {
		title = t.Track
		if t.Game != "" {
			title += " - " + t.Game
		}
	}
	if *verbose {
		h := p.File().Header
		fmt.Printf("%s: version %X, %d samples, loop %v\n", tr.Name, h.Version, h.TotalSamples, p.File().Loops())
	}

	ebiten.SetWindowSize(cli.ScreenWidth*2, cli.ScreenHeight*2)
	ebiten.SetWindowTitle("opnfm - " + title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	runner := cli.NewRunner(p, cfg.SampleRate, title)
	defer runner.Close()

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}
