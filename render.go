package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/user-none/opnfm/loader"
	"github.com/user-none/opnfm/opn"
	"github.com/user-none/opnfm/player"
	"github.com/user-none/opnfm/vgm"
	"golang.org/x/sync/errgroup"
)

// openTrack parses a loaded track and builds its player.
func openTrack(tr loader.Track, cfg player.Config) (*player.Player, error) {
	f, err := vgm.Parse(tr.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tr.Name, err)
	}
	p, err := player.New(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tr.Name, err)
	}
	return p, nil
}

// renderToWAV renders one track into the file at out.
func renderToWAV(fs afero.Fs, tr loader.Track, out string, cfg player.Config) (int, error) {
	p, err := openTrack(tr, cfg)
	if err != nil {
		return 0, err
	}

	w, err := fs.Create(out)
	if err != nil {
		return 0, err
	}
	n, err := player.WriteWAV(w, p)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("%s: %w", out, err)
	}
	return n, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// wavName maps a track name to its output file name.
func wavName(track string) string {
	return stem(track) + ".wav"
}

// batchName picks a unique output name for a track read from file. Tracks
// from an archive are prefixed with the archive's name; a repeated name
// gets a counter.
func batchName(used map[string]bool, file string, tr loader.Track) string {
	base := stem(tr.Name)
	if loader.IsArchive(file) {
		base = stem(filepath.Base(file)) + " - " + base
	}
	name := base + ".wav"
	for n := 2; used[strings.ToLower(name)]; n++ {
		name = fmt.Sprintf("%s (%d).wav", base, n)
	}
	used[strings.ToLower(name)] = true
	return name
}

// batchResult reports one rendered track.
type batchResult struct {
	Out    string
	Frames int
}

// renderBatch renders every track of every supported file in inDir into
// outDir, jobs at a time. Each goroutine owns its own chips. The first
// error cancels the remaining work.
func renderBatch(ctx context.Context, fs afero.Fs, inDir, outDir string, cfg player.Config, jobs int, progress func(batchResult)) error {
	files, err := loader.List(fs, inDir)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	var mu sync.Mutex
	report := func(r batchResult) {
		if progress == nil {
			return
		}
		mu.Lock()
		progress(r)
		mu.Unlock()
	}

	used := make(map[string]bool)
	for _, name := range files {
		tracks, err := loader.Tracks(fs, name)
		if err != nil {
			g.Wait()
			return err
		}
		for _, tr := range tracks {
			out := filepath.Join(outDir, batchName(used, name, tr))
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				n, err := renderToWAV(fs, tr, out, cfg)
				if err != nil {
					return err
				}
				report(batchResult{Out: out, Frames: n})
				return nil
			})
		}
	}
	return g.Wait()
}

// dumpRegisters writes each chip's register file as a hex table.
func dumpRegisters(w io.Writer, chips []*opn.Chip) {
	for i, c := range chips {
		fmt.Fprintf(w, "chip %d: %s\n", i, c.Model().Name)
		regs := c.Dump()
		for row := 0; row < len(regs); row += 16 {
			fmt.Fprintf(w, "%03X:", row)
			for _, b := range regs[row : row+16] {
				fmt.Fprintf(w, " %02X", b)
			}
			fmt.Fprintln(w)
		}
	}
}
