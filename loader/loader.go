// Package loader reads VGM streams from plain files and from the zip and
// 7z packs they are commonly distributed in.
package loader

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/user-none/opnfm/vgm"
)

// MaxTrackSize bounds a single decompressed archive entry.
const MaxTrackSize = vgm.MaxSize

var (
	ErrUnsupported = errors.New("loader: unsupported file type")
	ErrNoTracks    = errors.New("loader: archive holds no VGM tracks")
	ErrTooLarge    = errors.New("loader: track exceeds size limit")
)

// Track is one VGM stream and the name it was found under. Data may still
// be gzip-compressed; vgm.Parse handles both.
type Track struct {
	Name string
	Data []byte
}

// IsStream reports whether name has a VGM stream extension.
func IsStream(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".vgm", ".vgz":
		return true
	}
	return false
}

// IsArchive reports whether name has a supported archive extension.
func IsArchive(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".zip", ".7z":
		return true
	}
	return false
}

// Supported reports whether Tracks can open name.
func Supported(name string) bool {
	return IsStream(name) || IsArchive(name)
}

// Tracks returns every VGM stream in the file at name: the file itself for
// .vgm and .vgz, or each stream entry in archive order for .zip and .7z.
func Tracks(fs afero.Fs, name string) ([]Track, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".vgm", ".vgz":
		data, err := afero.ReadFile(fs, name)
		if err != nil {
			return nil, fmt.Errorf("loader: %w", err)
		}
		return []Track{{Name: filepath.Base(name), Data: data}}, nil
	case ".zip":
		return openArchive(fs, name, zipEntries)
	case ".7z":
		return openArchive(fs, name, sevenZipEntries)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
}

// Load returns the first VGM stream in the file at name.
func Load(fs afero.Fs, name string) (Track, error) {
	tracks, err := Tracks(fs, name)
	if err != nil {
		return Track{}, err
	}
	return tracks[0], nil
}

// List returns the supported files directly inside dir, sorted by name.
func List(fs afero.Fs, dir string) ([]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	var out []string
	for _, fi := range infos {
		if fi.IsDir() || !Supported(fi.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, fi.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// entry is an archive member reduced to what the loader needs.
type entry struct {
	name string
	size uint64
	open func() (io.ReadCloser, error)
}

type lister func(r io.ReaderAt, size int64) ([]entry, error)

func openArchive(fs afero.Fs, name string, list lister) ([]Track, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	entries, err := list(f, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", name, err)
	}

	var tracks []Track
	for _, e := range entries {
		if !IsStream(e.name) {
			continue
		}
		if e.size > MaxTrackSize {
			return nil, fmt.Errorf("%w: %s", ErrTooLarge, e.name)
		}
		data, err := readEntry(e)
		if err != nil {
			return nil, fmt.Errorf("loader: %s: %s: %w", name, e.name, err)
		}
		tracks = append(tracks, Track{Name: path.Base(e.name), Data: data})
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTracks, name)
	}
	return tracks, nil
}

func readEntry(e entry) ([]byte, error) {
	rc, err := e.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxTrackSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxTrackSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

func zipEntries(r io.ReaderAt, size int64) ([]entry, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	var out []entry
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		out = append(out, entry{name: zf.Name, size: zf.UncompressedSize64, open: zf.Open})
	}
	return out, nil
}

func sevenZipEntries(r io.ReaderAt, size int64) ([]entry, error) {
	zr, err := sevenzip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	var out []entry
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		out = append(out, entry{name: zf.Name, size: zf.UncompressedSize, open: zf.Open})
	}
	return out, nil
}
