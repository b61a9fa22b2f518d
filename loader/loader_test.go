package loader

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

var testStream = []byte("Vgm \x00\x00\x00\x00")

func writeZip(t *testing.T, fs afero.Fs, name string, files map[string][]byte, order []string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range order {
		w, err := zw.Create(n)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(files[n]); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, name, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExtensions(t *testing.T) {
	tests := []struct {
		name            string
		stream, archive bool
	}{
		{"a.vgm", true, false},
		{"b.VGZ", true, false},
		{"c.zip", false, true},
		{"d.7Z", false, true},
		{"e.txt", false, false},
		{"vgm", false, false},
	}
	for _, tt := range tests {
		if got := IsStream(tt.name); got != tt.stream {
			t.Errorf("IsStream(%q): got %v, want %v", tt.name, got, tt.stream)
		}
		if got := IsArchive(tt.name); got != tt.archive {
			t.Errorf("IsArchive(%q): got %v, want %v", tt.name, got, tt.archive)
		}
		if got := Supported(tt.name); got != (tt.stream || tt.archive) {
			t.Errorf("Supported(%q): got %v", tt.name, got)
		}
	}
}

func TestTracks_PlainFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/music/song.vgm", testStream, 0644); err != nil {
		t.Fatal(err)
	}

	tracks, err := Tracks(fs, "/music/song.vgm")
	if err != nil {
		t.Fatalf("Tracks failed: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Name != "song.vgm" || !bytes.Equal(tracks[0].Data, testStream) {
		t.Errorf("got %+v", tracks)
	}
}

func TestTracks_Missing(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Tracks(fs, "/nope.vgz"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestTracks_Unsupported(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Tracks(fs, "/notes.txt")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("got %v, want ErrUnsupported", err)
	}
}

func TestTracks_Zip(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string][]byte{
		"readme.txt":        []byte("hello"),
		"pack/01 intro.vgz": []byte("first"),
		"pack/02 stage.vgm": []byte("second"),
	}
	writeZip(t, fs, "/pack.zip", files, []string{"readme.txt", "pack/01 intro.vgz", "pack/02 stage.vgm"})

	tracks, err := Tracks(fs, "/pack.zip")
	if err != nil {
		t.Fatalf("Tracks failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks: got %d, want 2", len(tracks))
	}
	if tracks[0].Name != "01 intro.vgz" || string(tracks[0].Data) != "first" {
		t.Errorf("track 0: got %q %q", tracks[0].Name, tracks[0].Data)
	}
	if tracks[1].Name != "02 stage.vgm" || string(tracks[1].Data) != "second" {
		t.Errorf("track 1: got %q %q", tracks[1].Name, tracks[1].Data)
	}

	first, err := Load(fs, "/pack.zip")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first.Name != "01 intro.vgz" {
		t.Errorf("Load: got %q", first.Name)
	}
}

func TestTracks_ZipWithoutStreams(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeZip(t, fs, "/empty.zip", map[string][]byte{"a.txt": []byte("x")}, []string{"a.txt"})

	_, err := Tracks(fs, "/empty.zip")
	if !errors.Is(err, ErrNoTracks) {
		t.Errorf("got %v, want ErrNoTracks", err)
	}
}

func TestTracks_CorruptArchives(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, name := range []string{"/bad.zip", "/bad.7z"} {
		if err := afero.WriteFile(fs, name, []byte("not an archive at all"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Tracks(fs, name); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestList(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, n := range []string{"/in/b.vgz", "/in/a.vgm", "/in/c.zip", "/in/skip.txt", "/in/sub/d.vgm"} {
		if err := afero.WriteFile(fs, n, testStream, 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := List(fs, "/in")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"/in/a.vgm", "/in/b.vgz", "/in/c.zip"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestList_MissingDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := List(fs, "/absent"); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
