package vgm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"
)

// buildVGMHeader creates a version 1.71 header with data at 0x100.
func buildVGMHeader(totalSamples uint32) []byte {
	h := make([]byte, 0x100)
	copy(h[0:4], "Vgm ")
	binary.LittleEndian.PutUint32(h[0x08:], 0x171)
	binary.LittleEndian.PutUint32(h[0x18:], totalSamples)
	binary.LittleEndian.PutUint32(h[0x34:], 0x100-0x34)
	return h
}

func putClock(h []byte, off int, hz uint32) {
	binary.LittleEndian.PutUint32(h[off:], hz)
}

func stream(h []byte, cmds ...byte) []byte {
	return append(append([]byte(nil), h...), cmds...)
}

func mustParse(t *testing.T, data []byte) *File {
	t.Helper()
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return f
}

// --- Header ---

func TestParse_HeaderClocks(t *testing.T) {
	h := buildVGMHeader(44100)
	putClock(h, 0x0c, 3579545)
	putClock(h, 0x2c, 7670453|dualBit)
	putClock(h, 0x44, 3993600)
	putClock(h, 0x48, 7987200)
	putClock(h, 0x4c, 8000000|ym2610BBit)
	binary.LittleEndian.PutUint32(h[0x24:], 60)

	f := mustParse(t, stream(h, 0x66))
	hd := f.Header

	if hd.Version != 0x171 {
		t.Errorf("version: got 0x%X, want 0x171", hd.Version)
	}
	if hd.TotalSamples != 44100 {
		t.Errorf("total samples: got %d, want 44100", hd.TotalSamples)
	}
	if hd.Rate != 60 {
		t.Errorf("rate: got %d, want 60", hd.Rate)
	}
	if hd.DataOffset != 0x100 {
		t.Errorf("data offset: got 0x%X, want 0x100", hd.DataOffset)
	}
	if hd.PSG.Hz != 3579545 || hd.PSG.Dual {
		t.Errorf("PSG clock: got %+v", hd.PSG)
	}
	if hd.YM2612.Hz != 7670453 || !hd.YM2612.Dual {
		t.Errorf("YM2612 clock: got %+v, want 7670453 dual", hd.YM2612)
	}
	if hd.YM2203.Hz != 3993600 {
		t.Errorf("YM2203 clock: got %d", hd.YM2203.Hz)
	}
	if hd.YM2608.Hz != 7987200 {
		t.Errorf("YM2608 clock: got %d", hd.YM2608.Hz)
	}
	if hd.YM2610.Hz != 8000000 || !hd.YM2610B {
		t.Errorf("YM2610 clock: got %d B=%v, want 8000000 B=true", hd.YM2610.Hz, hd.YM2610B)
	}
}

func TestParse_OldVersionDefaults(t *testing.T) {
	h := make([]byte, 0x40)
	copy(h[0:4], "Vgm ")
	binary.LittleEndian.PutUint32(h[0x08:], 0x101)
	putClock(h, 0x10, 7670453)
	// Ignored before 1.50.
	binary.LittleEndian.PutUint32(h[0x34:], 0x1000)

	f := mustParse(t, stream(h, 0x52, 0x22, 0x00, 0x66))
	if f.Header.DataOffset != 0x40 {
		t.Errorf("data offset: got 0x%X, want 0x40", f.Header.DataOffset)
	}
	if f.Header.YM2612.Hz != 7670453 {
		t.Errorf("YM2612 clock from 0x10: got %d", f.Header.YM2612.Hz)
	}
	if len(f.Commands) != 1 {
		t.Errorf("commands: got %d, want 1", len(f.Commands))
	}
}

func TestParse_ShortHeaderFields(t *testing.T) {
	// A 1.51 header that ends at 0x40 carries no YM2203 clock.
	h := make([]byte, 0x40)
	copy(h[0:4], "Vgm ")
	binary.LittleEndian.PutUint32(h[0x08:], 0x151)
	binary.LittleEndian.PutUint32(h[0x34:], 0x0c)
	data := stream(h, 0x66, 0, 0, 0, 0xff, 0xff, 0xff, 0xff)

	f := mustParse(t, data)
	if f.Header.YM2203.Used() {
		t.Errorf("YM2203 clock read past the header: %d", f.Header.YM2203.Hz)
	}
}

func TestParse_Errors(t *testing.T) {
	good := buildVGMHeader(0)
	bad := stream(good, 0x66)
	copy(bad[0:4], "VGM!")
	farData := buildVGMHeader(0)
	binary.LittleEndian.PutUint32(farData[0x34:], 0x10000)
	wrapData := buildVGMHeader(0)
	binary.LittleEndian.PutUint32(wrapData[0x34:], 0xfffffff0)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", []byte("Vgm "), ErrTooShort},
		{"magic", bad, ErrBadMagic},
		{"data offset", farData, ErrDataOffset},
		{"data offset wraps", wrapData, ErrDataOffset},
		{"truncated write", stream(good, 0x52, 0x28), ErrTruncated},
		{"truncated wait", stream(good, 0x61, 0x01), ErrTruncated},
		{"truncated block", stream(good, 0x67, 0x66, 0x00, 0x10, 0, 0, 0, 1, 2), ErrTruncated},
		{"bad block", stream(good, 0x67, 0x00, 0x00, 0, 0, 0, 0), ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

// --- Commands ---

func TestParse_FMWrites(t *testing.T) {
	cmds := []byte{
		0x52, 0x28, 0xf0,
		0x53, 0x30, 0x71,
		0x55, 0x27, 0x15,
		0x56, 0xb4, 0xc0,
		0x57, 0xa4, 0x22,
		0x58, 0x40, 0x7f,
		0x59, 0x31, 0x01,
		0x66,
	}
	f := mustParse(t, stream(buildVGMHeader(0), cmds...))

	want := []Command{
		{Kind: KindWrite, Chip: ChipYM2612, Port: 0, Reg: 0x28, Value: 0xf0},
		{Kind: KindWrite, Chip: ChipYM2612, Port: 1, Reg: 0x30, Value: 0x71},
		{Kind: KindWrite, Chip: ChipYM2203, Port: 0, Reg: 0x27, Value: 0x15},
		{Kind: KindWrite, Chip: ChipYM2608, Port: 0, Reg: 0xb4, Value: 0xc0},
		{Kind: KindWrite, Chip: ChipYM2608, Port: 1, Reg: 0xa4, Value: 0x22},
		{Kind: KindWrite, Chip: ChipYM2610, Port: 0, Reg: 0x40, Value: 0x7f},
		{Kind: KindWrite, Chip: ChipYM2610, Port: 1, Reg: 0x31, Value: 0x01},
	}
	if len(f.Commands) != len(want) {
		t.Fatalf("commands: got %d, want %d", len(f.Commands), len(want))
	}
	for i, w := range want {
		if f.Commands[i] != w {
			t.Errorf("command %d: got %+v, want %+v", i, f.Commands[i], w)
		}
	}
}

func TestParse_SecondChip(t *testing.T) {
	cmds := []byte{
		0xa2, 0x28, 0xf1,
		0xa3, 0xb6, 0x40,
		0xa5, 0x28, 0x01,
		0x30, 0x9f,
		0x66,
	}
	f := mustParse(t, stream(buildVGMHeader(0), cmds...))

	want := []Command{
		{Kind: KindWrite, Chip: ChipYM2612, Index: 1, Port: 0, Reg: 0x28, Value: 0xf1},
		{Kind: KindWrite, Chip: ChipYM2612, Index: 1, Port: 1, Reg: 0xb6, Value: 0x40},
		{Kind: KindWrite, Chip: ChipYM2203, Index: 1, Port: 0, Reg: 0x28, Value: 0x01},
		{Kind: KindWrite, Chip: ChipPSG, Index: 1, Value: 0x9f},
	}
	if len(f.Commands) != len(want) {
		t.Fatalf("commands: got %d, want %d", len(f.Commands), len(want))
	}
	for i, w := range want {
		if f.Commands[i] != w {
			t.Errorf("command %d: got %+v, want %+v", i, f.Commands[i], w)
		}
	}
}

func TestParse_Waits(t *testing.T) {
	cmds := []byte{
		0x61, 0x10, 0x01, // 272
		0x62, // 735
		0x63, // 882
		0x70, // 1
		0x7f, // 16
		0x50, 0x9f,
		0x62,
		0x66,
	}
	f := mustParse(t, stream(buildVGMHeader(0), cmds...))

	if len(f.Commands) != 3 {
		t.Fatalf("commands: got %d, want 3 (merged wait, PSG, wait)", len(f.Commands))
	}
	if c := f.Commands[0]; c.Kind != KindWait || c.Samples != 272+735+882+1+16 {
		t.Errorf("merged wait: got %+v", c)
	}
	if c := f.Commands[1]; c.Chip != ChipPSG || c.Value != 0x9f {
		t.Errorf("PSG write: got %+v", c)
	}
	if c := f.Commands[2]; c.Kind != KindWait || c.Samples != 735 {
		t.Errorf("trailing wait: got %+v", c)
	}
}

func TestParse_PCMBlockAndDAC(t *testing.T) {
	cmds := []byte{
		0x67, 0x66, 0x00, 0x04, 0x00, 0x00, 0x00, 0x10, 0x20, 0x30, 0x40,
		0x67, 0x66, 0x01, 0x02, 0x00, 0x00, 0x00, 0xaa, 0xbb, // other type, dropped
		0x67, 0x66, 0x00, 0x01, 0x00, 0x00, 0x00, 0x50,
		0xe0, 0x02, 0x00, 0x00, 0x00,
		0x80,
		0x83,
		0x66,
	}
	f := mustParse(t, stream(buildVGMHeader(0), cmds...))

	if !bytes.Equal(f.PCM, []byte{0x10, 0x20, 0x30, 0x40, 0x50}) {
		t.Errorf("PCM bank: got % x", f.PCM)
	}
	want := []Command{
		{Kind: KindSeek, Offset: 2},
		{Kind: KindPCM, Chip: ChipYM2612, Samples: 0},
		{Kind: KindPCM, Chip: ChipYM2612, Samples: 3},
	}
	if len(f.Commands) != len(want) {
		t.Fatalf("commands: got %d, want %d", len(f.Commands), len(want))
	}
	for i, w := range want {
		if f.Commands[i] != w {
			t.Errorf("command %d: got %+v, want %+v", i, f.Commands[i], w)
		}
	}
}

func TestParse_SkipsUnknownCommands(t *testing.T) {
	cmds := []byte{
		0x51, 0x10, 0x20, // YM2413
		0x54, 0x08, 0x00, // YM2151
		0xa0, 0x07, 0x3e, // AY8910
		0x4f, 0x00, // GG stereo
		0xc0, 0x01, 0x02, 0x03,
		0xd0, 0x01, 0x02, 0x03,
		0x90, 0x00, 0x02, 0x00, 0x2a,
		0x93, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0x52, 0x2b, 0x80,
		0x66,
	}
	f := mustParse(t, stream(buildVGMHeader(0), cmds...))

	if len(f.Commands) != 1 {
		t.Fatalf("commands: got %d, want 1", len(f.Commands))
	}
	if c := f.Commands[0]; c.Chip != ChipYM2612 || c.Reg != 0x2b || c.Value != 0x80 {
		t.Errorf("surviving write: got %+v", c)
	}
}

func TestParse_StopsAtEnd(t *testing.T) {
	f := mustParse(t, stream(buildVGMHeader(0), 0x62, 0x66, 0x52, 0x28, 0xf0))
	if len(f.Commands) != 1 {
		t.Errorf("commands after 0x66 were parsed: got %d", len(f.Commands))
	}
}

func TestParse_MissingEndIsAccepted(t *testing.T) {
	f := mustParse(t, stream(buildVGMHeader(0), 0x52, 0x28, 0xf0, 0x62))
	if len(f.Commands) != 2 {
		t.Errorf("commands: got %d, want 2", len(f.Commands))
	}
}

// --- Loop ---

func TestParse_LoopIndex(t *testing.T) {
	h := buildVGMHeader(1470)
	// Loop at the second wait: 0x100 + 3 + 1.
	binary.LittleEndian.PutUint32(h[0x1c:], 0x104-0x1c)
	binary.LittleEndian.PutUint32(h[0x20:], 735)

	f := mustParse(t, stream(h, 0x52, 0x28, 0xf0, 0x62, 0x62, 0x66))

	if !f.Loops() {
		t.Fatal("expected a loop")
	}
	if f.Header.LoopOffset != 0x104 {
		t.Errorf("loop offset: got 0x%X, want 0x104", f.Header.LoopOffset)
	}
	if f.LoopIndex != 2 {
		t.Errorf("loop index: got %d, want 2", f.LoopIndex)
	}
	// The wait at the loop point must not be merged into the one before.
	if len(f.Commands) != 3 || f.Commands[1].Samples != 735 || f.Commands[2].Samples != 735 {
		t.Errorf("commands around loop: %+v", f.Commands)
	}
}

func TestParse_NoLoop(t *testing.T) {
	f := mustParse(t, stream(buildVGMHeader(0), 0x62, 0x66))
	if f.Loops() || f.LoopIndex != -1 {
		t.Errorf("unexpected loop index %d", f.LoopIndex)
	}
}

// --- Compression ---

func TestParse_Gzip(t *testing.T) {
	raw := stream(buildVGMHeader(735), 0x52, 0x28, 0xf0, 0x62, 0x66)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	f := mustParse(t, buf.Bytes())
	if len(f.Commands) != 2 || f.Header.TotalSamples != 735 {
		t.Errorf("VGZ parse: %d commands, total %d", len(f.Commands), f.Header.TotalSamples)
	}
}

func TestDecompress_PlainPassThrough(t *testing.T) {
	raw := []byte("Vgm plain")
	out, err := Decompress(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("plain data changed: %q", out)
	}
}

func TestDecompress_BadGzip(t *testing.T) {
	if _, err := Decompress([]byte{0x1f, 0x8b, 0x00}); err == nil {
		t.Error("expected an error for a broken gzip stream")
	}
}

func TestDecompress_SizeLimit(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(make([]byte, 4097)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := inflate(buf.Bytes(), 4096); !errors.Is(err, ErrTooLarge) {
		t.Errorf("over limit: got %v, want ErrTooLarge", err)
	}
	out, err := inflate(buf.Bytes(), 4097)
	if err != nil || len(out) != 4097 {
		t.Errorf("at limit: %d bytes, %v", len(out), err)
	}
}

// --- GD3 ---

func encodeTagString(t *testing.T, s string) []byte {
	t.Helper()
	b, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return append(b, 0, 0)
}

func buildTag(t *testing.T, fields ...string) []byte {
	t.Helper()
	var body bytes.Buffer
	for _, s := range fields {
		body.Write(encodeTagString(t, s))
	}
	out := make([]byte, 12)
	copy(out, "Gd3 ")
	binary.LittleEndian.PutUint32(out[4:], 0x100)
	binary.LittleEndian.PutUint32(out[8:], uint32(body.Len()))
	return append(out, body.Bytes()...)
}

func TestParse_GD3Tag(t *testing.T) {
	data := stream(buildVGMHeader(0), 0x62, 0x66)
	tagOff := len(data)
	data = append(data, buildTag(t,
		"Green Hill Zone", "グリーンヒル",
		"Sonic the Hedgehog", "",
		"Sega Mega Drive", "",
		"Masato Nakamura", "",
		"1991/06/23", "ripper", "notes")...)
	binary.LittleEndian.PutUint32(data[0x14:], uint32(tagOff-0x14))

	f := mustParse(t, data)
	want := Tag{
		Track:  "Green Hill Zone",
		Game:   "Sonic the Hedgehog",
		System: "Sega Mega Drive",
		Author: "Masato Nakamura",
		Date:   "1991/06/23",
		Ripper: "ripper",
		Notes:  "notes",
	}
	if f.Tag != want {
		t.Errorf("tag: got %+v, want %+v", f.Tag, want)
	}
}

func TestParse_BrokenTagIgnored(t *testing.T) {
	data := stream(buildVGMHeader(0), 0x62, 0x66)
	binary.LittleEndian.PutUint32(data[0x14:], 0x1000)

	f := mustParse(t, data)
	if f.Tag != (Tag{}) {
		t.Errorf("expected an empty tag, got %+v", f.Tag)
	}
}

func TestChipTypeString(t *testing.T) {
	if ChipYM2610.String() != "YM2610" {
		t.Errorf("got %q", ChipYM2610.String())
	}
	if ChipType(9).String() != "ChipType(9)" {
		t.Errorf("got %q", ChipType(9).String())
	}
}
