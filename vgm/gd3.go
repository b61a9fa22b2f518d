package vgm

import (
	"encoding/binary"
	"errors"

	"golang.org/x/text/encoding/unicode"
)

// Tag holds the English fields of a GD3 tag.
type Tag struct {
	Track  string
	Game   string
	System string
	Author string
	Date   string
	Ripper string
	Notes  string
}

var errBadTag = errors.New("vgm: bad GD3 tag")

// parseTag reads the GD3 block at off. The block is "Gd3 ", a version, a
// byte length, then eleven NUL-terminated UTF-16LE strings alternating
// English and Japanese for the first eight.
func parseTag(data []byte, off uint32) (Tag, error) {
	if uint64(off)+12 > uint64(len(data)) || string(data[off:off+4]) != "Gd3 " {
		return Tag{}, errBadTag
	}
	size := binary.LittleEndian.Uint32(data[off+8:])
	start := uint64(off) + 12
	if start+uint64(size) > uint64(len(data)) {
		return Tag{}, errBadTag
	}
	body := data[start : start+uint64(size)]

	var fields []string
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	for len(body) >= 2 && len(fields) < 11 {
		end := indexNUL16(body)
		if end < 0 {
			end = len(body) &^ 1
		}
		s, err := dec.Bytes(body[:end])
		if err != nil {
			return Tag{}, errBadTag
		}
		fields = append(fields, string(s))
		if end+2 > len(body) {
			break
		}
		body = body[end+2:]
	}
	for len(fields) < 11 {
		fields = append(fields, "")
	}

	return Tag{
		Track:  fields[0],
		Game:   fields[2],
		System: fields[4],
		Author: fields[6],
		Date:   fields[8],
		Ripper: fields[9],
		Notes:  fields[10],
	}, nil
}

// indexNUL16 returns the byte offset of the first 16-bit zero unit.
func indexNUL16(b []byte) int {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return i
		}
	}
	return -1
}
