package vgm

import "errors"

var (
	ErrTooShort   = errors.New("vgm: file too short")
	ErrBadMagic   = errors.New("vgm: missing \"Vgm \" magic")
	ErrTruncated  = errors.New("vgm: truncated command")
	ErrDataOffset = errors.New("vgm: data offset out of range")
	ErrTooLarge   = errors.New("vgm: inflated stream exceeds size limit")
)
