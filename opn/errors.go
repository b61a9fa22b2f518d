package opn

import "errors"

var (
	ErrAlreadyInitialized = errors.New("opn: chips already initialized")
	ErrInvalidChipCount   = errors.New("opn: chip count must be at least 1")
	ErrInvalidClock       = errors.New("opn: clock must be positive")
	ErrInvalidRate        = errors.New("opn: sample rate must be positive")
	ErrUnknownModel       = errors.New("opn: unknown chip model")
	ErrRegisterDumpSize   = errors.New("opn: register dump has wrong size")
	ErrStateBufferSize    = errors.New("opn: state buffer too small")
	ErrStateMagic         = errors.New("opn: invalid state magic")
	ErrStateVersion       = errors.New("opn: unsupported state version")
	ErrStateChecksum      = errors.New("opn: state checksum mismatch")
	ErrStateModel         = errors.New("opn: state was saved from a different model")
)
