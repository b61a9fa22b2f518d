package opn

import "strings"

// Model describes the capabilities of one member of the OPN family.
// A Model is selected once when a Chip is built and consulted wherever
// behavior differs between chips.
type Model struct {
	Name string

	// Channels is the number of channel slots (3 or 6). ChannelMask marks
	// the slots that have FM hardware behind them; the YM2610 leaves
	// slots 0 and 3 empty.
	Channels    int
	ChannelMask uint8

	// LFOPan is true when the chip has the LFO (0x22) and the
	// pan/AMS/PMS registers (0xB4-0xB6).
	LFOPan bool

	// Informational only; the SSG and ADPCM units are not synthesized here.
	HasSSG   bool
	HasADPCM bool

	// HasDAC is true for the YM2612 PCM channel (0x2A/0x2B).
	HasDAC bool

	// Prescaler is the default clock divider. PrescalerDivider is non-zero
	// on chips that accept the 0x2D-0x2F prescaler strobes and scales the
	// selectable dividers.
	Prescaler        int
	PrescalerDivider int

	// NemesisEG selects the envelope behavior measured on the YM2612 and
	// shared by the YM2608: the alternate rate-select table, the 6x SSG-EG
	// multiplier, and the instant-attack shortcut on key-on.
	NemesisEG bool
}

// ssgMul returns the SSG-EG decay/sustain multiplier.
func (m *Model) ssgMul() int32 {
	if m.NemesisEG {
		return 6
	}
	return 4
}

// rateSelect returns the increment-select table for this model.
func (m *Model) rateSelect() *[128]uint8 {
	if m.NemesisEG {
		return &egRateSelect2612
	}
	return &egRateSelect
}

// RegisterSpace returns the size of the register file: 256 for
// single-port chips, 512 when a second bank addresses channels 4-6.
func (m *Model) RegisterSpace() int {
	if m.Channels > 3 {
		return 512
	}
	return 256
}

// hasChannel reports whether channel slot c has FM hardware.
func (m *Model) hasChannel(c int) bool {
	return c < m.Channels && m.ChannelMask&(1<<uint(c)) != 0
}

// The supported chips. A Chip copies its Model when it is built, so
// changing one of these afterwards has no effect on existing chips.
var (
	// YM2203 (OPN): three FM channels beside an SSG, no LFO or pan.
	YM2203 = &Model{
		Name:             "YM2203",
		Channels:         3,
		ChannelMask:      0x07,
		HasSSG:           true,
		Prescaler:        6 * 12,
		PrescalerDivider: 1,
	}

	// YM2608 (OPNA): six channels with LFO, pan, SSG and ADPCM.
	YM2608 = &Model{
		Name:             "YM2608",
		Channels:         6,
		ChannelMask:      0x3F,
		LFOPan:           true,
		HasSSG:           true,
		HasADPCM:         true,
		Prescaler:        6 * 24,
		PrescalerDivider: 2,
		NemesisEG:        true,
	}

	// YM2610 (OPNB): four FM channels in slots 1, 2, 4 and 5.
	YM2610 = &Model{
		Name:        "YM2610",
		Channels:    6,
		ChannelMask: 0x36,
		LFOPan:      true,
		HasSSG:      true,
		HasADPCM:    true,
		Prescaler:   6 * 24,
	}

	// YM2610B: the YM2610 with all six FM channels.
	YM2610B = &Model{
		Name:        "YM2610B",
		Channels:    6,
		ChannelMask: 0x3F,
		LFOPan:      true,
		HasSSG:      true,
		HasADPCM:    true,
		Prescaler:   6 * 24,
	}

	// YM2612 (OPN2): six channels with LFO and pan, channel 6 doubling as
	// an 8-bit DAC.
	YM2612 = &Model{
		Name:        "YM2612",
		Channels:    6,
		ChannelMask: 0x3F,
		LFOPan:      true,
		HasDAC:      true,
		Prescaler:   6 * 24,
		NemesisEG:   true,
	}
)

// Models lists every supported chip.
var Models = []*Model{YM2203, YM2608, YM2610, YM2610B, YM2612}

// ModelByName looks up a model by name, ignoring case.
func ModelByName(name string) (*Model, error) {
	for _, m := range Models {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return nil, ErrUnknownModel
}
