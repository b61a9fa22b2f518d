package opn

import (
	"errors"
	"testing"
)

func TestNewBank(t *testing.T) {
	b, err := NewBank(Config{Model: YM2203, Chips: 3, ClockHz: 3993600, SampleRate: 44100})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}
	if b.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", b.Len())
	}
	for i := 0; i < b.Len(); i++ {
		c := b.Chip(i)
		if c.Index() != i {
			t.Errorf("chip %d: index %d", i, c.Index())
		}
		if c.SampleRate() != 44100 {
			t.Errorf("chip %d: rate %d", i, c.SampleRate())
		}
	}
}

func TestNewBank_DefaultModel(t *testing.T) {
	b, err := NewBank(Config{Chips: 1, ClockHz: testClock, SampleRate: testRate})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}
	if b.Chip(0).Model().Name != YM2612.Name {
		t.Errorf("model: got %s, want YM2612", b.Chip(0).Model().Name)
	}
}

func TestNewBank_MJazz(t *testing.T) {
	b, err := NewBank(Config{Model: YM2612, Chips: 3, ClockHz: testClock, SampleRate: 22050, MJazz: true})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}
	for i, want := range []int{22050, 44100, 88200} {
		if got := b.Chip(i).SampleRate(); got != want {
			t.Errorf("chip %d: rate %d, want %d", i, got, want)
		}
	}
}

func TestNewBank_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no chips", Config{Chips: 0, ClockHz: testClock, SampleRate: testRate}, ErrInvalidChipCount},
		{"bad clock", Config{Chips: 2, ClockHz: 0, SampleRate: testRate}, ErrInvalidClock},
		{"bad rate", Config{Chips: 2, ClockHz: testClock}, ErrInvalidRate},
	}
	for _, tt := range tests {
		b, err := NewBank(tt.cfg)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
		if b != nil {
			t.Errorf("%s: bank returned with error", tt.name)
		}
	}
}

func TestNewBank_HandlerIndex(t *testing.T) {
	var got []int
	b, err := NewBank(Config{
		Model:      YM2612,
		Chips:      2,
		ClockHz:    unitClock,
		SampleRate: unitRate,
		TimerHandler: func(chip int, timer TimerID, ticks int, tick float64) {
			got = append(got, chip)
		},
	})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}
	b.Chip(1).WriteRegister(0x27, 0x01)
	b.Chip(0).WriteRegister(0x27, 0x02)
	if len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Errorf("handler chip indexes: got %v, want [1 0]", got)
	}
}

// --- Process-wide bank ---

func TestInit_Twice(t *testing.T) {
	cfg := Config{Model: YM2612, Chips: 1, ClockHz: testClock, SampleRate: testRate}
	b, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Shutdown()

	if _, err := Init(cfg); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init: got %v, want ErrAlreadyInitialized", err)
	}

	b.Close()
	b2, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init after Close: %v", err)
	}
	if b2.Len() != 1 {
		t.Errorf("Len: got %d, want 1", b2.Len())
	}
}

func TestInit_FailureLeavesSlotFree(t *testing.T) {
	if _, err := Init(Config{Chips: 1, ClockHz: -1, SampleRate: testRate}); err == nil {
		t.Fatal("Init with bad clock succeeded")
	}
	if _, err := Init(Config{Chips: 1, ClockHz: testClock, SampleRate: testRate}); err != nil {
		t.Fatalf("Init after failure: %v", err)
	}
	Shutdown()
	if _, err := Init(Config{Chips: 1, ClockHz: testClock, SampleRate: testRate}); err != nil {
		t.Errorf("Init after Shutdown: %v", err)
	}
	Shutdown()
}
