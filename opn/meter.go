package opn

// carriers lists, per algorithm, the operators that reach the output.
var carriers = [8][]int{
	{slot4},
	{slot4},
	{slot4},
	{slot4},
	{slot2, slot4},
	{slot2, slot3, slot4},
	{slot2, slot3, slot4},
	{slot1, slot2, slot3, slot4},
}

// ChannelMeter reports whether any operator of channel n is keyed on and
// the loudest carrier's envelope level, 0 (silent) to 1023 (full scale).
// Empty channel slots report silence.
func (c *Chip) ChannelMeter(n int) (key bool, level int) {
	if n < 0 || n >= len(c.ch) || !c.model.hasChannel(n) {
		return false, 0
	}
	ch := &c.ch[n]
	for i := range ch.op {
		if ch.op[i].key {
			key = true
		}
	}
	if n == 5 && c.dacEnabled {
		return key, maxAttIndex
	}
	for _, s := range carriers[ch.algo] {
		if l := maxAttIndex - int(ch.op[s].volOut); l > level {
			level = l
		}
	}
	return key, level
}
