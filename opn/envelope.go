package opn

// egStep returns the increment for a rate if the EG counter is on one of
// its update ticks.
func egStep(cnt uint32, sh, sel uint8) (int32, bool) {
	if cnt&((1<<sh)-1) != 0 {
		return 0, false
	}
	return int32(egInc[uint32(sel)+((cnt>>sh)&7)]), true
}

// advanceEG runs one envelope tick for the four operators of a channel.
func (c *Chip) advanceEG(ch *channel) {
	for i := range ch.op {
		c.advanceOperatorEG(&ch.op[i])
	}
}

// advanceOperatorEG moves one operator's envelope by one EG clock tick
// and refreshes its cached output level.
func (c *Chip) advanceOperatorEG(op *operator) {
	cnt := c.egCnt
	nemesis := c.model.NemesisEG
	ssg := op.ssg&ssgEnable != 0
	var swap uint8

	switch op.state {
	case egAtt:
		if inc, ok := egStep(cnt, op.egShAR, op.egSelAR); ok {
			op.volume += (^op.volume * inc) >> 4
			if op.volume <= minAttIndex {
				op.volume = minAttIndex
				op.state = egDec
			}
		}

	case egDec:
		if nemesis {
			if inc, ok := egStep(cnt, op.egShD1R, op.egSelD1R); ok {
				if ssg {
					inc *= 6
				}
				op.volume += inc
			}
			// Checked every tick so that SL=0 still leaves DEC.
			if op.volume >= int32(op.sl) {
				op.volume = int32(op.sl)
				op.state = egSus
			}
		} else if inc, ok := egStep(cnt, op.egShD1R, op.egSelD1R); ok {
			if ssg {
				inc *= 4
			}
			op.volume += inc
			if op.volume >= int32(op.sl) {
				op.state = egSus
			}
		}

	case egSus:
		inc, ok := egStep(cnt, op.egShD2R, op.egSelD2R)
		if !ok {
			break
		}
		if !ssg {
			op.volume += inc
			if op.volume >= maxAttIndex {
				op.volume = maxAttIndex
				// state is kept, as on the chip
			}
			break
		}

		op.volume += c.model.ssgMul() * inc
		if op.volume < envQuiet {
			break
		}
		if nemesis {
			if op.volume > maxAttIndex {
				op.volume = maxAttIndex
			}
		} else {
			op.volume = maxAttIndex
		}

		if op.ssg&ssgHold != 0 {
			if op.ssgn&1 == 0 {
				swap = (op.ssg & ssgAlternate) | 1
			}
			break
		}

		// Loop: behaves like a key-on without touching the key flag.
		op.phase = 0
		if nemesis {
			if op.ar+uint32(op.ksr) < instantAttackRate {
				op.state = egAtt
			} else {
				op.volume = minAttIndex
				if op.sl == minAttIndex {
					op.state = egSus
				} else {
					op.state = egDec
				}
			}
		} else {
			op.volume = 511
			op.state = egAtt
		}
		swap = op.ssg & ssgAlternate

	case egRel:
		if inc, ok := egStep(cnt, op.egShRR, op.egSelRR); ok {
			if ssg && nemesis {
				inc *= 6
			}
			op.volume += inc
			if op.volume >= maxAttIndex {
				op.volume = maxAttIndex
				op.state = egOff
			}
		}
	}

	out := uint32(op.volume)
	if ssg && op.ssgn&2 != 0 && op.state > egRel {
		out ^= maxAttIndex
	}
	op.volOut = out + op.tl

	op.ssgn ^= swap
}
