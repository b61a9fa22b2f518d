package opn

import (
	"encoding/binary"
	"hash/crc32"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "opnfmState\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + modelCRC(4) + dataCRC(4)

	// addr(1) + addrA1(1) + prescalerSel(1) + egTimer(4) + egCnt(4) +
	// lfoCnt(4) + lfoAM(1) + lfoPM(1) + fnH(1) + sl3.fnH(1) + status(1) +
	// irq(1) + mode(1) + tac(8) + tbc(8) + busy(8) + dacEnabled(1) +
	// dacOut(4) + lpfMemL(4) + lpfMemR(4) = 59
	stateGlobalSize = 59
	// op1Out(8) + memVal(4) = 12
	stateChannelSize = 12
	// phase(4) + state(1) + volume(2) + volOut(4) + ssgn(1) + key(1) = 13
	stateOperatorSize = 13

	// StateSize is the length of a buffer produced by SaveState.
	StateSize = stateHeaderSize + 512 + stateGlobalSize + 6*stateChannelSize + 24*stateOperatorSize
)

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func modelCRC(m *Model) uint32 {
	return crc32.ChecksumIEEE([]byte(m.Name))
}

// SaveState returns a snapshot of the full chip state, including the
// phase and envelope counters that Dump leaves out.
func (c *Chip) SaveState() []byte {
	data := make([]byte, StateSize)

	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], modelCRC(c.model))

	offset := stateHeaderSize
	copy(data[offset:], c.regs[:])
	offset += 512

	data[offset] = c.addr
	offset++
	data[offset] = c.addrA1
	offset++
	data[offset] = c.prescalerSel
	offset++
	binary.LittleEndian.PutUint32(data[offset:], c.egTimer)
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], c.egCnt)
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], c.lfoCnt)
	offset += 4
	data[offset] = uint8(c.lfoAM)
	offset++
	data[offset] = uint8(c.lfoPM)
	offset++
	data[offset] = c.fnH
	offset++
	data[offset] = c.sl3.fnH
	offset++
	data[offset] = c.status
	offset++
	data[offset] = boolByte(c.irq)
	offset++
	data[offset] = c.mode
	offset++
	binary.LittleEndian.PutUint64(data[offset:], uint64(c.tac))
	offset += 8
	binary.LittleEndian.PutUint64(data[offset:], uint64(c.tbc))
	offset += 8
	binary.LittleEndian.PutUint64(data[offset:], uint64(c.busy))
	offset += 8
	data[offset] = boolByte(c.dacEnabled)
	offset++
	binary.LittleEndian.PutUint32(data[offset:], uint32(c.dacOut))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(c.lpfMemL))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(c.lpfMemR))
	offset += 4

	for i := range c.ch {
		ch := &c.ch[i]
		binary.LittleEndian.PutUint32(data[offset:], uint32(ch.op1Out[0]))
		binary.LittleEndian.PutUint32(data[offset+4:], uint32(ch.op1Out[1]))
		binary.LittleEndian.PutUint32(data[offset+8:], uint32(ch.memVal))
		offset += stateChannelSize
	}

	for i := range c.ch {
		for j := range c.ch[i].op {
			offset = saveOperator(&c.ch[i].op[j], data, offset)
		}
	}

	binary.LittleEndian.PutUint32(data[18:22], crc32.ChecksumIEEE(data[stateHeaderSize:]))
	return data
}

// VerifyState checks a snapshot without loading it.
func (c *Chip) VerifyState(data []byte) error {
	if len(data) < StateSize {
		return ErrStateBufferSize
	}
	if string(data[0:12]) != stateMagic {
		return ErrStateMagic
	}
	if binary.LittleEndian.Uint16(data[12:14]) > stateVersion {
		return ErrStateVersion
	}
	if binary.LittleEndian.Uint32(data[14:18]) != modelCRC(c.model) {
		return ErrStateModel
	}
	if binary.LittleEndian.Uint32(data[18:22]) != crc32.ChecksumIEEE(data[stateHeaderSize:StateSize]) {
		return ErrStateChecksum
	}
	return nil
}

// LoadState restores a snapshot taken by SaveState on a chip of the same
// model. Handlers, the low-pass setting and the sample rate are kept.
func (c *Chip) LoadState(data []byte) error {
	if err := c.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize
	regs := data[offset : offset+512]
	offset += 512

	// Rebuild every derived field from the register file, then overlay
	// the running counters.
	c.Reset()
	c.prescalerSel = data[offset+2]
	if c.model.PrescalerDivider != 0 {
		c.setPrescaler(opnPres[c.prescalerSel&3] * c.model.PrescalerDivider)
	}
	if err := c.Restore(regs[:c.model.RegisterSpace()]); err != nil {
		return err
	}
	copy(c.regs[:], regs)

	c.addr = data[offset]
	offset++
	c.addrA1 = data[offset]
	offset += 2
	c.egTimer = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	c.egCnt = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	c.lfoCnt = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	c.lfoAM = uint32(data[offset])
	offset++
	c.lfoPM = int32(data[offset])
	offset++
	c.fnH = data[offset]
	offset++
	c.sl3.fnH = data[offset]
	offset++
	c.status = data[offset]
	offset++
	c.irq = data[offset] != 0
	offset++
	c.mode = data[offset]
	offset++
	c.tac = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	c.tbc = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	c.busy = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	c.dacEnabled = data[offset] != 0
	offset++
	c.dacOut = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	c.lpfMemL = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	c.lpfMemR = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	for i := range c.ch {
		ch := &c.ch[i]
		ch.op1Out[0] = int32(binary.LittleEndian.Uint32(data[offset:]))
		ch.op1Out[1] = int32(binary.LittleEndian.Uint32(data[offset+4:]))
		ch.memVal = int32(binary.LittleEndian.Uint32(data[offset+8:]))
		ch.dirty = true
		offset += stateChannelSize
	}

	for i := range c.ch {
		for j := range c.ch[i].op {
			offset = loadOperator(&c.ch[i].op[j], data, offset)
		}
	}

	return nil
}

func saveOperator(op *operator, data []byte, offset int) int {
	binary.LittleEndian.PutUint32(data[offset:], op.phase)
	offset += 4
	data[offset] = uint8(op.state)
	offset++
	binary.LittleEndian.PutUint16(data[offset:], uint16(op.volume))
	offset += 2
	binary.LittleEndian.PutUint32(data[offset:], op.volOut)
	offset += 4
	data[offset] = op.ssgn
	offset++
	data[offset] = boolByte(op.key)
	offset++
	return offset
}

func loadOperator(op *operator, data []byte, offset int) int {
	op.phase = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	op.state = egState(data[offset])
	offset++
	op.volume = int32(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2
	op.volOut = binary.LittleEndian.Uint32(data[offset:])
	offset += 4
	op.ssgn = data[offset]
	offset++
	op.key = data[offset] != 0
	offset++
	return offset
}
