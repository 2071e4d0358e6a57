package modbuscore

import "encoding/binary"

// Frame is one complete inbound Modbus message. 256 bytes fits the
// largest possible frame of every framing variant, header included.
// The transport owns the buffer; ProcessFrame borrows it for the duration
// of one call and never retains it. Bytes beyond the logical frame length
// are ignored.
type Frame [256]byte

// Limits from the Modbus application protocol specification.
const (
	maxReadBits   = 2000 // Functions 1 and 2.
	maxReadWords  = 125  // Functions 3 and 4.
	maxWriteBytes = 242  // Payload of functions 15 and 16.
)

// Unit ids 0 and 255 address every unit on the link. Some clients
// broadcast to 0xFF rather than 0.
const (
	broadcastZero = 0
	broadcastAll  = 255
)

// mbapLen is the length of the MBAP header preceding TCP/UDP PDUs.
const mbapLen = 6

// ProcessFrame validates one request frame, reads or mutates ctx under
// its lock, and returns the reply to write verbatim to the wire. A nil
// return means send nothing:
//
//   - the TCP/UDP header is unparseable, so there is nothing to reply to
//   - the frame is addressed to a different unit
//   - the RTU checksum does not match (transport corruption, not a
//     protocol exception)
//   - the request is a broadcast, which no unit may answer
//
// ProcessFrame holds no state between calls; every invocation is a pure
// transformation over ctx. The context lock is acquired exactly once per
// frame, after all drop decisions, and held across every bank access of
// the request.
func ProcessFrame(unitID uint8, frame *Frame, proto Protocol, ctx *Context) []byte {
	var start int
	switch proto {
	case ProtocolTCP:
		protoID := binary.BigEndian.Uint16(frame[2:4])
		length := binary.BigEndian.Uint16(frame[4:6])
		if protoID != 0 || length < 6 {
			return nil
		}
		start = mbapLen
	case ProtocolRTU:
		start = 0
	default:
		panic("unknown protocol variant")
	}
	unit := frame[start]
	broadcast := unit == broadcastZero || unit == broadcastAll
	if !broadcast && unit != unitID {
		return nil
	}
	r := reply{proto: proto}
	if !broadcast && proto == ProtocolTCP {
		// The reply opens with a verbatim copy of the request's
		// transaction and protocol identifiers.
		r.buf = append(r.buf, frame[:4]...)
	}
	// crcOK reports whether the two bytes trailing the first n frame
	// bytes match their checksum. TCP/UDP frames carry no checksum and
	// always pass.
	crcOK := func(n int) bool {
		if proto != ProtocolRTU {
			return true
		}
		return CRC16(frame[:n]) == binary.LittleEndian.Uint16(frame[n:n+2])
	}
	fc := FunctionCode(frame[start+1])

	switch fc {
	case FCReadCoils, FCReadDiscreteInputs, FCReadHoldingRegisters, FCReadInputRegisters:
		// Reads are never broadcast-valid.
		if broadcast || !crcOK(6) {
			return nil
		}
		addr := binary.BigEndian.Uint16(frame[start+2:])
		count := binary.BigEndian.Uint16(frame[start+4:])
		bitBank := fc == FCReadCoils || fc == FCReadDiscreteInputs
		if (bitBank && count > maxReadBits) || (!bitBank && count > maxReadWords) {
			return r.exception(unit, fc, ExceptionIllegalDataValue)
		}
		var data []byte
		var err error
		ctx.Lock()
		switch fc {
		case FCReadCoils:
			data, err = ctx.GetBoolsAsBytes(addr, count, BankCoil)
		case FCReadDiscreteInputs:
			data, err = ctx.GetBoolsAsBytes(addr, count, BankDiscrete)
		case FCReadHoldingRegisters:
			data, err = ctx.GetWordsAsBytes(addr, count, BankHolding)
		case FCReadInputRegisters:
			data, err = ctx.GetWordsAsBytes(addr, count, BankInput)
		}
		ctx.Unlock()
		if err != nil {
			return r.exception(unit, fc, ExceptionIllegalDataAddr)
		}
		r.setDataLen(len(data) + 3)
		r.buf = append(r.buf, unit, byte(fc), byte(len(data)))
		r.buf = append(r.buf, data...)
		return r.finalize()

	case FCWriteSingleCoil, FCWriteSingleRegister:
		if !crcOK(6) {
			return nil
		}
		addr := binary.BigEndian.Uint16(frame[start+2:])
		value := binary.BigEndian.Uint16(frame[start+4:])
		if fc == FCWriteSingleCoil && value != 0xFF00 && value != 0x0000 {
			// A coil is written with exactly 0xFF00 (on) or 0x0000
			// (off); anything else is an illegal value. Broadcasts of
			// such a frame are dropped with no state change.
			if broadcast {
				return nil
			}
			return r.exception(unit, fc, ExceptionIllegalDataValue)
		}
		var err error
		ctx.Lock()
		if fc == FCWriteSingleCoil {
			err = ctx.SetBool(addr, value == 0xFF00, BankCoil)
		} else {
			err = ctx.Set(addr, value, BankHolding)
		}
		ctx.Unlock()
		if broadcast {
			return nil
		}
		if err != nil {
			return r.exception(unit, fc, ExceptionIllegalDataAddr)
		}
		// Success echoes the six request bytes: unit, function,
		// address, value.
		r.setDataLen(6)
		r.buf = append(r.buf, frame[start:start+6]...)
		return r.finalize()

	case FCWriteMultipleCoils, FCWriteMultipleRegisters:
		nbytes := int(frame[start+6])
		if proto == ProtocolRTU && 7+nbytes+2 > len(frame) {
			// The declared payload plus the trailing checksum cannot
			// fit in one RTU frame: the frame is truncated and there
			// is no checksum to verify, so there is nothing coherent
			// to reply to.
			return nil
		}
		// The checksum covers the header through the declared payload.
		if !crcOK(7 + nbytes) {
			return nil
		}
		// Checked before the payload is sliced, so an oversized
		// declared length is answered without ever reading past the
		// frame.
		if nbytes > maxWriteBytes {
			if broadcast {
				return nil
			}
			return r.exception(unit, fc, ExceptionIllegalDataValue)
		}
		addr := binary.BigEndian.Uint16(frame[start+2:])
		count := binary.BigEndian.Uint16(frame[start+4:])
		payload := frame[start+7 : start+7+nbytes]
		var err error
		ctx.Lock()
		if fc == FCWriteMultipleCoils {
			err = ctx.SetBoolsFromBytes(addr, count, payload, BankCoil)
		} else {
			err = ctx.SetWordsFromBytes(addr, payload, BankHolding)
		}
		ctx.Unlock()
		if broadcast {
			return nil
		}
		if err != nil {
			return r.exception(unit, fc, ExceptionIllegalDataAddr)
		}
		// Success echoes the six header bytes: unit, function, address,
		// count.
		r.setDataLen(6)
		r.buf = append(r.buf, frame[start:start+6]...)
		return r.finalize()

	default:
		// Answered even for broadcast frames.
		return r.exception(unit, fc, ExceptionIllegalFunction)
	}
}

// reply assembles one outbound frame. The helpers mirror the shape every
// response takes: optional MBAP echo and length field, body, RTU
// checksum trailer.
type reply struct {
	proto Protocol
	buf   []byte
}

// setDataLen fills in the MBAP length field, which counts bytes from the
// unit id onward. RTU replies carry no length field.
func (r *reply) setDataLen(n int) {
	if r.proto == ProtocolTCP {
		r.buf = append(r.buf, byte(n>>8), byte(n))
	}
}

// exception appends an exception body echoing the request's unit id and
// function code with the high bit set, then seals the frame.
func (r *reply) exception(unit uint8, fc FunctionCode, exc Exception) []byte {
	r.setDataLen(3)
	r.buf = append(r.buf, unit, byte(fc)|0x80, byte(exc))
	return r.finalize()
}

// finalize seals the frame per transport: RTU replies get the CRC16
// appended little-endian as the final two bytes, TCP/UDP replies are
// returned as built.
func (r *reply) finalize() []byte {
	if r.proto == ProtocolRTU {
		crc := CRC16(r.buf)
		r.buf = append(r.buf, byte(crc), byte(crc>>8))
	}
	return r.buf
}
