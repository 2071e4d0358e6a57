package modbuscore

import "encoding/binary"

// Snapshot layout, all integers big-endian:
//
//	4 bytes | coil count
//	4 bytes | discrete input count
//	4 bytes | holding register count
//	4 bytes | input register count
//	...     | coils, packed 8 per byte, low bit first, zero padded
//	...     | discrete inputs, same packing
//	...     | holding registers, 2 bytes each
//	...     | input registers, 2 bytes each
//
// The recorded counts make the snapshot self-describing: Restore needs no
// metadata beyond the byte sequence itself.
const snapshotHeaderLen = 16

// Dump serializes all four banks into a byte sequence sufficient to
// reconstruct the context via Restore. The caller must hold the context
// lock so the snapshot is not torn by a concurrent request.
func (c *Context) Dump() []byte {
	n := snapshotHeaderLen +
		packedLen(len(c.coils)) + packedLen(len(c.discretes)) +
		2*len(c.holdings) + 2*len(c.inputs)
	out := make([]byte, snapshotHeaderLen, n)
	binary.BigEndian.PutUint32(out[0:], uint32(len(c.coils)))
	binary.BigEndian.PutUint32(out[4:], uint32(len(c.discretes)))
	binary.BigEndian.PutUint32(out[8:], uint32(len(c.holdings)))
	binary.BigEndian.PutUint32(out[12:], uint32(len(c.inputs)))
	out = appendPackedBools(out, c.coils)
	out = appendPackedBools(out, c.discretes)
	out = appendWords(out, c.holdings)
	out = appendWords(out, c.inputs)
	return out
}

// Restore replaces the contents of all four banks with the state recorded
// in snap, which must come from a context of identical bank sizes.
// Validation completes before the first bank is touched, so a failed
// Restore leaves the context exactly as it was. The caller must hold the
// context lock.
func (c *Context) Restore(snap []byte) error {
	if len(snap) < snapshotHeaderLen {
		return ErrSnapshotFormat
	}
	counts := [4]int{
		int(binary.BigEndian.Uint32(snap[0:])),
		int(binary.BigEndian.Uint32(snap[4:])),
		int(binary.BigEndian.Uint32(snap[8:])),
		int(binary.BigEndian.Uint32(snap[12:])),
	}
	if counts[0] != len(c.coils) || counts[1] != len(c.discretes) ||
		counts[2] != len(c.holdings) || counts[3] != len(c.inputs) {
		return ErrSnapshotFormat
	}
	want := snapshotHeaderLen +
		packedLen(counts[0]) + packedLen(counts[1]) +
		2*counts[2] + 2*counts[3]
	if len(snap) != want {
		return ErrSnapshotFormat
	}
	body := snap[snapshotHeaderLen:]
	unpackBools(c.coils, body)
	body = body[packedLen(counts[0]):]
	unpackBools(c.discretes, body)
	body = body[packedLen(counts[1]):]
	unpackWords(c.holdings, body)
	body = body[2*counts[2]:]
	unpackWords(c.inputs, body)
	return nil
}

func packedLen(cells int) int { return (cells + 7) / 8 }

func appendPackedBools(dst []byte, src []bool) []byte {
	start := len(dst)
	dst = append(dst, make([]byte, packedLen(len(src)))...)
	for i, set := range src {
		if set {
			dst[start+i/8] |= 1 << (i % 8)
		}
	}
	return dst
}

func appendWords(dst []byte, src []uint16) []byte {
	for _, w := range src {
		dst = append(dst, byte(w>>8), byte(w))
	}
	return dst
}

func unpackBools(dst []bool, src []byte) {
	for i := range dst {
		dst[i] = src[i/8]&(1<<(i%8)) != 0
	}
}

func unpackWords(dst []uint16, src []byte) {
	for i := range dst {
		dst[i] = binary.BigEndian.Uint16(src[2*i:])
	}
}
