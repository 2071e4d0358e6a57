package modbuscore

// CRC16 computes the Modbus RTU cyclic redundancy check over b:
// polynomial 0xA001 (reflected 0x8005), initial value 0xFFFF, processed
// least significant bit first. The value is transmitted little-endian as
// the two trailing bytes of an RTU frame.
func CRC16(b []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, v := range b {
		crc ^= uint16(v)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
