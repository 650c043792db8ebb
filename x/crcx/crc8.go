package crcx

// CRC8 is an MSB-first CRC-8 with no reflection and no final xor.
// Sensirion and ASAIR parts use poly 0x31 with init 0xFF; the Bosch NVM
// checksum is poly 0x1D with init 0xFF, inverted by the caller.
func CRC8(b []byte, poly, init byte) byte {
	crc := init
	for _, v := range b {
		crc ^= v
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
