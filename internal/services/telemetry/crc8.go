package telemetry

// crcPoly is the SerialTransfer polynomial (CRC-8/LTE: init 0, no reflection)
const crcPoly = 0x9B

var crcTable = func() [256]byte {
	var t [256]byte
	for i := range t {
		c := byte(i)
		for j := 0; j < 8; j++ {
			if c&0x80 != 0 {
				c = c<<1 ^ crcPoly
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}()

func crc8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc = crcTable[crc^b]
	}
	return crc
}
