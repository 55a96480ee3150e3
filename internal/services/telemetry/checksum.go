package telemetry

import (
	"encoding/binary"
	"fmt"

	"traffic-worker-go/internal/models"
)

const (
	// ChecksumStartByte opens every checksummed packet
	ChecksumStartByte = 0xAA
	// ChecksumPacketLen is start byte + four uint16 counts + checksum byte
	ChecksumPacketLen = 1 + 2*models.NumLanes + 1
)

// EncodeChecksum packs counts as AA, N S E W little-endian uint16, then the
// XOR of every preceding byte.
func EncodeChecksum(rec models.CountRecord) ([]byte, error) {
	counts, err := uint16Counts(rec)
	if err != nil {
		return nil, err
	}

	pkt := make([]byte, ChecksumPacketLen)
	pkt[0] = ChecksumStartByte
	for i, c := range counts {
		binary.LittleEndian.PutUint16(pkt[1+2*i:], c)
	}
	pkt[ChecksumPacketLen-1] = xorBytes(pkt[:ChecksumPacketLen-1])
	return pkt, nil
}

// DecodeChecksum validates a packet before returning its counts
func DecodeChecksum(pkt []byte) (models.CountRecord, error) {
	var rec models.CountRecord
	if len(pkt) != ChecksumPacketLen {
		return rec, fmt.Errorf("%w: packet length %d, want %d", ErrFrame, len(pkt), ChecksumPacketLen)
	}
	if pkt[0] != ChecksumStartByte {
		return rec, fmt.Errorf("%w: start byte 0x%02X", ErrFrame, pkt[0])
	}
	if got, want := pkt[ChecksumPacketLen-1], xorBytes(pkt[:ChecksumPacketLen-1]); got != want {
		return rec, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, got, want)
	}
	for _, l := range models.Lanes {
		rec[l] = int(binary.LittleEndian.Uint16(pkt[1+2*int(l):]))
	}
	return rec, nil
}

func xorBytes(b []byte) byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return x
}
