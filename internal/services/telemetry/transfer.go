package telemetry

import (
	"encoding/binary"
	"fmt"

	"traffic-worker-go/internal/models"
)

// SerialTransfer packet framing as read by the Arduino library of the same
// name: start, id, overhead, length, stuffed payload, crc8, stop.
const (
	TransferStartByte = 0x7E
	TransferStopByte  = 0x81
	TransferPacketID  = 0x00

	transferNoOverhead  = 0xFF
	transferHeaderLen   = 4
	transferTrailerLen  = 2
	transferPayloadSize = 2 * models.NumLanes
)

// EncodeTransfer frames the four counts as one SerialTransfer packet
func EncodeTransfer(rec models.CountRecord) ([]byte, error) {
	counts, err := uint16Counts(rec)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, transferPayloadSize)
	for i, c := range counts {
		binary.LittleEndian.PutUint16(payload[2*i:], c)
	}
	overhead := stuffPayload(payload)

	pkt := make([]byte, 0, transferHeaderLen+len(payload)+transferTrailerLen)
	pkt = append(pkt, TransferStartByte, TransferPacketID, overhead, byte(len(payload)))
	pkt = append(pkt, payload...)
	pkt = append(pkt, crc8(payload), TransferStopByte)
	return pkt, nil
}

// DecodeTransfer checks framing and crc, then unstuffs the payload
func DecodeTransfer(pkt []byte) (models.CountRecord, error) {
	var rec models.CountRecord
	if len(pkt) < transferHeaderLen+transferTrailerLen {
		return rec, fmt.Errorf("%w: packet too short (%d bytes)", ErrFrame, len(pkt))
	}
	if pkt[0] != TransferStartByte || pkt[len(pkt)-1] != TransferStopByte {
		return rec, fmt.Errorf("%w: bad start/stop bytes", ErrFrame)
	}
	n := int(pkt[3])
	if n != transferPayloadSize || len(pkt) != transferHeaderLen+n+transferTrailerLen {
		return rec, fmt.Errorf("%w: payload length %d", ErrFrame, n)
	}

	payload := make([]byte, n)
	copy(payload, pkt[transferHeaderLen:transferHeaderLen+n])
	if got, want := pkt[transferHeaderLen+n], crc8(payload); got != want {
		return rec, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrChecksum, got, want)
	}
	if err := unstuffPayload(payload, pkt[2]); err != nil {
		return rec, err
	}

	for _, l := range models.Lanes {
		rec[l] = int(binary.LittleEndian.Uint16(payload[2*int(l):]))
	}
	return rec, nil
}

// stuffPayload replaces every start byte in place with the distance to the
// next one (0 for the last) and returns the index of the first.
func stuffPayload(payload []byte) byte {
	overhead := byte(transferNoOverhead)
	for i, b := range payload {
		if b == TransferStartByte {
			overhead = byte(i)
			break
		}
	}
	if overhead == transferNoOverhead {
		return overhead
	}

	next := -1
	for i := len(payload) - 1; i >= 0; i-- {
		if payload[i] != TransferStartByte {
			continue
		}
		if next < 0 {
			payload[i] = 0
		} else {
			payload[i] = byte(next - i)
		}
		next = i
	}
	return overhead
}

func unstuffPayload(payload []byte, overhead byte) error {
	if overhead == transferNoOverhead {
		return nil
	}
	i := int(overhead)
	for {
		if i >= len(payload) {
			return fmt.Errorf("%w: stuffing chain leaves payload at index %d", ErrFrame, i)
		}
		delta := int(payload[i])
		payload[i] = TransferStartByte
		if delta == 0 {
			return nil
		}
		i += delta
	}
}
