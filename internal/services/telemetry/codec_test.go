package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffic-worker-go/internal/models"
)

func TestEncodeChecksumVector(t *testing.T) {
	pkt, err := EncodeChecksum(models.CountRecord{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00, 0xAE}, pkt)
}

func TestChecksumRoundTrip(t *testing.T) {
	rec := models.CountRecord{0, 65535, 300, 7}
	pkt, err := EncodeChecksum(rec)
	require.NoError(t, err)

	got, err := DecodeChecksum(pkt)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeChecksumRejectsEverySingleBitFlip(t *testing.T) {
	pkt, err := EncodeChecksum(models.CountRecord{12, 0, 5, 255})
	require.NoError(t, err)

	for i := range pkt {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), pkt...)
			corrupt[i] ^= 1 << bit
			_, err := DecodeChecksum(corrupt)
			assert.Error(t, err, "byte %d bit %d", i, bit)
		}
	}
}

func TestDecodeChecksumErrors(t *testing.T) {
	pkt, _ := EncodeChecksum(models.CountRecord{1, 1, 1, 1})

	_, err := DecodeChecksum(pkt[:5])
	assert.ErrorIs(t, err, ErrFrame)

	bad := append([]byte(nil), pkt...)
	bad[3] ^= 0xFF
	_, err = DecodeChecksum(bad)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestEncodeRejectsOverflow(t *testing.T) {
	rec := models.CountRecord{0, 0, 65536, 0}

	_, err := EncodeChecksum(rec)
	assert.ErrorIs(t, err, ErrEncode)

	_, err = EncodeTransfer(rec)
	assert.ErrorIs(t, err, ErrEncode)
}

func TestEncodeText(t *testing.T) {
	out, err := EncodeText(models.CountRecord{})
	require.NoError(t, err)
	assert.Equal(t, "0,0,0,0\n", string(out))

	out, err = EncodeText(models.CountRecord{3, 0, 12, 1})
	require.NoError(t, err)
	assert.Equal(t, "3,0,12,1\n", string(out))
}

func TestDecodeText(t *testing.T) {
	rec, err := DecodeText([]byte("3,0,12,1\n"))
	require.NoError(t, err)
	assert.Equal(t, models.CountRecord{3, 0, 12, 1}, rec)

	for _, bad := range []string{"1,2,3,4", "1,2,3\n", "1,x,3,4\n", "1,-2,3,4\n"} {
		_, err := DecodeText([]byte(bad))
		assert.ErrorIs(t, err, ErrFrame, bad)
	}
}

func TestCRC8Check(t *testing.T) {
	assert.Equal(t, byte(0xEA), crc8([]byte("123456789")))
	assert.Equal(t, byte(0x00), crc8(nil))
}

func TestTransferRoundTrip(t *testing.T) {
	rec := models.CountRecord{1, 2, 3, 4}
	pkt, err := EncodeTransfer(rec)
	require.NoError(t, err)

	require.Len(t, pkt, 14)
	assert.Equal(t, byte(TransferStartByte), pkt[0])
	assert.Equal(t, byte(TransferPacketID), pkt[1])
	assert.Equal(t, byte(0xFF), pkt[2], "no start byte in payload")
	assert.Equal(t, byte(8), pkt[3])
	assert.Equal(t, byte(TransferStopByte), pkt[13])

	got, err := DecodeTransfer(pkt)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestTransferStuffsStartBytes(t *testing.T) {
	rec := models.CountRecord{0x7E, 0, 0x7E7E, 0}
	pkt, err := EncodeTransfer(rec)
	require.NoError(t, err)

	assert.Equal(t, byte(0), pkt[2], "overhead points at first start byte")
	assert.Equal(t, []byte{0x04, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}, pkt[4:12])

	got, err := DecodeTransfer(pkt)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeTransferErrors(t *testing.T) {
	pkt, _ := EncodeTransfer(models.CountRecord{9, 8, 7, 6})

	bad := append([]byte(nil), pkt...)
	bad[5] ^= 0x10
	_, err := DecodeTransfer(bad)
	assert.ErrorIs(t, err, ErrChecksum)

	bad = append([]byte(nil), pkt...)
	bad[len(bad)-1] = 0x00
	_, err = DecodeTransfer(bad)
	assert.ErrorIs(t, err, ErrFrame)

	_, err = DecodeTransfer(pkt[:4])
	assert.ErrorIs(t, err, ErrFrame)
}

func TestNewEncoder(t *testing.T) {
	for _, f := range []string{FormatChecksum, FormatTransfer, FormatText} {
		enc, err := NewEncoder(f)
		require.NoError(t, err)
		assert.Equal(t, f, enc.Format())
	}

	_, err := NewEncoder("morse")
	assert.Error(t, err)
}
