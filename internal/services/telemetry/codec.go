package telemetry

import (
	"fmt"
	"math"

	"traffic-worker-go/internal/models"
)

const (
	FormatChecksum = "checksum"
	FormatTransfer = "transfer"
	FormatText     = "text"
)

// Encoder serialises one CountRecord into one wire message
type Encoder interface {
	Format() string
	Encode(rec models.CountRecord) ([]byte, error)
}

// NewEncoder returns the encoder for a wire format name
func NewEncoder(format string) (Encoder, error) {
	switch format {
	case FormatChecksum:
		return checksumEncoder{}, nil
	case FormatTransfer:
		return transferEncoder{}, nil
	case FormatText:
		return textEncoder{}, nil
	}
	return nil, fmt.Errorf("unknown wire format %q", format)
}

type checksumEncoder struct{}

func (checksumEncoder) Format() string { return FormatChecksum }

func (checksumEncoder) Encode(rec models.CountRecord) ([]byte, error) { return EncodeChecksum(rec) }

type transferEncoder struct{}

func (transferEncoder) Format() string { return FormatTransfer }

func (transferEncoder) Encode(rec models.CountRecord) ([]byte, error) { return EncodeTransfer(rec) }

type textEncoder struct{}

func (textEncoder) Format() string { return FormatText }

func (textEncoder) Encode(rec models.CountRecord) ([]byte, error) { return EncodeText(rec) }

// uint16Counts narrows a record for the 16-bit binary layouts
func uint16Counts(rec models.CountRecord) ([models.NumLanes]uint16, error) {
	var out [models.NumLanes]uint16
	for _, l := range models.Lanes {
		c := rec[l]
		if c < 0 || c > math.MaxUint16 {
			return out, fmt.Errorf("%w: %s count %d does not fit in 16 bits", ErrEncode, l, c)
		}
		out[l] = uint16(c)
	}
	return out, nil
}
