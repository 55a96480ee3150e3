package telemetry

import (
	"fmt"
	"strconv"
	"strings"

	"traffic-worker-go/internal/models"
)

// EncodeText renders "N,S,E,W\n" in ASCII decimal
func EncodeText(rec models.CountRecord) ([]byte, error) {
	parts := make([]string, 0, models.NumLanes)
	for _, l := range models.Lanes {
		if rec[l] < 0 {
			return nil, fmt.Errorf("%w: negative %s count %d", ErrEncode, l, rec[l])
		}
		parts = append(parts, strconv.Itoa(rec[l]))
	}
	return []byte(strings.Join(parts, ",") + "\n"), nil
}

// DecodeText parses one newline-terminated count line
func DecodeText(line []byte) (models.CountRecord, error) {
	var rec models.CountRecord
	s := string(line)
	if !strings.HasSuffix(s, "\n") {
		return rec, fmt.Errorf("%w: missing newline", ErrFrame)
	}
	fields := strings.Split(strings.TrimSuffix(s, "\n"), ",")
	if len(fields) != models.NumLanes {
		return rec, fmt.Errorf("%w: %d fields, want %d", ErrFrame, len(fields), models.NumLanes)
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return rec, fmt.Errorf("%w: bad count %q", ErrFrame, f)
		}
		rec[models.Lanes[i]] = n
	}
	return rec, nil
}
