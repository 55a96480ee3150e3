package helpers

// IsJPEGData checks for the JPEG SOI marker
func IsJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return data[0] == 0xFF && data[1] == 0xD8
}
