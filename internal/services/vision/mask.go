package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"traffic-worker-go/internal/services/lanes"
)

// LoadMask reads the colour-coded lane mask as an RGBA image
func LoadMask(path string) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: cannot read %s", lanes.ErrMaskUnavailable, path)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert %s: %v", lanes.ErrMaskUnavailable, path, err)
	}
	return img, nil
}
