package core

import (
	"bytes"
	"image"
	_ "image/jpeg" // atlas formats
	_ "image/png"
	"unsafe"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// SliceUint32 reslices bytes into a uint32, that is used
// to sumbit vulkan shaders for processing. Trailing bytes that
// do not fill a whole word are dropped.
func SliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// LoadShader reads a compiled SPIR-V blob from the assets.
func LoadShader(assets Assets, name string) ([]byte, error) {
	code, err := assets.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "core.LoadShader(%s)", name)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Errorf("core.LoadShader(%s): not a SPIR-V binary, size %d", name, len(code))
	}
	return code, nil
}

// LoadImage decodes an image asset, any of png, jpeg, bmp or tiff.
func LoadImage(assets Assets, name string) (image.Image, error) {
	data, err := assets.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "core.LoadImage(%s)", name)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "core.LoadImage(%s)", name)
	}
	if img.Bounds().Empty() {
		return nil, errors.Errorf("core.LoadImage(%s): empty %s image", name, format)
	}
	return img, nil
}

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas. The rows
// are tightly packed unless rowPitch asks for more room per row.
func GetPixels(img image.Image, rowPitch int) []uint8 {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	if rowPitch > canvas.Stride {
		canvas.Stride = rowPitch
		canvas.Pix = make([]uint8, rowPitch*bounds.Dy())
	}
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)
	return canvas.Pix
}
