// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"image"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/tilesweep/core"
)

var testImage image.Image

func init() {
	img, err := core.LoadImage(core.NewBoxAssets(testAssets), "textures/atlas.png")
	if err != nil {
		panic(err)
	}
	testImage = img
}

func TestSliceUint32(t *testing.T) {
	c := qt.New(t)
	words := core.SliceUint32([]byte{0x03, 0x02, 0x23, 0x07, 0xff, 0x00, 0x00, 0x00, 0xaa})
	c.Assert(words, qt.HasLen, 2)
	c.Assert(words[1], qt.Equals, uint32(0xff))
	c.Assert(core.SliceUint32([]byte{1, 2}), qt.IsNil)
}

func TestLoadShader(t *testing.T) {
	c := qt.New(t)
	assets := core.NewBoxAssets(testAssets)

	code, err := core.LoadShader(assets, "shaders/vertex.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(code, qt.HasLen, 12)

	_, err = core.LoadShader(assets, "shaders/broken.spv")
	c.Assert(err, qt.ErrorMatches, `core.LoadShader\(shaders/broken.spv\): not a SPIR-V binary, size 5`)

	_, err = core.LoadShader(assets, "shaders/fragment.spv")
	c.Assert(err, qt.ErrorMatches, `core.LoadShader\(shaders/fragment.spv\): .*`)
}

func TestGetPixels(t *testing.T) {
	c := qt.New(t)
	pixels := core.GetPixels(testImage, 0)
	c.Assert(pixels, qt.HasLen, 4*2*4)
	c.Assert(pixels[0:4], qt.DeepEquals, []uint8{255, 0, 0, 255})
	// draw.Src keeps the alpha channel of the right half
	c.Assert(pixels[12:16], qt.DeepEquals, []uint8{0, 0, 128, 128})
}

func TestGetPixelsRowPitch(t *testing.T) {
	c := qt.New(t)
	pixels := core.GetPixels(testImage, 32)
	c.Assert(pixels, qt.HasLen, 32*2)
	c.Assert(pixels[32:36], qt.DeepEquals, []uint8{255, 0, 0, 255})
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkGetPixelsNoRowPitch(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(testImage, 0)
	}
}

func BenchmarkGetPixelsBigRowPitch(b *testing.B) {
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(testImage, 1000)
	}
}
