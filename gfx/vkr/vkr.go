// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkr implements the Vulkan side of the renderer: instance
// and device setup, swapchain bundles, the instanced quad pipeline and
// the per-frame slot resources driven by gfx/frame.
package vkr

import (
	"strings"

	vk "github.com/vulkan-go/vulkan"
)

// safeStrings terminates every name with a NUL, as the
// driver reads them as C strings.
func safeStrings(names []string) []string {
	safe := make([]string, 0, len(names))
	for _, n := range names {
		if !strings.HasSuffix(n, "\x00") {
			n += "\x00"
		}
		safe = append(safe, n)
	}
	return safe
}

func destroyImageViews(dev vk.Device, views []vk.ImageView) {
	for _, v := range views {
		vk.DestroyImageView(dev, v, nil)
	}
}
