package vkr

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

type resourceKind int

const (
	instanceExtensions resourceKind = iota
	instanceLayers
	deviceExtensions
)

func (k resourceKind) String() string {
	switch k {
	case instanceExtensions:
		return "instance extension"
	case instanceLayers:
		return "instance layer"
	}
	return "device extension"
}

// requirement lists what has to be enabled for one kind of resource.
// Debug entries are only asked for in debug mode and dropped
// with a warning when the loader does not have them.
type requirement struct {
	required []string
	debug    []string
}

var requirementTable = map[resourceKind]requirement{
	instanceExtensions: {
		required: []string{"VK_KHR_surface"},
		debug:    []string{"VK_EXT_debug_report"},
	},
	instanceLayers: {
		debug: []string{"VK_LAYER_KHRONOS_validation"},
	},
	deviceExtensions: {
		required: []string{"VK_KHR_swapchain"},
	},
}

// resolve merges the table entries with extra, the names asked for by
// configuration or the window system, and checks them against what is
// available. Everything required has to be there, debug entries that
// are absent are returned as skipped.
func (r requirement) resolve(kind resourceKind, extra, available []string, debug bool) (enabled, skipped []string, err error) {
	have := make(map[string]bool, len(available))
	for _, name := range available {
		have[strings.TrimSuffix(name, "\x00")] = true
	}

	seen := make(map[string]bool)
	var missing []string
	for _, name := range append(append([]string(nil), r.required...), extra...) {
		name = strings.TrimSuffix(name, "\x00")
		if seen[name] {
			continue
		}
		seen[name] = true
		if !have[name] {
			missing = append(missing, name)
			continue
		}
		enabled = append(enabled, name)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, nil, errors.Errorf("missing %s: %s", kind, strings.Join(missing, ", "))
	}

	if debug {
		for _, name := range r.debug {
			if seen[name] {
				continue
			}
			seen[name] = true
			if have[name] {
				enabled = append(enabled, name)
			} else {
				skipped = append(skipped, name)
			}
		}
	}
	return enabled, skipped, nil
}
