package main

import (
	"encoding/json"
	"flag"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/tilesweep/core"
	"github.com/devblok/tilesweep/device"
	"github.com/devblok/tilesweep/gfx/vkr"
)

func init() {
	runtime.LockOSThread()
}

var (
	debug  = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	indent = flag.Bool("pretty", false, "Indent the JSON output")
)

type deviceReport struct {
	Index    int    `json:"index"`
	TypeName string `json:"typeName"`
	Score    uint64 `json:"score"`
	Selected bool   `json:"selected"`
	device.Candidate
}

func main() {
	flag.Parse()

	reports, err := probe()
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(reports); err != nil {
		log.Fatal(err)
	}
}

// probe opens a hidden window so that presentation support is part of
// the report, the same way the game sees the devices.
func probe() ([]deviceReport, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, err
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return nil, err
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := sdl.CreateWindow("tilesweepcli",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		64, 64,
		sdl.WINDOW_VULKAN|sdl.WINDOW_HIDDEN)
	if err != nil {
		return nil, err
	}
	defer window.Destroy()

	cfg := core.DefaultConfiguration()
	cfg.Instance.DebugMode = *debug
	cfg.Log.File = ""
	logger, _, err := core.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	instance, err := vkr.NewInstance(cfg.Instance, sdl.VulkanGetVkGetInstanceProcAddr(), window.VulkanGetInstanceExtensions(), log.NewEntry(logger))
	if err != nil {
		return nil, err
	}
	defer instance.Release()

	surface, err := window.VulkanCreateSurface(instance.Handle())
	if err != nil {
		return nil, err
	}
	instance.SetSurface(surface)

	_, candidates, err := vkr.Probe(instance)
	if err != nil {
		return nil, err
	}

	req := device.Requirements{Extensions: cfg.Renderer.DeviceExtensions}
	selected := -1
	if sel, err := device.Select(candidates, req); err == nil {
		selected = sel.Index
	}

	reports := make([]deviceReport, len(candidates))
	for idx, c := range candidates {
		reports[idx] = deviceReport{
			Index:     idx,
			TypeName:  c.Type.String(),
			Score:     device.Score(c, req),
			Selected:  idx == selected,
			Candidate: c,
		}
	}
	return reports, nil
}
