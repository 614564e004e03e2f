// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/tilesweep/core"
	"github.com/devblok/tilesweep/game"
	"github.com/devblok/tilesweep/gfx"
	"github.com/devblok/tilesweep/gfx/frame"
	"github.com/devblok/tilesweep/gfx/vkr"
	"github.com/devblok/tilesweep/model"
)

func init() {
	runtime.LockOSThread()
}

var (
	configFile = flag.String("config", "", "TOML configuration file")
	envFile    = flag.String("env", "", "dotenv file merged into the environment before configuring")
	debug      = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	seed       = flag.Int64("seed", 0, "Board seed, 0 picks one from the clock")
)

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
)

var bindings = game.Bindings{
	game.Key(sdl.K_ESCAPE): game.ActionQuit,
	game.Key(sdl.K_F2):     game.ActionToggleFPS,
	game.Key(sdl.K_F3):     game.ActionToggleWireframe,
	game.Key(sdl.K_r):      game.ActionRestart,
}

func main() {
	flag.Usage = func() { usage(flag.CommandLine.Output()) }
	flag.Parse()
	os.Exit(realMain())
}

// usage prints the flags together with the asset build step.
func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s [flags]\n\n", filepath.Base(os.Args[0]))
	fmt.Fprint(w, "The default asset directory needs compiled shaders, build them once with\n\n")
	fmt.Fprint(w, "\tgo generate ./core\n\n")
	fmt.Fprint(w, "which runs glslc on assets/shaders/quad.vert and quad.frag.\n\n")
	fmt.Fprint(w, "Flags:\n")
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
}

// realMain returns the process exit code once every deferred cleanup,
// profiles and the log file included, has run.
func realMain() int {
	if *envFile != "" {
		if err := core.LoadEnvFile(*envFile); err != nil {
			log.Error(err)
			return 2
		}
	}
	cfg, err := core.LoadConfiguration(*configFile)
	if err != nil {
		log.Error(err)
		return 2
	}
	if *debug {
		cfg.Instance.DebugMode = true
	}
	if *seed != 0 {
		cfg.Game.Seed = *seed
	} else if cfg.Game.Seed == 0 {
		cfg.Game.Seed = time.Now().UnixNano()
	}

	logger, logFile, err := core.NewLogger(cfg.Log)
	if err != nil {
		log.Error(err)
		return 2
	}
	defer logFile.Close()
	entry := log.NewEntry(logger)

	stop, err := startProfiling(*cpuProfile, *traceProfile)
	if err != nil {
		logger.Error(err)
		return 1
	}
	defer stop()

	if err := run(cfg, entry); err != nil {
		logger.WithError(err).Error("tilesweep exited with an error")
		return 1
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			logger.Error(err)
			return 1
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			logger.Error(err)
			return 1
		}
	}
	return 0
}

// startProfiling starts the CPU profile and the execution trace for
// the non-empty paths. stop flushes and closes both.
func startProfiling(cpuPath, tracePath string) (_ func(), err error) {
	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}
	defer func() {
		if err != nil {
			stopAll()
		}
	}()

	if cpuPath != "" {
		f, err := os.Create(cpuPath)
		if err != nil {
			return nil, err
		}
		stops = append(stops, func() { f.Close() })
		if err := pprof.StartCPUProfile(f); err != nil {
			return nil, err
		}
		stops = append(stops, pprof.StopCPUProfile)
	}

	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			return nil, err
		}
		stops = append(stops, func() { f.Close() })
		if err := trace.Start(f); err != nil {
			return nil, err
		}
		stops = append(stops, trace.Stop)
	}
	return stopAll, nil
}

func run(cfg core.Configuration, logger *log.Entry) error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return err
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return err
	}
	defer sdl.VulkanUnloadLibrary()

	pool := gfx.NewPool[model.QuadInstance](cfg.Renderer.InstanceCapacity)
	atlas := gfx.Atlas{Columns: cfg.Renderer.AtlasColumns, Rows: cfg.Renderer.AtlasRows}
	g, err := game.New(cfg.Game, pool, atlas, bindings, logger)
	if err != nil {
		return err
	}
	defer g.Release()

	win, err := newWindow(cfg.Instance.ApplicationName, cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight, g.Events)
	if err != nil {
		return err
	}
	defer win.Destroy()

	instance, err := vkr.NewInstance(cfg.Instance, sdl.VulkanGetVkGetInstanceProcAddr(), win.VulkanGetInstanceExtensions(), logger)
	if err != nil {
		return err
	}
	defer instance.Release()

	surface, err := win.VulkanCreateSurface(instance.Handle())
	if err != nil {
		return err
	}
	instance.SetSurface(surface)

	assets, err := core.OpenAssets(cfg.Renderer.Assets)
	if err != nil {
		return err
	}
	defer assets.Close()

	renderer, err := vkr.NewRenderer(instance, cfg.Renderer, assets, logger)
	if err != nil {
		return err
	}
	defer renderer.Release()

	driver, err := frame.NewDriver(renderer, win, pool, cfg.Renderer.FramesInFlight, logger)
	if err != nil {
		return err
	}
	defer driver.Close()
	if cfg.Renderer.Wireframe {
		logger.WithField("variant", driver.ToggleWireframe()).Info("pipeline variant")
	}

	extent := driver.Swapchain().Extent()
	g.SetViewport(extent.Width, extent.Height)

	clock := core.NewTime(cfg.Time)
	defer clock.Stop()

	logger.WithFields(log.Fields{
		"columns": cfg.Game.Columns,
		"rows":    cfg.Game.Rows,
		"mines":   cfg.Game.Mines,
		"seed":    cfg.Game.Seed,
	}).Info("tilesweep started")

	var showFPS bool
	for !win.ShouldClose() {
		win.PollEvents()
		if g.Events.Resized() {
			driver.SetResized()
			w, h := win.DrawableSize()
			g.SetViewport(uint32(w), uint32(h))
		}

		for n := clock.Step(time.Now()); n > 0; n-- {
			for _, action := range g.Update(clock.StepDuration()) {
				switch action {
				case game.ActionQuit:
					win.Close()
				case game.ActionToggleFPS:
					showFPS = !showFPS
				case game.ActionToggleWireframe:
					logger.WithField("variant", driver.ToggleWireframe()).Info("pipeline variant")
				}
			}
		}

		if err := driver.Tick(); err != nil {
			return err
		}
		if rate, ok := clock.Frame(time.Now()); ok && showFPS {
			stats := driver.Stats()
			logger.WithFields(log.Fields{
				"fps":      rate,
				"quads":    pool.Len(),
				"rebuilds": stats.Rebuilds,
				"skipped":  stats.Skipped,
			}).Info("frame rate")
		}
		clock.Wait()
	}

	logger.WithField("frames", driver.Stats().Presented).Info("tilesweep closing")
	return nil
}
