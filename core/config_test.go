package core_test

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/envy"

	"github.com/devblok/tilesweep/core"
)

func TestDefaultConfigurationIsValid(t *testing.T) {
	c := qt.New(t)
	cfg := core.DefaultConfiguration()
	c.Assert(cfg.Validate(), qt.IsNil)
	c.Assert(cfg.Renderer.FramesInFlight, qt.Equals, 2)
	c.Assert(cfg.Renderer.InstanceCapacity, qt.Equals, 2048)
	c.Assert(cfg.Renderer.DeviceExtensions, qt.DeepEquals, []string{"VK_KHR_swapchain"})
}

func TestLoadConfigurationFromFile(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "tilesweep.toml")
	err := ioutil.WriteFile(path, []byte(`
[renderer]
width = 1024
height = 768
wireframe = true

[game]
columns = 8
rows = 8
mines = 10
seed = 42

[log]
level = "debug"
`), 0644)
	c.Assert(err, qt.IsNil)

	var cfg core.Configuration
	envy.Temp(func() {
		cfg, err = core.LoadConfiguration(path)
	})
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(1024))
	c.Assert(cfg.Renderer.ScreenHeight, qt.Equals, uint32(768))
	c.Assert(cfg.Renderer.Wireframe, qt.IsTrue)
	c.Assert(cfg.Game, qt.DeepEquals, core.GameConfiguration{Columns: 8, Rows: 8, Mines: 10, Seed: 42})
	c.Assert(cfg.Log.Level, qt.Equals, "debug")

	// untouched sections keep their defaults
	c.Assert(cfg.Renderer.FramesInFlight, qt.Equals, 2)
	c.Assert(cfg.Time.UpdatesPerSecond, qt.Equals, 60)
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	c := qt.New(t)
	_, err := core.LoadConfiguration(filepath.Join(c.TempDir(), "nope.toml"))
	c.Assert(err, qt.ErrorMatches, "core.LoadConfiguration.*")
}

func TestEnvironmentOverrides(t *testing.T) {
	c := qt.New(t)
	envy.Temp(func() {
		envy.Set("TILESWEEP_WIDTH", "640")
		envy.Set("TILESWEEP_DEBUG", "true")
		envy.Set("TILESWEEP_LAYERS", "VK_LAYER_KHRONOS_validation, ")
		envy.Set("TILESWEEP_SEED", "7")

		cfg, err := core.LoadConfiguration("")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Renderer.ScreenWidth, qt.Equals, uint32(640))
		c.Assert(cfg.Instance.DebugMode, qt.IsTrue)
		c.Assert(cfg.Instance.Layers, qt.DeepEquals, []string{"VK_LAYER_KHRONOS_validation"})
		c.Assert(cfg.Game.Seed, qt.Equals, int64(7))
	})
}

func TestEnvironmentOverrideRejectsGarbage(t *testing.T) {
	c := qt.New(t)
	envy.Temp(func() {
		envy.Set("TILESWEEP_HEIGHT", "tall")
		_, err := core.LoadConfiguration("")
		c.Assert(err, qt.ErrorMatches, "environment TILESWEEP_HEIGHT.*")
	})
}

func TestLoadEnvFile(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), ".env")
	c.Assert(ioutil.WriteFile(path, []byte("TILESWEEP_MINES=3\nTILESWEEP_LOG_LEVEL=warn\n"), 0644), qt.IsNil)

	envy.Temp(func() {
		c.Assert(core.LoadEnvFile(path), qt.IsNil)
		cfg, err := core.LoadConfiguration("")
		c.Assert(err, qt.IsNil)
		c.Assert(cfg.Game.Mines, qt.Equals, 3)
		c.Assert(cfg.Log.Level, qt.Equals, "warn")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*core.Configuration)
		err    string
	}{{
		name:   "zero width",
		modify: func(cfg *core.Configuration) { cfg.Renderer.ScreenWidth = 0 },
		err:    "renderer: screen size must be nonzero",
	}, {
		name:   "no frames in flight",
		modify: func(cfg *core.Configuration) { cfg.Renderer.FramesInFlight = 0 },
		err:    "renderer: at least one frame in flight is required",
	}, {
		name:   "board full of mines",
		modify: func(cfg *core.Configuration) { cfg.Game.Mines = cfg.Game.Columns * cfg.Game.Rows },
		err:    "game: mine count must leave at least one free tile",
	}, {
		name: "board too large",
		modify: func(cfg *core.Configuration) {
			cfg.Game.Columns = 64
			cfg.Game.Rows = 64
		},
		err: "game: board does not fit into the instance capacity",
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := core.DefaultConfiguration()
			test.modify(&cfg)
			qt.Assert(t, cfg.Validate(), qt.ErrorMatches, test.err)
		})
	}
}
