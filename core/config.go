package core

import (
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TILESWEEP_"

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration     `toml:"time"`
	Instance InstanceConfiguration `toml:"instance"`
	Renderer RendererConfiguration `toml:"renderer"`
	Game     GameConfiguration     `toml:"game"`
	Log      LogConfiguration      `toml:"log"`
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int `toml:"fps"`

	// UpdatesPerSecond is the fixed rate of game updates.
	UpdatesPerSecond int `toml:"ups"`

	// MaxUpdatesPerFrame bounds how many fixed updates
	// may run to catch up after a slow frame.
	MaxUpdatesPerFrame int `toml:"max_updates"`
}

// InstanceConfiguration configures the Vulkan instance.
type InstanceConfiguration struct {
	ApplicationName string   `toml:"application"`
	DebugMode       bool     `toml:"debug"`
	Extensions      []string `toml:"extensions"`
	Layers          []string `toml:"layers"`
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	ScreenWidth  uint32 `toml:"width"`
	ScreenHeight uint32 `toml:"height"`

	// FramesInFlight is the number of frame slots recorded ahead.
	FramesInFlight int `toml:"frames_in_flight"`

	// InstanceCapacity is the maximum quad count drawn in one frame,
	// it sizes both the quad pool and the per-frame instance buffers.
	InstanceCapacity int `toml:"instance_capacity"`

	DeviceExtensions []string `toml:"device_extensions"`

	// Assets is either a directory or a kar archive.
	Assets         string `toml:"assets"`
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
	Atlas          string `toml:"atlas"`
	AtlasColumns   int    `toml:"atlas_columns"`
	AtlasRows      int    `toml:"atlas_rows"`

	// Wireframe starts the renderer in wireframe mode if supported.
	Wireframe bool `toml:"wireframe"`
}

// GameConfiguration sets up the board.
type GameConfiguration struct {
	Columns int   `toml:"columns"`
	Rows    int   `toml:"rows"`
	Mines   int   `toml:"mines"`
	Seed    int64 `toml:"seed"`
}

// LogConfiguration sets up logrus.
type LogConfiguration struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
	JSON  bool   `toml:"json"`
}

// DefaultConfiguration returns the built in settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond:    0,
			UpdatesPerSecond:   60,
			MaxUpdatesPerFrame: 4,
		},
		Instance: InstanceConfiguration{
			ApplicationName: "Tilesweep",
		},
		Renderer: RendererConfiguration{
			ScreenWidth:      800,
			ScreenHeight:     600,
			FramesInFlight:   2,
			InstanceCapacity: 2048,
			DeviceExtensions: []string{"VK_KHR_swapchain"},
			Assets:           "assets",
			VertexShader:     "shaders/vertex.spv",
			FragmentShader:   "shaders/fragment.spv",
			Atlas:            "textures/atlas.png",
			AtlasColumns:     4,
			AtlasRows:        4,
		},
		Game: GameConfiguration{
			Columns: 16,
			Rows:    16,
			Mines:   40,
		},
		Log: LogConfiguration{
			Level: "info",
			File:  "log.txt",
		},
	}
}

// LoadConfiguration reads the defaults, then overlays the TOML file
// at path (if any) and finally the TILESWEEP_* environment.
func LoadConfiguration(path string) (Configuration, error) {
	cfg := DefaultConfiguration()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "core.LoadConfiguration()")
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "core.LoadConfiguration(%s)", path)
		}
	}
	if err := applyEnvironment(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadEnvFile merges a dotenv file into the environment view
// that configuration overrides are read from.
func LoadEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return errors.Wrapf(err, "godotenv.Read(%s)", path)
	}
	for k, v := range values {
		envy.Set(k, v)
	}
	return nil
}

// Validate checks settings the engine cannot run without.
func (c Configuration) Validate() error {
	switch {
	case c.Renderer.ScreenWidth == 0 || c.Renderer.ScreenHeight == 0:
		return errors.New("renderer: screen size must be nonzero")
	case c.Renderer.FramesInFlight < 1:
		return errors.New("renderer: at least one frame in flight is required")
	case c.Renderer.InstanceCapacity < 1:
		return errors.New("renderer: instance capacity must be positive")
	case c.Renderer.AtlasColumns < 1 || c.Renderer.AtlasRows < 1:
		return errors.New("renderer: atlas grid must be at least 1x1")
	case c.Time.UpdatesPerSecond < 1:
		return errors.New("time: updates per second must be positive")
	case c.Game.Columns < 1 || c.Game.Rows < 1:
		return errors.New("game: board must be at least 1x1")
	case c.Game.Mines < 0 || c.Game.Mines >= c.Game.Columns*c.Game.Rows:
		return errors.New("game: mine count must leave at least one free tile")
	case c.Game.Columns*c.Game.Rows+1 > c.Renderer.InstanceCapacity:
		return errors.New("game: board does not fit into the instance capacity")
	}
	return nil
}

type envOverride struct {
	key   string
	apply func(*Configuration, string) error
}

var envOverrides = []envOverride{
	{"WIDTH", func(c *Configuration, v string) error { return parseUint32(v, &c.Renderer.ScreenWidth) }},
	{"HEIGHT", func(c *Configuration, v string) error { return parseUint32(v, &c.Renderer.ScreenHeight) }},
	{"FRAMES_IN_FLIGHT", func(c *Configuration, v string) error { return parseInt(v, &c.Renderer.FramesInFlight) }},
	{"ASSETS", func(c *Configuration, v string) error { c.Renderer.Assets = v; return nil }},
	{"WIREFRAME", func(c *Configuration, v string) error { return parseBool(v, &c.Renderer.Wireframe) }},
	{"DEBUG", func(c *Configuration, v string) error { return parseBool(v, &c.Instance.DebugMode) }},
	{"LAYERS", func(c *Configuration, v string) error { c.Instance.Layers = splitList(v); return nil }},
	{"FPS", func(c *Configuration, v string) error { return parseInt(v, &c.Time.FramesPerSecond) }},
	{"SEED", func(c *Configuration, v string) error {
		seed, err := strconv.ParseInt(v, 10, 64)
		c.Game.Seed = seed
		return err
	}},
	{"MINES", func(c *Configuration, v string) error { return parseInt(v, &c.Game.Mines) }},
	{"LOG_LEVEL", func(c *Configuration, v string) error { c.Log.Level = v; return nil }},
	{"LOG_FILE", func(c *Configuration, v string) error { c.Log.File = v; return nil }},
	{"LOG_JSON", func(c *Configuration, v string) error { return parseBool(v, &c.Log.JSON) }},
}

func applyEnvironment(cfg *Configuration) error {
	for _, o := range envOverrides {
		v := envy.Get(EnvPrefix+o.key, "")
		if v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			return errors.Wrapf(err, "environment %s%s", EnvPrefix, o.key)
		}
	}
	return nil
}

func parseUint32(v string, dst *uint32) error {
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return err
	}
	*dst = uint32(n)
	return nil
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var list []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	return list
}
