package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/diagnostics"
	"github.com/coreman2200/arcpixel/internal/layout"
	"github.com/coreman2200/arcpixel/internal/led"
	"github.com/coreman2200/arcpixel/internal/pattern"
)

// Vec is an [x, y, z] triple. Empty means the shape default.
type Vec []float64

type Dim struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// ShapeConfig is one physical segment of the installation, in wire order.
// Which fields apply depends on Type.
type ShapeConfig struct {
	Type string `yaml:"type"` // points | line | strip | grid | square | arc | ring | volume

	Points []Vec `yaml:"points,omitempty"`

	Start  Vec `yaml:"start,omitempty"`
	End    Vec `yaml:"end,omitempty"`
	Pixels int `yaml:"pixels,omitempty"`

	Horizontal Vec  `yaml:"horizontal,omitempty"`
	Vertical   Vec  `yaml:"vertical,omitempty"`
	Cols       int  `yaml:"cols,omitempty"`
	Rows       int  `yaml:"rows,omitempty"`
	Serpentine bool `yaml:"serpentine,omitempty"`

	Center  Vec     `yaml:"center,omitempty"`
	Radius  float64 `yaml:"radius,omitempty"`
	FromDeg float64 `yaml:"from_deg,omitempty"`
	ToDeg   float64 `yaml:"to_deg,omitempty"`
	U       Vec     `yaml:"u,omitempty"`
	V       Vec     `yaml:"v,omitempty"`

	Dim             Dim  `yaml:"dim,omitempty"`
	XFlipEveryRow   bool `yaml:"x_flip_every_row,omitempty"`
	YFlipEveryPanel bool `yaml:"y_flip_every_panel,omitempty"`
	Min             Vec  `yaml:"min,omitempty"`
	Max             Vec  `yaml:"max,omitempty"`
}

type SPI struct {
	Dev        string `yaml:"dev"`      // periph port name, "" for the first one
	SpeedHz    int    `yaml:"speed_hz"` // 0 picks 4MHz clocked, 2.4MHz clockless
	ChunkBytes int    `yaml:"chunk_bytes,omitempty"`
}

type BitBang struct {
	Data         string `yaml:"data"`
	Clock        string `yaml:"clock"`
	HalfPeriodNs int    `yaml:"half_period_ns"`
}

type Serial struct {
	Path string          `yaml:"path"`
	Port led.PortOptions `yaml:",inline"`
}

type Preview struct {
	Addr string `yaml:"addr"`
}

type CorrectionCfg struct {
	Preset       string    `yaml:"preset,omitempty"` // identity | smd5050 | strip | pixel
	Scale        []float64 `yaml:"scale,omitempty"`
	Gamma        float64   `yaml:"gamma,omitempty"`
	TemperatureK float64   `yaml:"temperature_k,omitempty"`
}

type PatternCfg struct {
	Name   string `yaml:"name"`
	Preset string `yaml:"preset,omitempty"`
}

type Config struct {
	Driver     string  `yaml:"driver"` // auto | spi | nrz | bitbang | serial | gpio | console | preview
	Chip       string  `yaml:"chip"`
	ColorOrder string  `yaml:"color_order,omitempty"`
	PixelCount int     `yaml:"pixel_count"`
	Brightness float64 `yaml:"brightness"`
	FPS        int     `yaml:"fps"`
	Async      bool    `yaml:"async,omitempty"`
	LogLevel   string  `yaml:"log_level"`

	Shapes     []ShapeConfig `yaml:"shapes"`
	Pattern    PatternCfg    `yaml:"pattern"`
	Correction CorrectionCfg `yaml:"correction"`

	SPI     SPI     `yaml:"spi,omitempty"`
	BitBang BitBang `yaml:"bitbang,omitempty"`
	Serial  Serial  `yaml:"serial,omitempty"`
	GPIO    string  `yaml:"gpio,omitempty"` // pin for the delay pulser
	Preview Preview `yaml:"preview,omitempty"`
}

var Drivers = []string{"auto", "spi", "nrz", "bitbang", "serial", "gpio", "console", "preview"}

// Defaults is a 16x16 serpentine APA102 panel on the first SPI port.
func Defaults() *Config {
	return &Config{
		Driver:     "auto",
		Chip:       led.APA102.Name,
		PixelCount: 256,
		Brightness: 0.5,
		FPS:        30,
		LogLevel:   "info",
		Shapes: []ShapeConfig{
			{Type: "square", Cols: 16, Rows: 16, Serpentine: true},
		},
		Pattern:    PatternCfg{Name: "rainbow", Preset: "default"},
		Correction: CorrectionCfg{Preset: "strip", Gamma: 2.2},
		BitBang:    BitBang{HalfPeriodNs: 500},
		Preview:    Preview{Addr: ":8080"},
	}
}

// Load reads path over Defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Defaults()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, diagnostics.Configf("config.Load", "%s: %v", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate checks everything the builders need, so a config that passes
// can be turned into a running pipeline.
func (c *Config) Validate() error {
	const op = "config.Validate"
	if !contains(Drivers, c.Driver) {
		return diagnostics.Configf(op, "unknown driver %q, want one of %s", c.Driver, strings.Join(Drivers, ", "))
	}
	chip, err := c.LEDChip()
	if err != nil {
		return err
	}
	if c.PixelCount <= 0 {
		return diagnostics.Configf(op, "pixel_count must be positive, got %d", c.PixelCount)
	}
	if math.IsNaN(c.Brightness) || c.Brightness < 0 || c.Brightness > 1 {
		return diagnostics.Configf(op, "brightness %v outside [0, 1]", c.Brightness)
	}
	if c.FPS <= 0 || c.FPS > 1000 {
		return diagnostics.Configf(op, "fps %d outside 1..1000", c.FPS)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return diagnostics.Configf(op, "log_level: %v", err)
	}
	if _, err := c.BuildLayout(); err != nil {
		return err
	}
	if _, err := c.BuildPattern(pattern.Default()); err != nil {
		return err
	}
	if _, err := c.BuildCorrection(); err != nil {
		return err
	}
	switch c.Driver {
	case "serial", "bitbang":
		if chip.Family != led.Clocked {
			return diagnostics.Configf(op, "%s driver sends bytes, chip %s is %v", c.Driver, chip.Name, chip.Family)
		}
	case "gpio":
		if chip.Family != led.Clockless {
			return diagnostics.Configf(op, "gpio driver sends pulses, chip %s is %v", chip.Name, chip.Family)
		}
	}
	switch f := c.SPIFrequency(chip); {
	case c.Driver == "nrz":
		if err := led.CheckNRZ(chip, f); err != nil {
			return err
		}
	case chip.Family == led.Clockless && (c.Driver == "spi" || c.Driver == "auto"):
		if err := led.CheckSPIPulser(chip, f); err != nil {
			return err
		}
	}
	if c.Driver == "serial" {
		if c.Serial.Path == "" {
			return diagnostics.Configf(op, "serial driver needs serial.path")
		}
		if _, err := c.Serial.Port.SerialMode(); err != nil {
			return err
		}
	}
	if c.Driver == "bitbang" && (c.BitBang.Data == "" || c.BitBang.Clock == "") {
		return diagnostics.Configf(op, "bitbang driver needs data and clock pins")
	}
	if c.Driver == "gpio" && c.GPIO == "" {
		return diagnostics.Configf(op, "gpio driver needs a pin")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (c *Config) LEDChip() (led.Chip, error) {
	return led.ChipByName(c.Chip, c.ColorOrder)
}

func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

// SPIFrequency is the configured clock, or the default for the driver and
// chip: 4MHz clocked, nrzled's fixed 2.5MHz, or the slowest clock whose
// cells meet the chip timing.
func (c *Config) SPIFrequency(chip led.Chip) physic.Frequency {
	if c.SPI.SpeedHz > 0 {
		return physic.Frequency(c.SPI.SpeedHz) * physic.Hertz
	}
	switch {
	case c.Driver == "nrz":
		return led.NRZFrequency
	case chip.Family == led.Clocked:
		return 4 * physic.MegaHertz
	}
	f, err := led.PulserFrequency(chip)
	if err != nil {
		return 2400 * physic.KiloHertz
	}
	return f
}

func (c *Config) HalfPeriod() time.Duration {
	return time.Duration(c.BitBang.HalfPeriodNs) * time.Nanosecond
}

func (c *Config) BuildLayout() (*layout.Layout, error) {
	shapes := make([]layout.Shape, 0, len(c.Shapes))
	for i, sc := range c.Shapes {
		s, err := sc.Build()
		if err != nil {
			return nil, diagnostics.Configf("config.BuildLayout", "shape %d: %v", i, err)
		}
		shapes = append(shapes, s)
	}
	return layout.New(c.PixelCount, shapes...)
}

func (c *Config) BuildPattern(r *pattern.Registry) (pattern.Pattern, error) {
	return r.Get(c.Pattern.Name, c.Pattern.Preset)
}

func (c *Config) BuildCorrection() (color.Correction, error) {
	const op = "config.BuildCorrection"
	cc := c.Correction
	corr := color.Identity
	switch strings.ToLower(cc.Preset) {
	case "", "identity":
	case "smd5050":
		corr = color.TypicalSMD5050
	case "strip":
		corr = color.TypicalLEDStrip
	case "pixel":
		corr = color.TypicalPixel
	default:
		return corr, diagnostics.Configf(op, "unknown correction preset %q", cc.Preset)
	}
	if cc.TemperatureK != 0 {
		corr = color.FromTemperature(cc.TemperatureK, corr.Gamma)
	}
	if len(cc.Scale) != 0 {
		if len(cc.Scale) != 3 {
			return corr, diagnostics.Configf(op, "scale needs 3 values, got %d", len(cc.Scale))
		}
		copy(corr.Scale[:], cc.Scale)
	}
	if cc.Gamma != 0 {
		corr.Gamma = cc.Gamma
	}
	for _, s := range corr.Scale {
		if s < 0 || math.IsNaN(s) {
			return corr, diagnostics.Configf(op, "negative scale %v", corr.Scale)
		}
	}
	if corr.Gamma <= 0 || math.IsNaN(corr.Gamma) {
		return corr, diagnostics.Configf(op, "gamma must be positive, got %v", corr.Gamma)
	}
	return corr, nil
}

func (v Vec) position(def layout.Position) (layout.Position, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 2:
		return layout.Position{X: v[0], Y: v[1]}, nil
	case 3:
		return layout.Position{X: v[0], Y: v[1], Z: v[2]}, nil
	}
	return def, fmt.Errorf("vector %v needs 2 or 3 components", []float64(v))
}

// Build turns the record into a layout shape.
func (s ShapeConfig) Build() (layout.Shape, error) {
	var errs []error
	pos := func(v Vec, def layout.Position) layout.Position {
		p, err := v.position(def)
		if err != nil {
			errs = append(errs, err)
		}
		return p
	}
	var shape layout.Shape
	switch strings.ToLower(s.Type) {
	case "points":
		pts := make(layout.Points, len(s.Points))
		for i, v := range s.Points {
			pts[i] = pos(v, layout.Position{})
		}
		shape = pts
	case "strip":
		shape = layout.Strip(s.Pixels)
	case "line":
		shape = layout.Line{Start: pos(s.Start, layout.Position{}), End: pos(s.End, layout.Position{X: 1}), Pixels: s.Pixels}
	case "square":
		shape = layout.Square(s.Cols, s.Rows, s.Serpentine)
	case "grid":
		shape = layout.Grid{
			Start:      pos(s.Start, layout.Position{}),
			Horizontal: pos(s.Horizontal, layout.Position{X: 1}),
			Vertical:   pos(s.Vertical, layout.Position{Y: 1}),
			Cols:       s.Cols,
			Rows:       s.Rows,
			Serpentine: s.Serpentine,
		}
	case "ring":
		shape = layout.Ring(pos(s.Center, layout.Position{}), s.Radius, s.Pixels)
	case "arc":
		shape = layout.Arc{
			Center: pos(s.Center, layout.Position{}),
			Radius: s.Radius,
			From:   s.FromDeg * math.Pi / 180,
			To:     s.ToDeg * math.Pi / 180,
			Pixels: s.Pixels,
			U:      pos(s.U, layout.Position{}),
			V:      pos(s.V, layout.Position{}),
		}
	case "volume":
		shape = layout.Volume{
			Dim:   layout.Dim{X: s.Dim.X, Y: s.Dim.Y, Z: s.Dim.Z},
			Order: layout.Serpentine{XFlipEveryRow: s.XFlipEveryRow, YFlipEveryPanel: s.YFlipEveryPanel},
			Min:   pos(s.Min, layout.Position{}),
			Max:   pos(s.Max, layout.Position{}),
		}
	default:
		return nil, fmt.Errorf("unknown shape type %q", s.Type)
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if shape.Count() == 0 {
		return nil, fmt.Errorf("%s shape has no pixels", s.Type)
	}
	return shape, nil
}
