package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcpixel/internal/config"
	"github.com/coreman2200/arcpixel/internal/sim"
)

func TestApplyFlags(t *testing.T) {
	cfg := config.Defaults()
	applyFlags(cfg, overrides{brightness: -1})
	assert.Equal(t, config.Defaults(), cfg)

	applyFlags(cfg, overrides{
		driver: "console", chip: "ws2812", fps: 60, brightness: 0, pattern: "noise:lava", addr: ":9000",
	})
	assert.Equal(t, "console", cfg.Driver)
	assert.Equal(t, "ws2812", cfg.Chip)
	assert.Equal(t, 60, cfg.FPS)
	assert.Equal(t, 0.0, cfg.Brightness)
	assert.Equal(t, config.PatternCfg{Name: "noise", Preset: "lava"}, cfg.Pattern)
	assert.Equal(t, ":9000", cfg.Preview.Addr)
}

func TestParsePattern(t *testing.T) {
	assert.Equal(t, config.PatternCfg{Name: "solid"}, parsePattern("solid"))
	assert.Equal(t, config.PatternCfg{Name: "rainbow", Preset: "fast"}, parsePattern("rainbow:fast"))
}

func TestOpenDriverSimulated(t *testing.T) {
	cfg := config.Defaults()
	l, err := cfg.BuildLayout()
	require.NoError(t, err)

	cfg.Driver = "console"
	out, err := openDriver(cfg, l)
	require.NoError(t, err)
	assert.IsType(t, &sim.Console{}, out.drv)
	assert.Nil(t, out.preview)
	assert.Equal(t, l.Len(), out.drv.PixelCount())
	require.NoError(t, out.drv.Close())

	cfg.Driver = "preview"
	out, err = openDriver(cfg, l)
	require.NoError(t, err)
	require.NotNil(t, out.preview)
	assert.Equal(t, "apa102", out.drv.Chip().Name)
	require.NoError(t, out.drv.Close())
}

func TestOpenDriverUnknown(t *testing.T) {
	cfg := config.Defaults()
	l, err := cfg.BuildLayout()
	require.NoError(t, err)
	cfg.Driver = "smoke-signals"
	_, err = openDriver(cfg, l)
	assert.ErrorContains(t, err, "unknown driver")
}
