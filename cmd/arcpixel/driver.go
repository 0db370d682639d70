package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcpixel/internal/config"
	"github.com/coreman2200/arcpixel/internal/layout"
	"github.com/coreman2200/arcpixel/internal/led"
	"github.com/coreman2200/arcpixel/internal/sim"
)

type output struct {
	drv     led.Driver
	name    string
	preview *sim.Preview
}

// openDriver builds the configured output. "auto" tries the SPI bus and
// falls back to the console when no bus is available.
func openDriver(cfg *config.Config, l *layout.Layout) (output, error) {
	chip, err := cfg.LEDChip()
	if err != nil {
		return output{}, err
	}
	n := l.Len()

	selected := cfg.Driver
	if selected == "auto" {
		selected = "spi"
	}
	out, err := openHardware(selected, cfg, l, chip)
	switch {
	case err == nil:
	case cfg.Driver == "auto":
		log.Warn().Err(err).Str("chip", chip.Name).Msg("no LED hardware found; printing at the console")
		out = output{drv: sim.NewConsole(chip, n), name: "console"}
	default:
		return output{}, err
	}

	ev := log.Info().Str("driver", out.name).Str("chip", chip.Name).Int("pixels", n)
	if chip.Family == led.Clockless {
		ev = ev.Str("pulses", humanize.Comma(int64(led.FrameSize(chip, n))))
	} else {
		ev = ev.Str("frame", humanize.Bytes(uint64(led.FrameSize(chip, n))))
	}
	ev.Msg("driver ready")
	return out, nil
}

func openHardware(name string, cfg *config.Config, l *layout.Layout, chip led.Chip) (output, error) {
	n := l.Len()
	var (
		sink   led.ByteSink
		pulses led.PulseWriter
		err    error
	)
	switch name {
	case "console":
		return output{drv: sim.NewConsole(chip, n), name: name}, nil
	case "preview":
		p := sim.NewPreview(l, chip)
		return output{drv: p, name: name, preview: p}, nil
	case "spi":
		f := cfg.SPIFrequency(chip)
		if chip.Family == led.Clockless {
			pulses, err = led.OpenSPIPulser(cfg.SPI.Dev, f, chip, n)
		} else {
			var s *led.SPISink
			s, err = led.OpenSPI(cfg.SPI.Dev, f)
			if err == nil {
				s.SetChunk(cfg.SPI.ChunkBytes)
				sink = s
			}
		}
	case "nrz":
		pulses, err = led.OpenNRZPulser(cfg.SPI.Dev, cfg.SPIFrequency(chip), chip, n)
	case "bitbang":
		sink, err = led.OpenBitBang(cfg.BitBang.Data, cfg.BitBang.Clock, cfg.HalfPeriod())
	case "serial":
		sink, err = led.OpenSerial(cfg.Serial.Path, cfg.Serial.Port)
	case "gpio":
		pulses, err = led.OpenDelayPulser(cfg.GPIO)
		if err == nil {
			log.Warn().Str("pin", cfg.GPIO).Msg("bit-banged one-wire timing is best effort")
		}
	default:
		return output{}, fmt.Errorf("unknown driver %q", name)
	}
	if err != nil {
		return output{}, fmt.Errorf("%s: %w", name, err)
	}
	drv, err := led.Open(chip, n, sink, pulses)
	if err != nil {
		for _, t := range []any{sink, pulses} {
			if c, ok := t.(interface{ Close() error }); ok {
				_ = c.Close()
			}
		}
		return output{}, err
	}
	return output{drv: drv, name: name}, nil
}
