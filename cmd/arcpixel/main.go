package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"

	"github.com/coreman2200/arcpixel/internal/config"
	"github.com/coreman2200/arcpixel/internal/control"
	"github.com/coreman2200/arcpixel/internal/pattern"
	"github.com/coreman2200/arcpixel/internal/sim"
)

func main() {
	// ---- Flags (config.yaml is the base, flags set on the command line win) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		driver     = flag.String("driver", "", "driver: auto | spi | nrz | bitbang | serial | gpio | console | preview")
		chip       = flag.String("chip", "", "LED chip: apa102 | apa102hd | lpd8806 | ws2812 | sk6812")
		fps        = flag.Int("fps", 0, "target frames per second")
		brightness = flag.Float64("brightness", -1, "global brightness 0..1")
		pat        = flag.String("pattern", "", "pattern name, optionally name:preset")
		addr       = flag.String("addr", "", "preview listen address")
		watch      = flag.Bool("watch", true, "reload brightness, correction and pattern when the config changes")
		dump       = flag.Bool("write-config", false, "write the effective config to -config and exit")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		log.Info().Str("path", *configPath).Msg("no config file, using defaults")
		cfg = config.Defaults()
	default:
		log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
	}
	applyFlags(cfg, overrides{
		driver: *driver, chip: *chip, fps: *fps, brightness: *brightness, pattern: *pat, addr: *addr,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	if *dump {
		if err := config.Save(*configPath, cfg); err != nil {
			log.Fatal().Err(err).Msg("write config")
		}
		log.Info().Str("path", *configPath).Msg("config written")
		return
	}

	if _, err := host.Init(); err != nil {
		log.Warn().Err(err).Msg("periph host init failed; only simulation drivers will work")
	}

	l, err := cfg.BuildLayout()
	if err != nil {
		log.Fatal().Err(err).Msg("layout")
	}
	p, err := cfg.BuildPattern(pattern.Default())
	if err != nil {
		log.Fatal().Err(err).Msg("pattern")
	}
	corr, err := cfg.BuildCorrection()
	if err != nil {
		log.Fatal().Err(err).Msg("correction")
	}

	out, err := openDriver(cfg, l)
	if err != nil {
		log.Fatal().Err(err).Msg("driver")
	}
	defer out.drv.Close()

	ctl, err := control.New(l, p, out.drv, control.WithBrightness(cfg.Brightness), control.WithCorrection(corr))
	if err != nil {
		log.Fatal().Err(err).Msg("control")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := control.NewRunner(ctl)
	runner.Async = cfg.Async

	var srv *http.Server
	if out.preview != nil {
		runner.OnDiagnostic = out.preview.PushDiag
		srv = servePreview(cfg.Preview.Addr, out.preview)
	}

	if *watch {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) { reload(ctl, cfg, next) })
			if err != nil {
				log.Warn().Err(err).Msg("config watch disabled")
			}
		}()
	}

	if err := runner.Run(ctx, cfg.FPS); err != nil {
		log.Error().Err(err).Msg("runner")
	}
	st := runner.Stats()
	log.Info().Uint64("frames", st.Frames).Uint64("errors", st.Errors).Msg("shutting down")
	if srv != nil {
		_ = srv.Close()
	}
}

type overrides struct {
	driver, chip, pattern, addr string
	fps                         int
	brightness                  float64
}

func applyFlags(cfg *config.Config, o overrides) {
	if o.driver != "" {
		cfg.Driver = o.driver
	}
	if o.chip != "" {
		cfg.Chip = o.chip
	}
	if o.fps > 0 {
		cfg.FPS = o.fps
	}
	if o.brightness >= 0 {
		cfg.Brightness = o.brightness
	}
	if o.pattern != "" {
		cfg.Pattern = parsePattern(o.pattern)
	}
	if o.addr != "" {
		cfg.Preview.Addr = o.addr
	}
}

func parsePattern(s string) config.PatternCfg {
	name, preset, _ := strings.Cut(s, ":")
	return config.PatternCfg{Name: name, Preset: preset}
}

// reload applies the live-tunable parts of next. Anything that sizes
// buffers needs a restart.
func reload(ctl *control.Control, cur, next *config.Config) {
	ctl.SetBrightness(next.Brightness)
	if corr, err := next.BuildCorrection(); err == nil {
		ctl.SetCorrection(corr)
	}
	if p, err := next.BuildPattern(pattern.Default()); err == nil {
		ctl.SetPattern(p)
	}
	if next.Chip != cur.Chip || next.PixelCount != cur.PixelCount || next.Driver != cur.Driver {
		log.Warn().Msg("chip, pixel count and driver changes take effect after a restart")
	}
	log.Info().
		Float64("brightness", next.Brightness).
		Str("pattern", next.Pattern.Name).
		Str("preset", next.Pattern.Preset).
		Msg("live settings updated")
}

func servePreview(addr string, p *sim.Preview) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      withCORS(p.Handler()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("preview server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("preview server crashed")
		}
	}()
	return srv
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
