package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/assets"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/audio"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/avatar"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/blink"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/bus"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/config"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/generator"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/lipsync"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/logging"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/render"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/schedule"
)

// app holds the runtime shared by the serve and window commands.
type app struct {
	cfg    *config.Config
	loader *config.Loader
	log    *logging.Logger
	clock  clockwork.Clock
	events *bus.EventBus

	store    *assets.Store
	watcher  *assets.Watcher
	face     *avatar.Controller
	controls *avatar.Controls
	blink    *blink.Scheduler
	loop     *render.Loop
	gen      *generator.Client
	speaker  *audio.SpeakerPlayer
	player   *lipsync.Player
	cron     *schedule.Scheduler
}

// loadConfig reads the config file named by --config, or the default search path.
func loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Log.Level = logging.LevelDebug
	}
	return cfg, loader, nil
}

// newApp wires every runtime component from cfg.
func newApp(cfg *config.Config, loader *config.Loader) (*app, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		loader: loader,
		log:    logger,
		clock:  clockwork.NewRealClock(),
		events: bus.New(),
	}

	set, err := assets.Load(cfg.Assets.Dir)
	switch {
	case errors.Is(err, assets.ErrNoAssetsDir):
		logger.Warn("assets", "Assets directory missing, drawing background only", map[string]interface{}{"dir": cfg.Assets.Dir})
	case err != nil:
		logger.Warn("assets", "Some sprites could not be loaded", map[string]interface{}{"error": err.Error()})
	}
	a.store = assets.NewStore(set)
	logger.Info("assets", "Sprites loaded", map[string]interface{}{
		"dir":     cfg.Assets.Dir,
		"sprites": len(set.Catalog()),
		"head":    set.Head != nil,
	})

	if cfg.Assets.Watch {
		if _, statErr := os.Stat(cfg.Assets.Dir); statErr == nil {
			a.watcher, err = assets.NewWatcher(cfg.Assets.Dir, a.store, a.clock, a.events, logger.Component("assets"))
			if err != nil {
				logger.Warn("assets", "Asset watcher unavailable", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	a.face = avatar.NewController(a.events)
	a.controls = avatar.NewControls(a.events)
	a.applyControls(cfg)

	a.blink = blink.New(blink.Config{
		Enabled:      cfg.Blink.Enabled,
		InitialDelay: cfg.Blink.InitialDelay,
		Interval:     cfg.Blink.Interval,
		Jitter:       cfg.Blink.Jitter,
		Duration:     cfg.Blink.Duration,
	}, a.clock.Now(), blink.WithRand(rand.Float64), blink.WithEvents(a.events))

	a.loop = render.New(render.Deps{
		Assets:   a.store,
		Face:     a.face,
		Controls: a.controls,
		Blink:    a.blink,
	}, render.Options{
		FPS:    cfg.Render.FPS,
		Width:  cfg.Render.Width,
		Height: cfg.Render.Height,
	}, a.clock, logger.Component("render"))

	a.gen, err = generator.NewClient(generator.Config{
		URL:     cfg.Generator.URL,
		Timeout: cfg.Generator.Timeout,
	}, logger.Component("generator"))
	if err != nil {
		a.close()
		return nil, fmt.Errorf("generator: %w", err)
	}

	var player audio.Player = audio.Nop{}
	if cfg.Audio.Enabled {
		a.speaker = audio.NewSpeakerPlayer(a.gen, cfg.Audio.SampleRate, logger.Component("audio"))
		player = a.speaker
	}

	a.player = lipsync.New(lipsync.Deps{
		Generator: a.gen,
		Audio:     player,
		Mouth:     a.face,
		Catalog:   func() []string { return a.store.Current().Catalog() },
		Clock:     a.clock,
		Events:    a.events,
	}, lipsync.Options{
		FallbackHold: cfg.LipSync.FallbackHold,
		ReplayHold:   cfg.LipSync.ReplayHold,
		History:      cfg.LipSync.History,
	}, logger.Component("lipsync"))

	if cfg.Schedule.Enabled {
		text := cfg.Schedule.Text
		if text == "" {
			text = cfg.Generator.Text
		}
		a.cron, err = schedule.New(cfg.Schedule.Spec, text, a.player, logger.Component("schedule"))
		if err != nil {
			a.close()
			return nil, err
		}
	}

	a.watchConfig()
	return a, nil
}

// applyControls copies the tunable values of cfg into the live controls.
func (a *app) applyControls(cfg *config.Config) {
	set := func(name avatar.Control, v float64) {
		if err := a.controls.Set(name, v); err != nil {
			a.log.Warn("config", "Control value ignored", map[string]interface{}{"control": string(name), "error": err.Error()})
		}
	}
	set(avatar.ControlBob, cfg.Controls.Bob)
	set(avatar.ControlGlow, cfg.Controls.Glow)
	set(avatar.ControlBlinkRate, float64(cfg.Blink.Interval.Milliseconds()))
}

// watchConfig applies live-tunable settings when the config file changes.
func (a *app) watchConfig() {
	if a.loader == nil || a.loader.File() == "" {
		return
	}
	a.loader.Watch(func(cfg *config.Config) {
		a.applyControls(cfg)
		a.blink.SetEnabled(cfg.Blink.Enabled)
		a.log.Info("config", "Config reloaded", map[string]interface{}{
			"file":  a.loader.File(),
			"blink": cfg.Blink.Enabled,
		})
	}, func(err error) {
		a.log.Error("config", "Config reload rejected", err, nil)
	})
	a.log.Info("config", "Watching config file", map[string]interface{}{"file": a.loader.File()})
}

func (a *app) component(name string) zerolog.Logger {
	return a.log.Component(name)
}

// close stops everything newApp started, in reverse order.
func (a *app) close() {
	if a.cron != nil {
		a.cron.Stop()
	}
	if a.player != nil {
		a.player.Close()
	}
	if a.speaker != nil {
		a.speaker.Stop()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.face != nil {
		a.face.Close()
	}
	a.log.Close()
}
