package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/eiannone/keyboard"
	"github.com/faiface/beep"
	"go.uber.org/zap"

	"git.lost.host/meutraa/bmsplay/internal/audio"
	"git.lost.host/meutraa/bmsplay/internal/chart"
	"git.lost.host/meutraa/bmsplay/internal/config"
	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/library"
	"git.lost.host/meutraa/bmsplay/internal/player"
	"git.lost.host/meutraa/bmsplay/internal/session"
)

func play(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	opts, err := parserOptions(cfg)
	if nil != err {
		return err
	}
	ft, err := chartType(cfg.Chart)
	if nil != err {
		return err
	}
	content, fs, err := openChart(ctx, cfg, cfg.Chart)
	if nil != err {
		return err
	}

	mixer := audio.NewMixer(beep.SampleRate(cfg.SampleRate), audio.DefaultRegistry(), lg.Named("audio"))
	if err := mixer.Start(cfg.Buffer); nil != err {
		return fmt.Errorf("unable to open audio output: %w", err)
	}

	s := session.New(lg, mixer, fs, session.Options{Charset: opts.Charset, Seed: opts.Seed, Workers: cfg.Workers})
	defer func() {
		if err := s.Close(); nil != err {
			lg.Warn("unable to close session", zap.Error(err))
		}
	}()
	m := chart.NewManager(s)
	defer m.Close()

	// played charts are remembered in the library when it can be opened
	if lib, err := library.Open(cfg.Library, lg.Named("library")); nil == err {
		defer lib.Close()
		m.OnLoaded(func(c *game.Chart) { remember(lg, lib, m, c) })
	} else {
		lg.Warn("library unavailable", zap.Error(err))
	}

	var screen *player.Screen
	commands := make(chan player.Command, 16)
	if !cfg.Headless {
		keys, err := keyboard.GetKeys(128)
		if nil != err {
			return fmt.Errorf("unable to open keyboard: %w", err)
		}
		defer func() {
			if err := keyboard.Close(); nil != err {
				lg.Warn("unable to close keyboard", zap.Error(err))
			}
		}()
		go readKeys(keys, commands)

		screen = player.NewScreen(os.Stdout)
		if err := screen.Init(); nil != err {
			return err
		}
		defer screen.Deinit()
	}

	p := player.New(m, s, screen, player.Options{
		Delay:       cfg.Delay,
		FramePeriod: cfg.FramePeriod,
		Hold:        cfg.Watch,
	})

	if cfg.Watch && !strings.HasPrefix(cfg.Chart, "s3://") {
		w, err := watch(ctx, lg.Named("watch"), cfg.Chart, func(content []byte) {
			m.LoadChart(content, cfg.Chart, ft, false)
		})
		if nil != err {
			return err
		}
		defer w.Close()
	}

	m.LoadChart(content, cfg.Chart, ft, false)
	return p.Run(ctx, commands)
}

func readKeys(keys <-chan keyboard.KeyEvent, commands chan<- player.Command) {
	for key := range keys {
		var cmd player.Command
		switch {
		case key.Key == keyboard.KeySpace:
			cmd = player.CommandPause
		case key.Rune == 'r':
			cmd = player.CommandReloadResources
		case key.Rune == 'R':
			cmd = player.CommandReload
		case key.Key == keyboard.KeyEsc, key.Key == keyboard.KeyCtrlC, key.Rune == 'q':
			cmd = player.CommandQuit
		default:
			continue
		}
		commands <- cmd
	}
}

func remember(lg *zap.Logger, lib *library.Library, m *chart.Manager, c *game.Chart) {
	sum, err := m.GetHash(nil, nil)
	if nil != err {
		lg.Warn("unable to hash chart", zap.Error(err))
		return
	}
	err = lib.Put(library.Entry{
		Hash:      sum,
		Path:      c.Path,
		Type:      c.Type,
		Title:     c.Header.Title,
		Artist:    c.Header.Artist,
		Genre:     c.Header.Genre,
		PlayLevel: c.Header.PlayLevel,
		Notes:     c.NoteCount,
		Duration:  c.Duration,
	})
	if nil != err {
		lg.Warn("unable to record chart", zap.Error(err))
	}
	if same, err := lib.ByHash(sum); nil == err && len(same) > 1 {
		lg.Info("chart is also known as", zap.Int("copies", len(same)-1), zap.String("hash", sum))
	}
}
