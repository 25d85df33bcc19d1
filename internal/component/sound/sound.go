// Package sound plays a media file when the system starts.
package sound

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
	"github.com/flightlab-io/flightlab/internal/pkg/task"
)

func init() {
	component.Register(v1.KindSound, New)
}

// Sound runs the player on START. Playback does not block the command.
type Sound struct {
	*component.Base
	settings *v1.SoundSettings
	store    Store

	mu      sync.Mutex
	media   string
	playing *exec.Cmd
}

var _ component.Component = (*Sound)(nil)

func New(cfg *v1.Component, deps component.Deps) (component.Component, error) {
	var store Store
	if _, _, remote := parseS3URL(cfg.Sound.MediaPath); remote {
		if !deps.S3.Enabled() {
			return nil, fmt.Errorf("sound %q: %s needs an s3 endpoint", cfg.Name, cfg.Sound.MediaPath)
		}
		var err error
		if store, err = NewMinIOStore(deps.S3); err != nil {
			return nil, err
		}
	}
	return newSound(cfg, deps, store), nil
}

func newSound(cfg *v1.Component, deps component.Deps, store Store) *Sound {
	s := &Sound{settings: cfg.Sound, store: store}
	s.Base = component.NewBase(s, cfg, deps.Logger)
	return s
}

// mediaPath returns the local file to play, downloading it the first time.
func (s *Sound) mediaPath(ctx context.Context) (string, error) {
	if s.media != "" {
		return s.media, nil
	}
	bucket, key, remote := parseS3URL(s.settings.MediaPath)
	if !remote {
		s.media = s.settings.MediaPath
		return s.media, nil
	}
	if s.store == nil {
		return "", errors.New("no media store configured")
	}
	path, err := s.store.Fetch(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	s.Logger().Info("Media cached", "source", s.settings.MediaPath, "path", path)
	s.media = path
	return path, nil
}

func (s *Sound) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Closed() {
		return nil
	}
	if s.playing != nil {
		s.Logger().Debug("Already playing")
		return nil
	}

	path, err := s.mediaPath(ctx)
	if err != nil {
		return err
	}
	if len(s.settings.Player) == 0 {
		return errors.New("no player configured")
	}

	argv := append(append([]string(nil), s.settings.Player...), path)
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}
	s.Logger().Info("Playing startup sound", "media", path)
	s.playing = cmd

	task.Go("sound "+s.Name(), func() {
		err := cmd.Wait()
		s.mu.Lock()
		if s.playing == cmd {
			s.playing = nil
		}
		s.mu.Unlock()
		if err != nil && !s.Closed() {
			s.Logger().Warn("Player exited", "error", err)
		}
	})
	return nil
}

// Stop cuts any playback in progress.
func (s *Sound) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kill()
	return nil
}

func (s *Sound) Restart(ctx context.Context) error {
	return component.StopStart(ctx, s)
}

func (s *Sound) Close() error {
	return s.CloseOnce(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.kill()
		return nil
	})
}

func (s *Sound) kill() {
	if s.playing == nil || s.playing.Process == nil {
		return
	}
	_ = s.playing.Process.Kill()
	s.playing = nil
}

// isPlaying reports whether a player is running.
func (s *Sound) isPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing != nil
}
