package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

// Player plays the alarm sound once per Play call. The caller decides
// whether to loop.
type Player interface {
	// Play plays from the start and blocks until playback ends or ctx is done.
	Play(ctx context.Context) error
	// Stop halts playback and rewinds.
	Stop() error
}

// NewPlayer selects the player for cfg: the configured command when set,
// otherwise the terminal bell when enabled, otherwise a silent player.
func NewPlayer(cfg models.AlarmConfig, out io.Writer) Player {
	switch {
	case cfg.Command != "":
		return NewCommandPlayer(cfg.Command, cfg.Args)
	case cfg.Bell:
		return NewBellPlayer(out, 2*time.Second)
	default:
		return SilentPlayer{}
	}
}

// commandPlayer runs an external program, such as an audio player, once
// per Play. Each run starts from the beginning of the sound, so Stop only
// has to interrupt the current run, which cancelling ctx already does.
type commandPlayer struct {
	command string
	args    []string
}

// NewCommandPlayer creates a Player that runs command with args.
func NewCommandPlayer(command string, args []string) Player {
	return &commandPlayer{command: command, args: args}
}

func (p *commandPlayer) Play(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				return fmt.Errorf("alarm command %s exited with status %d", p.command, exitErr.ExitCode())
			}
			return fmt.Errorf("alarm command %s exited with status %d: %s", p.command, exitErr.ExitCode(), msg)
		}
		return fmt.Errorf("executing %s: %w", p.command, err)
	}
	return nil
}

func (p *commandPlayer) Stop() error { return nil }

// bellPlayer rings the terminal bell. One Play is one ring followed by a
// pause.
type bellPlayer struct {
	out   io.Writer
	pause time.Duration
}

// NewBellPlayer creates a Player that writes BEL to out every pause.
func NewBellPlayer(out io.Writer, pause time.Duration) Player {
	return &bellPlayer{out: out, pause: pause}
}

func (p *bellPlayer) Play(ctx context.Context) error {
	if _, err := io.WriteString(p.out, "\a"); err != nil {
		return fmt.Errorf("ringing bell: %w", err)
	}
	timer := time.NewTimer(p.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return nil
}

func (p *bellPlayer) Stop() error { return nil }

// SilentPlayer plays nothing; Play blocks until ctx is done. It keeps the
// alarm state machine observable when no sound is available.
type SilentPlayer struct{}

func (SilentPlayer) Play(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (SilentPlayer) Stop() error { return nil }
