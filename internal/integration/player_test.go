package integration

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

func TestNewPlayer_Selection(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.AlarmConfig
		want string
	}{
		{"command wins", models.AlarmConfig{Command: "paplay", Bell: true}, "*integration.commandPlayer"},
		{"bell", models.AlarmConfig{Bell: true}, "*integration.bellPlayer"},
		{"silent", models.AlarmConfig{}, "integration.SilentPlayer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fmt.Sprintf("%T", NewPlayer(tt.cfg, &bytes.Buffer{}))
			if got != tt.want {
				t.Errorf("NewPlayer(%+v) = %s, want %s", tt.cfg, got, tt.want)
			}
		})
	}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestCommandPlayer_Success(t *testing.T) {
	skipOnWindows(t)
	p := NewCommandPlayer("sh", []string{"-c", "exit 0"})
	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play error: %v", err)
	}
}

func TestCommandPlayer_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	p := NewCommandPlayer("sh", []string{"-c", "echo no device >&2; exit 3"})
	err := p.Play(context.Background())
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(err.Error(), "status 3") || !strings.Contains(err.Error(), "no device") {
		t.Errorf("error %q should include exit status and stderr", err)
	}
}

func TestCommandPlayer_NotFound(t *testing.T) {
	p := NewCommandPlayer("mustdo-no-such-player-binary", nil)
	if err := p.Play(context.Background()); err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestCommandPlayer_CancelStopsPlayback(t *testing.T) {
	skipOnWindows(t)
	p := NewCommandPlayer("sleep", []string{"30"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Play(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancelled Play returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Play did not return after cancel")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBellPlayer_RingsOncePerPlay(t *testing.T) {
	out := &syncBuffer{}
	p := NewBellPlayer(out, time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := p.Play(context.Background()); err != nil {
			t.Fatalf("Play error: %v", err)
		}
	}
	if got := out.String(); got != "\a\a\a" {
		t.Errorf("output = %q, want three bells", got)
	}
}

func TestBellPlayer_CancelEndsPause(t *testing.T) {
	out := &syncBuffer{}
	p := NewBellPlayer(out, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := p.Play(ctx); err != nil {
		t.Fatalf("Play error: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Play waited for the full pause despite cancel")
	}
}

func TestSilentPlayer_BlocksUntilCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := (SilentPlayer{}).Play(ctx); err != nil {
		t.Errorf("Play error: %v", err)
	}
	if ctx.Err() == nil {
		t.Error("Play returned before ctx was done")
	}
}
