package core

import (
	"context"
	"sync"

	"github.com/valter-silva-au/mustdo/pkg/models"
)

// Player is the playback collaborator. The alarm controller owns the
// decision to loop; the player only knows how to play the sound once.
type Player interface {
	// Play plays the alarm from the start and returns when playback ends
	// or ctx is done.
	Play(ctx context.Context) error
	// Stop halts any playback and rewinds to the start.
	Stop() error
}

// AlarmController is the Idle/Sounding state machine. While Sounding it
// restarts playback every time a run ends.
type AlarmController struct {
	mu      sync.Mutex
	state   models.AlarmState
	player  Player
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
	onError func(error)
}

// NewAlarmController creates a controller in the Idle state. player may be
// nil, in which case state changes have no playback side effects. onError,
// if set, receives playback failures from the loop goroutine.
func NewAlarmController(player Player, onError func(error)) *AlarmController {
	return &AlarmController{
		state:   models.AlarmIdle,
		player:  player,
		onError: onError,
	}
}

// State returns the current alarm state.
func (c *AlarmController) State() models.AlarmState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent playback failure, if any.
func (c *AlarmController) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Start moves to Sounding and (re)starts playback from the beginning.
// It reports whether the state changed.
func (c *AlarmController) Start() bool {
	c.mu.Lock()
	changed := c.state != models.AlarmSounding
	c.state = models.AlarmSounding
	c.lastErr = nil
	c.mu.Unlock()

	c.haltPlayback()
	c.startPlayback()
	return changed
}

// Stop moves to Idle, stops playback and rewinds. It reports whether the
// state changed.
func (c *AlarmController) Stop() bool {
	c.mu.Lock()
	changed := c.state != models.AlarmIdle
	c.state = models.AlarmIdle
	c.mu.Unlock()

	c.haltPlayback()
	if changed && c.player != nil {
		if err := c.player.Stop(); err != nil {
			c.fail(err)
		}
	}
	return changed
}

func (c *AlarmController) startPlayback() {
	if c.player == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.loop(ctx, done)
}

// haltPlayback cancels the running loop, if any, and waits for it to exit.
func (c *AlarmController) haltPlayback() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *AlarmController) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := c.player.Play(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			// Stay Sounding so the stop affordance remains, but stop retrying.
			c.fail(err)
			return
		}
	}
}

func (c *AlarmController) fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	onError := c.onError
	c.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}
