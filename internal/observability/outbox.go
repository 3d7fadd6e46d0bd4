package observability

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxQueuedNotifications bounds the outbox; the oldest batches are dropped
// first.
const maxQueuedNotifications = 20

// QueuedNotification is a batch of alerts whose delivery failed.
type QueuedNotification struct {
	ID       string    `json:"id"`
	QueuedAt time.Time `json:"queued_at"`
	Alerts   []Alert   `json:"alerts"`
}

// FlushResult reports one delivery pass over the outbox.
type FlushResult struct {
	Sent    int `json:"sent"`
	Pending int `json:"pending"`
	Dropped int `json:"dropped"`
}

// Flusher is implemented by notifiers that keep undelivered alerts.
type Flusher interface {
	Flush() (*FlushResult, error)
}

// Outbox is a Notifier that keeps batches the wrapped notifier failed to
// deliver in a JSON file and retries them, oldest first, on every Notify
// and Flush. Delivery stops at the first failure so the order is kept.
type Outbox interface {
	Notifier
	Flusher
	Pending() ([]QueuedNotification, error)
}

type fileOutbox struct {
	next Notifier
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewOutbox wraps next with a retry queue persisted at path.
func NewOutbox(next Notifier, path string) Outbox {
	return &fileOutbox{next: next, path: path, now: time.Now}
}

// Notify queues alerts behind any undelivered batches and delivers what it
// can. The error reports the first failed delivery; the failed batch and
// everything after it stay queued.
func (o *fileOutbox) Notify(alerts []Alert) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	queue, err := o.load()
	if err != nil {
		return err
	}
	if len(alerts) > 0 {
		queue = append(queue, QueuedNotification{
			ID:       uuid.NewString(),
			QueuedAt: o.now().UTC(),
			Alerts:   alerts,
		})
	}
	_, err = o.deliver(queue)
	return err
}

func (o *fileOutbox) Flush() (*FlushResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	queue, err := o.load()
	if err != nil {
		return nil, err
	}
	return o.deliver(queue)
}

func (o *fileOutbox) Pending() ([]QueuedNotification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.load()
}

func (o *fileOutbox) deliver(queue []QueuedNotification) (*FlushResult, error) {
	result := &FlushResult{}
	var sendErr error
	for i, batch := range queue {
		if err := o.next.Notify(batch.Alerts); err != nil {
			sendErr = fmt.Errorf("notification queued for retry: %w", err)
			queue = queue[i:]
			break
		}
		result.Sent++
	}
	if sendErr == nil {
		queue = nil
	}
	if len(queue) > maxQueuedNotifications {
		result.Dropped = len(queue) - maxQueuedNotifications
		queue = queue[result.Dropped:]
	}
	result.Pending = len(queue)

	if err := o.save(queue); err != nil {
		return result, err
	}
	return result, sendErr
}

// load returns the queued batches. A missing file is an empty queue.
func (o *fileOutbox) load() ([]QueuedNotification, error) {
	data, err := os.ReadFile(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading outbox: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var queue []QueuedNotification
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("parsing outbox: %w", err)
	}
	return queue, nil
}

// save writes the queue, removing the file when it is empty.
func (o *fileOutbox) save(queue []QueuedNotification) error {
	if len(queue) == 0 {
		if err := os.Remove(o.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clearing outbox: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(queue, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling outbox: %w", err)
	}
	if err := os.WriteFile(o.path, data, 0o600); err != nil {
		return fmt.Errorf("writing outbox: %w", err)
	}
	return nil
}
