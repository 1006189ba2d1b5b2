package grpc

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-trial-monitor/internal/metrics"
	"github.com/mr1hm/go-trial-monitor/internal/models"
)

// subscriberBuffer bounds how many alerts a subscriber may fall behind before
// new ones are dropped for it.
const subscriberBuffer = 64

// AlertFilter narrows a stream to one clinic, a severity floor, or both. The
// zero value matches every alert.
type AlertFilter struct {
	ClinicID    string
	MinSeverity models.AlertSeverity
}

func (f AlertFilter) Match(a *models.Alert) bool {
	if f.ClinicID != "" && a.ClinicID != f.ClinicID {
		return false
	}
	return f.MinSeverity == "" || a.Severity.Rank() >= f.MinSeverity.Rank()
}

type subscription struct {
	filter  AlertFilter
	ch      chan *models.Alert
	dropped atomic.Uint64
}

// Broadcaster fans stored alerts out to open streams. Each stream only
// receives alerts its filter matches, so a quiet filter never fills up.
type Broadcaster struct {
	buffer int

	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]*subscription
	dropped atomic.Uint64
}

func NewBroadcaster() *Broadcaster {
	return newBroadcaster(subscriberBuffer)
}

func newBroadcaster(buffer int) *Broadcaster {
	return &Broadcaster{
		buffer: buffer,
		subs:   make(map[uint64]*subscription),
	}
}

// Subscribe opens a stream for alerts matching f. The channel is closed by
// Unsubscribe or Close.
func (b *Broadcaster) Subscribe(f AlertFilter) (uint64, <-chan *models.Alert) {
	sub := &subscription{
		filter: f,
		ch:     make(chan *models.Alert, b.buffer),
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	return id, sub.ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(sub.ch)
	}
	b.mu.Unlock()

	if ok && sub.dropped.Load() > 0 {
		slog.Warn("alert stream closed after dropping deliveries", "subscriber_id", id, "dropped", sub.dropped.Load())
	}
}

// Broadcast implements monitor.Publisher. It never blocks: a subscriber whose
// buffer is full misses the alert and the drop is counted.
func (b *Broadcaster) Broadcast(a *models.Alert) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subs {
		if !sub.filter.Match(a) {
			continue
		}
		select {
		case sub.ch <- a:
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
			metrics.StreamDeliveryDropped()
			slog.Warn("dropping alert for slow subscriber", "subscriber_id", id, "alert_id", a.ID, "clinic_id", a.ClinicID)
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close ends every open stream.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
