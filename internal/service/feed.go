package service

import (
	"sync"

	"geotrace/internal/models"
)

// FeedService fans accepted records out to live subscribers.
// Publish never blocks: a subscriber whose buffer is full misses the record.
type FeedService struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan models.TelemetryRecord
}

func NewFeedService() *FeedService {
	return &FeedService{subs: make(map[int]chan models.TelemetryRecord)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel func unregisters it and closes the channel; it is safe to call twice.
func (f *FeedService) Subscribe(buffer int) (<-chan models.TelemetryRecord, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan models.TelemetryRecord, buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *FeedService) Publish(rec models.TelemetryRecord) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (f *FeedService) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
