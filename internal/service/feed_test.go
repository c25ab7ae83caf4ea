package service

import (
	"sync"
	"testing"

	"geotrace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedService_PublishReachesAllSubscribers(t *testing.T) {
	f := NewFeedService()
	a, cancelA := f.Subscribe(1)
	b, cancelB := f.Subscribe(1)
	defer cancelA()
	defer cancelB()

	f.Publish(models.TelemetryRecord{"n": 1})

	assert.Equal(t, models.TelemetryRecord{"n": 1}, <-a)
	assert.Equal(t, models.TelemetryRecord{"n": 1}, <-b)
}

func TestFeedService_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	f := NewFeedService()
	ch, cancel := f.Subscribe(1)
	defer cancel()

	f.Publish(models.TelemetryRecord{"n": 1})
	f.Publish(models.TelemetryRecord{"n": 2}) // buffer full, dropped

	assert.Equal(t, models.TelemetryRecord{"n": 1}, <-ch)
	select {
	case rec := <-ch:
		t.Fatalf("unexpected record %v", rec)
	default:
	}
}

func TestFeedService_CancelClosesAndUnregisters(t *testing.T) {
	f := NewFeedService()
	ch, cancel := f.Subscribe(0)
	require.Equal(t, 1, f.Subscribers())

	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, f.Subscribers())
	assert.NotPanics(t, func() { f.Publish(models.TelemetryRecord{"n": 1}) })
}

func TestFeedService_ConcurrentPublishAndCancel(t *testing.T) {
	f := NewFeedService()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		_, cancel := f.Subscribe(4)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.Publish(models.TelemetryRecord{"j": j})
			}
		}()
		go func() {
			defer wg.Done()
			cancel()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, f.Subscribers())
}
