package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenhome/storefront-api/internal/domain"
)

func collectRequests(bridge *EditBridge) (*sync.Mutex, *[]EditRequest) {
	var (
		mu       sync.Mutex
		requests []EditRequest
	)
	bridge.Subscribe(func(req EditRequest) {
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
	})
	return &mu, &requests
}

func waitForRequests(t *testing.T, mu *sync.Mutex, requests *[]EditRequest, want int) []EditRequest {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		if len(*requests) >= want {
			got := append([]EditRequest(nil), *requests...)
			mu.Unlock()
			return got
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d requests", want)
	return nil
}

func TestBridgeDeliversToSubscriber(t *testing.T) {
	bridge := NewEditBridge()
	defer bridge.Close()
	mu, requests := collectRequests(bridge)

	require.True(t, bridge.Publish(EditRequest{Category: domain.SectionHeroCarousel, Row: 2}))

	got := waitForRequests(t, mu, requests, 1)
	assert.Equal(t, domain.SectionHeroCarousel, got[0].Category)
	assert.Equal(t, 2, got[0].Row)
}

func TestBridgeResubscribeReplacesHandler(t *testing.T) {
	bridge := NewEditBridge()
	defer bridge.Close()

	var (
		mu     sync.Mutex
		first  int
		second []EditRequest
	)
	bridge.Subscribe(func(EditRequest) {
		mu.Lock()
		first++
		mu.Unlock()
	})
	bridge.Subscribe(func(req EditRequest) {
		mu.Lock()
		second = append(second, req)
		mu.Unlock()
	})

	require.True(t, bridge.Publish(EditRequest{Category: "mattresses", Row: 0}))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		if len(second) == 1 {
			mu.Unlock()
			break
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	// Only the most recent handler sees the request, never both.
	assert.Zero(t, first)
	assert.Len(t, second, 1)
}

func TestBridgePublishNeverBlocks(t *testing.T) {
	bridge := NewEditBridge()
	defer bridge.Close()

	// Pin the consumer so the buffer fills up behind it.
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	bridge.Subscribe(func(EditRequest) {
		once.Do(func() { close(started) })
		<-release
	})

	require.True(t, bridge.Publish(EditRequest{Category: "mattresses"}))
	<-started

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < defaultBridgeBuffer*3; i++ {
			bridge.Publish(EditRequest{Category: "mattresses", Row: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked the caller")
	}
	assert.Greater(t, bridge.Dropped(), 0)
	close(release)
}

func TestBridgePublishAfterClose(t *testing.T) {
	bridge := NewEditBridge()
	bridge.Close()

	assert.False(t, bridge.Publish(EditRequest{Category: "mattresses"}))
}

func TestBridgeUnsubscribeStopsDelivery(t *testing.T) {
	bridge := NewEditBridge()
	defer bridge.Close()
	mu, requests := collectRequests(bridge)

	require.True(t, bridge.Publish(EditRequest{Category: "mattresses", Row: 1}))
	waitForRequests(t, mu, requests, 1)

	bridge.Unsubscribe()
	bridge.Publish(EditRequest{Category: "mattresses", Row: 2})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, *requests, 1)
}
