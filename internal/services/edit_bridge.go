package services

import "sync"

// EditRequest asks the editing layer to open one collection row for
// editing: a category (section key or product category) plus the row index
// inside it.
type EditRequest struct {
	Category string `json:"category"`
	Row      int    `json:"row"`
}

// EditHandler consumes edit requests. At most one handler is active at a time.
type EditHandler func(EditRequest)

const defaultBridgeBuffer = 64

// EditBridge is a typed single-consumer conduit for edit events. Subscribing
// replaces any previous handler, so re-subscribing the same surface never
// duplicates delivery. Publish never blocks the caller; events published
// while the buffer is full or no handler is attached are dropped.
type EditBridge struct {
	mu      sync.Mutex
	events  chan EditRequest
	done    chan struct{}
	handler EditHandler
	closed  bool
	dropped int
}

// NewEditBridge constructs a bridge and starts its dispatch loop.
func NewEditBridge() *EditBridge {
	b := &EditBridge{
		events: make(chan EditRequest, defaultBridgeBuffer),
		done:   make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Subscribe installs the handler, replacing whichever one was active.
func (b *EditBridge) Subscribe(handler EditHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// Unsubscribe detaches the active handler. Events published afterwards are
// dropped until a new handler subscribes.
func (b *EditBridge) Unsubscribe() {
	b.Subscribe(nil)
}

// Publish enqueues the event without blocking. The return value reports
// whether the event was accepted.
func (b *EditBridge) Publish(event EditRequest) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.mu.Unlock()

	select {
	case b.events <- event:
		return true
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		return false
	}
}

// Dropped returns how many events were discarded due to backpressure.
func (b *EditBridge) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close stops the dispatch loop. Pending events are dropped.
func (b *EditBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
}

func (b *EditBridge) dispatch() {
	for {
		select {
		case <-b.done:
			return
		case event := <-b.events:
			b.mu.Lock()
			handler := b.handler
			b.mu.Unlock()
			if handler != nil {
				handler(event)
			}
		}
	}
}
