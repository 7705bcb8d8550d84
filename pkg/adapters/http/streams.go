package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// StreamManager fans editor events out to SSE subscribers, per document.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // Document path -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for the events of path ("" for all
// documents) and returns it with its cancel function.
func (sm *StreamManager) Subscribe(path string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[path]; !ok {
		sm.subscribers[path] = make(map[chan<- string]struct{})
	}
	sm.subscribers[path][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[path]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, path)
			}
		}
	}
}

// Broadcast sends msg to the subscribers of path and to the global ones.
func (sm *StreamManager) Broadcast(path string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{path, ""} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				sm.logger.Warn("SSE: Client buffer full, dropping message", "document", path)
			}
		}
		if path == "" {
			break
		}
	}
}

// Event is the SSE payload of an editor event.
type Event struct {
	Type     domain.EventType `json:"type"`
	Document string           `json:"document"`
	Op       string           `json:"op,omitempty"`
	Selected string           `json:"selected,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Hooks returns the callbacks that publish editor events to subscribers.
func (sm *StreamManager) Hooks() domain.Hooks {
	publish := func(e Event) {
		data, err := json.Marshal(e)
		if err != nil {
			return
		}
		sm.Broadcast(e.Document, string(data))
	}
	return domain.Hooks{
		OnChange: func(_ context.Context, e *domain.ChangeEvent) {
			ev := Event{Type: e.Type, Document: e.Document, Op: e.Op, Selected: e.Selected}
			if e.Err != nil {
				ev.Error = e.Err.Error()
			}
			publish(ev)
		},
		OnOpen: func(_ context.Context, e *domain.EventBase) {
			publish(Event{Type: e.Type, Document: e.Document})
		},
		OnClose: func(_ context.Context, e *domain.EventBase) {
			publish(Event{Type: e.Type, Document: e.Document})
		},
	}
}
