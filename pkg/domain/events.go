package domain

import (
	"context"
	"time"
)

// EventType defines the category of an editor event.
type EventType string

const (
	EventOpen   EventType = "open"
	EventChange EventType = "change"
	EventReject EventType = "reject"
	EventUndo   EventType = "undo"
	EventRedo   EventType = "redo"
	EventSave   EventType = "save"
	EventClose  EventType = "close"
	EventExpand EventType = "expand"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Document  string    `json:"document"`
}

// ChangeEvent is emitted after a committed mutation (including undo/redo) and
// after a rejected one.
type ChangeEvent struct {
	EventBase
	Op       string `json:"op"`
	Selected string `json:"selected,omitempty"`
	Err      error  `json:"-"`
}

// ExpandEvent reports a completed transclusion pass.
type ExpandEvent struct {
	EventBase
	Duration time.Duration `json:"duration"`
	Problems int           `json:"problems"`
}

// Hooks defines callbacks for renderers and observability.
type Hooks struct {
	OnChange func(context.Context, *ChangeEvent)
	OnExpand func(context.Context, *ExpandEvent)
	OnOpen   func(context.Context, *EventBase)
	OnClose  func(context.Context, *EventBase)
}

// Merge returns hooks calling h first and then other.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnChange: chain(h.OnChange, other.OnChange),
		OnExpand: chain(h.OnExpand, other.OnExpand),
		OnOpen:   chain(h.OnOpen, other.OnOpen),
		OnClose:  chain(h.OnClose, other.OnClose),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
