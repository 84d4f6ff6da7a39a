package flow

import "github.com/xaenox/postbot/internal/models"

// EventType classifies one inbound user event.
type EventType int

const (
	EventNewQuery EventType = iota
	EventSelectionMade
	EventThumbnailProvided
	EventSkipThumbnail
	EventPublishConfirmed
	EventCancel
	EventTimeout
)

func (t EventType) String() string {
	switch t {
	case EventNewQuery:
		return "new_query"
	case EventSelectionMade:
		return "selection_made"
	case EventThumbnailProvided:
		return "thumbnail_provided"
	case EventSkipThumbnail:
		return "skip_thumbnail"
	case EventPublishConfirmed:
		return "publish_confirmed"
	case EventCancel:
		return "cancel"
	case EventTimeout:
		return "timeout"
	}
	return "unknown"
}

// Event is one classified inbound user action.
type Event struct {
	Type  EventType
	Kind  models.Kind // NewQuery
	Query string      // NewQuery
	Index int         // SelectionMade, zero-based
	Image []byte      // ThumbnailProvided
}

// OutcomeType tells the transport what to show the user next.
type OutcomeType int

const (
	OutcomeNone OutcomeType = iota
	OutcomeShowCandidates
	OutcomeRequestThumbnail
	OutcomeShowPreview
	OutcomeMessage
)

// Preview couples the rendered thumbnail with its caption.
type Preview struct {
	Image   []byte
	Caption string
}

// Outcome is what the state machine hands back to the transport after
// processing one event.
type Outcome struct {
	Type       OutcomeType
	Text       string
	Candidates []models.Candidate
	Preview    *Preview
}

func message(text string) Outcome {
	return Outcome{Type: OutcomeMessage, Text: text}
}

func none() Outcome {
	return Outcome{Type: OutcomeNone}
}
