package scheduler

import "time"

// Phase is the scheduler's state machine position.
type Phase int

const (
	Idle Phase = iota
	Capturing
	WaitingInterval
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case WaitingInterval:
		return "waiting"
	default:
		return "unknown"
	}
}

// CaptureState is the per-page state the scheduler mutates. It is reset on
// navigation and discarded when the page goes away.
type CaptureState struct {
	Enabled         bool
	LastContentHash string
	LastCaptureAt   time.Time // zero until the first dispatch
	ConversationID  string
	LastURL         string
}

// CaptureSession is everything one scheduler owns about its page.
type CaptureSession struct {
	Name   string
	Source string
	State  CaptureState
	Phase  Phase

	// MessageCount is the size of the last normalized pass that produced a record.
	MessageCount int
}

// ToggleResult is returned by Toggle.
type ToggleResult struct {
	Success     bool `json:"success"`
	IsCapturing bool `json:"is_capturing"`
}

// CaptureNowResult is returned by CaptureNow. ID is set when the record was stored.
type CaptureNowResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Status is returned by Status.
type Status struct {
	Session        string     `json:"session"`
	Source         string     `json:"source"`
	IsCapturing    bool       `json:"is_capturing"`
	MessageCount   int        `json:"message_count"`
	ConversationID string     `json:"conversation_id,omitempty"`
	URL            string     `json:"url,omitempty"`
	Phase          string     `json:"phase"`
	LastCaptureAt  *time.Time `json:"last_capture_at,omitempty"`
}
