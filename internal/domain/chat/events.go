package chat

// Event bus topics published by the orchestrator.
const (
	TopicProgress  = "chat.progress"
	TopicCompleted = "chat.completed"
	TopicFailed    = "chat.failed"
)

// ProgressEvent is a heuristic progress tick for one turn. Progress runs
// from 0 to 100 against a fixed total of 100; callers must not assume linearity.
type ProgressEvent struct {
	TaskID         string
	ConversationID string
	Progress       int
	Total          int
}

// TurnEvent reports the terminal state of a turn on TopicCompleted or
// TopicFailed.
type TurnEvent struct {
	TaskID         string
	ConversationID string
	Status         Status
	Error          string
}
