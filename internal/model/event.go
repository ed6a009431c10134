package model

// Phase names one state of the generation state machine.
type Phase string

const (
	PhaseInit            Phase = "init"
	PhaseSERPAnalysis    Phase = "serp_analysis"
	PhaseKeywordResearch Phase = "keyword_research"
	PhaseOutline         Phase = "outline"
	PhaseArticle         Phase = "article"
	PhaseDone            Phase = "done"
	PhaseError           Phase = "error"
)

// EventType tags a StreamEvent.
type EventType string

const (
	EventProgress EventType = "progress"
	EventChunk    EventType = "chunk"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// StreamEvent is one record of a streaming run. Exactly one payload field
// is set, matching Type.
type StreamEvent struct {
	Type     EventType
	Progress *ProgressData
	Chunk    *ChunkData
	Result   *GenerationResult
	Error    *ErrorData
}

// ProgressData is the payload of a progress event.
type ProgressData struct {
	Phase   Phase  `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ChunkData is the payload of a chunk event.
type ChunkData struct {
	Text string `json:"text"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Terminal reports whether e ends a stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Payload returns the value serialized as the event's data line.
func (e StreamEvent) Payload() any {
	switch e.Type {
	case EventProgress:
		return e.Progress
	case EventChunk:
		return e.Chunk
	case EventComplete:
		return e.Result
	case EventError:
		return e.Error
	}
	return nil
}

// ProgressEvent builds a progress event.
func ProgressEvent(phase Phase, percent int, message string) StreamEvent {
	return StreamEvent{Type: EventProgress, Progress: &ProgressData{Phase: phase, Percent: percent, Message: message}}
}

// ChunkEvent builds a chunk event.
func ChunkEvent(text string) StreamEvent {
	return StreamEvent{Type: EventChunk, Chunk: &ChunkData{Text: text}}
}

// CompleteEvent builds the terminal success event.
func CompleteEvent(result GenerationResult) StreamEvent {
	return StreamEvent{Type: EventComplete, Result: &result}
}

// ErrorEvent builds the terminal failure event from err.
func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Type: EventError, Error: &ErrorData{Code: CodeOf(err), Message: MessageOf(err)}}
}
