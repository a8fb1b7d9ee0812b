package cartera

// Stage names reported while a run progresses
const (
	StageStarted   = "started"
	StageScoring   = "scoring"
	StageComposing = "composing"
	StageRendering = "rendering"
	StageArchiving = "archiving"
	StageMailing   = "mailing"
	StageDone      = "done"
	StageFailed    = "failed"
)

// ProgressEvent is one step of a report run
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Page    int    `json:"page,omitempty"`
	Total   int    `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

// ProgressSink receives progress events. Publish must not block.
type ProgressSink interface {
	Publish(ev ProgressEvent)
}

// ProgressFunc adapts a function to ProgressSink
type ProgressFunc func(ev ProgressEvent)

func (f ProgressFunc) Publish(ev ProgressEvent) { f(ev) }
