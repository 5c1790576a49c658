package types

import "time"

// ExtractionTask is a transient queue entry describing one conversational
// exchange to mine for memories. Tasks are consumed exactly once by the
// single drain loop and discarded after processing, success or failure —
// never requeued.
type ExtractionTask struct {
	TaskID            string    `json:"task_id"`
	UserID            string    `json:"user_id"`
	UserMessage       string    `json:"user_message"`
	AssistantReply    string    `json:"assistant_reply"`
	RelationshipLevel int       `json:"relationship_level,omitempty"`
	Mood              string    `json:"mood,omitempty"`
	Tags              []string  `json:"tags,omitempty"`
	EnqueuedAt        time.Time `json:"enqueued_at"`
}

// QueueStats are the monotonic counters of the extraction queue. They are
// never reset except by process restart.
type QueueStats struct {
	TotalQueued         int64   `json:"total_queued"`
	TotalProcessed      int64   `json:"total_processed"`
	TotalFailed         int64   `json:"total_failed"`
	AverageProcessingMs float64 `json:"average_processing_time_ms"`
}

// QueueStatus is a point-in-time snapshot of the extraction queue, exposed
// via the operational monitoring endpoint.
type QueueStatus struct {
	QueueSize  int        `json:"queue_size"`
	Processing bool       `json:"processing"`
	Stats      QueueStats `json:"stats"`
}
