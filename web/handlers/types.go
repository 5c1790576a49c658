package handlers

// TurnRequest is one completed conversational exchange submitted for
// background memory extraction.
type TurnRequest struct {
	UserID            string   `json:"user_id"`
	UserMessage       string   `json:"user_message"`
	AssistantReply    string   `json:"assistant_reply"`
	RelationshipLevel int      `json:"relationship_level,omitempty"`
	Mood              string   `json:"mood,omitempty"`
	Tags              []string `json:"tags,omitempty"`
}

// TurnResponse acknowledges an accepted extraction task.
type TurnResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// RecallRequest asks for the memories most relevant to a message.
type RecallRequest struct {
	UserID        string  `json:"user_id"`
	Message       string  `json:"message"`
	Limit         int     `json:"limit,omitempty"`
	MinImportance float64 `json:"min_importance,omitempty"`
}

// RecalledMemory is one recalled record, shaped for prompt injection.
type RecalledMemory struct {
	Content    string  `json:"content"`
	MemoryType string  `json:"memory_type"`
	Importance float64 `json:"importance"`
	Similarity float64 `json:"similarity"`
}

// RecallResponse carries the ranked recall results.
type RecallResponse struct {
	Memories []RecalledMemory `json:"memories"`
	Count    int              `json:"count"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}
