package dto

// Frame is one topic snapshot as streamed to clients.
type Frame struct {
	Topic   string `json:"topic"`
	Version uint64 `json:"version"`
	Data    any    `json:"data"`
}
