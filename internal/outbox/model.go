package outbox

import "time"

type Record struct {
	ID          string    `json:"id"`
	From        string    `json:"from"`
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	Size        int       `json:"size"`
	SubmittedAt time.Time `json:"submitted_at"`
}
