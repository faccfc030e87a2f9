package analysis

import (
	"context"
	"time"
)

// Result is the style analysis of one Reel.
type Result struct {
	StyleDescription string    `json:"styleDescription"`
	StyleTags        []string  `json:"styleTags"`
	ReelURL          string    `json:"reelUrl"`
	Timestamp        time.Time `json:"timestamp"`
}

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pinger is implemented by generators that can validate their credential
// without running a full analysis.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response is the interpretation of raw provider text: either Parsed or
// Fallback.
type Response interface {
	isResponse()
}

// Parsed holds fields decoded from a JSON object in the provider text.
type Parsed struct {
	Description string
	Tags        []string
}

// Fallback holds provider text that carried no usable JSON object.
type Fallback struct {
	Text string
}

func (Parsed) isResponse()   {}
func (Fallback) isResponse() {}
