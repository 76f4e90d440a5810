// Package chat moves chat lines between the agent and its requesters.
package chat

import (
	"context"
	"strings"
	"time"
)

// Message is one inbound chat line.
type Message struct {
	From string    `json:"from"`
	Text string    `json:"text"`
	Time time.Time `json:"time,omitempty"`
}

// Transport delivers inbound messages and sends outbound lines.
type Transport interface {
	// Receive returns a channel of inbound messages. It is closed when ctx
	// is done or the underlying source ends.
	Receive(ctx context.Context) (<-chan Message, error)
	Send(ctx context.Context, text string) error
	Close() error
}

// ParseLine splits "name: text" into a Message. Lines without a speaker are
// attributed to fallback.
func ParseLine(line, fallback string) Message {
	line = strings.TrimSpace(line)
	if i := strings.Index(line, ":"); i > 0 {
		from := strings.TrimSpace(line[:i])
		if from != "" && !strings.ContainsAny(from, " \t") {
			return Message{From: from, Text: strings.TrimSpace(line[i+1:])}
		}
	}
	return Message{From: fallback, Text: line}
}
