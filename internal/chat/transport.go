// Package chat carries user commands in and rendered replies out. The
// core never depends on message formatting beyond plain text.
package chat

import "context"

// Update is one inbound user interaction (command or button press).
type Update struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Transport delivers updates to the orchestrator and sends replies back.
type Transport interface {
	// Updates is closed when the transport shuts down.
	Updates() <-chan Update
	Send(ctx context.Context, chatID int64, text string) error
	Close() error
}
