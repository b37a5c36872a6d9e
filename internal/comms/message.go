// Package comms delivers in-game messages from NPC agents to the player.
// Delivery is fire-and-forget: sinks log their own failures and the
// simulation never waits on them.
package comms

import (
	"sync"
	"time"
)

type Message struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Attachment string    `json:"attachment,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

type Sink interface {
	ComposeMessage(msg Message)
}

// Compose stamps and sends a message.
func Compose(sink Sink, from, to, subject, body, attachment string) {
	if sink == nil {
		return
	}
	sink.ComposeMessage(Message{
		From:       from,
		To:         to,
		Subject:    subject,
		Body:       body,
		Attachment: attachment,
		SentAt:     time.Now().UTC(),
	})
}

// Fanout sends every message to each sink in turn.
type Fanout []Sink

func (f Fanout) ComposeMessage(msg Message) {
	for _, s := range f {
		if s != nil {
			s.ComposeMessage(msg)
		}
	}
}

// Inbox keeps the most recent messages in memory.
type Inbox struct {
	mu       sync.RWMutex
	capacity int
	messages []Message
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = 1
	}
	return &Inbox{capacity: capacity}
}

func (i *Inbox) ComposeMessage(msg Message) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.messages = append(i.messages, msg)
	if over := len(i.messages) - i.capacity; over > 0 {
		i.messages = append(i.messages[:0:0], i.messages[over:]...)
	}
}

// Messages returns the messages addressed to recipient, oldest first. An
// empty recipient returns everything.
func (i *Inbox) Messages(recipient string) []Message {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]Message, 0, len(i.messages))
	for _, m := range i.messages {
		if recipient == "" || m.To == recipient {
			out = append(out, m)
		}
	}
	return out
}

func (i *Inbox) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.messages)
}
