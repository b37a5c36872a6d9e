package comms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxKeepsMostRecent(t *testing.T) {
	inbox := NewInbox(3)
	for _, subject := range []string{"one", "two", "three", "four"} {
		Compose(inbox, "Agent", "Captain", subject, "body", "")
	}
	Compose(inbox, "Agent", "Someone Else", "five", "body", "")

	got := inbox.Messages("Captain")
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Subject)
	assert.Equal(t, "four", got[1].Subject)
	assert.Len(t, inbox.Messages(""), 3)
	assert.False(t, got[0].SentAt.IsZero())
}

func TestFanoutDeliversToEverySink(t *testing.T) {
	a, b := NewInbox(10), NewInbox(10)
	sink := Fanout{a, nil, b}

	Compose(sink, "Agent", "Captain", "Mission Completed", "Payment transfered. Have a nice day.", "m-1")

	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, "m-1", b.Messages("Captain")[0].Attachment)
}

func TestComposeNilSink(t *testing.T) {
	assert.NotPanics(t, func() { Compose(nil, "a", "b", "c", "d", "") })
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "astral.messages.Captain_Jo", Subject("astral", "Captain Jo"))
	assert.Equal(t, "astral.messages.a_b_c", Subject("astral", "a.b>c"))
	assert.Equal(t, "astral.messages._", Subject("astral", ""))
}

func TestInboxKey(t *testing.T) {
	assert.Equal(t, "astral:inbox:Captain", InboxKey("Captain"))
}
