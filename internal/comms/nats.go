package comms

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes every message on <prefix>.messages.<recipient>.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

func ConnectNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	logger = logger.With("component", "nats", "operation", "connect")
	logger.Debug("Connecting to NATS", "url", url)

	nc, err := nats.Connect(url,
		nats.Name("astral-server"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS connection established")
	return nc, nil
}

func NewNATSSink(conn *nats.Conn, prefix string, logger *slog.Logger) *NATSSink {
	logger.Debug("Initializing NATS message sink")

	return &NATSSink{
		conn:   conn,
		prefix: prefix,
		logger: logger.With("component", "nats_sink"),
	}
}

// Subject maps a recipient name onto a single NATS subject token.
func Subject(prefix, recipient string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>', '\t':
			return '_'
		}
		return r
	}, recipient)
	if token == "" {
		token = "_"
	}
	return fmt.Sprintf("%s.messages.%s", prefix, token)
}

func (s *NATSSink) ComposeMessage(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to encode message", "error", err)
		return
	}
	subject := Subject(s.prefix, msg.To)
	if err := s.conn.Publish(subject, payload); err != nil {
		s.logger.Warn("Failed to publish message", "subject", subject, "error", err)
	}
}
