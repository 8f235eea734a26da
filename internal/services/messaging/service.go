// Package messaging holds Messenger implementations that are not a transport,
// and the operator notifier for failures users should not see.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/interfaces"
)

// LogMessenger implements interfaces.Messenger by logging instead of sending.
// Used for dry runs.
type LogMessenger struct {
	logger arbor.ILogger

	mu   sync.Mutex
	sent []Sent
}

// Sent records one message or upload handled by a LogMessenger.
type Sent struct {
	Channel  string
	Text     string
	Filename string
	Size     int
}

var _ interfaces.Messenger = (*LogMessenger)(nil)

// NewLogMessenger creates a dry-run messenger.
func NewLogMessenger(logger arbor.ILogger) *LogMessenger {
	return &LogMessenger{logger: logger}
}

// SendText logs the message.
func (m *LogMessenger) SendText(ctx context.Context, channel, text string) error {
	m.mu.Lock()
	m.sent = append(m.sent, Sent{Channel: channel, Text: text})
	m.mu.Unlock()

	m.logger.Info().
		Str("channel", channel).
		Str("text", text).
		Msg("[dry-run] message")
	return nil
}

// UploadFile logs the upload without reading the content further.
func (m *LogMessenger) UploadFile(ctx context.Context, channel string, content []byte, filename string) error {
	m.mu.Lock()
	m.sent = append(m.sent, Sent{Channel: channel, Filename: filename, Size: len(content)})
	m.mu.Unlock()

	m.logger.Info().
		Str("channel", channel).
		Str("file", filename).
		Int("bytes", len(content)).
		Msg("[dry-run] upload")
	return nil
}

// Sent returns everything handled so far.
func (m *LogMessenger) Sent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sent(nil), m.sent...)
}

// OperatorNotifier reports failures to the log and, when configured, to an
// operator channel separate from the report channel.
type OperatorNotifier struct {
	messenger interfaces.Messenger
	channel   string
	logger    arbor.ILogger
}

// NewOperatorNotifier creates a notifier. An empty channel means log only.
func NewOperatorNotifier(messenger interfaces.Messenger, channel string, logger arbor.ILogger) *OperatorNotifier {
	return &OperatorNotifier{messenger: messenger, channel: strings.TrimSpace(channel), logger: logger}
}

// Notify logs err for the given run stage and forwards it to the operator channel.
// Forwarding failures are logged and otherwise ignored.
func (n *OperatorNotifier) Notify(ctx context.Context, runID, stage string, err error) {
	if err == nil {
		return
	}

	n.logger.Error().
		Err(err).
		Str("run_id", runID).
		Str("stage", stage).
		Msg("Run stage failed")

	if n.channel == "" || n.messenger == nil {
		return
	}

	text := fmt.Sprintf("⚠️ krxdigest run `%s`: %s failed\n```%s```", runID, stage, err.Error())
	if sendErr := n.messenger.SendText(ctx, n.channel, text); sendErr != nil {
		n.logger.Error().
			Err(sendErr).
			Str("run_id", runID).
			Str("channel", n.channel).
			Msg("Failed to notify operator channel")
	}
}
