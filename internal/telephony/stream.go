package telephony

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds one outbound frame write so a stalled peer cannot
// wedge the caller pushing audio through this stream.
const writeTimeout = 5 * time.Second

// Compile-time interface check.
var _ OutboundConn = (*MediaStream)(nil)

// MediaStream is the outbound half of a provider media-stream websocket. It
// pushes media frames to the caller; it does not own the connection, which
// the inbound read loop closes when the provider disconnects.
type MediaStream struct {
	conn     *websocket.Conn
	streamID string

	mu     sync.Mutex
	closed bool
}

// NewMediaStream wraps an accepted media-stream connection.
func NewMediaStream(conn *websocket.Conn, streamID string) *MediaStream {
	return &MediaStream{conn: conn, streamID: streamID}
}

// StreamID returns the provider's stream identifier.
func (m *MediaStream) StreamID() string { return m.streamID }

// SendMedia pushes one opaque audio payload to the caller as a media frame.
// The payload bytes are base64-encoded for the wire; they are never
// inspected or transformed.
func (m *MediaStream) SendMedia(payload []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("telephony: media stream closed")
	}
	m.mu.Unlock()

	frame := wireFrame{
		Event:     "media",
		StreamSid: m.streamID,
		Media:     &mediaFrame{Payload: base64.StdEncoding.EncodeToString(payload)},
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("telephony: marshal media frame: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := m.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("telephony: write media frame: %w", err)
	}
	return nil
}

// markClosed flags the stream so later SendMedia calls fail fast instead of
// writing to a dead connection.
func (m *MediaStream) markClosed() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
