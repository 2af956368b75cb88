package client

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"medichat/internal/modules/chat"
)

// Stream keeps a websocket subscription to the broadcast channel alive,
// feeding every CHAT_UPDATE into the reconciler. On connection loss it
// reconnects with exponential backoff (1s base, 30s cap, uncapped attempts)
// and replaces the transport handle. Missed events are not replayed; callers
// refetch the history after a reconnect, which is what SetSessions is for.
//
// The access token is read from the provider on every dial, so a reconnect
// after the token's TTL lapsed presents the refreshed credential instead of
// the one that was live at construction time.
type Stream struct {
	url   string
	token func() string
	rec   *Reconciler

	// OnStateChange, when set, receives connected/disconnected transitions
	// so a UI can show a soft "connection issues" indicator.
	OnStateChange func(connected bool)

	dialer *websocket.Dialer
}

func NewStream(url string, token func() string, rec *Reconciler) *Stream {
	return &Stream{
		url:    url,
		token:  token,
		rec:    rec,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run connects and reads until ctx is cancelled. It only returns on
// cancellation; transport failures reconnect forever.
func (s *Stream) Run(ctx context.Context) error {
	bo := newBackoff()

	for {
		conn, err := s.dial(ctx)
		if err == nil {
			bo.reset()
			s.setState(true)
			s.readLoop(ctx, conn)
			s.setState(false)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.next()):
		}
	}
}

func (s *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.token != nil {
		header.Set("Cookie", "accessToken="+s.token())
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// readLoop consumes frames until the connection drops. Ping frames from the
// server's liveness probe are answered by the dialer's default ping handler
// during the read.
func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var frame chat.Envelope
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type != chat.EnvelopeTypeChatUpdate {
			continue
		}
		s.rec.ApplyEvent(frame.Data)
	}
}

func (s *Stream) setState(connected bool) {
	if s.OnStateChange != nil {
		s.OnStateChange(connected)
	}
}
