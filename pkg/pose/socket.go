package pose

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-facedrive/internal/log"
)

const handshakeTimeout = 5 * time.Second

// SocketSource receives pose samples from the perception process over a
// websocket. The perception side pushes one JSON sample per processed frame;
// a background reader keeps only the most recent sample so the control loop
// never works on stale backlog.
//
// Connection loss is not an error surfaced to the caller: Next simply stops
// yielding samples, which feeds the safety monitor's signal-loss timer, and
// the reader redials with backoff until the stream returns.
type SocketSource struct {
	url     string
	backoff time.Duration
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	conn     *websocket.Conn
	latest   Sample
	seq      uint64
	consumed uint64
}

// NewSocketSource dials the perception endpoint and starts the reader.
func NewSocketSource(url string, backoff time.Duration) *SocketSource {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SocketSource{
		url:     url,
		backoff: backoff,
		logger:  log.Component("pose"),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.readLoop(ctx)
	return s
}

// Next returns the most recent sample not yet consumed.
// It never blocks; false means no new frame since the last call.
func (s *SocketSource) Next() (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == s.consumed {
		return Sample{}, false
	}
	s.consumed = s.seq
	return s.latest, true
}

// Close stops the reader and closes the connection. Closing the live
// connection is what unblocks a reader parked in ReadMessage; context
// cancellation alone would leave it waiting on an idle peer forever.
func (s *SocketSource) Close() error {
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
	return nil
}

func (s *SocketSource) readLoop(ctx context.Context) {
	defer close(s.done)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dial(ctx)
		if err != nil {
			s.logger.Warn("connect failed", "url", s.url, "error", err)
			if !sleepCtx(ctx, s.backoff) {
				return
			}
			continue
		}

		s.mu.Lock()
		if ctx.Err() != nil {
			// Close raced the dial; it owns shutdown from here.
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()

		s.logger.Info("connected", "url", s.url)
		s.readConn(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("disconnected, reconnecting", "url", s.url)
		if !sleepCtx(ctx, s.backoff) {
			return
		}
	}
}

func (s *SocketSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	return conn, err
}

func (s *SocketSource) readConn(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var sample Sample
		if err := json.Unmarshal(data, &sample); err != nil {
			// A malformed frame counts as no sample for this tick.
			s.logger.Debug("dropped malformed frame", "error", err)
			continue
		}
		if sample.T.IsZero() {
			sample.T = time.Now()
		}

		s.mu.Lock()
		s.latest = sample
		s.seq++
		s.mu.Unlock()
	}
}

// sleepCtx waits for d or context cancellation, reporting whether to continue.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
