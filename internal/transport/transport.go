package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/ip-05/quizzus-client/internal/protocol"
)

var ErrClosed = errors.New("transport closed")

const (
	defaultPingInterval = 15 * time.Second
	writeTimeout        = 3 * time.Second
)

// wsConn is the slice of *websocket.Conn the transport touches, so tests
// can swap in a fake.
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Stubbed in tests.
var dialWS = func(ctx context.Context, endpoint string) (wsConn, error) {
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Config struct {
	Endpoint     string // ws(s)://host/ws
	Token        string // bearer token, travels as a query parameter
	PingInterval time.Duration
	Logger       *zap.Logger
}

// Transport owns one long-lived websocket connection. Sends issued before
// the dial completes are buffered FIFO and flushed exactly once on open.
// One Transport per room membership; Close tears it down for good.
type Transport struct {
	cfg Config
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    wsConn
	open    bool
	closed  bool
	pending [][]byte

	onEvent      func(protocol.Event)
	onDisconnect func(error)
}

func New(cfg Config) *Transport {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		cfg:    cfg,
		log:    cfg.Logger.Named("transport"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnEvent registers the inbound event callback. Must be set before Connect.
func (t *Transport) OnEvent(fn func(protocol.Event)) { t.onEvent = fn }

// OnDisconnect registers the callback fired once when the connection drops
// unexpectedly. Not fired on a local Close.
func (t *Transport) OnDisconnect(fn func(error)) { t.onDisconnect = fn }

// Connect starts dialing in the background and returns immediately. Use
// Send freely in the meantime; frames queue until the socket opens.
func (t *Transport) Connect() {
	go t.run()
}

func (t *Transport) run() {
	endpoint, err := t.endpointURL()
	if err != nil {
		t.log.Error("bad endpoint", zap.Error(err))
		t.disconnect(err)
		return
	}

	conn, err := dialWS(t.ctx, endpoint)
	if err != nil {
		t.log.Error("dial failed", zap.Error(err))
		t.disconnect(err)
		return
	}

	if !t.attach(conn) {
		// Closed while dialing, or the queued-frame flush failed.
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
		return
	}
	t.log.Info("socket connected")

	go t.pingLoop()
	t.readLoop(conn)
}

// attach installs the connection and flushes the pre-open queue in order,
// all under the send lock so nothing can interleave.
func (t *Transport) attach(conn wsConn) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false
	}
	t.conn = conn
	for _, frame := range t.pending {
		if err := t.write(conn, frame); err != nil {
			// The queue promised delivery; a half-flushed queue is a dead
			// connection, not a quiet shrug.
			t.pending = nil
			t.mu.Unlock()
			t.log.Error("flush failed", zap.Error(err))
			t.disconnect(err)
			return false
		}
	}
	t.pending = nil
	t.open = true
	t.mu.Unlock()
	return true
}

// Send encodes and ships one outbound message. Before the connection is
// open the frame is queued, never dropped.
func (t *Transport) Send(msg protocol.ClientMessage) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Message, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if !t.open {
		t.pending = append(t.pending, frame)
		return nil
	}
	return t.write(t.conn, frame)
}

// write assumes t.mu is held; the lock doubles as the single-writer
// guarantee the websocket needs.
func (t *Transport) write(conn wsConn, frame []byte) error {
	ctx, cancel := context.WithTimeout(t.ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}

func (t *Transport) readLoop(conn wsConn) {
	for {
		_, data, err := conn.Read(t.ctx)
		if err != nil {
			if t.ctx.Err() != nil {
				// Local close, nothing to report.
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				t.log.Info("socket closed by peer")
			default:
				t.log.Warn("socket read failed", zap.Error(err))
			}
			t.disconnect(err)
			return
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			// One corrupt or unknown frame never tears the connection down.
			if errors.Is(err, protocol.ErrUnknownMessage) {
				t.log.Debug("ignoring frame", zap.Error(err))
			} else {
				t.log.Warn("dropping frame", zap.Error(err))
			}
			continue
		}
		if t.onEvent != nil {
			t.onEvent(ev)
		}
	}
}

func (t *Transport) pingLoop() {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			if err := t.Send(protocol.MessageOnly(protocol.TagPing)); err != nil {
				return
			}
		}
	}
}

// disconnect marks the transport dead and notifies once.
func (t *Transport) disconnect(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.open = false
	t.mu.Unlock()

	t.cancel()
	if t.onDisconnect != nil {
		t.onDisconnect(err)
	}
}

// Close shuts the connection down and stops the keepalive. Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.open = false
	conn := t.conn
	t.mu.Unlock()

	t.cancel()
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "bye")
	}
	return nil
}

func (t *Transport) endpointURL() (string, error) {
	u, err := url.Parse(t.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", t.cfg.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
