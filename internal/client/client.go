package client

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ip-05/quizzus-client/internal/game"
	"github.com/ip-05/quizzus-client/internal/protocol"
	"github.com/ip-05/quizzus-client/internal/rest"
)

// Transport is what the client needs from the socket layer.
type Transport interface {
	Connect()
	Send(msg protocol.ClientMessage) error
	Close() error
	OnEvent(fn func(protocol.Event))
	OnDisconnect(fn func(error))
}

type Msg interface{ isClientMsg() }

type frameMsg struct{ ev protocol.Event }

type disconnectedMsg struct{ err error }

type intentMsg struct {
	cmd   game.Command
	reply chan error
}

type subscribeMsg struct {
	id     uuid.UUID
	outbox chan Snapshot
}

type unsubscribeMsg struct{ id uuid.UUID }

type getStateMsg struct{ reply chan Snapshot }

type shutdownMsg struct{}

func (frameMsg) isClientMsg()        {}
func (disconnectedMsg) isClientMsg() {}
func (intentMsg) isClientMsg()       {}
func (subscribeMsg) isClientMsg()    {}
func (unsubscribeMsg) isClientMsg()  {}
func (getStateMsg) isClientMsg()     {}
func (shutdownMsg) isClientMsg()     {}

// Snapshot is what subscribers receive after every state change.
type Snapshot struct {
	Version   int
	Connected bool
	State     game.State
}

type Config struct {
	Transport Transport
	Rest      *rest.Client // optional, only CreateAndJoinRoom needs it
	LocalUser protocol.User
	Logger    *zap.Logger
}

// Client is the session actor: one goroutine owns the game state, and every
// mutation — inbound frame or local intent — passes through its inbox. That
// is the whole concurrency story; the state itself never needs a lock.
type Client struct {
	inbox chan Msg
	tr    Transport
	api   *rest.Client
	log   *zap.Logger

	state     game.State
	version   int
	connected bool
	subs      map[uuid.UUID]chan Snapshot

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)

	c := &Client{
		inbox:     make(chan Msg, 64),
		tr:        cfg.Transport,
		api:       cfg.Rest,
		log:       cfg.Logger.Named("client"),
		state:     game.NewState(cfg.LocalUser),
		connected: true,
		subs:      map[uuid.UUID]chan Snapshot{},
		ctx:       ctx,
		cancel:    cancel,
	}

	c.tr.OnEvent(func(ev protocol.Event) {
		select {
		case c.inbox <- frameMsg{ev: ev}:
		case <-c.ctx.Done():
		}
	})
	c.tr.OnDisconnect(func(err error) {
		select {
		case c.inbox <- disconnectedMsg{err: err}:
		case <-c.ctx.Done():
		}
	})

	go c.loop()
	c.tr.Connect()
	return c
}

func (c *Client) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case frameMsg:
				next, changed := game.HandleEvent(c.state, msg.ev)
				if !changed {
					break
				}
				c.state = next
				c.version++
				c.broadcast()

			case disconnectedMsg:
				if !c.connected {
					break
				}
				c.log.Warn("disconnected", zap.Error(msg.err))
				c.connected = false
				c.version++
				c.broadcast()

			case intentMsg:
				msgs, next, err := game.Apply(c.state, msg.cmd)
				if err != nil {
					msg.reply <- err
					break
				}
				var sendErr error
				for _, out := range msgs {
					if sendErr = c.tr.Send(out); sendErr != nil {
						break
					}
				}
				if sendErr != nil {
					msg.reply <- sendErr
					break
				}
				c.state = next
				c.version++
				c.broadcast()
				msg.reply <- nil

			case subscribeMsg:
				c.subs[msg.id] = msg.outbox
				msg.outbox <- c.snapshot()

			case unsubscribeMsg:
				if ch, ok := c.subs[msg.id]; ok {
					close(ch)
					delete(c.subs, msg.id)
				}

			case getStateMsg:
				msg.reply <- c.snapshot()

			case shutdownMsg:
				c.shutdown()
				return
			}
		}
	}
}

func (c *Client) snapshot() Snapshot {
	return Snapshot{Version: c.version, Connected: c.connected, State: c.state}
}

func (c *Client) broadcast() {
	snap := c.snapshot()
	for id, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Subscriber stopped draining; drop them.
			close(ch)
			delete(c.subs, id)
		}
	}
}

func (c *Client) shutdown() {
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	_ = c.tr.Close()
	c.cancel()
	c.drain()
}

// drain answers whatever was queued behind the shutdown, so no caller is
// left waiting on a reply that will never come.
func (c *Client) drain() {
	for {
		select {
		case m := <-c.inbox:
			switch msg := m.(type) {
			case intentMsg:
				msg.reply <- context.Canceled
			case getStateMsg:
				msg.reply <- c.snapshot()
			case subscribeMsg:
				close(msg.outbox)
			}
		default:
			return
		}
	}
}

// Subscribe registers a state listener. The current snapshot arrives first,
// then one per change. The returned func unsubscribes.
func (c *Client) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 8
	}
	id := uuid.New()
	out := make(chan Snapshot, buffer)
	if c.ctx.Err() != nil {
		close(out)
		return out, func() {}
	}
	select {
	case c.inbox <- subscribeMsg{id: id, outbox: out}:
	case <-c.ctx.Done():
		close(out)
	}
	return out, func() {
		select {
		case c.inbox <- unsubscribeMsg{id: id}:
		case <-c.ctx.Done():
		}
	}
}

// State returns a point-in-time snapshot, routed through the loop so it
// never races a mutation.
func (c *Client) State() Snapshot {
	reply := make(chan Snapshot, 1)
	select {
	case c.inbox <- getStateMsg{reply: reply}:
	case <-c.ctx.Done():
		return Snapshot{}
	}
	// The loop may have stopped between the enqueue and the answer.
	select {
	case snap := <-reply:
		return snap
	case <-c.ctx.Done():
		return Snapshot{}
	}
}

// Close tears down the session and the socket under it. Leaving a game
// screen means calling this; the transport does not outlive the membership.
func (c *Client) Close() {
	select {
	case c.inbox <- shutdownMsg{}:
	case <-c.ctx.Done():
	}
}

func (c *Client) Done() <-chan struct{} { return c.ctx.Done() }
