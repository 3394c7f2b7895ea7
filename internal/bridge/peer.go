package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/schema"
)

// DefaultCallTimeout bounds a host to extension call.
const DefaultCallTimeout = 5 * time.Second

// Conn is a message-oriented duplex channel to the extension.
type Conn interface {
	Read() ([]byte, error)
	Write(payload []byte) error
	Close() error
}

// Handler serves traffic initiated by the extension.
type Handler interface {
	HandleEvent(ctx context.Context, name string, params json.RawMessage) error
	HandleRequest(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// Peer multiplexes calls, responses and events over a Conn.
type Peer struct {
	conn    Conn
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan message
	closed  bool
	done    chan struct{}

	handlers sync.WaitGroup
}

// PeerOption configures a Peer.
type PeerOption func(*Peer)

// WithCallTimeout overrides the per-call timeout. Zero disables it.
func WithCallTimeout(timeout time.Duration) PeerOption {
	return func(p *Peer) {
		if timeout >= 0 {
			p.timeout = timeout
		}
	}
}

// NewPeer wraps a connection. Call Run to start processing.
func NewPeer(conn Conn, opts ...PeerOption) *Peer {
	p := &Peer{
		conn:    conn,
		timeout: DefaultCallTimeout,
		pending: make(map[string]chan message),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Run reads from the connection until it closes or ctx is done. Each event
// and request is handled on its own goroutine, so handlers interleave the
// way browser event listeners do. Run returns after all handlers finished.
func (p *Peer) Run(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("bridge handler is required")
	}
	log := pslog.Ctx(ctx)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return p.readLoop(runCtx, handler)
	})
	g.Go(func() error {
		<-gctx.Done()
		p.shutdown()
		return nil
	})
	err := g.Wait()
	p.handlers.Wait()
	if err != nil {
		log.Warn("bridge stopped", "err", err)
		return err
	}
	log.Debug("bridge stopped")
	return nil
}

func (p *Peer) readLoop(ctx context.Context, handler Handler) error {
	log := pslog.Ctx(ctx)
	for {
		payload, err := p.conn.Read()
		if err != nil {
			if errors.Is(err, io.EOF) || p.isClosed() {
				return nil
			}
			return fmt.Errorf("bridge read: %w", err)
		}
		log.Trace("bridge recv", "bytes", len(payload))
		var msg message
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn("bridge dropped malformed message", "err", err)
			continue
		}
		switch {
		case msg.isResponse():
			p.deliver(msg)
		case msg.Event != "":
			p.dispatch(func() {
				if err := handler.HandleEvent(ctx, msg.Event, msg.Params); err != nil {
					log.Debug("bridge event failed", "event", msg.Event, "err", err)
				}
			})
		case msg.Method != "":
			p.dispatch(func() {
				p.serve(ctx, handler, msg)
			})
		default:
			log.Warn("bridge dropped message without method or event")
		}
	}
}

func (p *Peer) dispatch(fn func()) {
	p.handlers.Add(1)
	go func() {
		defer p.handlers.Done()
		fn()
	}()
}

func (p *Peer) serve(ctx context.Context, handler Handler, req message) {
	log := pslog.Ctx(ctx)
	resp := message{ID: req.ID}
	result, err := handler.HandleRequest(ctx, req.Method, req.Params)
	if err != nil {
		resp.Error = remoteErrorFor(err)
	} else {
		data, merr := json.Marshal(result)
		if merr != nil {
			resp.Error = remoteErrorFor(merr)
		} else {
			resp.Result = data
		}
	}
	if req.ID == "" {
		return
	}
	if err := p.send(resp); err != nil {
		log.Debug("bridge response failed", "method", req.Method, "err", err)
	}
}

func (p *Peer) deliver(msg message) {
	p.mu.Lock()
	ch := p.pending[msg.ID]
	delete(p.pending, msg.ID)
	p.mu.Unlock()
	if ch == nil {
		return
	}
	ch <- msg
}

// Call sends a request and decodes the result into out (when non-nil).
func (p *Peer) Call(ctx context.Context, method string, params any, out any) error {
	req := message{ID: uuid.NewString(), Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
		req.Params = data
	}
	ch := make(chan message, 1)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return schema.ErrBridgeClosed
	}
	p.pending[req.ID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, req.ID)
		p.mu.Unlock()
	}()

	if err := p.send(req); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}
	var timeout <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return schema.ErrBridgeClosed
	case <-timeout:
		return fmt.Errorf("%s: %w", method, context.DeadlineExceeded)
	}
}

// Notify sends an event to the extension.
func (p *Peer) Notify(event string, params any) error {
	msg := message{Event: event}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", event, err)
		}
		msg.Params = data
	}
	return p.send(msg)
}

func (p *Peer) send(msg message) error {
	if p.isClosed() {
		return schema.ErrBridgeClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.conn.Write(data)
}

func (p *Peer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Done is closed once the peer shut down.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func (p *Peer) shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()
	_ = p.conn.Close()
}
