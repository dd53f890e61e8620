package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// FakeDialer hands out FakeConns. It is meant for tests.
type FakeDialer struct {
	mu    sync.Mutex
	conns []*FakeConn
	urls  []string
	errs  []error
	// dialed receives every successful or failed dial attempt.
	dialed chan struct{}
}

// NewFakeDialer returns a dialer whose dials succeed unless FailNext was called.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{dialed: make(chan struct{}, 64)}
}

// FailNext makes the next dial return err.
func (d *FakeDialer) FailNext(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, err)
}

// Dial implements Dialer.
func (d *FakeDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, rawURL)
	var err error
	if len(d.errs) > 0 {
		err, d.errs = d.errs[0], d.errs[1:]
	}
	var conn *FakeConn
	if err == nil {
		conn = NewFakeConn()
		d.conns = append(d.conns, conn)
	}
	d.mu.Unlock()
	defer func() {
		select {
		case d.dialed <- struct{}{}:
		default:
		}
	}()
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return conn, nil
}

// Dialed is signalled after every dial attempt.
func (d *FakeDialer) Dialed() <-chan struct{} {
	return d.dialed
}

// Conns returns every connection handed out, oldest first.
func (d *FakeDialer) Conns() []*FakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*FakeConn, len(d.conns))
	copy(out, d.conns)
	return out
}

// Last returns the most recent connection, or nil.
func (d *FakeDialer) Last() *FakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// URLs returns every URL dialed.
func (d *FakeDialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.urls))
	copy(out, d.urls)
	return out
}

// FakeConn is an in-memory Conn. Frames pushed with Push are returned by
// ReadMessage; frames written by the client are recorded.
type FakeConn struct {
	mu        sync.Mutex
	inbound   chan []byte
	done      chan struct{}
	readErr   error
	written   [][]byte
	closed    bool
	closeCode int
	writeErr  error
}

// NewFakeConn returns an open connection.
func NewFakeConn() *FakeConn {
	return &FakeConn{
		inbound: make(chan []byte, 256),
		done:    make(chan struct{}),
	}
}

// Push queues a frame from the server.
func (c *FakeConn) Push(frame string) {
	c.inbound <- []byte(frame)
}

// ServerClose makes the pending read fail with the given close code.
func (c *FakeConn) ServerClose(code int) {
	c.terminate(&websocket.CloseError{Code: code})
}

// Drop makes the pending read fail as if the network went away.
func (c *FakeConn) Drop() {
	c.terminate(errors.New("connection reset by peer"))
}

// FailWrites makes subsequent writes fail with err.
func (c *FakeConn) FailWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *FakeConn) terminate(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return
	}
	c.readErr = err
	close(c.done)
}

// ReadMessage implements Conn. Queued frames are delivered before a close.
func (c *FakeConn) ReadMessage() ([]byte, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	default:
	}
	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.readErr
	}
}

// WriteMessage implements Conn.
func (c *FakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed connection")
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

// Close implements Conn.
func (c *FakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.closeCode = code
	c.mu.Unlock()
	c.terminate(&websocket.CloseError{Code: code, Text: reason})
	return nil
}

// Written returns the frames written so far as strings.
func (c *FakeConn) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	for i, w := range c.written {
		out[i] = string(w)
	}
	return out
}

// ResetWritten forgets recorded frames.
func (c *FakeConn) ResetWritten() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = nil
}

// Closed reports whether the client closed the connection and with which code.
func (c *FakeConn) Closed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}
