// Package transport opens WebSocket connections to the alert server.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes used by the client.
const (
	CloseNormal   = websocket.CloseNormalClosure   // 1000
	CloseAbnormal = websocket.CloseAbnormalClosure // 1006
)

// Conn is one live connection. ReadMessage is called from a single goroutine;
// WriteMessage and Close may be called concurrently with it.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close(code int, reason string) error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// CloseCode extracts the close code from a read error. Errors that are not
// close frames, such as network failures, map to CloseAbnormal.
func CloseCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CloseAbnormal
}

// Endpoint locates the server's WebSocket route.
type Endpoint struct {
	Host string
	// Secure selects wss instead of ws.
	Secure bool
	// Path defaults to /ws.
	Path string
}

// URL builds the connection URL with the token as a query parameter.
func (e Endpoint) URL(token string) string {
	scheme := "ws"
	if e.Secure {
		scheme = "wss"
	}
	path := e.Path
	if path == "" {
		path = "/ws"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     e.Host,
		Path:     path,
		RawQuery: url.Values{"token": {token}}.Encode(),
	}
	return u.String()
}

// Validate reports configuration errors.
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Host) == "" {
		return errors.New("endpoint host is empty")
	}
	if strings.Contains(e.Host, "://") {
		return fmt.Errorf("endpoint host %q must not include a scheme", e.Host)
	}
	return nil
}

// GorillaDialer dials with gorilla/websocket.
type GorillaDialer struct {
	HandshakeTimeout time.Duration
	// WriteTimeout bounds each write. Zero means 10s.
	WriteTimeout time.Duration
	Header       http.Header
}

// Dial implements Dialer.
func (d GorillaDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, rawURL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &gorillaConn{conn: conn, writeTimeout: writeTimeout}, nil
}

type gorillaConn struct {
	conn         *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func (c *gorillaConn) ReadMessage() ([]byte, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *gorillaConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and tears the socket down. The pending read
// returns an error afterwards.
func (c *gorillaConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
