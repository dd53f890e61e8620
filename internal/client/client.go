// Package client is the connection state machine of the alert client. It
// owns the transport, reconnect scheduler, heartbeat, subscription registry
// and dispatcher, and feeds decoded alerts into an inbox.
//
// Lifecycle: New, then Start to connect, Stop to disconnect and Close to
// dispose. No API call blocks on the network.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1063537326/video-warning-0127/internal/clock"
	"github.com/1063537326/video-warning-0127/internal/dispatch"
	"github.com/1063537326/video-warning-0127/internal/domain"
	"github.com/1063537326/video-warning-0127/internal/heartbeat"
	"github.com/1063537326/video-warning-0127/internal/hooks"
	"github.com/1063537326/video-warning-0127/internal/inbox"
	"github.com/1063537326/video-warning-0127/internal/logging"
	"github.com/1063537326/video-warning-0127/internal/metrics"
	"github.com/1063537326/video-warning-0127/internal/protocol"
	"github.com/1063537326/video-warning-0127/internal/reconnect"
	"github.com/1063537326/video-warning-0127/internal/subscription"
	"github.com/1063537326/video-warning-0127/internal/transport"
)

// MaxNotices is how many system notices are kept.
const MaxNotices = 20

const defaultDialTimeout = 10 * time.Second

// Events are optional callbacks for state the client observes. They run on
// the read goroutine, after the client has updated its own state.
type Events struct {
	OnState       func(domain.ConnectionState)
	OnAlert       func(n *domain.Notification, out inbox.Outcome)
	OnCamera      func(domain.CameraStatus)
	OnEngine      func(domain.EngineStatus)
	OnNotice      func(domain.SystemNotice)
	OnServerError func(protocol.ServerError)
}

// Options configures a Client.
type Options struct {
	Endpoint    transport.Endpoint
	Credentials transport.CredentialProvider
	// Dialer defaults to transport.GorillaDialer.
	Dialer transport.Dialer
	Clock  clock.Clock
	Logger logging.Logger
	// Metrics, Hooks and Inbox may be nil. A nil Inbox gets a default one.
	Metrics *metrics.Metrics
	Hooks   *hooks.Runner
	Inbox   *inbox.Inbox

	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	HeartbeatInterval    time.Duration
	DialTimeout          time.Duration
	// Location interprets zone-less alert timestamps. Defaults to time.Local.
	Location *time.Location
	// Cameras is the initial subscription set.
	Cameras []int
	Events  Events
}

// Client is safe for concurrent use.
type Client struct {
	endpoint    transport.Endpoint
	creds       transport.CredentialProvider
	dialer      transport.Dialer
	dialTimeout time.Duration
	clock       clock.Clock
	log         logging.Logger
	metrics     *metrics.Metrics
	hooks       *hooks.Runner
	inbox       *inbox.Inbox
	events      Events
	session     string

	dispatcher *dispatch.Dispatcher
	registry   *subscription.Registry
	sched      *reconnect.Scheduler
	beat       *heartbeat.Monitor
	decoder    protocol.AlertDecoder

	mu         sync.Mutex
	state      domain.ConnectionState
	conn       transport.Conn
	gen        uint64
	cancelDial context.CancelFunc
	disposed   bool
	clientID   string
	last       *protocol.Envelope
	cameras    map[int]domain.CameraStatus
	engine     *domain.EngineStatus
	notices    []domain.SystemNotice
}

// New builds a disconnected client.
func New(opts Options) *Client {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Dialer == nil {
		opts.Dialer = transport.GorillaDialer{}
	}
	if opts.Credentials == nil {
		opts.Credentials = transport.StaticToken("")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	session := uuid.NewString()
	log := opts.Logger.With("session", session)
	if opts.Inbox == nil {
		opts.Inbox = inbox.New(inbox.Options{Logger: log, Now: opts.Clock.Now})
	}

	c := &Client{
		endpoint:    opts.Endpoint,
		creds:       opts.Credentials,
		dialer:      opts.Dialer,
		dialTimeout: opts.DialTimeout,
		clock:       opts.Clock,
		log:         log,
		metrics:     opts.Metrics,
		hooks:       opts.Hooks,
		inbox:       opts.Inbox,
		events:      opts.Events,
		session:     session,
		dispatcher:  dispatch.New(log),
		sched: reconnect.New(reconnect.Options{
			Base:        opts.ReconnectInterval,
			MaxAttempts: opts.MaxReconnectAttempts,
			Clock:       opts.Clock,
		}),
		beat:    heartbeat.New(opts.HeartbeatInterval, opts.Clock),
		decoder: protocol.AlertDecoder{Now: opts.Clock.Now, Location: opts.Location},
		cameras: make(map[int]domain.CameraStatus),
	}
	c.registry = subscription.New(c.Send)
	c.registry.Subscribe(opts.Cameras...)
	c.installBuiltins()
	c.metrics.SetConnectionState(domain.Disconnected)
	if opts.Metrics != nil {
		opts.Metrics.SetUnread(c.inbox.UnreadCount())
		c.inbox.OnUnreadChange(opts.Metrics.SetUnread)
	}
	return c
}

// Start connects. It is Connect under its lifecycle name.
func (c *Client) Start() { c.Connect() }

// Stop disconnects without scheduling a reconnect.
func (c *Client) Stop() { c.Disconnect() }

// Close disconnects and disposes the client. Afterwards Connect is a no-op
// and every handler is removed.
func (c *Client) Close() {
	c.Disconnect()
	c.mu.Lock()
	c.disposed = true
	c.mu.Unlock()
	c.dispatcher.Clear()
	for _, typ := range builtinTypes {
		c.dispatcher.SetBuiltin(typ, nil)
	}
	c.log.Debug("client disposed")
}

// Connect opens the connection in the background. It does nothing while a
// connection is up or being opened, or after Close.
func (c *Client) Connect() {
	c.connect(0, false)
}

// reconnect is the reconnect timer callback. It only connects if nothing
// has connected or disconnected since the timer was armed.
func (c *Client) reconnect(gen uint64) {
	c.connect(gen, true)
}

func (c *Client) connect(armedAt uint64, fromTimer bool) {
	c.mu.Lock()
	if c.disposed || c.state != domain.Disconnected || (fromTimer && armedAt != c.gen) {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelDial = cancel
	c.state = domain.Connecting
	c.mu.Unlock()

	c.stateChanged(domain.Connecting)
	go c.dial(ctx, gen)
}

func (c *Client) dial(ctx context.Context, gen uint64) {
	var conn transport.Conn
	token, err := c.creds.Token(ctx)
	if err == nil {
		url := c.endpoint.URL(token)
		c.log.Debug("dialing", "url", url)
		dctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
		conn, err = c.dialer.Dial(dctx, url)
		cancel()
	}

	c.mu.Lock()
	if gen != c.gen || c.disposed {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close(transport.CloseNormal, "superseded")
		}
		return
	}
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if err != nil {
		c.state = domain.Disconnected
		c.mu.Unlock()
		c.log.Warn("connect failed", "error", err)
		c.stateChanged(domain.Disconnected)
		c.scheduleReconnect(gen, transport.CloseAbnormal)
		return
	}
	c.conn = conn
	c.state = domain.Connected
	c.sched.Reset()
	c.beat.Start(func() { c.Send(protocol.Ping()) })
	c.mu.Unlock()

	c.log.Info("connected", "host", c.endpoint.Host)
	go c.readLoop(conn, gen)
	c.stateChanged(domain.Connected)
	c.registry.Resync()
}

func (c *Client) readLoop(conn transport.Conn, gen uint64) {
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			c.connectionLost(gen, transport.CloseCode(err), err)
			return
		}
		env, err := protocol.DecodeEnvelope(raw)
		if err != nil {
			c.metrics.DecodeFailure()
			c.log.Warn("dropping malformed frame", "error", err)
			continue
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.last = &env
		c.mu.Unlock()

		c.metrics.FrameReceived(env.Type)
		c.dispatcher.Dispatch(env)
	}
}

// connectionLost handles a read failure on the live connection. Connections
// the client closed itself have a stale generation and are ignored.
func (c *Client) connectionLost(gen uint64, code int, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.state = domain.Disconnected
	c.clientID = ""
	c.beat.Stop()
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(transport.CloseNormal, "")
	}
	c.log.Info("connection closed", "code", code, "error", cause)
	c.stateChanged(domain.Disconnected)
	if code == transport.CloseNormal {
		return
	}
	c.scheduleReconnect(gen, code)
}

// scheduleReconnect arms the reconnect timer for the connection generation
// gen. A Disconnect or Close since then wins and nothing is armed.
func (c *Client) scheduleReconnect(gen uint64, code int) {
	c.mu.Lock()
	if gen != c.gen || c.disposed {
		c.mu.Unlock()
		c.log.Debug("reconnect skipped after disconnect", "code", code)
		return
	}
	attempt, delay, ok := c.sched.Schedule(func() { c.reconnect(gen) })
	c.mu.Unlock()
	if ok {
		c.metrics.ReconnectAttempt()
		c.log.Info("reconnect scheduled",
			"code", code,
			"attempt", attempt,
			"max", c.sched.MaxAttempts(),
			"delay", delay)
		return
	}
	if c.sched.Exhausted() {
		c.log.Warn("reconnect attempts exhausted", "max", c.sched.MaxAttempts())
	}
}

// Disconnect closes the connection with code 1000, stops the heartbeat and
// cancels any pending reconnect. It is the only way to go offline without a
// reconnect following.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	conn := c.conn
	c.conn = nil
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	c.sched.Cancel()
	c.beat.Stop()
	c.clientID = ""
	prev := c.state
	if conn != nil {
		c.state = domain.Closing
	} else {
		c.state = domain.Disconnected
	}
	c.mu.Unlock()

	if conn != nil {
		c.stateChanged(domain.Closing)
		if err := conn.Close(transport.CloseNormal, "client disconnect"); err != nil {
			c.log.Debug("close failed", "error", err)
		}
		c.mu.Lock()
		if c.state == domain.Closing {
			c.state = domain.Disconnected
		}
		c.mu.Unlock()
	}
	if prev != domain.Disconnected {
		c.log.Info("disconnected")
		c.stateChanged(domain.Disconnected)
	}
}

// Send writes a control frame. It is dropped unless connected; there is no
// outbound queue. It reports whether the frame was written.
func (c *Client) Send(msg protocol.Outbound) bool {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == domain.Connected
	c.mu.Unlock()
	if !connected || conn == nil {
		return false
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		c.log.Warn("encode failed", "type", msg.Type, "error", err)
		return false
	}
	if err := conn.WriteMessage(data); err != nil {
		c.log.Warn("send failed", "type", msg.Type, "error", err)
		return false
	}
	return true
}

// ResetReconnect clears the attempt counter so a dormant client may be
// reconnected. It does not connect.
func (c *Client) ResetReconnect() {
	c.sched.Reset()
}

// ReconnectAttempts returns the attempts made since the last successful connect.
func (c *Client) ReconnectAttempts() int {
	return c.sched.Attempts()
}

func (c *Client) stateChanged(s domain.ConnectionState) {
	c.metrics.SetConnectionState(s)
	c.log.Debug("connection state", "state", s)
	if s == domain.Connected || s == domain.Disconnected {
		c.runHook(hooks.Connection, hooks.ConnectionEnv(s))
	}
	if c.events.OnState != nil {
		c.events.OnState(s)
	}
}

func (c *Client) runHook(point hooks.Point, env map[string]string) {
	if err := c.hooks.Run(point, env); err != nil {
		c.log.Error("hook aborted", "point", point, "error", err)
	}
}
