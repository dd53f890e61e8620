package client

import (
	"sort"

	"github.com/1063537326/video-warning-0127/internal/dedup"
	"github.com/1063537326/video-warning-0127/internal/dispatch"
	"github.com/1063537326/video-warning-0127/internal/domain"
	"github.com/1063537326/video-warning-0127/internal/hooks"
	"github.com/1063537326/video-warning-0127/internal/inbox"
	"github.com/1063537326/video-warning-0127/internal/protocol"
)

var builtinTypes = []string{
	protocol.TypeConnect,
	protocol.TypePong,
	protocol.TypeHeartbeat,
	protocol.TypeAlert,
	protocol.TypeCameraStatus,
	protocol.TypeEngineStatus,
	protocol.TypeNotification,
	protocol.TypeError,
}

func (c *Client) installBuiltins() {
	noop := func(protocol.Envelope) {}
	c.dispatcher.SetBuiltin(protocol.TypeConnect, c.handleConnect)
	c.dispatcher.SetBuiltin(protocol.TypePong, noop)
	c.dispatcher.SetBuiltin(protocol.TypeHeartbeat, noop)
	c.dispatcher.SetBuiltin(protocol.TypeAlert, c.handleAlert)
	c.dispatcher.SetBuiltin(protocol.TypeCameraStatus, c.handleCameraStatus)
	c.dispatcher.SetBuiltin(protocol.TypeEngineStatus, c.handleEngineStatus)
	c.dispatcher.SetBuiltin(protocol.TypeNotification, c.handleNotice)
	c.dispatcher.SetBuiltin(protocol.TypeError, c.handleError)
}

func (c *Client) handleConnect(env protocol.Envelope) {
	info, err := protocol.DecodeConnect(env)
	if err != nil {
		c.log.Warn("bad connect frame", "error", err)
		return
	}
	c.mu.Lock()
	c.clientID = info.ClientID
	c.mu.Unlock()
	c.log.Info("session established", "client_id", info.ClientID)
}

func (c *Client) handleAlert(env protocol.Envelope) {
	n, err := c.decoder.Decode(env)
	if err != nil {
		c.metrics.DecodeFailure()
		c.log.Warn("dropping alert", "error", err)
		return
	}
	out := c.inbox.Ingest(n)
	c.metrics.AlertOutcome("alerts", out.Alert.Label())
	c.metrics.AlertOutcome("toasts", out.Toast.Label())

	switch out.Alert.Action {
	case dedup.Insert:
		c.runHook(hooks.AlertNew, hooks.AlertEnv(out.Alert.Entry))
	case dedup.Promote:
		c.runHook(hooks.AlertMerged, hooks.AlertEnv(out.Alert.Entry))
	}
	if c.events.OnAlert != nil {
		c.events.OnAlert(n, out)
	}
}

func (c *Client) handleCameraStatus(env protocol.Envelope) {
	statuses, err := protocol.DecodeCameraStatus(env, c.clock.Now())
	if err != nil {
		c.log.Warn("bad camera_status frame", "error", err)
		return
	}
	for _, s := range statuses {
		c.mu.Lock()
		prev, seen := c.cameras[s.CameraID]
		c.cameras[s.CameraID] = s
		c.mu.Unlock()

		if !seen || prev.Status != s.Status {
			c.log.Info("camera status", "camera", s.CameraID, "status", s.Status)
			c.runHook(hooks.CameraStatus, hooks.CameraEnv(s))
		}
		if c.events.OnCamera != nil {
			c.events.OnCamera(s)
		}
	}
}

func (c *Client) handleEngineStatus(env protocol.Envelope) {
	s, err := protocol.DecodeEngineStatus(env, c.clock.Now())
	if err != nil {
		c.log.Warn("bad engine_status frame", "error", err)
		return
	}
	c.mu.Lock()
	c.engine = &s
	c.mu.Unlock()
	c.log.Debug("engine status", "status", s.Status, "running", s.RunningCameraCount)
	if c.events.OnEngine != nil {
		c.events.OnEngine(s)
	}
}

func (c *Client) handleNotice(env protocol.Envelope) {
	n, err := protocol.DecodeNotice(env, c.clock.Now())
	if err != nil {
		c.log.Warn("bad notification frame", "error", err)
		return
	}
	c.mu.Lock()
	c.notices = append(c.notices, n)
	if len(c.notices) > MaxNotices {
		c.notices = append([]domain.SystemNotice(nil), c.notices[len(c.notices)-MaxNotices:]...)
	}
	c.mu.Unlock()
	if c.events.OnNotice != nil {
		c.events.OnNotice(n)
	}
}

func (c *Client) handleError(env protocol.Envelope) {
	e := protocol.DecodeError(env)
	c.log.Warn("server error", "code", e.Code, "message", e.Message)
	if c.events.OnServerError != nil {
		c.events.OnServerError(e)
	}
}

// On registers a handler for one message type.
func (c *Client) On(typ string, h dispatch.Handler) dispatch.Handle {
	return c.dispatcher.On(typ, h)
}

// OnAny registers a handler for every message.
func (c *Client) OnAny(h dispatch.Handler) dispatch.Handle {
	return c.dispatcher.OnAny(h)
}

// Off removes a handler.
func (c *Client) Off(h dispatch.Handle) bool {
	return c.dispatcher.Off(h)
}

// Subscribe adds cameras to the subscription set.
func (c *Client) Subscribe(ids ...int) []int {
	return c.registry.Subscribe(ids...)
}

// Unsubscribe removes cameras from the subscription set.
func (c *Client) Unsubscribe(ids ...int) []int {
	return c.registry.Unsubscribe(ids...)
}

// UnsubscribeAll empties the subscription set.
func (c *Client) UnsubscribeAll() []int {
	return c.registry.UnsubscribeAll()
}

// Subscriptions returns the subscribed cameras in ascending order.
func (c *Client) Subscriptions() []int {
	return c.registry.Members()
}

// Inbox returns the notification model.
func (c *Client) Inbox() *inbox.Inbox {
	return c.inbox
}

// Session returns the id tagged on every log line of this client.
func (c *Client) Session() string {
	return c.session
}

// State returns the connection state.
func (c *Client) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ClientID returns the id the server assigned, empty while disconnected.
func (c *Client) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// LastMessage returns the most recent decoded frame.
func (c *Client) LastMessage() (protocol.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return protocol.Envelope{}, false
	}
	return *c.last, true
}

// Cameras returns the latest status of every camera seen, ordered by id.
func (c *Client) Cameras() []domain.CameraStatus {
	c.mu.Lock()
	out := make([]domain.CameraStatus, 0, len(c.cameras))
	for _, s := range c.cameras {
		out = append(out, s)
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CameraID < out[j].CameraID })
	return out
}

// Camera returns the latest status of one camera.
func (c *Client) Camera(id int) (domain.CameraStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.cameras[id]
	return s, ok
}

// Engine returns the latest engine status.
func (c *Client) Engine() (domain.EngineStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return domain.EngineStatus{}, false
	}
	return *c.engine, true
}

// Notices returns the kept system notices, oldest first.
func (c *Client) Notices() []domain.SystemNotice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.SystemNotice(nil), c.notices...)
}
