package session

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/deriv"
)

var (
	ErrEmptyToken    = errors.New("session: token is required")
	ErrNotConnected  = errors.New("session: not connected")
	ErrAuthorizeFail = errors.New("session: authorize rejected")
)

const (
	DefaultPingInterval   = 30 * time.Second
	DefaultReconnectDelay = 3 * time.Second
)

// State is the connection lifecycle state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Authorizing
	Ready
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Authorizing:
		return "authorizing"
	case Ready:
		return "ready"
	default:
		return "disconnected"
	}
}

// Conn is the subset of *websocket.Conn the session uses; tests inject
// scripted fakes through Config.Dial.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens one websocket connection.
type DialFunc func(ctx context.Context, url string) (Conn, error)

func defaultDial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config defines one session's runtime configuration.
type Config struct {
	URL   string
	Token string
	// PingInterval is the keep-alive cadence; the ping is only sent while
	// the transport is open.
	PingInterval time.Duration
	// ReconnectDelay is the fixed (not exponential) backoff before a new
	// connect attempt after loss.
	ReconnectDelay time.Duration
	Dial           DialFunc
	// OnState observes lifecycle transitions.
	OnState func(State)
	// OnMessage receives every fully-read inbound frame, including ones
	// carrying error payloads. Correlation is the caller's job.
	OnMessage func(raw []byte)
}

// Session owns exactly one logical connection to the venue. A reconnect
// is a brand-new connection sharing only the token and cadence; nothing
// else survives the loss.
type Session struct {
	cfg    Config
	state  atomic.Int32
	wanted atomic.Bool

	mu   sync.Mutex
	conn Conn
}

// New validates the config. An empty token is rejected synchronously; no
// connect attempt is made without one.
func New(cfg Config) (*Session, error) {
	if cfg.Token == "" {
		return nil, ErrEmptyToken
	}
	if cfg.URL == "" {
		cfg.URL = deriv.DefaultEndpoint
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dial == nil {
		cfg.Dial = defaultDial
	}
	s := &Session{cfg: cfg}
	s.wanted.Store(true)
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Close tears the session down for good. The reconnect loop checks this
// flag, so a backoff timer firing after Close never revives the session.
func (s *Session) Close() {
	s.wanted.Store(false)
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Send writes one fire-and-forget JSON text frame. The transport never
// correlates requests to responses.
func (s *Session) Send(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal outbound frame")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return errors.Wrap(err, "write outbound frame")
	}
	return nil
}

// Run drives the connect/authorize/read/reconnect loop until ctx is done
// or Close is called. Reconnection is unconditional and unlimited in
// retry count; callers needing bounded retries must add that themselves.
func (s *Session) Run(ctx context.Context) error {
	for s.wanted.Load() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.runOnce(ctx); err != nil && s.wanted.Load() && ctx.Err() == nil {
			logs.Errorf("session lost, reconnecting in %s, err: %+v", s.cfg.ReconnectDelay, err)
		}
		if !s.wanted.Load() || ctx.Err() != nil {
			break
		}
		s.sleep(ctx, s.cfg.ReconnectDelay)
	}
	s.setState(Disconnected)
	return ctx.Err()
}

func (s *Session) runOnce(ctx context.Context) error {
	s.setState(Connecting)
	conn, err := s.cfg.Dial(ctx, s.cfg.URL)
	if err != nil {
		s.setState(Disconnected)
		return errors.Wrap(err, "dial")
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
		s.setState(Disconnected)
	}()

	s.setState(Authorizing)
	if err := s.Send(deriv.AuthorizeRequest{Authorize: s.cfg.Token}); err != nil {
		return errors.Wrap(err, "send authorize")
	}

	errCh := make(chan error, 1)
	go s.readLoop(conn, errCh)

	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-ping.C:
			if err := s.Send(deriv.NewPingRequest()); err != nil {
				return errors.Wrap(err, "keep-alive")
			}
		}
	}
}

func (s *Session) readLoop(conn Conn, errCh chan<- error) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			errCh <- err
			return
		}
		if err := s.dispatch(raw); err != nil {
			errCh <- err
			return
		}
	}
}

// dispatch peeks at the envelope just far enough to drive the authorize
// transition, then hands the frame over untouched. An authorize error is
// fatal for the attempt, but the frame still reaches OnMessage first so
// the caller sees the venue's message text.
func (s *Session) dispatch(raw []byte) error {
	var envelope struct {
		MsgType string          `json:"msg_type"`
		Error   *deriv.APIError `json:"error"`
	}
	var fatal error
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.MsgType == deriv.MsgTypeAuthorize {
		if envelope.Error != nil {
			fatal = errors.Wrap(ErrAuthorizeFail, envelope.Error.Message)
		} else if s.State() == Authorizing {
			s.setState(Ready)
		}
	}
	if s.cfg.OnMessage != nil {
		s.cfg.OnMessage(raw)
	}
	return fatal
}

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev == next {
		return
	}
	logs.Infof("session %s -> %s", prev, next)
	if s.cfg.OnState != nil {
		s.cfg.OnState(next)
	}
}

func (s *Session) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
