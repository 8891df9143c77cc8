package trade

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/deriv"
	"main/internal/obs"
	"main/internal/risk"
	"main/internal/session"
	"main/internal/signal"
	"main/internal/ticks"
)

var (
	ErrAlreadyRunning = errors.New("trade: already running")
	ErrInvalidStake   = errors.New("trade: stake must be positive")
)

const (
	DefaultStake    = 0.35
	DefaultCooldown = 2500 * time.Millisecond
)

// Transport is the slice of the session the controller drives. Sends are
// fire-and-forget; the controller's state machine advances only on later
// inbound events.
type Transport interface {
	Send(v any) error
	State() session.State
}

// Observer receives the read-only status and log streams. No control
// flow depends on either.
type Observer interface {
	Status(msg string)
	Log(msg string)
}

// Recorder is the optional write-only audit journal.
type Recorder interface {
	Tick(symbol string, quote float64)
	Settlement(contractID int64, symbol string, profit float64)
}

// Config is the opaque run configuration handed in by the presentation
// layer.
type Config struct {
	// Instrument is a single symbol or "all" for the full volatility set.
	Instrument string
	Mode       deriv.TradeMode
	// Barrier is a fixed digit or signal.AutoBarrier.
	Barrier    int
	Stake      float64
	TakeProfit float64
	StopLoss   float64
	Cooldown   time.Duration
	HistoryCap int
	Signal     signal.Config
}

// PendingOrder tracks the single in-flight order. At most one exists at
// any time; a new submission is refused while one is pending.
type PendingOrder struct {
	Symbol      string
	Kind        deriv.ContractKind
	Barrier     int
	HasBarrier  bool
	Stake       float64
	SubmittedAt time.Time
	// ContractID is venue-assigned, set once the buy is acknowledged.
	ContractID int64
}

// Controller orchestrates the trade lifecycle: it feeds ticks into the
// store, polls the signal engine under the cooldown/confirmation/lock
// discipline, submits orders, consumes settlements and halts the run
// when a limit is crossed. All state mutation happens on the single
// goroutine draining the event queue.
type Controller struct {
	cfg       Config
	symbols   []string
	limits    risk.Limits
	limitsErr error

	transport Transport
	store     *ticks.Store
	engine    *signal.Engine
	tracker   *risk.Tracker
	queue     *bus.Queue
	observer  Observer
	recorder  Recorder

	now func() time.Time

	running   atomic.Bool
	pending   *PendingOrder
	active    string
	lastTrade time.Time
}

// Option tweaks optional collaborators.
type Option func(*Controller)

func WithObserver(o Observer) Option { return func(c *Controller) { c.observer = o } }
func WithRecorder(r Recorder) Option { return func(c *Controller) { c.recorder = r } }

// New builds a controller. Limit validation is deferred to Start so a
// misconfigured run is rejected there, synchronously, and never starts.
func New(cfg Config, transport Transport, opts ...Option) (*Controller, error) {
	if cfg.Stake < 0 {
		return nil, ErrInvalidStake
	}
	if cfg.Stake == 0 {
		cfg.Stake = DefaultStake
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Mode == "" {
		cfg.Mode = deriv.ModeAuto
	}
	if cfg.Signal == (signal.Config{}) {
		cfg.Signal = signal.DefaultConfig()
	}

	c := &Controller{
		cfg:       cfg,
		symbols:   deriv.ExpandSymbols(cfg.Instrument),
		transport: transport,
		store:     ticks.NewStore(cfg.HistoryCap),
		engine:    signal.NewEngine(cfg.Signal),
		queue:     bus.NewQueue(1024),
		now:       time.Now,
	}
	c.limits, c.limitsErr = risk.NewLimits(cfg.TakeProfit, cfg.StopLoss)
	// One tracker for the controller's lifetime; runs reset it in place
	// so concurrent PnL reads never observe a swapped pointer.
	c.tracker = risk.NewTracker(c.limits)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run drains the event queue until ctx is done. It is the only goroutine
// allowed to touch run state.
func (c *Controller) Run(ctx context.Context) {
	c.queue.Run(ctx, c.process)
}

// Start validates preconditions synchronously and schedules the run
// start on the controller loop.
func (c *Controller) Start() error {
	if c.limitsErr != nil {
		return c.limitsErr
	}
	if c.running.Load() {
		return ErrAlreadyRunning
	}
	return c.queue.TryPublish(bus.Event{Kind: bus.EventStart})
}

// Stop schedules a manual stop.
func (c *Controller) Stop() {
	_ = c.queue.TryPublish(bus.Event{Kind: bus.EventStop})
}

// OnMessage enqueues one raw inbound frame. Called from the session's
// read goroutine; a full queue drops the frame into the diagnostic sink
// rather than blocking the transport.
func (c *Controller) OnMessage(raw []byte) {
	if err := c.queue.TryPublish(bus.Event{Kind: bus.EventFrame, Frame: raw}); err != nil {
		obs.IncDrop()
		logs.Errorf("inbound frame dropped, err: %+v", err)
	}
}

// OnSessionState mirrors transport lifecycle changes into the loop.
func (c *Controller) OnSessionState(state session.State) {
	obs.SetSessionState(int(state))
	switch state {
	case session.Ready:
		_ = c.queue.TryPublish(bus.Event{Kind: bus.EventSessionReady})
	case session.Disconnected:
		_ = c.queue.TryPublish(bus.Event{Kind: bus.EventSessionDown})
	}
}

// Running reports whether a run cycle is active.
func (c *Controller) Running() bool { return c.running.Load() }

// PnL returns the cumulative realized profit/loss of the current (or
// last) run as a float for display.
func (c *Controller) PnL() float64 {
	v, _ := c.tracker.PnL().Float64()
	return v
}

func (c *Controller) process(e bus.Event) {
	switch e.Kind {
	case bus.EventStart:
		c.applyStart()
	case bus.EventStop:
		c.applyStop(risk.StopManual)
	case bus.EventSessionReady:
		c.applySessionReady()
	case bus.EventSessionDown:
		c.status("session lost, reconnecting")
	case bus.EventFrame:
		c.applyFrame(e.Frame)
	}
}

func (c *Controller) applyStart() {
	if c.running.Load() {
		return
	}
	c.tracker.Reset()
	c.pending = nil
	c.active = ""
	c.lastTrade = time.Time{}
	c.running.Store(true)
	obs.SetPnL(0)

	c.subscribe()
	c.status("analyzing")
	c.log("bot started")
}

// applyStop tears the run cycle down. A limit-triggered stop and a
// manual stop share the same teardown; only the reported reason differs.
func (c *Controller) applyStop(reason risk.StopReason) {
	if !c.running.Load() && reason == risk.StopManual {
		return
	}
	c.running.Store(false)
	c.pending = nil
	c.active = ""

	if err := c.transport.Send(deriv.NewForgetTicksRequest()); err != nil {
		logs.Errorf("forget ticks, err: %+v", err)
	}
	c.store.Clear()

	c.status(reason.String())
	c.log("bot stopped: " + reason.String())
}

// applySessionReady re-arms subscriptions after (re)connect. Histories
// reset with the subscription; a reconnect never trades on stale data.
func (c *Controller) applySessionReady() {
	if err := c.transport.Send(deriv.NewBalanceRequest()); err != nil {
		logs.Errorf("subscribe balance, err: %+v", err)
	}
	if c.running.Load() {
		c.subscribe()
		c.status("analyzing")
	}
}

func (c *Controller) subscribe() {
	c.store.Reset(c.symbols)
	for _, symbol := range c.symbols {
		if err := c.transport.Send(deriv.NewTicksRequest(symbol)); err != nil {
			logs.Errorf("subscribe ticks %s, err: %+v", symbol, err)
		}
	}
}

// applyFrame routes one inbound frame. A frame that does not parse, or
// parses without the payload its type promises, is dropped and counted;
// an untrusted feed must never kill the run.
func (c *Controller) applyFrame(raw []byte) {
	msg, err := deriv.ParseMessage(raw)
	if err != nil {
		obs.IncDrop()
		logs.Errorf("drop malformed frame, err: %+v", err)
		return
	}

	switch msg.MsgType {
	case deriv.MsgTypeTick:
		c.handleTick(msg)
	case deriv.MsgTypeBuy:
		c.handleBuy(msg)
	case deriv.MsgTypeOpenContract:
		c.handleSettlement(msg)
	case deriv.MsgTypeBalance:
		c.handleBalance(msg)
	case deriv.MsgTypeAuthorize:
		c.log("session authorized")
	default:
		if msg.Error != nil {
			c.log("venue error: " + msg.Error.Message)
		}
	}
}

func (c *Controller) handleTick(msg deriv.Message) {
	if msg.Tick == nil || msg.Tick.Symbol == "" {
		obs.IncDrop()
		return
	}
	if !c.running.Load() {
		return
	}

	c.store.Append(msg.Tick.Symbol, msg.Tick.Quote)
	obs.IncTick(msg.Tick.Symbol)
	if c.recorder != nil {
		c.recorder.Tick(msg.Tick.Symbol, msg.Tick.Quote)
	}

	if c.pending != nil {
		return
	}
	if c.transport.State() != session.Ready {
		return
	}
	c.evaluate()
}

// evaluate scans subscribed symbols in their natural order and acts on
// the first proposal; competing proposals across symbols are not ranked.
func (c *Controller) evaluate() {
	for _, symbol := range c.store.Symbols() {
		proposal, ok := c.engine.Evaluate(symbol, c.store.History(symbol), c.cfg.Mode, c.cfg.Barrier, c.store)
		if !ok {
			continue
		}
		c.active = symbol
		c.status(fmt.Sprintf("locked on %s (%s)", symbol, proposal.Kind))
		c.log(fmt.Sprintf("locked on %s for %s (barrier %s)", symbol, proposal.Kind, barrierLabel(proposal)))
		c.submit(symbol, proposal)
		return
	}
}

// submit places a buy unless the cooldown gate or the pending-order
// guard refuses it. A refused submission mutates nothing, including the
// last-trade timestamp.
func (c *Controller) submit(symbol string, proposal signal.Proposal) {
	now := c.now()
	if elapsed := now.Sub(c.lastTrade); elapsed < c.cfg.Cooldown {
		c.log("cooldown active, skipping trade")
		return
	}
	if c.pending != nil {
		c.log("waiting for previous trade to finish")
		return
	}

	c.pending = &PendingOrder{
		Symbol:      symbol,
		Kind:        proposal.Kind,
		Barrier:     proposal.Barrier,
		HasBarrier:  proposal.HasBarrier,
		Stake:       c.cfg.Stake,
		SubmittedAt: now,
	}
	c.lastTrade = now

	req := deriv.NewBuyRequest(symbol, proposal.Kind, proposal.Barrier, proposal.HasBarrier, c.cfg.Stake)
	c.log(fmt.Sprintf("placing %s on %s (barrier %s, stake $%.2f)", proposal.Kind, symbol, barrierLabel(proposal), c.cfg.Stake))
	if err := c.transport.Send(req); err != nil {
		logs.Errorf("buy request, err: %+v", err)
		c.pending = nil
		c.active = ""
		return
	}
	obs.IncOrder(proposal.Kind.APIType())
}

func (c *Controller) handleBuy(msg deriv.Message) {
	if msg.Error != nil {
		c.log("trade error: " + msg.Error.Message)
		c.status("trade error")
		c.pending = nil
		c.active = ""
		return
	}
	if msg.Buy == nil || msg.Buy.ContractID == 0 {
		obs.IncDrop()
		return
	}
	if c.pending != nil {
		c.pending.ContractID = msg.Buy.ContractID
	}
	c.log(fmt.Sprintf("trade placed, contract %d", msg.Buy.ContractID))
	if err := c.transport.Send(deriv.NewOpenContractRequest(msg.Buy.ContractID)); err != nil {
		logs.Errorf("subscribe settlement %d, err: %+v", msg.Buy.ContractID, err)
	}
}

// handleSettlement applies a finalized contract exactly once, keyed by
// the venue id, then checks limits synchronously with the PnL update so
// a second trade can never race past them.
func (c *Controller) handleSettlement(msg deriv.Message) {
	if msg.OpenContract == nil {
		obs.IncDrop()
		return
	}
	if !msg.OpenContract.Sold() {
		return
	}
	if !c.running.Load() {
		return
	}

	contractID := msg.OpenContract.ContractID
	profit := msg.OpenContract.Profit
	pnl, counted := c.tracker.Settle(contractID, profit)
	if !counted {
		return
	}

	symbol := c.active
	c.pending = nil
	c.active = ""

	won := profit > 0
	obs.IncSettlement(won)
	if c.recorder != nil {
		c.recorder.Settlement(contractID, symbol, profit)
	}
	v, _ := pnl.Float64()
	obs.SetPnL(v)

	result := "lost"
	if won {
		result = "won"
	}
	c.log(fmt.Sprintf("contract %d closed: %s, profit $%.2f (pnl $%s)", contractID, result, profit, pnl.StringFixed(2)))
	c.status("last result: " + result)

	if reason := c.tracker.Breach(); reason != risk.StopNone && c.running.Load() {
		c.applyStop(reason)
	}
}

func (c *Controller) handleBalance(msg deriv.Message) {
	if msg.Balance == nil {
		obs.IncDrop()
		return
	}
	obs.SetBalance(msg.Balance.Balance)
	c.status(fmt.Sprintf("balance $%.2f", msg.Balance.Balance))
}

func (c *Controller) status(msg string) {
	if c.observer != nil {
		c.observer.Status(msg)
	}
}

func (c *Controller) log(msg string) {
	logs.Info(msg)
	if c.observer != nil {
		c.observer.Log(msg)
	}
}

func barrierLabel(p signal.Proposal) string {
	if !p.HasBarrier {
		return "auto"
	}
	return fmt.Sprintf("%d", p.Barrier)
}
