package kraken

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// State of the logical connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribed
	StateReconnecting
	StateUnreachable
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateReconnecting:
		return "reconnecting"
	case StateUnreachable:
		return "unreachable"
	default:
		return "disconnected"
	}
}

var (
	// ErrUnreachable is surfaced after the reconnect budget is exhausted.
	ErrUnreachable = errors.New("kraken: feed unreachable, reconnect attempts exhausted")

	ErrStopped = errors.New("kraken: client manually stopped")
)

// Event is one typed message published on the client's event channel.
type Event interface{ isEvent() }

type TickerEvent struct {
	Pair      string
	Price     float64
	Change24h float64
	At        time.Time
}

type TradeEvent struct {
	Pair   string
	Price  float64
	Volume float64
	At     time.Time
}

type CandleEvent struct {
	Pair   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	At     time.Time
}

type StateEvent struct {
	State State
	Err   error
}

func (TickerEvent) isEvent() {}
func (TradeEvent) isEvent()  {}
func (CandleEvent) isEvent() {}
func (StateEvent) isEvent()  {}

type Config struct {
	URL string

	DialTimeout       time.Duration
	HeartbeatInterval time.Duration
	StalenessMultiple float64
	WatchdogInterval  time.Duration

	InitialBackoff       time.Duration
	BackoffFactor        float64
	MaxBackoff           time.Duration
	MaxReconnectAttempts int

	SoftMsgRate int // msgs/sec that raises the rate-limited flag
	HardMsgRate int // msgs/sec above which trade prints are shed

	MaxPairsPerSubscribe int
	SubscribeStagger     time.Duration
}

func (c *Config) applyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
	if c.StalenessMultiple < 2 || c.StalenessMultiple > 3 {
		c.StalenessMultiple = 2.5
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = 5 * time.Second
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.BackoffFactor <= 1 {
		c.BackoffFactor = 1.3
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = 20
	}
	if c.SoftMsgRate <= 0 {
		c.SoftMsgRate = 200
	}
	if c.HardMsgRate <= 0 {
		c.HardMsgRate = 400
	}
	if c.MaxPairsPerSubscribe <= 0 || c.MaxPairsPerSubscribe > 3 {
		c.MaxPairsPerSubscribe = 3
	}
	if c.SubscribeStagger <= 0 {
		c.SubscribeStagger = 250 * time.Millisecond
	}
}

// Client maintains one logical connection to the Kraken public websocket.
// All rate/backoff state is owned by the instance; there are no package
// level singletons.
type Client struct {
	cfg Config

	events chan Event

	runCtx  context.Context
	runStop context.CancelFunc

	limiter *msgLimiter
	bo      *backoff

	mu            sync.Mutex
	state         State
	conn          *websocket.Conn
	gen           int // connection generation; stale read loops bail out
	inflight      chan struct{}
	dialErr       error
	pending       []subscribeReq // queued while not connected
	active        []subscribeReq // replayed after a reconnect
	reconnecting  bool
	watchdogOn    bool
	stopped       bool
	lastMsg       time.Time
	lastHeartbeat time.Time
}

func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:     cfg,
		events:  make(chan Event, 1024),
		runCtx:  ctx,
		runStop: cancel,
		limiter: newMsgLimiter(cfg.SoftMsgRate, cfg.HardMsgRate),
		bo:      newBackoff(cfg.InitialBackoff, cfg.BackoffFactor, cfg.MaxBackoff),
	}
}

// Events is the single channel typed events are published on.
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RateLimited reports whether the inbound rate currently exceeds the soft
// threshold.
func (c *Client) RateLimited() bool { return c.limiter.rateLimited() }

// Connect is idempotent: while a dial is in flight every caller awaits the
// same attempt instead of opening a second socket.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	switch c.state {
	case StateConnected, StateSubscribed:
		c.mu.Unlock()
		return nil
	}
	if c.inflight != nil {
		done := c.inflight
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
		err := c.dialErr
		c.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	c.inflight = done
	c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()

	err := c.dialAndStart(ctx)

	c.mu.Lock()
	c.dialErr = err
	c.inflight = nil
	close(done)
	c.mu.Unlock()

	if err == nil {
		c.flushQueued()
	}
	return err
}

// Subscribe registers pairs on a channel. While not connected the request is
// queued and flushed with staggered delays after a successful connect.
// Payloads are capped at MaxPairsPerSubscribe pairs per frame; larger
// requests are chunked and a warning is logged.
func (c *Client) Subscribe(pairs []string, channel string, opts ...SubscribeOption) error {
	cleaned := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, strings.ToUpper(p))
		}
	}
	if len(cleaned) == 0 {
		return errors.New("kraken: no pairs to subscribe")
	}

	sub := subscriptionOpt{Name: channel}
	for _, o := range opts {
		o(&sub)
	}

	if len(cleaned) > c.cfg.MaxPairsPerSubscribe {
		log.Warn().
			Int("pairs", len(cleaned)).
			Int("cap", c.cfg.MaxPairsPerSubscribe).
			Str("channel", channel).
			Msg("subscription oversized, chunking into multiple frames")
	}

	var reqs []subscribeReq
	for start := 0; start < len(cleaned); start += c.cfg.MaxPairsPerSubscribe {
		end := start + c.cfg.MaxPairsPerSubscribe
		if end > len(cleaned) {
			end = len(cleaned)
		}
		reqs = append(reqs, subscribeReq{
			Event:        "subscribe",
			Pair:         cleaned[start:end],
			Subscription: sub,
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	c.active = append(c.active, reqs...)
	if c.state != StateConnected && c.state != StateSubscribed {
		c.pending = append(c.pending, reqs...)
		return nil
	}
	conn := c.conn
	go c.sendStaggered(conn, reqs)
	return nil
}

type SubscribeOption func(*subscriptionOpt)

// WithInterval sets the candle interval in minutes for the ohlc channel.
func WithInterval(minutes int) SubscribeOption {
	return func(s *subscriptionOpt) { s.Interval = minutes }
}

// Disconnect tears the connection down and suppresses every future
// automatic reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	conn := c.conn
	c.conn = nil
	c.setStateLocked(StateDisconnected, nil)
	c.mu.Unlock()

	c.runStop()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) dialAndStart(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(dctx, c.cfg.URL, nil)
	cancel()
	if err != nil {
		c.mu.Lock()
		if !c.stopped {
			c.setStateLocked(StateDisconnected, nil)
		}
		c.mu.Unlock()
		log.Error().Err(err).Str("url", c.cfg.URL).Msg("kraken dial failed")
		return err
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrStopped
	}
	c.conn = conn
	c.gen++
	gen := c.gen
	now := time.Now()
	c.lastMsg = now
	c.lastHeartbeat = now
	c.setStateLocked(StateConnected, nil)
	startWatchdog := !c.watchdogOn
	c.watchdogOn = true
	c.mu.Unlock()

	log.Info().Str("url", c.cfg.URL).Msg("kraken connected")
	go c.readLoop(conn, gen)
	if startWatchdog {
		go c.watchdog()
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			c.onReadError(gen, err)
			return
		}
		c.handleMessage(b)
	}
}

func (c *Client) onReadError(gen int, err error) {
	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.setStateLocked(StateReconnecting, err)
	c.mu.Unlock()

	log.Warn().Err(err).Msg("kraken disconnected, reconnecting")
	go c.reconnectLoop()
}

func (c *Client) reconnectLoop() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		delay := c.bo.next()
		select {
		case <-c.runCtx.Done():
			return
		case <-time.After(delay):
		}

		log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("kraken reconnect attempt")
		if err := c.dialAndStart(c.runCtx); err != nil {
			if errors.Is(err, ErrStopped) {
				return
			}
			continue
		}
		c.bo.reset()
		c.resubscribe()
		return
	}

	c.mu.Lock()
	c.setStateLocked(StateUnreachable, ErrUnreachable)
	c.mu.Unlock()
	log.Error().Int("attempts", c.cfg.MaxReconnectAttempts).Msg("kraken unreachable, giving up")
}

// flushQueued replays subscriptions queued before the connect finished,
// staggered to avoid bursting the server.
func (c *Client) flushQueued() {
	c.mu.Lock()
	reqs := c.pending
	c.pending = nil
	conn := c.conn
	c.mu.Unlock()
	if len(reqs) == 0 || conn == nil {
		return
	}
	go c.sendStaggered(conn, reqs)
}

func (c *Client) resubscribe() {
	c.mu.Lock()
	reqs := make([]subscribeReq, len(c.active))
	copy(reqs, c.active)
	c.pending = nil
	conn := c.conn
	c.mu.Unlock()
	if len(reqs) == 0 || conn == nil {
		return
	}
	go c.sendStaggered(conn, reqs)
}

func (c *Client) sendStaggered(conn *websocket.Conn, reqs []subscribeReq) {
	for i, req := range reqs {
		if i > 0 {
			select {
			case <-c.runCtx.Done():
				return
			case <-time.After(c.cfg.SubscribeStagger):
			}
		}
		if err := conn.WriteJSON(req); err != nil {
			log.Error().Err(err).Strs("pairs", req.Pair).Msg("kraken subscribe write failed")
			return
		}
	}
}

func (c *Client) handleMessage(b []byte) {
	c.limiter.observe()

	c.mu.Lock()
	c.lastMsg = time.Now()
	c.mu.Unlock()

	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return
	}

	if b[0] == '{' {
		var ctl controlMsg
		if err := json.Unmarshal(b, &ctl); err != nil {
			log.Error().Err(err).Msg("kraken control frame unmarshal failed")
			return
		}
		c.handleControl(ctl)
		return
	}

	frame, err := parseDataFrame(b)
	if err != nil {
		log.Error().Err(err).Msg("kraken data frame parse failed")
		return
	}
	c.handleData(frame)
}

func (c *Client) handleControl(ctl controlMsg) {
	switch ctl.Event {
	case "heartbeat", "pong":
		c.mu.Lock()
		c.lastHeartbeat = time.Now()
		c.mu.Unlock()
	case "systemStatus":
		log.Info().Str("status", ctl.Status).Msg("kraken system status")
	case "subscriptionStatus":
		if ctl.Status == "error" {
			log.Error().Str("pair", ctl.Pair).Str("error", ctl.ErrorMessage).Msg("kraken subscription rejected")
			return
		}
		log.Info().Str("pair", ctl.Pair).Str("channel", ctl.ChannelName).Str("status", ctl.Status).Msg("kraken subscription status")
		if ctl.Status == "subscribed" {
			c.mu.Lock()
			if c.state == StateConnected {
				c.setStateLocked(StateSubscribed, nil)
			}
			c.mu.Unlock()
		}
	case "error":
		log.Error().Str("error", ctl.ErrorMessage).Msg("kraken error frame")
	}
}

func (c *Client) handleData(frame *dataFrame) {
	switch {
	case frame.channelName == ChannelTicker:
		var p tickerPayload
		if err := json.Unmarshal(frame.payload, &p); err != nil {
			log.Error().Err(err).Str("pair", frame.pair).Msg("kraken ticker payload unmarshal failed")
			return
		}
		price, change, err := p.last()
		if err != nil {
			log.Error().Err(err).Str("pair", frame.pair).Msg("kraken ticker payload invalid")
			return
		}
		c.emit(TickerEvent{Pair: frame.pair, Price: price, Change24h: change, At: time.Now()})

	case frame.channelName == ChannelTrade:
		if !c.limiter.allowTrade() {
			return
		}
		var p tradePayload
		if err := json.Unmarshal(frame.payload, &p); err != nil {
			log.Error().Err(err).Str("pair", frame.pair).Msg("kraken trade payload unmarshal failed")
			return
		}
		for _, ev := range p.prints(frame.pair) {
			c.emit(ev)
		}

	case strings.HasPrefix(frame.channelName, ChannelOHLC):
		var p ohlcPayload
		if err := json.Unmarshal(frame.payload, &p); err != nil {
			log.Error().Err(err).Str("pair", frame.pair).Msg("kraken ohlc payload unmarshal failed")
			return
		}
		ev, err := p.candle(frame.pair)
		if err != nil {
			log.Error().Err(err).Str("pair", frame.pair).Msg("kraken ohlc payload invalid")
			return
		}
		c.emit(ev)
	}
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.runCtx.Done():
	}
}

// watchdog forces a reconnect when neither data nor heartbeat frames have
// arrived within the staleness window, even if the socket still looks open.
func (c *Client) watchdog() {
	t := time.NewTicker(c.cfg.WatchdogInterval)
	defer t.Stop()

	limit := time.Duration(float64(c.cfg.HeartbeatInterval) * c.cfg.StalenessMultiple)

	for {
		select {
		case <-c.runCtx.Done():
			return
		case <-t.C:
		}

		c.mu.Lock()
		st := c.state
		sinceMsg := time.Since(c.lastMsg)
		sinceHB := time.Since(c.lastHeartbeat)
		conn := c.conn
		c.mu.Unlock()

		if st != StateConnected && st != StateSubscribed {
			continue
		}
		if sinceMsg > limit && sinceHB > limit {
			log.Warn().
				Dur("since_msg", sinceMsg).
				Dur("since_heartbeat", sinceHB).
				Dur("limit", limit).
				Msg("kraken feed stale, forcing reconnect")
			if conn != nil {
				_ = conn.Close() // read loop unblocks and drives the reconnect
			}
		}
	}
}

// setStateLocked updates the state and publishes a StateEvent without
// blocking the caller; callers hold c.mu.
func (c *Client) setStateLocked(s State, err error) {
	if c.state == s {
		return
	}
	c.state = s
	select {
	case c.events <- StateEvent{State: s, Err: err}:
	default:
		// event channel saturated; state remains queryable via State()
	}
}
