package stun

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pion/logging"
)

// Defaults of the RFC 5389 Section 7.2.1 retransmission schedule.
const (
	// defaultTimeoutRate is how often the engine checks transaction
	// deadlines.
	defaultTimeoutRate = time.Millisecond * 5
	// defaultRTO is the initial retransmission interval Ti.
	defaultRTO = time.Millisecond * 500
	// defaultMaxAttempts is Rc, the total number of transmissions.
	defaultMaxAttempts = 7
	// defaultFinalWaitMultiplier is Rm, the multiplier of the wait after
	// the last transmission.
	defaultFinalWaitMultiplier = 16
)

var (
	// ErrNoTransport means that the client was created without a transport.
	ErrNoTransport Error = "no transport provided"
	// ErrClientClosed indicates that client is closed.
	ErrClientClosed Error = "client is closed"
	// ErrNoHandler means that no callback was provided for a transaction.
	ErrNoHandler Error = "no handler provided"
)

// TransportError is the resolution of a transaction whose transmission
// failed hard: the transaction is failed immediately without further
// retransmission.
type TransportError struct {
	Err error
}

func (e TransportError) Error() string {
	return "transport failure: " + e.Err.Error()
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// ClientAgent is the transaction table the client drives. *Agent
// implements it; tests substitute their own.
type ClientAgent interface {
	Process(m *Message, from net.Addr) error
	Close() error
	Start(id [TransactionIDSize]byte, method Method, deadline time.Time) error
	Stop(id [TransactionIDSize]byte) error
	StopWithError(id [TransactionIDSize]byte, err error) error
	Collect(gcTime time.Time) error
	SetHandler(h Handler) error
}

// Collector calls the function on each tick of some clock until closed.
type Collector interface {
	Start(rate time.Duration, f func(now time.Time)) error
	Close() error
}

func newTickerCollector(c clock.Clock) Collector {
	return &tickerCollector{
		close: make(chan struct{}),
		clock: c,
	}
}

type tickerCollector struct {
	close chan struct{}
	wg    sync.WaitGroup
	clock clock.Clock
}

func (a *tickerCollector) Start(rate time.Duration, f func(now time.Time)) error {
	t := a.clock.Ticker(rate)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-a.close:
				t.Stop()
				return
			case now := <-t.C:
				f(now)
			}
		}
	}()
	return nil
}

func (a *tickerCollector) Close() error {
	close(a.close)
	a.wg.Wait()
	return nil
}

// ClientOption sets some client option.
type ClientOption func(c *Client)

// WithHandler sets the handler for unsolicited traffic: indications,
// requests, and responses that match no pending transaction.
func WithHandler(h Handler) ClientOption {
	return func(c *Client) {
		c.handler = h
	}
}

// WithRTO sets the initial retransmission interval Ti.
func WithRTO(rto time.Duration) ClientOption {
	return func(c *Client) {
		c.rto = rto
	}
}

// WithRTOCap caps the doubling retransmission interval. Zero means no
// cap.
func WithRTOCap(max time.Duration) ClientOption {
	return func(c *Client) {
		c.rtoCap = max
	}
}

// WithMaxAttempts sets Rc, the total number of transmissions of a
// request over an unreliable transport.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithFinalWaitMultiplier sets Rm: after the last transmission the
// engine waits Rm*Ti before declaring the transaction timed out.
func WithFinalWaitMultiplier(n int) ClientOption {
	return func(c *Client) {
		c.finalWait = n
	}
}

// WithClock sets the source of time for the engine. Tests inject
// clock.NewMock() here to drive the schedule deterministically.
func WithClock(clk clock.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clk
	}
}

// WithTimeoutRate sets the deadline check rate.
func WithTimeoutRate(d time.Duration) ClientOption {
	return func(c *Client) {
		c.gcRate = d
	}
}

// WithAgent sets the transaction table to use.
func WithAgent(a ClientAgent) ClientOption {
	return func(c *Client) {
		c.agent = a
	}
}

// WithCollector sets the deadline collector: the ticker driving the
// periodic Collect calls. Tests substitute their own to control time.
func WithCollector(coll Collector) ClientOption {
	return func(c *Client) {
		c.collector = coll
	}
}

// WithNoRetransmit disables retransmissions even over an unreliable
// transport; the transaction fails after a single unanswered
// transmission and the final wait.
func WithNoRetransmit(c *Client) {
	c.noRetransmit = true
}

// WithLoggerFactory sets the logger factory for the client.
func WithLoggerFactory(f logging.LoggerFactory) ClientOption {
	return func(c *Client) {
		c.loggerFactory = f
	}
}

// NewClient initializes a new Client over the transport and starts the
// inbound read loop and the deadline collector.
func NewClient(t Transport, options ...ClientOption) (*Client, error) {
	c := &Client{
		transport:     t,
		t:             make(map[transactionID]*clientTransaction),
		rto:           defaultRTO,
		maxAttempts:   defaultMaxAttempts,
		finalWait:     defaultFinalWaitMultiplier,
		gcRate:        defaultTimeoutRate,
		loggerFactory: logging.NewDefaultLoggerFactory(),
	}
	for _, o := range options {
		o(c)
	}
	if c.transport == nil {
		return nil, ErrNoTransport
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	if c.agent == nil {
		c.agent = NewAgent(nil)
	}
	if c.collector == nil {
		c.collector = newTickerCollector(c.clock)
	}
	c.log = c.loggerFactory.NewLogger("stun")
	if err := c.agent.SetHandler(c.handleAgentCallback); err != nil {
		return nil, err
	}
	if err := c.collector.Start(c.gcRate, func(now time.Time) {
		if err := c.agent.Collect(now); err != nil && !errors.Is(err, ErrAgentClosed) {
			c.log.Errorf("collect failed: %v", err)
		}
	}); err != nil {
		return nil, err
	}
	c.wg.Add(1)
	go c.readUntilClosed()
	return c, nil
}

// Client drives STUN transactions over one Transport: it owns
// transaction ids, the retransmission schedule and result delivery.
// All methods are goroutine-safe.
type Client struct {
	transport     Transport
	agent         ClientAgent
	collector     Collector
	clock         clock.Clock
	handler       Handler // unsolicited traffic
	rto           time.Duration
	rtoCap        time.Duration
	maxAttempts   int
	finalWait     int
	noRetransmit  bool
	gcRate        time.Duration
	loggerFactory logging.LoggerFactory
	log           logging.LeveledLogger

	mux    sync.Mutex
	t      map[transactionID]*clientTransaction
	closed bool
	wg     sync.WaitGroup
}

// clientTransaction represents a pending request. The handler is called
// exactly once with the transaction resolution: a matching response, a
// timeout, a stop, or a transport failure.
type clientTransaction struct {
	id      transactionID
	method  Method
	attempt int
	raw     []byte
	dest    net.Addr
	h       Handler
}

func (c *Client) reliable() bool {
	return c.noRetransmit || c.transport.Reliable()
}

// nextDeadline returns the deadline after the attempt-th transmission,
// counted from now: Ti doubling per attempt up to the cap, and Rm*Ti
// after the final transmission.
func (c *Client) nextDeadline(now time.Time, attempt int) time.Time {
	if attempt >= c.maxAttempts {
		return now.Add(time.Duration(c.finalWait) * c.rto)
	}
	rto := c.rto << uint(attempt-1)
	if c.rtoCap > 0 && rto > c.rtoCap {
		rto = c.rtoCap
	}
	return now.Add(rto)
}

// totalTimeout is the deadline used for a single transmission over a
// reliable transport: the same overall budget the unreliable schedule
// has.
func (c *Client) totalTimeout() time.Duration {
	total := time.Duration(c.finalWait) * c.rto
	rto := c.rto
	for i := 1; i < c.maxAttempts; i++ {
		if c.rtoCap > 0 && rto > c.rtoCap {
			rto = c.rtoCap
		}
		total += rto
		rto <<= 1
	}
	return total
}

func (c *Client) readUntilClosed() {
	defer c.wg.Done()
	for {
		p, from, err := c.transport.Recv()
		if err != nil {
			return
		}
		if !IsMessage(p) {
			c.log.Trace("skipping non-STUN frame")
			continue
		}
		m := new(Message)
		if err := Decode(p, m); err != nil {
			// Decode failures are local to the message and never abort
			// other transactions.
			c.log.Warnf("discarding malformed message from %v: %v", from, err)
			continue
		}
		if err := c.agent.Process(m, from); err != nil {
			return
		}
	}
}

// Start registers the transaction and transmits the request to dst,
// which may be nil for connected transports. The handler h is called
// exactly once with the resolution. If the message transaction id is
// zero, a new one is generated; an id colliding with a pending
// transaction is regenerated, never reused.
//
// A hard failure of the initial transmission is returned synchronously
// and nothing is registered.
func (c *Client) Start(m *Message, dst net.Addr, h Handler) error {
	if h == nil {
		return ErrNoHandler
	}
	c.mux.Lock()
	if c.closed {
		c.mux.Unlock()
		return ErrClientClosed
	}
	var zero transactionID
	for m.TransactionID == zero || c.pendingLocked(m.TransactionID) {
		if err := m.NewTransactionID(); err != nil {
			c.mux.Unlock()
			return err
		}
	}
	t := &clientTransaction{
		id:      m.TransactionID,
		method:  m.Type.Method,
		attempt: 1,
		raw:     append([]byte{}, m.Raw...),
		dest:    dst,
		h:       h,
	}
	c.t[t.id] = t
	c.mux.Unlock()

	var deadline time.Time
	now := c.clock.Now()
	if c.reliable() {
		deadline = now.Add(c.totalTimeout())
	} else {
		deadline = c.nextDeadline(now, 1)
	}
	if err := c.agent.Start(t.id, t.method, deadline); err != nil {
		c.remove(t.id)
		return err
	}
	if _, err := c.transport.Send(t.raw, dst); err != nil {
		c.remove(t.id)
		if stopErr := c.agent.Stop(t.id); stopErr != nil && !errors.Is(stopErr, ErrTransactionNotExists) {
			c.log.Debugf("stop after failed send: %v", stopErr)
		}
		return err
	}
	return nil
}

func (c *Client) pendingLocked(id transactionID) bool {
	_, ok := c.t[id]
	return ok
}

func (c *Client) remove(id transactionID) (*clientTransaction, bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	t, ok := c.t[id]
	delete(c.t, id)
	return t, ok
}

// Do is a blocking wrapper around Start: it submits the request and
// calls f with the resolution event before returning. Returns only
// submission errors; transaction failures are reported through the
// event.
func (c *Client) Do(m *Message, dst net.Addr, f func(Event)) error {
	done := make(chan Event, 1)
	if err := c.Start(m, dst, func(e Event) {
		// The event is only valid during the handler call, so the
		// message is cloned before crossing the channel.
		if e.Message != nil {
			e.Message = e.Message.Clone()
		}
		done <- e
	}); err != nil {
		return err
	}
	e := <-done
	if f != nil {
		f(e)
	}
	return nil
}

// Indicate transmits an indication to dst without registering a
// transaction: indications are never retransmitted and produce no
// resolution. A fresh random transaction id is generated when the
// message carries a zero id.
func (c *Client) Indicate(m *Message, dst net.Addr) error {
	if m.Type.Class != ClassIndication {
		return newDecodeErr("message", "class", "not an indication")
	}
	var zero transactionID
	if m.TransactionID == zero {
		if err := m.NewTransactionID(); err != nil {
			return err
		}
	}
	c.mux.Lock()
	if c.closed {
		c.mux.Unlock()
		return ErrClientClosed
	}
	c.mux.Unlock()
	_, err := c.transport.Send(m.Raw, dst)
	return err
}

// Cancel stops the pending transaction: its handler receives
// ErrTransactionStopped and a subsequently arriving response is treated
// as unsolicited. Idempotent: canceling a resolved transaction returns
// ErrTransactionNotExists.
func (c *Client) Cancel(id [TransactionIDSize]byte) error {
	c.mux.Lock()
	if c.closed {
		c.mux.Unlock()
		return ErrClientClosed
	}
	_, pending := c.t[id]
	c.mux.Unlock()
	if !pending {
		return ErrTransactionNotExists
	}
	if err := c.agent.Stop(id); err != nil && !errors.Is(err, ErrTransactionNotExists) {
		return err
	}
	// The agent may have already resolved the registration (for example
	// between a collect and a retransmission): the client table is
	// authoritative, so make sure the handler observes the stop.
	if t, ok := c.remove(id); ok {
		t.h(Event{TransactionID: id, Error: ErrTransactionStopped})
	}
	return nil
}

// handleAgentCallback is the agent handler: it routes matched
// responses, timeouts and stops to the owning transaction, runs the
// retransmission schedule, and forwards everything else as unsolicited
// traffic.
func (c *Client) handleAgentCallback(e Event) {
	id := e.TransactionID
	if e.Message != nil {
		id = e.Message.TransactionID
	}
	c.mux.Lock()
	if c.closed {
		c.mux.Unlock()
		return
	}
	t, found := c.t[id]
	if found && e.Message != nil {
		// Only a response of the same method resolves the request;
		// anything else flows to the unsolicited handler and the
		// transaction keeps waiting.
		if !isResponseClass(e.Message.Type.Class) || e.Message.Type.Method != t.method {
			found = false
		}
	}
	retransmit := found &&
		errors.Is(e.Error, ErrTransactionTimeOut) &&
		!c.reliable() &&
		t.attempt < c.maxAttempts
	if found && !retransmit {
		delete(c.t, id)
	}
	h := c.handler
	c.mux.Unlock()

	if !found {
		// Unsolicited traffic: indications, responses to unknown or
		// already resolved transactions, method mismatches. The agent
		// stop after a failed retransmission also lands here with an
		// empty message and is dropped.
		if e.Message != nil && h != nil {
			h(e)
		}
		return
	}
	if retransmit {
		c.retransmit(t)
		return
	}
	e.TransactionID = id
	t.h(e)
}

// retransmit performs one more transmission of the request and
// reschedules its deadline.
func (c *Client) retransmit(t *clientTransaction) {
	t.attempt++
	deadline := c.nextDeadline(c.clock.Now(), t.attempt)
	if err := c.agent.Start(t.id, t.method, deadline); err != nil {
		if rt, ok := c.remove(t.id); ok {
			rt.h(Event{TransactionID: t.id, Error: err})
		}
		return
	}
	if _, err := c.transport.Send(t.raw, t.dest); err != nil {
		// Hard send failure: resolve immediately, no more
		// retransmissions. The entry leaves the table before the agent
		// stop so the stop event is dropped as ownerless.
		rt, ok := c.remove(t.id)
		if stopErr := c.agent.Stop(t.id); stopErr != nil && !errors.Is(stopErr, ErrTransactionNotExists) {
			c.log.Debugf("stop after failed send: %v", stopErr)
		}
		if ok {
			rt.h(Event{TransactionID: t.id, Error: TransportError{Err: err}})
		}
		return
	}
}

// Close frees resources: stops the collector and the read loop, closes
// the agent and the transport, and resolves every pending transaction
// with ErrClientClosed.
func (c *Client) Close() error {
	c.mux.Lock()
	if c.closed {
		c.mux.Unlock()
		return ErrClientClosed
	}
	c.closed = true
	pending := make([]*clientTransaction, 0, len(c.t))
	for _, t := range c.t {
		pending = append(pending, t)
	}
	c.t = nil
	c.mux.Unlock()

	for _, t := range pending {
		t.h(Event{TransactionID: t.id, Error: ErrClientClosed})
	}
	if err := c.collector.Close(); err != nil {
		c.log.Warnf("collector close: %v", err)
	}
	agentErr := c.agent.Close()
	transportErr := c.transport.Close()
	c.wg.Wait()
	if agentErr != nil && !errors.Is(agentErr, ErrAgentClosed) {
		return agentErr
	}
	return transportErr
}
