package stun

import (
	"net"
	"sync"
	"time"
)

// Handler handles state changes of transactions.
//
// Handler is called on transaction state change. Usage of e is valid
// only during the call, the user must copy the needed fields explicitly.
type Handler func(e Event)

// Event is passed to Handler describing a transaction event. Do not
// reuse outside Handler.
type Event struct {
	TransactionID [TransactionIDSize]byte
	Message       *Message
	From          net.Addr
	Error         error
}

// NewAgent initializes and returns a new Agent with provided handler.
// If h is nil, the no-op handler is used.
func NewAgent(h Handler) *Agent {
	if h == nil {
		h = noopHandler()
	}
	return &Agent{
		transactions: make(map[transactionID]agentTransaction),
		handler:      h,
	}
}

func noopHandler() Handler {
	return func(Event) {}
}

// Agent is the pending-transaction table of the engine: a low-level
// abstraction that matches inbound messages against registered
// transactions and expires them on Collect calls. All calls are
// goroutine-safe.
//
// Insertion is atomic with respect to matching and removal: a response
// can never match a transaction that is concurrently being removed, so
// result delivery happens at most once per registration.
type Agent struct {
	// transactions map is protected by mux. A transaction is
	// unregistered before its event is handled, outside the lock,
	// minimizing lock time and protecting agentTransaction from
	// concurrent access.
	transactions map[transactionID]agentTransaction
	closed       bool       // all calls are invalid if true
	mux          sync.Mutex // protects transactions and closed
	handler      Handler    // called on transaction state changes
}

type transactionID [TransactionIDSize]byte

// agentTransaction represents a transaction in progress. Concurrent
// access is invalid.
type agentTransaction struct {
	id       transactionID
	method   Method
	deadline time.Time
}

var (
	// ErrTransactionStopped indicates that transaction was manually stopped.
	ErrTransactionStopped Error = "transaction is stopped"
	// ErrTransactionNotExists indicates that agent failed to find transaction.
	ErrTransactionNotExists Error = "transaction not exists"
	// ErrTransactionExists indicates that transaction with same id is already
	// registered.
	ErrTransactionExists Error = "transaction exists with same id"
	// ErrAgentClosed indicates that agent is in closed state and is unable
	// to handle transactions.
	ErrAgentClosed Error = "agent is closed"
	// ErrTransactionTimeOut indicates that transaction has reached deadline.
	ErrTransactionTimeOut Error = "transaction is timed out"
)

// StopWithError removes the transaction from the table and calls the
// handler with the provided error. Idempotent: returns
// ErrTransactionNotExists if the transaction is already resolved.
func (a *Agent) StopWithError(id [TransactionIDSize]byte, err error) error {
	a.mux.Lock()
	if a.closed {
		a.mux.Unlock()
		return ErrAgentClosed
	}
	_, exists := a.transactions[id]
	delete(a.transactions, id)
	h := a.handler
	a.mux.Unlock()
	if !exists {
		return ErrTransactionNotExists
	}
	h(Event{
		TransactionID: id,
		Error:         err,
	})
	return nil
}

// Stop stops the transaction with ErrTransactionStopped, blocking
// until the handler returns.
func (a *Agent) Stop(id [TransactionIDSize]byte) error {
	return a.StopWithError(id, ErrTransactionStopped)
}

// Start registers a transaction with provided id, request method and
// deadline. Could return ErrAgentClosed or ErrTransactionExists.
//
// The agent handler is guaranteed to be eventually called exactly once
// for the registration: with a matching response, on Collect after the
// deadline, or on Stop/Close.
func (a *Agent) Start(id [TransactionIDSize]byte, method Method, deadline time.Time) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	if a.closed {
		return ErrAgentClosed
	}
	if _, exists := a.transactions[id]; exists {
		return ErrTransactionExists
	}
	a.transactions[id] = agentTransaction{
		id:       id,
		method:   method,
		deadline: deadline,
	}
	return nil
}

// agentCollectCap is initial capacity for Agent.Collect slices,
// sufficient to make the call zero-alloc in most cases.
const agentCollectCap = 100

// Collect terminates all transactions with deadlines before the
// provided time, blocking until all of them are reported to the handler
// with ErrTransactionTimeOut. Returns ErrAgentClosed if the agent is
// already closed.
//
// It is safe to call Collect concurrently but makes no sense.
func (a *Agent) Collect(gcTime time.Time) error {
	toRemove := make([]transactionID, 0, agentCollectCap)
	a.mux.Lock()
	if a.closed {
		// Doing nothing if the agent is closed. All transactions are
		// already stopped during the Close() call.
		a.mux.Unlock()
		return ErrAgentClosed
	}
	// No allocs if there are less than agentCollectCap timed out
	// transactions.
	for id, t := range a.transactions {
		if t.deadline.Before(gcTime) {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		delete(a.transactions, id)
	}
	h := a.handler
	// Calling the handler does not require the locked mutex.
	a.mux.Unlock()
	for _, id := range toRemove {
		h(Event{
			TransactionID: id,
			Error:         ErrTransactionTimeOut,
		})
	}
	return nil
}

// Process dispatches the inbound message received from addr.
//
// A message resolves a registered transaction only when its class is a
// success or error response, its transaction id matches and its method
// equals the method of the original request. Anything else (indications,
// requests, late or duplicate responses, responses with a mismatched
// method) does not consume a registration and reaches the handler as
// unsolicited traffic with a zero TransactionID.
//
// The call blocks until the handler returns.
func (a *Agent) Process(m *Message, from net.Addr) error {
	e := Event{
		Message: m,
		From:    from,
	}
	a.mux.Lock()
	if a.closed {
		a.mux.Unlock()
		return ErrAgentClosed
	}
	matched := false
	if isResponseClass(m.Type.Class) {
		t, ok := a.transactions[m.TransactionID]
		if ok && t.method == m.Type.Method {
			delete(a.transactions, m.TransactionID)
			matched = true
		}
	}
	h := a.handler
	a.mux.Unlock()
	if matched {
		e.TransactionID = m.TransactionID
	}
	h(e)
	return nil
}

func isResponseClass(c MessageClass) bool {
	return c == ClassSuccessResponse || c == ClassErrorResponse
}

// SetHandler sets the agent handler to h.
func (a *Agent) SetHandler(h Handler) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	if a.closed {
		return ErrAgentClosed
	}
	if h == nil {
		h = noopHandler()
	}
	a.handler = h
	return nil
}

// Close terminates all transactions with ErrAgentClosed and renders the
// agent unusable.
func (a *Agent) Close() error {
	a.mux.Lock()
	if a.closed {
		a.mux.Unlock()
		return ErrAgentClosed
	}
	ids := make([]transactionID, 0, len(a.transactions))
	for id := range a.transactions {
		ids = append(ids, id)
	}
	h := a.handler
	a.transactions = nil
	a.closed = true
	a.handler = noopHandler()
	a.mux.Unlock()
	for _, id := range ids {
		h(Event{
			TransactionID: id,
			Error:         ErrAgentClosed,
		})
	}
	return nil
}
