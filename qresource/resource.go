// Package qresource implements ManagedResource (component I): a
// thread-affine wrapper over a raw, thread-unsafe resource (the
// prototype is a database connection) with a per-thread transaction
// lock gate, grounded on the original's AbstractDatasourceResource
// state machine from original_source/lib/DatasourcePool.h.
package qresource

import (
	"sync"
	"time"

	"github.com/qorerun/qcore/qlock"
	"github.com/qorerun/qcore/xsink"
	"github.com/qorerun/qcore/xthread"
)

// State is one node of the state machine §4.I diagrams.
type State int

const (
	StateClosed State = iota
	StateIdle
	StateInAction
	StateIdleInTxn
	StateInActionInTxn
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateIdle:
		return "idle"
	case StateInAction:
		return "in-action"
	case StateIdleInTxn:
		return "idle-in-txn"
	case StateInActionInTxn:
		return "in-action-in-txn"
	default:
		return "unknown"
	}
}

// DefaultGateTimeout is the transaction gate's default acquisition
// timeout (§4.I: "configurable timeout; default 120 s").
const DefaultGateTimeout = 120 * time.Second

// Opener opens the underlying raw resource, using the current
// (possibly shadowed) configuration. A non-nil error is turned into a
// sink exception by StartAction/Open.
type Opener func(sink *xsink.Sink) error

// Closer releases the underlying raw resource. It has no error result:
// §4.I's close() has no failure path of its own.
type Closer func()

// ManagedResource is the state machine and transaction gate described
// in §4.I. Config is a caller-supplied key/value map (e.g. "username",
// "password") whose shadow copy only takes effect on the next Open.
type ManagedResource struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state State
	active int

	open  Opener
	close Closer

	config       map[string]string
	shadowConfig map[string]string

	autoCommit  bool
	gateTimeout time.Duration
	gate        *qlock.Mutex
	gateOwner   *xthread.Context
}

// New returns a Closed ManagedResource. autoCommit disables the
// transaction gate entirely (every action is self-contained, §4.I).
func New(open Opener, close Closer, autoCommit bool) *ManagedResource {
	r := &ManagedResource{
		open:         open,
		close:        close,
		autoCommit:   autoCommit,
		gateTimeout:  DefaultGateTimeout,
		config:       map[string]string{},
		shadowConfig: map[string]string{},
		gate:         qlock.NewMutex("managed-resource-gate"),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// SetGateTimeout overrides the default 120s transaction-gate timeout.
func (r *ManagedResource) SetGateTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateTimeout = d
}

// State reports the current state machine node.
func (r *ManagedResource) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetConfig writes into the shadow configuration; it takes effect only
// on the next Open (§4.I: "only take effect on the next open()").
func (r *ManagedResource) SetConfig(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shadowConfig[key] = value
}

// Open moves Closed -> Idle, applying any shadowed configuration and
// invoking Opener. A no-op (returns nil) if already open.
func (r *ManagedResource) Open(sink *xsink.Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateClosed {
		return nil
	}
	for k, v := range r.shadowConfig {
		r.config[k] = v
	}
	if r.open != nil {
		if err := r.open(sink); err != nil {
			sink.RaiseSystem("RESOURCE-OPEN-ERROR", "%v", err)
			return err
		}
	}
	r.state = StateIdle
	return nil
}

// StartAction opens the resource if closed, then increments the active
// counter, moving Idle->InAction or IdleInTxn->InActionInTxn. Returns
// an error (already placed on sink) only if opening failed.
func (r *ManagedResource) StartAction(sink *xsink.Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateClosed {
		r.mu.Unlock()
		err := r.Open(sink)
		r.mu.Lock()
		if err != nil {
			return err
		}
	}
	r.active++
	switch r.state {
	case StateIdle:
		r.state = StateInAction
	case StateIdleInTxn:
		r.state = StateInActionInTxn
	}
	return nil
}

// EndAction decrements the active counter, moving InAction->Idle or
// InActionInTxn->IdleInTxn, signalling the status condition when active
// reaches zero (§4.I invariant).
func (r *ManagedResource) EndAction() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	switch r.state {
	case StateInAction:
		r.state = StateIdle
	case StateInActionInTxn:
		r.state = StateIdleInTxn
	}
	if r.active == 0 {
		r.cond.Broadcast()
	}
}

// BeginTransaction acquires the transaction gate for tc (unless
// auto-commit is enabled, in which case it is a no-op) and registers an
// implicit-rollback cleanup so the gate is not left held if tc exits
// without committing or rolling back. Timeout acquiring the gate raises
// TRANSACTION-TIMEOUT naming the holding thread's id.
func (r *ManagedResource) BeginTransaction(tc *xthread.Context, sink *xsink.Sink) error {
	if r.autoCommit {
		return nil
	}
	r.mu.Lock()
	timeout := r.gateTimeout
	r.mu.Unlock()

	timedOut, err := r.gate.LockTimeout(tc, timeout.Milliseconds())
	if err != nil {
		sink.RaiseSystem("TRANSACTION-ERROR", "%v", err)
		return err
	}
	if timedOut {
		// The holder is read after the wait gave up, so it can be stale:
		// the thread named in the message may already have released the
		// gate by now (or -1 is reported if nobody holds it any more).
		r.mu.Lock()
		owner := r.gateOwner
		r.mu.Unlock()
		ownerID := int64(-1)
		if owner != nil {
			ownerID = int64(owner.ID())
		}
		sink.RaiseSystem("TRANSACTION-TIMEOUT", "timed out after %s waiting for the transaction lock held by thread %d", timeout, ownerID)
		return &TimeoutError{HolderTID: ownerID}
	}

	r.mu.Lock()
	r.gateOwner = tc
	if r.state == StateIdle {
		r.state = StateIdleInTxn
	}
	r.mu.Unlock()

	tc.RegisterResource("managed-resource-transaction", func(cleanupSink *xsink.Sink) {
		r.Rollback(tc, cleanupSink)
	})
	return nil
}

// TimeoutError is returned by BeginTransaction (alongside the sink
// exception) so Go callers can recover the holder's thread id without
// reparsing the exception description.
type TimeoutError struct {
	HolderTID int64
}

func (e *TimeoutError) Error() string {
	return "timed out waiting for the transaction lock"
}

// Commit releases the gate, returning to Idle. Calling it without
// holding a transaction is a no-op.
func (r *ManagedResource) Commit(tc *xthread.Context, sink *xsink.Sink) error {
	return r.endTransaction(tc, sink)
}

// Rollback is Commit's counterpart, semantically distinct in user code
// (the embedding API exposes both) but identical at this level: both
// simply release the gate and return the state machine to Idle.
func (r *ManagedResource) Rollback(tc *xthread.Context, sink *xsink.Sink) error {
	return r.endTransaction(tc, sink)
}

func (r *ManagedResource) endTransaction(tc *xthread.Context, sink *xsink.Sink) error {
	if r.autoCommit {
		return nil
	}
	r.mu.Lock()
	if r.gateOwner != tc {
		r.mu.Unlock()
		return nil
	}
	r.gateOwner = nil
	if r.state == StateIdleInTxn {
		r.state = StateIdle
	}
	r.mu.Unlock()

	tc.RemoveResource("managed-resource-transaction")
	if err := r.gate.Unlock(tc); err != nil {
		sink.RaiseSystem("TRANSACTION-ERROR", "%v", err)
		return err
	}
	return nil
}

// Close waits for active to drop to zero, force-releases the
// transaction gate if held, invokes Closer, and moves to Closed from
// any state (§4.I: "any-state --close()--> (drains active to 0) -->
// Closed").
func (r *ManagedResource) Close() {
	r.mu.Lock()
	for r.active > 0 {
		r.cond.Wait()
	}
	owner := r.gateOwner
	r.gateOwner = nil
	closer := r.close
	r.state = StateClosed
	r.mu.Unlock()

	if owner != nil {
		// Force-exit the gate: Unlock may legitimately fail if owner
		// already released it between the read above and here; that
		// race is harmless, the gate ends up unlocked either way.
		_ = r.gate.Unlock(owner)
	}
	if closer != nil {
		closer()
	}
}

// Reset closes and then reopens the resource. The two steps take the
// object mutex separately, so it is not atomic: another caller can
// observe StateClosed between them, or start an action that reopens the
// resource first (the Open here is then a no-op).
func (r *ManagedResource) Reset(sink *xsink.Sink) error {
	r.Close()
	return r.Open(sink)
}
