// Package operation provides single-attempt cancellation: starting a new
// planning attempt cancels the context of any attempt still in flight.
//
// Adapted from the teacher's SingleOperationManager (go.viam.com/rdk/
// operation), which guarantees a single powered-actuator operation runs at
// a time; here the "operation" is a single planning attempt instead of a
// motor command, but the cancel-on-New mechanism is unchanged.
package operation

import (
	"context"
	"sync"
	"time"

	"go.viam.com/utils"
)

// SingleOperationManager ensures at most one planning attempt is in flight.
// Starting a new one cancels the context of whatever attempt is running.
type SingleOperationManager struct {
	mu        sync.Mutex
	currentOp *anOp
}

// OpRunning reports whether a planning attempt is currently in flight.
func (sm *SingleOperationManager) OpRunning() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.currentOp != nil
}

type somCtxKey byte

const somCtxKeySingleOp = somCtxKey(0)

// New starts a new operation, cancelling any operation already in flight
// under this manager. It returns a derived context that is cancelled either
// when the returned done function is called or when a subsequent New call
// supersedes it — whichever comes first.
func (sm *SingleOperationManager) New(ctx context.Context) (context.Context, func()) {
	if ctx.Value(somCtxKeySingleOp) != nil {
		// Nested call under an operation already tracked by this manager;
		// don't spawn a second cancellable layer.
		return ctx, func() {}
	}

	sm.mu.Lock()
	sm.cancelInLock()

	theOp := &anOp{}
	ctx = context.WithValue(ctx, somCtxKeySingleOp, theOp)
	theOp.ctx, theOp.cancel = context.WithCancel(ctx)
	sm.currentOp = theOp
	sm.mu.Unlock()

	return theOp.ctx, func() {
		sm.mu.Lock()
		if theOp == sm.currentOp {
			sm.currentOp = nil
		}
		sm.mu.Unlock()
		theOp.cancel()
	}
}

// NewTimedWaitOp blocks for dur, tracked as an operation so a subsequent
// New call wakes it early. It returns true if the full duration elapsed.
func (sm *SingleOperationManager) NewTimedWaitOp(ctx context.Context, dur time.Duration) bool {
	ctx, done := sm.New(ctx)
	defer done()
	return utils.SelectContextOrWait(ctx, dur)
}

func (sm *SingleOperationManager) cancelInLock() {
	op := sm.currentOp
	if op == nil {
		return
	}
	op.cancel()
	sm.currentOp = nil
}

type anOp struct {
	ctx    context.Context
	cancel context.CancelFunc
}
