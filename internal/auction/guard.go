package auction

import "sync/atomic"

// guard is the mutual-exclusion discipline wrapping every state-mutating
// operation. Acquisition is non-blocking: a call that arrives while another
// is in flight fails with ErrReentrancy instead of deadlocking. This covers
// a collaborator calling back into the house mid-operation.
type guard struct {
	busy atomic.Bool
}

// acquire takes the guard or reports a reentrancy violation.
func (g *guard) acquire() error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrReentrancy
	}

	return nil
}

// release frees the guard. Must run on every exit path.
func (g *guard) release() {
	g.busy.Store(false)
}
