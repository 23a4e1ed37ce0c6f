package farm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Transactor submits the two legs of a stake request. Both calls return
// immediately, results are reported back through Coordinator.HandleApproval
// and Coordinator.HandleStake with the same id.
type Transactor interface {
	SendApprove(ctx context.Context, id uuid.UUID, token common.Address, amount *big.Int)
	SendStake(ctx context.Context, id uuid.UUID, token common.Address, amount *big.Int)
}

type event uint8

const (
	eventRequested event = iota
	eventApproved
	eventApprovalFailed
	eventSuperseded
	eventStaked
	eventStakeFailed
)

// transitions is the complete table. Pairs that are missing are ignored, so
// that repeated observations of the same status never act twice.
var transitions = map[Phase]map[event]Phase{
	PhaseIdle: {
		eventRequested: PhaseAwaitingApproval,
	},
	PhaseAwaitingApproval: {
		eventApproved:       PhaseAwaitingStake,
		eventApprovalFailed: PhaseFailed,
		eventSuperseded:     PhaseFailed,
	},
	PhaseAwaitingStake: {
		eventStaked:      PhaseDone,
		eventStakeFailed: PhaseFailed,
	},
}

func transition(from Phase, ev event) (Phase, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}

func approvalEvent(status Status) (event, bool) {
	switch status {
	case StatusSuccess:
		return eventApproved, true
	case StatusFail, StatusException:
		return eventApprovalFailed, true
	}
	return 0, false
}

func stakeEvent(status Status) (event, bool) {
	switch status {
	case StatusSuccess:
		return eventStaked, true
	case StatusFail, StatusException:
		return eventStakeFailed, true
	}
	return 0, false
}

func legError(sentinel error, state TxState) error {
	if state.Err == nil {
		return fmt.Errorf("%w: status %s", sentinel, state.Status)
	}
	return fmt.Errorf("%w: status %s: %v", sentinel, state.Status, state.Err)
}

type request struct {
	Request

	ctx  context.Context
	done chan struct{}
}

// Coordinator sequences approve and stake so that a stake is sent once, and
// only after its approval was mined successfully.
//
// At most one request waits for approval at a time. A newer request
// supersedes it even if the older approval later succeeds.
type Coordinator struct {
	tx      Transactor
	log     zerolog.Logger
	metrics *Metrics

	mu       sync.Mutex
	requests map[uuid.UUID]*request
	pending  *request
}

func NewCoordinator(tx Transactor, log zerolog.Logger, metrics *Metrics) *Coordinator {
	return &Coordinator{
		tx:       tx,
		log:      log.With().Str("component", "coordinator").Logger(),
		metrics:  metrics,
		requests: map[uuid.UUID]*request{},
	}
}

// RequestStake records the request and submits the approval for amount of
// token. It doesn't wait for the approval to be mined. ctx is kept for both
// transactions of the request.
func (c *Coordinator) RequestStake(ctx context.Context, amount string, token common.Address) (uuid.UUID, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return uuid.Nil, err
	}
	req := &request{
		Request: Request{
			ID:     uuid.New(),
			Token:  token,
			Amount: value,
			Phase:  PhaseIdle,
		},
		ctx:  ctx,
		done: make(chan struct{}),
	}

	c.mu.Lock()
	if c.pending != nil {
		c.apply(c.pending, eventSuperseded, ErrSuperseded)
	}
	c.requests[req.ID] = req
	c.apply(req, eventRequested, nil)
	c.pending = req
	c.mu.Unlock()

	c.log.Info().
		Str("id", req.ID.String()).
		Str("token", token.Hex()).
		Str("amount", value.String()).
		Msg("requesting approval")
	c.tx.SendApprove(ctx, req.ID, token, value)
	return req.ID, nil
}

// HandleApproval observes the state of an approval. It is safe to call it
// any number of times with the same state.
func (c *Coordinator) HandleApproval(state TxState) {
	ev, ok := approvalEvent(state.Status)
	if !ok {
		return
	}
	c.mu.Lock()
	req, exists := c.requests[state.ID]
	if !exists {
		c.mu.Unlock()
		return
	}
	if state.Transaction != nil {
		req.ApprovalHash = state.Hash()
	}
	var cause error
	if ev == eventApprovalFailed {
		cause = legError(ErrApprovalFailed, state)
	}
	if !c.apply(req, ev, cause) {
		c.mu.Unlock()
		return
	}
	if c.pending == req {
		c.pending = nil
	}
	fire := req.Phase == PhaseAwaitingStake
	ctx, id, token, amount := req.ctx, req.ID, req.Token, req.Amount
	c.mu.Unlock()

	if fire {
		c.log.Info().
			Str("id", id.String()).
			Str("token", token.Hex()).
			Str("amount", amount.String()).
			Msg("approval confirmed, staking")
		c.tx.SendStake(ctx, id, token, amount)
	}
}

// HandleStake observes the state of a stake transaction.
func (c *Coordinator) HandleStake(state TxState) {
	ev, ok := stakeEvent(state.Status)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	req, exists := c.requests[state.ID]
	if !exists {
		return
	}
	if state.Transaction != nil {
		req.StakeHash = state.Hash()
	}
	var cause error
	if ev == eventStakeFailed {
		cause = legError(ErrStakeFailed, state)
	}
	c.apply(req, ev, cause)
}

// apply must be called with mu held. It reports whether the event changed
// the phase of the request.
func (c *Coordinator) apply(req *request, ev event, cause error) bool {
	next, ok := transition(req.Phase, ev)
	if !ok {
		return false
	}
	c.log.Debug().
		Str("id", req.ID.String()).
		Str("from", req.Phase.String()).
		Str("to", next.String()).
		Msg("stake request transition")
	req.Phase = next
	c.metrics.observePhase(next)
	if next == PhaseFailed {
		req.Err = cause
		c.log.Warn().Str("id", req.ID.String()).Err(cause).Msg("stake request failed")
	}
	if next.Terminal() {
		close(req.done)
	}
	return true
}

// Request returns a snapshot of the request with id.
func (c *Coordinator) Request(id uuid.UUID) (Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, exists := c.requests[id]
	if !exists {
		return Request{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	return req.Request, nil
}

// Wait blocks until the request is done or failed. For failed requests the
// cause is returned together with the snapshot.
func (c *Coordinator) Wait(ctx context.Context, id uuid.UUID) (Request, error) {
	c.mu.Lock()
	req, exists := c.requests[id]
	c.mu.Unlock()
	if !exists {
		return Request{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	select {
	case <-ctx.Done():
		return Request{}, ctx.Err()
	case <-req.done:
	}
	c.mu.Lock()
	snapshot := req.Request
	c.mu.Unlock()
	return snapshot, snapshot.Err
}

// Forget drops a finished request. Requests that are still in flight are kept.
func (c *Coordinator) Forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req, exists := c.requests[id]; exists && req.Phase.Terminal() {
		delete(c.requests, id)
	}
}
