package farm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

var (
	ErrInvalidAmount  = errors.New("invalid stake amount")
	ErrUnknownRequest = errors.New("unknown stake request")
	ErrApprovalFailed = errors.New("approval transaction failed")
	ErrStakeFailed    = errors.New("stake transaction failed")
	ErrSuperseded     = errors.New("superseded by a newer stake request")
)

// Status is the lifecycle label of a submitted contract call.
type Status uint8

const (
	StatusNone Status = iota
	StatusPendingSignature
	StatusMining
	StatusSuccess
	StatusFail
	StatusException
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "None"
	case StatusPendingSignature:
		return "PendingSignature"
	case StatusMining:
		return "Mining"
	case StatusSuccess:
		return "Success"
	case StatusFail:
		return "Fail"
	case StatusException:
		return "Exception"
	default:
		return "Unknown"
	}
}

// TxState is the live state of the latest send of a contract function.
type TxState struct {
	// ID tags the send. The coordinator uses the stake request id for both legs.
	ID          uuid.UUID
	Name        string
	Status      Status
	Transaction *types.Transaction
	Receipt     *types.Receipt
	Err         error
}

// Hash returns the hash of the sent transaction or an empty hash.
func (s TxState) Hash() common.Hash {
	if s.Transaction == nil {
		return common.Hash{}
	}
	return s.Transaction.Hash()
}

// Phase of a stake request.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAwaitingApproval
	PhaseAwaitingStake
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingApproval:
		return "awaiting-approval"
	case PhaseAwaitingStake:
		return "awaiting-stake"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Request is a snapshot of a stake request.
type Request struct {
	ID     uuid.UUID
	Token  common.Address
	Amount *big.Int
	Phase  Phase
	Err    error

	ApprovalHash common.Hash
	StakeHash    common.Hash
}

// ParseAmount parses an unsigned decimal string of token base units.
func ParseAmount(amount string) (*big.Int, error) {
	if amount == "" || amount[0] < '0' || amount[0] > '9' {
		return nil, &AmountError{Amount: amount}
	}
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, &AmountError{Amount: amount}
	}
	return value, nil
}

// AmountError reports an amount that can't be used for staking.
type AmountError struct {
	Amount string
}

func (e *AmountError) Error() string {
	return "can't use " + e.Amount + " as stake amount"
}

func (e *AmountError) Is(target error) bool {
	return target == ErrInvalidAmount
}
