package farm

import (
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Backend is satisfied by *ethclient.Client and *backends.SimulatedBackend.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer signs transactions for one account. Sends are serialized so that
// concurrent calls never pick the same pending nonce.
type Signer struct {
	mu  sync.Mutex
	key *ecdsa.PrivateKey
}

func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *Signer) transact(ctx context.Context, contract *bind.BoundContract, method string, args ...interface{}) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := bind.NewKeyedTransactor(s.key)
	opts.Context = ctx
	return contract.Transact(opts, method, args...)
}

// ContractFunction sends one method of one contract and tracks the state of
// the latest send.
type ContractFunction struct {
	name     string
	method   string
	address  common.Address
	contract *bind.BoundContract
	backend  Backend
	signer   *Signer
	log      zerolog.Logger
	metrics  *Metrics

	mu        sync.Mutex
	state     TxState
	listeners []func(TxState)
}

// NewContractFunction binds method of the contract at address. name is a
// human readable transaction name used in logs and metrics.
func NewContractFunction(
	name string,
	address common.Address,
	contractABI abi.ABI,
	method string,
	backend Backend,
	signer *Signer,
	log zerolog.Logger,
	metrics *Metrics,
) *ContractFunction {
	return &ContractFunction{
		name:     name,
		method:   method,
		address:  address,
		contract: bind.NewBoundContract(address, contractABI, backend, backend, backend),
		backend:  backend,
		signer:   signer,
		log:      log.With().Str("function", name).Str("contract", address.Hex()).Logger(),
		metrics:  metrics,
	}
}

func (f *ContractFunction) Name() string {
	return f.name
}

func (f *ContractFunction) Address() common.Address {
	return f.address
}

// State returns the state of the latest send.
func (f *ContractFunction) State() TxState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe registers fn for every state change of this function.
// fn is called from the goroutine that produced the change.
func (f *ContractFunction) Subscribe(fn func(TxState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// Send submits the call tagged with id and returns immediately. Progress is
// reported through State and subscribers. Context is used for signing,
// sending and waiting for the receipt.
func (f *ContractFunction) Send(ctx context.Context, id uuid.UUID, args ...interface{}) {
	f.start(TxState{ID: id, Name: f.name, Status: StatusPendingSignature})
	go f.send(ctx, id, args)
}

func (f *ContractFunction) send(ctx context.Context, id uuid.UUID, args []interface{}) {
	tx, err := f.signer.transact(ctx, f.contract, f.method, args...)
	if err != nil {
		f.update(TxState{ID: id, Name: f.name, Status: StatusException, Err: err})
		return
	}
	f.update(TxState{ID: id, Name: f.name, Status: StatusMining, Transaction: tx})

	receipt, err := bind.WaitMined(ctx, f.backend, tx)
	if err != nil {
		f.update(TxState{ID: id, Name: f.name, Status: StatusException, Transaction: tx, Err: err})
		return
	}
	status := StatusSuccess
	if receipt.Status == types.ReceiptStatusFailed {
		status = StatusFail
	}
	f.update(TxState{ID: id, Name: f.name, Status: status, Transaction: tx, Receipt: receipt})
}

// start replaces the tracked send.
func (f *ContractFunction) start(state TxState) {
	f.mu.Lock()
	f.state = state
	listeners := f.listeners
	f.mu.Unlock()
	f.notify(state, listeners)
}

// update reports progress of a send. Only the latest send is tracked in
// State, but subscribers see the states of every send, including the ones
// that were replaced while still mining.
func (f *ContractFunction) update(state TxState) {
	f.mu.Lock()
	if f.state.ID == state.ID {
		f.state = state
	}
	listeners := f.listeners
	f.mu.Unlock()
	f.notify(state, listeners)
}

func (f *ContractFunction) notify(state TxState, listeners []func(TxState)) {
	f.metrics.observeTx(f.name, state.Status)
	event := f.log.Debug()
	if state.Status == StatusException || state.Status == StatusFail {
		event = f.log.Warn()
	}
	if state.Transaction != nil {
		event = event.Str("tx", state.Hash().Hex())
	}
	event.Err(state.Err).
		Str("id", state.ID.String()).
		Str("status", state.Status.String()).
		Msg("transaction state changed")
	for _, fn := range listeners {
		fn(state)
	}
}
