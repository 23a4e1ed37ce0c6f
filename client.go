package farm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Option func(*Client)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithABIs replaces the built-in ABIs, e.g. with ones loaded from build artifacts.
func WithABIs(erc20, farm abi.ABI) Option {
	return func(c *Client) {
		c.erc20ABI = erc20
		c.farmABI = farm
	}
}

func Dial(rawurl string, farm common.Address, key *ecdsa.PrivateKey, opts ...Option) (*Client, error) {
	client, err := ethclient.Dial(rawurl)
	if err != nil {
		return nil, err
	}
	return NewClient(client, farm, key, opts...), nil
}

// NewClient creates a client that stakes into the farm contract using key.
func NewClient(backend Backend, farm common.Address, key *ecdsa.PrivateKey, opts ...Option) *Client {
	c := &Client{
		backend:   backend,
		farm:      farm,
		signer:    NewSigner(key),
		log:       zerolog.Nop(),
		erc20ABI:  mustParseABI(ERC20ABI),
		farmABI:   mustParseABI(TokenFarmABI),
		approvals: map[common.Address]*ContractFunction{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("account", c.signer.Address().Hex()).Logger()
	c.coordinator = NewCoordinator(c, c.log, c.metrics)
	c.stake = NewContractFunction("Stake Tokens", farm, c.farmABI, methodStakeTokens, backend, c.signer, c.log, c.metrics)
	c.stake.Subscribe(c.coordinator.HandleStake)
	return c
}

type Client struct {
	backend  Backend
	farm     common.Address
	signer   *Signer
	log      zerolog.Logger
	metrics  *Metrics
	erc20ABI abi.ABI
	farmABI  abi.ABI

	coordinator *Coordinator
	stake       *ContractFunction

	mu        sync.Mutex
	approvals map[common.Address]*ContractFunction
}

// Address of the staking account.
func (c *Client) Address() common.Address {
	return c.signer.Address()
}

// Farm returns the address of the farm contract.
func (c *Client) Farm() common.Address {
	return c.farm
}

// ApproveAndStake approves the farm to spend amount of token and stakes it
// once the approval is mined. It returns as soon as the approval is
// submitted; use Wait to block until the request is finished.
func (c *Client) ApproveAndStake(ctx context.Context, amount string, token common.Address) (uuid.UUID, error) {
	return c.coordinator.RequestStake(ctx, amount, token)
}

func (c *Client) Wait(ctx context.Context, id uuid.UUID) (Request, error) {
	return c.coordinator.Wait(ctx, id)
}

func (c *Client) Request(id uuid.UUID) (Request, error) {
	return c.coordinator.Request(id)
}

// Forget drops a finished request. Long-lived clients should call it once
// the result of Wait was consumed.
func (c *Client) Forget(id uuid.UUID) {
	c.coordinator.Forget(id)
}

// ApprovalState returns the state of the latest approval sent for token.
func (c *Client) ApprovalState(token common.Address) TxState {
	return c.approveFunction(token).State()
}

// StakeState returns the state of the latest stake transaction.
func (c *Client) StakeState() TxState {
	return c.stake.State()
}

func (c *Client) SendApprove(ctx context.Context, id uuid.UUID, token common.Address, amount *big.Int) {
	c.approveFunction(token).Send(ctx, id, c.farm, amount)
}

func (c *Client) SendStake(ctx context.Context, id uuid.UUID, token common.Address, amount *big.Int) {
	c.stake.Send(ctx, id, amount, token)
}

func (c *Client) approveFunction(token common.Address) *ContractFunction {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn, exists := c.approvals[token]
	if !exists {
		fn = NewContractFunction("Approve ERC20 transfer", token, c.erc20ABI, methodApprove, c.backend, c.signer, c.log, c.metrics)
		fn.Subscribe(c.coordinator.HandleApproval)
		c.approvals[token] = fn
	}
	return fn
}

func (c *Client) Allowance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return c.callUint(ctx, token, c.erc20ABI, methodAllowance, owner, c.farm)
}

func (c *Client) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return c.callUint(ctx, token, c.erc20ABI, methodBalanceOf, owner)
}

// StakingBalance returns the amount of token staked by user.
func (c *Client) StakingBalance(ctx context.Context, token, user common.Address) (*big.Int, error) {
	return c.callUint(ctx, c.farm, c.farmABI, methodStakingBalance, token, user)
}

// TokenAllowed reports whether the farm accepts token for staking.
func (c *Client) TokenAllowed(ctx context.Context, token common.Address) (bool, error) {
	var (
		ret0     = new(bool)
		contract = bind.NewBoundContract(c.farm, c.farmABI, c.backend, c.backend, c.backend)
	)
	err := contract.Call(&bind.CallOpts{Context: ctx}, ret0, methodTokenAllowed, token)
	return *ret0, err
}

func (c *Client) callUint(ctx context.Context, address common.Address, contractABI abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	var (
		ret0     = new(*big.Int)
		contract = bind.NewBoundContract(address, contractABI, c.backend, c.backend, c.backend)
	)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, ret0, method, args...); err != nil {
		return nil, err
	}
	return *ret0, nil
}
