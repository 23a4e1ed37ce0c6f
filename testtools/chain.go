package testtools

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/abi/bind/backends"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/crypto"
)

const ETHTransferGas uint64 = 21000

var (
	// AcceptCode deploys a contract that stops successfully on any call.
	AcceptCode = common.FromHex("0x6001600c60003960016000f300")
	// RevertCode deploys a contract that reverts any call.
	RevertCode = common.FromHex("0x6005600c60003960056000f360006000fd")
)

// Chain is a simulated chain with a funded faucet key. While started, blocks
// are committed in the background so that transactions get mined.
type Chain struct {
	Backend *backends.SimulatedBackend

	pkey *ecdsa.PrivateKey

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewChain() *Chain {
	pkey, err := crypto.GenerateKey()
	if err != nil {
		panic(err.Error())
	}
	alloc := core.GenesisAlloc{
		crypto.PubkeyToAddress(pkey.PublicKey): {Balance: new(big.Int).SetUint64(^uint64(0))},
	}
	return &Chain{
		Backend: backends.NewSimulatedBackend(alloc, ^uint64(0)),
		pkey:    pkey,
	}
}

// Start committing blocks every interval.
func (c *Chain) Start(interval time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return errors.New("chain already running")
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.Backend.Commit()
			}
		}
	}(c.stop, c.done)
	return nil
}

func (c *Chain) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == nil {
		return errors.New("chain not running")
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
	return nil
}

func (c *Chain) FaucetService() Faucet {
	return NewFaucet(c.Backend, c.pkey)
}

// Deploy creates a contract with code from the faucet account and commits it.
func (c *Chain) Deploy(code []byte) (common.Address, error) {
	address, _, _, err := bind.DeployContract(bind.NewKeyedTransactor(c.pkey), abi.ABI{}, code, c.Backend)
	if err != nil {
		return common.Address{}, err
	}
	c.Backend.Commit()
	return address, nil
}
