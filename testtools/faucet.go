package testtools

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// NewFaucet creates faucet object, requires backend and private key.
func NewFaucet(backend bind.ContractTransactor, pkey *ecdsa.PrivateKey) Faucet {
	return Faucet{
		pkey:    pkey,
		address: crypto.PubkeyToAddress(pkey.PublicKey),
		signer:  types.HomesteadSigner{},
		backend: backend,
	}
}

// Faucet provides API to request funds.
type Faucet struct {
	pkey    *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer
	backend bind.ContractTransactor
}

// Request funds for an address. Context will be passed to all internal network calls.
// The transaction is sent but not waited for.
func (f Faucet) Request(ctx context.Context, to common.Address, funds *big.Int) (*types.Transaction, error) {
	nonce, err := f.backend.PendingNonceAt(ctx, f.address)
	if err != nil {
		return nil, err
	}
	price, err := f.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	tx := types.NewTransaction(nonce, to, funds, ETHTransferGas, price, nil)
	tx, err = types.SignTx(tx, f.signer, f.pkey)
	if err != nil {
		return nil, err
	}
	return tx, f.backend.SendTransaction(ctx, tx)
}

// Fund requests funds for a new key and waits until they are mined.
func (f Faucet) Fund(ctx context.Context, backend bind.DeployBackend, funds *big.Int) (*ecdsa.PrivateKey, error) {
	pkey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	tx, err := f.Request(ctx, crypto.PubkeyToAddress(pkey.PublicKey), funds)
	if err != nil {
		return nil, err
	}
	if _, err := bind.WaitMined(ctx, backend, tx); err != nil {
		return nil, err
	}
	return pkey, nil
}
