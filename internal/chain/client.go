// Package chain settles wallet balances and transfers on an EVM JSON-RPC
// endpoint.
package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"olink/go-backend/internal/platform/breaker"
	"olink/go-backend/internal/ussd"
)

// Backend is the JSON-RPC surface the client needs. *ethclient.Client
// satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Signer holds wallet keys. The custody service implements it.
type Signer interface {
	WalletAddress(ctx context.Context, phone string) (string, error)
	SignTx(ctx context.Context, phone string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

type Config struct {
	Symbol  string
	Breaker *breaker.Breaker
	Logger  *slog.Logger
}

type Client struct {
	backend Backend
	signer  Signer
	symbol  string
	cb      *breaker.Breaker
	log     *slog.Logger
}

var _ ussd.Chain = (*Client)(nil)

// Dial connects to rawURL and returns a client over it.
func Dial(ctx context.Context, rawURL string, signer Signer, cfg Config) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	return New(rpc, signer, cfg)
}

func New(backend Backend, signer Signer, cfg Config) (*Client, error) {
	if backend == nil || signer == nil {
		return nil, errors.New("chain client requires a backend and a signer")
	}
	if cfg.Symbol == "" {
		cfg.Symbol = "A0GI"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{backend: backend, signer: signer, symbol: cfg.Symbol, cb: cfg.Breaker, log: cfg.Logger}, nil
}

// VerifiedBalance reads the wallet balance at the current head. The proof id
// commits to the address, block and balance that were read.
func (c *Client) VerifiedBalance(ctx context.Context, phone string) (ussd.Balance, error) {
	addr, err := c.walletAddress(ctx, phone)
	if err != nil {
		return ussd.Balance{}, err
	}
	head, err := breaker.Do(c.cb, func() (uint64, error) { return c.backend.BlockNumber(ctx) })
	if err != nil {
		return ussd.Balance{}, fmt.Errorf("block number: %w", err)
	}
	block := new(big.Int).SetUint64(head)
	wei, err := breaker.Do(c.cb, func() (*big.Int, error) { return c.backend.BalanceAt(ctx, addr, block) })
	if err != nil {
		return ussd.Balance{}, fmt.Errorf("balance: %w", err)
	}
	return ussd.Balance{
		Amount:  FromWei(wei),
		Symbol:  c.symbol,
		ProofID: proofID(addr.Bytes(), block.Bytes(), wei.Bytes()),
	}, nil
}

// EstimateFee prices a plain value transfer at the suggested gas price.
func (c *Client) EstimateFee(ctx context.Context, from, to, amount string) (string, error) {
	msg, err := callMsg(from, to, amount)
	if err != nil {
		return "", err
	}
	price, gas, err := c.gas(ctx, msg)
	if err != nil {
		return "", err
	}
	return FromWei(new(big.Int).Mul(price, new(big.Int).SetUint64(gas))), nil
}

// Transfer signs and broadcasts a value transfer from phone's wallet. It
// returns once the node accepts the transaction.
func (c *Client) Transfer(ctx context.Context, phone, to, amount string) (ussd.TransferReceipt, error) {
	from, err := c.walletAddress(ctx, phone)
	if err != nil {
		return ussd.TransferReceipt{}, err
	}
	msg, err := callMsg(from.Hex(), to, amount)
	if err != nil {
		return ussd.TransferReceipt{}, err
	}
	chainID, err := breaker.Do(c.cb, func() (*big.Int, error) { return c.backend.ChainID(ctx) })
	if err != nil {
		return ussd.TransferReceipt{}, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := breaker.Do(c.cb, func() (uint64, error) { return c.backend.PendingNonceAt(ctx, from) })
	if err != nil {
		return ussd.TransferReceipt{}, fmt.Errorf("nonce: %w", err)
	}
	price, gas, err := c.gas(ctx, msg)
	if err != nil {
		return ussd.TransferReceipt{}, err
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: price,
		Gas:      gas,
		To:       msg.To,
		Value:    msg.Value,
	})
	signed, err := c.signer.SignTx(ctx, phone, tx, chainID)
	if err != nil {
		return ussd.TransferReceipt{}, fmt.Errorf("sign: %w", err)
	}
	if _, err := breaker.Do(c.cb, func() (struct{}, error) {
		return struct{}{}, c.backend.SendTransaction(ctx, signed)
	}); err != nil {
		return ussd.TransferReceipt{}, fmt.Errorf("send: %w", err)
	}
	hash := signed.Hash()
	c.log.Info("transfer broadcast", "tx_hash", hash.Hex(), "nonce", nonce, "chain_id", chainID.String())
	return ussd.TransferReceipt{
		TxHash:  hash.Hex(),
		ProofID: proofID(hash.Bytes(), chainID.Bytes()),
	}, nil
}

func (c *Client) walletAddress(ctx context.Context, phone string) (common.Address, error) {
	raw, err := c.signer.WalletAddress(ctx, phone)
	if err != nil {
		return common.Address{}, fmt.Errorf("wallet address: %w", err)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("wallet address %q is malformed", raw)
	}
	return common.HexToAddress(raw), nil
}

func (c *Client) gas(ctx context.Context, msg ethereum.CallMsg) (*big.Int, uint64, error) {
	price, err := breaker.Do(c.cb, func() (*big.Int, error) { return c.backend.SuggestGasPrice(ctx) })
	if err != nil {
		return nil, 0, fmt.Errorf("gas price: %w", err)
	}
	msg.GasPrice = price
	gas, err := breaker.Do(c.cb, func() (uint64, error) { return c.backend.EstimateGas(ctx, msg) })
	if err != nil {
		return nil, 0, fmt.Errorf("estimate gas: %w", err)
	}
	return price, gas, nil
}

func callMsg(from, to, amount string) (ethereum.CallMsg, error) {
	if !common.IsHexAddress(from) || !common.IsHexAddress(to) {
		return ethereum.CallMsg{}, errors.New("transfer endpoints must be hex addresses")
	}
	value, err := ToWei(amount)
	if err != nil {
		return ethereum.CallMsg{}, err
	}
	dst := common.HexToAddress(to)
	return ethereum.CallMsg{From: common.HexToAddress(from), To: &dst, Value: value}, nil
}

func proofID(parts ...[]byte) string {
	sum := crypto.Keccak256(parts...)
	return "proof-" + hex.EncodeToString(sum[:6])
}
