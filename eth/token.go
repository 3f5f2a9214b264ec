package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/bridge-ledger/common"
	"github.com/dan13ram/bridge-ledger/ledger"
	"github.com/dan13ram/bridge-ledger/models"
)

const (
	MethodMint     = "mint"
	MethodBurnFrom = "burnFrom"

	defaultReceiptPollInterval = 2 * time.Second
	defaultReceiptTimeout      = 5 * time.Minute
)

// TokenABI covers the two calls the bridge makes on the wrapped token.
const TokenABI = `[
	{"type":"function","name":"mint","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"burnFrom","stateMutability":"nonpayable","outputs":[],
	 "inputs":[{"name":"account","type":"address"},{"name":"amount","type":"uint256"}]}
]`

var ErrTransactionReverted = errors.New("transaction reverted")

type TokenContract interface {
	Transact(opts *bind.TransactOpts, method string, params ...interface{}) (*types.Transaction, error)
}

// TokenLedger mints and burns an ERC20 that grants the ledger signer the
// minter role and burn allowance.
type TokenLedger struct {
	contract       TokenContract
	client         EthereumClient
	chainID        *big.Int
	pollInterval   time.Duration
	receiptTimeout time.Duration
}

var _ ledger.TokenLedger = &TokenLedger{}

func (x *TokenLedger) Mint(ctx context.Context, authority common.Signer, recipient models.Identity, amount uint64) error {
	return x.transact(ctx, authority, MethodMint, recipient, amount)
}

func (x *TokenLedger) Burn(ctx context.Context, authority common.Signer, owner models.Identity, amount uint64) error {
	return x.transact(ctx, authority, MethodBurnFrom, owner, amount)
}

func (x *TokenLedger) transact(ctx context.Context, authority common.Signer, method string, account models.Identity, amount uint64) error {
	address, err := common.AddressFromIdentity(account)
	if err != nil {
		return err
	}

	opts := NewSignerTransactor(authority, x.chainID)
	opts.Context = ctx

	tx, err := x.contract.Transact(opts, method, address, new(big.Int).SetUint64(amount))
	if err != nil {
		return fmt.Errorf("error sending %s: %w", method, err)
	}
	log.Debug("[ETH] Sent ", method, " transaction: ", tx.Hash().Hex())

	receipt, err := x.waitMined(ctx, tx.Hash())
	if err != nil {
		return fmt.Errorf("%w: waiting for %s transaction %s: %w", ledger.ErrOutcomeUnknown, method, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s transaction %s: %w", method, tx.Hash().Hex(), ErrTransactionReverted)
	}

	log.Info("[ETH] Confirmed ", method, " of ", amount, " for ", address.Hex(), " in block ", receipt.BlockNumber)
	return nil
}

// waitMined polls for the receipt. A sent transaction is waited on even if
// the caller gives up, bounded by receiptTimeout.
func (x *TokenLedger) waitMined(ctx context.Context, hash ethcommon.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), x.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(x.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := x.client.GetTransactionReceipt(hash.Hex())
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			log.Warn("[ETH] Error fetching receipt for ", hash.Hex(), ": ", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func NewTokenLedger(client EthereumClient, tokenAddress string) (*TokenLedger, error) {
	if !common.IsValidEthereumAddress(tokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", tokenAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		return nil, fmt.Errorf("error parsing token abi: %w", err)
	}

	chainID, err := client.GetChainID()
	if err != nil {
		return nil, fmt.Errorf("error fetching chain id: %w", err)
	}

	backend := client.GetClient()
	contract := bind.NewBoundContract(ethcommon.HexToAddress(tokenAddress), parsed, backend, backend, backend)

	log.Debug("[ETH] Token ledger connected to ", tokenAddress, " on chain ", chainID)

	return &TokenLedger{
		contract:       contract,
		client:         client,
		chainID:        chainID,
		pollInterval:   defaultReceiptPollInterval,
		receiptTimeout: defaultReceiptTimeout,
	}, nil
}
