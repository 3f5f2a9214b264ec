package eth

import (
	"context"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"

	"github.com/dan13ram/bridge-ledger/app"
)

type EthereumClient interface {
	ValidateNetwork()
	GetBlockNumber() (uint64, error)
	GetChainID() (*big.Int, error)
	GetClient() *ethclient.Client
	GetTransactionReceipt(txHash string) (*types.Receipt, error)
}

type ethereumClient struct {
	client  *ethclient.Client
	timeout time.Duration
}

func (c *ethereumClient) GetClient() *ethclient.Client {
	return c.client
}

func (c *ethereumClient) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func (c *ethereumClient) GetBlockNumber() (uint64, error) {
	ctx, cancel := c.context()
	defer cancel()

	return c.client.BlockNumber(ctx)
}

func (c *ethereumClient) GetChainID() (*big.Int, error) {
	ctx, cancel := c.context()
	defer cancel()

	return c.client.ChainID(ctx)
}

func (c *ethereumClient) ValidateNetwork() {
	log.Debugln("[ETH]", "Validating network")

	chainID, err := c.GetChainID()
	if err != nil {
		log.Fatalln("[ETH]", "Failed to get chain ID:", err)
	}
	blockNumber, err := c.GetBlockNumber()
	if err != nil {
		log.Fatalln("[ETH]", "Failed to get block number:", err)
	}

	log.Debugln("[ETH]", "chainID", chainID.Uint64())

	if chainID.String() != app.Config.Ethereum.ChainID {
		log.Fatalln("[ETH]", "Chain ID Mismatch", "expected", app.Config.Ethereum.ChainID, "got", chainID.Uint64())
	}

	log.Debugln("[ETH]", "blockNumber", blockNumber)

	log.Infoln("[ETH]", "Validated network")
}

func (c *ethereumClient) GetTransactionReceipt(txHash string) (*types.Receipt, error) {
	ctx, cancel := c.context()
	defer cancel()

	return c.client.TransactionReceipt(ctx, ethcommon.HexToHash(txHash))
}

func NewClient() (EthereumClient, error) {
	log.Debugln("[ETH]", "Connecting to", app.Config.Ethereum.RPCURL)
	client, err := ethclient.Dial(app.Config.Ethereum.RPCURL)
	if err != nil {
		return nil, err
	}
	return &ethereumClient{
		client:  client,
		timeout: time.Duration(app.Config.Ethereum.RPCTimeoutMillis) * time.Millisecond,
	}, nil
}
