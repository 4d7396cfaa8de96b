package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/errs"
	"github.com/blues/ess/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// 结算资产合约ABI（简化版，只用到余额查询和转账）
const assetABI = `[
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "balance", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "success", "type": "bool"}],
		"type": "function"
	}
]`

const transferGasLimit = 100000

// Client 结算账本客户端，封装资产余额查询与签名转账
type Client struct {
	client          *ethclient.Client
	assetAddr       common.Address
	assetABI        abi.ABI
	chainId         *big.Int
	decimals        int32
	finalityTimeout time.Duration
}

func Init(cfg config.LedgerConfig) (*Client, error) {
	// 连接账本节点
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger node: %w", err)
	}

	// 解析资产合约ABI
	parsedABI, err := abi.JSON(strings.NewReader(assetABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset ABI: %w", err)
	}

	if !common.IsHexAddress(cfg.AssetAddress) {
		return nil, fmt.Errorf("invalid asset contract address: %s", cfg.AssetAddress)
	}

	return &Client{
		client:          client,
		assetAddr:       common.HexToAddress(cfg.AssetAddress),
		assetABI:        parsedABI,
		chainId:         big.NewInt(cfg.ChainId),
		decimals:        cfg.AssetDecimals,
		finalityTimeout: time.Duration(cfg.FinalityTimeout) * time.Second,
	}, nil
}

// BalanceOf 查询地址的资产余额
func (c *Client) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, errs.Validation("invalid address: %s", address)
	}

	data, err := c.assetABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, errs.Ledger(err, "failed to pack balanceOf call")
	}

	out, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.assetAddr,
		Data: data,
	}, nil)
	if err != nil {
		return decimal.Zero, errs.Ledger(err, "balance query failed for %s", address)
	}

	results, err := c.assetABI.Unpack("balanceOf", out)
	if err != nil {
		return decimal.Zero, errs.Ledger(err, "failed to unpack balanceOf result")
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return decimal.Zero, errs.Ledger(nil, "unexpected balanceOf result type")
	}

	return FromBaseUnits(balance, c.decimals), nil
}

// Transfer 签名并提交资产转账，阻塞等待上链确认。
// 超过finality_timeout未确认返回timeout错误，此时重试由调用方的幂等机制兜底。
func (c *Client) Transfer(ctx context.Context, key *ecdsa.PrivateKey, to string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(to) {
		return "", errs.Validation("invalid recipient address: %s", to)
	}
	if !amount.IsPositive() {
		return "", errs.Validation("transfer amount must be positive")
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	units := ToBaseUnits(amount, c.decimals)

	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", errs.Ledger(err, "failed to fetch nonce for %s", from.Hex())
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", errs.Ledger(err, "failed to fetch gas price")
	}

	data, err := c.assetABI.Pack("transfer", common.HexToAddress(to), units)
	if err != nil {
		return "", errs.Ledger(err, "failed to pack transfer call")
	}

	tx := types.NewTransaction(nonce, c.assetAddr, big.NewInt(0), transferGasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainId), key)
	if err != nil {
		return "", errs.Ledger(err, "failed to sign transfer")
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return "", errs.Ledger(err, "failed to submit transfer")
	}

	txRef := signedTx.Hash().Hex()
	logger.Info("Transfer submitted: %s -> %s, amount %s, tx %s",
		from.Hex(), to, amount.String(), txRef)

	if err := c.waitFinality(ctx, signedTx.Hash()); err != nil {
		return "", err
	}

	return txRef, nil
}

// waitFinality 轮询回执直到确认或超时
func (c *Client) waitFinality(ctx context.Context, txHash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.finalityTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(waitCtx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return errs.Ledger(nil, "transfer %s reverted on ledger", txHash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return errs.Ledger(err, "failed to fetch receipt for %s", txHash.Hex())
		}

		select {
		case <-waitCtx.Done():
			return errs.Timeout("transfer %s not finalized within %s", txHash.Hex(), c.finalityTimeout)
		case <-ticker.C:
		}
	}
}
