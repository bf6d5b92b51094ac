package watcher

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	seqtypes "github.com/clearsync/sequencer/types"
)

// depositEventSignature is the canonical ABI signature hashed into the
// topic0 of every deposit contract's Deposit(address,uint16,uint256)
// event. All chains in the registry emit the same shape, so one
// signature hash works across the closed chain-id set.
const depositEventSignature = "Deposit(address,uint16,uint256)"

// EVMClient implements ChainClient over go-ethereum's ethclient, the real
// implementation for every chain in the registry (all EVM-compatible).
// Grounded on go-ethereum's own ethclient usage patterns.
type EVMClient struct {
	rpc             *ethclient.Client
	depositContract common.Address
	topic0          common.Hash
}

// NewEVMClient dials rpcURL and watches depositContract for Deposit events.
func NewEVMClient(rpcURL string, depositContract common.Address) (*EVMClient, error) {
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return &EVMClient{
		rpc:             rpc,
		depositContract: depositContract,
		topic0:          crypto.Keccak256Hash([]byte(depositEventSignature)),
	}, nil
}

// LatestBlock returns the chain's current tip height.
func (c *EVMClient) LatestBlock(ctx context.Context) (uint64, error) {
	return c.rpc.BlockNumber(ctx)
}

// DepositsInRange filters logs for the deposit contract's Deposit event
// in [from, to] and decodes each into a DepositEvent.
func (c *EVMClient) DepositsInRange(ctx context.Context, from, to uint64) ([]DepositEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.depositContract},
		Topics:    [][]common.Hash{{c.topic0}},
	}
	logs, err := c.rpc.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter logs: %w", err)
	}

	out := make([]DepositEvent, 0, len(logs))
	for _, l := range logs {
		ev, err := decodeDepositLog(l)
		if err != nil {
			continue // malformed log from an unrelated event sharing the topic; skip, don't abort the batch
		}
		out = append(out, ev)
	}
	return out, nil
}

// decodeDepositLog unpacks a Deposit(address indexed user, uint16 asset,
// uint256 amount) log: topics[1] is the indexed user address, data is
// asset (32 bytes) || amount (32 bytes).
func decodeDepositLog(l types.Log) (DepositEvent, error) {
	if len(l.Topics) < 2 || len(l.Data) < 64 {
		return DepositEvent{}, fmt.Errorf("malformed deposit log")
	}
	user := seqtypes.AddressFromBytes(l.Topics[1].Bytes())
	asset := seqtypes.AssetID(new(big.Int).SetBytes(l.Data[0:32]).Uint64())
	amount := new(seqtypes.Amount)
	amount.SetBytes(l.Data[32:64])
	return DepositEvent{
		TxHash: l.TxHash.Hex(),
		User:   user,
		Asset:  asset,
		Amount: amount,
	}, nil
}
