// Copyright 2025 Certen Protocol
//
// Chain Adapter capability interface. Per-chain RPC clients are out of
// scope for the core; the core only consumes this interface, and each
// concrete adapter (Ethereum, Solana, Aptos, Move-native, ...) lives
// outside this module.

package chainadapter

import (
	"context"
	"time"

	"github.com/certen/offchain-channel/pkg/coreid"
)

// ObjectData is the parsed view of a shared object's current on-chain
// state, as the adapter reports it.
type ObjectData struct {
	Content        map[string]interface{}
	Owner          string
	Version        uint64
	StorageRebate  uint64
	Raw            []byte
}

// TxPayload is an opaque, adapter-constructed transaction ready for
// dry-run or submission.
type TxPayload struct {
	Kind string
	Raw  []byte
}

// DryRunResult reports the effects of simulating a transaction without
// submitting it.
type DryRunResult struct {
	Status        string // "success" or a failure reason
	GasUsed       uint64
	ObjectChanges []ObjectChange
}

// ObjectChange describes one object mutation a dry run (or a committed
// transaction's receipt) reports.
type ObjectChange struct {
	ObjectId coreid.ObjectId
	Kind     string // "created", "mutated", "deleted"
	Owner    string
	Version  uint64
}

// TransactionReceipt is the settled outcome of a submitted transaction.
type TransactionReceipt struct {
	BlockHash               string
	BlockNumber             uint64
	From                    string
	To                      string
	GasUsed                 uint64
	Status                  string
	Logs                    []string
	CreatedContractAddress  string
}

// Adapter is the capability interface the session manager, scheduler, and
// predictive layer consume to talk to the host chain. Implementations are
// supplied externally; this module only depends on the interface.
type Adapter interface {
	GetContractMeta(ctx context.Context, address string) (*coreid.ContractMeta, error)
	GetObjectData(ctx context.Context, id coreid.ObjectId) (*ObjectData, error)
	GetObjectBCSData(ctx context.Context, id coreid.ObjectId) ([]byte, error)

	BuildMoveCallTx(ctx context.Context, sender string, pkg coreid.PackageId, module, function string, typeArgs []string, args []interface{}, gasBudget uint64) (*TxPayload, error)
	DryRunTx(ctx context.Context, tx *TxPayload) (*DryRunResult, error)
	GetTransactionReceipt(ctx context.Context, digest coreid.TxDigest) (*TransactionReceipt, error)

	GetBalance(ctx context.Context, address string) (uint64, error)
	GetNonce(ctx context.Context, address string) (uint64, error)
	GetBlockNumber(ctx context.Context) (uint64, error)

	SubscribeNewBlocks(ctx context.Context) (<-chan string, error)
	SubscribeNewTransactions(ctx context.Context) (<-chan string, error)
}

// RetryTransient retries fn up to attempts times with linear backoff,
// matching §7's "transient chain RPC errors recovered locally with bounded
// backoff" recovery rule. fn should return a sentinel the caller recognizes
// as transient; RetryTransient itself has no opinion on which errors
// qualify and simply retries until fn stops erroring or attempts run out.
func RetryTransient(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(i+1)):
		}
	}
	return err
}
