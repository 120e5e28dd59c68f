// Copyright 2025 Certen Protocol
//
// In-memory Adapter implementation used by session/scheduler/predictive
// tests and by cmd/offchain-node in development mode (no real chain RPC
// endpoint configured).

package chainadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/certen/offchain-channel/pkg/coreid"
)

// MockAdapter is a deterministic, in-memory Adapter. Contract metadata and
// object data are pre-seeded by the caller; dry runs always report success
// unless DryRunFailReason is set.
type MockAdapter struct {
	mu sync.RWMutex

	contracts map[string]*coreid.ContractMeta
	objects   map[coreid.ObjectId]*ObjectData
	nonces    map[string]uint64
	balances  map[string]uint64
	blockNum  uint64

	DryRunFailReason string
}

// NewMockAdapter returns an empty MockAdapter ready for seeding.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		contracts: make(map[string]*coreid.ContractMeta),
		objects:   make(map[coreid.ObjectId]*ObjectData),
		nonces:    make(map[string]uint64),
		balances:  make(map[string]uint64),
	}
}

// SeedContract registers a ContractMeta to be returned for address.
func (m *MockAdapter) SeedContract(address string, meta *coreid.ContractMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[address] = meta
}

// SeedObject registers an ObjectData to be returned for id.
func (m *MockAdapter) SeedObject(id coreid.ObjectId, data *ObjectData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id] = data
}

func (m *MockAdapter) GetContractMeta(_ context.Context, address string) (*coreid.ContractMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.contracts[address]
	if !ok {
		return nil, fmt.Errorf("mock adapter: no contract seeded for %s", address)
	}
	return meta, nil
}

func (m *MockAdapter) GetObjectData(_ context.Context, id coreid.ObjectId) (*ObjectData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[id]
	if !ok {
		return nil, fmt.Errorf("mock adapter: no object seeded for %s", id)
	}
	return data, nil
}

func (m *MockAdapter) GetObjectBCSData(ctx context.Context, id coreid.ObjectId) ([]byte, error) {
	data, err := m.GetObjectData(ctx, id)
	if err != nil {
		return nil, err
	}
	if data.Raw != nil {
		return data.Raw, nil
	}
	return []byte(fmt.Sprintf("%v", data.Content)), nil
}

func (m *MockAdapter) BuildMoveCallTx(_ context.Context, sender string, pkg coreid.PackageId, module, function string, typeArgs []string, args []interface{}, gasBudget uint64) (*TxPayload, error) {
	return &TxPayload{
		Kind: "move_call",
		Raw:  []byte(fmt.Sprintf("%s:%s::%s::%s(%v)[%d]", sender, pkg, module, function, args, gasBudget)),
	}, nil
}

func (m *MockAdapter) DryRunTx(_ context.Context, tx *TxPayload) (*DryRunResult, error) {
	if m.DryRunFailReason != "" {
		return &DryRunResult{Status: m.DryRunFailReason}, nil
	}
	return &DryRunResult{Status: "success", GasUsed: uint64(len(tx.Raw))}, nil
}

func (m *MockAdapter) GetTransactionReceipt(_ context.Context, digest coreid.TxDigest) (*TransactionReceipt, error) {
	return &TransactionReceipt{
		BlockHash:   fmt.Sprintf("0x%x", digest),
		BlockNumber: m.blockNum,
		Status:      "success",
	}, nil
}

func (m *MockAdapter) GetBalance(_ context.Context, address string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[address], nil
}

func (m *MockAdapter) GetNonce(_ context.Context, address string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nonces[address], nil
}

func (m *MockAdapter) GetBlockNumber(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blockNum, nil
}

func (m *MockAdapter) SubscribeNewBlocks(ctx context.Context) (<-chan string, error) {
	ch := make(chan string)
	go func() { <-ctx.Done(); close(ch) }()
	return ch, nil
}

func (m *MockAdapter) SubscribeNewTransactions(ctx context.Context) (<-chan string, error) {
	ch := make(chan string)
	go func() { <-ctx.Done(); close(ch) }()
	return ch, nil
}

var _ Adapter = (*MockAdapter)(nil)
