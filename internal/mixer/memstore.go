package mixer

import (
	"context"
	"math/big"
	"sort"
)

// MemStores is the in-memory store bundle: the backing for tests and
// for running without a database. It implements TxRunner by snapshotting
// state around each closure, so a failed operation rolls back the same
// way a database transaction would. The engine's mutex is the only
// serialization; MemStores itself is not safe for concurrent use.
type MemStores struct {
	commitments map[string]DepositRecord
	spent       map[string]struct{}
	counts      map[string]uint64
	state       *PoolState
	intents     []Transfer
	intentStore IntentStore
}

// NewMemStores returns an empty in-memory bundle.
func NewMemStores() *MemStores {
	m := &MemStores{
		commitments: make(map[string]DepositRecord),
		spent:       make(map[string]struct{}),
		counts:      make(map[string]uint64),
	}
	m.intentStore = memIntents{m}
	return m
}

// UseIntentStore swaps the intent sink, for wiring the bundle to an
// externally consumed queue; nil restores the internal one. Engine
// flows enqueue intents as their final write, so an external sink sees
// either the whole batch or nothing.
func (m *MemStores) UseIntentStore(st IntentStore) {
	if st == nil {
		st = memIntents{m}
	}
	m.intentStore = st
}

// Stores returns the bundle view backed by this instance.
func (m *MemStores) Stores() Stores {
	return Stores{
		Commitments: memCommitments{m},
		Spent:       memSpent{m},
		Stats:       memStats{m},
		Config:      memConfig{m},
		Intents:     m.intentStore,
	}
}

// Atomic implements TxRunner with copy-and-restore semantics.
func (m *MemStores) Atomic(ctx context.Context, fn func(s Stores) error) error {
	commitments := make(map[string]DepositRecord, len(m.commitments))
	for k, v := range m.commitments {
		commitments[k] = v
	}
	spent := make(map[string]struct{}, len(m.spent))
	for k := range m.spent {
		spent[k] = struct{}{}
	}
	counts := make(map[string]uint64, len(m.counts))
	for k, v := range m.counts {
		counts[k] = v
	}
	state := m.state
	if state != nil {
		copied := *state
		state = &copied
	}
	intentsLen := len(m.intents)

	if err := fn(m.Stores()); err != nil {
		m.commitments = commitments
		m.spent = spent
		m.counts = counts
		m.state = state
		m.intents = m.intents[:intentsLen]
		return err
	}
	return nil
}

// PendingTransfers returns every transfer enqueued through the internal
// intent sink, oldest first.
func (m *MemStores) PendingTransfers() []Transfer {
	out := make([]Transfer, len(m.intents))
	copy(out, m.intents)
	return out
}

type memCommitments struct{ m *MemStores }

func (c memCommitments) Insert(ctx context.Context, id string, rec DepositRecord) error {
	if _, ok := c.m.commitments[id]; ok {
		return ErrDuplicateCommitment
	}
	c.m.commitments[id] = DepositRecord{
		Denomination: new(big.Int).Set(rec.Denomination),
		DepositedAt:  rec.DepositedAt,
	}
	return nil
}

func (c memCommitments) Get(ctx context.Context, id string) (*DepositRecord, error) {
	rec, ok := c.m.commitments[id]
	if !ok {
		return nil, ErrUnknownCommitment
	}
	out := DepositRecord{
		Denomination: new(big.Int).Set(rec.Denomination),
		DepositedAt:  rec.DepositedAt,
	}
	return &out, nil
}

func (c memCommitments) Remove(ctx context.Context, id string) error {
	delete(c.m.commitments, id)
	return nil
}

func (c memCommitments) Count(ctx context.Context) (int64, error) {
	return int64(len(c.m.commitments)), nil
}

type memSpent struct{ m *MemStores }

func (s memSpent) Contains(ctx context.Context, token string) (bool, error) {
	_, ok := s.m.spent[token]
	return ok, nil
}

func (s memSpent) Add(ctx context.Context, token string) error {
	s.m.spent[token] = struct{}{}
	return nil
}

type memStats struct{ m *MemStores }

func (s memStats) Increment(ctx context.Context, denomination *big.Int) error {
	s.m.counts[denomination.String()]++
	return nil
}

func (s memStats) Snapshot(ctx context.Context) ([]DenominationCount, error) {
	out := make([]DenominationCount, 0, len(s.m.counts))
	for k, v := range s.m.counts {
		d, _ := new(big.Int).SetString(k, 10)
		out = append(out, DenominationCount{Denomination: d, DepositCount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Denomination.Cmp(out[j].Denomination) < 0
	})
	return out, nil
}

type memConfig struct{ m *MemStores }

func (c memConfig) Load(ctx context.Context) (*PoolState, error) {
	if c.m.state == nil {
		return nil, ErrNotInitialized
	}
	copied := *c.m.state
	return &copied, nil
}

func (c memConfig) Create(ctx context.Context, state PoolState) error {
	if c.m.state != nil {
		return ErrAlreadyInitialized
	}
	c.m.state = &state
	return nil
}

func (c memConfig) UpdateFee(ctx context.Context, feeBasisPoints uint16, changedBy string) error {
	if c.m.state == nil {
		return ErrNotInitialized
	}
	c.m.state.FeeBasisPoints = feeBasisPoints
	return nil
}

type memIntents struct{ m *MemStores }

func (i memIntents) Enqueue(ctx context.Context, transfers []Transfer) error {
	i.m.intents = append(i.m.intents, transfers...)
	return nil
}
