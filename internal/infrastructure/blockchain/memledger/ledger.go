// Package memledger is an in-process ledger that executes the System, SPL
// Token, Associated Token Account and Token Metadata instructions this module
// emits. It verifies signatures and applies each transaction atomically.
package memledger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"maps"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/log"
)

const (
	accountStorageOverhead = 128
	lamportsPerByte        = 6960
)

type account struct {
	Owner common.PublicKey
	Space uint64
}

type state struct {
	accounts map[common.PublicKey]account
	mints    map[common.PublicKey]entities.Mint
	tokens   map[common.PublicKey]entities.TokenAccount
	metadata map[common.PublicKey]entities.MetadataRecord
}

func (s *state) clone() *state {
	return &state{
		accounts: maps.Clone(s.accounts),
		mints:    maps.Clone(s.mints),
		tokens:   maps.Clone(s.tokens),
		metadata: maps.Clone(s.metadata),
	}
}

type Ledger struct {
	mu sync.Mutex

	st          *state
	blockhashes map[string]struct{}
	statuses    map[string]entities.SignatureStatus
	processed   map[string]uint64
	slot        uint64
	submitted   int

	// When set, transactions still apply but their status is never
	// reported, which is what a lost confirmation looks like to a client.
	dropConfirmations bool
}

var _ repositories.Ledger = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{
		st: &state{
			accounts: map[common.PublicKey]account{},
			mints:    map[common.PublicKey]entities.Mint{},
			tokens:   map[common.PublicKey]entities.TokenAccount{},
			metadata: map[common.PublicKey]entities.MetadataRecord{},
		},
		blockhashes: map[string]struct{}{},
		statuses:    map[string]entities.SignatureStatus{},
		processed:   map[string]uint64{},
	}
}

// DropConfirmations toggles lost-confirmation simulation.
func (l *Ledger) DropConfirmations(drop bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropConfirmations = drop
}

// ConfirmPending publishes finalized statuses for every applied transaction
// whose confirmation was dropped.
func (l *Ledger) ConfirmPending() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for sig, slot := range l.processed {
		if _, ok := l.statuses[sig]; !ok {
			l.statuses[sig] = entities.SignatureStatus{Found: true, Slot: slot, Commitment: entities.CommitmentFinalized}
		}
	}
}

// Submitted reports how many transactions were accepted.
func (l *Ledger) Submitted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.submitted
}

func (l *Ledger) GetMint(_ context.Context, mint common.PublicKey) (entities.Mint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.st.mints[mint]
	if !ok || !m.IsInitialized {
		return entities.Mint{}, fmt.Errorf("mint %s: %w", mint.ToBase58(), repositories.ErrAccountNotFound)
	}
	return m, nil
}

func (l *Ledger) GetTokenAccount(_ context.Context, addr common.PublicKey) (entities.TokenAccount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ta, ok := l.st.tokens[addr]
	if !ok {
		return entities.TokenAccount{}, fmt.Errorf("token account %s: %w", addr.ToBase58(), repositories.ErrAccountNotFound)
	}
	return ta, nil
}

func (l *Ledger) GetMetadata(_ context.Context, addr common.PublicKey) (entities.MetadataRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	md, ok := l.st.metadata[addr]
	if !ok {
		return entities.MetadataRecord{}, fmt.Errorf("metadata %s: %w", addr.ToBase58(), repositories.ErrAccountNotFound)
	}
	return md, nil
}

func (l *Ledger) AccountExists(_ context.Context, addr common.PublicKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.st.accounts[addr]
	return ok, nil
}

func (l *Ledger) MinimumBalanceForRentExemption(_ context.Context, dataLen uint64) (uint64, error) {
	return (accountStorageOverhead + dataLen) * lamportsPerByte, nil
}

func (l *Ledger) LatestBlockhash(_ context.Context) (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	hash := base58.Encode(b[:])

	l.mu.Lock()
	defer l.mu.Unlock()
	l.blockhashes[hash] = struct{}{}
	return hash, nil
}

func (l *Ledger) SignatureStatus(_ context.Context, signature string) (entities.SignatureStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statuses[signature], nil
}

// SendTransaction validates and executes tx. A rejected transaction leaves
// no trace, matching a failed preflight on a real cluster.
func (l *Ledger) SendTransaction(ctx context.Context, tx types.Transaction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	signers, err := verifySignatures(tx)
	if err != nil {
		return "", err
	}
	sig := base58.Encode(tx.Signatures[0])

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.blockhashes[tx.Message.RecentBlockHash]; !ok {
		return "", repositories.ErrBlockhashNotFound
	}
	if _, dup := l.processed[sig]; dup {
		return "", fmt.Errorf("transaction %s: %w", sig, repositories.ErrAlreadyProcessed)
	}

	next := l.st.clone()
	exec := &executor{st: next, signers: signers}
	for i, inst := range tx.Message.Instructions {
		if err := exec.run(tx.Message.Accounts, inst); err != nil {
			log.Ledger.Debug().Err(err).Int("instruction", i).Str("signature", sig).Msg("transaction rejected")
			return "", fmt.Errorf("instruction %d: %w", i, err)
		}
	}

	l.st = next
	l.slot++
	l.processed[sig] = l.slot
	l.submitted++
	if !l.dropConfirmations {
		l.statuses[sig] = entities.SignatureStatus{
			Found:      true,
			Slot:       l.slot,
			Commitment: entities.CommitmentFinalized,
		}
	}
	return sig, nil
}

func verifySignatures(tx types.Transaction) (map[common.PublicKey]bool, error) {
	if len(tx.Signatures) == 0 {
		return nil, fmt.Errorf("%w: unsigned transaction", repositories.ErrInvalidInstruction)
	}
	if len(tx.Signatures) > len(tx.Message.Accounts) {
		return nil, fmt.Errorf("%w: more signatures than accounts", repositories.ErrInvalidInstruction)
	}
	msg, err := tx.Message.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}
	signers := make(map[common.PublicKey]bool, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		key := tx.Message.Accounts[i]
		if !ed25519.Verify(ed25519.PublicKey(key.Bytes()), msg, sig) {
			return nil, fmt.Errorf("%w: bad signature for %s", repositories.ErrAuthorityMismatch, key.ToBase58())
		}
		signers[key] = true
	}
	return signers, nil
}
