package repositories

import (
	"context"
	"errors"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
)

// Ledger errors. Adapters map their native failures onto these so callers can
// match with errors.Is regardless of which ledger is behind the port.
var (
	ErrAccountNotFound    = errors.New("ledger: account not found")
	ErrAlreadyInitialized = errors.New("ledger: account already initialized")
	ErrAuthorityMismatch  = errors.New("ledger: signer lacks required authority")
	ErrInsufficientFunds  = errors.New("ledger: insufficient funds")
	ErrMintMismatch       = errors.New("ledger: account does not belong to mint")
	ErrAccountFrozen      = errors.New("ledger: account is frozen")
	ErrInvalidInstruction = errors.New("ledger: invalid instruction")
	ErrBlockhashNotFound  = errors.New("ledger: blockhash not found")
	ErrAlreadyProcessed   = errors.New("ledger: transaction already processed")
)

// LedgerReader covers account lookups.
type LedgerReader interface {
	GetMint(ctx context.Context, mint common.PublicKey) (entities.Mint, error)
	GetTokenAccount(ctx context.Context, account common.PublicKey) (entities.TokenAccount, error)
	GetMetadata(ctx context.Context, metadata common.PublicKey) (entities.MetadataRecord, error)
	AccountExists(ctx context.Context, account common.PublicKey) (bool, error)
}

// LedgerWriter covers everything the transaction submitter needs.
type LedgerWriter interface {
	LatestBlockhash(ctx context.Context) (string, error)
	MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)
	SendTransaction(ctx context.Context, tx types.Transaction) (string, error)
	SignatureStatus(ctx context.Context, signature string) (entities.SignatureStatus, error)
}

type Ledger interface {
	LedgerReader
	LedgerWriter
}

// Blob is one object handed to an off-chain store.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

type ContentStore interface {
	Upload(ctx context.Context, blob Blob) (entities.URI, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entities.LifecycleEvent) error
	Close() error
}

type Journal interface {
	Record(ctx context.Context, entry entities.JournalEntry) error
	Get(ctx context.Context, signature entities.Signature) (entities.JournalEntry, error)
	List(ctx context.Context) ([]entities.JournalEntry, error)
	Close() error
}
