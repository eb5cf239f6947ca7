// Package token implements the mint, account and supply side of the token
// lifecycle on top of a ledger and the transaction submitter.
package token

import (
	"context"
	"errors"

	"github.com/whiteelite/tokenforge/internal/application/submitter"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
)

var (
	ErrInvalidAmount   = errors.New("token: invalid amount")
	ErrAccountMismatch = errors.New("token: account at derived address does not match mint and owner")
)

type Submitter interface {
	Submit(ctx context.Context, tx submitter.Tx) (entities.Receipt, error)
}

// Ledger is the subset of the ledger port the token services read from.
type Ledger interface {
	repositories.LedgerReader
	MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)
}

type Service struct {
	ledger    Ledger
	submitter Submitter
}

func NewService(ledger Ledger, sub Submitter) *Service {
	return &Service{ledger: ledger, submitter: sub}
}
