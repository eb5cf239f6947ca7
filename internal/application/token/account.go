package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/internal/application/submitter"
	"github.com/whiteelite/tokenforge/internal/domain/address"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/log"
)

type AccountResult struct {
	Account entities.TokenAccount
	Created bool
	// Receipt is zero when no transaction was needed.
	Receipt entities.Receipt
}

// ResolveOrCreate returns the associated token account for (mint, owner),
// creating it with payer's funds when it does not exist yet.
func (s *Service) ResolveOrCreate(ctx context.Context, payer types.Account, mint, owner common.PublicKey) (AccountResult, error) {
	ata, err := address.AssociatedTokenAccount(owner, mint)
	if err != nil {
		return AccountResult{}, err
	}

	acc, found, err := s.lookupAccount(ctx, ata, mint, owner)
	if err != nil {
		return AccountResult{}, err
	}
	if found {
		return AccountResult{Account: acc}, nil
	}

	receipt, err := s.submitter.Submit(ctx, submitter.Tx{
		Operation: entities.OperationCreateAccount,
		Mint:      mint,
		FeePayer:  payer,
		Instructions: []types.Instruction{
			associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
				Funder:                 payer.PublicKey,
				Owner:                  owner,
				Mint:                   mint,
				AssociatedTokenAccount: ata,
			}),
		},
	})
	if err != nil {
		// Lost a creation race: whoever won created the same address. A real
		// cluster may report that only as a failed execution status.
		if errors.Is(err, repositories.ErrAlreadyInitialized) || errors.Is(err, submitter.ErrTransactionFailed) {
			acc, found, lerr := s.lookupAccount(ctx, ata, mint, owner)
			if lerr == nil && found {
				return AccountResult{Account: acc}, nil
			}
		}
		return AccountResult{Receipt: receipt}, fmt.Errorf("create token account: %w", err)
	}

	log.Token.Info().
		Str("mint", mint.ToBase58()).
		Str("owner", owner.ToBase58()).
		Str("account", ata.ToBase58()).
		Str("signature", string(receipt.Signature)).
		Msg("token account created")

	acc, err = s.ledger.GetTokenAccount(ctx, ata)
	if err != nil {
		// Confirmed but not yet visible at the read commitment.
		acc = entities.TokenAccount{Address: ata, Mint: mint, Owner: owner}
	}
	return AccountResult{Account: acc, Created: true, Receipt: receipt}, nil
}

func (s *Service) lookupAccount(ctx context.Context, ata, mint, owner common.PublicKey) (entities.TokenAccount, bool, error) {
	acc, err := s.ledger.GetTokenAccount(ctx, ata)
	if err == nil {
		if acc.Mint != mint || acc.Owner != owner {
			return acc, false, ErrAccountMismatch
		}
		return acc, true, nil
	}
	if !errors.Is(err, repositories.ErrAccountNotFound) {
		return acc, false, fmt.Errorf("read token account: %w", err)
	}

	exists, err := s.ledger.AccountExists(ctx, ata)
	if err != nil {
		return entities.TokenAccount{}, false, fmt.Errorf("check account: %w", err)
	}
	if exists {
		return entities.TokenAccount{}, false, ErrAccountMismatch
	}
	return entities.TokenAccount{}, false, nil
}

// GetAccount reads a token account by address.
func (s *Service) GetAccount(ctx context.Context, account common.PublicKey) (entities.TokenAccount, error) {
	return s.ledger.GetTokenAccount(ctx, account)
}
