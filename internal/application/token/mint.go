package token

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/system"
	tokenprog "github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/internal/application/submitter"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/log"
)

type CreateMintParams struct {
	MintAuthority   common.PublicKey
	FreezeAuthority *common.PublicKey
	Decimals        entities.Decimals
	// Mint is the keypair of the new mint account; generated when nil.
	Mint *types.Account
}

type MintResult struct {
	Mint    common.PublicKey
	Receipt entities.Receipt
}

// CreateMint creates and initializes a new mint in one transaction paid by payer.
func (s *Service) CreateMint(ctx context.Context, payer types.Account, p CreateMintParams) (MintResult, error) {
	mint := types.NewAccount()
	if p.Mint != nil {
		mint = *p.Mint
	}

	rent, err := s.ledger.MinimumBalanceForRentExemption(ctx, tokenprog.MintAccountSize)
	if err != nil {
		return MintResult{}, fmt.Errorf("mint rent: %w", err)
	}

	receipt, err := s.submitter.Submit(ctx, submitter.Tx{
		Operation: entities.OperationCreateMint,
		Mint:      mint.PublicKey,
		FeePayer:  payer,
		Signers:   []types.Account{mint},
		Instructions: []types.Instruction{
			system.CreateAccount(system.CreateAccountParam{
				From:     payer.PublicKey,
				New:      mint.PublicKey,
				Owner:    common.TokenProgramID,
				Lamports: rent,
				Space:    tokenprog.MintAccountSize,
			}),
			tokenprog.InitializeMint(tokenprog.InitializeMintParam{
				Decimals:   uint8(p.Decimals),
				Mint:       mint.PublicKey,
				MintAuth:   p.MintAuthority,
				FreezeAuth: p.FreezeAuthority,
			}),
		},
	})
	result := MintResult{Mint: mint.PublicKey, Receipt: receipt}
	if err != nil {
		return result, fmt.Errorf("create mint: %w", err)
	}

	log.Token.Info().
		Str("mint", mint.PublicKey.ToBase58()).
		Uint8("decimals", uint8(p.Decimals)).
		Str("signature", string(receipt.Signature)).
		Msg("mint created")
	return result, nil
}

// GetMint reads the current mint state.
func (s *Service) GetMint(ctx context.Context, mint common.PublicKey) (entities.Mint, error) {
	return s.ledger.GetMint(ctx, mint)
}
