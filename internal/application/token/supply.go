package token

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	tokenprog "github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"
	"github.com/whiteelite/tokenforge/internal/application/submitter"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/log"
)

type MintToParams struct {
	Mint        common.PublicKey
	Destination common.PublicKey
	Authority   types.Account
	Amount      decimal.Decimal
}

type TransferParams struct {
	Mint        common.PublicKey
	Source      common.PublicKey
	Destination common.PublicKey
	Owner       types.Account
	Amount      decimal.Decimal
}

type BurnParams struct {
	Account common.PublicKey
	Mint    common.PublicKey
	Owner   types.Account
	Amount  decimal.Decimal
}

// baseUnits reads the mint's decimals fresh from the ledger for every call.
func (s *Service) baseUnits(ctx context.Context, mint common.PublicKey, amount decimal.Decimal) (entities.BaseUnits, entities.Decimals, error) {
	m, err := s.ledger.GetMint(ctx, mint)
	if err != nil {
		return 0, 0, fmt.Errorf("read mint: %w", err)
	}
	units, err := ToBaseUnits(amount, m.Decimals)
	if err != nil {
		return 0, 0, err
	}
	return units, m.Decimals, nil
}

// MintTo increases the destination balance. The authority must be the
// mint's mint authority.
func (s *Service) MintTo(ctx context.Context, payer types.Account, p MintToParams) (entities.Receipt, error) {
	units, decimals, err := s.baseUnits(ctx, p.Mint, p.Amount)
	if err != nil {
		return entities.Receipt{}, err
	}

	receipt, err := s.submitter.Submit(ctx, submitter.Tx{
		Operation: entities.OperationMintTo,
		Mint:      p.Mint,
		BaseUnits: units,
		FeePayer:  payer,
		Signers:   []types.Account{p.Authority},
		Instructions: []types.Instruction{
			tokenprog.MintToChecked(tokenprog.MintToCheckedParam{
				Mint:     p.Mint,
				Auth:     p.Authority.PublicKey,
				To:       p.Destination,
				Amount:   uint64(units),
				Decimals: uint8(decimals),
			}),
		},
	})
	if err != nil {
		return receipt, fmt.Errorf("mint to: %w", err)
	}
	logSupply("minted", p.Mint, units, receipt)
	return receipt, nil
}

// Transfer moves tokens between two accounts of the same mint. Balances are
// not checked locally; the ledger rejects overdrafts.
func (s *Service) Transfer(ctx context.Context, payer types.Account, p TransferParams) (entities.Receipt, error) {
	units, decimals, err := s.baseUnits(ctx, p.Mint, p.Amount)
	if err != nil {
		return entities.Receipt{}, err
	}

	receipt, err := s.submitter.Submit(ctx, submitter.Tx{
		Operation: entities.OperationTransfer,
		Mint:      p.Mint,
		BaseUnits: units,
		FeePayer:  payer,
		Signers:   []types.Account{p.Owner},
		Instructions: []types.Instruction{
			tokenprog.TransferChecked(tokenprog.TransferCheckedParam{
				From:     p.Source,
				To:       p.Destination,
				Mint:     p.Mint,
				Auth:     p.Owner.PublicKey,
				Amount:   uint64(units),
				Decimals: uint8(decimals),
			}),
		},
	})
	if err != nil {
		return receipt, fmt.Errorf("transfer: %w", err)
	}
	logSupply("transferred", p.Mint, units, receipt)
	return receipt, nil
}

// Burn destroys tokens held by account, reducing the mint's supply.
func (s *Service) Burn(ctx context.Context, payer types.Account, p BurnParams) (entities.Receipt, error) {
	units, decimals, err := s.baseUnits(ctx, p.Mint, p.Amount)
	if err != nil {
		return entities.Receipt{}, err
	}

	receipt, err := s.submitter.Submit(ctx, submitter.Tx{
		Operation: entities.OperationBurn,
		Mint:      p.Mint,
		BaseUnits: units,
		FeePayer:  payer,
		Signers:   []types.Account{p.Owner},
		Instructions: []types.Instruction{
			tokenprog.BurnChecked(tokenprog.BurnCheckedParam{
				Account:  p.Account,
				Mint:     p.Mint,
				Auth:     p.Owner.PublicKey,
				Amount:   uint64(units),
				Decimals: uint8(decimals),
			}),
		},
	})
	if err != nil {
		return receipt, fmt.Errorf("burn: %w", err)
	}
	logSupply("burned", p.Mint, units, receipt)
	return receipt, nil
}

func logSupply(msg string, mint common.PublicKey, units entities.BaseUnits, receipt entities.Receipt) {
	log.Token.Info().
		Str("mint", mint.ToBase58()).
		Uint64("base_units", uint64(units)).
		Str("signature", string(receipt.Signature)).
		Msg(msg)
}
