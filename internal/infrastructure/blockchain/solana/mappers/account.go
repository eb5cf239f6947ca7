package mappers

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/metaplex"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/models"
)

func ToKeypair(account types.Account) models.Keypair {
	return models.Keypair{
		PublicKey:  account.PublicKey.ToBase58(),
		PrivateKey: base58.Encode(account.PrivateKey),
	}
}

func FromMintAccount(addr common.PublicKey, m token.MintAccount) entities.Mint {
	return entities.Mint{
		Address:         addr,
		Decimals:        entities.Decimals(m.Decimals),
		MintAuthority:   m.MintAuthority,
		FreezeAuthority: m.FreezeAuthority,
		Supply:          entities.BaseUnits(m.Supply),
		IsInitialized:   m.IsInitialized,
	}
}

func FromTokenAccount(addr common.PublicKey, ta token.TokenAccount) entities.TokenAccount {
	return entities.TokenAccount{
		Address:  addr,
		Mint:     ta.Mint,
		Owner:    ta.Owner,
		Amount:   entities.BaseUnits(ta.Amount),
		IsFrozen: ta.State == token.TokenAccountFrozen,
	}
}

func FromMetadataAccount(addr common.PublicKey, acc metaplex.MetadataAccount) entities.MetadataRecord {
	rec := entities.MetadataRecord{
		Address:              addr,
		Mint:                 acc.Mint,
		UpdateAuthority:      acc.UpdateAuthority,
		Name:                 entities.Name(acc.Data.Name),
		Symbol:               entities.Symbol(acc.Data.Symbol),
		URI:                  entities.URI(acc.Data.URI),
		SellerFeeBasisPoints: entities.BasisPoint(acc.Data.SellerFeeBasisPoints),
		IsMutable:            acc.IsMutable,
		PrimarySaleHappened:  acc.PrimarySaleHappened,
	}
	if acc.Data.Creators != nil {
		cs := make([]entities.Creator, 0, len(*acc.Data.Creators))
		for _, c := range *acc.Data.Creators {
			cs = append(cs, entities.Creator{Address: c.Address, Verified: c.Verified, Share: c.Share})
		}
		rec.Creators = &cs
	}
	if acc.Collection != nil {
		rec.Collection = &entities.Collection{Verified: acc.Collection.Verified, Key: acc.Collection.Key}
	}
	if acc.Uses != nil {
		rec.Uses = &entities.Uses{UseMethod: acc.Uses.UseMethod, Remaining: acc.Uses.Remaining, Total: acc.Uses.Total}
	}
	return rec
}

// FromSignatureStatus maps a nil status (signature unknown to the node) to Found=false.
func FromSignatureStatus(st *rpc.SignatureStatus) entities.SignatureStatus {
	if st == nil {
		return entities.SignatureStatus{}
	}
	out := entities.SignatureStatus{Found: true, Slot: st.Slot}
	if st.ConfirmationStatus != nil {
		out.Commitment = entities.Commitment(*st.ConfirmationStatus)
	}
	if st.Err != nil {
		out.Err = fmt.Sprint(st.Err)
	}
	return out
}
