package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
)

type PublishMode string

const (
	PublishCreate PublishMode = "create"
	PublishUpdate PublishMode = "update"
	// PublishAuto creates when the record is absent and updates otherwise.
	PublishAuto PublishMode = "auto"
)

type PublishParams struct {
	Mint common.PublicKey
	// Authority signs as mint authority on create and update authority on update.
	Authority   types.Account
	Name        entities.Name
	Symbol      entities.Symbol
	Description entities.Description
	Asset       Asset
}

type PublishResult struct {
	Upload UploadResult
	Result
	Mode PublishMode
}

// Publish uploads the asset and its document, then creates or updates the
// on-chain record to point at the uploaded document. On update a blank name
// or symbol keeps the current one, and the document carries that name.
func (m *Manager) Publish(ctx context.Context, payer types.Account, p PublishParams, mode PublishMode) (PublishResult, error) {
	if m.uploader == nil {
		return PublishResult{}, errors.New("metadata: publish needs an uploader")
	}
	switch mode {
	case PublishCreate, PublishUpdate, PublishAuto:
	default:
		return PublishResult{}, fmt.Errorf("metadata: unknown publish mode %q", mode)
	}
	data := Data{Name: p.Name, Symbol: p.Symbol}
	if mode != PublishCreate {
		rec, err := m.Get(ctx, p.Mint)
		switch {
		case err == nil:
			mode = PublishUpdate
			data = data.over(rec)
		case errors.Is(err, ErrMetadataAbsent) && mode == PublishAuto:
			mode = PublishCreate
		default:
			return PublishResult{}, err
		}
	}
	if _, err := data.dataV2(); err != nil {
		return PublishResult{}, err
	}

	up, err := m.uploader.Upload(ctx, p.Asset, data.Name, p.Description)
	if err != nil {
		return PublishResult{Upload: up, Mode: mode}, err
	}
	data.URI = up.MetadataURI

	var res Result
	if mode == PublishCreate {
		res, err = m.Create(ctx, payer, CreateParams{Mint: p.Mint, MintAuthority: p.Authority, Data: data})
	} else {
		res, err = m.Update(ctx, payer, UpdateParams{Mint: p.Mint, UpdateAuthority: p.Authority, Data: data})
	}
	return PublishResult{Upload: up, Result: res, Mode: mode}, err
}
