// Package metadata attaches and updates Metaplex token metadata: the
// off-chain JSON document and the on-chain record that points at it.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/internal/application/submitter"
	"github.com/whiteelite/tokenforge/internal/domain/address"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/metaplex"
	"github.com/whiteelite/tokenforge/internal/log"
)

var (
	ErrInvalidMetadata = errors.New("metadata: invalid metadata")
	ErrMetadataAbsent  = errors.New("metadata: record does not exist")
)

type Submitter interface {
	Submit(ctx context.Context, tx submitter.Tx) (entities.Receipt, error)
}

type Reader interface {
	GetMetadata(ctx context.Context, metadata common.PublicKey) (entities.MetadataRecord, error)
}

// Data is the mutable part of a metadata record this system writes.
type Data struct {
	Name   entities.Name
	Symbol entities.Symbol
	URI    entities.URI
}

func (d Data) dataV2() (metaplex.DataV2, error) {
	v := metaplex.DataV2{
		Name:   string(d.Name),
		Symbol: string(d.Symbol),
		URI:    string(d.URI),
	}
	if err := v.Validate(); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return v, nil
}

// over fills the fields d leaves blank from rec, so an update only changes
// what the caller set.
func (d Data) over(rec entities.MetadataRecord) Data {
	if d.Name == "" {
		d.Name = rec.Name
	}
	if d.Symbol == "" {
		d.Symbol = rec.Symbol
	}
	if d.URI == "" {
		d.URI = rec.URI
	}
	return d
}

func (d Data) complete() bool {
	return d.Name != "" && d.Symbol != "" && d.URI != ""
}

type CreateParams struct {
	Mint          common.PublicKey
	MintAuthority types.Account
	// UpdateAuthority defaults to the mint authority.
	UpdateAuthority *common.PublicKey
	Data            Data
}

// UpdateParams.Data fields left blank keep their current on-chain value.
type UpdateParams struct {
	Mint            common.PublicKey
	UpdateAuthority types.Account
	Data            Data
}

type Result struct {
	Metadata common.PublicKey
	Receipt  entities.Receipt
}

type Manager struct {
	ledger    Reader
	submitter Submitter
	uploader  *Uploader
}

// NewManager wires the manager. uploader may be nil when Publish is unused.
func NewManager(ledger Reader, sub Submitter, uploader *Uploader) *Manager {
	return &Manager{ledger: ledger, submitter: sub, uploader: uploader}
}

// Create writes a new mutable metadata record for mint. Duplicates are not
// pre-checked; the ledger rejects them.
func (m *Manager) Create(ctx context.Context, payer types.Account, p CreateParams) (Result, error) {
	data, err := p.Data.dataV2()
	if err != nil {
		return Result{}, err
	}
	md, err := address.Metadata(p.Mint)
	if err != nil {
		return Result{}, err
	}
	updateAuthority := p.MintAuthority.PublicKey
	if p.UpdateAuthority != nil {
		updateAuthority = *p.UpdateAuthority
	}

	inst, err := metaplex.CreateMetadataAccountV2(metaplex.CreateMetadataAccountV2Param{
		Metadata:        md,
		Mint:            p.Mint,
		MintAuthority:   p.MintAuthority.PublicKey,
		Payer:           payer.PublicKey,
		UpdateAuthority: updateAuthority,
		Data:            data,
		IsMutable:       true,
	})
	if err != nil {
		return Result{}, fmt.Errorf("build create metadata: %w", err)
	}

	receipt, err := m.submitter.Submit(ctx, submitter.Tx{
		Operation:    entities.OperationCreateMetadata,
		Mint:         p.Mint,
		FeePayer:     payer,
		Signers:      []types.Account{p.MintAuthority},
		Instructions: []types.Instruction{inst},
	})
	res := Result{Metadata: md, Receipt: receipt}
	if err != nil {
		return res, fmt.Errorf("create metadata: %w", err)
	}

	log.Metadata.Info().
		Str("mint", p.Mint.ToBase58()).
		Str("metadata", md.ToBase58()).
		Str("uri", string(p.Data.URI)).
		Str("signature", string(receipt.Signature)).
		Msg("metadata created")
	return res, nil
}

// Update replaces name, symbol and uri in one submission, marks the primary
// sale as happened and keeps the record mutable under the same authority.
// Blank fields are read back from the current record first.
func (m *Manager) Update(ctx context.Context, payer types.Account, p UpdateParams) (Result, error) {
	if !p.Data.complete() {
		rec, err := m.Get(ctx, p.Mint)
		if err != nil {
			return Result{}, err
		}
		p.Data = p.Data.over(rec)
	}
	data, err := p.Data.dataV2()
	if err != nil {
		return Result{}, err
	}
	md, err := address.Metadata(p.Mint)
	if err != nil {
		return Result{}, err
	}

	authority := p.UpdateAuthority.PublicKey
	primarySale, mutable := true, true
	inst, err := metaplex.UpdateMetadataAccountV2(metaplex.UpdateMetadataAccountV2Param{
		Metadata:            md,
		UpdateAuthority:     authority,
		Data:                &data,
		NewUpdateAuthority:  &authority,
		PrimarySaleHappened: &primarySale,
		IsMutable:           &mutable,
	})
	if err != nil {
		return Result{}, fmt.Errorf("build update metadata: %w", err)
	}

	receipt, err := m.submitter.Submit(ctx, submitter.Tx{
		Operation:    entities.OperationUpdateMetadata,
		Mint:         p.Mint,
		FeePayer:     payer,
		Signers:      []types.Account{p.UpdateAuthority},
		Instructions: []types.Instruction{inst},
	})
	res := Result{Metadata: md, Receipt: receipt}
	if err != nil {
		return res, fmt.Errorf("update metadata: %w", err)
	}

	log.Metadata.Info().
		Str("mint", p.Mint.ToBase58()).
		Str("metadata", md.ToBase58()).
		Str("uri", string(p.Data.URI)).
		Str("signature", string(receipt.Signature)).
		Msg("metadata updated")
	return res, nil
}

// Get reads the record for mint.
func (m *Manager) Get(ctx context.Context, mint common.PublicKey) (entities.MetadataRecord, error) {
	md, err := address.Metadata(mint)
	if err != nil {
		return entities.MetadataRecord{}, err
	}
	rec, err := m.ledger.GetMetadata(ctx, md)
	if errors.Is(err, repositories.ErrAccountNotFound) {
		return rec, fmt.Errorf("%w: %s: %w", ErrMetadataAbsent, mint.ToBase58(), err)
	}
	return rec, err
}
