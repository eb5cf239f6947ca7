// Package metaplex encodes and decodes the Token Metadata instructions and
// account layout this module writes and reads.
package metaplex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"
)

var ErrUnknownInstruction = errors.New("metaplex: unknown instruction")

const (
	InstructionUpdateMetadataAccountV2 uint8 = 15
	InstructionCreateMetadataAccountV2 uint8 = 16
)

// Account key stored in the first byte of a metadata account.
const KeyMetadataV1 uint8 = 4

// MetadataAccountSize is the space the program allocates for a metadata account.
const MetadataAccountSize = 679

const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

type Creator struct {
	Address  common.PublicKey
	Verified bool
	Share    uint8
}

type Collection struct {
	Verified bool
	Key      common.PublicKey
}

type Uses struct {
	UseMethod uint8
	Remaining uint64
	Total     uint64
}

// DataV2 field order is the wire order.
type DataV2 struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
	Collection           *Collection
	Uses                 *Uses
}

type CreateMetadataAccountV2Args struct {
	Instruction uint8
	Data        DataV2
	IsMutable   bool
}

type UpdateMetadataAccountV2Args struct {
	Instruction         uint8
	Data                *DataV2
	UpdateAuthority     *common.PublicKey
	PrimarySaleHappened *bool
	IsMutable           *bool
}

type CreateMetadataAccountV2Param struct {
	Metadata        common.PublicKey
	Mint            common.PublicKey
	MintAuthority   common.PublicKey
	Payer           common.PublicKey
	UpdateAuthority common.PublicKey
	Data            DataV2
	IsMutable       bool
}

// CreateMetadataAccountV2 builds the create instruction. Account order:
// metadata, mint, mint authority, payer, update authority, system, rent.
func CreateMetadataAccountV2(p CreateMetadataAccountV2Param) (types.Instruction, error) {
	data, err := p.Data.sdk()
	if err != nil {
		return types.Instruction{}, err
	}
	return token_metadata.CreateMetadataAccountV2(token_metadata.CreateMetadataAccountV2Param{
		Metadata:        p.Metadata,
		Mint:            p.Mint,
		MintAuthority:   p.MintAuthority,
		Payer:           p.Payer,
		UpdateAuthority: p.UpdateAuthority,
		IsMutable:       p.IsMutable,
		Data:            data,
	}), nil
}

type UpdateMetadataAccountV2Param struct {
	Metadata            common.PublicKey
	UpdateAuthority     common.PublicKey
	Data                *DataV2
	NewUpdateAuthority  *common.PublicKey
	PrimarySaleHappened *bool
	IsMutable           *bool
}

// UpdateMetadataAccountV2 builds the update instruction. Account order:
// metadata, update authority.
func UpdateMetadataAccountV2(p UpdateMetadataAccountV2Param) (types.Instruction, error) {
	var data *token_metadata.DataV2
	if p.Data != nil {
		d, err := p.Data.sdk()
		if err != nil {
			return types.Instruction{}, err
		}
		data = &d
	}
	return token_metadata.UpdateMetadataAccountV2(token_metadata.UpdateMetadataAccountV2Param{
		MetadataAccount:     p.Metadata,
		UpdateAuthority:     p.UpdateAuthority,
		Data:                data,
		NewUpdateAuthority:  p.NewUpdateAuthority,
		PrimarySaleHappened: p.PrimarySaleHappened,
		IsMutable:           p.IsMutable,
	}), nil
}

// sdk converts to the SDK's DataV2. Collection and uses are never written.
func (d DataV2) sdk() (token_metadata.DataV2, error) {
	if d.Collection != nil || d.Uses != nil {
		return token_metadata.DataV2{}, errors.New("metaplex: collection and uses are not supported")
	}
	out := token_metadata.DataV2{
		Name:                 d.Name,
		Symbol:               d.Symbol,
		Uri:                  d.URI,
		SellerFeeBasisPoints: d.SellerFeeBasisPoints,
	}
	if d.Creators != nil {
		cs := make([]token_metadata.Creator, 0, len(*d.Creators))
		for _, c := range *d.Creators {
			cs = append(cs, token_metadata.Creator{Address: c.Address, Verified: c.Verified, Share: c.Share})
		}
		out.Creators = &cs
	}
	return out, nil
}

// Discriminator returns the instruction tag of raw instruction data.
func Discriminator(data []byte) (uint8, error) {
	if len(data) == 0 {
		return 0, ErrUnknownInstruction
	}
	switch data[0] {
	case InstructionCreateMetadataAccountV2, InstructionUpdateMetadataAccountV2:
		return data[0], nil
	default:
		return data[0], fmt.Errorf("%w: %d", ErrUnknownInstruction, data[0])
	}
}

func expectTag(data []byte, want uint8) error {
	if len(data) == 0 {
		return ErrUnknownInstruction
	}
	if data[0] != want {
		return fmt.Errorf("%w: %d", ErrUnknownInstruction, data[0])
	}
	return nil
}

func DecodeCreateMetadataAccountV2(data []byte) (CreateMetadataAccountV2Args, error) {
	var args CreateMetadataAccountV2Args
	if err := expectTag(data, InstructionCreateMetadataAccountV2); err != nil {
		return args, err
	}
	if err := borsh.Deserialize(&args, data); err != nil {
		return args, fmt.Errorf("decode create metadata args: %w", err)
	}
	return args, nil
}

func DecodeUpdateMetadataAccountV2(data []byte) (UpdateMetadataAccountV2Args, error) {
	var args UpdateMetadataAccountV2Args
	if err := expectTag(data, InstructionUpdateMetadataAccountV2); err != nil {
		return args, err
	}
	if err := borsh.Deserialize(&args, data); err != nil {
		return args, fmt.Errorf("decode update metadata args: %w", err)
	}
	return args, nil
}

// MetadataAccount is the leading part of an on-chain metadata account.
// Data holds the V1 data layout, which is DataV2 without collection and uses.
type MetadataAccount struct {
	Key                 uint8
	UpdateAuthority     common.PublicKey
	Mint                common.PublicKey
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
	EditionNonce        *uint8
	TokenStandard       *uint8
	Collection          *Collection
	Uses                *Uses
}

type Data struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
}

// DecodeMetadataAccount parses metadata account data. On chain the strings
// are right-padded with NUL bytes and are trimmed here.
func DecodeMetadataAccount(data []byte) (MetadataAccount, error) {
	md, err := token_metadata.MetadataDeserialize(data)
	if err != nil {
		return MetadataAccount{}, fmt.Errorf("decode metadata account: %w", err)
	}
	if uint8(md.Key) != KeyMetadataV1 {
		return MetadataAccount{}, fmt.Errorf("decode metadata account: unexpected key %d", md.Key)
	}

	acc := MetadataAccount{
		Key:             uint8(md.Key),
		UpdateAuthority: md.UpdateAuthority,
		Mint:            md.Mint,
		Data: Data{
			Name:                 strings.TrimRight(md.Data.Name, "\x00"),
			Symbol:               strings.TrimRight(md.Data.Symbol, "\x00"),
			URI:                  strings.TrimRight(md.Data.Uri, "\x00"),
			SellerFeeBasisPoints: md.Data.SellerFeeBasisPoints,
		},
		PrimarySaleHappened: md.PrimarySaleHappened,
		IsMutable:           md.IsMutable,
		EditionNonce:        md.EditionNonce,
	}
	if md.Data.Creators != nil {
		cs := make([]Creator, 0, len(*md.Data.Creators))
		for _, c := range *md.Data.Creators {
			cs = append(cs, Creator{Address: c.Address, Verified: c.Verified, Share: c.Share})
		}
		acc.Data.Creators = &cs
	}
	if md.Collection != nil {
		acc.Collection = &Collection{Verified: md.Collection.Verified, Key: md.Collection.Key}
	}
	if md.Uses != nil {
		acc.Uses = &Uses{UseMethod: uint8(md.Uses.UseMethod), Remaining: md.Uses.Remaining, Total: md.Uses.Total}
	}
	return acc, nil
}

// EncodeMetadataAccount lays acc out the way the program stores it,
// zero-padded to the full account size.
func EncodeMetadataAccount(acc MetadataAccount) ([]byte, error) {
	raw, err := borsh.Serialize(acc)
	if err != nil {
		return nil, err
	}
	if len(raw) > MetadataAccountSize {
		return nil, fmt.Errorf("metadata account is %d bytes, limit %d", len(raw), MetadataAccountSize)
	}
	return append(raw, make([]byte, MetadataAccountSize-len(raw))...), nil
}

// Validate enforces the program's length limits locally.
func (d DataV2) Validate() error {
	switch {
	case d.Name == "":
		return errors.New("name is empty")
	case len(d.Name) > MaxNameLength:
		return fmt.Errorf("name longer than %d bytes", MaxNameLength)
	case len(d.Symbol) > MaxSymbolLength:
		return fmt.Errorf("symbol longer than %d bytes", MaxSymbolLength)
	case len(d.URI) > MaxURILength:
		return fmt.Errorf("uri longer than %d bytes", MaxURILength)
	}
	return nil
}
