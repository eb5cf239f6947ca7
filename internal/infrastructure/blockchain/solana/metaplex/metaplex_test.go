package metaplex

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whiteelite/tokenforge/internal/domain/address"
)

func writeBorshString(b *bytes.Buffer, s string) {
	_ = binary.Write(b, binary.LittleEndian, uint32(len(s)))
	b.WriteString(s)
}

func expectedDataV2(name, symbol, uri string) []byte {
	var b bytes.Buffer
	writeBorshString(&b, name)
	writeBorshString(&b, symbol)
	writeBorshString(&b, uri)
	_ = binary.Write(&b, binary.LittleEndian, uint16(0))
	b.WriteByte(0) // creators None
	b.WriteByte(0) // collection None
	b.WriteByte(0) // uses None
	return b.Bytes()
}

func TestCreateMetadataAccountV2_Layout(t *testing.T) {
	metadata := types.NewAccount().PublicKey
	mint := types.NewAccount().PublicKey
	user := types.NewAccount().PublicKey

	inst, err := CreateMetadataAccountV2(CreateMetadataAccountV2Param{
		Metadata:        metadata,
		Mint:            mint,
		MintAuthority:   user,
		Payer:           user,
		UpdateAuthority: user,
		Data:            DataV2{Name: "Oorbit", Symbol: "OORB", URI: "https://arweave.net/abc"},
		IsMutable:       true,
	})
	require.NoError(t, err)

	var want bytes.Buffer
	want.WriteByte(16)
	want.Write(expectedDataV2("Oorbit", "OORB", "https://arweave.net/abc"))
	want.WriteByte(1) // is_mutable
	assert.Equal(t, want.Bytes(), inst.Data)

	assert.Equal(t, address.MetadataProgramID, inst.ProgramID)
	require.Len(t, inst.Accounts, 7)
	wantKeys := []common.PublicKey{metadata, mint, user, user, user, common.SystemProgramID, common.SysVarRentPubkey}
	for i, k := range wantKeys {
		assert.Equal(t, k, inst.Accounts[i].PubKey, "account %d", i)
	}
	assert.True(t, inst.Accounts[0].IsWritable)
	assert.True(t, inst.Accounts[2].IsSigner)
	assert.True(t, inst.Accounts[3].IsSigner && inst.Accounts[3].IsWritable)
}

func TestUpdateMetadataAccountV2_Layout(t *testing.T) {
	metadata := types.NewAccount().PublicKey
	user := types.NewAccount().PublicKey
	yes := true

	inst, err := UpdateMetadataAccountV2(UpdateMetadataAccountV2Param{
		Metadata:            metadata,
		UpdateAuthority:     user,
		Data:                &DataV2{Name: "Oorbit", Symbol: "OORB", URI: "u2"},
		NewUpdateAuthority:  &user,
		PrimarySaleHappened: &yes,
		IsMutable:           &yes,
	})
	require.NoError(t, err)

	var want bytes.Buffer
	want.WriteByte(15)
	want.WriteByte(1)
	want.Write(expectedDataV2("Oorbit", "OORB", "u2"))
	want.WriteByte(1)
	want.Write(user.Bytes())
	want.Write([]byte{1, 1}) // primary_sale_happened Some(true)
	want.Write([]byte{1, 1}) // is_mutable Some(true)
	assert.Equal(t, want.Bytes(), inst.Data)

	require.Len(t, inst.Accounts, 2)
	assert.Equal(t, metadata, inst.Accounts[0].PubKey)
	assert.True(t, inst.Accounts[0].IsWritable)
	assert.Equal(t, user, inst.Accounts[1].PubKey)
	assert.True(t, inst.Accounts[1].IsSigner)
}

func TestDecode_RoundTrip(t *testing.T) {
	user := types.NewAccount().PublicKey
	yes := true

	create, err := CreateMetadataAccountV2(CreateMetadataAccountV2Param{
		Metadata: user, Mint: user, MintAuthority: user, Payer: user, UpdateAuthority: user,
		Data:      DataV2{Name: "N", Symbol: "S", URI: "U"},
		IsMutable: true,
	})
	require.NoError(t, err)

	tag, err := Discriminator(create.Data)
	require.NoError(t, err)
	assert.Equal(t, InstructionCreateMetadataAccountV2, tag)

	args, err := DecodeCreateMetadataAccountV2(create.Data)
	require.NoError(t, err)
	assert.Equal(t, "N", args.Data.Name)
	assert.Nil(t, args.Data.Creators)
	assert.True(t, args.IsMutable)

	update, err := UpdateMetadataAccountV2(UpdateMetadataAccountV2Param{
		Metadata: user, UpdateAuthority: user,
		Data:                &DataV2{Name: "N", Symbol: "S", URI: "U2"},
		PrimarySaleHappened: &yes,
	})
	require.NoError(t, err)

	uargs, err := DecodeUpdateMetadataAccountV2(update.Data)
	require.NoError(t, err)
	require.NotNil(t, uargs.Data)
	assert.Equal(t, "U2", uargs.Data.URI)
	assert.Nil(t, uargs.UpdateAuthority)
	require.NotNil(t, uargs.PrimarySaleHappened)
	assert.True(t, *uargs.PrimarySaleHappened)
	assert.Nil(t, uargs.IsMutable)

	_, err = DecodeUpdateMetadataAccountV2(create.Data)
	assert.ErrorIs(t, err, ErrUnknownInstruction)
}

func TestDecodeMetadataAccount_TrimsPadding(t *testing.T) {
	acc := MetadataAccount{
		Key:             KeyMetadataV1,
		UpdateAuthority: types.NewAccount().PublicKey,
		Mint:            types.NewAccount().PublicKey,
		Data: Data{
			Name:   "Oorbit" + string(make([]byte, 26)),
			Symbol: "OORB" + string(make([]byte, 6)),
			URI:    "https://x",
		},
		IsMutable: true,
	}
	raw, err := EncodeMetadataAccount(acc)
	require.NoError(t, err)
	assert.Len(t, raw, MetadataAccountSize)

	got, err := DecodeMetadataAccount(raw)
	require.NoError(t, err)
	assert.Equal(t, "Oorbit", got.Data.Name)
	assert.Equal(t, "OORB", got.Data.Symbol)
	assert.Equal(t, acc.Mint, got.Mint)
	assert.True(t, got.IsMutable)
}

func TestDecode_WrongTag(t *testing.T) {
	_, err := DecodeCreateMetadataAccountV2(nil)
	assert.ErrorIs(t, err, ErrUnknownInstruction)

	_, err = DecodeCreateMetadataAccountV2([]byte{InstructionUpdateMetadataAccountV2, 0})
	assert.ErrorIs(t, err, ErrUnknownInstruction)

	_, err = DecodeUpdateMetadataAccountV2([]byte{InstructionCreateMetadataAccountV2})
	assert.ErrorIs(t, err, ErrUnknownInstruction)
}

func TestCreateMetadataAccountV2_RejectsCollection(t *testing.T) {
	user := types.NewAccount().PublicKey
	_, err := CreateMetadataAccountV2(CreateMetadataAccountV2Param{
		Metadata: user, Mint: user, MintAuthority: user, Payer: user, UpdateAuthority: user,
		Data: DataV2{Name: "N", Symbol: "S", URI: "U", Collection: &Collection{Key: user}},
	})
	assert.Error(t, err)
}

func TestDataV2_Validate(t *testing.T) {
	assert.NoError(t, DataV2{Name: "a", Symbol: "b", URI: "c"}.Validate())
	assert.Error(t, DataV2{}.Validate())
	assert.Error(t, DataV2{Name: string(make([]byte, 33))}.Validate())
	assert.Error(t, DataV2{Name: "a", Symbol: "ELEVENCHARS"}.Validate())
}
