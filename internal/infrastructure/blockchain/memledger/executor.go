package memledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/internal/domain/address"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/metaplex"
)

var ErrImmutableMetadata = errors.New("memledger: metadata is immutable")

// SPL Token instruction tags.
const (
	tokenInitializeMint  = 0
	tokenTransfer        = 3
	tokenMintTo          = 7
	tokenBurn            = 8
	tokenTransferChecked = 12
	tokenMintToChecked   = 14
	tokenBurnChecked     = 15
	tokenInitializeMint2 = 20
)

const (
	systemCreateAccount = 0
	ataCreate           = 0
	ataCreateIdempotent = 1
)

type executor struct {
	st      *state
	signers map[common.PublicKey]bool

	keys []common.PublicKey
	idx  []int
}

func (e *executor) run(keys []common.PublicKey, inst types.CompiledInstruction) error {
	if inst.ProgramIDIndex < 0 || inst.ProgramIDIndex >= len(keys) {
		return fmt.Errorf("%w: program index out of range", repositories.ErrInvalidInstruction)
	}
	e.keys, e.idx = keys, inst.Accounts

	switch keys[inst.ProgramIDIndex] {
	case common.SystemProgramID:
		return e.system(inst.Data)
	case common.TokenProgramID:
		return e.token(inst.Data)
	case common.SPLAssociatedTokenAccountProgramID:
		return e.associatedTokenAccount(inst.Data)
	case address.MetadataProgramID:
		return e.metadata(inst.Data)
	default:
		return fmt.Errorf("%w: unsupported program %s", repositories.ErrInvalidInstruction, keys[inst.ProgramIDIndex].ToBase58())
	}
}

func (e *executor) account(i int) (common.PublicKey, error) {
	if i >= len(e.idx) || e.idx[i] < 0 || e.idx[i] >= len(e.keys) {
		return common.PublicKey{}, fmt.Errorf("%w: missing account %d", repositories.ErrInvalidInstruction, i)
	}
	return e.keys[e.idx[i]], nil
}

func (e *executor) accounts(n int) ([]common.PublicKey, error) {
	out := make([]common.PublicKey, n)
	for i := range out {
		k, err := e.account(i)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

func (e *executor) requireSigner(k common.PublicKey) error {
	if !e.signers[k] {
		return fmt.Errorf("%w: %s did not sign", repositories.ErrAuthorityMismatch, k.ToBase58())
	}
	return nil
}

func (e *executor) system(data []byte) error {
	if len(data) < 4 || binary.LittleEndian.Uint32(data) != systemCreateAccount {
		return fmt.Errorf("%w: unsupported system instruction", repositories.ErrInvalidInstruction)
	}
	if len(data) < 52 {
		return fmt.Errorf("%w: short create account data", repositories.ErrInvalidInstruction)
	}
	acc, err := e.accounts(2)
	if err != nil {
		return err
	}
	from, created := acc[0], acc[1]
	if err := e.requireSigner(from); err != nil {
		return err
	}
	if err := e.requireSigner(created); err != nil {
		return err
	}
	if _, ok := e.st.accounts[created]; ok {
		return fmt.Errorf("create account %s: %w", created.ToBase58(), repositories.ErrAlreadyInitialized)
	}
	e.st.accounts[created] = account{
		Owner: common.PublicKeyFromBytes(data[20:52]),
		Space: binary.LittleEndian.Uint64(data[12:20]),
	}
	return nil
}

func (e *executor) token(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty token instruction", repositories.ErrInvalidInstruction)
	}
	switch data[0] {
	case tokenInitializeMint, tokenInitializeMint2:
		return e.initializeMint(data)
	case tokenMintTo, tokenMintToChecked:
		return e.mintTo(data)
	case tokenTransfer, tokenTransferChecked:
		return e.transfer(data)
	case tokenBurn, tokenBurnChecked:
		return e.burn(data)
	default:
		return fmt.Errorf("%w: unsupported token instruction %d", repositories.ErrInvalidInstruction, data[0])
	}
}

func (e *executor) initializeMint(data []byte) error {
	if len(data) < 35 {
		return fmt.Errorf("%w: short initialize mint data", repositories.ErrInvalidInstruction)
	}
	mint, err := e.account(0)
	if err != nil {
		return err
	}
	acc, ok := e.st.accounts[mint]
	if !ok || acc.Owner != common.TokenProgramID || acc.Space < token.MintAccountSize {
		return fmt.Errorf("initialize mint %s: %w", mint.ToBase58(), repositories.ErrAccountNotFound)
	}
	if m, ok := e.st.mints[mint]; ok && m.IsInitialized {
		return fmt.Errorf("initialize mint %s: %w", mint.ToBase58(), repositories.ErrAlreadyInitialized)
	}

	mintAuth := common.PublicKeyFromBytes(data[2:34])
	m := entities.Mint{
		Address:       mint,
		Decimals:      entities.Decimals(data[1]),
		MintAuthority: &mintAuth,
		IsInitialized: true,
	}
	if data[34] == 1 {
		if len(data) < 67 {
			return fmt.Errorf("%w: short freeze authority", repositories.ErrInvalidInstruction)
		}
		freeze := common.PublicKeyFromBytes(data[35:67])
		m.FreezeAuthority = &freeze
	}
	e.st.mints[mint] = m
	return nil
}

// amountArgs reads the u64 amount and, for checked variants, the decimals byte.
func amountArgs(data []byte, checked bool) (uint64, *uint8, error) {
	if len(data) < 9 || (checked && len(data) < 10) {
		return 0, nil, fmt.Errorf("%w: short amount data", repositories.ErrInvalidInstruction)
	}
	amount := binary.LittleEndian.Uint64(data[1:9])
	if !checked {
		return amount, nil, nil
	}
	d := data[9]
	return amount, &d, nil
}

func (e *executor) loadMint(k common.PublicKey, decimals *uint8) (entities.Mint, error) {
	m, ok := e.st.mints[k]
	if !ok || !m.IsInitialized {
		return m, fmt.Errorf("mint %s: %w", k.ToBase58(), repositories.ErrAccountNotFound)
	}
	if decimals != nil && entities.Decimals(*decimals) != m.Decimals {
		return m, fmt.Errorf("%w: decimals %d do not match mint decimals %d", repositories.ErrInvalidInstruction, *decimals, m.Decimals)
	}
	return m, nil
}

func (e *executor) loadTokenAccount(k, mint common.PublicKey) (entities.TokenAccount, error) {
	ta, ok := e.st.tokens[k]
	if !ok {
		return ta, fmt.Errorf("token account %s: %w", k.ToBase58(), repositories.ErrAccountNotFound)
	}
	if ta.Mint != mint {
		return ta, fmt.Errorf("token account %s: %w", k.ToBase58(), repositories.ErrMintMismatch)
	}
	if ta.IsFrozen {
		return ta, fmt.Errorf("token account %s: %w", k.ToBase58(), repositories.ErrAccountFrozen)
	}
	return ta, nil
}

func (e *executor) mintTo(data []byte) error {
	amount, decimals, err := amountArgs(data, data[0] == tokenMintToChecked)
	if err != nil {
		return err
	}
	acc, err := e.accounts(3)
	if err != nil {
		return err
	}
	mintKey, dest, auth := acc[0], acc[1], acc[2]

	m, err := e.loadMint(mintKey, decimals)
	if err != nil {
		return err
	}
	if m.MintAuthority == nil || *m.MintAuthority != auth {
		return fmt.Errorf("mint to: %w", repositories.ErrAuthorityMismatch)
	}
	if err := e.requireSigner(auth); err != nil {
		return err
	}
	ta, err := e.loadTokenAccount(dest, mintKey)
	if err != nil {
		return err
	}
	if uint64(m.Supply) > math.MaxUint64-amount {
		return fmt.Errorf("%w: supply overflow", repositories.ErrInvalidInstruction)
	}

	m.Supply += entities.BaseUnits(amount)
	ta.Amount += entities.BaseUnits(amount)
	e.st.mints[mintKey] = m
	e.st.tokens[dest] = ta
	return nil
}

func (e *executor) transfer(data []byte) error {
	checked := data[0] == tokenTransferChecked
	amount, decimals, err := amountArgs(data, checked)
	if err != nil {
		return err
	}

	var src, dst, owner common.PublicKey
	var mint *common.PublicKey
	if checked {
		acc, err := e.accounts(4)
		if err != nil {
			return err
		}
		src, dst, owner = acc[0], acc[2], acc[3]
		mint = &acc[1]
	} else {
		acc, err := e.accounts(3)
		if err != nil {
			return err
		}
		src, dst, owner = acc[0], acc[1], acc[2]
	}

	from, ok := e.st.tokens[src]
	if !ok {
		return fmt.Errorf("token account %s: %w", src.ToBase58(), repositories.ErrAccountNotFound)
	}
	mintKey := from.Mint
	if mint != nil {
		mintKey = *mint
	}
	if _, err := e.loadMint(mintKey, decimals); err != nil {
		return err
	}
	from, err = e.loadTokenAccount(src, mintKey)
	if err != nil {
		return err
	}
	to, err := e.loadTokenAccount(dst, mintKey)
	if err != nil {
		return err
	}
	if from.Owner != owner {
		return fmt.Errorf("transfer: %w", repositories.ErrAuthorityMismatch)
	}
	if err := e.requireSigner(owner); err != nil {
		return err
	}
	if uint64(from.Amount) < amount {
		return fmt.Errorf("transfer %d from balance %d: %w", amount, from.Amount, repositories.ErrInsufficientFunds)
	}

	if src == dst {
		return nil
	}
	from.Amount -= entities.BaseUnits(amount)
	to.Amount += entities.BaseUnits(amount)
	e.st.tokens[src] = from
	e.st.tokens[dst] = to
	return nil
}

func (e *executor) burn(data []byte) error {
	amount, decimals, err := amountArgs(data, data[0] == tokenBurnChecked)
	if err != nil {
		return err
	}
	acc, err := e.accounts(3)
	if err != nil {
		return err
	}
	holder, mintKey, owner := acc[0], acc[1], acc[2]

	m, err := e.loadMint(mintKey, decimals)
	if err != nil {
		return err
	}
	ta, err := e.loadTokenAccount(holder, mintKey)
	if err != nil {
		return err
	}
	if ta.Owner != owner {
		return fmt.Errorf("burn: %w", repositories.ErrAuthorityMismatch)
	}
	if err := e.requireSigner(owner); err != nil {
		return err
	}
	if uint64(ta.Amount) < amount {
		return fmt.Errorf("burn %d from balance %d: %w", amount, ta.Amount, repositories.ErrInsufficientFunds)
	}

	ta.Amount -= entities.BaseUnits(amount)
	m.Supply -= entities.BaseUnits(amount)
	e.st.tokens[holder] = ta
	e.st.mints[mintKey] = m
	return nil
}

func (e *executor) associatedTokenAccount(data []byte) error {
	mode := byte(ataCreate)
	if len(data) > 0 {
		mode = data[0]
	}
	if mode != ataCreate && mode != ataCreateIdempotent {
		return fmt.Errorf("%w: unsupported associated token instruction %d", repositories.ErrInvalidInstruction, mode)
	}
	acc, err := e.accounts(4)
	if err != nil {
		return err
	}
	funder, ata, owner, mint := acc[0], acc[1], acc[2], acc[3]

	if err := e.requireSigner(funder); err != nil {
		return err
	}
	want, err := address.AssociatedTokenAccount(owner, mint)
	if err != nil {
		return err
	}
	if want != ata {
		return fmt.Errorf("%w: associated address mismatch", repositories.ErrInvalidInstruction)
	}
	if _, err := e.loadMint(mint, nil); err != nil {
		return err
	}
	if existing, ok := e.st.tokens[ata]; ok {
		if mode == ataCreateIdempotent && existing.Owner == owner && existing.Mint == mint {
			return nil
		}
		return fmt.Errorf("associated token account %s: %w", ata.ToBase58(), repositories.ErrAlreadyInitialized)
	}
	if _, ok := e.st.accounts[ata]; ok {
		return fmt.Errorf("associated token account %s: %w", ata.ToBase58(), repositories.ErrAlreadyInitialized)
	}

	e.st.accounts[ata] = account{Owner: common.TokenProgramID, Space: token.TokenAccountSize}
	e.st.tokens[ata] = entities.TokenAccount{Address: ata, Mint: mint, Owner: owner}
	return nil
}

func (e *executor) metadata(data []byte) error {
	tag, err := metaplex.Discriminator(data)
	if err != nil {
		return fmt.Errorf("%w: %v", repositories.ErrInvalidInstruction, err)
	}
	if tag == metaplex.InstructionCreateMetadataAccountV2 {
		return e.createMetadata(data)
	}
	return e.updateMetadata(data)
}

func (e *executor) createMetadata(data []byte) error {
	args, err := metaplex.DecodeCreateMetadataAccountV2(data)
	if err != nil {
		return fmt.Errorf("%w: %v", repositories.ErrInvalidInstruction, err)
	}
	acc, err := e.accounts(5)
	if err != nil {
		return err
	}
	mdKey, mintKey, mintAuth, payer, updateAuth := acc[0], acc[1], acc[2], acc[3], acc[4]

	want, err := address.Metadata(mintKey)
	if err != nil {
		return err
	}
	if want != mdKey {
		return fmt.Errorf("%w: metadata address mismatch", repositories.ErrInvalidInstruction)
	}
	m, err := e.loadMint(mintKey, nil)
	if err != nil {
		return err
	}
	if m.MintAuthority == nil || *m.MintAuthority != mintAuth {
		return fmt.Errorf("create metadata: %w", repositories.ErrAuthorityMismatch)
	}
	if err := e.requireSigner(mintAuth); err != nil {
		return err
	}
	if err := e.requireSigner(payer); err != nil {
		return err
	}
	if _, ok := e.st.accounts[mdKey]; ok {
		return fmt.Errorf("metadata %s: %w", mdKey.ToBase58(), repositories.ErrAlreadyInitialized)
	}

	rec := entities.MetadataRecord{
		Address:         mdKey,
		Mint:            mintKey,
		UpdateAuthority: updateAuth,
		IsMutable:       args.IsMutable,
	}
	applyData(&rec, args.Data)
	e.st.accounts[mdKey] = account{Owner: address.MetadataProgramID}
	e.st.metadata[mdKey] = rec
	return nil
}

func (e *executor) updateMetadata(data []byte) error {
	args, err := metaplex.DecodeUpdateMetadataAccountV2(data)
	if err != nil {
		return fmt.Errorf("%w: %v", repositories.ErrInvalidInstruction, err)
	}
	acc, err := e.accounts(2)
	if err != nil {
		return err
	}
	mdKey, updateAuth := acc[0], acc[1]

	rec, ok := e.st.metadata[mdKey]
	if !ok {
		return fmt.Errorf("metadata %s: %w", mdKey.ToBase58(), repositories.ErrAccountNotFound)
	}
	if rec.UpdateAuthority != updateAuth {
		return fmt.Errorf("update metadata: %w", repositories.ErrAuthorityMismatch)
	}
	if err := e.requireSigner(updateAuth); err != nil {
		return err
	}
	if !rec.IsMutable {
		return ErrImmutableMetadata
	}

	if args.Data != nil {
		applyData(&rec, *args.Data)
	}
	if args.UpdateAuthority != nil {
		rec.UpdateAuthority = *args.UpdateAuthority
	}
	// the program only lets primary sale flip from false to true
	if args.PrimarySaleHappened != nil && *args.PrimarySaleHappened {
		rec.PrimarySaleHappened = true
	}
	if args.IsMutable != nil {
		rec.IsMutable = *args.IsMutable
	}
	e.st.metadata[mdKey] = rec
	return nil
}

func applyData(rec *entities.MetadataRecord, d metaplex.DataV2) {
	rec.Name = entities.Name(d.Name)
	rec.Symbol = entities.Symbol(d.Symbol)
	rec.URI = entities.URI(d.URI)
	rec.SellerFeeBasisPoints = entities.BasisPoint(d.SellerFeeBasisPoints)
	rec.Creators = nil
	if d.Creators != nil {
		cs := make([]entities.Creator, 0, len(*d.Creators))
		for _, c := range *d.Creators {
			cs = append(cs, entities.Creator{Address: c.Address, Verified: c.Verified, Share: c.Share})
		}
		rec.Creators = &cs
	}
	rec.Collection = nil
	if d.Collection != nil {
		rec.Collection = &entities.Collection{Verified: d.Collection.Verified, Key: d.Collection.Key}
	}
	rec.Uses = nil
	if d.Uses != nil {
		rec.Uses = &entities.Uses{UseMethod: d.Uses.UseMethod, Remaining: d.Uses.Remaining, Total: d.Uses.Total}
	}
}
