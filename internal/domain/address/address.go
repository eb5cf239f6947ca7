// Package address derives the program-derived addresses used by the token
// lifecycle: associated token accounts and Metaplex metadata records.
package address

import (
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/mr-tron/base58"
)

var ErrInvalidAddress = errors.New("address: invalid input address")

// MetadataProgramID is the Metaplex Token Metadata program.
var MetadataProgramID = common.PublicKeyFromString("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// AssociatedTokenAccount derives the canonical token account for (owner, mint).
func AssociatedTokenAccount(owner, mint common.PublicKey) (common.PublicKey, error) {
	if isZero(owner) || isZero(mint) {
		return common.PublicKey{}, ErrInvalidAddress
	}
	pda, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive associated token account: %w", err)
	}
	return pda, nil
}

// Metadata derives the metadata record address for mint.
func Metadata(mint common.PublicKey) (common.PublicKey, error) {
	if isZero(mint) {
		return common.PublicKey{}, ErrInvalidAddress
	}
	pda, err := token_metadata.GetTokenMetaPubkey(mint)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive metadata address: %w", err)
	}
	return pda, nil
}

// Parse decodes a base58 public key, rejecting anything that is not exactly
// 32 bytes.
func Parse(s string) (common.PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(b) != common.PublicKeyLength {
		return common.PublicKey{}, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(b))
	}
	return common.PublicKeyFromBytes(b), nil
}

func isZero(k common.PublicKey) bool {
	return k == common.PublicKey{}
}
