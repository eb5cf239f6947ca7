package sdk

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/models"
)

var ErrTransactionNotFound = errors.New("sdk: transaction not found")

// SPL token instruction tags decoded by DecodeTokenInstruction.
const (
	tagTransfer        = 3
	tagMintTo          = 7
	tagBurn            = 8
	tagTransferChecked = 12
	tagMintToChecked   = 14
	tagBurnChecked     = 15
)

// TokenActivity lists the SPL token supply and transfer instructions of a
// confirmed transaction, inner instructions included.
func (c *Client) TokenActivity(ctx context.Context, signature string) ([]models.TokenActivity, error) {
	tx, err := c.c.GetTransaction(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, signature)
	}

	keys := tx.Transaction.Message.Accounts
	var out []models.TokenActivity
	for i, inst := range tx.Transaction.Message.Instructions {
		if a, ok := tokenInstruction(keys, inst); ok {
			out = append(out, a)
		}
		if tx.Meta == nil {
			continue
		}
		for _, inner := range tx.Meta.InnerInstructions {
			if int(inner.Index) != i {
				continue
			}
			for _, in := range inner.Instructions {
				if a, ok := tokenInstruction(keys, in); ok {
					a.IsInner = true
					out = append(out, a)
				}
			}
		}
	}
	return out, nil
}

func tokenInstruction(keys []common.PublicKey, inst types.CompiledInstruction) (models.TokenActivity, bool) {
	if inst.ProgramIDIndex < 0 || inst.ProgramIDIndex >= len(keys) || keys[inst.ProgramIDIndex] != common.TokenProgramID {
		return models.TokenActivity{}, false
	}
	accounts := make([]common.PublicKey, 0, len(inst.Accounts))
	for _, idx := range inst.Accounts {
		if idx < 0 || idx >= len(keys) {
			return models.TokenActivity{}, false
		}
		accounts = append(accounts, keys[idx])
	}
	return DecodeTokenInstruction(accounts, inst.Data)
}

// DecodeTokenInstruction decodes one token instruction given its resolved
// account list. Instructions other than transfer, mint and burn are skipped.
func DecodeTokenInstruction(accounts []common.PublicKey, data []byte) (models.TokenActivity, bool) {
	if len(data) < 9 {
		return models.TokenActivity{}, false
	}
	amount := binary.LittleEndian.Uint64(data[1:9])
	at := func(i int) string { return accounts[i].ToBase58() }

	switch data[0] {
	case tagTransfer:
		if len(accounts) < 3 {
			return models.TokenActivity{}, false
		}
		return models.TokenActivity{Type: "transfer", Source: at(0), Destination: at(1), Authority: at(2), Amount: amount}, true
	case tagTransferChecked:
		if len(accounts) < 4 || len(data) < 10 {
			return models.TokenActivity{}, false
		}
		return models.TokenActivity{Type: "transferChecked", Source: at(0), Mint: at(1), Destination: at(2), Authority: at(3), Amount: amount}, true
	case tagMintTo, tagMintToChecked:
		if len(accounts) < 3 {
			return models.TokenActivity{}, false
		}
		typ := "mintTo"
		if data[0] == tagMintToChecked {
			typ = "mintToChecked"
		}
		return models.TokenActivity{Type: typ, Mint: at(0), Destination: at(1), Authority: at(2), Amount: amount}, true
	case tagBurn, tagBurnChecked:
		if len(accounts) < 3 {
			return models.TokenActivity{}, false
		}
		typ := "burn"
		if data[0] == tagBurnChecked {
			typ = "burnChecked"
		}
		return models.TokenActivity{Type: typ, Source: at(0), Mint: at(1), Authority: at(2), Amount: amount}, true
	default:
		return models.TokenActivity{}, false
	}
}
