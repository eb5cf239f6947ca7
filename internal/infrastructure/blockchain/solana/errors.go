package sdk

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/internal/domain/address"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
)

// Node error text and program logs mapped onto ledger errors; first match wins.
var rpcErrorPatterns = []struct {
	needle string
	err    error
}{
	{"blockhash not found", repositories.ErrBlockhashNotFound},
	{"already been processed", repositories.ErrAlreadyProcessed},
	{"already in use", repositories.ErrAlreadyInitialized},
	{"insufficient funds", repositories.ErrInsufficientFunds},
	{"insufficient lamports", repositories.ErrInsufficientFunds},
	{"account is frozen", repositories.ErrAccountFrozen},
	{"owner does not match", repositories.ErrAuthorityMismatch},
	{"missing required signature", repositories.ErrAuthorityMismatch},
	{"accountnotfound", repositories.ErrAccountNotFound},
	{"could not find account", repositories.ErrAccountNotFound},
}

var customErrorRE = regexp.MustCompile(`instruction (\d+): custom program error: 0x([0-9a-f]+)`)

// Custom error codes per program. A code only means something together with
// the program that raised it.
var programErrorCodes = map[common.PublicKey]map[uint64]error{
	common.SystemProgramID: {
		0: repositories.ErrAlreadyInitialized, // AccountAlreadyInUse
		1: repositories.ErrInsufficientFunds,  // ResultWithNegativeLamports
	},
	common.TokenProgramID: {
		0x1:  repositories.ErrInsufficientFunds,
		0x3:  repositories.ErrMintMismatch,
		0x4:  repositories.ErrAuthorityMismatch,
		0x6:  repositories.ErrAlreadyInitialized,
		0x11: repositories.ErrAccountFrozen,
	},
	address.MetadataProgramID: {
		0x3: repositories.ErrAlreadyInitialized, // AlreadyInitialized
		0x7: repositories.ErrAuthorityMismatch,  // UpdateAuthorityIncorrect
		0x8: repositories.ErrAuthorityMismatch,  // UpdateAuthorityIsNotSigner
		0x9: repositories.ErrAuthorityMismatch,  // NotMintAuthority
		0xa: repositories.ErrAuthorityMismatch,  // InvalidMintAuthority
	},
}

// programs lists the program invoked by each top-level instruction of tx.
func programs(tx types.Transaction) []common.PublicKey {
	out := make([]common.PublicKey, 0, len(tx.Message.Instructions))
	for _, inst := range tx.Message.Instructions {
		if inst.ProgramIDIndex < 0 || inst.ProgramIDIndex >= len(tx.Message.Accounts) {
			out = append(out, common.PublicKey{})
			continue
		}
		out = append(out, tx.Message.Accounts[inst.ProgramIDIndex])
	}
	return out
}

func customError(progs []common.PublicKey, index int, code uint64) error {
	if index < 0 || index >= len(progs) {
		return nil
	}
	return programErrorCodes[progs[index]][code]
}

// mapRPCError classifies a send failure. progs resolves the instruction
// index of a custom program error to the program that raised it.
func mapRPCError(err error, progs []common.PublicKey) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rpcErrorPatterns {
		if strings.Contains(msg, p.needle) {
			return fmt.Errorf("%w: %w", p.err, err)
		}
	}
	if m := customErrorRE.FindStringSubmatch(msg); m != nil {
		index, _ := strconv.Atoi(m[1])
		code, _ := strconv.ParseUint(m[2], 16, 64)
		if sentinel := customError(progs, index, code); sentinel != nil {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
	}
	return err
}

// mapStatusError classifies the err field of a signature status, which the
// node reports as {"InstructionError":[index,{"Custom":code}]} or as a bare
// string such as "AlreadyProcessed".
func mapStatusError(txErr any, progs []common.PublicKey) error {
	switch v := txErr.(type) {
	case nil:
		return nil
	case string:
		switch v {
		case "AlreadyProcessed":
			return repositories.ErrAlreadyProcessed
		case "InsufficientFundsForFee", "InsufficientFundsForRent":
			return repositories.ErrInsufficientFunds
		case "BlockhashNotFound":
			return repositories.ErrBlockhashNotFound
		}
		return nil
	case map[string]any:
		pair, ok := v["InstructionError"].([]any)
		if !ok || len(pair) != 2 {
			return nil
		}
		index, ok := number(pair[0])
		if !ok {
			return nil
		}
		switch detail := pair[1].(type) {
		case map[string]any:
			code, ok := number(detail["Custom"])
			if !ok {
				return nil
			}
			return customError(progs, int(index), code)
		case string:
			switch detail {
			case "MissingRequiredSignature", "IllegalOwner":
				return repositories.ErrAuthorityMismatch
			case "AccountAlreadyInitialized":
				return repositories.ErrAlreadyInitialized
			case "InsufficientFunds":
				return repositories.ErrInsufficientFunds
			}
		}
	}
	return nil
}

func number(v any) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int:
		return uint64(n), n >= 0
	case uint64:
		return n, true
	}
	return 0, false
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrAccountNotFound)
}
