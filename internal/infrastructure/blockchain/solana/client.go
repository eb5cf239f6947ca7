package sdk

import (
	"context"
	"fmt"
	"sync"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/internal/domain/address"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/mappers"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/metaplex"
	"github.com/whiteelite/tokenforge/internal/log"
)

// Client is the JSON-RPC backed ledger.
type Client struct {
	c          *client.Client
	commitment rpc.Commitment

	mu sync.Mutex
	// programs invoked by each transaction sent through this client, keyed
	// by signature, so status errors can name the failing program.
	sent map[string][]common.PublicKey
}

var _ repositories.Ledger = (*Client)(nil)

// Network defines Solana cluster
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
)

func DefaultRPCURL(network Network) string {
	switch network {
	case NetworkMainnet:
		return "https://api.mainnet-beta.solana.com"
	case NetworkTestnet:
		return "https://api.testnet.solana.com"
	case NetworkDevnet:
		fallthrough
	default:
		return "https://api.devnet.solana.com"
	}
}

// NewClient reads account state at commitment. An empty commitment means confirmed.
func NewClient(rpcURL string, commitment entities.Commitment) *Client {
	if commitment == "" {
		commitment = entities.CommitmentConfirmed
	}
	return &Client{
		c:          client.NewClient(rpcURL),
		commitment: rpc.Commitment(commitment),
		sent:       map[string][]common.PublicKey{},
	}
}

func NewClientForNetwork(network Network) *Client {
	return NewClient(DefaultRPCURL(network), entities.CommitmentConfirmed)
}

// accountInfo returns ErrAccountNotFound for addresses that hold no account.
// The RPC answers those with a null value, which the SDK turns into a zero
// AccountInfo rather than an error.
func (c *Client) accountInfo(ctx context.Context, addr common.PublicKey) (client.AccountInfo, error) {
	info, err := c.c.GetAccountInfoWithConfig(ctx, addr.ToBase58(), client.GetAccountInfoConfig{
		Commitment: c.commitment,
	})
	if err != nil {
		return info, fmt.Errorf("get account %s: %w", addr.ToBase58(), err)
	}
	if info.Owner == (common.PublicKey{}) && info.Lamports == 0 && len(info.Data) == 0 {
		return info, fmt.Errorf("account %s: %w", addr.ToBase58(), repositories.ErrAccountNotFound)
	}
	return info, nil
}

func (c *Client) AccountExists(ctx context.Context, addr common.PublicKey) (bool, error) {
	_, err := c.accountInfo(ctx, addr)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (c *Client) GetMint(ctx context.Context, mint common.PublicKey) (entities.Mint, error) {
	info, err := c.accountInfo(ctx, mint)
	if err != nil {
		return entities.Mint{}, err
	}
	if info.Owner != common.TokenProgramID {
		return entities.Mint{}, fmt.Errorf("%s is owned by %s, not the token program: %w", mint.ToBase58(), info.Owner.ToBase58(), repositories.ErrAccountNotFound)
	}
	m, err := token.MintAccountFromData(info.Data)
	if err != nil {
		return entities.Mint{}, fmt.Errorf("parse mint %s: %w", mint.ToBase58(), err)
	}
	return mappers.FromMintAccount(mint, m), nil
}

func (c *Client) GetTokenAccount(ctx context.Context, addr common.PublicKey) (entities.TokenAccount, error) {
	info, err := c.accountInfo(ctx, addr)
	if err != nil {
		return entities.TokenAccount{}, err
	}
	if info.Owner != common.TokenProgramID {
		return entities.TokenAccount{}, fmt.Errorf("%s is owned by %s, not the token program: %w", addr.ToBase58(), info.Owner.ToBase58(), repositories.ErrAccountNotFound)
	}
	ta, err := token.TokenAccountFromData(info.Data)
	if err != nil {
		return entities.TokenAccount{}, fmt.Errorf("parse token account %s: %w", addr.ToBase58(), err)
	}
	return mappers.FromTokenAccount(addr, ta), nil
}

func (c *Client) GetMetadata(ctx context.Context, addr common.PublicKey) (entities.MetadataRecord, error) {
	info, err := c.accountInfo(ctx, addr)
	if err != nil {
		return entities.MetadataRecord{}, err
	}
	if info.Owner != address.MetadataProgramID {
		return entities.MetadataRecord{}, fmt.Errorf("%s is not a metadata account: %w", addr.ToBase58(), repositories.ErrAccountNotFound)
	}
	acc, err := metaplex.DecodeMetadataAccount(info.Data)
	if err != nil {
		return entities.MetadataRecord{}, err
	}
	return mappers.FromMetadataAccount(addr, acc), nil
}

func (c *Client) MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error) {
	return c.c.GetMinimumBalanceForRentExemption(ctx, dataLen)
}

func (c *Client) LatestBlockhash(ctx context.Context) (string, error) {
	res, err := c.c.GetLatestBlockhashWithConfig(ctx, client.GetLatestBlockhashConfig{Commitment: c.commitment})
	if err != nil {
		return "", mapRPCError(err, nil)
	}
	return res.Blockhash, nil
}

// SendTransaction submits with preflight at the read commitment. The node's
// own rebroadcast is the only retry.
func (c *Client) SendTransaction(ctx context.Context, tx types.Transaction) (string, error) {
	progs := programs(tx)
	sig, err := c.c.SendTransactionWithConfig(ctx, tx, client.SendTransactionConfig{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		log.Ledger.Debug().Err(err).Msg("send transaction rejected")
		return "", mapRPCError(err, progs)
	}

	c.mu.Lock()
	c.sent[sig] = progs
	c.mu.Unlock()
	return sig, nil
}

// SignatureStatus classifies an execution error into a ledger error when
// the transaction was sent through this client.
func (c *Client) SignatureStatus(ctx context.Context, signature string) (entities.SignatureStatus, error) {
	st, err := c.c.GetSignatureStatus(ctx, signature)
	if err != nil {
		return entities.SignatureStatus{}, fmt.Errorf("signature status %s: %w", signature, err)
	}
	out := mappers.FromSignatureStatus(st)
	if st != nil && st.Err != nil {
		c.mu.Lock()
		progs := c.sent[signature]
		c.mu.Unlock()
		out.Cause = mapStatusError(st.Err, progs)
	}
	return out, nil
}

// GetBalance returns balance in lamports.
func (c *Client) GetBalance(ctx context.Context, owner common.PublicKey) (entities.Lamports, error) {
	bal, err := c.c.GetBalance(ctx, owner.ToBase58())
	if err != nil {
		return 0, err
	}
	return entities.Lamports(bal), nil
}

// RequestAirdrop only works on devnet and testnet.
func (c *Client) RequestAirdrop(ctx context.Context, owner common.PublicKey, lamports entities.Lamports) (entities.Signature, error) {
	sig, err := c.c.RequestAirdrop(ctx, owner.ToBase58(), uint64(lamports))
	if err != nil {
		return "", err
	}
	return entities.Signature(sig), nil
}
