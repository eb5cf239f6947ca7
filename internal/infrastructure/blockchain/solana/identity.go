package sdk

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/goccy/go-json"
	"github.com/mr-tron/base58"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/mappers"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/models"
)

var ErrInvalidKeypair = errors.New("sdk: invalid keypair")

// NewKeypair generates a fresh signer in printable form.
func NewKeypair() models.Keypair {
	return mappers.ToKeypair(types.NewAccount())
}

// AccountFromBase58 decodes a base58 encoded 64 byte secret key.
func AccountFromBase58(secret string) (types.Account, error) {
	b, err := base58.Decode(strings.TrimSpace(secret))
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	return accountFromBytes(b)
}

// AccountFromKeygenFile reads a solana-keygen JSON file ([n,n,...]).
func AccountFromKeygenFile(path string) (types.Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Account{}, fmt.Errorf("read keypair %s: %w", path, err)
	}
	return accountFromPayload(raw)
}

// AccountFromSecret loads a signer from a Secret Manager version, such as
// projects/p/secrets/mint-authority/versions/latest. The payload is either
// a keygen JSON array or a base58 secret key.
func AccountFromSecret(ctx context.Context, version string) (types.Account, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return types.Account{}, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	defer client.Close()

	res, err := client.AccessSecretVersion(ctx, &smpb.AccessSecretVersionRequest{Name: version})
	if err != nil {
		return types.Account{}, fmt.Errorf("access secret version %s: %w", version, err)
	}
	return accountFromPayload(res.GetPayload().GetData())
}

func accountFromPayload(raw []byte) (types.Account, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return AccountFromBase58(trimmed)
	}
	var ints []int
	if err := json.Unmarshal([]byte(trimmed), &ints); err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return types.Account{}, fmt.Errorf("%w: byte %d out of range", ErrInvalidKeypair, i)
		}
		b[i] = byte(v)
	}
	return accountFromBytes(b)
}

func accountFromBytes(b []byte) (types.Account, error) {
	if len(b) != ed25519.PrivateKeySize {
		return types.Account{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeypair, len(b), ed25519.PrivateKeySize)
	}
	acc, err := types.AccountFromBytes(b)
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	// The trailing half must be the public key of the seed.
	if string(ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])[ed25519.SeedSize:]) != string(b[ed25519.SeedSize:]) {
		return types.Account{}, fmt.Errorf("%w: public half does not match seed", ErrInvalidKeypair)
	}
	return acc, nil
}
