package sdk_test

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	sdk "github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana"
)

func TestNewKeypair_ReturnsValidBase58Keys(t *testing.T) {
	kp := sdk.NewKeypair()

	priv, err := base58.Decode(kp.PrivateKey)
	if err != nil {
		t.Fatalf("private key is not valid base58: %v", err)
	}
	if len(priv) != 64 {
		t.Fatalf("unexpected private key length: got %d, want 64", len(priv))
	}
	pub, err := base58.Decode(kp.PublicKey)
	if err != nil {
		t.Fatalf("public key is not valid base58: %v", err)
	}
	if string(priv[32:]) != string(pub) {
		t.Fatalf("public key mismatch: does not match last 32 bytes of private key")
	}

	message := []byte("tokenforge keypair test")
	signature := ed25519.Sign(ed25519.PrivateKey(priv), message)
	if !ed25519.Verify(ed25519.PublicKey(pub), message, signature) {
		t.Fatalf("signature verification failed with generated keypair")
	}
}

func TestAccountFromBase58_RoundTrip(t *testing.T) {
	kp := sdk.NewKeypair()

	acc, err := sdk.AccountFromBase58(kp.PrivateKey)
	if err != nil {
		t.Fatalf("decode keypair: %v", err)
	}
	if got := acc.PublicKey.ToBase58(); got != kp.PublicKey {
		t.Fatalf("public key mismatch: got %s, want %s", got, kp.PublicKey)
	}
}

func TestAccountFromKeygenFile(t *testing.T) {
	kp := sdk.NewKeypair()
	priv, _ := base58.Decode(kp.PrivateKey)

	ints := make([]string, len(priv))
	for i, b := range priv {
		ints[i] = fmt.Sprint(b)
	}
	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, []byte("["+strings.Join(ints, ",")+"]\n"), 0o600); err != nil {
		t.Fatalf("write keypair file: %v", err)
	}

	acc, err := sdk.AccountFromKeygenFile(path)
	if err != nil {
		t.Fatalf("load keypair file: %v", err)
	}
	if got := acc.PublicKey.ToBase58(); got != kp.PublicKey {
		t.Fatalf("public key mismatch: got %s, want %s", got, kp.PublicKey)
	}
}

func TestAccountFromBase58_Invalid(t *testing.T) {
	kp := sdk.NewKeypair()
	priv, _ := base58.Decode(kp.PrivateKey)
	other, _ := base58.Decode(sdk.NewKeypair().PublicKey)
	mismatched := append(append([]byte{}, priv[:32]...), other...)

	for name, in := range map[string]string{
		"not base58":   "0OIl",
		"short":        base58.Encode(priv[:32]),
		"wrong public": base58.Encode(mismatched),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := sdk.AccountFromBase58(in); !errors.Is(err, sdk.ErrInvalidKeypair) {
				t.Fatalf("expected ErrInvalidKeypair, got %v", err)
			}
		})
	}
}
