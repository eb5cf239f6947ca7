package sdk_test

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/goccy/go-json"
	"github.com/whiteelite/tokenforge/internal/domain/address"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	sdk "github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana/metaplex"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type fakeAccount struct {
	owner common.PublicKey
	data  []byte
}

// fakeNode answers the handful of JSON-RPC methods the adapter uses.
type fakeNode struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
	statuses map[string]string
	// execution errors reported in getSignatureStatuses, by signature
	statusErrs map[string]any
	sendErr    string
	sendSig    string
	methods    []string
}

func newFakeNode(t *testing.T) (*fakeNode, *sdk.Client) {
	t.Helper()
	n := &fakeNode{accounts: map[string]fakeAccount{}, statuses: map[string]string{}, statusErrs: map[string]any{}}
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	return n, sdk.NewClient(srv.URL, entities.CommitmentConfirmed)
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.methods = append(n.methods, req.Method)
	n.mu.Unlock()

	var result any
	var rpcErr any
	switch req.Method {
	case "getAccountInfo":
		var addr string
		_ = json.Unmarshal(req.Params[0], &addr)
		n.mu.Lock()
		acc, ok := n.accounts[addr]
		n.mu.Unlock()
		var value any
		if ok {
			value = map[string]any{
				"data":       []string{base64.StdEncoding.EncodeToString(acc.data), "base64"},
				"executable": false,
				"lamports":   1_000_000,
				"owner":      acc.owner.ToBase58(),
				"rentEpoch":  0,
			}
		}
		result = map[string]any{"context": map[string]any{"slot": 1}, "value": value}
	case "getLatestBlockhash":
		result = map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   map[string]any{"blockhash": "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", "lastValidBlockHeight": 100},
		}
	case "getMinimumBalanceForRentExemption":
		result = 1461600
	case "getSignatureStatuses":
		var sigs []string
		_ = json.Unmarshal(req.Params[0], &sigs)
		values := make([]any, len(sigs))
		n.mu.Lock()
		for i, s := range sigs {
			if status, ok := n.statuses[s]; ok {
				values[i] = map[string]any{"slot": 42, "confirmations": nil, "err": n.statusErrs[s], "confirmationStatus": status}
			}
		}
		n.mu.Unlock()
		result = map[string]any{"context": map[string]any{"slot": 1}, "value": values}
	case "sendTransaction":
		n.mu.Lock()
		if n.sendErr != "" {
			rpcErr = map[string]any{"code": -32002, "message": n.sendErr}
		} else {
			result = n.sendSig
		}
		n.mu.Unlock()
	default:
		rpcErr = map[string]any{"code": -32601, "message": "method not found"}
	}

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) put(addr, owner common.PublicKey, data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accounts[addr.ToBase58()] = fakeAccount{owner: owner, data: data}
}

func mintData(authority common.PublicKey, supply uint64, decimals uint8) []byte {
	b := make([]byte, 82)
	binary.LittleEndian.PutUint32(b[0:4], 1)
	copy(b[4:36], authority.Bytes())
	binary.LittleEndian.PutUint64(b[36:44], supply)
	b[44] = decimals
	b[45] = 1
	return b
}

func tokenAccountData(mint, owner common.PublicKey, amount uint64, frozen bool) []byte {
	b := make([]byte, 165)
	copy(b[0:32], mint.Bytes())
	copy(b[32:64], owner.Bytes())
	binary.LittleEndian.PutUint64(b[64:72], amount)
	b[108] = 1
	if frozen {
		b[108] = 2
	}
	return b
}

func TestClient_GetMint(t *testing.T) {
	node, c := newFakeNode(t)
	mint, authority := types.NewAccount().PublicKey, types.NewAccount().PublicKey
	node.put(mint, common.TokenProgramID, mintData(authority, 2500, 2))

	m, err := c.GetMint(context.Background(), mint)
	if err != nil {
		t.Fatalf("get mint: %v", err)
	}
	if m.Decimals != 2 || m.Supply != 2500 || !m.IsInitialized {
		t.Fatalf("unexpected mint: %+v", m)
	}
	if m.MintAuthority == nil || *m.MintAuthority != authority {
		t.Fatalf("unexpected mint authority: %v", m.MintAuthority)
	}
	if m.FreezeAuthority != nil {
		t.Fatalf("expected no freeze authority")
	}
}

func TestClient_MissingAccounts(t *testing.T) {
	_, c := newFakeNode(t)
	missing := types.NewAccount().PublicKey

	if _, err := c.GetMint(context.Background(), missing); !errors.Is(err, repositories.ErrAccountNotFound) {
		t.Fatalf("GetMint: expected ErrAccountNotFound, got %v", err)
	}
	if _, err := c.GetTokenAccount(context.Background(), missing); !errors.Is(err, repositories.ErrAccountNotFound) {
		t.Fatalf("GetTokenAccount: expected ErrAccountNotFound, got %v", err)
	}
	exists, err := c.AccountExists(context.Background(), missing)
	if err != nil || exists {
		t.Fatalf("AccountExists: got %v, %v", exists, err)
	}
}

func TestClient_GetTokenAccount(t *testing.T) {
	node, c := newFakeNode(t)
	addr, mint, owner := types.NewAccount().PublicKey, types.NewAccount().PublicKey, types.NewAccount().PublicKey
	node.put(addr, common.TokenProgramID, tokenAccountData(mint, owner, 5000, true))

	ta, err := c.GetTokenAccount(context.Background(), addr)
	if err != nil {
		t.Fatalf("get token account: %v", err)
	}
	if ta.Mint != mint || ta.Owner != owner || ta.Amount != 5000 || !ta.IsFrozen {
		t.Fatalf("unexpected token account: %+v", ta)
	}
}

func TestClient_ForeignOwnerIsNotAToken(t *testing.T) {
	node, c := newFakeNode(t)
	addr := types.NewAccount().PublicKey
	node.put(addr, common.SystemProgramID, make([]byte, 165))

	if _, err := c.GetTokenAccount(context.Background(), addr); !errors.Is(err, repositories.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	exists, err := c.AccountExists(context.Background(), addr)
	if err != nil || !exists {
		t.Fatalf("AccountExists: got %v, %v", exists, err)
	}
}

func TestClient_GetMetadata(t *testing.T) {
	node, c := newFakeNode(t)
	mint, authority := types.NewAccount().PublicKey, types.NewAccount().PublicKey
	md, err := address.Metadata(mint)
	if err != nil {
		t.Fatalf("derive metadata: %v", err)
	}
	data, err := metaplex.EncodeMetadataAccount(metaplex.MetadataAccount{
		Key:             metaplex.KeyMetadataV1,
		UpdateAuthority: authority,
		Mint:            mint,
		Data: metaplex.Data{
			Name:   "Forge\x00\x00\x00",
			Symbol: "FRG\x00",
			URI:    "https://example.org/frg.json\x00\x00",
		},
		PrimarySaleHappened: true,
		IsMutable:           true,
	})
	if err != nil {
		t.Fatalf("encode metadata: %v", err)
	}
	node.put(md, address.MetadataProgramID, append(data, make([]byte, 64)...))

	rec, err := c.GetMetadata(context.Background(), md)
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if rec.Name != "Forge" || rec.Symbol != "FRG" || rec.URI != "https://example.org/frg.json" {
		t.Fatalf("unexpected metadata: %+v", rec)
	}
	if rec.Mint != mint || rec.UpdateAuthority != authority || !rec.PrimarySaleHappened || !rec.IsMutable {
		t.Fatalf("unexpected metadata header: %+v", rec)
	}
}

func TestClient_LatestBlockhashAndRent(t *testing.T) {
	_, c := newFakeNode(t)

	hash, err := c.LatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("latest blockhash: %v", err)
	}
	if hash != "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N" {
		t.Fatalf("unexpected blockhash %s", hash)
	}
	rent, err := c.MinimumBalanceForRentExemption(context.Background(), 82)
	if err != nil || rent != 1461600 {
		t.Fatalf("rent: got %d, %v", rent, err)
	}
}

func TestClient_SignatureStatus(t *testing.T) {
	node, c := newFakeNode(t)
	node.statuses["known"] = "finalized"

	st, err := c.SignatureStatus(context.Background(), "known")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Found || st.Slot != 42 || st.Commitment != entities.CommitmentFinalized || st.Err != "" {
		t.Fatalf("unexpected status: %+v", st)
	}

	st, err = c.SignatureStatus(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Found {
		t.Fatalf("expected unknown signature to be not found")
	}
}

// threeProgramTx invokes the token program, the metadata program and the
// system program, in that order.
func threeProgramTx(t *testing.T) types.Transaction {
	t.Helper()
	payer := types.NewAccount()
	inst := func(program common.PublicKey) types.Instruction {
		return types.Instruction{
			ProgramID: program,
			Accounts:  []types.AccountMeta{{PubKey: payer.PublicKey, IsSigner: true, IsWritable: true}},
			Data:      []byte("x"),
		}
	}
	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        payer.PublicKey,
			RecentBlockhash: "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
			Instructions: []types.Instruction{
				inst(common.TokenProgramID),
				inst(address.MetadataProgramID),
				inst(common.SystemProgramID),
			},
		}),
		Signers: []types.Account{payer},
	})
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	return tx
}

func TestClient_SendTransactionMapsErrors(t *testing.T) {
	const sim = "Transaction simulation failed: Error processing "
	tests := []struct {
		message string
		want    error
		notWant error
	}{
		{sim + "Instruction 0: custom program error: 0x1", repositories.ErrInsufficientFunds, nil},
		{sim + "Instruction 0: custom program error: 0x3", repositories.ErrMintMismatch, repositories.ErrAlreadyInitialized},
		{sim + "Instruction 0: custom program error: 0x4", repositories.ErrAuthorityMismatch, nil},
		{sim + "Instruction 0: custom program error: 0x11", repositories.ErrAccountFrozen, nil},
		{sim + "Instruction 1: custom program error: 0x3", repositories.ErrAlreadyInitialized, repositories.ErrMintMismatch},
		{sim + "Instruction 1: custom program error: 0x7", repositories.ErrAuthorityMismatch, nil},
		{sim + "Instruction 2: custom program error: 0x0", repositories.ErrAlreadyInitialized, nil},
		{"Allocate: account Address { address: x } already in use", repositories.ErrAlreadyInitialized, nil},
		{"Transaction simulation failed: Blockhash not found", repositories.ErrBlockhashNotFound, nil},
		{"Transaction simulation failed: This transaction has already been processed", repositories.ErrAlreadyProcessed, repositories.ErrAlreadyInitialized},
	}

	tx := threeProgramTx(t)
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			node, c := newFakeNode(t)
			node.sendErr = tt.message

			_, err := c.SendTransaction(context.Background(), tx)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.notWant != nil && errors.Is(err, tt.notWant) {
				t.Fatalf("did not expect %v in %v", tt.notWant, err)
			}
		})
	}
}

func TestClient_SendTransactionUnknownCodeUnmapped(t *testing.T) {
	node, c := newFakeNode(t)
	node.sendErr = "Transaction simulation failed: Error processing Instruction 5: custom program error: 0x1"

	_, err := c.SendTransaction(context.Background(), threeProgramTx(t))
	if err == nil || errors.Is(err, repositories.ErrInsufficientFunds) {
		t.Fatalf("instruction outside the transaction must stay unclassified, got %v", err)
	}
}

func TestClient_SignatureStatusClassifiesExecutionError(t *testing.T) {
	tests := []struct {
		sig   string
		txErr any
		want  error
	}{
		{"sig-metadata-dup", map[string]any{"InstructionError": []any{1, map[string]any{"Custom": 3}}}, repositories.ErrAlreadyInitialized},
		{"sig-metadata-auth", map[string]any{"InstructionError": []any{1, map[string]any{"Custom": 7}}}, repositories.ErrAuthorityMismatch},
		{"sig-token-funds", map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 1}}}, repositories.ErrInsufficientFunds},
		{"sig-signature", map[string]any{"InstructionError": []any{0, "MissingRequiredSignature"}}, repositories.ErrAuthorityMismatch},
	}

	tx := threeProgramTx(t)
	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			node, c := newFakeNode(t)
			node.sendSig = tt.sig
			node.statuses[tt.sig] = "confirmed"
			node.statusErrs[tt.sig] = tt.txErr

			sig, err := c.SendTransaction(context.Background(), tx)
			if err != nil || sig != tt.sig {
				t.Fatalf("send: got %q, %v", sig, err)
			}
			st, err := c.SignatureStatus(context.Background(), sig)
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if !st.Found || st.Err == "" {
				t.Fatalf("expected a failed status, got %+v", st)
			}
			if !errors.Is(st.Cause, tt.want) {
				t.Fatalf("expected cause %v, got %v", tt.want, st.Cause)
			}
		})
	}
}
