package submitter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
)

type scriptedLedger struct {
	mu       sync.Mutex
	sendErr  error
	statuses []entities.SignatureStatus
	sent     []types.Transaction
	polls    int
}

func (l *scriptedLedger) LatestBlockhash(context.Context) (string, error) {
	return "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", nil
}

func (l *scriptedLedger) MinimumBalanceForRentExemption(context.Context, uint64) (uint64, error) {
	return 0, nil
}

func (l *scriptedLedger) SendTransaction(_ context.Context, tx types.Transaction) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, tx)
	if l.sendErr != nil {
		return "", l.sendErr
	}
	return base58.Encode(tx.Signatures[0]), nil
}

func (l *scriptedLedger) SignatureStatus(context.Context, string) (entities.SignatureStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.polls++
	if len(l.statuses) == 0 {
		return entities.SignatureStatus{}, nil
	}
	st := l.statuses[0]
	if len(l.statuses) > 1 {
		l.statuses = l.statuses[1:]
	}
	return st, nil
}

type memJournal struct {
	entries map[entities.Signature]entities.JournalEntry
}

func (j *memJournal) Record(_ context.Context, e entities.JournalEntry) error {
	if j.entries == nil {
		j.entries = map[entities.Signature]entities.JournalEntry{}
	}
	j.entries[e.Signature] = e
	return nil
}

func (j *memJournal) Get(_ context.Context, sig entities.Signature) (entities.JournalEntry, error) {
	e, ok := j.entries[sig]
	if !ok {
		return entities.JournalEntry{}, errors.New("not found")
	}
	return e, nil
}

func (j *memJournal) List(context.Context) ([]entities.JournalEntry, error) { return nil, nil }
func (j *memJournal) Close() error                                          { return nil }

func sampleTx(payer types.Account) Tx {
	return Tx{
		Operation: entities.OperationCreateMint,
		FeePayer:  payer,
		Instructions: []types.Instruction{
			system.Transfer(system.TransferParam{
				From:   payer.PublicKey,
				To:     types.NewAccount().PublicKey,
				Amount: 1,
			}),
		},
	}
}

func fastConfig() Config {
	return Config{ConfirmTimeout: 200 * time.Millisecond, PollInterval: 5 * time.Millisecond}
}

func TestSubmit_Confirmed(t *testing.T) {
	ledger := &scriptedLedger{statuses: []entities.SignatureStatus{
		{Found: false},
		{Found: true, Slot: 7, Commitment: entities.CommitmentProcessed},
		{Found: true, Slot: 8, Commitment: entities.CommitmentConfirmed},
	}}
	j := &memJournal{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(ledger, fastConfig(), WithJournal(j), WithClock(func() time.Time { return at }))

	payer := types.NewAccount()
	receipt, err := s.Submit(context.Background(), sampleTx(payer))
	require.NoError(t, err)

	assert.Equal(t, entities.OutcomeConfirmed, receipt.Outcome)
	assert.Equal(t, uint64(8), receipt.Slot)
	require.Len(t, ledger.sent, 1)
	assert.Equal(t, base58.Encode(ledger.sent[0].Signatures[0]), string(receipt.Signature))
	assert.Equal(t, entities.OutcomeConfirmed, j.entries[receipt.Signature].Outcome)
	assert.Equal(t, at, j.entries[receipt.Signature].At)
}

func TestSubmit_SendRejected(t *testing.T) {
	ledger := &scriptedLedger{sendErr: repositories.ErrInsufficientFunds}
	s := New(ledger, fastConfig())

	receipt, err := s.Submit(context.Background(), sampleTx(types.NewAccount()))
	require.Error(t, err)

	assert.Equal(t, entities.OutcomeFailed, receipt.Outcome)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, repositories.ErrInsufficientFunds)
	assert.NotErrorIs(t, err, ErrOutcomeUnknown)
	assert.Len(t, ledger.sent, 1, "no retry after a rejected send")
}

func TestSubmit_StatusError(t *testing.T) {
	ledger := &scriptedLedger{statuses: []entities.SignatureStatus{
		{Found: true, Slot: 3, Commitment: entities.CommitmentProcessed, Err: "custom program error: 0x1"},
	}}
	s := New(ledger, fastConfig())

	receipt, err := s.Submit(context.Background(), sampleTx(types.NewAccount()))
	require.Error(t, err)
	assert.Equal(t, entities.OutcomeFailed, receipt.Outcome)
	assert.ErrorIs(t, err, ErrTransactionFailed)

	var oe *OutcomeError
	require.True(t, errors.As(err, &oe))
	assert.Contains(t, oe.Reason, "0x1")
}

func TestSubmit_StatusCauseIsWrapped(t *testing.T) {
	ledger := &scriptedLedger{statuses: []entities.SignatureStatus{
		{Found: true, Slot: 4, Commitment: entities.CommitmentConfirmed, Err: "map[InstructionError:[0 map[Custom:3]]]", Cause: repositories.ErrAlreadyInitialized},
	}}
	s := New(ledger, fastConfig())

	_, err := s.Submit(context.Background(), sampleTx(types.NewAccount()))
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, repositories.ErrAlreadyInitialized)
}

func TestSubmit_TimeoutIsUnknown(t *testing.T) {
	ledger := &scriptedLedger{}
	j := &memJournal{}
	s := New(ledger, Config{ConfirmTimeout: 30 * time.Millisecond, PollInterval: 5 * time.Millisecond}, WithJournal(j))

	receipt, err := s.Submit(context.Background(), sampleTx(types.NewAccount()))
	require.Error(t, err)

	assert.Equal(t, entities.OutcomeUnknown, receipt.Outcome)
	assert.NotEmpty(t, receipt.Signature, "unknown outcome still carries the signature")
	assert.ErrorIs(t, err, ErrOutcomeUnknown)
	assert.NotErrorIs(t, err, ErrTransactionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, entities.OutcomeUnknown, j.entries[receipt.Signature].Outcome)
}

func TestSubmit_NoInstructions(t *testing.T) {
	s := New(&scriptedLedger{}, fastConfig())
	_, err := s.Submit(context.Background(), Tx{FeePayer: types.NewAccount()})
	assert.ErrorIs(t, err, ErrNoInstructions)
}

func TestReconcile_UpdatesJournal(t *testing.T) {
	ledger := &scriptedLedger{}
	j := &memJournal{}
	s := New(ledger, Config{ConfirmTimeout: 20 * time.Millisecond, PollInterval: 5 * time.Millisecond}, WithJournal(j))

	receipt, err := s.Submit(context.Background(), sampleTx(types.NewAccount()))
	require.ErrorIs(t, err, ErrOutcomeUnknown)

	ledger.statuses = []entities.SignatureStatus{{Found: true, Slot: 11, Commitment: entities.CommitmentFinalized}}
	got, err := s.Reconcile(context.Background(), receipt.Signature)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeConfirmed, got.Outcome)
	assert.Equal(t, entities.OutcomeConfirmed, j.entries[receipt.Signature].Outcome)
}

func TestSignerSet_Dedup(t *testing.T) {
	payer := types.NewAccount()
	other := types.NewAccount()

	got := signerSet(payer, []types.Account{payer, other, other})
	require.Len(t, got, 2)
	assert.Equal(t, payer.PublicKey, got[0].PublicKey)
	assert.Equal(t, other.PublicKey, got[1].PublicKey)
}
