// Package submitter wraps instructions into signed transactions, submits
// them and blocks until the ledger reports an outcome.
package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/log"
)

var (
	ErrNoInstructions    = errors.New("submitter: no instructions")
	ErrTransactionFailed = errors.New("submitter: transaction failed")
	ErrOutcomeUnknown    = errors.New("submitter: transaction outcome unknown")
)

const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
)

type Config struct {
	Commitment     entities.Commitment
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Commitment.Rank() == 0 {
		c.Commitment = entities.CommitmentConfirmed
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Tx is one logical submission. FeePayer always signs; Signers adds any
// further authorities. Operation, Mint and BaseUnits only label the receipt.
type Tx struct {
	Operation    entities.Operation
	Mint         common.PublicKey
	BaseUnits    entities.BaseUnits
	FeePayer     types.Account
	Instructions []types.Instruction
	Signers      []types.Account
}

// OutcomeError is returned for failed and unknown outcomes. It matches
// ErrTransactionFailed or ErrOutcomeUnknown, and the underlying ledger error.
type OutcomeError struct {
	Signature entities.Signature
	Outcome   entities.Outcome
	Reason    string
	Err       error
}

func (e *OutcomeError) Error() string {
	msg := fmt.Sprintf("transaction %s", e.Outcome)
	if e.Signature != "" {
		msg += " sig=" + string(e.Signature)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OutcomeError) Unwrap() []error {
	sentinel := ErrTransactionFailed
	if e.Outcome == entities.OutcomeUnknown {
		sentinel = ErrOutcomeUnknown
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

type Option func(*Submitter)

func WithJournal(j repositories.Journal) Option {
	return func(s *Submitter) { s.journal = j }
}

func WithEvents(p repositories.EventPublisher) Option {
	return func(s *Submitter) { s.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Submitter) { s.now = now }
}

type Submitter struct {
	ledger  repositories.LedgerWriter
	cfg     Config
	journal repositories.Journal
	events  repositories.EventPublisher
	now     func() time.Time
}

func New(ledger repositories.LedgerWriter, cfg Config, opts ...Option) *Submitter {
	s := &Submitter{
		ledger: ledger,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger exposes the writer so services can query rent without a second handle.
func (s *Submitter) Ledger() repositories.LedgerWriter {
	return s.ledger
}

// Submit signs, sends and confirms tx. It never retries the send.
func (s *Submitter) Submit(ctx context.Context, tx Tx) (entities.Receipt, error) {
	if len(tx.Instructions) == 0 {
		return entities.Receipt{Outcome: entities.OutcomeFailed}, ErrNoInstructions
	}

	subCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	receipt, err := s.submit(subCtx, tx)
	s.record(ctx, tx, receipt, err)
	return receipt, err
}

func (s *Submitter) submit(ctx context.Context, tx Tx) (entities.Receipt, error) {
	blockhash, err := s.ledger.LatestBlockhash(ctx)
	if err != nil {
		return failed("", "latest blockhash", err)
	}

	signed, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        tx.FeePayer.PublicKey,
			RecentBlockhash: blockhash,
			Instructions:    tx.Instructions,
		}),
		Signers: signerSet(tx.FeePayer, tx.Signers),
	})
	if err != nil {
		return failed("", "build transaction", err)
	}

	// The first signature is the transaction id and is known before sending,
	// so an unknown outcome can still be reported against it.
	sig := entities.Signature(base58.Encode(signed.Signatures[0]))

	logger := log.Submitter.With().
		Str("operation", string(tx.Operation)).
		Str("signature", string(sig)).
		Logger()
	logger.Debug().Int("instructions", len(tx.Instructions)).Msg("sending transaction")

	sent, err := s.ledger.SendTransaction(ctx, signed)
	if err != nil {
		if ctx.Err() != nil {
			return unknown(sig, ctx.Err())
		}
		return failed(sig, "send transaction", err)
	}
	if sent != "" {
		sig = entities.Signature(sent)
	}

	return s.confirm(ctx, sig)
}

func (s *Submitter) confirm(ctx context.Context, sig entities.Signature) (entities.Receipt, error) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := s.ledger.SignatureStatus(ctx, string(sig))
		switch {
		case err != nil:
			log.Submitter.Debug().Err(err).Str("signature", string(sig)).Msg("signature status unavailable")
		case status.Found && status.Err != "":
			receipt := entities.Receipt{Signature: sig, Outcome: entities.OutcomeFailed, Slot: status.Slot}
			return receipt, &OutcomeError{Signature: sig, Outcome: entities.OutcomeFailed, Reason: status.Err, Err: status.Cause}
		case status.Found && status.Commitment.Rank() >= s.cfg.Commitment.Rank():
			return entities.Receipt{Signature: sig, Outcome: entities.OutcomeConfirmed, Slot: status.Slot}, nil
		}

		select {
		case <-ctx.Done():
			return unknown(sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Reconcile re-queries the ledger for a signature whose outcome was unknown
// and records the answer. A signature still not found stays unknown.
func (s *Submitter) Reconcile(ctx context.Context, sig entities.Signature) (entities.Receipt, error) {
	status, err := s.ledger.SignatureStatus(ctx, string(sig))
	if err != nil {
		return entities.Receipt{Signature: sig, Outcome: entities.OutcomeUnknown}, fmt.Errorf("signature status: %w", err)
	}

	receipt := entities.Receipt{Signature: sig, Outcome: entities.OutcomeUnknown, Slot: status.Slot}
	switch {
	case status.Found && status.Err != "":
		receipt.Outcome = entities.OutcomeFailed
	case status.Found && status.Commitment.Rank() >= s.cfg.Commitment.Rank():
		receipt.Outcome = entities.OutcomeConfirmed
	}

	if s.journal != nil {
		entry, err := s.journal.Get(ctx, sig)
		if err != nil {
			entry = entities.JournalEntry{ID: uuid.New(), Signature: sig}
		}
		entry.Outcome = receipt.Outcome
		entry.Error = status.Err
		entry.At = s.now()
		if err := s.journal.Record(ctx, entry); err != nil {
			log.Submitter.Warn().Err(err).Str("signature", string(sig)).Msg("journal update failed")
		}
	}
	return receipt, nil
}

func (s *Submitter) record(ctx context.Context, tx Tx, receipt entities.Receipt, submitErr error) {
	ctx = context.WithoutCancel(ctx)

	var mint, reason string
	if tx.Mint != (common.PublicKey{}) {
		mint = tx.Mint.ToBase58()
	}
	if submitErr != nil {
		reason = submitErr.Error()
	}

	ev := log.Submitter.Info()
	if receipt.Outcome != entities.OutcomeConfirmed {
		ev = log.Submitter.Warn().Err(submitErr)
	}
	ev.Str("operation", string(tx.Operation)).
		Str("mint", mint).
		Str("signature", string(receipt.Signature)).
		Str("outcome", string(receipt.Outcome)).
		Msg("transaction finished")

	at := s.now()
	if s.journal != nil && receipt.Signature != "" {
		err := s.journal.Record(ctx, entities.JournalEntry{
			ID:        uuid.New(),
			Operation: tx.Operation,
			Mint:      mint,
			Signature: receipt.Signature,
			Outcome:   receipt.Outcome,
			Error:     reason,
			At:        at,
		})
		if err != nil {
			log.Submitter.Warn().Err(err).Msg("journal record failed")
		}
	}
	if s.events != nil {
		err := s.events.Publish(ctx, entities.LifecycleEvent{
			ID:        uuid.New(),
			Operation: tx.Operation,
			Mint:      mint,
			Signature: receipt.Signature,
			Outcome:   receipt.Outcome,
			BaseUnits: tx.BaseUnits,
			Error:     reason,
			At:        at,
		})
		if err != nil {
			log.Submitter.Warn().Err(err).Msg("publish lifecycle event failed")
		}
	}
}

// signerSet puts the fee payer first and drops duplicate keys.
func signerSet(feePayer types.Account, others []types.Account) []types.Account {
	out := make([]types.Account, 0, len(others)+1)
	seen := map[common.PublicKey]struct{}{feePayer.PublicKey: {}}
	out = append(out, feePayer)
	for _, a := range others {
		if _, ok := seen[a.PublicKey]; ok {
			continue
		}
		seen[a.PublicKey] = struct{}{}
		out = append(out, a)
	}
	return out
}

func failed(sig entities.Signature, reason string, err error) (entities.Receipt, error) {
	return entities.Receipt{Signature: sig, Outcome: entities.OutcomeFailed},
		&OutcomeError{Signature: sig, Outcome: entities.OutcomeFailed, Reason: reason, Err: err}
}

func unknown(sig entities.Signature, err error) (entities.Receipt, error) {
	return entities.Receipt{Signature: sig, Outcome: entities.OutcomeUnknown},
		&OutcomeError{Signature: sig, Outcome: entities.OutcomeUnknown, Reason: "confirmation not observed", Err: err}
}
