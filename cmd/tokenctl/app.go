package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/whiteelite/tokenforge/config"
	"github.com/whiteelite/tokenforge/internal/application/metadata"
	"github.com/whiteelite/tokenforge/internal/application/submitter"
	"github.com/whiteelite/tokenforge/internal/application/token"
	"github.com/whiteelite/tokenforge/internal/domain/repositories"
	"github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/memledger"
	sdk "github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/tokenforge/internal/infrastructure/messaging/kafka/repositories/repository"
	"github.com/whiteelite/tokenforge/internal/infrastructure/storage/journal"
	"github.com/whiteelite/tokenforge/internal/infrastructure/storage/offchain"
	"github.com/whiteelite/tokenforge/internal/log"
)

// app holds everything one command invocation needs.
type app struct {
	cfg     *config.Config
	ledger  repositories.Ledger
	rpc     *sdk.Client
	payer   types.Account
	sub     *submitter.Submitter
	tokens  *token.Service
	meta    *metadata.Manager
	journal *journal.Journal

	closers []func() error
}

type appOptions struct {
	signer bool
	store  bool
}

func newApp(ctx context.Context, cfg *config.Config, opt appOptions) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Network == config.NetworkMemory {
		a.ledger = memledger.New()
	} else {
		url := cfg.RPCURL
		if url == "" {
			url = sdk.DefaultRPCURL(sdk.Network(cfg.Network))
		}
		a.rpc = sdk.NewClient(url, cfg.Commitment)
		a.ledger = a.rpc
	}

	if opt.signer {
		if a.payer, err = loadSigner(ctx, cfg); err != nil {
			return nil, err
		}
	}

	subOpts := []submitter.Option{}
	if cfg.JournalPath != "" {
		if a.journal, err = journal.Open(cfg.JournalPath); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.journal.Close)
		subOpts = append(subOpts, submitter.WithJournal(a.journal))
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := repository.NewPublisher(repository.KafkaParams{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		subOpts = append(subOpts, submitter.WithEvents(pub))
	}

	a.sub = submitter.New(a.ledger, submitter.Config{
		Commitment:     cfg.Commitment,
		ConfirmTimeout: cfg.ConfirmTimeout,
		PollInterval:   cfg.PollInterval,
	}, subOpts...)
	a.tokens = token.NewService(a.ledger, a.sub)

	var uploader *metadata.Uploader
	if opt.store {
		store, err := a.contentStore(ctx)
		if err != nil {
			return nil, err
		}
		uploader = metadata.NewUploader(store)
	}
	a.meta = metadata.NewManager(a.ledger, a.sub, uploader)
	return a, nil
}

func (a *app) contentStore(ctx context.Context) (repositories.ContentStore, error) {
	switch a.cfg.StorageBackend {
	case config.StorageHTTP:
		return offchain.NewHTTPStore(a.cfg.StorageURL, a.cfg.StorageAPIKey), nil
	case config.StorageGCS:
		store, err := offchain.NewGCSStore(ctx, a.cfg.GCSBucket, a.cfg.GCSPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		if a.cfg.Network != config.NetworkMemory {
			log.Storage.Warn().Msg("memory storage backend: uploaded URIs will not resolve")
		}
		return offchain.NewMemoryStore(""), nil
	}
}

// Close releases sinks in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func loadSigner(ctx context.Context, cfg *config.Config) (types.Account, error) {
	switch {
	case cfg.KeypairPath != "":
		return sdk.AccountFromKeygenFile(cfg.KeypairPath)
	case cfg.KeypairBase58 != "":
		return sdk.AccountFromBase58(cfg.KeypairBase58)
	case cfg.KeypairSecret != "":
		return sdk.AccountFromSecret(ctx, cfg.KeypairSecret)
	case cfg.Network == config.NetworkMemory:
		acc := types.NewAccount()
		log.Logger.Info().Str("payer", acc.PublicKey.ToBase58()).Msg("using ephemeral payer")
		return acc, nil
	default:
		return types.Account{}, fmt.Errorf("no signer configured: set KEYPAIR_PATH, KEYPAIR_BASE58 or KEYPAIR_SECRET")
	}
}
