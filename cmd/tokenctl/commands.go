package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/whiteelite/tokenforge/config"
	"github.com/whiteelite/tokenforge/internal/application/metadata"
	"github.com/whiteelite/tokenforge/internal/application/submitter"
	"github.com/whiteelite/tokenforge/internal/application/token"
	"github.com/whiteelite/tokenforge/internal/domain/address"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
	sdk "github.com/whiteelite/tokenforge/internal/infrastructure/blockchain/solana"
	"github.com/whiteelite/tokenforge/internal/infrastructure/messaging/kafka/repositories/repository"
)

func cmdKeygen(_ context.Context, _ *config.Config, args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", "", "Write a solana-keygen JSON file here (default: print only)")
	fs.Parse(args)

	acc := types.NewAccount()
	if *out != "" {
		raw := make([]int, len(acc.PrivateKey))
		for i, b := range acc.PrivateKey {
			raw[i] = int(b)
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*out, data, 0600); err != nil {
			return fmt.Errorf("write keypair: %w", err)
		}
		fmt.Printf("Public key: %s\n", acc.PublicKey.ToBase58())
		fmt.Printf("Saved to:   %s\n", *out)
		return nil
	}

	kp := sdk.NewKeypair()
	fmt.Printf("Public key:  %s\n", kp.PublicKey)
	fmt.Printf("Private key: %s\n", kp.PrivateKey)
	return nil
}

func cmdCreateMint(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("create-mint", flag.ExitOnError)
	decimals := fs.Uint("decimals", 9, "Number of decimal places (0-255)")
	freeze := fs.String("freeze-authority", "", "Freeze authority address (default: none)")
	authPath := fs.String("authority", "", "Mint authority keypair file (default: payer)")
	fs.Parse(args)

	if *decimals > 255 {
		return fmt.Errorf("decimals must be at most 255, got %d", *decimals)
	}

	a, err := newApp(ctx, cfg, appOptions{signer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	auth, err := a.authority(*authPath)
	if err != nil {
		return err
	}
	p := token.CreateMintParams{MintAuthority: auth.PublicKey, Decimals: entities.Decimals(*decimals)}
	if *freeze != "" {
		fa, err := address.Parse(*freeze)
		if err != nil {
			return err
		}
		p.FreezeAuthority = &fa
	}

	res, err := a.tokens.CreateMint(ctx, a.payer, p)
	if err != nil {
		return err
	}
	fmt.Printf("Mint:      %s\n", res.Mint.ToBase58())
	printReceipt(res.Receipt)
	return nil
}

func cmdCreateAccount(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ExitOnError)
	mintStr := fs.String("mint", "", "Mint address (required)")
	ownerStr := fs.String("owner", "", "Owner address (default: payer)")
	fs.Parse(args)

	mint, err := requireAddress("mint", *mintStr)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{signer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	owner := a.payer.PublicKey
	if *ownerStr != "" {
		if owner, err = address.Parse(*ownerStr); err != nil {
			return err
		}
	}

	res, err := a.tokens.ResolveOrCreate(ctx, a.payer, mint, owner)
	if err != nil {
		return err
	}
	fmt.Printf("Account:   %s\n", res.Account.Address.ToBase58())
	fmt.Printf("Created:   %v\n", res.Created)
	if res.Created {
		printReceipt(res.Receipt)
	}
	return nil
}

type supplyFlags struct {
	fs       *flag.FlagSet
	mint     *string
	amount   *string
	authPath *string
}

func newSupplyFlags(name string) supplyFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return supplyFlags{
		fs:       fs,
		mint:     fs.String("mint", "", "Mint address (required)"),
		amount:   fs.String("amount", "", "Amount in whole tokens, e.g. 12.5 (required)"),
		authPath: fs.String("authority", "", "Authority keypair file (default: payer)"),
	}
}

func (f supplyFlags) parse() (common.PublicKey, decimal.Decimal, error) {
	mint, err := requireAddress("mint", *f.mint)
	if err != nil {
		return common.PublicKey{}, decimal.Decimal{}, err
	}
	if *f.amount == "" {
		return common.PublicKey{}, decimal.Decimal{}, errors.New("--amount is required")
	}
	amount, err := token.ParseAmount(*f.amount)
	return mint, amount, err
}

func cmdMintTo(ctx context.Context, cfg *config.Config, args []string) error {
	f := newSupplyFlags("mint-to")
	to := f.fs.String("to", "", "Recipient owner address (default: payer)")
	f.fs.Parse(args)

	mint, amount, err := f.parse()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{signer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	auth, err := a.authority(*f.authPath)
	if err != nil {
		return err
	}
	owner, err := a.ownerOrPayer(*to)
	if err != nil {
		return err
	}
	dest, err := a.tokens.ResolveOrCreate(ctx, a.payer, mint, owner)
	if err != nil {
		return err
	}
	receipt, err := a.tokens.MintTo(ctx, a.payer, token.MintToParams{
		Mint:        mint,
		Destination: dest.Account.Address,
		Authority:   auth,
		Amount:      amount,
	})
	if err != nil {
		return err
	}
	printReceipt(receipt)
	return a.printBalance(ctx, mint, dest.Account.Address)
}

func cmdTransfer(ctx context.Context, cfg *config.Config, args []string) error {
	f := newSupplyFlags("transfer")
	to := f.fs.String("to", "", "Recipient owner address (required)")
	f.fs.Parse(args)

	mint, amount, err := f.parse()
	if err != nil {
		return err
	}
	recipient, err := requireAddress("to", *to)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{signer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.authority(*f.authPath)
	if err != nil {
		return err
	}
	source, err := address.AssociatedTokenAccount(owner.PublicKey, mint)
	if err != nil {
		return err
	}
	dest, err := a.tokens.ResolveOrCreate(ctx, a.payer, mint, recipient)
	if err != nil {
		return err
	}
	receipt, err := a.tokens.Transfer(ctx, a.payer, token.TransferParams{
		Mint:        mint,
		Source:      source,
		Destination: dest.Account.Address,
		Owner:       owner,
		Amount:      amount,
	})
	if err != nil {
		return err
	}
	printReceipt(receipt)
	return a.printBalance(ctx, mint, source)
}

func cmdBurn(ctx context.Context, cfg *config.Config, args []string) error {
	f := newSupplyFlags("burn")
	f.fs.Parse(args)

	mint, amount, err := f.parse()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{signer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.authority(*f.authPath)
	if err != nil {
		return err
	}
	account, err := address.AssociatedTokenAccount(owner.PublicKey, mint)
	if err != nil {
		return err
	}
	receipt, err := a.tokens.Burn(ctx, a.payer, token.BurnParams{
		Account: account,
		Mint:    mint,
		Owner:   owner,
		Amount:  amount,
	})
	if err != nil {
		return err
	}
	printReceipt(receipt)
	return a.printBalance(ctx, mint, account)
}

func cmdBalance(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	mintStr := fs.String("mint", "", "Mint address (required)")
	ownerStr := fs.String("owner", "", "Owner address (default: signer)")
	fs.Parse(args)

	mint, err := requireAddress("mint", *mintStr)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{signer: *ownerStr == ""})
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.ownerOrPayer(*ownerStr)
	if err != nil {
		return err
	}
	account, err := address.AssociatedTokenAccount(owner, mint)
	if err != nil {
		return err
	}
	return a.printBalance(ctx, mint, account)
}

type metadataFlags struct {
	fs          *flag.FlagSet
	mint        *string
	name        *string
	symbol      *string
	uri         *string
	image       *string
	description *string
	authPath    *string
}

func newMetadataFlags(name string) metadataFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return metadataFlags{
		fs:          fs,
		mint:        fs.String("mint", "", "Mint address (required)"),
		name:        fs.String("name", "", "Token name (required on create; current name kept when omitted on update)"),
		symbol:      fs.String("symbol", "", "Token symbol (required on create; current symbol kept when omitted on update)"),
		uri:         fs.String("uri", "", "Off-chain document URI (skips the upload)"),
		image:       fs.String("image", "", "Image file to upload with a generated document"),
		description: fs.String("description", "", "Description for the generated document"),
		authPath:    fs.String("authority", "", "Authority keypair file (default: payer)"),
	}
}

func (f metadataFlags) parse() (common.PublicKey, error) {
	mint, err := requireAddress("mint", *f.mint)
	if err != nil {
		return common.PublicKey{}, err
	}
	if (*f.uri == "") == (*f.image == "") {
		return common.PublicKey{}, errors.New("exactly one of --uri or --image is required")
	}
	return mint, nil
}

func (f metadataFlags) publish(ctx context.Context, cfg *config.Config, mode metadata.PublishMode) error {
	mint, err := f.parse()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{signer: true, store: *f.image != ""})
	if err != nil {
		return err
	}
	defer a.Close()

	auth, err := a.authority(*f.authPath)
	if err != nil {
		return err
	}
	data := metadata.Data{Name: entities.Name(*f.name), Symbol: entities.Symbol(*f.symbol), URI: entities.URI(*f.uri)}

	var res metadata.Result
	switch {
	case *f.image != "":
		asset, err := readAsset(*f.image)
		if err != nil {
			return err
		}
		pub, err := a.meta.Publish(ctx, a.payer, metadata.PublishParams{
			Mint:        mint,
			Authority:   auth,
			Name:        data.Name,
			Symbol:      data.Symbol,
			Description: entities.Description(*f.description),
			Asset:       asset,
		}, mode)
		if err != nil {
			return err
		}
		fmt.Printf("Image:     %s\n", pub.Upload.ImageURI)
		fmt.Printf("Document:  %s\n", pub.Upload.MetadataURI)
		res = pub.Result
	case mode == metadata.PublishCreate:
		res, err = a.meta.Create(ctx, a.payer, metadata.CreateParams{Mint: mint, MintAuthority: auth, Data: data})
	default:
		res, err = a.meta.Update(ctx, a.payer, metadata.UpdateParams{Mint: mint, UpdateAuthority: auth, Data: data})
	}
	if err != nil {
		return err
	}
	fmt.Printf("Metadata:  %s\n", res.Metadata.ToBase58())
	printReceipt(res.Receipt)
	return nil
}

func cmdMetadataCreate(ctx context.Context, cfg *config.Config, args []string) error {
	f := newMetadataFlags("metadata-create")
	f.fs.Parse(args)
	return f.publish(ctx, cfg, metadata.PublishCreate)
}

func cmdMetadataUpdate(ctx context.Context, cfg *config.Config, args []string) error {
	f := newMetadataFlags("metadata-update")
	f.fs.Parse(args)
	return f.publish(ctx, cfg, metadata.PublishUpdate)
}

func cmdMetadataShow(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("metadata-show", flag.ExitOnError)
	mintStr := fs.String("mint", "", "Mint address (required)")
	fs.Parse(args)

	mint, err := requireAddress("mint", *mintStr)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.meta.Get(ctx, mint)
	if err != nil {
		return err
	}
	fmt.Printf("Metadata:         %s\n", rec.Address.ToBase58())
	fmt.Printf("Mint:             %s\n", rec.Mint.ToBase58())
	fmt.Printf("Update authority: %s\n", rec.UpdateAuthority.ToBase58())
	fmt.Printf("Name:             %s\n", rec.Name)
	fmt.Printf("Symbol:           %s\n", rec.Symbol)
	fmt.Printf("URI:              %s\n", rec.URI)
	fmt.Printf("Seller fee (bps): %d\n", rec.SellerFeeBasisPoints)
	fmt.Printf("Mutable:          %v\n", rec.IsMutable)
	fmt.Printf("Primary sale:     %v\n", rec.PrimarySaleHappened)
	return nil
}

func cmdStatus(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	activity := fs.Bool("activity", false, "Also list the token instructions of a confirmed signature")
	fs.Parse(args)

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if fs.NArg() > 0 {
		sig := entities.Signature(fs.Arg(0))
		receipt, err := a.sub.Reconcile(ctx, sig)
		if err != nil {
			return err
		}
		printReceipt(receipt)
		if *activity && receipt.Outcome == entities.OutcomeConfirmed {
			return a.printActivity(ctx, sig)
		}
		return nil
	}

	if a.journal == nil {
		return errors.New("no signature given and JOURNAL_PATH is not set")
	}
	pending, err := a.journal.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No unknown outcomes in the journal.")
		return nil
	}
	for _, entry := range pending {
		receipt, err := a.sub.Reconcile(ctx, entry.Signature)
		if err != nil {
			return err
		}
		fmt.Printf("%-16s %s  %s\n", entry.Operation, entry.Signature, receipt.Outcome)
	}
	return nil
}

func cmdEvents(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	group := fs.String("group", "tokenctl", "Consumer group ID")
	fs.Parse(args)

	consumer, err := repository.NewConsumer(repository.KafkaParams{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: *group,
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	return consumer.Consume(ctx, func(_ context.Context, event entities.LifecycleEvent) error {
		line, err := json.Marshal(event)
		if err != nil {
			return err
		}
		fmt.Println(string(line))
		return nil
	})
}

func (a *app) authority(path string) (types.Account, error) {
	if path == "" {
		return a.payer, nil
	}
	return sdk.AccountFromKeygenFile(path)
}

func (a *app) ownerOrPayer(s string) (common.PublicKey, error) {
	if s == "" {
		return a.payer.PublicKey, nil
	}
	return address.Parse(s)
}

func (a *app) printBalance(ctx context.Context, mint, account common.PublicKey) error {
	m, err := a.tokens.GetMint(ctx, mint)
	if err != nil {
		return err
	}
	acc, err := a.tokens.GetAccount(ctx, account)
	if err != nil {
		return err
	}
	fmt.Printf("Balance:   %s (%d base units) in %s\n",
		token.FromBaseUnits(acc.Amount, m.Decimals).String(), acc.Amount, account.ToBase58())
	return nil
}

func (a *app) printActivity(ctx context.Context, sig entities.Signature) error {
	if a.rpc == nil {
		return errors.New("--activity needs an RPC network")
	}
	acts, err := a.rpc.TokenActivity(ctx, string(sig))
	if err != nil {
		return err
	}
	for _, act := range acts {
		fmt.Printf("  %-14s %d  %s -> %s (authority %s)\n", act.Type, act.Amount, act.Source, act.Destination, act.Authority)
	}
	return nil
}

func printReceipt(r entities.Receipt) {
	fmt.Printf("Signature: %s\n", r.Signature)
	fmt.Printf("Outcome:   %s (slot %d)\n", r.Outcome, r.Slot)
}

func requireAddress(name, value string) (common.PublicKey, error) {
	if value == "" {
		return common.PublicKey{}, fmt.Errorf("--%s is required", name)
	}
	return address.Parse(value)
}

func readAsset(path string) (metadata.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata.Asset{}, fmt.Errorf("read asset: %w", err)
	}
	return metadata.Asset{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

func isUnknown(err error) bool {
	return errors.Is(err, submitter.ErrOutcomeUnknown)
}
