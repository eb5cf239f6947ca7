package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"
	"github.com/whiteelite/tokenforge/config"
	"github.com/whiteelite/tokenforge/internal/application/metadata"
	"github.com/whiteelite/tokenforge/internal/application/token"
	"github.com/whiteelite/tokenforge/internal/domain/entities"
)

// demoStep is one stage of the lifecycle run. Any error aborts the rest.
type demoStep struct {
	name string
	run  func(ctx context.Context) error
}

func cmdDemo(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	decimals := fs.Uint("decimals", 2, "Mint decimals")
	name := fs.String("name", "Forge Demo", "Metadata name")
	symbol := fs.String("symbol", "FRG", "Metadata symbol")
	uri := fs.String("uri", "https://example.com/forge-demo.json", "Initial metadata URI")
	updateURI := fs.String("update-uri", "https://example.com/forge-demo-v2.json", "URI written by the update step")
	skipMetadata := fs.Bool("skip-metadata", false, "Stop after the supply steps")
	fs.Parse(args)

	if *decimals > 255 {
		return fmt.Errorf("decimals must be at most 255, got %d", *decimals)
	}

	a, err := newApp(ctx, cfg, appOptions{signer: true})
	if err != nil {
		return err
	}
	defer a.Close()

	recipient := types.NewAccount()
	var (
		mint            common.PublicKey
		ownerAccount    common.PublicKey
		recipientAcct   common.PublicKey
		supplyAfterMint entities.BaseUnits
	)
	d := entities.Decimals(*decimals)
	units := func(whole int64) entities.BaseUnits {
		u, _ := token.ToBaseUnits(decimal.NewFromInt(whole), d)
		return u
	}

	steps := []demoStep{
		{"create mint", func(ctx context.Context) error {
			res, err := a.tokens.CreateMint(ctx, a.payer, token.CreateMintParams{MintAuthority: a.payer.PublicKey, Decimals: d})
			if err != nil {
				return err
			}
			mint = res.Mint
			fmt.Printf("  mint %s\n", mint.ToBase58())
			return nil
		}},
		{"create owner account", func(ctx context.Context) error {
			res, err := a.tokens.ResolveOrCreate(ctx, a.payer, mint, a.payer.PublicKey)
			if err != nil {
				return err
			}
			ownerAccount = res.Account.Address
			fmt.Printf("  account %s\n", ownerAccount.ToBase58())
			return nil
		}},
		{"mint 100", func(ctx context.Context) error {
			_, err := a.tokens.MintTo(ctx, a.payer, token.MintToParams{
				Mint: mint, Destination: ownerAccount, Authority: a.payer, Amount: decimal.NewFromInt(100),
			})
			if err != nil {
				return err
			}
			m, err := a.tokens.GetMint(ctx, mint)
			if err != nil {
				return err
			}
			supplyAfterMint = m.Supply
			return a.expectBalance(ctx, ownerAccount, units(100))
		}},
		{"transfer 50", func(ctx context.Context) error {
			res, err := a.tokens.ResolveOrCreate(ctx, a.payer, mint, recipient.PublicKey)
			if err != nil {
				return err
			}
			recipientAcct = res.Account.Address
			_, err = a.tokens.Transfer(ctx, a.payer, token.TransferParams{
				Mint: mint, Source: ownerAccount, Destination: recipientAcct, Owner: a.payer, Amount: decimal.NewFromInt(50),
			})
			if err != nil {
				return err
			}
			if err := a.expectBalance(ctx, ownerAccount, units(50)); err != nil {
				return err
			}
			return a.expectBalance(ctx, recipientAcct, units(50))
		}},
		{"burn 25", func(ctx context.Context) error {
			_, err := a.tokens.Burn(ctx, a.payer, token.BurnParams{
				Account: ownerAccount, Mint: mint, Owner: a.payer, Amount: decimal.NewFromInt(25),
			})
			if err != nil {
				return err
			}
			if err := a.expectBalance(ctx, ownerAccount, units(25)); err != nil {
				return err
			}
			m, err := a.tokens.GetMint(ctx, mint)
			if err != nil {
				return err
			}
			if want := supplyAfterMint - units(25); m.Supply != want {
				return fmt.Errorf("supply %d, want %d", m.Supply, want)
			}
			fmt.Printf("  supply %d\n", m.Supply)
			return nil
		}},
	}

	if !*skipMetadata {
		data := metadata.Data{Name: entities.Name(*name), Symbol: entities.Symbol(*symbol), URI: entities.URI(*uri)}
		steps = append(steps,
			demoStep{"create metadata", func(ctx context.Context) error {
				res, err := a.meta.Create(ctx, a.payer, metadata.CreateParams{Mint: mint, MintAuthority: a.payer, Data: data})
				if err != nil {
					return err
				}
				fmt.Printf("  metadata %s\n", res.Metadata.ToBase58())
				return nil
			}},
			demoStep{"update metadata", func(ctx context.Context) error {
				next := data
				next.URI = entities.URI(*updateURI)
				if _, err := a.meta.Update(ctx, a.payer, metadata.UpdateParams{Mint: mint, UpdateAuthority: a.payer, Data: next}); err != nil {
					return err
				}
				rec, err := a.meta.Get(ctx, mint)
				if err != nil {
					return err
				}
				if rec.URI != next.URI || !rec.PrimarySaleHappened {
					return fmt.Errorf("metadata read back uri=%q primary_sale=%v", rec.URI, rec.PrimarySaleHappened)
				}
				fmt.Printf("  uri %s\n", rec.URI)
				return nil
			}},
		)
	}

	for i, step := range steps {
		fmt.Printf("[%d/%d] %s\n", i+1, len(steps), step.name)
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	fmt.Println("Demo complete.")
	return nil
}

func (a *app) expectBalance(ctx context.Context, account common.PublicKey, want entities.BaseUnits) error {
	acc, err := a.tokens.GetAccount(ctx, account)
	if err != nil {
		return err
	}
	if acc.Amount != want {
		return fmt.Errorf("balance of %s is %d, want %d", account.ToBase58(), acc.Amount, want)
	}
	fmt.Printf("  balance %s = %d\n", account.ToBase58(), acc.Amount)
	return nil
}
