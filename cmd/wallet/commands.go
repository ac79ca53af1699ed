package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/wallet/internal/amountinput"
	"github.com/mtlprog/wallet/internal/config"
	"github.com/mtlprog/wallet/internal/conversion"
	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/export"
	"github.com/mtlprog/wallet/internal/functions"
	"github.com/mtlprog/wallet/internal/i18n"
	"github.com/mtlprog/wallet/internal/phone"
	"github.com/mtlprog/wallet/internal/price"
)

var priceFlag = &cli.StringFlag{
	Name:  "price",
	Usage: "USD per BTC; fetched from CoinGecko when empty",
}

// resolveQuote uses --price when given, otherwise asks the upstream feed.
func resolveQuote(c *cli.Context, cfg config.Config) (price.Quote, error) {
	if s := c.String("price"); s != "" {
		p, err := domain.ParsePrice(s)
		if err != nil {
			return price.Quote{}, err
		}
		return price.Quote{Price: p, Source: "manual", FetchedAt: time.Now()}, nil
	}
	client := price.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax)
	return client.FetchPrice(c.Context)
}

func convertCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "parse an amount typed in one unit and print it in every unit",
		ArgsUsage: "<amount>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "currency", Aliases: []string{"c"}, Value: string(domain.CurrencyUSD), Usage: "unit of the typed amount: USD, BTC or sats"},
			priceFlag,
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("convert takes exactly one amount")
			}
			currency, err := domain.ParseDisplayCurrency(c.String("currency"))
			if err != nil {
				return err
			}
			q, err := resolveQuote(c, cfg)
			if err != nil {
				return err
			}
			amount, err := typeAmount(c.Context, q.Price, currency, c.Args().First())
			if err != nil {
				return err
			}
			printAmounts(c.App.Writer, q.Price, amount)
			return nil
		},
	}
}

// typeAmount feeds text through an amount input the way a keyboard would.
func typeAmount(ctx context.Context, p domain.Price, currency domain.DisplayCurrency, text string) (domain.Sats, error) {
	var committed *domain.Sats
	in, err := amountinput.New(ctx, amountinput.Options{
		Price:    p,
		Editable: true,
		Currency: currency,
		OnUpdateAmount: func(s domain.Sats) {
			committed = &s
		},
	})
	if err != nil {
		return 0, err
	}
	defer in.Close()

	in.HandleChange(text)
	if committed == nil {
		return 0, fmt.Errorf("%q is not a complete %s amount", text, currency)
	}
	return *committed, nil
}

func printAmounts(w io.Writer, p domain.Price, amount domain.Sats) {
	table := conversion.NewTable(p)
	for _, c := range domain.DisplayCurrencies {
		fmt.Fprintf(w, "%-4s %s\n", c, table.For(c).Format(amount))
	}
}

func translateCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:      "translate",
		Usage:     "look up a translation key",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Usage: "print every valid key"},
			&cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Value: cfg.DefaultLocale},
			&cli.StringSliceFlag{Name: "set", Usage: "interpolation value as name=value (repeatable)"},
			&cli.BoolFlag{Name: "content", Usage: "print structured quiz content as JSON"},
		},
		Action: func(c *cli.Context) error {
			registry, err := i18n.Load()
			if err != nil {
				return fmt.Errorf("loading translations: %w", err)
			}
			if c.Bool("list") {
				for _, k := range registry.Keys() {
					fmt.Fprintln(c.App.Writer, k)
				}
				return nil
			}
			if c.NArg() != 1 {
				return fmt.Errorf("translate takes exactly one key")
			}
			locale := i18n.Locale(c.String("locale"))
			opts, err := parseOptions(c.StringSlice("set"))
			if err != nil {
				return err
			}

			if c.Bool("content") {
				content, ok := registry.QuizSections(locale, c.Args().First(), opts)
				if !ok {
					return fmt.Errorf("no content at %q", c.Args().First())
				}
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(content)
			}

			key, err := registry.Key(c.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, registry.Translate(locale, key, opts))
			return nil
		},
	}
}

// parseOptions turns name=value pairs into interpolation options. A numeric count is
// passed as an int so it selects a plural form.
func parseOptions(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid option %q, want name=value", pair)
		}
		if name == "count" {
			if n, err := strconv.Atoi(value); err == nil {
				opts[name] = n
				continue
			}
		}
		opts[name] = value
	}
	return opts, nil
}

func phoneCommand(cfg config.Config) *cli.Command {
	flags := func(extra ...cli.Flag) []cli.Flag {
		return append([]cli.Flag{
			&cli.StringFlag{Name: "phone", Required: true, Usage: "E.164 phone number"},
			&cli.StringFlag{Name: "locale", Aliases: []string{"l"}, Value: cfg.DefaultLocale},
			&cli.StringFlag{Name: "token", EnvVars: []string{"FUNCTIONS_TOKEN"}, Usage: "bearer token for the functions backend"},
		}, extra...)
	}
	setup := func(c *cli.Context) (*functions.Client, i18n.Translator, error) {
		registry, err := i18n.Load()
		if err != nil {
			return nil, i18n.Translator{}, fmt.Errorf("loading translations: %w", err)
		}
		client := functions.NewClient(cfg.FunctionsURL, cfg.FunctionsRetryMax, cfg.FunctionsRetryDelay)
		if token := c.String("token"); token != "" {
			client = client.WithAuthToken(token)
		}
		return client, registry.Translator(i18n.Locale(c.String("locale"))), nil
	}

	return &cli.Command{
		Name:  "phone",
		Usage: "run the phone verification flow against the functions backend",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "request a verification code",
				Flags: flags(),
				Action: func(c *cli.Context) error {
					client, tr, err := setup(c)
					if err != nil {
						return err
					}
					screen := phone.NewInitScreen(client, tr, func(_ context.Context, p phone.VerifyParams) error {
						next, err := phone.NewVerifyScreen(client, tr, p, nil)
						if err != nil {
							return err
						}
						fmt.Fprintln(c.App.Writer, next.Copy().Text)
						return nil
					})
					screen.SetPhone(c.String("phone"))
					if err := screen.Submit(c.Context); err != nil {
						return fmt.Errorf("%s: %w", tr.T(i18n.KeyPhoneInitInvalid, nil), err)
					}
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "confirm a verification code",
				Flags: flags(&cli.StringFlag{Name: "code", Required: true}),
				Action: func(c *cli.Context) error {
					client, tr, err := setup(c)
					if err != nil {
						return err
					}
					screen, err := phone.NewVerifyScreen(client, tr, phone.VerifyParams{Phone: c.String("phone")},
						func(_ context.Context, v phone.Verified) error {
							fmt.Fprintf(c.App.Writer, "verified %s\n", v.Phone)
							return nil
						})
					if err != nil {
						return err
					}
					screen.SetCode(c.String("code"))
					if err := screen.Submit(c.Context); err != nil {
						return fmt.Errorf("%s: %w", tr.T(i18n.KeyPhoneVerifInvalid, nil), err)
					}
					return nil
				},
			},
		},
	}
}

func exportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the sats/BTC/USD rate card to an xlsx file or Google Sheets",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "ratecard.xlsx"},
			&cli.BoolFlag{Name: "sheets", Usage: "write to GOOGLE_SHEET_ID instead of a file"},
			priceFlag,
		},
		Action: func(c *cli.Context) error {
			var writer export.SheetWriter = export.NewXLSXWriter(c.String("out"))
			if c.Bool("sheets") {
				if cfg.GoogleSheetID == "" {
					return fmt.Errorf("GOOGLE_SHEET_ID is required with --sheets")
				}
				sw, err := export.NewSheetsWriter(c.Context, cfg.GoogleSheetID, cfg.GoogleCredentialsJSON)
				if err != nil {
					return err
				}
				writer = sw
			}

			q, err := resolveQuote(c, cfg)
			if err != nil {
				return err
			}
			if err := export.NewService(writer, cfg.RateCardAmounts).Export(c.Context, q); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "rate card written at %s USD/BTC\n", q.Price)
			return nil
		},
	}
}
