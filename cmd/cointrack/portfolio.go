package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"cointrack/internal/cli"
	"cointrack/pkg/market"
	"cointrack/pkg/portfolio"
)

type portfolioCmd struct {
	sortKey   string
	dir       string
	purchases bool
	verbose   bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "value the ledger at current market prices" }
func (*portfolioCmd) Usage() string {
	return `cointrack portfolio [-sort value|pnl|pnl_pct|amount|average_price|name] [-dir asc|desc] [-purchases]

  Syncs prices, then prints one row per held asset and the portfolio totals
  with 24h, 7d and total gains.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sortKey, "sort", "value", "Position sort key.")
	f.StringVar(&c.dir, "dir", "desc", "Sort direction.")
	f.BoolVar(&c.purchases, "purchases", false, "Also list every purchase.")
	f.BoolVar(&c.verbose, "v", false, "Print library logs.")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	key, err := portfolio.ParsePositionSortKey(c.sortKey)
	if err != nil {
		return fail("%v", err)
	}
	dir, err := market.ParseDirection(c.dir)
	if err != nil {
		return fail("%v", err)
	}
	s, err := openService(c.verbose)
	if err != nil {
		return fail("%v", err)
	}
	defer closeService(s)

	if err := syncOnce(ctx, s); err != nil {
		fmt.Fprintf(os.Stderr, "warning: prices unavailable, using purchase prices: %v\n", err)
	}
	currency := s.Config.Sync.Currency
	positions := s.Engine.Positions(portfolio.PositionSort{Key: key, Direction: dir})
	if len(positions) == 0 {
		fmt.Println("No holdings.")
		return subcommands.ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Asset\tAmount\tAvg price\tPrice\tValue\tP&L\tP&L %\t")
	for _, p := range positions {
		price := cli.FormatMoney(p.CurrentPrice, currency)
		if !p.Priced {
			price += "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			strings.ToUpper(p.Symbol), p.TotalAmount.String(),
			cli.FormatMoney(p.AveragePrice, currency), price,
			cli.FormatMoney(p.CurrentValue, currency),
			cli.FormatMoney(p.PnL, currency), cli.FormatPercent(p.PnLPct))
	}
	w.Flush()

	snap := portfolio.Summarize(positions)
	fmt.Printf("\nValue %s  Cost %s  P&L %s (%s)\n",
		cli.FormatMoney(snap.TotalValue, currency), cli.FormatMoney(snap.TotalCost, currency),
		cli.FormatMoney(snap.TotalPnL, currency), cli.FormatPercent(snap.TotalPnLPct))
	for _, tf := range portfolio.Timeframes {
		g := snap.Gains[tf]
		fmt.Printf("  %-5s %s (%s)\n", tf, cli.FormatMoney(g.Amount, currency), cli.FormatPercent(g.Percent))
	}

	if c.purchases {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDate\tAsset\tAmount\tPrice\tCost\tNotes")
		for _, p := range s.Engine.Purchases(portfolio.PurchaseByDate, market.Desc) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				p.ID, p.Date.Format(time.DateOnly), strings.ToUpper(p.Symbol), p.Amount.String(),
				cli.FormatMoney(p.Price, currency), cli.FormatMoney(p.Cost(), currency), p.Notes)
		}
		w.Flush()
	}
	return subcommands.ExitSuccess
}

type addCmd struct {
	asset   string
	name    string
	symbol  string
	amount  string
	price   string
	date    string
	notes   string
	verbose bool
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a purchase" }
func (*addCmd) Usage() string {
	return `cointrack add -asset <id> -amount <qty> -price <unit price> [-date YYYY-MM-DD] [-notes <text>]

  Records a purchase in the ledger. Name and symbol are taken from the market
  listing unless given.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.asset, "asset", "", "Asset id, e.g. bitcoin.")
	f.StringVar(&c.name, "name", "", "Display name (default from the listing).")
	f.StringVar(&c.symbol, "symbol", "", "Ticker symbol (default from the listing).")
	f.StringVar(&c.amount, "amount", "", "Quantity bought.")
	f.StringVar(&c.price, "price", "", "Unit price paid.")
	f.StringVar(&c.date, "date", "", "Purchase date (default today).")
	f.StringVar(&c.notes, "notes", "", "Free-form notes.")
	f.BoolVar(&c.verbose, "v", false, "Print library logs.")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return fail("invalid -amount %q", c.amount)
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		return fail("invalid -price %q", c.price)
	}
	p := portfolio.Purchase{
		AssetID: strings.TrimSpace(c.asset),
		Name:    c.name,
		Symbol:  c.symbol,
		Amount:  amount,
		Price:   price,
		Notes:   c.notes,
	}
	if c.date != "" {
		if p.Date, err = time.Parse(time.DateOnly, c.date); err != nil {
			return fail("invalid -date %q", c.date)
		}
	}

	s, err := openService(c.verbose)
	if err != nil {
		return fail("%v", err)
	}
	defer closeService(s)
	if p.Name == "" {
		if err := syncOnce(ctx, s); err != nil {
			return fail("listing unavailable, pass -name and -symbol: %v", err)
		}
	}
	added, err := s.Engine.AddPurchase(ctx, p)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Printf("Added %s %s at %s (id %s)\n", added.Amount, strings.ToUpper(added.Symbol),
		cli.FormatMoney(added.Price, s.Config.Sync.Currency), added.ID)
	return subcommands.ExitSuccess
}

type removeCmd struct{}

func (*removeCmd) Name() string             { return "remove" }
func (*removeCmd) Synopsis() string         { return "delete a purchase" }
func (*removeCmd) Usage() string            { return "cointrack remove <purchase id>...\n" }
func (*removeCmd) SetFlags(_ *flag.FlagSet) {}

func (*removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return subcommands.ExitUsageError
	}
	s, err := openService(false)
	if err != nil {
		return fail("%v", err)
	}
	defer closeService(s)
	status := subcommands.ExitSuccess
	for _, id := range f.Args() {
		if err := s.Engine.RemovePurchase(ctx, id); err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("Removed %s\n", id)
	}
	return status
}
