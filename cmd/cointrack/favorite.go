package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"cointrack/internal/cli"
)

type favoriteCmd struct {
	move    string
	verbose bool
}

func (*favoriteCmd) Name() string     { return "favorite" }
func (*favoriteCmd) Synopsis() string { return "list, toggle or reorder favorite assets" }
func (*favoriteCmd) Usage() string {
	return `cointrack favorite [<asset id>...] [-move from:to]

  Without arguments prints the favorites with their current prices. Each asset
  id given is toggled. -move relocates the favorite at position from to
  position to (0-based).
`
}

func (c *favoriteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.move, "move", "", "Move a favorite, e.g. 3:0.")
	f.BoolVar(&c.verbose, "v", false, "Print library logs.")
}

func (c *favoriteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openService(c.verbose)
	if err != nil {
		return fail("%v", err)
	}
	defer closeService(s)
	eng := s.Engine

	for _, id := range f.Args() {
		on, err := eng.ToggleFavorite(ctx, id)
		if err != nil {
			return fail("%v", err)
		}
		if on {
			fmt.Printf("Added %s\n", id)
		} else {
			fmt.Printf("Removed %s\n", id)
		}
	}
	if c.move != "" {
		var from, to int
		if _, err := fmt.Sscanf(c.move, "%d:%d", &from, &to); err != nil {
			return fail("invalid -move %q, want from:to", c.move)
		}
		eng.MoveFavorite(ctx, from, to)
	}
	if f.NArg() > 0 || c.move != "" {
		return subcommands.ExitSuccess
	}

	ids := eng.Favorites()
	if len(ids) == 0 {
		fmt.Println("No favorites.")
		return subcommands.ExitSuccess
	}
	if err := syncOnce(ctx, s); err != nil {
		fmt.Fprintf(os.Stderr, "warning: prices unavailable: %v\n", err)
	}
	listed := map[string]string{}
	for _, a := range eng.FavoriteAssets() {
		listed[a.ID] = fmt.Sprintf("%-6s %14s %8s", strings.ToUpper(a.Symbol),
			cli.FormatPrice(a.CurrentPrice, s.Config.Sync.Currency), cli.FormatChange(a.PriceChangePct24h))
	}
	for i, id := range ids {
		line, ok := listed[id]
		if !ok {
			line = "(not in listing)"
		}
		fmt.Printf("%2d. %-20s %s\n", i, id, line)
	}
	return subcommands.ExitSuccess
}
