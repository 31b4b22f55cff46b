package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/google/subcommands"

	"cointrack/internal/cli"
	"cointrack/pkg/engine"
)

// watchCmd runs the sync engine headless until interrupted, logging every
// completed sync and the top movers.
type watchCmd struct {
	top     int
	verbose bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "keep the listing in sync and log each refresh" }
func (*watchCmd) Usage() string {
	return "cointrack watch [-top <n>]\n\n  Runs the periodic refresh loop until SIGINT or SIGTERM.\n"
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.top, "top", 3, "Top gainers to log after each sync.")
	f.BoolVar(&c.verbose, "v", false, "Print library logs.")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	s, err := openService(c.verbose)
	if err != nil {
		return fail("%v", err)
	}
	log.Printf("[watch] configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(&s.Config) {
		log.Printf("  - %s", line)
	}

	eng := s.Engine
	changes, cancel := eng.Subscribe()
	defer cancel()
	eng.Start(ctx)
	log.Printf("[watch] started provider=%s", s.ProviderName)

	currency := s.Config.Sync.Currency
	var last engine.Status
	for {
		select {
		case <-ctx.Done():
			log.Printf("[watch] shutting down")
			if err := s.Close(); err != nil {
				log.Printf("[watch] shutdown: %v", err)
				return subcommands.ExitFailure
			}
			return subcommands.ExitSuccess
		case change, ok := <-changes:
			if !ok {
				return subcommands.ExitSuccess
			}
			if change != engine.ChangeStatus {
				continue
			}
			st := eng.Status()
			if st.LastError != "" && st.LastError != last.LastError {
				log.Printf("[watch] sync failed: %s", st.LastError)
			}
			if !st.LastUpdate.IsZero() && !st.LastUpdate.Equal(last.LastUpdate) {
				stats := eng.MarketStats()
				log.Printf("[watch] synced assets=%d degraded=%v marketCap=%s 24h=%s",
					st.Assets, st.DegradedPages,
					cli.FormatCompact(stats.TotalMarketCap, currency), cli.FormatChange(stats.Change24hPct))
				var movers []string
				for _, a := range eng.TopGainers(c.top) {
					movers = append(movers, strings.ToUpper(a.Symbol)+" "+cli.FormatChange(a.PriceChangePct24h))
				}
				if len(movers) > 0 {
					log.Printf("[watch] top gainers: %s", strings.Join(movers, ", "))
				}
			}
			last = st
		}
	}
}
