package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"cointrack/internal/config"
	"cointrack/pkg/journal"
)

type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show recent sync journal records" }
func (*historyCmd) Usage() string {
	return "cointrack history [-n <records>]\n\n  Reads the sync journal directory configured as Sync.JournalDir.\n"
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 10, "Number of records, newest first.")
}

func (c *historyCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return fail("%v", err)
	}
	if cfg.Sync.JournalDir == "" {
		return fail("Sync.JournalDir is not configured")
	}
	records, err := journal.ReadRecent(cfg.Path(cfg.Sync.JournalDir), c.limit)
	if err != nil {
		return fail("%v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Time\tProvider\tSort\tForced\tPages\tAssets\tDuration\tResult")
	for _, r := range records {
		result := "ok"
		switch {
		case !r.Success:
			result = "failed: " + r.ErrorMsg
		case len(r.Degraded) > 0:
			result = fmt.Sprintf("degraded %v", r.Degraded)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%d\t%s\t%s\n",
			r.Timestamp.Local().Format(time.DateTime), r.Provider, r.Sort, r.Forced,
			r.Pages, r.Assets, r.Duration.Round(time.Millisecond), result)
	}
	w.Flush()
	return subcommands.ExitSuccess
}
