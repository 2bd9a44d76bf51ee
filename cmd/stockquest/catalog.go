package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/achievement"
	"github.com/atmx/stockquest/internal/report"
)

type catalogCmd struct {
	capital string
}

func (*catalogCmd) Name() string     { return "catalog" }
func (*catalogCmd) Synopsis() string { return "list the achievements a session can unlock" }
func (*catalogCmd) Usage() string {
	return `catalog [-capital <amount>]

  Prints the default achievement catalog. Value milestones scale with the
  initial capital.
`
}

func (c *catalogCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.capital, "capital", "10000", "Initial capital the milestones are relative to")
}

func (c *catalogCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	capital, err := decimal.NewFromString(c.capital)
	if err != nil || !capital.IsPositive() {
		fmt.Fprintf(os.Stderr, "Error: invalid -capital %q\n", c.capital)
		return subcommands.ExitUsageError
	}
	out, err := report.Render(report.Catalog(achievement.DefaultCatalog(capital)), 100)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering catalog: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}
