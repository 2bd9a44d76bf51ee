package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/model"
	"github.com/atmx/stockquest/internal/report"
	"github.com/atmx/stockquest/internal/session"
)

type simulateCmd struct {
	ticks   int
	seed    uint64
	capital string
	orders  string
	history int
	width   int
	plain   bool
}

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "run a session offline and print the resulting report" }
func (*simulateCmd) Usage() string {
	return `simulate [-ticks <n>] [-seed <n>] [-capital <amount>] [-orders <list>] [-plain]

  Places the given orders, advances prices <n> ticks, and prints the session
  report. Orders are a comma separated list of side:SYMBOL:quantity, e.g.
  "buy:AAPL:10,buy:KO:20,sell:AAPL:5". Orders run in order before any tick.
`
}

func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.ticks, "ticks", 20, "Number of price ticks to simulate")
	f.Uint64Var(&c.seed, "seed", 1, "Price noise seed")
	f.StringVar(&c.capital, "capital", "10000", "Initial capital")
	f.StringVar(&c.orders, "orders", "", "Orders to place before ticking")
	f.IntVar(&c.history, "history", 10, "Recent transactions to list")
	f.IntVar(&c.width, "width", 100, "Word wrap width")
	f.BoolVar(&c.plain, "plain", false, "Print raw markdown instead of styled output")
}

func (c *simulateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	capital, err := decimal.NewFromString(c.capital)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -capital %q: %v\n", c.capital, err)
		return subcommands.ExitUsageError
	}
	orders, err := parseOrders(c.orders)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	sess, err := session.New(session.Config{InitialCapital: capital, Seed: c.seed})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	for _, o := range orders {
		var out session.Outcome
		if o.side == model.SideBuy {
			out = sess.Buy(ctx, o.symbol, o.quantity)
		} else {
			out = sess.Sell(ctx, o.symbol, o.quantity)
		}
		fmt.Fprintln(os.Stderr, out.Message)
	}
	for i := 0; i < c.ticks; i++ {
		sess.Tick()
	}

	md := report.Markdown(sess.Snapshot(), report.Options{Transactions: c.history})
	if c.plain {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	out, err := report.Render(md, c.width)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering report: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}

type order struct {
	side     model.Side
	symbol   string
	quantity int64
}

var errOrderSyntax = errors.New("order must be side:SYMBOL:quantity")

func parseOrders(s string) ([]order, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var orders []order
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: %q", errOrderSyntax, part)
		}
		side := model.Side(strings.ToLower(fields[0]))
		if !side.Valid() {
			return nil, fmt.Errorf("%w: unknown side %q", errOrderSyntax, fields[0])
		}
		qty, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: quantity %q", errOrderSyntax, fields[2])
		}
		orders = append(orders, order{side: side, symbol: strings.ToUpper(fields[1]), quantity: qty})
	}
	return orders, nil
}
