// Package report renders a session snapshot as markdown for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/achievement"
	"github.com/atmx/stockquest/internal/model"
	"github.com/atmx/stockquest/internal/session"
)

// Options selects report sections.
type Options struct {
	Transactions int // most recent transactions to list; 0 hides the section
}

// Markdown renders the whole snapshot.
func Markdown(snap session.Snapshot, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# StockQuest session %s\n\n", snap.ID)
	fmt.Fprintf(&b, "Level **%d** · %d XP (%d/100 to next) · %d ticks\n\n",
		snap.Progression.Level, snap.Progression.Experience, snap.Progression.ProgressInLevel, snap.Ticks)

	writeMarket(&b, snap.Instruments)
	writePortfolio(&b, snap.Portfolio)
	if opts.Transactions > 0 {
		writeTransactions(&b, snap.Transactions, opts.Transactions)
	}
	writeAchievements(&b, snap.Achievements)
	return b.String()
}

func writeMarket(b *strings.Builder, instruments []model.Instrument) {
	fmt.Fprintf(b, "## Market\n\n")
	fmt.Fprintln(b, "| Symbol | Name | Sector | Price | Change |")
	fmt.Fprintln(b, "|:---|:---|:---|---:|---:|")
	for _, inst := range instruments {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s (%s%%) |\n",
			inst.Symbol,
			inst.Name,
			inst.Sector,
			model.FormatMoney(inst.Price),
			signedMoney(inst.Change),
			signed(inst.ChangePercent),
		)
	}
	fmt.Fprintln(b)
}

func writePortfolio(b *strings.Builder, p model.Portfolio) {
	fmt.Fprintf(b, "## Portfolio\n\n")
	fmt.Fprintf(b, "- Cash: %s\n", model.FormatMoney(p.Cash))
	fmt.Fprintf(b, "- Holdings: %s\n", model.FormatMoney(p.HoldingsValue))
	fmt.Fprintf(b, "- Total value: **%s**\n", model.FormatMoney(p.TotalValue))
	fmt.Fprintf(b, "- Gain/loss: %s\n\n", signedMoney(p.TotalGainLoss))

	if len(p.Positions) == 0 {
		fmt.Fprintf(b, "_No open positions._\n\n")
		return
	}
	fmt.Fprintln(b, "| Symbol | Shares | Avg cost | Price | Value | Unrealized |")
	fmt.Fprintln(b, "|:---|---:|---:|---:|---:|---:|")
	for _, pos := range p.Positions {
		fmt.Fprintf(b, "| %s | %d | %s | %s | %s | %s |\n",
			pos.Symbol,
			pos.Quantity,
			model.FormatMoney(pos.AveragePrice),
			model.FormatMoney(pos.Price),
			model.FormatMoney(pos.MarketValue),
			signedMoney(pos.UnrealizedPnL),
		)
	}
	fmt.Fprintln(b)
}

func writeTransactions(b *strings.Builder, txs []model.Transaction, limit int) {
	fmt.Fprintf(b, "## Recent transactions\n\n")
	if len(txs) == 0 {
		fmt.Fprintf(b, "_No trades yet._\n\n")
		return
	}
	if len(txs) > limit {
		txs = txs[:limit]
	}
	fmt.Fprintln(b, "| Time | Side | Symbol | Shares | Price | Total |")
	fmt.Fprintln(b, "|:---|:---|:---|---:|---:|---:|")
	for _, tx := range txs {
		fmt.Fprintf(b, "| %s | %s | %s | %d | %s | %s |\n",
			tx.Timestamp.Format("15:04:05"),
			tx.Side,
			tx.Symbol,
			tx.Quantity,
			model.FormatMoney(tx.Price),
			model.FormatMoney(tx.Total),
		)
	}
	fmt.Fprintln(b)
}

func writeAchievements(b *strings.Builder, achievements []model.Achievement) {
	unlocked := 0
	for _, a := range achievements {
		if a.Unlocked {
			unlocked++
		}
	}
	fmt.Fprintf(b, "## Achievements (%d/%d)\n\n", unlocked, len(achievements))
	for _, a := range achievements {
		mark := " "
		if a.Unlocked {
			mark = "x"
		}
		fmt.Fprintf(b, "- [%s] %s **%s**: %s%s\n", mark, a.Icon, a.Title, a.Description, progress(a))
	}
	fmt.Fprintln(b)
}

// Catalog renders achievement definitions without any session state.
func Catalog(defs []achievement.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Achievements\n\n")
	fmt.Fprintln(&b, "| | ID | Title | Description |")
	fmt.Fprintln(&b, "|:---:|:---|:---|:---|")
	for _, def := range defs {
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s |\n", def.Icon, def.ID, def.Title, def.Description)
	}
	return b.String()
}

func progress(a model.Achievement) string {
	if a.Unlocked || a.Progress == nil || a.Target == nil {
		return ""
	}
	return fmt.Sprintf(" (%d/%d)", *a.Progress, *a.Target)
}

func signedMoney(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + model.FormatMoney(d)
	}
	return model.FormatMoney(d)
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

// Render styles markdown for a terminal of the given width.
func Render(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
