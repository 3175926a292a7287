package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/app"
	"github.com/newdim001/biz-pro/internal/ledger"
)

type migrateCmd struct{ env *Env }

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create missing tables" }
func (*migrateCmd) Usage() string {
	return `bizctl migrate

  Connects to the configured store and applies the schema. Safe to run repeatedly.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.run(ctx, func(*app.Container) error {
		c.env.printf("schema ready (%s)\n", c.env.Config.StoreDriver)
		return nil
	})
}

type seedCmd struct{ env *Env }

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "create the configured units, partners and default price" }
func (*seedCmd) Usage() string {
	return `bizctl seed

  Creates the units listed in LEDGER_UNITS that do not exist yet, their default
  partners, and the default market price when none is recorded.
`
}
func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (c *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.run(ctx, func(ct *app.Container) error {
		res, err := ct.Ledger.Seed(ctx, c.env.Config.SeedInput())
		if err != nil {
			return err
		}
		if len(res.Units) == 0 && len(res.Partners) == 0 && res.Price == nil {
			c.env.printf("nothing to seed\n")
			return nil
		}
		for _, u := range res.Units {
			c.env.printf("unit %s\n", u)
		}
		for _, p := range res.Partners {
			c.env.printf("partner %s/%s %s%%\n", p.Unit, p.Name, p.SharePct.String())
		}
		if res.Price != nil {
			c.env.printf("price %s/kg\n", c.env.money(res.Price.Price))
		}
		return nil
	})
}

type resetCmd struct {
	env     *Env
	confirm string
}

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "erase all ledger data and restore opening balances" }
func (*resetCmd) Usage() string {
	return `bizctl reset -confirm "RESET MY DATA"

  Deletes every transaction, expense, investment, partner and price. Units,
  users and the audit trail are kept.
`
}

func (c *resetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.confirm, "confirm", "", "Confirmation phrase.")
}

func (c *resetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.confirm == "" {
		c.env.errorf("-confirm is required")
		return subcommands.ExitUsageError
	}
	return c.env.run(ctx, func(ct *app.Container) error {
		res, err := ct.Ledger.Reset(ctx, c.confirm)
		if err != nil {
			return err
		}
		c.env.printf("reset %d units to %s\n", len(res.Units), c.env.money(res.OpeningBalance))
		return nil
	})
}

type summaryCmd struct {
	env    *Env
	unit   string
	asJSON bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print cash, stock and profit per unit" }
func (*summaryCmd) Usage() string {
	return `bizctl summary [-unit <name>] [-json]
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.unit, "unit", "", "Restrict to one unit.")
	f.BoolVar(&c.asJSON, "json", false, "Print JSON.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.run(ctx, func(ct *app.Container) error {
		var (
			out   any
			units []ledger.UnitSummary
		)
		if c.unit != "" {
			s, err := ct.Ledger.UnitSummary(ctx, c.unit)
			if err != nil {
				return err
			}
			out, units = s, []ledger.UnitSummary{s}
		} else {
			s, err := ct.Ledger.SystemSummary(ctx)
			if err != nil {
				return err
			}
			out, units = s, s.Units
		}
		if c.asJSON {
			enc := json.NewEncoder(c.env.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		tw := tabwriter.NewWriter(c.env.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "UNIT\tCASH\tSTOCK KG\tBOOK VALUE\tNET PROFIT\tDISTRIBUTABLE")
		for _, u := range units {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", u.Unit, c.env.money(u.Balance),
				u.Report.CurrentStock.StringFixed(3), c.env.money(u.Report.BookValue),
				c.env.money(u.Report.NetProfit), c.env.money(u.Distributable))
		}
		return tw.Flush()
	})
}

type reconcileCmd struct {
	env  *Env
	unit string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "compare stored totals with their trails" }
func (*reconcileCmd) Usage() string {
	return `bizctl reconcile [-unit <name>]

  Exits non-zero when any discrepancy is found.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.unit, "unit", "", "Restrict to one unit.")
}

var errDiscrepancies = errors.New("discrepancies found")

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.run(ctx, func(ct *app.Container) error {
		var results []ledger.Reconciliation
		if c.unit != "" {
			rec, err := ct.Ledger.Reconcile(ctx, c.unit)
			if err != nil {
				return err
			}
			results = append(results, rec)
		} else {
			var err error
			if results, err = ct.Ledger.ReconcileAll(ctx); err != nil {
				return err
			}
		}
		failed := false
		for _, rec := range results {
			if rec.OK() {
				c.env.printf("%s: ok (%s)\n", rec.Unit, c.env.money(rec.Balance))
				continue
			}
			failed = true
			for _, d := range rec.Discrepancies {
				c.env.printf("%s\n", d.String())
			}
		}
		if failed {
			return errDiscrepancies
		}
		return nil
	})
}

type priceCmd struct {
	env   *Env
	set   string
	limit int
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "record or list market prices" }
func (*priceCmd) Usage() string {
	return `bizctl price [-set <price per kg>] [-n <count>]
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.set, "set", "", "Record a new market price per kg.")
	f.IntVar(&c.limit, "n", 10, "Number of prices to list.")
}

func (c *priceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var price decimal.Decimal
	if c.set != "" {
		var err error
		if price, err = decimal.NewFromString(strings.TrimSpace(c.set)); err != nil {
			c.env.errorf("-set: %v", err)
			return subcommands.ExitUsageError
		}
	}
	return c.env.run(ctx, func(ct *app.Container) error {
		if c.set != "" {
			p, err := ct.Ledger.RecordPrice(ctx, price)
			if err != nil {
				return err
			}
			c.env.printf("recorded %s/kg\n", c.env.money(p.Price))
			return nil
		}
		prices, err := ct.Ledger.Prices(ctx, c.limit)
		if err != nil {
			return err
		}
		for _, p := range prices {
			c.env.printf("%s  %s/kg\n", p.RecordedAt.Format("2006-01-02 15:04"), c.env.money(p.Price))
		}
		return nil
	})
}
