// Package cli implements the bizctl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/newdim001/biz-pro/internal/app"
	"github.com/newdim001/biz-pro/jobs"
)

// Enqueuer submits background tasks.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, unit string) (*asynq.TaskInfo, error)
	EnqueueIdempotencyCleanup(ctx context.Context, retention time.Duration) (*asynq.TaskInfo, error)
	Close() error
}

// Env carries what every command needs. The container is opened on first use.
type Env struct {
	Config *app.Config
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer

	container *app.Container
	queue     Enqueuer
}

// NewEnv builds an Env writing to the process streams.
func NewEnv(cfg *app.Config, logger *slog.Logger) *Env {
	return &Env{Config: cfg, Logger: logger, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *Env) open(ctx context.Context) (*app.Container, error) {
	if e.container != nil {
		return e.container, nil
	}
	c, err := app.Build(ctx, e.Config, e.Logger)
	if err != nil {
		return nil, err
	}
	e.container = c
	return c, nil
}

func (e *Env) enqueuer() Enqueuer {
	if e.queue == nil {
		e.queue = jobs.NewClient(asynq.RedisClientOpt{Addr: e.Config.RedisAddr, Password: e.Config.RedisPassword, DB: e.Config.RedisDB})
	}
	return e.queue
}

// Close releases whatever the commands opened.
func (e *Env) Close() {
	if e.queue != nil {
		_ = e.queue.Close()
	}
	if e.container != nil {
		e.container.Close()
	}
}

// run opens the container and reports fn's error on stderr.
func (e *Env) run(ctx context.Context, fn func(*app.Container) error) subcommands.ExitStatus {
	c, err := e.open(ctx)
	if err != nil {
		e.errorf("open: %v", err)
		return subcommands.ExitFailure
	}
	if err := fn(c); err != nil {
		e.errorf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (e *Env) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.Stdout, format, args...)
}

func (e *Env) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(e.Stderr, "error: "+format+"\n", args...)
}

// money renders an amount in the configured currency, e.g. $1,250.00.
func (e *Env) money(d decimal.Decimal) string {
	code := "AED"
	if e.Config != nil && e.Config.Currency != "" {
		code = strings.ToUpper(e.Config.Currency)
	}
	cur := money.GetCurrency(code)
	if cur == nil {
		return d.StringFixed(2)
	}
	return money.New(d.Shift(int32(cur.Fraction)).Round(0).IntPart(), cur.Code).Display()
}

// Commands lists every bizctl subcommand.
func Commands(env *Env) []subcommands.Command {
	return []subcommands.Command{
		&migrateCmd{env: env},
		&seedCmd{env: env},
		&resetCmd{env: env},
		&summaryCmd{env: env},
		&reconcileCmd{env: env},
		&priceCmd{env: env},
		&useraddCmd{env: env},
		&enqueueCmd{env: env},
	}
}
