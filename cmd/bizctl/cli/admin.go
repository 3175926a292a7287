package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/newdim001/biz-pro/internal/app"
	"github.com/newdim001/biz-pro/internal/auth"
	"github.com/newdim001/biz-pro/jobs"
)

type useraddCmd struct {
	env      *Env
	username string
	password string
	fullName string
	role     string
	unit     string
}

func (*useraddCmd) Name() string     { return "useradd" }
func (*useraddCmd) Synopsis() string { return "create a user account" }
func (*useraddCmd) Usage() string {
	return `bizctl useradd -username <name> -password <secret> [-role admin|manager|user] [-unit <unit>|All]
`
}

func (c *useraddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "Login name.")
	f.StringVar(&c.password, "password", "", "Initial password.")
	f.StringVar(&c.fullName, "name", "", "Display name.")
	f.StringVar(&c.role, "role", string(auth.RoleUser), "Role.")
	f.StringVar(&c.unit, "unit", auth.AllUnits, "Unit the account is scoped to.")
}

func (c *useraddCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" || c.password == "" {
		c.env.errorf("-username and -password are required")
		return subcommands.ExitUsageError
	}
	return c.env.run(ctx, func(ct *app.Container) error {
		u, err := ct.Users.CreateUser(ctx, auth.CreateUserInput{
			Username: c.username,
			Password: c.password,
			FullName: c.fullName,
			Role:     auth.Role(c.role),
			Unit:     c.unit,
		})
		if err != nil {
			return err
		}
		c.env.printf("created %s (%s, %s)\n", u.Username, u.Role, u.Unit)
		return nil
	})
}

type enqueueCmd struct {
	env  *Env
	unit string
}

func (*enqueueCmd) Name() string     { return "enqueue" }
func (*enqueueCmd) Synopsis() string { return "queue a background job" }
func (*enqueueCmd) Usage() string {
	return `bizctl enqueue [-unit <name>] reconcile|cleanup
`
}

func (c *enqueueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.unit, "unit", "", "Unit to reconcile. Empty means all.")
}

func (c *enqueueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		c.env.errorf("expected one job name")
		return subcommands.ExitUsageError
	}
	q := c.env.enqueuer()
	var err error
	var id string
	switch f.Arg(0) {
	case "reconcile":
		info, e := q.EnqueueReconcile(ctx, c.unit)
		if info != nil {
			id = info.ID
		}
		err = e
	case "cleanup":
		info, e := q.EnqueueIdempotencyCleanup(ctx, 0)
		if info != nil {
			id = info.ID
		}
		err = e
	default:
		c.env.errorf("unknown job %q", f.Arg(0))
		return subcommands.ExitUsageError
	}
	if err != nil {
		c.env.errorf("enqueue: %v", err)
		return subcommands.ExitFailure
	}
	c.env.printf("queued %s on %s (%s)\n", f.Arg(0), jobs.QueueDefault, id)
	return subcommands.ExitSuccess
}
