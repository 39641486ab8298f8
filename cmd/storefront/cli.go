package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/utafrali/storefront/internal/app"
	"github.com/utafrali/storefront/internal/config"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// errUsage is returned after a subcommand printed its own usage.
var errUsage = errors.New("usage")

// command is one subcommand. run receives the arguments after its name.
type command struct {
	summary string
	auth    bool
	admin   bool
	run     func(c *cli, args []string) error
}

// commands is filled by the init funcs of the per-area files.
var commands = map[string]command{}

func register(name string, cmd command) {
	if _, dup := commands[name]; dup {
		panic("storefront: duplicate command " + name)
	}
	commands[name] = cmd
}

// cli carries what every subcommand needs.
type cli struct {
	ctx    context.Context
	cfg    *config.Config
	app    *app.App
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
	dump   bool
}

// run parses the global flags, wires the client and dispatches to the named
// subcommand. It returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", "", "dotenv file to load before reading the environment")
	mock := fs.Bool("mock", false, "serve every call from the built-in fixtures")
	dump := fs.Bool("dump", false, "print results as full Go values")
	fs.Usage = func() { usage(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		fs.Usage()
		return 2
	}

	var dotenv []string
	if *envFile != "" {
		dotenv = append(dotenv, *envFile)
	}
	cfg, err := config.Load(dotenv...)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *mock {
		cfg.Mode = config.ModeMock
	}

	log := logger.NewWithWriter("storefront", cfg.LogLevel, cfg.LogFormat, stderr)
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return 1
	}
	defer a.Close(context.WithoutCancel(ctx))

	c := &cli{ctx: ctx, cfg: cfg, app: a, logger: log, out: stdout, errOut: stderr, dump: *dump}
	err = c.guard(cmd)
	if err == nil {
		err = cmd.run(c, fs.Args()[1:])
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	}
	printError(stderr, err)
	return 1
}

// guard enforces the sign-in and role requirements of cmd.
func (c *cli) guard(cmd command) error {
	if !cmd.auth && !cmd.admin {
		return nil
	}
	if !c.app.Session.IsAuthenticated() {
		return apperrors.Unauthorized("not signed in, run `storefront login` first")
	}
	if c.cfg.Mode.IsMock() {
		return nil
	}
	if cmd.admin || len(c.cfg.KafkaBrokers) > 0 {
		// Role checks and event tagging need the profile.
		c.app.Session.FetchProfile(c.ctx)
	}
	if cmd.admin && !c.app.Session.IsAdmin() {
		return apperrors.Forbidden("admin role required")
	}
	return nil
}

// flags returns a flag set for a subcommand that reports errors instead of
// exiting.
func (c *cli) flags(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	fs.Usage = func() {
		fmt.Fprintf(c.errOut, "usage: storefront %s %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args into fs and checks the required flags were set.
func parse(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	var missing []string
	for _, name := range required {
		if !set[name] {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(fs.Output(), "missing required flags: %s\n", strings.Join(missing, ", "))
		fs.Usage()
		return errUsage
	}
	return nil
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "usage: storefront [flags] <command> [command flags]")
	fmt.Fprintln(w, "\nflags:")
	fs.PrintDefaults()
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %s\n", name, commands[name].summary)
	}
}

// printError writes err with the server's field messages, if any.
func printError(w io.Writer, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "error: %s\n", appErr.Message)
	keys := make([]string, 0, len(appErr.Fields))
	for k := range appErr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, appErr.Fields[k])
	}
}
