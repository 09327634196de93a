// Command snowsync copies objects between local drives, S3 buckets and
// Snowball appliances, and verifies what arrived.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/NYPL/snowsync"
	"github.com/NYPL/snowsync/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ruleList accumulates include and exclude rules in the order their flags
// appear on the command line. Both flags feed the same list, so the
// last-match-wins evaluation sees them exactly as the caller wrote them.
type ruleList struct {
	rules []types.FilterRule
}

// ruleValue binds one filter action to a shared ruleList.
type ruleValue struct {
	action types.FilterAction
	list   *ruleList
}

func (v *ruleValue) Set(pattern string) error {
	v.list.rules = append(v.list.rules, types.FilterRule{Pattern: pattern, Action: v.action})
	return nil
}

func (v *ruleValue) String() string { return "" }

func filterFlags(list *ruleList) []cli.Flag {
	return []cli.Flag{
		&cli.GenericFlag{
			Name:  "include",
			Usage: "include keys matching `PATTERN`; rules apply in flag order and the last match wins",
			Value: &ruleValue{action: types.FilterInclude, list: list},
		},
		&cli.GenericFlag{
			Name:  "exclude",
			Usage: "exclude keys matching `PATTERN`",
			Value: &ruleValue{action: types.FilterExclude, list: list},
		},
	}
}

func junkFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "exclude-junk",
		Usage: "exclude desktop junk files (.DS_Store, .Spotlight*, $RECYCLE.BIN/*, ...)",
	}
}

func newApp() *cli.App {
	transferRules := &ruleList{}
	verifyRules := &ruleList{}
	removeRules := &ruleList{}

	return &cli.App{
		Name:  "snowsync",
		Usage: "bulk object transfer between local drives, S3 buckets and Snowball devices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "S3 endpoint `URL`; a bare IPv4 address is expanded to http://IP:8080",
				EnvVars: []string{"AWS_ENDPOINT_URL", "SNOWSYNC_ENDPOINT"},
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "named `PROFILE` from the shared AWS config files",
				EnvVars: []string{"AWS_PROFILE"},
			},
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS `REGION` for S3 requests",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.IntFlag{
				Name:    "retries",
				Usage:   "attempt budget for transient store failures",
				Value:   3,
				EnvVars: []string{"SNOWSYNC_RETRIES"},
			},
			&cli.Float64Flag{
				Name:    "rps",
				Usage:   "cap outbound S3 requests per second (0 = unlimited)",
				EnvVars: []string{"SNOWSYNC_RPS"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log `LEVEL`: trace, debug, info, warn, error, disabled",
				Value:   "info",
				EnvVars: []string{"SNOWSYNC_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Usage:   "print plans, results and diffs as JSON on stdout",
				EnvVars: []string{"SNOWSYNC_JSON"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "transfer",
				Usage:     "copy everything under <source> to <destination>, skipping up-to-date objects",
				ArgsUsage: "<source> <destination>",
				Flags: append(filterFlags(transferRules),
					junkFlag(),
					&cli.BoolFlag{
						Name:  "mirror",
						Usage: "delete destination objects no source object maps to",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "print the plan without executing it",
					},
					&cli.IntFlag{
						Name:        "concurrency",
						Usage:       "concurrent copy operations",
						DefaultText: "5",
						EnvVars:     []string{"SNOWSYNC_CONCURRENCY"},
					},
					&cli.StringFlag{
						Name:  "storage-class",
						Usage: "storage `CLASS` for written objects (STANDARD, GLACIER, ...)",
					},
					&cli.StringSliceFlag{
						Name:  "metadata",
						Usage: "user metadata as `KEY=VALUE`, repeatable",
					},
					&cli.StringFlag{
						Name:  "bundle",
						Usage: "pack small matching objects into one auto-extracting tar `ARCHIVE` under the destination prefix",
					},
					&cli.StringSliceFlag{
						Name:  "bundle-match",
						Usage: "relative-key `PATTERN` selecting objects to bundle",
						Value: cli.NewStringSlice("*.txt", "*.json"),
					},
					&cli.StringFlag{
						Name:  "bundle-limit",
						Usage: "bundle only objects up to `SIZE` (e.g. 256KB, 1MB)",
					},
				),
				Action: func(c *cli.Context) error {
					return runTransfer(c, transferRules)
				},
			},
			{
				Name:      "verify",
				Usage:     "diff <source> against <destination> by relative key and size",
				ArgsUsage: "<source> <destination>",
				Flags:     append(filterFlags(verifyRules), junkFlag()),
				Action: func(c *cli.Context) error {
					return runVerify(c, verifyRules)
				},
			},
			{
				Name:      "ls",
				Usage:     "list the objects under a location",
				ArgsUsage: "<location>",
				Action:    runList,
			},
			{
				Name:      "rm",
				Usage:     "delete the objects under a location",
				ArgsUsage: "<location>",
				Flags: append(filterFlags(removeRules),
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "print what would be deleted without deleting it",
					},
				),
				Action: func(c *cli.Context) error {
					return runRemove(c, removeRules)
				},
			},
		},
	}
}

// newClient builds a library client from the global flags.
func newClient(c *cli.Context) (*snowsync.Client, error) {
	log, err := newLogger(c.String("log-level"))
	if err != nil {
		return nil, err
	}

	opts := []types.Option{
		snowsync.WithLogger(&log),
		snowsync.WithMaxRetries(c.Int("retries")),
	}
	if endpoint := c.String("endpoint"); endpoint != "" {
		opts = append(opts, snowsync.WithEndpoint(endpoint))
	}
	if profile := c.String("profile"); profile != "" {
		opts = append(opts, snowsync.WithProfile(profile))
	}
	if region := c.String("region"); region != "" {
		opts = append(opts, snowsync.WithRegion(region))
	}
	if rps := c.Float64("rps"); rps > 0 {
		opts = append(opts, snowsync.WithRequestsPerSecond(rps))
	}
	return snowsync.New(opts...)
}

// newLogger builds a console logger on stderr so stdout stays clean for
// plan, result and diff output.
func newLogger(levelStr string) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

func runTransfer(c *cli.Context, rules *ruleList) error {
	if c.NArg() != 2 {
		return cli.Exit("transfer requires <source> and <destination> arguments", 2)
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	opts, err := transferOptions(c, rules)
	if err != nil {
		return err
	}

	result, err := client.Transfer(c.Context, c.Args().Get(0), c.Args().Get(1), opts...)
	if err != nil {
		return err
	}

	if result.DryRun {
		return renderPlan(c.App.Writer, result.Plan, c.Bool("json"))
	}
	if err := renderResult(c.App.Writer, result, c.Bool("json")); err != nil {
		return err
	}
	return failExit(c, result)
}

// transferOptions maps the transfer flags onto library options. The
// ordered rule list goes first, junk excludes after it, so the junk rules
// always win.
func transferOptions(c *cli.Context, rules *ruleList) ([]types.TransferOption, error) {
	opts := make([]types.TransferOption, 0, len(rules.rules)+8)
	for _, rule := range rules.rules {
		if rule.Action == types.FilterInclude {
			opts = append(opts, snowsync.WithInclude(rule.Pattern))
		} else {
			opts = append(opts, snowsync.WithExclude(rule.Pattern))
		}
	}
	if c.Bool("exclude-junk") {
		opts = append(opts, snowsync.WithExcludeJunk())
	}
	if c.Bool("mirror") {
		opts = append(opts, snowsync.WithMirror())
	}
	if c.Bool("dry-run") {
		opts = append(opts, snowsync.WithDryRun())
	}
	if n := c.Int("concurrency"); n > 0 {
		opts = append(opts, snowsync.WithTransferConcurrency(n))
	}
	if class := c.String("storage-class"); class != "" {
		opts = append(opts, snowsync.WithStorageClass(types.StorageClass(class)))
	}
	if pairs := c.StringSlice("metadata"); len(pairs) > 0 {
		metadata, err := parseMetadata(pairs)
		if err != nil {
			return nil, err
		}
		opts = append(opts, snowsync.WithMetadata(metadata))
	}
	if archive := c.String("bundle"); archive != "" {
		opts = append(opts, snowsync.WithBundle(archive))
		opts = append(opts, snowsync.WithBundlePatterns(c.StringSlice("bundle-match")...))
		if limit := c.String("bundle-limit"); limit != "" {
			size, err := humanize.ParseBytes(limit)
			if err != nil {
				return nil, fmt.Errorf("invalid bundle limit %q: %w", limit, err)
			}
			opts = append(opts, snowsync.WithBundleLimit(int64(size)))
		}
	}
	return opts, nil
}

// parseMetadata splits repeated KEY=VALUE flags into a metadata map.
func parseMetadata(pairs []string) (map[string]string, error) {
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q: want KEY=VALUE", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

func runVerify(c *cli.Context, rules *ruleList) error {
	if c.NArg() != 2 {
		return cli.Exit("verify requires <source> and <destination> arguments", 2)
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := make([]types.VerifyOption, 0, len(rules.rules)+1)
	for _, rule := range rules.rules {
		if rule.Action == types.FilterInclude {
			opts = append(opts, snowsync.WithVerifyInclude(rule.Pattern))
		} else {
			opts = append(opts, snowsync.WithVerifyExclude(rule.Pattern))
		}
	}
	if c.Bool("exclude-junk") {
		opts = append(opts, snowsync.WithVerifyExcludeJunk())
	}

	diff, err := client.Verify(c.Context, c.Args().Get(0), c.Args().Get(1), opts...)
	if err != nil {
		return err
	}
	if err := renderDiff(c.App.Writer, diff, c.Bool("json")); err != nil {
		return err
	}
	if !diff.InSync {
		return cli.Exit("", 1)
	}
	return nil
}

func runList(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("ls requires a <location> argument", 2)
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	entries, err := client.List(c.Context, c.Args().Get(0))
	if err != nil {
		return err
	}
	return renderEntries(c.App.Writer, entries, c.Bool("json"))
}

func runRemove(c *cli.Context, rules *ruleList) error {
	if c.NArg() != 1 {
		return cli.Exit("rm requires a <location> argument", 2)
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := make([]types.RemoveOption, 0, len(rules.rules)+1)
	for _, rule := range rules.rules {
		if rule.Action == types.FilterInclude {
			opts = append(opts, snowsync.WithRemoveInclude(rule.Pattern))
		} else {
			opts = append(opts, snowsync.WithRemoveExclude(rule.Pattern))
		}
	}
	if c.Bool("dry-run") {
		opts = append(opts, snowsync.WithRemoveDryRun())
	}

	result, err := client.Remove(c.Context, c.Args().Get(0), opts...)
	if err != nil {
		return err
	}

	if result.DryRun {
		return renderPlan(c.App.Writer, result.Plan, c.Bool("json"))
	}
	if err := renderResult(c.App.Writer, result, c.Bool("json")); err != nil {
		return err
	}
	return failExit(c, result)
}

// failExit reports per-object failures as a non-zero exit with the failed
// count on stderr.
func failExit(c *cli.Context, result *types.TransferResult) error {
	if result.Failed == 0 {
		return nil
	}
	fmt.Fprintf(c.App.ErrWriter, "%d operations failed\n", result.Failed)
	return cli.Exit("", 1)
}
