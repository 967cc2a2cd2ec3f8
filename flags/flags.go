package flags

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/reportstream/rs-acceptor/types"
)

const EnvVarPrefix = "RS_ACCEPTOR"

const (
	DefaultItems   = 5
	DefaultSubmits = 5
	DefaultDir     = "./build/csv_test_files"
	DefaultSFTPDir = "build/sftp"
)

var (
	Run = &cli.StringFlag{
		Name:    "run",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN"),
		Usage:   "Comma separated list of tests or suites to run (eg. 'ping,end2end'). Runs the smoke suite when empty",
	}
	List = &cli.BoolFlag{
		Name:    "list",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LIST"),
		Usage:   "List the available tests and exit",
	}
	Items = &cli.IntFlag{
		Name:    "items",
		Value:   DefaultItems,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ITEMS"),
		Usage:   "Number of items per receiver in each fake file",
	}
	Submits = &cli.IntFlag{
		Name:    "submits",
		Value:   DefaultSubmits,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUBMITS"),
		Usage:   "Number of submissions for tests that submit repeatedly or in parallel",
	}
	Env = &cli.StringFlag{
		Name:    "env",
		Value:   types.EnvLocal.Name,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ENV"),
		Usage:   fmt.Sprintf("Environment to test. Must be one of: %s", strings.Join(environmentNames(), ", ")),
		Action: func(_ *cli.Context, v string) error {
			return validateEnvironment(v)
		},
	}
	Key = &cli.StringFlag{
		Name:    "key",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "KEY"),
		Usage:   "Function key sent with every submission. Required for test and staging",
	}
	Dir = &cli.StringFlag{
		Name:    "dir",
		Value:   DefaultDir,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DIR"),
		Usage:   "Directory the generated test files are written to",
	}
	SFTPDir = &cli.StringFlag{
		Name:    "sftpdir",
		Value:   DefaultSFTPDir,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SFTPDIR"),
		Usage:   "Local folder the sftp receivers upload to",
	}
	Sender = &cli.StringFlag{
		Name:    "sender",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SENDER"),
		Usage:   "Full name of the sender santaclaus submits as (eg. 'simple_report.default')",
	}
	Settings = &cli.StringFlag{
		Name:    "settings",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SETTINGS"),
		Usage:   "Path to an organizations yaml file. Uses the built-in test organizations when empty",
	}
	Suites = &cli.StringFlag{
		Name:    "suites",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUITES"),
		Usage:   "Path to a yaml file of named test suites",
	}
	DatabaseURL = &cli.StringFlag{
		Name:    "database-url",
		Value:   "",
		EnvVars: []string{"POSTGRES_URL"},
		Usage:   "URL of the router's lineage database. Must match the environment",
	}
	Endpoint = &cli.StringFlag{
		Name:    "endpoint",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ENDPOINT"),
		Usage:   "Overrides the router url of the environment",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to keep a testrun-<id> folder of results per run. Nothing is written when empty",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
)

var optionalFlags = []cli.Flag{
	Run,
	List,
	Items,
	Submits,
	Env,
	Key,
	Dir,
	SFTPDir,
	Sender,
	Settings,
	Suites,
	DatabaseURL,
	Endpoint,
	LogDir,
	RunInterval,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = optionalFlags
}

func CheckRequired(ctx *cli.Context) error {
	return opflags.CheckRequiredXor(ctx)
}

// TestNames splits the --run value into test and suite names.
func TestNames(ctx *cli.Context) []string {
	var names []string
	for _, n := range strings.Split(ctx.String(Run.Name), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func environmentNames() []string {
	names := make([]string, 0, len(types.Environments))
	for _, e := range types.Environments {
		names = append(names, e.Name)
	}
	return names
}

func validateEnvironment(v string) error {
	if _, err := types.LookupEnvironment(v); err != nil {
		return fmt.Errorf("env must be one of: %s", strings.Join(environmentNames(), ", "))
	}
	return nil
}
