package acceptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/reportstream/rs-acceptor/flags"
	"github.com/reportstream/rs-acceptor/lineage"
	"github.com/reportstream/rs-acceptor/submit"
	"github.com/reportstream/rs-acceptor/types"
)

// Config holds the application configuration
type Config struct {
	Env          types.Environment
	Options      types.TestOptions
	TestNames    []string      // Tests and suites to run, the smoke suite when empty
	List         bool          // Print the catalog and exit
	SettingsFile string        // Organizations yaml, the built-in test organizations when empty
	SuiteFile    string        // Optional yaml of named suites
	DatabaseURL  string        // Lineage database, required unless listing
	LogDir       string        // Per-run result files are written below it when set
	RunInterval  time.Duration // Interval between test runs
	RunOnce      bool          // Indicates if the service should exit after one test run
	Metrics      opmetrics.CLIConfig
	HealthzAddr  string // Overrides the default healthz listen address in continuous mode
	Log          log.Logger

	// Store and Submitter replace the postgres store and the http client when set.
	Store     lineage.Store
	Submitter submit.Submitter
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	env, err := types.LookupEnvironment(ctx.String(flags.Env.Name))
	if err != nil {
		return nil, err
	}
	if endpoint := ctx.String(flags.Endpoint.Name); endpoint != "" {
		env.Endpoint = endpoint
	}

	opts := types.TestOptions{
		Items:   ctx.Int(flags.Items.Name),
		Submits: ctx.Int(flags.Submits.Name),
		Dir:     ctx.String(flags.Dir.Name),
		SFTPDir: ctx.String(flags.SFTPDir.Name),
		Key:     ctx.String(flags.Key.Name),
		Env:     env.Name,
		Sender:  ctx.String(flags.Sender.Name),
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	cfg := &Config{
		Env:          env,
		Options:      opts,
		TestNames:    flags.TestNames(ctx),
		List:         ctx.Bool(flags.List.Name),
		SettingsFile: ctx.String(flags.Settings.Name),
		SuiteFile:    ctx.String(flags.Suites.Name),
		DatabaseURL:  ctx.String(flags.DatabaseURL.Name),
		LogDir:       ctx.String(flags.LogDir.Name),
		RunInterval:  runInterval,
		RunOnce:      runInterval == 0,
		Metrics:      opmetrics.ReadCLIConfig(ctx),
		Log:          log,
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve validates the configuration, resolves its paths and creates the working directory.
// Listing the catalog needs none of it.
func (c *Config) resolve() error {
	if c.List {
		return nil
	}
	if c.Options.Items <= 0 {
		return fmt.Errorf("items must be positive, got %d", c.Options.Items)
	}
	if c.Options.Submits <= 0 {
		return fmt.Errorf("submits must be positive, got %d", c.Options.Submits)
	}
	if !c.Env.Allowed {
		return fmt.Errorf("tests cannot be run against the %s environment", c.Env.Name)
	}
	if c.Env.KeyRequired && c.Options.Key == "" {
		return fmt.Errorf("a function key is required for the %s environment", c.Env.Name)
	}
	if c.DatabaseURL == "" && c.Store == nil {
		return errors.New("database url is required")
	}
	if c.DatabaseURL != "" && !c.Env.MatchesDatabase(c.DatabaseURL) {
		return fmt.Errorf("the database url does not point at the %s environment", c.Env.Name)
	}

	var err error
	if c.Options.Dir, err = filepath.Abs(c.Options.Dir); err != nil {
		return fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", c.Options.Dir, err)
	}
	if c.Options.SFTPDir, err = filepath.Abs(c.Options.SFTPDir); err != nil {
		return fmt.Errorf("failed to resolve absolute path for sftp directory '%s': %w", c.Options.SFTPDir, err)
	}
	for _, p := range []*string{&c.SettingsFile, &c.SuiteFile, &c.LogDir} {
		if *p == "" {
			continue
		}
		if *p, err = filepath.Abs(*p); err != nil {
			return fmt.Errorf("failed to resolve absolute path '%s': %w", *p, err)
		}
	}
	if err := os.MkdirAll(c.Options.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create test directory '%s': %w", c.Options.Dir, err)
	}
	return nil
}
