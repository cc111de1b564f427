// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"schemasync/internal/apply"
	"schemasync/internal/compare"
	"schemasync/internal/config"
	"schemasync/internal/conn"
	"schemasync/internal/core"
	"schemasync/internal/generator"
	"schemasync/internal/history"
	"schemasync/internal/logging"
	"schemasync/internal/orchestrator"
	"schemasync/internal/output"
	"schemasync/internal/secret"
	"schemasync/internal/tunnel"
)

type compareFlags struct {
	profile   string
	format    string
	outFile   string
	logFile   string
	keyPath   string
	proxyAddr string
	history   string
	verbose   bool
}

type syncFlags struct {
	profile          string
	direction        string
	format           string
	outFile          string
	rollbackFile     string
	includeDataLoss  bool
	logFile          string
	keyPath          string
	proxyAddr        string
}

type tunnelFlags struct {
	profile   string
	side      string
	logFile   string
	keyPath   string
	proxyAddr string
	timeout   int
}

type applyFlags struct {
	dsn                   string
	file                  string
	dryRun                bool
	transaction           bool
	allowNonTransactional bool
	unsafe                bool
	timeout               int
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "schemasync",
		Short: "Compare two MySQL schemas and generate a reversible sync script",
	}

	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(tunnelCmd())
	rootCmd.AddCommand(applyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func compareCmd() *cobra.Command {
	flags := &compareFlags{}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare source and target schemas declared in a profile",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCompare(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.profile, "profile", "p", "", "Path to the connection profile TOML (required)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format: sql, json, or summary")
	cmd.Flags().StringVarP(&flags.outFile, "output", "o", "", "Output file for the comparison result")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Path to a rotated log file (stderr only if unset)")
	cmd.Flags().StringVar(&flags.keyPath, "key-path", "schemasync.key", "Path to the secret store master key")
	cmd.Flags().StringVar(&flags.proxyAddr, "proxy-addr", "", "Tunnel proxy address (empty runs tunnels in-process)")
	cmd.Flags().StringVar(&flags.history, "history-file", "", "Path to a comparison history JSON file (disabled if unset)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log progress events to stderr as they happen")

	return cmd
}

func runCompare(flags *compareFlags) error {
	if flags.profile == "" {
		return fmt.Errorf("--profile is required")
	}

	log, err := newLogger(flags.logFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	source, target, opts, err := loadProfile(flags.profile, flags.keyPath, log)
	if err != nil {
		return err
	}

	store, err := secret.New(flags.keyPath, log)
	if err != nil {
		return fmt.Errorf("opening secret store: %w", err)
	}

	orch := orchestrator.New(
		tunnel.NewManager(store, log, flags.proxyAddr),
		conn.NewPool(log),
		log,
	)

	var progress compare.ProgressFunc
	if flags.verbose {
		progress = func(ev core.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Phase, ev.Message)
		}
	}

	result := orch.Run(context.Background(), source, target, opts, progress)

	if flags.history != "" {
		hs, err := history.New(flags.history, log)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		if err := hs.Add(result); err != nil {
			return fmt.Errorf("recording comparison history: %w", err)
		}
	}

	formatter, err := output.NewFormatter(flags.format)
	if err != nil {
		return err
	}
	formatted, err := formatter.FormatComparison(result)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if err := writeOutput(formatted, flags.outFile, flags.format); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("comparison completed with errors: %s", strings.Join(result.Errors, "; "))
	}
	return nil
}

func syncCmd() *cobra.Command {
	flags := &syncFlags{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Generate a forward/rollback sync script from a schema comparison",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSync(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.profile, "profile", "p", "", "Path to the connection profile TOML (required)")
	cmd.Flags().StringVar(&flags.direction, "direction", string(core.SourceToTarget), "Sync direction: source_to_target or target_to_source")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format: sql, json, or summary")
	cmd.Flags().StringVarP(&flags.outFile, "output", "o", "", "Output file for the generated forward SQL")
	cmd.Flags().StringVarP(&flags.rollbackFile, "rollback-output", "b", "", "Output file for the generated rollback SQL (run separately)")
	cmd.Flags().BoolVarP(&flags.includeDataLoss, "unsafe", "u", false, "Include destructive (data loss) statements; safe mode by default")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Path to a rotated log file (stderr only if unset)")
	cmd.Flags().StringVar(&flags.keyPath, "key-path", "schemasync.key", "Path to the secret store master key")
	cmd.Flags().StringVar(&flags.proxyAddr, "proxy-addr", "", "Tunnel proxy address (empty runs tunnels in-process)")

	return cmd
}

func runSync(flags *syncFlags) error {
	if flags.profile == "" {
		return fmt.Errorf("--profile is required")
	}
	direction := core.SyncDirection(flags.direction)
	if direction != core.SourceToTarget && direction != core.TargetToSource {
		return fmt.Errorf("unsupported direction: %s", flags.direction)
	}

	log, err := newLogger(flags.logFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	source, target, opts, err := loadProfile(flags.profile, flags.keyPath, log)
	if err != nil {
		return err
	}

	store, err := secret.New(flags.keyPath, log)
	if err != nil {
		return fmt.Errorf("opening secret store: %w", err)
	}

	orch := orchestrator.New(
		tunnel.NewManager(store, log, flags.proxyAddr),
		conn.NewPool(log),
		log,
	)

	result := orch.Run(context.Background(), source, target, opts, nil)
	if len(result.Errors) > 0 {
		return fmt.Errorf("comparison failed: %s", strings.Join(result.Errors, "; "))
	}

	script := generator.Generate(result.ComparisonID, result.Differences, generator.Options{
		Direction:       direction,
		IncludeDataLoss: flags.includeDataLoss,
	})

	formatter, err := output.NewFormatter(flags.format)
	if err != nil {
		return err
	}
	formatted, err := formatter.FormatSyncScript(script)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if err := writeOutput(formatted, flags.outFile, flags.format); err != nil {
		return err
	}

	if flags.rollbackFile != "" {
		if err := os.WriteFile(flags.rollbackFile, []byte(script.RollbackSQL), 0o644); err != nil {
			return fmt.Errorf("failed to write rollback output: %w", err)
		}
		printInfo(flags.format, fmt.Sprintf("rollback saved to %s", flags.rollbackFile))
	}
	return nil
}

func tunnelCmd() *cobra.Command {
	flags := &tunnelFlags{}
	cmd := &cobra.Command{
		Use:   "tunnel",
		Short: "Open and health-check an SSH tunnel declared in a profile, without comparing",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTunnelTest(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.profile, "profile", "p", "", "Path to the connection profile TOML (required)")
	cmd.Flags().StringVar(&flags.side, "side", "source", "Which endpoint's tunnel to test: source or target")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Path to a rotated log file (stderr only if unset)")
	cmd.Flags().StringVar(&flags.keyPath, "key-path", "schemasync.key", "Path to the secret store master key")
	cmd.Flags().StringVar(&flags.proxyAddr, "proxy-addr", "", "Tunnel proxy address (empty runs tunnels in-process)")
	cmd.Flags().IntVar(&flags.timeout, "timeout", 30, "Tunnel connect timeout in seconds")

	return cmd
}

func runTunnelTest(flags *tunnelFlags) error {
	if flags.profile == "" {
		return fmt.Errorf("--profile is required")
	}

	log, err := newLogger(flags.logFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	source, target, _, err := loadProfile(flags.profile, flags.keyPath, log)
	if err != nil {
		return err
	}

	var ep *core.Endpoint
	switch strings.ToLower(flags.side) {
	case "source":
		ep = source
	case "target":
		ep = target
	default:
		return fmt.Errorf("--side must be 'source' or 'target', got %q", flags.side)
	}
	if !ep.UsesTunnel() {
		return fmt.Errorf("%s endpoint has no tunnel configured", flags.side)
	}

	store, err := secret.New(flags.keyPath, log)
	if err != nil {
		return fmt.Errorf("opening secret store: %w", err)
	}
	manager := tunnel.NewManager(store, log, flags.proxyAddr)
	defer manager.Shutdown()

	ep.Tunnel.RemoteBindHost = ep.Host
	ep.Tunnel.RemoteBindPort = ep.Port

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	info, err := manager.CreateTunnel(ctx, ep.Tunnel, true, time.Duration(flags.timeout)*time.Second)
	if err != nil {
		return fmt.Errorf("tunnel test failed: %w", err)
	}

	fmt.Printf("tunnel %s reached state %s, forwarding 127.0.0.1:%d -> %s:%d\n",
		info.ID, info.State, info.LocalPort, ep.Tunnel.RemoteBindHost, ep.Tunnel.RemoteBindPort)
	return manager.CloseTunnel(info.ID)
}

// loadProfile reads the profile at path, then encrypts every tunnel
// credential field through the secret store before handing endpoints to the
// orchestrator or tunnel manager, both of which expect ciphertext (internal/
// tunnel/auth.go calls store.Decrypt on these fields).
func loadProfile(path, keyPath string, log *zap.Logger) (source, target *core.Endpoint, opts core.ComparisonOptions, err error) {
	profile, err := config.Load(path)
	if err != nil {
		return nil, nil, core.ComparisonOptions{}, err
	}

	store, err := secret.New(keyPath, log)
	if err != nil {
		return nil, nil, core.ComparisonOptions{}, fmt.Errorf("opening secret store: %w", err)
	}

	source, target = profile.Endpoints()
	for _, ep := range []*core.Endpoint{source, target} {
		if err := encryptTunnelCredentials(ep, store); err != nil {
			return nil, nil, core.ComparisonOptions{}, err
		}
	}
	return source, target, profile.ComparisonOptions(), nil
}

func encryptTunnelCredentials(ep *core.Endpoint, store *secret.Store) error {
	if !ep.UsesTunnel() {
		return nil
	}
	t := ep.Tunnel
	if t.Password != "" {
		enc, err := store.Encrypt(t.Password, core.ClassConfidential)
		if err != nil {
			return fmt.Errorf("encrypting tunnel password for %s: %w", ep.DisplayName, err)
		}
		t.Password = enc
	}
	if t.PrivateKey != "" && !t.KeyIsPath {
		enc, err := store.Encrypt(t.PrivateKey, core.ClassRestricted)
		if err != nil {
			return fmt.Errorf("encrypting tunnel private key for %s: %w", ep.DisplayName, err)
		}
		t.PrivateKey = enc
	}
	if t.Passphrase != "" {
		enc, err := store.Encrypt(t.Passphrase, core.ClassRestricted)
		if err != nil {
			return fmt.Errorf("encrypting tunnel passphrase for %s: %w", ep.DisplayName, err)
		}
		t.Passphrase = enc
	}
	return nil
}

func applyCmd() *cobra.Command {
	flags := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a generated sync script (or hand-written DDL) to a database",
		Long: `Connects to your database and applies a sync script's forward SQL
(or any hand-written migration file).

This command performs preflight checks before execution:
- Warns about potentially blocking DDL operations
- Warns about destructive operations (DROP, TRUNCATE, etc.)
- Checks transaction safety of the migration

Examples:
  schemasync apply --dsn "user:pass@tcp(localhost:3306)/mydb" --file sync.sql
  schemasync apply --dsn "user:pass@tcp(localhost:3306)/mydb" --file sync.sql --dry-run
  schemasync apply --dsn "user:pass@tcp(localhost:3306)/mydb" --file sync.sql --unsafe`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runApply(flags)
		},
	}
	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "Database connection string (required)")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "Path to a sync script or migration SQL file (required)")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "d", false, "Print statements and run preflight checks without executing")
	cmd.Flags().BoolVarP(&flags.transaction, "transaction", "t", true, "Run migration in a transaction if possible")
	cmd.Flags().BoolVar(&flags.allowNonTransactional, "allow-non-transactional", false, "Allow non-transactional DDL when --transaction is set")
	cmd.Flags().BoolVarP(&flags.unsafe, "unsafe", "u", false, "Allow destructive operations (DROP, TRUNCATE, etc.)")
	cmd.Flags().IntVar(&flags.timeout, "timeout", 300, "Connection timeout in seconds")
	return cmd
}

func runApply(flags *applyFlags) error {
	if flags.dsn == "" {
		return fmt.Errorf("--dsn is required")
	}
	if flags.file == "" {
		return fmt.Errorf("--file is required")
	}

	content, err := os.ReadFile(flags.file)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	applier := apply.NewApplier(apply.Options{
		DSN:                   flags.dsn,
		DryRun:                flags.dryRun,
		Transaction:           flags.transaction,
		AllowNonTransactional: flags.allowNonTransactional,
		Unsafe:                flags.unsafe,
		Out:                   os.Stdout,
	})
	defer func() {
		_ = applier.Close()
	}()

	statements := applier.ParseStatements(string(content))
	if len(statements) == 0 {
		fmt.Println("no DDL statements found in migration file")
		return nil
	}

	fmt.Printf("found %d statement(s) in %s\n", len(statements), flags.file)
	fmt.Println()

	preflight := applier.PreflightChecks(statements, flags.unsafe)

	if flags.dryRun {
		return applier.Apply(context.Background(), statements, preflight)
	}

	return executeApply(applier, statements, preflight, flags.timeout)
}

func executeApply(applier *apply.Applier, statements []string, preflight *apply.PreflightResult, timeout int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	fmt.Printf("connecting to database\n")
	if err := applier.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := applier.Close(); err != nil {
			fmt.Printf("failed to close database connection: %v\n", err)
		}
	}()

	return applier.Apply(ctx, statements, preflight)
}

func newLogger(logFile string) (*zap.Logger, error) {
	opts := logging.DefaultOptions()
	opts.Level = zapcore.InfoLevel
	if logFile != "" {
		opts.FilePath = logFile
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	log, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log, nil
}

func printInfo(format, msg string) {
	if strings.EqualFold(strings.TrimSpace(format), string(output.FormatJSON)) {
		_, _ = fmt.Fprintln(os.Stderr, msg)
		return
	}
	fmt.Println(msg)
}

func writeOutput(content, outFile, format string) error {
	if outFile == "" {
		fmt.Print(content)
		return nil
	}

	if err := os.WriteFile(outFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	printInfo(format, fmt.Sprintf("Output saved to %s", outFile))
	return nil
}
