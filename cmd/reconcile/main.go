package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mirajehossain/goreconcilex/internal/config"
	"github.com/mirajehossain/goreconcilex/internal/db"
	"github.com/mirajehossain/goreconcilex/internal/lock"
	"github.com/mirajehossain/goreconcilex/internal/logger"
	"github.com/mirajehossain/goreconcilex/internal/source"
	"github.com/mirajehossain/goreconcilex/reconcile"
)

const (
	exitOK        = 0
	exitOrder     = 2
	exitLocked    = 3
	exitFail      = 4
	exitPlanError = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" || os.Args[1] == "help" {
		usage()
		return exitOK
	}
	cmd := os.Args[1]

	global := flag.NewFlagSet("global", flag.ContinueOnError)
	dsn := global.String("dsn", "", "Database DSN (or set DB_DSN)")
	dir := global.String("dir", "./migrations", "Migrations directory (or MIGRATIONS_DIR)")
	jsonOut := global.Bool("json", false, "JSON logs")
	conf := global.String("config", "", "Optional YAML config path")
	lockTimeout := global.Int("lock-timeout", 30, "Lock timeout seconds (or LOCK_TIMEOUT_SEC)")
	table := global.String("table", "schema_reconcile", "Bookkeeping table name")

	switch cmd {
	case "sync", "status":
		// no extra args
	case "create":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "create requires a <name>")
			return exitPlanError
		}
	default:
		usage()
		return exitOK
	}

	argStart := 2
	if cmd == "create" {
		argStart = 3
	}
	if err := global.Parse(os.Args[argStart:]); err != nil {
		return exitPlanError
	}

	cfg, _ := config.LoadYAML(*conf)
	cfg = config.MergeEnv(cfg)
	if *dsn != "" {
		cfg.DSN = *dsn
	}
	if *dir != "" {
		cfg.Dir = *dir
	}
	cfg.JSON = *jsonOut
	cfg.LockTimeoutSec = *lockTimeout
	if *table != "" {
		cfg.Table = *table
	}

	log := logger.New(cfg.JSON)

	if cmd == "create" {
		name := os.Args[2]
		if err := createPair(cfg.Dir, name); err != nil {
			log.Error("create failed", map[string]any{"error": err.Error()})
			return exitFail
		}
		log.Info("created migration pair", map[string]any{"dir": cfg.Dir, "name": name})
		return exitOK
	}

	defined, err := source.Dir(cfg.Dir)
	if err != nil {
		log.Error("loading migrations failed", map[string]any{"error": err.Error(), "dir": cfg.Dir})
		return exitPlanError
	}

	if cfg.DSN == "" {
		fmt.Fprintln(os.Stderr, "--dsn or DB_DSN is required")
		return exitPlanError
	}
	database, err := db.OpenMySQL(cfg.DSN)
	if err != nil {
		log.Error("db open failed", map[string]any{"error": err.Error()})
		return exitFail
	}
	defer database.Close()

	ctx := context.Background()
	adapter := db.NewAdapter(database, cfg.Table)

	switch cmd {
	case "status":
		return status(ctx, adapter, defined, log)
	case "sync":
		lockKey := lock.KeyFor(extractDBName(cfg.DSN), cfg.Table)
		l := lock.New(lockKey)
		if err := l.Acquire(ctx, database, cfg.LockTimeout()); err != nil {
			log.Error("failed to acquire lock", map[string]any{"error": err.Error(), "key": lockKey})
			return exitLocked
		}
		defer func() { _ = l.Release(ctx) }()

		r := reconcile.NewAsyncReconciler[string](log)
		if err := r.Call(ctx, adapter, reconcile.FromSlice(defined)); err != nil {
			if errors.Is(err, reconcile.ErrOutOfOrder) {
				log.Error("migration sequence out of order", map[string]any{"error": err.Error()})
				return exitOrder
			}
			log.Error("sync failed", map[string]any{"error": err.Error()})
			return exitFail
		}
		log.Info("sync complete", map[string]any{"defined": len(defined)})
		return exitOK
	}
	return exitOK
}

// status reports the applied history against the defined list without
// touching the schema.
func status(ctx context.Context, adapter *db.Adapter, defined []reconcile.Migration[string], log *logger.Logger) int {
	ok, err := adapter.HasMigrationsTable(ctx)
	if err != nil {
		log.Error("status failed", map[string]any{"error": err.Error()})
		return exitFail
	}
	var applied []reconcile.Migration[string]
	if ok {
		it, err := adapter.AppliedMigrations(ctx)
		if err != nil {
			log.Error("status failed", map[string]any{"error": err.Error()})
			return exitFail
		}
		for {
			m, more, err := it.Next()
			if err != nil {
				log.Error("status failed", map[string]any{"error": err.Error()})
				return exitFail
			}
			if !more {
				break
			}
			applied = append(applied, m)
		}
	}

	common := 0
	for common < len(applied) && common < len(defined) && applied[common].Equal(defined[common]) {
		common++
	}
	for _, m := range applied[common:] {
		log.Info("status.rollback", map[string]any{"id": m.ID, "name": m.Name, "applied_at": m.AppliedAt.UTC().Format(time.RFC3339)})
	}
	for _, m := range defined[common:] {
		log.Info("status.apply", map[string]any{"id": m.ID, "name": m.Name})
	}
	log.Info("status.summary", map[string]any{
		"applied":     len(applied),
		"defined":     len(defined),
		"in_common":   common,
		"to_rollback": len(applied) - common,
		"to_apply":    len(defined) - common,
	})
	return exitOK
}

func createPair(dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	version := time.Now().UTC().Format("20060102150405")
	base := version + "_" + name
	up := filepath.Join(dir, base+".up.sql")
	down := filepath.Join(dir, base+".down.sql")
	if err := os.WriteFile(up, []byte("-- "+name+" (forward)\n"), 0o644); err != nil {
		return err
	}
	return os.WriteFile(down, []byte("-- "+name+" (backward)\n"), 0o644)
}

// extractDBName pulls the schema name out of a MySQL DSN of the usual
// user:pass@tcp(host:port)/dbname?params shape.
func extractDBName(dsn string) string {
	s := dsn
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "default"
	}
	return s
}

func usage() {
	fmt.Println(`goreconcilex - reconcile a database schema against code-defined migrations

Usage:
  reconcile sync   [flags]   Make the database match the migrations directory
  reconcile status [flags]   Show what sync would roll back and apply
  reconcile create <name>    Scaffold an up/down migration pair

Flags:
  --dsn           Database DSN (or DB_DSN)
  --dir           Migrations directory (default ./migrations, or MIGRATIONS_DIR)
  --table         Bookkeeping table (default schema_reconcile, or RECONCILE_TABLE)
  --json          JSON log output
  --lock-timeout  Advisory lock timeout in seconds (default 30)
  --config        Optional YAML config file`)
}
