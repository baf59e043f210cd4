package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/config"
	"github.com/Yashh56/relwave-app-sub001/pkg/credstore"
	"github.com/Yashh56/relwave-app-sub001/pkg/crypto"
	"github.com/Yashh56/relwave-app-sub001/pkg/handlers"
	"github.com/Yashh56/relwave-app-sub001/pkg/logging"
	"github.com/Yashh56/relwave-app-sub001/pkg/migration"
	"github.com/Yashh56/relwave-app-sub001/pkg/projectstore"
	"github.com/Yashh56/relwave-app-sub001/pkg/query"
	"github.com/Yashh56/relwave-app-sub001/pkg/rpc"
	"github.com/Yashh56/relwave-app-sub001/pkg/vcs"

	// Engine adapters register themselves at init.
	_ "github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource/mysql"
	_ "github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource/postgres"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(version)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting bridge",
		zap.String("version", version),
		zap.String("configDir", cfg.ConfigDir))

	cipher, err := crypto.NewMachineCipher()
	if err != nil {
		return fmt.Errorf("init credential cipher: %w", err)
	}

	databases := credstore.New(cfg.ConfigDir, cipher, cfg.CacheTTL(), logger)
	projects := projectstore.New(cfg.ProjectsDir(), databases, logger)

	server := rpc.NewServer(os.Stdin, os.Stdout, logger)
	notifier := handlers.NewNotifier(server)

	queries := query.NewManager(databases, cfg, notifier, logger)
	migrations := migration.NewEngine(projects, queries.OpenExecutor, logger)
	diffs := vcs.NewDiffService(projects, vcs.NewGitReader(), logger)

	handler := handlers.New(databases, queries, projects, migrations, diffs, logger)
	server.SetDispatcher(handler.Dispatch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("rpc server: %w", err)
	}
	logger.Info("Bridge stopped")
	return nil
}
