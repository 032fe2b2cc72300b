package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"itemboard/auth"
	"itemboard/cache"
	"itemboard/config"
	"itemboard/controllers"
	"itemboard/models"
	"itemboard/routes"
	"itemboard/service"
	"itemboard/store"
	"itemboard/views"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "itemboard",
	Short:         "Login-gated live item board",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err := config.NewLogger(cfg.Env)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return serve(ctx, cfg, logger)
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.AddCommand(serveCmd, hashPasswordCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openCollection builds the item collection for cfg. The returned func
// releases its connections.
func openCollection(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Collection, func(), error) {
	var (
		coll    store.Collection
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreBackend {
	case "mongo":
		client, err := config.ConnectMongoDB(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })
		coll = store.NewMongo(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection), logger)
	default:
		logger.Warn("store.memory", zap.String("note", "items are lost on restart"))
		coll = store.NewMemory()
	}

	if cfg.RedisAddr != "" {
		rdb, err := config.ConnectRedis(ctx, cfg, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		coll = cache.New(coll, rdb, cfg.CacheTTL, logger)
	}
	return coll, closeAll, nil
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	coll, closeColl, err := openCollection(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeColl()

	ids, ok := service.ParseIDScheme(cfg.IDScheme)
	if !ok {
		return fmt.Errorf("unknown id scheme %q", cfg.IDScheme)
	}
	items := service.New(coll, logger, service.WithIDs(ids))

	templates, err := views.LoadTemplates()
	if err != nil {
		return err
	}

	list := views.NewListView(items)
	list.OnRender = func(snapshot []models.Item) {
		logger.Debug("items.snapshot", zap.Int("count", len(snapshot)))
	}
	if err := list.Start(ctx); err != nil {
		return fmt.Errorf("start list view: %w", err)
	}
	defer list.Stop()

	if cfg.AdminPasswordHash == "" {
		logger.Warn("auth.no_password", zap.String("user", cfg.AdminUser))
	}
	signer := auth.NewSigner(cfg.JWTSecret)
	srv := &controllers.Server{
		Items:     items,
		List:      list,
		Templates: templates,
		Signer:    signer,
		Accounts:  auth.Accounts{Username: cfg.AdminUser, PasswordHash: cfg.AdminPasswordHash},
		Log:       logger,
	}

	table, err := routes.Table(cfg.RouteTable, srv)
	if err != nil {
		return err
	}
	router := routes.SetupRoutes(table, auth.JWTGuard{Signer: signer}, srv)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes.Wrap(router, cfg.CORSAllow, logger),
		ReadHeaderTimeout: 10 * time.Second,
		// Live feeds are hijacked connections; tie them to ctx so they end on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server.listening", zap.String("addr", cfg.HTTPAddr), zap.String("routes", cfg.RouteTable))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server.shutdown.start")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server.shutdown.complete")
	return err
}
