// @title          Cozy Cafe API
// @version        1.0.0
// @description    Menu, stock and order lifecycle for a small cafe.
// @BasePath       /api
// @securityDefinitions.apikey StaffToken
// @in             header
// @name           X-Staff-Token
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/MikeMC777/cozy-cafe/internal/config"
	"github.com/MikeMC777/cozy-cafe/internal/health"
	"github.com/MikeMC777/cozy-cafe/internal/memstore"
	"github.com/MikeMC777/cozy-cafe/internal/pgdb"
	"github.com/MikeMC777/cozy-cafe/internal/service"
	"github.com/MikeMC777/cozy-cafe/internal/staff"
	"github.com/MikeMC777/cozy-cafe/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:   "cafe-api",
		Usage:  "cozy cafe ordering backend",
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API and the gRPC health endpoint", Action: serve},
			{Name: "migrate", Usage: "apply pending schema migrations and exit", Action: migrateCmd},
			{Name: "restock", Usage: "set every menu item's stock to its max_stock", Action: restockCmd},
			{
				Name:      "hash-token",
				Usage:     "print the bcrypt hash to put in STAFF_TOKEN_HASH",
				ArgsUsage: "<token>",
				Action:    hashTokenCmd,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("cafe-api")
	}
}

// openStore returns the configured storage driver and a func releasing it.
func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (service.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("[store] in-memory driver: data is lost on restart")
		return memstore.New(), func() {}, nil
	case config.DriverPostgres:
		if cfg.AutoMigrate {
			v, err := pgdb.Migrate(cfg.PostgresDSN)
			if err != nil {
				return nil, nil, err
			}
			log.WithField("version", v).Info("[store] schema up to date")
		}
		pool, err := pgdb.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgres(pool)
		return pg, pg.Close, nil
	}
	return nil, nil, errors.Errorf("unknown STORE_DRIVER %q (postgres, memory)", cfg.StoreDriver)
}

func serve(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	log := cfg.Logger()
	cfg.LogSummary(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	hs, err := health.Listen(cfg.GRPCHealthAddr, log)
	if err != nil {
		return err
	}
	go func() {
		if err := hs.Serve(); err != nil {
			log.WithError(err).Error("[health] stopped")
		}
	}()
	go hs.Watch(ctx, st, 5*time.Second)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(newDeps(cfg, log, st)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("[http] listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("[http] failed to start server")
		}
	}()

	waitForKillSignal(log, killSignalChan())

	cancel()
	hs.Stop()
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	return errors.Wrap(srv.Shutdown(sctx), "http shutdown")
}

func killSignalChan() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}

func waitForKillSignal(log logrus.FieldLogger, ch <-chan os.Signal) {
	switch <-ch {
	case os.Interrupt:
		log.Info("got SIGINT, shutting down")
	case syscall.SIGTERM:
		log.Info("got SIGTERM, shutting down")
	}
}

func migrateCmd(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	v, err := pgdb.Migrate(cfg.PostgresDSN)
	if err != nil {
		return err
	}
	cfg.Logger().WithField("version", v).Info("[migrate] done")
	return nil
}

func restockCmd(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	log := cfg.Logger()
	st, closeStore, err := openStore(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := service.NewCatalog(st, log).RestockAll(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "restocked %d items\n", n)
	return nil
}

func hashTokenCmd(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: cafe-api hash-token <token>", 2)
	}
	h, err := staff.HashToken(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, h)
	return nil
}
