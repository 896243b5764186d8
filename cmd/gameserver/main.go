// Package main provides the realm server binary: the action engine behind a
// gRPC service, with the world clock and a postgres or in-memory store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/fiefdom/internal/config"
	"github.com/cory-johannsen/fiefdom/internal/gameserver"
	"github.com/cory-johannsen/fiefdom/internal/observability"
	"github.com/cory-johannsen/fiefdom/internal/server"
	"github.com/cory-johannsen/fiefdom/internal/storage"
	"github.com/cory-johannsen/fiefdom/internal/storage/memory"
	"github.com/cory-johannsen/fiefdom/internal/storage/postgres"
	"github.com/cory-johannsen/fiefdom/migrations"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	migrate := flag.Bool("migrate", true, "apply pending schema migrations before serving (postgres store only)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gameserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting realm server",
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.String("store", cfg.Engine.Store),
	)

	lifecycle := server.NewLifecycle(logger, 0)

	var store storage.Store
	switch cfg.Engine.Store {
	case "memory":
		store = memory.New()
		logger.Warn("using in-memory store; state is lost on exit")
	default:
		if *migrate {
			if err := migrations.Up(cfg.Database.DSN()); err != nil {
				logger.Fatal("applying migrations", zap.Error(err))
			}
		}
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database, "fiefdom-gameserver")
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = pool.Documents()

		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if err := pool.Health(ctx, 5*time.Second); err != nil {
							st := pool.Stats()
							logger.Warn("database health check failed",
								zap.Error(err),
								zap.Int32("conns", st.Total),
								zap.Int32("acquired", st.Acquired),
							)
						}
					}
				}
			},
			StopFn: func(context.Context) { pool.Close() },
		})
	}

	realm, err := gameserver.NewRealm(ctx, cfg, store, logger)
	if err != nil {
		logger.Fatal("building realm", zap.Error(err))
	}
	defer func() {
		if err := realm.Close(); err != nil {
			logger.Error("closing realm", zap.Error(err))
		}
	}()

	if realm.Clock != nil {
		lifecycle.Add("world-clock", &server.FuncService{
			StartFn: func(ctx context.Context) error {
				stop := realm.Clock.Start(ctx)
				defer stop()
				<-ctx.Done()
				return nil
			},
		})
	}

	grpcServer := grpc.NewServer()
	gameserver.RegisterRealmServer(grpcServer, gameserver.NewRealmService(realm.Engine, cfg.Engine.ResolveTimeout, logger.Named("grpc")))

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func(context.Context) error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func(ctx context.Context) {
			done := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				grpcServer.Stop()
			}
		},
	})

	logger.Info("realm server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}
