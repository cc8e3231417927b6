package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"trendscout/api"
	"trendscout/orchestrator"
	"trendscout/queue"
	"trendscout/scheduler"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, standing queries and the Kafka request consumer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address; overrides server.addr"},
			&cli.BoolFlag{Name: "no-consumer", Usage: "Do not consume research requests from Kafka"},
			&cli.DurationFlag{Name: "shutdown-timeout", Value: 30 * time.Second, Usage: "Grace period for in-flight runs"},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closer, err := orchestrator.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	sched := scheduler.New(svc, logger)
	if err := sched.AddAll(cfg.Schedules); err != nil {
		return err
	}
	sched.Start()

	if len(cfg.Kafka.Brokers) > 0 && !c.Bool("no-consumer") {
		consumer, err := queue.NewConsumer(queue.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.RequestTopic,
			GroupID: cfg.Kafka.GroupID,
			Handler: queue.NewResearchHandler(submitter(svc), logger),
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer consumer.Close()
		if err := consumer.Start(ctx); err != nil {
			return err
		}
	}

	addr := cfg.Server.Addr
	if v := c.String("addr"); v != "" {
		addr = v
	}
	srv := &http.Server{Addr: addr, Handler: api.NewRouter(svc, logger), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", zap.String("addr", addr), zap.Int("schedules", sched.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
	return svc.Shutdown(shutdownCtx)
}

// submitter starts a background run for each consumed request
func submitter(svc *orchestrator.Service) func(ctx context.Context, req *queue.ResearchRequest) error {
	return func(ctx context.Context, req *queue.ResearchRequest) error {
		r := orchestrator.Request{
			RunID:      req.RunID,
			Query:      req.Query,
			SessionID:  req.SessionID,
			SettingsID: req.SettingsID,
		}
		if req.Session != nil {
			r.Session = *req.Session
		}
		_, err := svc.Start(ctx, r)
		if errors.Is(err, orchestrator.ErrInvalidRequest) {
			// redelivery cannot fix a bad request
			return nil
		}
		return err
	}
}
