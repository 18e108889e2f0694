package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/senec-integration/internal/pkg/config"
	"github.com/anicoll/senec-integration/internal/pkg/contxt"
	"github.com/anicoll/senec-integration/internal/pkg/handler"
	"github.com/anicoll/senec-integration/internal/pkg/model"
	"github.com/anicoll/senec-integration/internal/pkg/web"
)

// minPollTimeout leaves room for one retry on short poll intervals.
const minPollTimeout = time.Minute

func SenecCommand(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("env-file"))
	if err != nil {
		return err
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("listen-addr") {
		cfg.ListenAddr = ctx.String("listen-addr")
	}
	if ctx.IsSet("senec-host") {
		cfg.SenecCfg.Host = ctx.String("senec-host")
	}
	if ctx.IsSet("inverter-host") {
		cfg.InverterCfg.Host = ctx.String("inverter-host")
	}
	if ctx.IsSet("mqtt-host") {
		cfg.MqttCfg.Host = ctx.String("mqtt-host")
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	svcs, err := newServices(ctx.Context, cfg, logger)
	if err != nil {
		return err
	}
	errorChan := make(chan error, 1000)
	return run(ctx.Context, cfg, svcs, errorChan, logger)
}

func newLogger(level string) (*zap.Logger, error) {
	var err error
	logCfg := zap.NewProductionConfig()

	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))), nil
}

func run(ctx context.Context, cfg *config.Config, svcs *services, errorChan chan error, logger *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	if svcs.startMQTT != nil {
		if err := svcs.startMQTT(svcs.ctrl); err != nil {
			return err
		}
	}
	for i := range svcs.sources {
		svcs.publisher.RegisterDevice(&svcs.sources[i].device)
	}

	eg.Go(func() error {
		return pollSources(ctx, svcs, errorChan, logger)
	})

	srv := &http.Server{
		Handler:      newRouter(svcs),
		Addr:         cfg.ListenAddr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	eg.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		sctx, cancel := contxt.NewContext(5 * time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	eg.Go(func() error {
		// handle any async errors from the pollers
		for {
			select {
			case err := <-errorChan:
				if errors.Is(err, web.ErrNoPlant) {
					logger.Error("cloud account has no master plant", zap.Error(err))
					return err
				}
				logger.Warn("poll error", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	err := eg.Wait()
	svcs.bridge.Wait()
	return err
}

func newRouter(svcs *services) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(svcs.registry, promhttp.HandlerOpts{Registry: svcs.registry}))
	mux.Handle("/", handler.LoggingMiddleware(handler.NewMux(svcs.ctrl)))
	return mux
}

// pollSources polls every source once, then on its own interval until ctx
// is done. A poll still running when the next one is due is skipped.
func pollSources(ctx context.Context, svcs *services, errorChan chan error, logger *zap.Logger) error {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))
	var initial sync.WaitGroup
	for _, src := range svcs.sources {
		job := cron.NewChain(cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(func() {
			pollOnce(ctx, svcs, src, errorChan)
		}))
		c.Schedule(cron.Every(src.interval), job)
		logger.Info("polling", zap.String("backend", src.device.Backend.String()), zap.Duration("interval", src.interval))
		initial.Go(job.Run)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	initial.Wait()
	return nil
}

func pollOnce(ctx context.Context, svcs *services, src source, errorChan chan error) {
	pctx, cancel := context.WithTimeout(ctx, max(src.interval, minPollTimeout))
	defer cancel()

	start := time.Now()
	err := src.client.Update(pctx)
	svcs.metrics.ObservePoll(src.device.Backend, start, err)
	if err != nil {
		select {
		case errorChan <- fmt.Errorf("%s poll: %w", src.device.Backend, err):
		default:
		}
		return
	}
	svcs.publisher.PublishData(pctx, map[model.Device][]model.DeviceStatus{src.device: src.client.Sensors()})
}
