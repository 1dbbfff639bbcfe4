// Command opcua-bridge connects the sessions described by a YAML configuration file, keeps
// them connected and periodically logs their status.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vrischmann/envconfig"

	"github.com/bkuner/opcUaUnifiedAutomation/bridge"
	"github.com/bkuner/opcUaUnifiedAutomation/config"
	"github.com/bkuner/opcUaUnifiedAutomation/logger"
	"github.com/bkuner/opcUaUnifiedAutomation/metrics"
	"github.com/bkuner/opcUaUnifiedAutomation/session"
	"github.com/bkuner/opcUaUnifiedAutomation/uaclient"
)

// Config holds the process settings read from the environment.
type Config struct {
	ConfigFile string `envconfig:"BRIDGE_CONFIG,default=bridge.yaml"`
	LogLevel   string `envconfig:"LOG_LEVEL,default=info"`
	LogFormat  string `envconfig:"LOG_FORMAT,default=json"`

	// MetricsAddr is the listen address of the /metrics endpoint, empty disables it.
	MetricsAddr   string        `envconfig:"METRICS_ADDR"`
	StatInterval  time.Duration `envconfig:"STAT_INTERVAL,default=1m"`
	StatVerbosity int           `envconfig:"STAT_VERBOSITY,default=1"`
	StopTimeout   time.Duration `envconfig:"STOP_TIMEOUT,default=5s"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCfg := Config{}
	if err := envconfig.InitWithOptions(&appCfg, envconfig.Options{AllOptional: true}); err != nil {
		logger.Fatal("failed to read app config", "error", err)
	}

	level, err := logger.ParseLevel(appCfg.LogLevel)
	if err != nil {
		logger.Warn("invalid log level, using info", "error", err)
	}
	format := logger.FormatJSON
	if strings.EqualFold(appCfg.LogFormat, string(logger.FormatConsole)) {
		format = logger.FormatConsole
	}
	l := logger.NewSlogWithOptions(logger.Options{Level: level, Format: format})
	logger.SetDefault(l)

	file, err := config.Load(appCfg.ConfigFile)
	if err != nil {
		logger.Fatal("failed to load configuration", "path", appCfg.ConfigFile, "error", err)
	}

	reg, err := config.Build(file, newClient(l), session.WithLogger(l))
	if err != nil {
		// skipped entries only, the rest of the configuration is usable
		l.Error("configuration errors", "error", err)
	}

	if appCfg.MetricsAddr != "" {
		stop := startMetricsServer(appCfg.MetricsAddr, reg, l)
		defer stop()
	}

	if err := reg.ConnectAll(ctx); err != nil {
		l.Warn("not all sessions connected, retrying in background", "error", err)
	}

	runStats(ctx, reg, appCfg.StatInterval, appCfg.StatVerbosity)

	l.Info("shutting down")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), appCfg.StopTimeout)
	defer stopCancel()
	if err := reg.Close(stopCtx); err != nil {
		l.Error("shutdown", "error", err)
	}
}

func newClient(l logger.Logger) config.ClientFactory {
	return func(sc config.Session) (bridge.Client, error) {
		return uaclient.New(uaclient.Config{
			Endpoint:       sc.Endpoint,
			SecurityPolicy: sc.SecurityPolicy,
			SecurityMode:   sc.SecurityMode,
			CertFile:       sc.CertFile,
			KeyFile:        sc.KeyFile,
			Username:       sc.Username,
			Password:       sc.Password,
		}, l.With("session", sc.Tag))
	}
}

func runStats(ctx context.Context, reg *session.Registry, interval time.Duration, verbosity int) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var sb strings.Builder
			reg.Dump(&sb, verbosity)
			logger.Info("status\n" + sb.String())
		}
	}
}

func startMetricsServer(addr string, reg *session.Registry, l logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.NewRegistry(reg), promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		l.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
