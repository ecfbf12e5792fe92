// Package flags holds the CLI flag definitions and setup helpers shared
// by the HAL service binaries.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/trustyvm/keymint-hal/common"
	"github.com/trustyvm/keymint-hal/httpserver"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for HAL dispatch and diagnostics",
}

var CommNetworkFlag = &cli.StringFlag{
	Name:  "comm-network",
	Value: "unix",
	Usage: "comm service socket network: 'unix' or 'tcp'",
}

var CommAddrFlag = &cli.StringFlag{
	Name:  "comm-addr",
	Value: "/run/trusty/commservice.sock",
	Usage: "comm service socket address",
}

var CommResolveSRVFlag = &cli.StringFlag{
	Name:  "comm-resolve-srv",
	Usage: "resolve the comm service endpoint from this SRV domain instead of comm-addr",
}

var CommResolverAddrFlag = &cli.StringFlag{
	Name:  "comm-resolver-addr",
	Value: "127.0.0.53:53",
	Usage: "DNS resolver queried for SRV-based comm service resolution",
}

var NonsecureFlag = &cli.BoolFlag{
	Name:  "nonsecure",
	Value: false,
	Usage: "run the diagnostic boot-state and attestation-identity handshake before registration",
}

var ProvisioningFileFlag = &cli.StringFlag{
	Name:  "provisioning-file",
	Usage: "JSON file with boot info and attestation IDs (nonsecure variant)",
}

var ProvisioningURLFlag = &cli.StringFlag{
	Name:  "provisioning-url",
	Usage: "HTTP provider for boot info and attestation IDs (nonsecure variant)",
}

var WorkersFlag = &cli.IntFlag{
	Name:  "workers",
	Value: 4,
	Usage: "number of dispatch worker threads",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
