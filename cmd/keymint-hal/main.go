package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/trustyvm/keymint-hal/bringup"
	"github.com/trustyvm/keymint-hal/cmd/flags"
	"github.com/trustyvm/keymint-hal/comms"
	"github.com/trustyvm/keymint-hal/dispatch"
	"github.com/trustyvm/keymint-hal/httpserver"
	"github.com/trustyvm/keymint-hal/interfaces"
	"github.com/trustyvm/keymint-hal/provision"
	"github.com/trustyvm/keymint-hal/registry"
)

var serviceFlags = append([]cli.Flag{
	flags.ListenAddrFlag,
	flags.CommNetworkFlag,
	flags.CommAddrFlag,
	flags.CommResolveSRVFlag,
	flags.CommResolverAddrFlag,
	flags.NonsecureFlag,
	flags.ProvisioningFileFlag,
	flags.ProvisioningURLFlag,
	flags.WorkersFlag,
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "keymint-hal",
		Usage: "Serve the KeyMint HAL fronts over the shared channel to the trusted VM",
		Flags: serviceFlags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String(flags.ListenAddrFlag.Name)
			commNetwork := cCtx.String(flags.CommNetworkFlag.Name)
			commAddr := cCtx.String(flags.CommAddrFlag.Name)
			commSRV := cCtx.String(flags.CommResolveSRVFlag.Name)
			resolverAddr := cCtx.String(flags.CommResolverAddrFlag.Name)
			nonsecure := cCtx.Bool(flags.NonsecureFlag.Name)
			provisioningFile := cCtx.String(flags.ProvisioningFileFlag.Name)
			provisioningURL := cCtx.String(flags.ProvisioningURLFlag.Name)
			workers := cCtx.Int(flags.WorkersFlag.Name)

			logger := flags.SetupLogger(cCtx)

			if nonsecure {
				logger.Warn("Non-secure Trusty KM HAL service is starting")
			} else {
				logger.Info("Trusty KM HAL service is starting")
			}

			// Resolve the comm service endpoint
			logger.Info("Looking up comm service",
				"service", interfaces.CommServiceName,
				"network", commNetwork, "addr", commAddr)
			if commSRV != "" {
				endpoint, err := comms.ResolveSRVEndpoint(commSRV, resolverAddr)
				if err != nil {
					logger.Error("Failed to resolve comm service endpoint", "domain", commSRV, "err", err)
					return err
				}
				logger.Info("Resolved comm service endpoint", "domain", commSRV, "endpoint", endpoint)
				commNetwork, commAddr = "tcp", endpoint
			}

			// Provisioning data provider (diagnostic variant only)
			var provider provision.Provider
			if nonsecure {
				switch {
				case provisioningFile != "":
					p, err := provision.LoadStaticProviderFile(provisioningFile)
					if err != nil {
						logger.Error("Failed to load provisioning data", "file", provisioningFile, "err", err)
						return err
					}
					provider = p
				case provisioningURL != "":
					provider = provision.NewRemoteProvider(provisioningURL)
				default:
					logger.Error("nonsecure requires provisioning-file or provisioning-url")
					return errors.New("nonsecure requires provisioning-file or provisioning-url")
				}
			}

			serviceRegistry := registry.NewLocalRegistry()
			pool := dispatch.NewPool(workers, logger)

			seq, err := bringup.New(bringup.Config{
				Dialer: &comms.SocketDialer{
					Network: commNetwork,
					Address: commAddr,
					Timeout: 10 * time.Second,
				},
				Nonsecure: nonsecure,
				Provider:  provider,
				Registry:  serviceRegistry,
				Log:       logger,
			})
			if err != nil {
				logger.Error("Invalid bring-up configuration", "err", err)
				return err
			}

			if err := seq.Run(); err != nil {
				logger.Error("Bring-up failed, terminating", "err", err)
				return err
			}
			defer seq.Channel().Close()

			cfg := flags.ConfigureServer(cCtx, logger, listenAddr)
			server, err := httpserver.New(cfg, serviceRegistry, pool, func() string {
				return string(seq.State())
			})
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}
			server.RunInBackground()

			poolDone := make(chan struct{})
			go func() {
				pool.Run()
				close(poolDone)
			}()

			logger.Info("HAL services registered and serving")

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			select {
			case <-exit:
				logger.Info("Shutdown signal received")
			case <-poolDone:
				// Workers never exit on their own; treat this as fatal.
				server.Shutdown()
				return fmt.Errorf("dispatch pool exited unexpectedly, terminating HAL service")
			}

			server.Shutdown()
			pool.Close()
			<-poolDone
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
