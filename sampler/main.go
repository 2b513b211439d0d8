// Sampler is a periodic multi-sensor sampling daemon. Every sensor kind is read by its
// own worker; successful readings are queued and flushed in batches to an append-only
// log. The pipeline is controlled over a connect service (see sensorctl).
//
// Usage: sampler -bind-address=:8081 -log-file=./sensor.txt -flush-interval=20s
//
// Flags:
//
//	-config: optional YAML configuration file; explicitly set flags take precedence
//	-bind-address: control server bind address (default :8081)
//	-log-file: path to the record log (default ./sensor.txt)
//	-buffer-size: log write buffer in bytes (default 4096)
//	-flush-interval: time between queue drains (default 20s)
//	-queue-capacity: records buffered between sampling and flushing (default 30)
//	-ht-period, -pressure-period, -imu-period: sampling periods (default 2s, 5s, 1s)
//	-failure-rate: fraction of simulated reads that fail
//	-offline: comma separated kinds whose device is absent
//	-autostart: start sampling immediately (default true)
//	-require-sensors: exit if any sensor fails to initialise
//	-mqtt-broker, -mqtt-topic, -mqtt-client-id: optional MQTT mirror of flushed records
//
// Environment: LOGGING_LEVEL (DEBUG, INFO, WARN, ERROR) and LOGGING_FORMAT (CONSOLE, JSON).
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samoilenko/sensorlog/pkg/logging"
	samplerDomain "github.com/samoilenko/sensorlog/sampler/domain"
	samplerInfrastructure "github.com/samoilenko/sensorlog/sampler/infrastructure"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

func endWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
	flag.Usage()
	os.Exit(1)
}

func main() {
	ctx, finish := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer finish()

	config, err := samplerInfrastructure.GetFromCommandLineParameters()
	if err != nil {
		endWithError(err)
	}

	logger := logging.NewZapLoggerFromEnv()
	defer logger.Sync()

	logger.Info("Creating services...")
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := samplerInfrastructure.NewPrometheusMetrics(registry)

	fileStore := samplerInfrastructure.NewFileStore(config.LogPath, config.BufferSize, logger.Named("store"))
	defer func() {
		if err := fileStore.Close(); err != nil {
			logger.Error("error on closing log: %s", err.Error())
		}
	}()

	var mirrors []samplerDomain.Store
	if config.MQTT.Broker != "" {
		mqttLogger := logger.Named("mqtt")
		client, err := samplerInfrastructure.ConnectMQTT(config.MQTT.Broker, config.MQTT.ClientID, mqttLogger)
		if err != nil && client == nil {
			logger.Error("MQTT mirror disabled: %s", err.Error())
		} else {
			if err != nil {
				mqttLogger.Error("%s", err.Error())
			}
			mirror := samplerInfrastructure.NewMQTTMirror(client, config.MQTT.Topic, 0, mqttLogger)
			defer mirror.Close()
			mirrors = append(mirrors, mirror)
		}
	}
	store := samplerDomain.NewTeeStore(fileStore, logger.Named("store"), mirrors...)
	defer store.Close()

	sources := make([]samplerDomain.Source, 0, len(samplerDomain.Kinds()))
	for _, kind := range samplerDomain.Kinds() {
		sc := config.Sensors[kind]
		opts := []samplerInfrastructure.SimulatedAdapterOption{
			samplerInfrastructure.WithFailureRate(sc.FailureRate),
		}
		if sc.Offline {
			opts = append(opts, samplerInfrastructure.WithNotReady())
		}
		sources = append(sources, samplerDomain.Source{
			Kind:    kind,
			Adapter: samplerInfrastructure.NewSimulatedAdapter(kind, opts...),
			Period:  time.Duration(sc.Period),
		})
	}

	pipelineLogger := logger.Named("pipeline")
	if failed := samplerDomain.InitAdapters(ctx, sources, pipelineLogger); len(failed) > 0 {
		if config.RequireSensors {
			logger.Error("%d sensors failed to initialise, exiting", len(failed))
			logger.Sync()
			os.Exit(1)
		}
		logger.Error("%d sensors failed to initialise, running degraded", len(failed))
	}

	pipeline, err := samplerDomain.NewPipeline(samplerDomain.PipelineConfig{
		Sources:       sources,
		Store:         store,
		QueueCapacity: config.QueueCapacity,
		FlushInterval: config.FlushInterval,
		Logger:        pipelineLogger,
		Metrics:       metrics,
	})
	if err != nil {
		endWithError(err)
	}
	defer pipeline.Stop()

	if config.Autostart {
		if err := pipeline.Start(); err != nil {
			logger.Error("error on starting pipeline: %s", err.Error())
		}
	}

	controlLogger := logger.Named("control")
	handlerInterceptors := connect.WithInterceptors(
		samplerInfrastructure.NewPanicRecoveryInterceptor(controlLogger),
	)

	mux := http.NewServeMux()
	samplerInfrastructure.NewControlService(pipeline, controlLogger).Register(mux, handlerInterceptors)
	mux.Handle("/metrics", samplerInfrastructure.MetricsHandler(registry))

	server := &http.Server{
		Addr:              string(config.BindAddress),
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening on %s", config.BindAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listenAndServe: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down control server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("control server: %s", err.Error())
	}

	discarded := pipeline.Stop()
	logger.Info("All components stopped gracefully, %d queued records discarded", discarded)
}
