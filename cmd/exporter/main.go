package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"pmbus-exporter/internal/config"
	"pmbus-exporter/internal/exporter"
	"pmbus-exporter/internal/i2cbus"
	"pmbus-exporter/internal/output"
	"pmbus-exporter/internal/poller"
	"pmbus-exporter/internal/telemetry"
	"pmbus-exporter/pkg/pmbus"
)

func main() {
	app := cli.NewApp()
	app.Name = "pmbus-exporter"
	app.Usage = "poll a PMBus power supply over I2C and export its telemetry as Prometheus metrics"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "path to YAML config `file`",
			EnvVar: "PROMETHEUS_PMBUS_EXPORTER_CONFIG",
		},
		cli.StringFlag{
			Name:   "device, d",
			Usage:  "I2C `device` node to poll (overrides config)",
			EnvVar: "PROMETHEUS_PMBUS_EXPORTER_DEVICE",
		},
		cli.StringFlag{
			Name:   "listen, l",
			Usage:  "exporter listen `address` (overrides config)",
			EnvVar: "PROMETHEUS_PMBUS_EXPORTER_ADDRESS",
		},
		cli.DurationFlag{
			Name:   "interval",
			Usage:  "poll interval (overrides config)",
			EnvVar: "PROMETHEUS_PMBUS_EXPORTER_INTERVAL",
		},
	}
	app.Action = run
	app.Commands = []cli.Command{
		{
			Name:  "snapshot",
			Usage: "poll every module once and write the readings to JSON and/or CSV files",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "json", Usage: "path to write a JSON snapshot"},
				cli.StringFlag{Name: "csv", Usage: "path to write a CSV snapshot"},
			},
			Action: snapshot,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("pmbus-exporter: %v", err)
	}
}

// loadConfig merges the optional YAML file with flag overrides.
func loadConfig(path, device, listen string, interval time.Duration) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if device != "" {
		cfg.Bus.Device = device
	}
	if listen != "" {
		cfg.Exporter.Listen = listen
	}
	if interval > 0 {
		cfg.Poll.Interval = config.Duration(interval)
	}
	return cfg, config.Validate(cfg)
}

// buildPipeline opens the bus and wires modules, cache and poller.
func buildPipeline(cfg config.Config) (*i2cbus.Bus, *poller.Poller, *telemetry.Cache, error) {
	// Failing to open the bus is the only fatal runtime error; everything
	// past this point degrades per metric.
	bus, err := i2cbus.Open(cfg.Bus.Device)
	if err != nil {
		return nil, nil, nil, err
	}

	names := make([]string, 0, len(cfg.Modules))
	modules := make([]poller.Module, 0, len(cfg.Modules))
	for _, mc := range cfg.Modules {
		names = append(names, mc.Name)
		modules = append(modules, poller.Module{
			Name:         mc.Name,
			Device:       pmbus.NewClient(bus.Device(mc.Address), mc.Address, *cfg.Bus.PEC),
			VOutExponent: mc.VOutExponent,
		})
	}

	cache := telemetry.NewCache(poller.MetricSet(names))
	p, err := poller.New(poller.Config{
		Interval:     cfg.Poll.Interval.Std(),
		Retries:      *cfg.Poll.Retries,
		RetryBackoff: cfg.Poll.RetryBackoff.Std(),
	}, modules, cache)
	if err != nil {
		bus.Close()
		return nil, nil, nil, err
	}
	return bus, p, cache, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), c.String("device"), c.String("listen"), c.Duration("interval"))
	if err != nil {
		return err
	}

	bus, p, cache, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("received signal: %v, shutting down...", s)
		cancel()
	}()

	go p.Run(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(exporter.New(cache, cfg.Exporter.Namespace))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: cfg.Exporter.Listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("polling %s every %s, metrics on %s/metrics",
		cfg.Bus.Device, cfg.Poll.Interval.Std(), cfg.Exporter.Listen)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func snapshot(c *cli.Context) error {
	outJSON := c.String("json")
	outCSV := c.String("csv")
	if outJSON == "" && outCSV == "" {
		return fmt.Errorf("no output specified: set --json and/or --csv")
	}

	cfg, err := loadConfig(c.GlobalString("config"), c.GlobalString("device"),
		c.GlobalString("listen"), c.GlobalDuration("interval"))
	if err != nil {
		return err
	}

	bus, p, cache, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	p.PollOnce(context.Background())
	snap := cache.Snapshot()

	if outJSON != "" {
		if err := output.WriteJSON(outJSON, snap); err != nil {
			return err
		}
	}
	if outCSV != "" {
		if err := output.WriteCSV(outCSV, snap); err != nil {
			return err
		}
	}
	return nil
}
