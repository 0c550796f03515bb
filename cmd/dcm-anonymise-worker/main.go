// Command dcm-anonymise-worker consumes extraction requests and writes
// a de-identified variant of the source DICOM file to the extraction
// directory. Modality CT/MR/SR/etc. go through the primary (in-process)
// backend; XA goes through a supervised external tool when one is
// configured.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/intel-hpdd/logging/alert"
	"github.com/intel-hpdd/logging/debug"

	"github.com/smi-extract/extract-worker/amqputil"
	"github.com/smi-extract/extract-worker/backend"
	"github.com/smi-extract/extract-worker/config"
	"github.com/smi-extract/extract-worker/extractworker"
	"github.com/smi-extract/extract-worker/fsx"
	"github.com/smi-extract/extract-worker/internal/workerloop"
	"github.com/smi-extract/extract-worker/pool"
	"github.com/smi-extract/extract-worker/toolrunner"
)

func main() {
	cfgPath := flag.String("config", "/etc/dcm-anonymise-worker.hcl", "path to worker configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		alert.Fatalf("failed to load config: %s", err)
	}
	debug.Print(config.Display(cfg))

	if err := cfg.Validate(fsx.OS); err != nil {
		alert.Fatalf("invalid configuration: %s", err)
	}

	var pm *pool.Manager
	if cfg.PoolRoot != "" {
		pm = pool.New(fsx.OS, cfg.PoolRoot)
	}

	router := buildBackend(cfg)

	conn, ch, err := amqputil.OpenChannel(cfg.AMQP.URL, amqputil.ChannelConfig{
		Exchange:      cfg.AMQP.Exchange,
		Queue:         cfg.AMQP.Queue,
		RoutingKey:    cfg.AMQP.RoutingKeyBind,
		PrefetchCount: cfg.AMQP.PrefetchCount,
	})
	if err != nil {
		alert.Fatalf("failed to connect to broker: %s", err)
	}
	defer conn.Close()
	defer ch.Close()

	publisher := amqputil.NewPublisher(ch, cfg.AMQP.Exchange)
	worker := extractworker.NewAnonymiseWorker(fsx.OS, fsx.SystemClock, cfg.WorkerConfig(), publisher, router, pm)

	deliveries, err := amqputil.Consume(ch, cfg.AMQP.Queue, cfg.AMQP.ConsumerTag)
	if err != nil {
		alert.Fatalf("failed to start consuming: %s", err)
	}

	done := make(chan struct{})
	interruptHandler(func() { close(done) })

	workerloop.Run(done, deliveries, worker)
}

// buildBackend assembles the modality router: a primary backend that
// every modality falls back to, and an optional external-tool backend
// for XA when one is configured.
func buildBackend(cfg *config.Config) *backend.Router {
	primary := backend.NewPrimary("ctp-compatible", ctpTransform)

	var external backend.AnonymiserBackend
	if cfg.ExternalToolPath != "" {
		runner, err := toolrunner.New(fsx.OS, cfg.ExternalToolPath, cfg.ExternalToolTimeout())
		if err != nil {
			alert.Fatalf("failed to initialise external anonymisation tool: %s", err)
		}
		external = backend.NewExternal(runner)
	}

	return backend.NewRouter(primary, external)
}

func interruptHandler(once func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGQUIT, syscall.SIGTERM)

	go func() {
		stopping := false
		for sig := range c {
			debug.Printf("signal received: %s", sig)
			if !stopping {
				stopping = true
				once()
			}
		}
	}()
}
