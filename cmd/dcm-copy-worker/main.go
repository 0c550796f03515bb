// Command dcm-copy-worker consumes extraction requests and writes
// bit-identical copies of the source DICOM file to the extraction
// directory, without touching pixel or tag data.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/intel-hpdd/logging/alert"
	"github.com/intel-hpdd/logging/debug"

	"github.com/smi-extract/extract-worker/amqputil"
	"github.com/smi-extract/extract-worker/config"
	"github.com/smi-extract/extract-worker/extractworker"
	"github.com/smi-extract/extract-worker/fsx"
	"github.com/smi-extract/extract-worker/internal/workerloop"
	"github.com/smi-extract/extract-worker/pool"
)

func main() {
	cfgPath := flag.String("config", "/etc/dcm-copy-worker.hcl", "path to worker configuration file")
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
	worker := extractworker.NewCopyWorker(fsx.OS, fsx.SystemClock, cfg.WorkerConfig(), publisher, pm)

	deliveries, err := amqputil.Consume(ch, cfg.AMQP.Queue, cfg.AMQP.ConsumerTag)
	if err != nil {
		alert.Fatalf("failed to start consuming: %s", err)
	}

	done := make(chan struct{})
	interruptHandler(func() { close(done) })

	workerloop.Run(done, deliveries, worker)
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
