package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RuiFG/streaming/streaming-unique/common/safe"
	"github.com/RuiFG/streaming/streaming-unique/connector"
	"github.com/RuiFG/streaming/streaming-unique/connector/file"
	"github.com/RuiFG/streaming/streaming-unique/connector/kafka"
	"github.com/RuiFG/streaming/streaming-unique/connector/mock"
	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/RuiFG/streaming/streaming-unique/internal/config"
	"github.com/RuiFG/streaming/streaming-unique/log"
	"github.com/RuiFG/streaming/streaming-unique/metrics"
	"github.com/RuiFG/streaming/streaming-unique/selector"
	"github.com/RuiFG/streaming/streaming-unique/window"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	var configPath string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the window over the configured source",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Start(ctx, c)
		},
	}
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file, defaults to unique-window.yml in . or ./config/")
	Command.AddCommand(runCmd)
}

// boundaryPoll bounds how long the drain waits between checks of the armed boundary.
const boundaryPoll = 10 * time.Millisecond

// Start runs the window until ctx is done, the source is exhausted or the window fails.
// Once a finite source is exhausted the batch still open is emitted before Start returns.
func Start(ctx context.Context, c *config.Config) error {
	return start(ctx, c, nil)
}

func start(ctx context.Context, c *config.Config, observe func(batch *element.Batch[element.Record])) error {
	logOptions, err := c.Log.Options()
	if err != nil {
		return err
	}
	log.Setup(logOptions.WithNamed(c.Name))
	logger := log.Global()
	defer func() { _ = logger.Sync() }()

	scope := metrics.NewPrometheusScope(metrics.Options{Prefix: c.Metrics.Prefix, Interval: c.Metrics.Interval})
	defer func() {
		if err := scope.Close(); err != nil {
			logger.Warnw("close metrics scope error", "err", err)
		}
	}()
	if c.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", scope.Handler())
		server := &http.Server{Addr: c.Metrics.Listen, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorw("metrics server stopped", "err", err)
			}
		}()
		defer server.Close()
		logger.Infow("serving metrics", "listen", c.Metrics.Listen)
	}

	keySelector, err := selector.Compile(c.Window.Key, c.Window.Schema)
	if err != nil {
		return err
	}
	emitted := make(chan time.Time, 1)
	sink := mock.NewSink[element.Record](func(batch *element.Batch[element.Record]) {
		logger.Infow("batch", "index", batch.Index, "start", batch.Start, "end", batch.End,
			"size", batch.Len(), "events", batch.Values())
		if observe != nil {
			observe(batch)
		}
		select {
		case emitted <- batch.End:
		default:
		}
	})
	processor, err := window.New[string, element.Record](sink,
		window.WithName[string, element.Record](c.Name),
		window.WithKeySelector[string, element.Record](keySelector.Select),
		window.WithTumblingProcessingTime[string, element.Record](c.Window.Time, c.Window.Start),
		window.WithPolicy[string, element.Record](c.Window.Policy),
		window.WithEmitEmpty[string, element.Record](c.Window.EmitEmpty),
		window.WithLogger[string, element.Record](logger),
		window.WithScope[string, element.Record](scope))
	if err != nil {
		return err
	}
	source, err := newSource(c, logger)
	if err != nil {
		return err
	}

	if err = processor.Open(); err != nil {
		return err
	}
	defer processor.Close()
	sourceErr := safe.Go(func() error {
		return source.Run(ctx, processor.ProcessEvent)
	})

	select {
	case <-ctx.Done():
		logger.Infow("stopping")
	case err = <-processor.Errors():
		return err
	case err = <-sourceErr:
		if err != nil {
			return errors.WithMessage(err, "source failed")
		}
		return awaitOpenBatch(ctx, processor, emitted, logger)
	}
	return nil
}

// awaitOpenBatch waits until the boundary armed when the source ran out has
// expired. The boundary counts as expired once a batch ending at it was
// emitted or the scheduler armed a later one, empty batches that are not
// emitted still advance the scheduler.
func awaitOpenBatch(ctx context.Context, processor *window.Processor[string, element.Record],
	emitted <-chan time.Time, logger log.Logger) error {
	ticker := time.NewTicker(boundaryPoll)
	defer ticker.Stop()
	var deadline time.Time
	for {
		next, armed := processor.Scheduler().NextBoundary()
		switch {
		case !armed:
			// firing, the next boundary is armed after the batch was emitted
		case deadline.IsZero():
			deadline = next
			logger.Infow("source exhausted, waiting for the open batch", "boundary", deadline)
		case next.After(deadline):
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case err := <-processor.Errors():
			return err
		case end := <-emitted:
			if !deadline.IsZero() && !end.Before(deadline) {
				return nil
			}
		case <-ticker.C:
		}
	}
}

func newSource(c *config.Config, logger log.Logger) (connector.Source[element.Record], error) {
	switch c.Source.Type {
	case "file":
		source := file.NewSource(c.Source.File.Path, connector.DecodeJSON(c.Window.Schema), logger)
		if c.Source.File.Follow {
			source.WithFollow(c.Source.File.Poll)
		}
		return source, nil
	case "kafka":
		saramaConfig, err := kafka.NewSaramaConfig(c.Source.Kafka.Version)
		if err != nil {
			return nil, err
		}
		return kafka.NewSource(kafka.Config{
			SaramaConfig: saramaConfig,
			Addresses:    c.Source.Kafka.Addresses,
			Topics:       c.Source.Kafka.Topics,
			GroupId:      c.Source.Kafka.Group,
		}, connector.DecodeJSON(c.Window.Schema), logger)
	default:
		return mock.NewSource(mock.Quotes(c.Source.Mock.Keys, c.Source.Mock.Seed),
			c.Source.Mock.Interval, c.Source.Mock.Number), nil
	}
}
