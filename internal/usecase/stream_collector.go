package usecase

import (
	"context"
	"time"

	"SigPull/internal/domain/models"
	drepo "SigPull/internal/domain/repository"
	domsvc "SigPull/internal/domain/service"
	mid "SigPull/internal/middleware"
	xlogger "SigPull/pkg/logger"
)

// StreamCollector feeds live stream prices into the ledger, closing signals
// the moment a level is crossed instead of waiting for the next refresh.
type StreamCollector struct {
	stream    drepo.PriceStream
	ledger    *SignalLedger
	publisher domsvc.SignalPublisher
	archiver  domsvc.HistoryArchiver
	metrics   drepo.Metrics
	pipe      *mid.PricePipeline
	log       *xlogger.Logger
}

func NewStreamCollector(
	stream drepo.PriceStream,
	ledger *SignalLedger,
	publisher domsvc.SignalPublisher,
	archiver domsvc.HistoryArchiver,
	metrics drepo.Metrics,
	pipe *mid.PricePipeline,
	log *xlogger.Logger,
) *StreamCollector {
	return &StreamCollector{
		stream:    stream,
		ledger:    ledger,
		publisher: publisher,
		archiver:  archiver,
		metrics:   metrics,
		pipe:      pipe,
		log:       log,
	}
}

// AttachPipeline routes stream ticks through a throttling pipeline.
func (c *StreamCollector) AttachPipeline(p *mid.PricePipeline) { c.pipe = p }

// IsConnected returns true if the price stream is connected.
func (c *StreamCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *StreamCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *StreamCollector) consume(ctx context.Context, tickCh <-chan models.PriceTick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordAnalysisError("stream")
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.log.Warn("price stream reconnect failed", xlogger.Error(rerr))
					return
				}
				tickCh, errCh = c.stream.Read(ctx)
			}
		case t, ok := <-tickCh:
			if !ok {
				return
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.Process(ctx, t)
			}
		}
	}
}

// Process applies one tick to the ledger and finalizes any closures it
// triggered.
func (c *StreamCollector) Process(ctx context.Context, t models.PriceTick) error {
	if !c.ledger.HasActiveFor(t.Symbol) {
		return nil
	}
	closed, err := c.ledger.ApplyPrices(ctx, map[string]float64{t.Symbol: t.Price}, time.Now())
	for _, e := range closed {
		if perr := c.publisher.SignalClosed(ctx, e); perr != nil {
			c.log.Warn("close event publish failed", xlogger.String("id", e.ID), xlogger.Error(perr))
		}
	}
	if len(closed) > 0 {
		if aerr := c.archiver.Archive(ctx, closed); aerr != nil {
			c.log.Warn("history archive failed", xlogger.Error(aerr))
		}
	}
	return err
}

// Shutdown stops the pipeline and closes the stream.
func (c *StreamCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
