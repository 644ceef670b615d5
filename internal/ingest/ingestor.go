// Package ingest maintains the single live subscription to the runtime event
// source and fans each accepted event out to the state store, ring buffer,
// durable log, and detector.
package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/auto-dns/buildwatch/internal/event"
	"github.com/auto-dns/buildwatch/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// minSessionDuration is how long a subscription must survive, or deliver at
// least one event, before it counts as established. A stream that ends sooner
// is a failed attempt and takes the backoff path.
const minSessionDuration = 10 * time.Second

var errSessionNotEstablished = errors.New("event stream ended before the session was established")

type stateStore interface {
	Apply(evt domain.Event)
	Document() domain.StateDocument
}

type eventBuffer interface {
	Push(evt domain.Event)
}

type detector interface {
	Inspect(evt domain.Event)
}

type appender interface {
	Append(v any) error
}

type stateWriter interface {
	WriteThrottled(get func() domain.StateDocument) error
}

type lifecycle interface {
	SetRunning() error
	SetDegraded() error
}

// Ingestor owns the subscription to the event source. It reconnects with
// capped exponential backoff on transient disconnection and never blocks on a
// slow downstream: hand-off to the processing loop goes through a bounded
// queue that drops the oldest entry under sustained overflow.
type Ingestor struct {
	logger    zerolog.Logger
	source    event.Source
	store     stateStore
	ring      eventBuffer
	detector  detector
	eventLog  appender
	stateFile stateWriter
	lifecycle lifecycle

	queue             chan domain.Event
	dropped           atomic.Int64
	degradedThreshold int
	maxBackoff        time.Duration
}

type Options struct {
	QueueSize         int
	DegradedThreshold int
	MaxBackoff        time.Duration
}

func New(source event.Source, store stateStore, ring eventBuffer, det detector, eventLog appender, stateFile stateWriter, lc lifecycle, opts Options, logger zerolog.Logger) *Ingestor {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.DegradedThreshold <= 0 {
		opts.DegradedThreshold = 5
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = time.Minute
	}
	return &Ingestor{
		logger:            logger,
		source:            source,
		store:             store,
		ring:              ring,
		detector:          det,
		eventLog:          eventLog,
		stateFile:         stateFile,
		lifecycle:         lc,
		queue:             make(chan domain.Event, opts.QueueSize),
		degradedThreshold: opts.DegradedThreshold,
		maxBackoff:        opts.MaxBackoff,
	}
}

// Dropped returns the number of events discarded from the hand-off queue.
func (i *Ingestor) Dropped() int64 {
	return i.dropped.Load()
}

// Run subscribes, forwards, and reconnects until the context is cancelled.
// It returns ctx.Err() only; subscription failures are retried forever.
func (i *Ingestor) Run(ctx context.Context) error {
	go i.processLoop(ctx)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = i.maxBackoff
	bo.MaxElapsedTime = 0

	failures := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ch, err := i.source.Subscribe(ctx)
		if err == nil {
			i.logger.Info().Msg("Subscribed to runtime event stream")
			established := i.forward(ctx, ch)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if established {
				failures = 0
				bo.Reset()
				i.logger.Info().Msg("Event stream ended, reconnecting")
				continue
			}
			err = errSessionNotEstablished
		}

		failures++
		metrics.RecordSourceReconnect()
		if failures >= i.degradedThreshold {
			if derr := i.lifecycle.SetDegraded(); derr != nil {
				i.logger.Warn().Err(derr).Msg("Could not mark lifecycle degraded")
			}
		}
		wait := bo.NextBackOff()
		i.logger.Warn().Err(err).Int("consecutive_failures", failures).Dur("retry_in", wait).
			Msg("Event source subscription failed")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// forward moves events from the live subscription into the bounded hand-off
// queue, dropping the oldest queued event when full. It reports whether the
// session established itself: delivered at least one event or outlived
// minSessionDuration. The running transition happens on establishment, not on
// Subscribe returning, so a stream the runtime drops immediately never resets
// the backoff.
func (i *Ingestor) forward(ctx context.Context, ch <-chan domain.Event) bool {
	established := false
	timer := time.NewTimer(minSessionDuration)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return established
		case <-timer.C:
			if !established {
				established = true
				i.markRunning()
			}
		case evt, ok := <-ch:
			if !ok {
				return established
			}
			if !established {
				established = true
				i.markRunning()
			}
			i.enqueue(evt)
		}
	}
}

func (i *Ingestor) markRunning() {
	if err := i.lifecycle.SetRunning(); err != nil {
		i.logger.Warn().Err(err).Msg("Could not mark lifecycle running")
	}
}

func (i *Ingestor) enqueue(evt domain.Event) {
	for {
		select {
		case i.queue <- evt:
			return
		default:
		}
		select {
		case <-i.queue:
			i.dropped.Add(1)
			metrics.RecordEventDropped()
		default:
		}
	}
}

func (i *Ingestor) processLoop(ctx context.Context) {
	for {
		select {
		case evt := <-i.queue:
			i.process(evt)
		case <-ctx.Done():
			// Drain whatever is already queued so accepted events are not
			// lost on shutdown.
			for {
				select {
				case evt := <-i.queue:
					i.process(evt)
				default:
					return
				}
			}
		}
	}
}

// process applies one accepted event in the fixed order: state store, ring
// buffer, durable log, detector. Log write failures are logged, never fatal
// to the ingestion path.
func (i *Ingestor) process(evt domain.Event) {
	metrics.RecordEventIngested()

	i.store.Apply(evt)
	i.ring.Push(evt)
	if err := i.eventLog.Append(evt); err != nil {
		i.logger.Warn().Err(err).Msg("Failed to append event to durable log")
	}
	i.detector.Inspect(evt)

	if err := i.stateFile.WriteThrottled(i.store.Document); err != nil {
		i.logger.Warn().Err(err).Msg("Failed to persist state file")
	}
}
