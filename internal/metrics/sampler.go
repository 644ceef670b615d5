package metrics

import (
	"context"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

type appender interface {
	Append(v any) error
}

// Sampler records one host resource sample per interval: CPU load, memory
// used percentage, and disk used percentage. A failed individual read yields
// a partial record rather than aborting the sampler.
type Sampler struct {
	logger   zerolog.Logger
	out      appender
	interval time.Duration
	diskPath string
}

func NewSampler(out appender, interval time.Duration, logger zerolog.Logger) *Sampler {
	return &Sampler{
		logger:   logger,
		out:      out,
		interval: interval,
		diskPath: "/",
	}
}

func (s *Sampler) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("Metrics sampler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sample := s.Sample(ctx)
			if err := s.out.Append(sample); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to append metrics sample")
			}
		case <-ctx.Done():
			s.logger.Info().Msg("Metrics sampler stopping")
			return ctx.Err()
		}
	}
}

// Sample reads the host metrics once. Each failed read is logged and leaves
// the corresponding field nil.
func (s *Sampler) Sample(ctx context.Context) domain.MetricsSample {
	sample := domain.MetricsSample{Timestamp: time.Now().UTC()}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read CPU load")
	} else {
		sample.CPULoad = &avg.Load1
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read memory usage")
	} else {
		used := vm.UsedPercent
		sample.MemoryUsedPercent = &used
	}

	if du, err := disk.UsageWithContext(ctx, s.diskPath); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read disk usage")
	} else {
		used := du.UsedPercent
		sample.DiskUsedPercent = &used
	}

	return sample
}
