package application

import (
	"log/slog"
	"time"

	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

const ModuleName = "lead-distribution/lead-claim-engine"

func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func ResolveMetrics(metrics ports.ClaimMetrics) ports.ClaimMetrics {
	if metrics != nil {
		return metrics
	}
	return noopMetrics{}
}

func ResolveNow(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

type noopMetrics struct{}

func (noopMetrics) ObserveClaim(string, string, time.Duration) {}

func (noopMetrics) ObserveRelease(string) {}

func (noopMetrics) ObserveCatalogPage(int) {}

func (noopMetrics) ObserveRecalculation(string) {}
