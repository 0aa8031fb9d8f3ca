package notification

import (
	"context"
	"fmt"
	"log"

	"portfolio-riskv1/internal/model"
)

// Monitor turns refresh outcomes and summary snapshots into alerts. Alerts
// are edge-triggered: one on breach, one on recovery, nothing in between.
type Monitor struct {
	notifier Notifier

	// ShortPctThreshold is the short-percentage level (0–100) that triggers
	// a warning. Zero disables the check.
	ShortPctThreshold float64

	refreshFailing bool
	shortBreached  bool
}

// NewMonitor creates a Monitor that delivers through the given notifier.
func NewMonitor(notifier Notifier, shortPctThreshold float64) *Monitor {
	return &Monitor{notifier: notifier, ShortPctThreshold: shortPctThreshold}
}

// RefreshResult reports the outcome of a refresh pass.
func (m *Monitor) RefreshResult(ctx context.Context, err error) {
	if err != nil {
		if !m.refreshFailing {
			m.refreshFailing = true
			m.send(ctx, Alert{
				Level:   AlertCritical,
				Title:   "Portfolio refresh failing",
				Message: fmt.Sprintf("Refresh aborted, previous snapshot still served: %v", err),
			})
		}
		return
	}
	if m.refreshFailing {
		m.refreshFailing = false
		m.send(ctx, Alert{
			Level:   AlertInfo,
			Title:   "Portfolio refresh recovered",
			Message: "Refresh completed successfully after earlier failures.",
		})
	}
}

// CheckSummary inspects a fresh summary for threshold breaches.
func (m *Monitor) CheckSummary(ctx context.Context, summary *model.PortfolioSummary) {
	if m.ShortPctThreshold <= 0 || summary == nil {
		return
	}
	if summary.ShortPercentage >= m.ShortPctThreshold {
		if !m.shortBreached {
			m.shortBreached = true
			m.send(ctx, Alert{
				Level: AlertWarning,
				Title: "Short exposure threshold breached",
				Message: fmt.Sprintf("Short percentage %.1f%% >= threshold %.1f%% (net exposure %.2f)",
					summary.ShortPercentage, m.ShortPctThreshold, summary.NetMarketExposure),
			})
		}
		return
	}
	if m.shortBreached {
		m.shortBreached = false
		m.send(ctx, Alert{
			Level: AlertInfo,
			Title: "Short exposure back under threshold",
			Message: fmt.Sprintf("Short percentage %.1f%% < threshold %.1f%%",
				summary.ShortPercentage, m.ShortPctThreshold),
		})
	}
}

func (m *Monitor) send(ctx context.Context, alert Alert) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Send(ctx, alert); err != nil {
		log.Printf("[notify] WARNING: alert delivery failed: %v", err)
	}
}
