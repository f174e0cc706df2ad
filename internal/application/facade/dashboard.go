package facade

import (
	"context"

	"golang.org/x/sync/errgroup"

	"memberdesk/internal/domain/activity"
	"memberdesk/internal/domain/document"
	"memberdesk/internal/domain/event"
	"memberdesk/internal/domain/member"
	"memberdesk/internal/domain/transaction"
)

const dashboardActivityLimit = 5

// DashboardStats is the admin dashboard aggregate.
type DashboardStats struct {
	MemberCount      int                 `json:"memberCount"`
	EventCount       int                 `json:"eventCount"`
	UpcomingEvents   []event.Event       `json:"upcomingEvents"`
	FinancialSummary transaction.Summary `json:"financialSummary"`
	RecentActivities []activity.Entry    `json:"recentActivities"`
}

// GetDashboardStats fetches the four dashboard parts concurrently.
// POST: all parts populated, or the first error with no partial result
func (f *Facade) GetDashboardStats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := f.store.Count(gctx, document.Query{Collection: member.Collection}.
			Where("status", document.OpEqual, member.StatusActive))
		stats.MemberCount = n
		return err
	})
	g.Go(func() error {
		events, err := f.GetUpcomingEvents(gctx, DefaultUpcomingLimit)
		stats.UpcomingEvents = events
		stats.EventCount = len(events)
		return err
	})
	g.Go(func() error {
		summary, err := f.GetFinancialSummary(gctx)
		stats.FinancialSummary = summary
		return err
	})
	g.Go(func() error {
		entries, err := f.GetRecentActivities(gctx, dashboardActivityLimit)
		stats.RecentActivities = entries
		return err
	})

	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}
