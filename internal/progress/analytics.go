package progress

import (
	"context"
	"time"
)

// MonthCount is one bar of the monthly enrollment chart.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Name  string `json:"name"`  // short month name
	Total int    `json:"total"`
}

// Analytics is the admin dashboard feed.
type Analytics struct {
	MonthlyEnrollments []MonthCount `json:"monthlyEnrollments"`
	TotalEnrollments   int          `json:"totalEnrollments"`
}

type AnalyticsService struct {
	events EventStore
	now    func() time.Time
}

func NewAnalytics(events EventStore) *AnalyticsService {
	return &AnalyticsService{events: events, now: time.Now}
}

// Monthly returns enrollments for the current month and the eleven before it, oldest first.
// Months without enrollments are present with a zero total.
func (a *AnalyticsService) Monthly(ctx context.Context) (*Analytics, error) {
	now := a.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	counts, err := a.events.CountByMonth(ctx, first)
	if err != nil {
		return nil, err
	}
	out := &Analytics{MonthlyEnrollments: make([]MonthCount, 0, 12)}
	for i := 0; i < 12; i++ {
		m := first.AddDate(0, i, 0)
		key := m.Format(monthKey)
		out.MonthlyEnrollments = append(out.MonthlyEnrollments, MonthCount{Month: key, Name: m.Format("Jan"), Total: counts[key]})
		out.TotalEnrollments += counts[key]
	}
	return out, nil
}
