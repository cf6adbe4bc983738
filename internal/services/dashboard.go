package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/aquagest/apiserver/internal/metrics"
	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/types"
)

// DashboardService aggregates the operator dashboard counters.
type DashboardService struct {
	repos   Repositories
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewDashboardService(repos Repositories, m *metrics.Metrics) *DashboardService {
	return &DashboardService{repos: repos, metrics: m, now: time.Now}
}

// Stats runs the six counts concurrently. If any of them fails every
// counter is reported as zero.
func (s *DashboardService) Stats(ctx context.Context) types.DashboardStats {
	if s.metrics != nil {
		defer s.metrics.ObserveDashboard(time.Now())
	}

	midnight := startOfDay(s.now())
	var stats types.DashboardStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalUsers, err = s.repos.Users.Count(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalRequests, err = s.repos.Requests.Count(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalPoints, err = s.repos.SupplyPoints.Count(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalInquiries, err = s.repos.Inquiries.Count(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		stats.ActivePoints, err = s.repos.SupplyPoints.Count(gctx, store.Where(store.Eq("estado", types.PointActive)))
		return err
	})
	g.Go(func() (err error) {
		stats.RequestsToday, err = s.repos.Requests.Count(gctx, store.Where(store.Gte("fecha_solicitud", midnight)))
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("failed to compute dashboard stats")
		return types.DashboardStats{}
	}
	return stats
}
