package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dpup/prefab/logging"
	"golang.org/x/sync/errgroup"

	"github.com/dpup/fireproof/server/internal/config"
	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

// Named regions for wide-area scans, in FIRMS west,south,east,north order
var Regions = map[string]string{
	"USA":        "-125,24,-66,49",
	"CANADA":     "-141,41,-52,84",
	"USA_CANADA": "-141,24,-52,84",
}

// DefaultRegion is scanned when an unknown region name is requested
const DefaultRegion = "USA_CANADA"

// FireSource returns raw detection records for one sensor. *firms.Client satisfies it.
type FireSource interface {
	FetchArea(ctx context.Context, sensor string, box geo.BoundingBox, days int) ([]danger.Record, error)
	FetchAreaRaw(ctx context.Context, sensor, bbox string, days int) ([]danger.Record, error)
}

// FireService fetches, normalizes and merges fire detections across sensors
type FireService struct {
	source FireSource
	config *config.FiresConfig
}

// NewFireService creates a new FireService
func NewFireService(source FireSource, config *config.FiresConfig) *FireService {
	return &FireService{source: source, config: config}
}

// BufferMultiplier is the zone buffer applied to fires returned by this service.
func (s *FireService) BufferMultiplier() float64 {
	return s.config.BufferMultiplier
}

// FetchFires returns fires within radiusKm of center, nearest first. Sensors are queried
// concurrently; a failing sensor is logged and skipped. An error is returned only when every
// sensor fails.
func (s *FireService) FetchFires(ctx context.Context, center geo.Point, radiusKm float64) ([]danger.Observation, error) {
	if !center.Valid() {
		return nil, fmt.Errorf("%w: %v", geo.ErrInvalidCoordinates, center)
	}
	box := geo.BoundingBoxAround(center, radiusKm)

	batches, err := s.fanOut(ctx, func(ctx context.Context, sensor string) ([]danger.Record, error) {
		return s.source.FetchArea(ctx, sensor, box, s.config.LookbackDays)
	})
	if err != nil {
		return nil, err
	}

	filtered := make([][]danger.Observation, len(batches))
	for i, batch := range batches {
		for _, obs := range batch {
			raw := geo.DistanceKm(center, obs.Location)
			if raw > radiusKm {
				continue
			}
			d := geo.Round(raw, 2)
			obs.DistanceKm = &d
			obs.DangerRadiusKm = danger.DangerRadius(obs)
			filtered[i] = append(filtered[i], obs)
		}
	}
	return danger.Merge(filtered, danger.Key), nil
}

// FetchRegion scans a named region without radius filtering. Distances are computed only when
// ref is set. A limit of zero or less returns everything.
func (s *FireService) FetchRegion(ctx context.Context, region string, limit int, ref *geo.Point) ([]danger.Observation, error) {
	bbox, ok := Regions[strings.ToUpper(region)]
	if !ok {
		bbox = Regions[DefaultRegion]
	}

	batches, err := s.fanOut(ctx, func(ctx context.Context, sensor string) ([]danger.Record, error) {
		return s.source.FetchAreaRaw(ctx, sensor, bbox, s.config.LookbackDays)
	})
	if err != nil {
		return nil, err
	}

	for _, batch := range batches {
		for i := range batch {
			if ref != nil {
				d := geo.Round(geo.DistanceKm(*ref, batch[i].Location), 2)
				batch[i].DistanceKm = &d
			}
			batch[i].DangerRadiusKm = danger.DangerRadius(batch[i])
		}
	}

	merged := danger.Merge(batches, danger.LocationKey)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// fanOut runs fetch for every configured sensor concurrently and normalizes the records.
// Results are indexed by sensor order so the merge does not depend on arrival order.
func (s *FireService) fanOut(ctx context.Context, fetch func(context.Context, string) ([]danger.Record, error)) ([][]danger.Observation, error) {
	ctx = logging.EnsureLogger(ctx)
	sensors := s.config.Sensors
	batches := make([][]danger.Observation, len(sensors))
	errs := make([]error, len(sensors))

	var g errgroup.Group
	for i, sensor := range sensors {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
			defer cancel()

			records, err := fetch(sctx, sensor)
			if err != nil {
				logging.Warnw(ctx, "fires: sensor fetch failed", "sensor", sensor, "error", err)
				errs[i] = fmt.Errorf("failed to fetch %s: %w", sensor, err)
				return nil
			}
			batches[i] = normalize(ctx, sensor, records)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err == nil {
			return batches, nil
		}
	}
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return batches, nil
}

func normalize(ctx context.Context, sensor string, records []danger.Record) []danger.Observation {
	out := make([]danger.Observation, 0, len(records))
	skipped := 0
	for _, rec := range records {
		obs, err := danger.Normalize(rec)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, obs)
	}
	if skipped > 0 {
		logging.Debugw(ctx, "fires: skipped malformed records", "sensor", sensor, "count", skipped)
	}
	return out
}
