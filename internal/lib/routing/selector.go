package routing

import (
	"context"
	"time"

	"github.com/dpup/prefab/logging"
	"golang.org/x/sync/errgroup"

	"github.com/dpup/fireproof/server/internal/lib/danger"
	"github.com/dpup/fireproof/server/internal/lib/geo"
)

const (
	// DefaultMaxConcurrency bounds in-flight routing requests per pass.
	DefaultMaxConcurrency = 5

	// FallbackWarning is attached to any route chosen without avoidance.
	FallbackWarning = "WARNING: This route may pass through or near fire zones"
)

// Selector picks the fastest reachable destination, preferring routes that avoid danger zones
type Selector struct {
	planner        Planner
	maxConcurrency int
	timeout        time.Duration
}

// NewSelector creates a Selector that plans through planner
func NewSelector(planner Planner) *Selector {
	return &Selector{planner: planner, maxConcurrency: DefaultMaxConcurrency}
}

// WithCandidateTimeout bounds each candidate's planning, including any provider rate-limit
// wait. Zero leaves candidates bounded only by the caller's context.
func (s *Selector) WithCandidateTimeout(timeout time.Duration) *Selector {
	s.timeout = timeout
	return s
}

// Select evaluates every candidate under danger-zone avoidance and returns the fastest route
// that avoids all zones. When none does, every candidate is re-planned without avoidance and
// the fastest is returned flagged as a fallback. A nil selection with a nil error means no
// candidate is reachable. Only cancellation of ctx is reported as an error.
func (s *Selector) Select(ctx context.Context, origin geo.Point, candidates []Candidate, zones []danger.Zone, profile Profile) (*Selection, error) {
	ctx = logging.EnsureLogger(ctx)
	candidates = dedupe(candidates)
	if len(candidates) == 0 {
		return nil, nil
	}

	constrained := s.evaluate(ctx, origin, candidates, zones, profile, true)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if best := fastest(constrained, true); best >= 0 {
		return s.selection(constrained[best], candidates[best], false), nil
	}

	unconstrained := s.evaluate(ctx, origin, candidates, zones, profile, false)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	best := fastest(unconstrained, false)
	if best < 0 {
		return nil, nil
	}

	route := unconstrained[best]
	route.Warnings = append(route.Warnings, FallbackWarning)
	route.AvoidsFireZones = false
	return s.selection(route, candidates[best], true), nil
}

func (s *Selector) selection(route *Route, c Candidate, fallback bool) *Selection {
	route.DestinationName = c.Name
	return &Selection{Route: route, Destination: c, Fallback: fallback}
}

// evaluate plans a route to every candidate concurrently. Results are indexed like
// candidates; failed or unroutable candidates leave a nil entry.
func (s *Selector) evaluate(ctx context.Context, origin geo.Point, candidates []Candidate, zones []danger.Zone, profile Profile, avoid bool) []*Route {
	routes := make([]*Route, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			pctx := gctx
			if s.timeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(gctx, s.timeout)
				defer cancel()
			}

			route, err := s.planner.Plan(pctx, PlanRequest{
				Origin:      origin,
				Destination: c.Location,
				Profile:     profile,
				Zones:       zones,
				Avoid:       avoid,
			})
			if err != nil {
				// A bad candidate never stops the others
				logging.Warnw(gctx, "routing: candidate failed",
					"candidate", c.ID, "name", c.Name, "avoid", avoid, "error", err)
				return nil
			}
			routes[i] = route
			return nil
		})
	}
	_ = g.Wait()

	return routes
}

// fastest returns the index of the minimum-duration route, ties broken by lower index. With
// requireSafe only routes that avoid every zone are eligible. Returns -1 if none qualifies.
func fastest(routes []*Route, requireSafe bool) int {
	best := -1
	for i, r := range routes {
		if r == nil || (requireSafe && !r.AvoidsFireZones) {
			continue
		}
		if best < 0 || r.DurationMinutes < routes[best].DurationMinutes {
			best = i
		}
	}
	return best
}

func dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.ID != "" {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}
