package distance

import (
	"context"
	"fmt"

	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/travel"
)

// StaticRoute is one known duration. An empty Mode matches every mode.
type StaticRoute struct {
	From    string           `json:"from"`
	To      string           `json:"to"`
	Mode    model.TravelMode `json:"mode"`
	Minutes int              `json:"minutes"`
}

// StaticConfig configures the static provider.
type StaticConfig struct {
	Routes []StaticRoute `json:"routes"`
	// Symmetric also answers the reverse direction of every route.
	Symmetric bool `json:"symmetric"`
}

// Static answers from a fixed table keyed by location key. Unknown routes
// get NOT_FOUND so the engine falls through to geometry.
type Static struct {
	routes map[travel.Key]int
}

// NewStatic builds the table.
func NewStatic(cfg StaticConfig) (*Static, error) {
	s := &Static{routes: make(map[travel.Key]int, len(cfg.Routes))}
	for _, r := range cfg.Routes {
		if r.Minutes < 0 {
			return nil, fmt.Errorf("distance: negative minutes for %s -> %s", r.From, r.To)
		}
		from := model.Location{Kind: model.LocationAddress, Address: r.From}.Key()
		to := model.Location{Kind: model.LocationAddress, Address: r.To}.Key()
		s.routes[travel.Key{Origin: from, Destination: to, Mode: r.Mode}] = r.Minutes
		if cfg.Symmetric {
			s.routes[travel.Key{Origin: to, Destination: from, Mode: r.Mode}] = r.Minutes
		}
	}
	return s, nil
}

// Duration implements travel.Provider.
func (s *Static) Duration(ctx context.Context, req travel.Request) (travel.Response, error) {
	if err := ctx.Err(); err != nil {
		return travel.Response{}, err
	}
	k := travel.Key{Origin: req.Origin.Key(), Destination: req.Destination.Key(), Mode: req.Mode}
	if m, ok := s.routes[k]; ok {
		return travel.Response{Status: travel.StatusOK, DurationSeconds: m * 60}, nil
	}
	k.Mode = ""
	if m, ok := s.routes[k]; ok {
		return travel.Response{Status: travel.StatusOK, DurationSeconds: m * 60}, nil
	}
	return travel.Response{Status: "NOT_FOUND"}, nil
}
