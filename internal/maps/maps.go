package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"ryde/internal/types"
)

// Estimate is a best-effort route estimate between two points.
type Estimate struct {
	DistanceMeters  int
	DurationSeconds int
}

// Client wraps the Google Maps API for the two oracle calls the dispatch
// core needs: address resolution and route estimates. Both are treated as
// best-effort by callers; a nil result means "no data".
type Client struct {
	client *maps.Client
}

func NewClient(apiKey string) (*Client, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &Client{client: c}, nil
}

// ResolveAddress geocodes a free-form address. Returns (nil, nil) when the
// geocoder has no result for the text.
func (c *Client) ResolveAddress(ctx context.Context, text string) (*types.Point, error) {
	results, err := c.client.Geocode(ctx, &maps.GeocodingRequest{Address: text})
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	loc := results[0].Geometry.Location
	return &types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// EstimateRoute returns driving distance and duration between two points.
// Returns (nil, nil) when no route exists.
func (c *Client) EstimateRoute(ctx context.Context, origin, dest types.Point) (*Estimate, error) {
	routes, _, err := c.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination: fmt.Sprintf("%f,%f", dest.Lat, dest.Lng),
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, nil
	}
	leg := routes[0].Legs[0]
	return &Estimate{
		DistanceMeters:  leg.Distance.Meters,
		DurationSeconds: int(leg.Duration.Seconds()),
	}, nil
}
