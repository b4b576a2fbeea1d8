package openweather

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const opGeocode = "geocode.resolve"

// Resolve converts a free-text place name into up to limit candidate
// locations, in the provider's relevance order.
func (c *Client) Resolve(ctx context.Context, query string, limit int) ([]domain.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.InvalidInputf(opGeocode, "query cannot be empty")
	}
	if limit < 1 {
		return nil, domain.InvalidInputf(opGeocode, "limit must be at least 1, got %d", limit)
	}

	params := url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(limit)},
	}
	body, err := c.get(ctx, endpointGeocode, opGeocode, "/geo/1.0/direct", params)
	if err != nil {
		return nil, err
	}

	var entries []geocodeEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, domain.UpstreamErrorf(opGeocode, err, "decode response")
	}
	if len(entries) == 0 {
		return nil, domain.NotFoundf(opGeocode, "no location matches %q", query)
	}

	locations := make([]domain.Location, 0, len(entries))
	for i, e := range entries {
		if e.Name == nil || e.Lat == nil || e.Lon == nil {
			return nil, domain.UpstreamErrorf(opGeocode, errMissingField, "candidate %d lacks name or coordinates", i)
		}
		loc := domain.Location{
			Name:      *e.Name,
			Country:   e.Country,
			State:     e.State,
			Latitude:  *e.Lat,
			Longitude: *e.Lon,
		}
		if err := loc.Validate(); err != nil {
			return nil, domain.UpstreamErrorf(opGeocode, err, "candidate %d", i)
		}
		locations = append(locations, loc)
	}
	if len(locations) > limit {
		locations = locations[:limit]
	}

	c.logger.Debug("geocode resolved", "query", query, "candidates", len(locations))
	return locations, nil
}
