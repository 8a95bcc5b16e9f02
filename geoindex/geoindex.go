// Package geoindex answers proximity queries over located entities.
//
// Distance is the planar Euclidean norm on raw (latitude, longitude)
// degree pairs. This is deliberately not a geodesic distance: at
// city-scale radii the approximation is adequate and the source system
// matched entities this way, so upgrading to haversine would change
// which entities fall inside a given radius.
package geoindex

import (
	"math"

	"animal-rescue-service/models"
)

// Located is anything with a position on the map.
type Located interface {
	Position() models.Coordinates
}

// Distance returns the Euclidean distance between two points in
// degree space.
func Distance(a, b models.Coordinates) float64 {
	dLat := a.Latitude - b.Latitude
	dLon := a.Longitude - b.Longitude
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// Nearby returns the entities satisfying predicate whose degree-space
// distance to center is at most radiusDegrees. A full scan: the
// expected entity counts (low thousands) do not justify an index.
func Nearby[T Located](entities []T, center models.Coordinates, radiusDegrees float64, predicate func(T) bool) []T {
	matched := make([]T, 0)
	for _, e := range entities {
		if predicate != nil && !predicate(e) {
			continue
		}
		if Distance(e.Position(), center) <= radiusDegrees {
			matched = append(matched, e)
		}
	}
	return matched
}
