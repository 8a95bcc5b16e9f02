// Package mapaggr clusters report pins for map rendering. Reports are
// bucketed into S2 cells sized to the requested viewport; dense cells
// collapse into a single weighted pin, sparse cells keep their
// individual reports.
package mapaggr

import (
	"animal-rescue-service/models"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

type aggrUnit struct {
	cnt         int64
	containment [4]bool // one per child cell
	pin         s2.Point
	origPoints  []*models.MapPoint
}

// Aggregator accumulates report pins and collapses them into
// viewport-sized clusters.
type Aggregator struct {
	level  int
	points map[s2.CellID][]*models.MapPoint
	aggrs  map[s2.CellID]*aggrUnit
}

const (
	expectedCells       = 16
	minLevel            = 2
	maxLevel            = 18
	minPinsToCluster    = 10
	weightDiffThreshold = 8
)

// CellBaseLevel picks the S2 cell level at which the viewport is
// covered by roughly expectedCells cells.
func CellBaseLevel(vp models.ViewPort, center models.Coordinates) int {
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LonMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LonMax)

	rect := s2.Rect{
		Lat: r1.Interval{
			Lo: minLL.Lat.Radians(),
			Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{
			Lo: minLL.Lng.Radians(),
			Hi: maxLL.Lng.Radians()},
	}

	vpArea := rect.Area()

	centerCell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(center.Latitude, center.Longitude))

	for lv := maxLevel; lv >= minLevel; lv-- {
		cc := s2.CellFromCellID(centerCell.Parent(lv))
		if vpArea/cc.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minLevel
}

// New builds an aggregator for the given viewport.
func New(vp models.ViewPort) *Aggregator {
	return &Aggregator{
		level:  CellBaseLevel(vp, vp.Center()),
		points: make(map[s2.CellID][]*models.MapPoint),
		aggrs:  make(map[s2.CellID]*aggrUnit),
	}
}

// AddPoint records one report pin.
func (a *Aggregator) AddPoint(pt models.MapPoint) {
	pc := s2.CellIDFromLatLng(s2.LatLngFromDegrees(pt.Latitude, pt.Longitude))
	parent := pc.Parent(maxLevel)
	if a.points[parent] == nil {
		a.points[parent] = make([]*models.MapPoint, 0)
	}
	a.points[parent] = append(a.points[parent], &pt)
}

// ToArray aggregates the accumulated pins and returns the pins to
// render. Clusters above minPinsToCluster are emitted as a single
// counted pin without report details.
func (a *Aggregator) ToArray() []models.MapPoint {
	a.aggregate()
	r := make([]models.MapPoint, 0, len(a.aggrs))
	for _, unit := range a.aggrs {
		ll := s2.LatLngFromPoint(unit.pin)
		if unit.cnt <= minPinsToCluster {
			for _, pt := range unit.origPoints {
				r = append(r, *pt)
			}
		} else {
			r = append(r, models.MapPoint{
				Latitude:  ll.Lat.Degrees(),
				Longitude: ll.Lng.Degrees(),
				Count:     unit.cnt,
			})
		}
	}
	return r
}

func (a *Aggregator) computeCentroid(pCell s2.CellID, chAggrs []*aggrUnit) s2.Point {
	fChPins := make([]s2.Point, 0)
	maxWeight := int64(0)
	for _, aggr := range chAggrs {
		if maxWeight < aggr.cnt {
			maxWeight = aggr.cnt
		}
	}
	// Children much lighter than the heaviest sibling don't pull the pin.
	for _, aggr := range chAggrs {
		if maxWeight/aggr.cnt < weightDiffThreshold {
			fChPins = append(fChPins, aggr.pin)
		}
	}
	switch len(fChPins) {
	case 1:
		return fChPins[0]
	case 2:
		return s2.PlanarCentroid(fChPins[0], fChPins[0], fChPins[1])
	case 3:
		return s2.PlanarCentroid(fChPins[0], fChPins[1], fChPins[2])
	case 4:
		return s2.PointFromLatLng(pCell.LatLng())
	}
	return s2.PointFromLatLng(pCell.LatLng())
}

func (a *Aggregator) aggrStep(level int) {
	if level < a.level {
		return
	}
	// Roll the aggregation units one S2 cell level up.
	nextAggrs := make(map[s2.CellID]*aggrUnit)
	for cell, unit := range a.aggrs {
		p := cell.Parent(level)
		eu, ok := nextAggrs[p]
		if !ok {
			// New parent cell: seed it from this child alone,
			// containment starts empty.
			nextAggrs[p] = &aggrUnit{
				cnt:         unit.cnt,
				containment: [4]bool{},
				origPoints:  unit.origPoints,
			}
		} else {
			nextAggrs[p] = &aggrUnit{
				cnt:         eu.cnt + unit.cnt,
				containment: eu.containment,
			}
			if eu.cnt+unit.cnt <= minPinsToCluster {
				nextAggrs[p].origPoints = append(eu.origPoints, unit.origPoints...)
			}
		}
		// Record which quadrant of the parent this child occupies.
		nextAggrs[p].containment[cell.ChildPosition(level+1)] = true
	}
	// Pin each new aggregation at the centroid of its children's pins.
	for pCell, pUnit := range nextAggrs {
		chAggrs := make([]*aggrUnit, 0)
		for i, v := range pUnit.containment {
			if v {
				chCell := pCell.Children()[i]
				if chAggr, ok := a.aggrs[chCell]; ok {
					chAggrs = append(chAggrs, chAggr)
				}
			}
		}
		pUnit.pin = a.computeCentroid(pCell, chAggrs)
	}
	a.aggrs = nextAggrs
	a.aggrStep(level - 1)
}

func (a *Aggregator) aggregate() {
	for cell, pts := range a.points {
		a.aggrs[cell] = &aggrUnit{
			cnt:         int64(len(pts)),
			containment: [4]bool{true, true, true, true},
			pin:         s2.PointFromLatLng(cell.LatLng()),
		}
		if len(pts) <= minPinsToCluster {
			a.aggrs[cell].origPoints = pts
		}
	}
	a.aggrStep(maxLevel - 1)
}
