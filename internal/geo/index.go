// README: In-memory index of driver availability records with ranked radius queries.
package geo

import (
	"sort"
	"sync"
	"time"

	"mealdrop/internal/types"
)

// driverRecord is the mutable projection of a driver account the index
// maintains: a coarse online/offline flag, the last reported position, and
// the running rating average used for ranking. It says nothing about whether
// the driver is busy; the assignment commit enforces that.
type driverRecord struct {
	pos         types.Position
	hasPos      bool
	isAvailable bool
	ratingSum   float64
	ratingCount int
}

func (r *driverRecord) ratingAvg() float64 {
	if r.ratingCount == 0 {
		return 0
	}
	return r.ratingSum / float64(r.ratingCount)
}

// Candidate is one ranked result of a radius query.
type Candidate struct {
	DriverID   types.ID
	DistanceKm float64
	Rating     float64
}

// Index holds current driver positions in memory. A cold start simply means
// no drivers surface until their next location ping.
type Index struct {
	mu      sync.RWMutex
	drivers map[types.ID]*driverRecord
}

func NewIndex() *Index {
	return &Index{drivers: make(map[types.ID]*driverRecord)}
}

// UpdateLocation records a location ping from the external feed.
func (x *Index) UpdateLocation(id types.ID, lat, lng float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	r := x.record(id)
	r.pos = types.Position{Point: types.Point{Lat: lat, Lng: lng}, ReportedAt: time.Now()}
	r.hasPos = true
}

// SetAvailable toggles the driver's coarse online/offline flag.
func (x *Index) SetAvailable(id types.ID, available bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.record(id).isAvailable = available
}

// IsAvailable reports the current online/offline flag.
func (x *Index) IsAvailable(id types.ID) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	r, ok := x.drivers[id]
	return ok && r.isAvailable
}

// AddRatingSample folds a new customer rating into the driver's average.
func (x *Index) AddRatingSample(id types.ID, rating int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	r := x.record(id)
	r.ratingSum += float64(rating)
	r.ratingCount++
}

// FindCandidates returns every available driver within radiusKm of origin,
// ordered by rating descending, then distance ascending, then driver id.
// An empty result is a normal outcome, not an error.
func (x *Index) FindCandidates(origin types.Point, radiusKm float64) []Candidate {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]Candidate, 0, len(x.drivers))
	for id, r := range x.drivers {
		if !r.isAvailable || !r.hasPos {
			continue
		}
		d := DistanceKm(origin.Lat, origin.Lng, r.pos.Lat, r.pos.Lng)
		if d > radiusKm {
			continue
		}
		out = append(out, Candidate{DriverID: id, DistanceKm: d, Rating: r.ratingAvg()})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].DriverID < out[j].DriverID
	})
	return out
}

// record returns the existing entry or inserts a zero one. Callers hold the
// write lock.
func (x *Index) record(id types.ID) *driverRecord {
	r, ok := x.drivers[id]
	if !ok {
		r = &driverRecord{}
		x.drivers[id] = r
	}
	return r
}
