// README: Common identifier and coordinate value objects used across modules.
package types

import "time"

type ID string

type Point struct {
	Lat float64
	Lng float64
}

// Position is a point with the time it was reported; used by the driver
// location projection.
type Position struct {
	Point
	ReportedAt time.Time
}
