package domain

import "time"

// RaceStatus represents the lifecycle state of a race.
type RaceStatus string

const (
	RaceScheduled RaceStatus = "scheduled"
	RaceRunning   RaceStatus = "running"
	RaceCompleted RaceStatus = "completed"
	RaceCancelled RaceStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s RaceStatus) Valid() bool {
	switch s {
	case RaceScheduled, RaceRunning, RaceCompleted, RaceCancelled:
		return true
	}
	return false
}

// Race is a scheduled event players can sign up for.
type Race struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	DistanceMeters int        `json:"distance_m"`
	StartsAt       time.Time  `json:"starts_at"`
	Status         RaceStatus `json:"status"`
}

// SignupResult is the outcome of a signup attempt. Exactly one of the fields
// is true on success.
type SignupResult struct {
	Registered        bool
	AlreadyRegistered bool
}
