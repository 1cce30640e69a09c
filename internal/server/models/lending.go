package models

import "time"

// Lending records one book handed to one lendee. ReturnedOn is nil
// while the lending is active.
type Lending struct {
	ID         int64
	BookID     int64
	LendeeID   int64
	LentOn     time.Time
	Due        time.Time
	ReturnedOn *time.Time
}
