package testutil

import (
	"time"
)

// Reference instants shared by tests.
var (
	T0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	T1 = T0.Add(time.Hour)
)

// At returns T0 shifted by d.
func At(d time.Duration) time.Time {
	return T0.Add(d)
}
