package service

import "time"

// timeNow is the service clock. Stored times are UTC at microsecond precision.
var timeNow = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
