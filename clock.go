package rtd

import "time"

// TimePoint is the wall-clock instant type used throughout this package,
// matching the original source's std::chrono::system_clock::time_point.
type TimePoint = time.Time

// Now returns the current time. TimerService uses this same clock for
// heap ordering, so timer fire order is consistent with values observed
// through Now elsewhere in the program.
func Now() TimePoint {
	return time.Now()
}
