package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Los_Angeles")
	if err != nil {
		panic(err)
	}
}

// force the timezone the report view is configured in, the job may run
// on machines in arbitrary regions and date partitioning based on
// <time.Time>.Year()/Month()/Day() must not drift with the host clock
func Now() time.Time {
	return time.Now().In(Location)
}

// returns midnight of the day containing t and midnight of the
// following day, in the report timezone
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.In(Location)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Location)
	return start, start.AddDate(0, 0, 1)
}

// the data_date partition key for records extracted at t
func DataDate(t time.Time) string {
	return t.In(Location).Format("2006-01-02")
}
