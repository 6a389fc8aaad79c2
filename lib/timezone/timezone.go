package timezone

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Default is where bookmeter and the Japanese Kindle store live, cron
// schedules are read in it unless configured otherwise.
const Default = "Asia/Tokyo"

// Load resolves an IANA zone name, an empty name means Default.
func Load(name string) (*time.Location, error) {
	if name == "" {
		name = Default
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return location, nil
}
