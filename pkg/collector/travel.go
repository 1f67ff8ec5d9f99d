package collector

import (
	"context"
	"math"
	"time"

	"github.com/gokaycavdar/go-riskguard/pkg/models"
	"github.com/gokaycavdar/go-riskguard/pkg/storage"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)

	lat1 = lat1 * (math.Pi / 180.0)
	lat2 = lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// TravelDetector flags a login that is more than MinDistanceKm away from the
// user's previous login and happened less than Window after it.
type TravelDetector struct {
	history       storage.HistoryStore
	MinDistanceKm float64
	Window        time.Duration
}

// NewTravelDetector flags more than 500 km covered in less than 2 hours
// unless overridden.
func NewTravelDetector(history storage.HistoryStore) *TravelDetector {
	return &TravelDetector{
		history:       history,
		MinDistanceKm: 500,
		Window:        2 * time.Hour,
	}
}

// Check compares the current location with the user's last login.
// It returns nil when there is nothing to compare against, including a last
// login stamped after at.
func (d *TravelDetector) Check(ctx context.Context, userID string, lat, lon float64, at time.Time) (*bool, error) {
	last, err := d.history.GetLastRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	if last == nil || !last.HasLocation() {
		return nil, nil
	}

	elapsed := at.Sub(last.Timestamp)
	if elapsed < 0 {
		return nil, nil
	}

	distance := Haversine(last.Latitude, last.Longitude, lat, lon)

	impossible := distance > d.MinDistanceKm && elapsed < d.Window
	return &impossible, nil
}

// Remember stores record as the user's last login.
func (d *TravelDetector) Remember(ctx context.Context, record *models.LoginRecord) error {
	return d.history.SaveRecord(ctx, record)
}
