// Package collector turns raw request data into the typed signals the
// engine scores: client headers into a device posture and access context,
// and the client IP into geolocation, network and travel signals.
//
// Collection is best effort. A failing lookup leaves the corresponding
// field absent and never fails the request.
package collector

import (
	"context"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/gokaycavdar/go-riskguard/pkg/geoip"
	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

const (
	threatReputation = 30
	cleanReputation  = 85
)

// AccessInput is the server-side view of one request.
type AccessInput struct {
	UserID string

	// IPAddress is the raw client IP. It is masked before anything is stored.
	IPAddress string

	// ClientTimezone is the browser-reported IANA zone, if any.
	ClientTimezone string

	// Latitude/Longitude from browser geolocation (optional). When present
	// they take precedence over the GeoIP coordinates.
	Latitude  *float64
	Longitude *float64

	// At defaults to the collector clock.
	At time.Time
}

// AccessCollector derives an AccessContext from an AccessInput.
//
// Every dependency is optional: without a GeoIP locator no location is
// reported, without a Tor list IsTor stays absent, without a threat list
// IPReputation stays absent, and without a travel detector ImpossibleTravel
// stays absent.
type AccessCollector struct {
	geo     geoip.Locator
	tor     *PrefixList
	threats *PrefixList
	travel  *TravelDetector
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures an AccessCollector.
type Option func(*AccessCollector)

func WithLocator(l geoip.Locator) Option {
	return func(c *AccessCollector) { c.geo = l }
}

func WithTorExits(l *PrefixList) Option {
	return func(c *AccessCollector) { c.tor = l }
}

func WithThreats(l *PrefixList) Option {
	return func(c *AccessCollector) { c.threats = l }
}

func WithTravelDetector(d *TravelDetector) Option {
	return func(c *AccessCollector) { c.travel = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *AccessCollector) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *AccessCollector) { c.logger = l }
}

func NewAccessCollector(opts ...Option) *AccessCollector {
	c := &AccessCollector{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect builds the access context for in, together with the login record
// to persist if the access is eventually allowed.
func (c *AccessCollector) Collect(ctx context.Context, in AccessInput) (models.AccessContext, *models.LoginRecord) {
	at := in.At
	if at.IsZero() {
		at = c.now()
	}

	access := models.AccessContext{AccessTime: &at}
	record := &models.LoginRecord{
		UserID:         in.UserID,
		Timestamp:      at,
		MaskedIPPrefix: MaskIP(in.IPAddress),
	}
	if in.IPAddress != "" {
		access.IPAddress = models.String(in.IPAddress)
	}
	if in.ClientTimezone != "" {
		access.Timezone = models.String(in.ClientTimezone)
	}

	var geo *geoip.GeoData
	if c.geo != nil && in.IPAddress != "" {
		var err error
		geo, err = c.geo.GetLocation(in.IPAddress)
		if err != nil {
			c.logger.Debug("geoip lookup failed", zap.String("ip_prefix", record.MaskedIPPrefix), zap.Error(err))
			geo = nil
		}
	}
	if geo != nil {
		if geo.CountryCode != "" {
			access.Country = models.String(geo.CountryCode)
			record.CountryCode = geo.CountryCode
		}
		if geo.CityName != "" {
			access.City = models.String(geo.CityName)
		}
		record.Latitude, record.Longitude = geo.Latitude, geo.Longitude
	}
	if in.Latitude != nil && in.Longitude != nil {
		record.Latitude, record.Longitude = *in.Latitude, *in.Longitude
	}
	if record.HasLocation() {
		access.Latitude = models.Float(record.Latitude)
		access.Longitude = models.Float(record.Longitude)
	}

	access.IsVPN = c.detectVPN(in, geo, at)

	if c.tor != nil && record.MaskedIPPrefix != "" {
		access.IsTor = models.Bool(c.tor.Contains(in.IPAddress))
	}

	if c.threats != nil && record.MaskedIPPrefix != "" {
		rep := cleanReputation
		if c.threats.Contains(in.IPAddress) {
			rep = threatReputation
		}
		access.IPReputation = models.Int(rep)
	}

	if c.travel != nil && in.UserID != "" && record.HasLocation() {
		impossible, err := c.travel.Check(ctx, in.UserID, record.Latitude, record.Longitude, at)
		if err != nil {
			c.logger.Warn("travel check failed", zap.String("user_id", in.UserID), zap.Error(err))
		} else {
			access.ImpossibleTravel = impossible
		}
	}

	return access, record
}

// Remember stores an allowed login so the next access can be checked for
// impossible travel.
func (c *AccessCollector) Remember(ctx context.Context, record *models.LoginRecord) error {
	if c.travel == nil || record == nil {
		return nil
	}
	return c.travel.Remember(ctx, record)
}

// detectVPN reports a datacenter ASN or a mismatch between the IP time zone
// and the browser time zone. It returns nil when neither signal is available.
func (c *AccessCollector) detectVPN(in AccessInput, geo *geoip.GeoData, at time.Time) *bool {
	var known bool

	if c.geo != nil && in.IPAddress != "" {
		asn, _, err := c.geo.GetASN(in.IPAddress)
		if err == nil {
			known = true
			if provider, ok := DatacenterProvider(asn); ok {
				c.logger.Debug("datacenter asn", zap.Uint("asn", asn), zap.String("provider", provider))
				return models.Bool(true)
			}
		}
	}

	if geo != nil && geo.TimeZone != "" && in.ClientTimezone != "" {
		known = true
		if !sameZoneOffset(geo.TimeZone, in.ClientTimezone, at) {
			return models.Bool(true)
		}
	}

	if !known {
		return nil
	}
	return models.Bool(false)
}

// sameZoneOffset reports whether two IANA zones have the same UTC offset at
// the given instant. Aliases such as Asia/Calcutta and Asia/Kolkata compare
// equal. A name that cannot be loaded only matches itself.
func sameZoneOffset(a, b string, at time.Time) bool {
	if a == b {
		return true
	}
	locA, errA := time.LoadLocation(a)
	locB, errB := time.LoadLocation(b)
	if errA != nil || errB != nil {
		return false
	}
	_, offA := at.In(locA).Zone()
	_, offB := at.In(locB).Zone()
	return offA == offB
}
