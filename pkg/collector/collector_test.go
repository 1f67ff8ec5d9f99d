package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gokaycavdar/go-riskguard/pkg/geoip"
	"github.com/gokaycavdar/go-riskguard/pkg/models"
	"github.com/gokaycavdar/go-riskguard/pkg/storage"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fakeLocator struct {
	locations map[string]*geoip.GeoData
	asns      map[string]uint
}

func (f *fakeLocator) GetLocation(ip string) (*geoip.GeoData, error) {
	if g, ok := f.locations[ip]; ok {
		return g, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeLocator) GetASN(ip string) (uint, string, error) {
	if asn, ok := f.asns[ip]; ok {
		return asn, "test-org", nil
	}
	return 0, "", errors.New("not found")
}

var (
	newYork = &geoip.GeoData{CountryCode: "US", CityName: "New York", Latitude: 40.7128, Longitude: -74.0060, TimeZone: "America/New_York"}
	london  = &geoip.GeoData{CountryCode: "GB", CityName: "London", Latitude: 51.5074, Longitude: -0.1278, TimeZone: "Europe/London"}
	mumbai  = &geoip.GeoData{CountryCode: "IN", CityName: "Mumbai", Latitude: 19.0760, Longitude: 72.8777, TimeZone: "Asia/Kolkata"}
)

func testLocator() *fakeLocator {
	return &fakeLocator{
		locations: map[string]*geoip.GeoData{
			"203.0.113.10": newYork,
			"198.51.100.7": london,
			"52.95.110.1":  newYork,
			"192.0.2.44":   mumbai,
		},
		asns: map[string]uint{
			"203.0.113.10": 7922,
			"198.51.100.7": 2856,
			"52.95.110.1":  16509,
		},
	}
}

func TestMaskIP(t *testing.T) {
	assert.Equal(t, "192.168.1.0/24", MaskIP("192.168.1.77"))
	assert.Equal(t, "2001:db8:85a3::/64", MaskIP("2001:db8:85a3::8a2e:370:7334"))
	assert.Equal(t, "", MaskIP("not-an-ip"))
	assert.Equal(t, "", MaskIP(""))
}

func TestReadPrefixList(t *testing.T) {
	src := strings.NewReader(`# tor exits
185.220.101.1
185.220.101.200	5

10.0.0.0/8
garbage
`)

	l, err := ReadPrefixList(src)
	require.NoError(t, err)

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Contains("10.1.2.3"))
	assert.True(t, l.Contains("185.220.101.99"))
	assert.False(t, l.Contains("185.220.102.1"))

	l.Add("185.220.102.1")
	assert.True(t, l.Contains("185.220.102.50"))
	l.Remove("185.220.102.9")
	assert.False(t, l.Contains("185.220.102.50"))
}

func TestPrefixListMatchesCIDRRanges(t *testing.T) {
	l, err := ReadPrefixList(strings.NewReader("10.0.0.0/8\n198.51.100.0/23\n203.0.113.9/24\n2001:db8::/32\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, l.Len())

	assert.True(t, l.Contains("10.1.2.3"))
	assert.True(t, l.Contains("198.51.100.7"))
	assert.True(t, l.Contains("198.51.101.250"))
	assert.True(t, l.Contains("203.0.113.50"))
	assert.True(t, l.Contains("2001:db8:1::5"))
	assert.True(t, l.Contains("::ffff:10.9.9.9"))

	assert.False(t, l.Contains("11.0.0.1"))
	assert.False(t, l.Contains("198.51.102.1"))
	assert.False(t, l.Contains("2001:db9::1"))

	l.Remove("10.0.0.0/8")
	assert.False(t, l.Contains("10.1.2.3"))
	assert.Equal(t, 3, l.Len())

	assert.False(t, l.Add("10.0.0.0/33"))
	assert.True(t, l.Add("10.0.0.0/8"))
	assert.True(t, l.Add("10.0.0.0/8"))
	assert.Equal(t, 4, l.Len())
}

func TestCollectFlagsTorFromCIDRFeed(t *testing.T) {
	c := NewAccessCollector(
		WithLocator(testLocator()),
		WithTorExits(NewPrefixList("203.0.0.0/16")),
		WithThreats(NewPrefixList("203.0.112.0/22")),
	)

	access, _ := c.Collect(context.Background(), AccessInput{UserID: "user-1", IPAddress: "203.0.113.10"})

	require.NotNil(t, access.IsTor)
	assert.True(t, *access.IsTor)
	require.NotNil(t, access.IPReputation)
	assert.Equal(t, 30, *access.IPReputation)
}

func TestLoadPrefixList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threats.txt")
	require.NoError(t, os.WriteFile(path, []byte("198.51.100.1\n"), 0o600))

	l, err := LoadPrefixList(path)
	require.NoError(t, err)
	assert.True(t, l.Contains("198.51.100.7"))

	_, err = LoadPrefixList(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestHaversine(t *testing.T) {
	d := Haversine(newYork.Latitude, newYork.Longitude, london.Latitude, london.Longitude)
	assert.InDelta(t, 5570, d, 15)
	assert.InDelta(t, 0, Haversine(1, 1, 1, 1), 1e-9)
}

func TestDatacenterProvider(t *testing.T) {
	name, ok := DatacenterProvider(16509)
	assert.True(t, ok)
	assert.Equal(t, "Amazon AWS", name)

	_, ok = DatacenterProvider(7922)
	assert.False(t, ok)
}

func TestTravelDetector(t *testing.T) {
	ctx := context.Background()
	d := NewTravelDetector(storage.NewMemoryStore())

	got, err := d.Check(ctx, "user-1", london.Latitude, london.Longitude, now)
	require.NoError(t, err)
	assert.Nil(t, got, "no history yet")

	require.NoError(t, d.Remember(ctx, &models.LoginRecord{
		UserID: "user-1", Timestamp: now.Add(-time.Hour), Latitude: newYork.Latitude, Longitude: newYork.Longitude,
	}))

	got, err = d.Check(ctx, "user-1", london.Latitude, london.Longitude, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, *got)

	got, err = d.Check(ctx, "user-1", london.Latitude, london.Longitude, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, *got, "three hours is enough")

	got, err = d.Check(ctx, "user-1", 40.73, -73.99, now)
	require.NoError(t, err)
	assert.False(t, *got, "same city")
}

func TestTravelDetectorIgnoresLoginsFromTheFuture(t *testing.T) {
	ctx := context.Background()
	d := NewTravelDetector(storage.NewMemoryStore())

	require.NoError(t, d.Remember(ctx, &models.LoginRecord{
		UserID: "user-1", Timestamp: now.Add(10 * time.Minute), Latitude: newYork.Latitude, Longitude: newYork.Longitude,
	}))

	got, err := d.Check(ctx, "user-1", london.Latitude, london.Longitude, now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCollectFullSignals(t *testing.T) {
	ctx := context.Background()
	history := storage.NewMemoryStore()
	c := NewAccessCollector(
		WithLocator(testLocator()),
		WithTorExits(NewPrefixList("185.220.101.1")),
		WithThreats(NewPrefixList("198.51.100.1")),
		WithTravelDetector(NewTravelDetector(history)),
		WithClock(func() time.Time { return now }),
	)

	access, record := c.Collect(ctx, AccessInput{UserID: "user-1", IPAddress: "203.0.113.10", ClientTimezone: "America/New_York"})

	assert.Equal(t, "US", *access.Country)
	assert.Equal(t, "New York", *access.City)
	assert.False(t, *access.IsVPN)
	assert.False(t, *access.IsTor)
	assert.Equal(t, 85, *access.IPReputation)
	assert.Nil(t, access.ImpossibleTravel)
	assert.Equal(t, now, *access.AccessTime)
	assert.Equal(t, "203.0.113.0/24", record.MaskedIPPrefix)
	require.NoError(t, c.Remember(ctx, record))

	access, _ = c.Collect(ctx, AccessInput{UserID: "user-1", IPAddress: "198.51.100.7", ClientTimezone: "America/New_York", At: now.Add(30 * time.Minute)})

	assert.Equal(t, "GB", *access.Country)
	assert.True(t, *access.IsVPN, "time zone mismatch")
	assert.Equal(t, 30, *access.IPReputation)
	require.NotNil(t, access.ImpossibleTravel)
	assert.True(t, *access.ImpossibleTravel)
}

func TestCollectTimezoneAliasIsNotVPN(t *testing.T) {
	c := NewAccessCollector(WithLocator(testLocator()), WithClock(func() time.Time { return now }))

	access, _ := c.Collect(context.Background(), AccessInput{IPAddress: "192.0.2.44", ClientTimezone: "Asia/Calcutta"})
	require.NotNil(t, access.IsVPN)
	assert.False(t, *access.IsVPN)

	access, _ = c.Collect(context.Background(), AccessInput{IPAddress: "192.0.2.44", ClientTimezone: "Europe/Paris"})
	require.NotNil(t, access.IsVPN)
	assert.True(t, *access.IsVPN)
}

func TestSameZoneOffset(t *testing.T) {
	assert.True(t, sameZoneOffset("Asia/Kolkata", "Asia/Calcutta", now))
	assert.True(t, sameZoneOffset("Not/AZone", "Not/AZone", now))
	assert.False(t, sameZoneOffset("Europe/London", "America/New_York", now))
	assert.False(t, sameZoneOffset("Europe/London", "Not/AZone", now))
}

func TestCollectDatacenterASN(t *testing.T) {
	c := NewAccessCollector(WithLocator(testLocator()))

	access, _ := c.Collect(context.Background(), AccessInput{IPAddress: "52.95.110.1"})

	assert.True(t, *access.IsVPN)
}

func TestCollectToleratesFailures(t *testing.T) {
	c := NewAccessCollector(WithLocator(testLocator()), WithTorExits(NewPrefixList("185.220.101.1")))

	access, record := c.Collect(context.Background(), AccessInput{UserID: "user-1", IPAddress: "185.220.101.33"})

	assert.Nil(t, access.Country)
	assert.Nil(t, access.Latitude)
	assert.Nil(t, access.IsVPN)
	assert.Nil(t, access.IPReputation)
	assert.Nil(t, access.ImpossibleTravel)
	assert.True(t, *access.IsTor)
	assert.False(t, record.HasLocation())
}

func TestCollectPrefersBrowserCoordinates(t *testing.T) {
	c := NewAccessCollector(WithLocator(testLocator()))

	access, record := c.Collect(context.Background(), AccessInput{
		IPAddress: "203.0.113.10",
		Latitude:  models.Float(41.0082),
		Longitude: models.Float(28.9784),
	})

	assert.Equal(t, 41.0082, *access.Latitude)
	assert.Equal(t, 28.9784, record.Longitude)
}

func TestParseDeviceContext(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	dc := ParseDeviceContext(
		`{"isKnownDevice":false,"fingerprint":"fp-1","antivirusEnabled":true}`,
		`{"country":"NG","isVPN":true}`,
		logger,
	)

	assert.False(t, *dc.Posture.IsKnownDevice)
	assert.Equal(t, "fp-1", *dc.Posture.Fingerprint)
	assert.True(t, *dc.Posture.Antivirus)
	require.NotNil(t, dc.Access)
	assert.Equal(t, "NG", *dc.Access.Country)
	assert.Equal(t, 0, logs.Len())
}

func TestParseDeviceContextMalformed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	dc := ParseDeviceContext(`{not json`, `{"ipReputation":400}`, logger)

	assert.Equal(t, models.DevicePosture{}, dc.Posture)
	assert.Nil(t, dc.Access)
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, 1, logs.FilterMessage("ignoring malformed device posture header").Len())
}

func TestParseDeviceContextAbsent(t *testing.T) {
	dc := ParseDeviceContext("", "  ", zap.NewNop())

	assert.Equal(t, models.DevicePosture{}, dc.Posture)
	assert.Nil(t, dc.Access)
}
