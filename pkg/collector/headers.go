package collector

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/gokaycavdar/go-riskguard/pkg/models"
)

// Header names carrying the client-collected signals as JSON.
const (
	HeaderDevicePosture = "x-device-posture"
	HeaderAccessContext = "x-access-context"
)

// DeviceContext is what the client sent about itself.
type DeviceContext struct {
	Posture models.DevicePosture

	// Access is nil when the header was absent or unusable.
	Access *models.AccessContext
}

// ParseDeviceContext decodes the device-posture and access-context headers.
//
// Malformed or out-of-range payloads are logged and treated as absent: the
// posture becomes empty (every signal unknown) and Access stays nil. This
// never returns an error, so a bad header cannot turn into a server error.
func ParseDeviceContext(postureHeader, accessHeader string, logger *zap.Logger) DeviceContext {
	var dc DeviceContext

	if raw := strings.TrimSpace(postureHeader); raw != "" {
		var p models.DevicePosture
		err := json.Unmarshal([]byte(raw), &p)
		if err == nil {
			err = p.Validate()
		}
		if err != nil {
			logger.Warn("ignoring malformed device posture header", zap.Error(err))
		} else {
			dc.Posture = p
		}
	}

	if raw := strings.TrimSpace(accessHeader); raw != "" {
		var a models.AccessContext
		err := json.Unmarshal([]byte(raw), &a)
		if err == nil {
			err = a.Validate()
		}
		if err != nil {
			logger.Warn("ignoring malformed access context header", zap.Error(err))
		} else {
			dc.Access = &a
		}
	}

	return dc
}
