// Package device classifies clients from their User-Agent header.
package device

import (
	"strings"

	"github.com/SergeiKhy/geolink/internal/models"
	ua "github.com/mileusna/useragent"
)

const (
	TypeMobile  = "mobile"
	TypeTablet  = "tablet"
	TypeDesktop = "desktop"

	unknown = "Unknown"
)

// Classify returns browser, OS and device class for a User-Agent string.
func Classify(userAgent string) models.Device {
	parsed := ua.Parse(userAgent)

	d := models.Device{
		Browser: parsed.Name,
		OS:      parsed.OS,
	}
	if d.Browser == "" {
		d.Browser = unknown
	}
	if d.OS == "" {
		d.OS = unknown
	}

	switch {
	case parsed.Tablet:
		d.Type = TypeTablet
	case parsed.Mobile:
		d.Type = TypeMobile
	case parsed.Desktop:
		d.Type = TypeDesktop
	default:
		d.Type = classifyByKeywords(userAgent)
	}

	return d
}

// classifyByKeywords is used when the parser cannot place the client.
// Tablet markers win because iPad agents also carry "Mobile".
func classifyByKeywords(userAgent string) string {
	s := strings.ToLower(userAgent)

	switch {
	case strings.Contains(s, "tablet"), strings.Contains(s, "ipad"):
		return TypeTablet
	case strings.Contains(s, "mobile"), strings.Contains(s, "android"):
		return TypeMobile
	default:
		return TypeDesktop
	}
}
