package models

import (
	"time"

	"github.com/google/uuid"
)

// GeoData is the result of an IP lookup. Empty fields mean unknown.
type GeoData struct {
	CountryCode string `json:"countryCode,omitempty"`
	Country     string `json:"country,omitempty"`
	Region      string `json:"region,omitempty"`
}

func (g GeoData) Known() bool {
	return g.CountryCode != ""
}

type Device struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Type    string `json:"type"`
}

// Click is one row of the append-only click log.
type Click struct {
	ID             int64      `json:"id"`
	EventID        uuid.UUID  `json:"eventId"`
	LinkID         int64      `json:"linkId"`
	OwnerID        int64      `json:"ownerId"`
	ClickedAt      time.Time  `json:"clickedAt"`
	IPAddress      string     `json:"ipAddress"`
	WasGeoRedirect bool       `json:"wasGeoRedirect"`
	MatchedRuleID  *uuid.UUID `json:"matchedRuleId,omitempty"`
	Geo            GeoData    `json:"geo"`
	Device         Device     `json:"device"`
}

// ClickEvent is what the redirect path hands to the background click processor.
// EventID identifies the visit so a retried or replayed insert stores it once.
type ClickEvent struct {
	EventID       uuid.UUID  `json:"eventId"`
	LinkID        int64      `json:"linkId"`
	OwnerID       int64      `json:"ownerId"`
	ShortCode     string     `json:"shortCode"`
	IPAddress     string     `json:"ipAddress"`
	UserAgent     string     `json:"userAgent"`
	Geo           GeoData    `json:"geo"`
	MatchedRuleID *uuid.UUID `json:"matchedRuleId,omitempty"`
	ClickedAt     time.Time  `json:"clickedAt"`
}

// ClickTask names one independent side effect of a redirect.
type ClickTask string

const (
	TaskRecordClick   ClickTask = "record_click"
	TaskIncrementLink ClickTask = "increment_link"
	TaskIncrementRule ClickTask = "increment_rule"
)

// DeadLetter is a click side effect that exhausted its retries.
type DeadLetter struct {
	Task     ClickTask  `json:"task"`
	Event    ClickEvent `json:"event"`
	Error    string     `json:"error"`
	FailedAt time.Time  `json:"failedAt"`
	Replays  int        `json:"replays"`
}
