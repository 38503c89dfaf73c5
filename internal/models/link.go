package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type LinkType string

const (
	LinkTypeNormal LinkType = "normal"
	LinkTypeGeo    LinkType = "geo"
)

func (t LinkType) Valid() bool {
	return t == LinkTypeNormal || t == LinkTypeGeo
}

type Link struct {
	ID          int64     `json:"id"`
	CreatorID   int64     `json:"creatorId"`
	LinkType    LinkType  `json:"linkType"`
	ShortCode   string    `json:"shortCode"`
	DefaultURL  string    `json:"defaultUrl"`
	Title       string    `json:"title"`
	GeoRules    []GeoRule `json:"geoRules"`
	TotalClicks int64     `json:"totalClicks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GeoRule redirects visitors from one country to an alternate destination.
type GeoRule struct {
	ID             uuid.UUID `json:"id"`
	LinkID         int64     `json:"linkId"`
	Country        string    `json:"country"`
	CountryCode    string    `json:"countryCode"`
	DestinationURL string    `json:"destinationUrl"`
	Clicks         int64     `json:"clicks"`
	CreatedAt      time.Time `json:"createdAt"`
}

// RuleFor returns the rule targeting countryCode, if any.
func (l *Link) RuleFor(countryCode string) (*GeoRule, bool) {
	for i := range l.GeoRules {
		if strings.EqualFold(l.GeoRules[i].CountryCode, countryCode) {
			return &l.GeoRules[i], true
		}
	}
	return nil, false
}

type CreateLinkInput struct {
	DefaultURL  string
	Title       string
	CustomAlias string
	LinkType    LinkType
}

type GeoRuleInput struct {
	Country        string
	CountryCode    string
	DestinationURL string
}
