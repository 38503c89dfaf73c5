package models

import "time"

type ActivityType string

const (
	ActivityURLCreated     ActivityType = "URL_CREATED"
	ActivityURLDeleted     ActivityType = "URL_DELETED"
	ActivityGeoRuleCreated ActivityType = "GEO_RULE_CREATED"
	ActivityGeoRuleDeleted ActivityType = "GEO_RULE_DELETED"
)

type Activity struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"userId"`
	EventType     ActivityType `json:"eventType"`
	Message       string       `json:"message"`
	RelatedLinkID *int64       `json:"relatedUrlId,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}
