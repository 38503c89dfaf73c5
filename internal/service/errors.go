package service

import "github.com/SergeiKhy/geolink/internal/apperrors"

// Client-facing service errors. Compare with errors.Is.
var (
	ErrInvalidURL         = apperrors.Validation("please provide a valid http(s) URL")
	ErrBlockedDomain      = apperrors.Validation("this domain is not allowed")
	ErrInvalidAlias       = apperrors.Validation("alias must be 3-32 characters: letters, digits, '-' or '_'")
	ErrReservedAlias      = apperrors.Validation("this alias is reserved")
	ErrAliasTaken         = apperrors.Conflict("this custom alias is already in use")
	ErrInvalidLinkType    = apperrors.Validation("link type must be 'normal' or 'geo'")
	ErrTitleRequired      = apperrors.Validation("title is required for geo links")
	ErrNotGeoLink         = apperrors.Validation("geo rules can only be added to geo links")
	ErrInvalidCountryCode = apperrors.Validation("country code must be a two-letter ISO 3166 code")
	ErrCountryRequired    = apperrors.Validation("country is required")
	ErrDuplicateCountry   = apperrors.Conflict("a rule for this country already exists")
	ErrLinkNotFound       = apperrors.NotFound("link not found")
	ErrRuleNotFound       = apperrors.NotFound("geo rule not found")
	ErrNotLinkOwner       = apperrors.Unauthorized("you are not allowed to modify this link")

	ErrEmailTaken         = apperrors.Conflict("an account with this email already exists")
	ErrUserNotFound       = apperrors.NotFound("user not found")
	ErrInvalidCredentials = apperrors.Unauthorized("invalid credentials")
	ErrInvalidToken       = apperrors.Unauthorized("invalid or expired token")
	ErrWeakPassword       = apperrors.Validation("password must be at least 6 characters")
	ErrNothingToUpdate    = apperrors.Validation("provide a name or an avatar to update")
)
