package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/SergeiKhy/geolink/internal/models"
)

// ipapiFields selects status, message, country, countryCode, regionName and query.
const ipapiFields = "57355"

type ipapiResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	RegionName  string `json:"regionName"`
}

// IPAPIResolver queries an ip-api.com compatible JSON endpoint.
type IPAPIResolver struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewIPAPIResolver(baseURL string, timeout time.Duration) *IPAPIResolver {
	return &IPAPIResolver{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (r *IPAPIResolver) Lookup(ctx context.Context, ip string) (*models.GeoData, error) {
	if _, err := parseIP(ip); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", r.baseURL, url.PathEscape(ip), ipapiFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geo request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup failed: unexpected status %d", resp.StatusCode)
	}

	var body ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode geo response: %w", err)
	}

	if body.Status != "success" {
		return nil, fmt.Errorf("geo lookup failed for %s: %s", ip, body.Message)
	}

	return &models.GeoData{
		CountryCode: body.CountryCode,
		Country:     body.Country,
		Region:      body.RegionName,
	}, nil
}
