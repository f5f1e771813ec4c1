// Package erp exposes the read-only business-partner directory of the ERP.
// It is consulted once per phone number, during first-time code issuance, to
// decide whether the number belongs to a known partner and to seed the
// Pending account.
package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Partner is the identity data the ERP holds for a phone number.
type Partner struct {
	CardCode string `json:"card_code"`
	CardName string `json:"card_name"`
	IsAdmin  bool   `json:"is_admin"`
}

// Directory looks up business partners by the last nine digits of a phone.
// An empty slice with a nil error means the phone is unknown to the ERP.
type Directory interface {
	FindByPhone(ctx context.Context, last9 string) ([]Partner, error)
}

// HTTPDirectory queries the ERP bridge service over HTTP with basic auth.
type HTTPDirectory struct {
	apiURL   string
	username string
	password string
	client   *http.Client
}

// NewHTTPDirectory builds a directory client with a bounded request timeout.
func NewHTTPDirectory(apiURL, username, password string) *HTTPDirectory {
	return &HTTPDirectory{
		apiURL:   apiURL,
		username: username,
		password: password,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// FindByPhone fetches partners matching the subscriber digits.
func (d *HTTPDirectory) FindByPhone(ctx context.Context, last9 string) ([]Partner, error) {
	endpoint := fmt.Sprintf("%s/business-partners?phone=%s", d.apiURL, url.QueryEscape(last9))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build erp request: %w", err)
	}
	req.SetBasicAuth(d.username, d.password)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erp lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("erp status %d", resp.StatusCode)
	}

	var partners []Partner
	if err := json.NewDecoder(resp.Body).Decode(&partners); err != nil {
		return nil, fmt.Errorf("decode erp response: %w", err)
	}
	return partners, nil
}

// StaticDirectory serves a fixed partner set. Used in development and tests.
type StaticDirectory struct {
	partners map[string][]Partner
}

// NewStaticDirectory builds a directory from last9 digit keys.
func NewStaticDirectory(partners map[string][]Partner) *StaticDirectory {
	if partners == nil {
		partners = make(map[string][]Partner)
	}
	return &StaticDirectory{partners: partners}
}

// FindByPhone returns the configured partners for the digits, if any.
func (d *StaticDirectory) FindByPhone(_ context.Context, last9 string) ([]Partner, error) {
	return d.partners[last9], nil
}
