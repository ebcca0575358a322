package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/resilience"
)

const shiprocketBaseURL = "https://apiv2.shiprocket.in/v1/external"

// Shiprocket talks to the Shiprocket aggregator API. Authentication uses a
// short-lived bearer token obtained from the login endpoint and cached until
// close to expiry.
type Shiprocket struct {
	Email    string
	Password string
	BaseURL  string
	HTTP     resilience.HTTPClient

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Quote implements Client via the serviceability endpoint.
func (s *Shiprocket) Quote(ctx context.Context, req QuoteRequest) ([]CourierOption, error) {
	token, err := s.authToken(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("pickup_postcode", req.PickupPincode)
	q.Set("delivery_postcode", req.DeliveryPincode)
	q.Set("weight", req.WeightKg.String())
	if req.COD {
		q.Set("cod", "1")
	} else {
		q.Set("cod", "0")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL()+"/courier/serviceability/?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.HTTP.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("shiprocket: serviceability: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shiprocket: serviceability status %d", resp.StatusCode)
	}
	var decoded struct {
		Data struct {
			AvailableCourierCompanies []struct {
				CourierName   string          `json:"courier_name"`
				Rate          decimal.Decimal `json:"rate"`
				EstimatedDays string          `json:"estimated_delivery_days"`
			} `json:"available_courier_companies"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("shiprocket: decode serviceability: %w", err)
	}
	options := make([]CourierOption, 0, len(decoded.Data.AvailableCourierCompanies))
	for _, c := range decoded.Data.AvailableCourierCompanies {
		options = append(options, CourierOption{
			Courier:       c.CourierName,
			Rate:          c.Rate,
			EstimatedDays: c.EstimatedDays,
		})
	}
	return options, nil
}

// Track implements Client via the AWB tracking endpoint.
func (s *Shiprocket) Track(ctx context.Context, awb string) ([]TrackEvent, error) {
	awb = strings.TrimSpace(awb)
	if awb == "" {
		return nil, errors.New("shiprocket: awb is required")
	}
	token, err := s.authToken(ctx)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL()+"/courier/track/awb/"+url.PathEscape(awb), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.HTTP.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("shiprocket: track: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shiprocket: track status %d", resp.StatusCode)
	}
	var decoded struct {
		TrackingData struct {
			ShipmentTrack []struct {
				CurrentStatus string `json:"current_status"`
			} `json:"shipment_track"`
			ShipmentTrackActivities []struct {
				Status   string `json:"status"`
				Activity string `json:"activity"`
				Location string `json:"location"`
				Date     string `json:"date"`
			} `json:"shipment_track_activities"`
		} `json:"tracking_data"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("shiprocket: decode tracking: %w", err)
	}
	events := make([]TrackEvent, 0, len(decoded.TrackingData.ShipmentTrackActivities))
	for _, a := range decoded.TrackingData.ShipmentTrackActivities {
		events = append(events, TrackEvent{
			Status:      a.Status,
			Description: a.Activity,
			Location:    a.Location,
			OccurredAt:  a.Date,
		})
	}
	return events, nil
}

func (s *Shiprocket) authToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}
	if strings.TrimSpace(s.Email) == "" || strings.TrimSpace(s.Password) == "" {
		return "", errors.New("shiprocket: credentials not configured")
	}
	body, err := json.Marshal(map[string]string{"email": s.Email, "password": s.Password})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL()+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(ctx, httpReq)
	if err != nil {
		return "", fmt.Errorf("shiprocket: login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shiprocket: login status %d", resp.StatusCode)
	}
	var decoded struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("shiprocket: decode login: %w", err)
	}
	if decoded.Token == "" {
		return "", errors.New("shiprocket: login response missing token")
	}
	s.token = decoded.Token
	// Tokens are valid for ten days; refresh well before that.
	s.tokenExpiry = time.Now().Add(6 * 24 * time.Hour)
	return s.token, nil
}

func (s *Shiprocket) baseURL() string {
	if strings.TrimSpace(s.BaseURL) != "" {
		return strings.TrimRight(s.BaseURL, "/")
	}
	return shiprocketBaseURL
}
