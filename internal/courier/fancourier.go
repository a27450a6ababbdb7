package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/printera/printera/internal/domain"
)

const fanCourierBaseURL = "https://api.fancourier.ro"

// FanCourierProvider implements Provider using the FAN Courier API.
type FanCourierProvider struct {
	cfg    FanCourierConfig
	client *http.Client
	logger zerolog.Logger
}

// FanCourierConfig contains configuration for the FAN Courier provider.
type FanCourierConfig struct {
	ClientID string
	Username string
	Password string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// Validate checks that required configuration is present.
func (c *FanCourierConfig) Validate() error {
	if c.ClientID == "" || c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// NewFanCourierProvider creates a new FAN Courier provider.
func NewFanCourierProvider(cfg FanCourierConfig, logger zerolog.Logger) (*FanCourierProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fanCourierBaseURL
	}
	return &FanCourierProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "fancourier").Logger(),
	}, nil
}

type fanAWBRequest struct {
	ClientID string `json:"clientId"`
	Shipment struct {
		Service        string `json:"service"`
		Parcels        int32  `json:"parcels"`
		Weight         string `json:"weight"`
		CashOnDelivery string `json:"cod"`
		Contents       string `json:"contents"`
		Observation    string `json:"observation"`
	} `json:"info"`
	Recipient struct {
		Name       string `json:"name"`
		Phone      string `json:"phone"`
		Email      string `json:"email"`
		County     string `json:"county"`
		Locality   string `json:"locality"`
		Street     string `json:"street"`
		PostalCode string `json:"zipCode"`
	} `json:"recipient"`
}

type fanAWBResponse struct {
	AWBNumber string `json:"awbNumber"`
	LabelRef  string `json:"pdfLink"`
	Error     string `json:"error"`
}

type fanTrackingResponse struct {
	AWBNumber string `json:"awbNumber"`
	Status    string `json:"status"`
	Events    []struct {
		Name string `json:"name"`
		Date string `json:"date"`
	} `json:"events"`
}

// CreateAWB registers a shipment and returns its AWB.
func (p *FanCourierProvider) CreateAWB(ctx context.Context, params CreateAWBParams) (*AWB, error) {
	const op = "courier.createAWB"

	if params.Recipient.Name == "" || params.Recipient.Phone == "" || params.Recipient.City == "" {
		return nil, ErrMissingRecipient
	}
	if params.Parcels < 1 {
		params.Parcels = 1
	}

	var reqBody fanAWBRequest
	reqBody.ClientID = p.cfg.ClientID
	reqBody.Shipment.Service = "Standard"
	reqBody.Shipment.Parcels = params.Parcels
	reqBody.Shipment.Weight = params.WeightKg.StringFixed(2)
	reqBody.Shipment.CashOnDelivery = params.CODAmount.StringFixed(2)
	reqBody.Shipment.Contents = params.Contents
	reqBody.Shipment.Observation = "Comanda " + params.OrderNumber
	reqBody.Recipient.Name = params.Recipient.Name
	reqBody.Recipient.Phone = params.Recipient.Phone
	reqBody.Recipient.Email = params.Recipient.Email
	reqBody.Recipient.County = params.Recipient.County
	reqBody.Recipient.Locality = params.Recipient.City
	reqBody.Recipient.Street = params.Recipient.Street
	reqBody.Recipient.PostalCode = params.Recipient.PostalCode

	var result fanAWBResponse
	if err := p.post(ctx, op, "/intern-awb", reqBody, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, domain.WrapError(
			fmt.Errorf("fancourier: %s", result.Error),
			domain.EINVALID, op, "carrier rejected the shipment")
	}

	p.logger.Info().
		Str("order_number", params.OrderNumber).
		Str("awb", result.AWBNumber).
		Str("cod", params.CODAmount.StringFixed(2)).
		Msg("AWB registered")

	return &AWB{
		Number:    result.AWBNumber,
		LabelRef:  result.LabelRef,
		Carrier:   "fan_courier",
		CreatedAt: time.Now(),
	}, nil
}

// TrackAWB returns the current tracking state of a shipment.
func (p *FanCourierProvider) TrackAWB(ctx context.Context, awb string) (*TrackingInfo, error) {
	const op = "courier.trackAWB"

	req, err := http.NewRequestWithContext(ctx, "GET", p.cfg.BaseURL+"/reports/awb/tracking?awb="+awb, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(p.cfg.Username, p.cfg.Password)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.Unavailable(err, op, "carrier unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrAWBNotFound
	}
	if resp.StatusCode >= 500 {
		return nil, domain.Unavailable(
			fmt.Errorf("fancourier tracking error (status %d)", resp.StatusCode),
			op, "carrier temporarily unavailable")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.WrapError(
			fmt.Errorf("fancourier tracking error (status %d)", resp.StatusCode),
			domain.EINVALID, op, "carrier rejected the tracking request")
	}

	var result fanTrackingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse tracking response: %w", err)
	}

	info := &TrackingInfo{
		AWB:       awb,
		Status:    result.Status,
		UpdatedAt: time.Now(),
		Delivered: result.Status == "delivered",
	}
	if n := len(result.Events); n > 0 {
		info.LastEvent = result.Events[n-1].Name
	}
	return info, nil
}

// DownloadLabel fetches the printable label PDF.
func (p *FanCourierProvider) DownloadLabel(ctx context.Context, labelRef string) ([]byte, error) {
	const op = "courier.downloadLabel"

	req, err := http.NewRequestWithContext(ctx, "GET", p.cfg.BaseURL+"/awb/label?ref="+labelRef, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(p.cfg.Username, p.cfg.Password)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.Unavailable(err, op, "carrier unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrLabelNotReady
	case resp.StatusCode >= 500:
		return nil, domain.Unavailable(
			fmt.Errorf("fancourier label error (status %d)", resp.StatusCode),
			op, "carrier temporarily unavailable")
	default:
		return nil, domain.WrapError(
			fmt.Errorf("fancourier label error (status %d)", resp.StatusCode),
			domain.EINVALID, op, "carrier rejected the label request")
	}

	return io.ReadAll(resp.Body)
}

func (p *FanCourierProvider) post(ctx context.Context, op, path string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal carrier payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.cfg.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.cfg.Username, p.cfg.Password)

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Unavailable(err, op, "carrier unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Unavailable(err, op, "failed to read carrier response")
	}

	if resp.StatusCode >= 500 {
		return domain.Unavailable(
			fmt.Errorf("fancourier API error (status %d): %s", resp.StatusCode, string(respBody)),
			op, "carrier temporarily unavailable")
	}
	if resp.StatusCode != http.StatusOK {
		return domain.WrapError(
			fmt.Errorf("fancourier API error (status %d): %s", resp.StatusCode, string(respBody)),
			domain.EINVALID, op, "carrier rejected the request")
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse carrier response: %w", err)
	}
	return nil
}
