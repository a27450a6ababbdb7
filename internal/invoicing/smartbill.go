package invoicing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/printera/printera/internal/domain"
)

const smartbillBaseURL = "https://ws.smartbill.ro/SBORO/api"

// SmartBillProvider implements Provider using the SmartBill cloud API.
type SmartBillProvider struct {
	cfg    SmartBillConfig
	client *http.Client
	logger zerolog.Logger
}

// SmartBillConfig contains configuration for the SmartBill provider.
type SmartBillConfig struct {
	// Username and Token authenticate API calls (HTTP basic auth).
	Username string
	Token    string

	// CompanyTaxID is our own fiscal identifier (the issuer).
	CompanyTaxID string

	// Series is the invoice series new invoices are issued under.
	Series string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// Validate checks that required configuration is present.
func (c *SmartBillConfig) Validate() error {
	if c.Username == "" || c.Token == "" {
		return ErrMissingAPIKey
	}
	if c.Series == "" {
		return ErrMissingSeries
	}
	return nil
}

// NewSmartBillProvider creates a new SmartBill invoicing provider.
func NewSmartBillProvider(cfg SmartBillConfig, logger zerolog.Logger) (*SmartBillProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = smartbillBaseURL
	}
	return &SmartBillProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "smartbill").Logger(),
	}, nil
}

type smartbillInvoiceRequest struct {
	CompanyVatCode string              `json:"companyVatCode"`
	SeriesName     string              `json:"seriesName"`
	Client         smartbillClient     `json:"client"`
	Products       []smartbillProduct  `json:"products"`
	Currency       string              `json:"currency"`
	ObservationID  string              `json:"aviz,omitempty"`
	Mentions       string              `json:"mentions,omitempty"`
}

type smartbillClient struct {
	Name    string `json:"name"`
	VatCode string `json:"vatCode,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	County  string `json:"county,omitempty"`
	Country string `json:"country"`
}

type smartbillProduct struct {
	Name              string `json:"name"`
	Quantity          int32  `json:"quantity"`
	Price             string `json:"price"`
	MeasuringUnitName string `json:"measuringUnitName"`
	Currency          string `json:"currency"`
	IsService         bool   `json:"isService"`
}

type smartbillInvoiceResponse struct {
	ErrorText string `json:"errorText"`
	Message   string `json:"message"`
	Series    string `json:"series"`
	Number    string `json:"number"`
	URL       string `json:"url"`
}

// IssueInvoice registers a fiscal invoice with SmartBill.
func (p *SmartBillProvider) IssueInvoice(ctx context.Context, params IssueInvoiceParams) (*Invoice, error) {
	const op = "invoicing.issueInvoice"

	if len(params.Lines) == 0 {
		return nil, ErrEmptyInvoice
	}

	name := params.CustomerName
	if params.CompanyName != "" {
		name = params.CompanyName
	}
	reqBody := smartbillInvoiceRequest{
		CompanyVatCode: p.cfg.CompanyTaxID,
		SeriesName:     p.cfg.Series,
		Currency:       params.Currency,
		Mentions:       "Comanda " + params.OrderNumber,
		Client: smartbillClient{
			Name:    name,
			VatCode: params.TaxID,
			Email:   params.Email,
			Address: params.Address,
			City:    params.City,
			County:  params.County,
			Country: "Romania",
		},
	}
	for _, line := range params.Lines {
		reqBody.Products = append(reqBody.Products, smartbillProduct{
			Name:              line.Description,
			Quantity:          line.Quantity,
			Price:             line.UnitPrice.StringFixed(2),
			MeasuringUnitName: "buc",
			Currency:          params.Currency,
			IsService:         false,
		})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.cfg.BaseURL+"/invoice", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+basicAuth(p.cfg.Username, p.cfg.Token))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.Unavailable(err, op, "invoicing provider unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Unavailable(err, op, "failed to read invoicing response")
	}

	if resp.StatusCode >= 500 {
		return nil, domain.Unavailable(
			fmt.Errorf("smartbill API error (status %d): %s", resp.StatusCode, string(body)),
			op, "invoicing provider temporarily unavailable")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.WrapError(
			fmt.Errorf("smartbill API error (status %d): %s", resp.StatusCode, string(body)),
			domain.EINVALID, op, "invoicing provider rejected the invoice")
	}

	var result smartbillInvoiceResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse invoicing response: %w", err)
	}
	if result.ErrorText != "" {
		return nil, domain.WrapError(
			fmt.Errorf("smartbill: %s", result.ErrorText),
			domain.EINVALID, op, "invoicing provider rejected the invoice")
	}

	p.logger.Info().
		Str("order_number", params.OrderNumber).
		Str("series", result.Series).
		Str("number", result.Number).
		Msg("fiscal invoice issued")

	return &Invoice{
		Series:       result.Series,
		Number:       result.Number,
		DocumentLink: result.URL,
		IssuedAt:     time.Now(),
	}, nil
}

func basicAuth(username, token string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + token))
}
