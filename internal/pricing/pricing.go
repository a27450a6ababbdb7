// Package pricing computes quotes for dimension-driven and preset print
// products. The engine is pure: no storage, no clock, no external calls.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/printera/printera/internal/domain"
)

// QuoteParams describes one requested product configuration. Dimensions
// are centimeters and must be strictly positive; quantity is coerced to an
// integer >= 1.
type QuoteParams struct {
	Family       Family
	WidthCm      float64
	HeightCm     float64
	Quantity     int32
	Lamination   bool
	ContourCut   bool
	Reinforced   bool
	DesignOption string // "" | "basic" | "pro"
}

// PresetParams describes a fixed-size preset product request.
type PresetParams struct {
	SizeKey  string
	Quantity int32
}

// Breakdown explains how a quote was computed, for display alongside the
// price.
type Breakdown struct {
	Family      Family          `json:"family"`
	UnitAreaM2  decimal.Decimal `json:"unit_area_m2"`
	TotalAreaM2 decimal.Decimal `json:"total_area_m2"`
	BandRate    decimal.Decimal `json:"band_rate"`
	Finishing   []string        `json:"finishing,omitempty"`
	DesignFee   decimal.Decimal `json:"design_fee"`
}

// Quote is the priced result for one line.
type Quote struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Breakdown Breakdown       `json:"breakdown"`
}

const hundred = 100

// ComputeQuote prices a dimension-driven configuration.
//
// The rate depends on the band the *total* ordered area falls into, so a
// larger quantity can move the whole order into a cheaper band. Finishing
// surcharges multiply in sequence on the banded base price; the pro design
// fee is flat and added once per line after multiplication. Intermediate
// values keep full precision; only the final amounts are rounded, half up,
// to 2 decimals.
func ComputeQuote(params QuoteParams) (*Quote, error) {
	if err := validateQuoteParams(&params); err != nil {
		return nil, err
	}

	width := decimal.NewFromFloat(params.WidthCm).Div(decimal.NewFromInt(hundred))
	height := decimal.NewFromFloat(params.HeightCm).Div(decimal.NewFromInt(hundred))
	unitArea := width.Mul(height)
	qty := decimal.NewFromInt32(params.Quantity)
	totalArea := unitArea.Mul(qty)

	rate, ok := rateFor(params.Family, totalArea)
	if !ok {
		return nil, domain.NewValidationError("pricing.quote", "family", "unknown product family or material/thickness")
	}

	unit := rate.Mul(unitArea)

	var finishing []string
	if params.Lamination {
		unit = unit.Mul(laminationFactor)
		finishing = append(finishing, "lamination")
	}
	if params.ContourCut {
		unit = unit.Mul(contourCutFactor)
		finishing = append(finishing, "contour_cut")
	}
	if params.Reinforced {
		unit = unit.Mul(reinforcedFactor)
		finishing = append(finishing, "reinforced_hems")
	}

	designFee := decimal.Zero
	if params.DesignOption == "pro" {
		designFee = proDesignFee
	}

	return &Quote{
		UnitPrice: domain.Round2(unit),
		LineTotal: domain.Round2(unit.Mul(qty).Add(designFee)),
		Breakdown: Breakdown{
			Family:      params.Family,
			UnitAreaM2:  unitArea,
			TotalAreaM2: totalArea,
			BandRate:    rate,
			Finishing:   finishing,
			DesignFee:   designFee,
		},
	}, nil
}

// ComputePresetQuote prices a fixed-size preset product by direct lookup.
func ComputePresetQuote(params PresetParams) (*Quote, error) {
	if params.Quantity < 1 {
		params.Quantity = 1
	}

	unit, ok := canvasPresets[params.SizeKey]
	if !ok {
		return nil, domain.NewValidationError("pricing.preset", "sizeKey", "unknown preset size key")
	}

	qty := decimal.NewFromInt32(params.Quantity)
	return &Quote{
		UnitPrice: domain.Round2(unit),
		LineTotal: domain.Round2(unit.Mul(qty)),
		Breakdown: Breakdown{
			Family:    FamilyCanvas,
			BandRate:  unit,
			DesignFee: decimal.Zero,
		},
	}, nil
}

// QuoteItemConfig prices an order item configuration as stored on the
// aggregate. Used by the assembler so every channel goes through the same
// engine instead of trusting client-submitted prices.
func QuoteItemConfig(productID string, cfg domain.ItemConfig, quantity int32) (*Quote, error) {
	if cfg.SizeKey != "" {
		return ComputePresetQuote(PresetParams{SizeKey: cfg.SizeKey, Quantity: quantity})
	}
	return ComputeQuote(QuoteParams{
		Family:       Family(productID),
		WidthCm:      cfg.WidthCm,
		HeightCm:     cfg.HeightCm,
		Quantity:     quantity,
		Lamination:   cfg.Lamination,
		ContourCut:   cfg.ContourCut,
		Reinforced:   cfg.Reinforced,
		DesignOption: cfg.DesignOption,
	})
}

func validateQuoteParams(params *QuoteParams) error {
	var err error
	if params.WidthCm <= 0 {
		err = domain.AddFieldError(err, "widthCm", "must be a positive number of centimeters")
	}
	if params.HeightCm <= 0 {
		err = domain.AddFieldError(err, "heightCm", "must be a positive number of centimeters")
	}
	switch params.DesignOption {
	case "", "basic", "pro":
	default:
		err = domain.AddFieldError(err, "designOption", "must be one of: basic, pro")
	}
	if err != nil {
		return err
	}
	if params.Quantity < 1 {
		params.Quantity = 1
	}
	return nil
}

// Families returns the known dimension-driven families, for endpoint
// registration and input validation.
func Families() []Family {
	out := make([]Family, 0, len(rateTable))
	for f := range rateTable {
		out = append(out, f)
	}
	return out
}

// KnownFamily reports whether a family key is priced by the catalog.
func KnownFamily(f Family) bool {
	_, ok := rateTable[f]
	return ok
}
