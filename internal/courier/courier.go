// Package courier defines the interface to the parcel carrier.
// A shipment is registered as an AWB (air waybill); the label download
// is a separate call and its failure does not invalidate the AWB.
package courier

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider defines the interface for carrier operations.
type Provider interface {
	// CreateAWB registers a shipment with the carrier and returns its
	// AWB number and label reference.
	CreateAWB(ctx context.Context, params CreateAWBParams) (*AWB, error)

	// TrackAWB returns the current tracking state of a shipment.
	TrackAWB(ctx context.Context, awb string) (*TrackingInfo, error)

	// DownloadLabel fetches the printable label PDF for an AWB.
	DownloadLabel(ctx context.Context, labelRef string) ([]byte, error)
}

// CreateAWBParams contains parameters for registering a shipment.
type CreateAWBParams struct {
	OrderNumber string

	Recipient RecipientAddress

	// Parcels is the number of packages in the shipment.
	Parcels int32

	// WeightKg is the declared total weight.
	WeightKg decimal.Decimal

	// CODAmount is collected from the recipient on delivery. Zero for
	// prepaid orders.
	CODAmount decimal.Decimal
	Currency  string

	// Contents appears on the label.
	Contents string
}

// RecipientAddress is the delivery address as the carrier wants it.
type RecipientAddress struct {
	Name       string
	Phone      string
	Email      string
	County     string
	City       string
	Street     string
	PostalCode string
}

// AWB is a registered shipment identity.
type AWB struct {
	Number    string
	LabelRef  string
	Carrier   string
	CreatedAt time.Time
}

// TrackingInfo is the carrier-side state of a shipment.
type TrackingInfo struct {
	AWB       string
	Status    string // registered, in_transit, out_for_delivery, delivered, returned
	LastEvent string
	UpdatedAt time.Time
	Delivered bool
}
