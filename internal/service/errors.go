package service

import (
	"github.com/printera/printera/internal/domain"
)

// Intake and assembly errors - use domain.EINVALID
var (
	ErrEmptyOrder         = domain.Errorf(domain.EINVALID, "", "Order has no items")
	ErrUnknownProduct     = domain.Errorf(domain.EINVALID, "", "Unknown product family")
	ErrMissingContact     = domain.Errorf(domain.EINVALID, "", "Customer email or phone is required")
	ErrInvalidUnitPrice   = domain.Errorf(domain.EINVALID, "", "Unit price is not a valid amount")
	ErrUnsupportedChannel = domain.Errorf(domain.EINVALID, "", "Unsupported intake channel")
)

// Checkout errors
var (
	ErrNotCardOrder     = domain.Errorf(domain.EINVALID, "", "Order is not a card payment order")
	ErrNotCashOrder     = domain.Errorf(domain.EINVALID, "", "Order is not a cash or bank transfer order")
	ErrAlreadyFinalized = domain.Errorf(domain.ECONFLICT, "", "Order has already been finalized")
	ErrSessionMismatch  = domain.Errorf(domain.EPAYMENT, "", "Payment session does not match the order")
)

// Fulfillment errors
var (
	ErrOrderNotPayable  = domain.Errorf(domain.EINVALID, "", "Order is not paid or accepted for cash on delivery")
	ErrNoActiveShipment = domain.Errorf(domain.ENOTFOUND, "", "Order has no active shipment")
)
