package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/printera/printera/internal/domain"
	"github.com/printera/printera/internal/postgres"
)

// OrderStore is the storage surface for order aggregate operations.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter postgres.OrderFilter) ([]domain.Order, error)
	MutateOrder(ctx context.Context, id uuid.UUID, fn func(o *domain.Order) error) (*domain.Order, error)
}

// OrderService owns aggregate mutations. Every item, address, artwork
// and status change runs inside MutateOrder's row lock, so concurrent
// edits to the same order serialize, and totals are recomputed before
// the row is written back.
type OrderService struct {
	store     OrderStore
	assembler *Assembler
	logger    zerolog.Logger
}

// NewOrderService creates the order service.
func NewOrderService(store OrderStore, assembler *Assembler, logger zerolog.Logger) *OrderService {
	return &OrderService{
		store:     store,
		assembler: assembler,
		logger:    logger.With().Str("component", "order").Logger(),
	}
}

// Get loads an order by ID.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// GetByNumber loads an order by its human-facing number.
func (s *OrderService) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.store.GetOrderByNumber(ctx, number)
}

// List returns orders matching the filter, newest first.
func (s *OrderService) List(ctx context.Context, filter postgres.OrderFilter) ([]domain.Order, error) {
	return s.store.ListOrders(ctx, filter)
}

// AddItem prices and appends a manually entered item. Only allowed while
// the order is still mutable.
func (s *OrderService) AddItem(ctx context.Context, orderID uuid.UUID, entry domain.AdminItemEntry) (*domain.Order, error) {
	item, err := s.assembler.AdminItem(entry)
	if err != nil {
		return nil, err
	}

	return s.store.MutateOrder(ctx, orderID, func(o *domain.Order) error {
		if !o.ItemsMutable() {
			return domain.ErrOrderNotMutable
		}
		item.OrderID = o.ID
		o.Items = append(o.Items, *item)
		o.RecomputeTotals()
		return nil
	})
}

// RemoveItem deletes one line from a mutable order.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*domain.Order, error) {
	return s.store.MutateOrder(ctx, orderID, func(o *domain.Order) error {
		if !o.ItemsMutable() {
			return domain.ErrOrderNotMutable
		}
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				o.Items = append(o.Items[:i], o.Items[i+1:]...)
				o.RecomputeTotals()
				return nil
			}
		}
		return domain.NotFound("order.removeItem", "order item", itemID.String())
	})
}

// UpdateShippingAddress replaces the shipping snapshot. An already-issued
// invoice or shipment keeps the data it was issued with.
func (s *OrderService) UpdateShippingAddress(ctx context.Context, orderID uuid.UUID, addr domain.Address) (*domain.Order, error) {
	return s.store.MutateOrder(ctx, orderID, func(o *domain.Order) error {
		if o.Status == domain.OrderStatusFulfilled || o.Status == domain.OrderStatusCancelled {
			return domain.ErrInvalidStatusChange
		}
		o.Shipping = addr
		return nil
	})
}

// AttachArtwork sets the artwork reference on one item.
func (s *OrderService) AttachArtwork(ctx context.Context, orderID, itemID uuid.UUID, artworkRef string) (*domain.Order, error) {
	return s.store.MutateOrder(ctx, orderID, func(o *domain.Order) error {
		for i := range o.Items {
			if o.Items[i].ID == itemID {
				o.Items[i].ArtworkRef = artworkRef
				return nil
			}
		}
		return domain.NotFound("order.attachArtwork", "order item", itemID.String())
	})
}

// ChangeStatus performs an admin-requested lifecycle transition,
// validated against the state machine.
func (s *OrderService) ChangeStatus(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	order, err := s.store.MutateOrder(ctx, orderID, func(o *domain.Order) error {
		if !o.CanTransition(next) {
			return domain.ErrInvalidStatusChange
		}
		o.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("number", order.Number).Str("status", string(next)).Msg("order status changed")
	return order, nil
}

// Cancel moves an order to cancelled from any pre-fulfillment state.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.ChangeStatus(ctx, orderID, domain.OrderStatusCancelled)
}
