package lifecycle

import (
	"fmt"
	"slices"

	"github.com/surtidora/api/internal/enum"
)

// Kind describes one record family. All kinds share the same operations and
// differ only in their status set.
type Kind struct {
	Name     string
	Initial  string
	Statuses []string
	Terminal []string

	// transitions lists the forward moves open to non-admin callers.
	// Key is current status, value is the set of statuses it can move to.
	transitions map[string][]string
}

var Orders = Kind{
	Name:    enum.KindOrder,
	Initial: enum.OrderStatusPending,
	Statuses: []string{
		enum.OrderStatusPending,
		enum.OrderStatusPreparing,
		enum.OrderStatusReady,
		enum.OrderStatusDelivered,
		enum.OrderStatusCancelled,
	},
	Terminal: []string{enum.OrderStatusDelivered, enum.OrderStatusCancelled},
	transitions: map[string][]string{
		enum.OrderStatusPending:   {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
		enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
		enum.OrderStatusReady:     {enum.OrderStatusDelivered, enum.OrderStatusCancelled},
	},
}

var Deliveries = Kind{
	Name:    enum.KindDelivery,
	Initial: enum.DeliveryStatusPending,
	Statuses: []string{
		enum.DeliveryStatusPending,
		enum.DeliveryStatusAssigned,
		enum.DeliveryStatusEnRoute,
		enum.DeliveryStatusDelivered,
		enum.DeliveryStatusCancelled,
	},
	Terminal: []string{enum.DeliveryStatusDelivered, enum.DeliveryStatusCancelled},
	transitions: map[string][]string{
		enum.DeliveryStatusPending:  {enum.DeliveryStatusAssigned, enum.DeliveryStatusCancelled},
		enum.DeliveryStatusAssigned: {enum.DeliveryStatusEnRoute, enum.DeliveryStatusCancelled},
		enum.DeliveryStatusEnRoute:  {enum.DeliveryStatusDelivered, enum.DeliveryStatusCancelled},
	},
}

var Production = Kind{
	Name:    enum.KindProduction,
	Initial: enum.ProductionStatusPlanned,
	Statuses: []string{
		enum.ProductionStatusPlanned,
		enum.ProductionStatusInProgress,
		enum.ProductionStatusFinished,
		enum.ProductionStatusCancelled,
	},
	Terminal: []string{enum.ProductionStatusFinished, enum.ProductionStatusCancelled},
	transitions: map[string][]string{
		enum.ProductionStatusPlanned:    {enum.ProductionStatusInProgress, enum.ProductionStatusCancelled},
		enum.ProductionStatusInProgress: {enum.ProductionStatusFinished, enum.ProductionStatusCancelled},
	},
}

// Kinds lists every record kind in route order.
var Kinds = []Kind{Orders, Deliveries, Production}

// KindByName returns the kind registered under name ("orders", ...).
func KindByName(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

func (k Kind) HasStatus(s string) bool {
	return slices.Contains(k.Statuses, s)
}

func (k Kind) IsTerminal(s string) bool {
	return slices.Contains(k.Terminal, s)
}

// validateTransition checks if a non-admin move from current to next is allowed.
func (k Kind) validateTransition(current, next string) error {
	allowed, ok := k.transitions[current]
	if !ok {
		return fmt.Errorf("%w: cannot transition from %s", ErrTransitionNotAllowed, current)
	}
	if !slices.Contains(allowed, next) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrTransitionNotAllowed, current, next)
	}
	return nil
}
