package enum

// ── Group A: CHECK constrained in DB ──

// Record kinds. Each kind owns its own status progression.
const (
	KindOrder      = "orders"
	KindDelivery   = "deliveries"
	KindProduction = "production"
)

// History actions recorded by the audit log.
const (
	ActionCreate       = "create"
	ActionEdit         = "edit"
	ActionStatusChange = "status_change"
	ActionDelete       = "delete"
	ActionRestore      = "restore"
	ActionAssign       = "assign"
	ActionSendMessage  = "send_message"
)

// ── Group B: Stored but validated in code (no DB constraint) ──

// Statuses are checked against the kind's transition table in lifecycle.
const (
	OrderStatusPending   = "pendiente"
	OrderStatusPreparing = "en_preparacion"
	OrderStatusReady     = "listo"
	OrderStatusDelivered = "entregado"
	OrderStatusCancelled = "cancelado"
)

const (
	DeliveryStatusPending   = "pendiente"
	DeliveryStatusAssigned  = "asignado"
	DeliveryStatusEnRoute   = "en_ruta"
	DeliveryStatusDelivered = "entregado"
	DeliveryStatusCancelled = "cancelado"
)

const (
	ProductionStatusPlanned    = "planificado"
	ProductionStatusInProgress = "en_proceso"
	ProductionStatusFinished   = "terminado"
	ProductionStatusCancelled  = "cancelado"
)

const (
	CategoryAbarrotes = "abarrotes"
	CategoryBebidas   = "bebidas"
	CategoryLimpieza  = "limpieza"
)

// ── Group C: Resolved at request time (never stored) ──

const (
	ProfileAdmin     = "admin"
	ProfileWholesale = "mayorista"
	ProfileRetail    = "retail"
	ProfileNone      = "none"
)

const (
	RouteClassPublic    = "public"
	RouteClassShop      = "shop"
	RouteClassCheckout  = "checkout"
	RouteClassWholesale = "wholesale"
	RouteClassAdmin     = "admin"
)

// WebSocket event types.
const (
	EventRecordCreated       = "record.created"
	EventRecordUpdated       = "record.updated"
	EventRecordStatusChanged = "record.status_changed"
	EventRecordDeleted       = "record.deleted"
	EventRecordRestored      = "record.restored"
	EventRecordAssigned      = "record.assigned"
	EventRecordMessage       = "record.message"
	EventDeliveryOverdue     = "delivery.overdue"
)
