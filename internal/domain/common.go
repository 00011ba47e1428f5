package domain

// OrderSide represents the direction of a perpetual-futures order.
type OrderSide string

const (
	Long  OrderSide = "LONG"
	Short OrderSide = "SHORT"
)

// IsValid reports whether the side is one of the known values.
func (s OrderSide) IsValid() bool {
	return s == Long || s == Short
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusFilled    OrderStatus = "FILLED"
	StatusClosedTP  OrderStatus = "CLOSED_TP"
	StatusClosedSL  OrderStatus = "CLOSED_SL"
	StatusCancelled OrderStatus = "CANCELLED"

	// StatusError is a reserved terminal state. The monitor never enters it.
	StatusError OrderStatus = "ERROR"
)

// IsTerminal reports whether no further transitions are possible from this status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusClosedTP, StatusClosedSL, StatusCancelled, StatusError:
		return true
	}
	return false
}

// ConnectionStatus describes the session's relationship with the exchange account.
type ConnectionStatus string

const (
	ConnDisconnected ConnectionStatus = "disconnected"
	ConnConnecting   ConnectionStatus = "connecting"
	ConnRealAccount  ConnectionStatus = "connected_real"
	ConnSimulated    ConnectionStatus = "connected_sim"
	ConnError        ConnectionStatus = "error"
)

// Severity classifies an event-log entry for the dashboard.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)
