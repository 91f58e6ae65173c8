package enums

// PaymentStatus follows the gateway transaction lifecycle. PENDING is the
// only non-terminal state; SUCCESS and COMPLETE both count as paid.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusComplete PaymentStatus = "COMPLETE"
	PaymentStatusFailed   PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusComplete, PaymentStatusFailed:
		return true
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return s.IsValid() && s != PaymentStatusPending
}

func (s PaymentStatus) IsPaid() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusComplete
}
