package metrics

import "github.com/prometheus/client_golang/prometheus"

// CommerceMetrics tracks order and payment outcomes.
type CommerceMetrics struct {
	ordersPlaced        *prometheus.CounterVec
	paymentsInitiated   prometheus.Counter
	paymentsReconciled  *prometheus.CounterVec
	bookingsCreated     prometheus.Counter
	bookingSlotConflict prometheus.Counter
}

// NewCommerceMetrics registers the commerce counters on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed, labelled by outcome.",
	}, []string{"outcome"})
	paymentsInitiated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "Payment transactions initiated.",
	})
	paymentsReconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_reconciled_total",
		Help: "Payment callbacks reconciled, labelled by resulting status.",
	}, []string{"status"})
	bookingsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Bookings created.",
	})
	bookingSlotConflict := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_slot_conflicts_total",
		Help: "Booking attempts rejected because the slot was taken.",
	})
	reg.MustRegister(ordersPlaced, paymentsInitiated, paymentsReconciled, bookingsCreated, bookingSlotConflict)
	return &CommerceMetrics{
		ordersPlaced:        ordersPlaced,
		paymentsInitiated:   paymentsInitiated,
		paymentsReconciled:  paymentsReconciled,
		bookingsCreated:     bookingsCreated,
		bookingSlotConflict: bookingSlotConflict,
	}
}

// IncOrderPlaced records a placement attempt outcome ("success", "insufficient_stock", "error").
func (m *CommerceMetrics) IncOrderPlaced(outcome string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPaymentInitiated records a new gateway transaction.
func (m *CommerceMetrics) IncPaymentInitiated() {
	if m == nil || m.paymentsInitiated == nil {
		return
	}
	m.paymentsInitiated.Inc()
}

// IncPaymentReconciled records a callback settling to the given status.
func (m *CommerceMetrics) IncPaymentReconciled(status string) {
	if m == nil || m.paymentsReconciled == nil {
		return
	}
	m.paymentsReconciled.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncBookingCreated records a successful booking.
func (m *CommerceMetrics) IncBookingCreated() {
	if m == nil || m.bookingsCreated == nil {
		return
	}
	m.bookingsCreated.Inc()
}

// IncBookingSlotConflict records a double-booking rejection.
func (m *CommerceMetrics) IncBookingSlotConflict() {
	if m == nil || m.bookingSlotConflict == nil {
		return
	}
	m.bookingSlotConflict.Inc()
}
