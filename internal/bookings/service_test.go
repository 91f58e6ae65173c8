package bookings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:bookings_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Service{}, &models.Booking{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Services: NewServiceRepository(db),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedOffering(t *testing.T, db *gorm.DB, name string) *models.Service {
	t.Helper()
	service := &models.Service{Name: name}
	if err := db.Create(service).Error; err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return service
}

func validInput(serviceID uuid.UUID) CreateInput {
	return CreateInput{
		ServiceID:       serviceID,
		Name:            "Ana Shrestha",
		MobileNumber:    "9800000000",
		Email:           "Ana@Example.com",
		BookingDate:     "2026-09-10",
		AppointmentTime: "10:30",
	}
}

func TestCreateBooking(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	offering := seedOffering(t, db, "Flu Vaccination")

	booking, err := svc.Create(ctx, validInput(offering.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if booking.Status != enums.BookingStatusPending {
		t.Fatalf("expected pending, got %s", booking.Status)
	}
	if booking.Email != "ana@example.com" {
		t.Fatalf("expected normalized email, got %s", booking.Email)
	}
}

func TestCreateBookingSlotConflict(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	offering := seedOffering(t, db, "Blood Pressure Check")

	if _, err := svc.Create(ctx, validInput(offering.ID)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	input := validInput(offering.ID)
	input.Name = "Someone Else"
	_, err := svc.Create(ctx, input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeConflict, err)
	}

	// a different time on the same day is free
	input.AppointmentTime = "11:30"
	if _, err := svc.Create(ctx, input); err != nil {
		t.Fatalf("Create different slot: %v", err)
	}
}

func TestCreateBookingValidatesSlotFormat(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	offering := seedOffering(t, db, "Lab Draw")

	input := validInput(offering.ID)
	input.BookingDate = "10/09/2026"
	_, err := svc.Create(ctx, input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeValidation, err)
	}

	input = validInput(offering.ID)
	input.AppointmentTime = "25:99"
	_, err = svc.Create(ctx, input)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeValidation, err)
	}
}

func TestCreateBookingUnknownService(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))

	_, err := svc.Create(context.Background(), validInput(uuid.New()))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeNotFound, err)
	}
}

func TestConfirmOnlyPendingBookings(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	offering := seedOffering(t, db, "Travel Consultation")
	booking, err := svc.Create(ctx, validInput(offering.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	confirmed, err := svc.Confirm(ctx, booking.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != enums.BookingStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	// confirming twice hits the state guard
	_, err = svc.Confirm(ctx, booking.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeStateConflict, err)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	offering := seedOffering(t, db, "Nutrition Advice")
	booking, err := svc.Create(ctx, validInput(offering.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Cancel(ctx, booking.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	taken, err := NewRepository(db).SlotTaken(ctx, offering.ID, "2026-09-10", "10:30")
	if err != nil {
		t.Fatalf("SlotTaken: %v", err)
	}
	if taken {
		t.Fatal("cancelled booking should release the slot for availability checks")
	}
}

func TestListServices(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedOffering(t, db, "Flu Vaccination")
	seedOffering(t, db, "Blood Pressure Check")

	services, err := svc.ListServices(ctx)
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
}
