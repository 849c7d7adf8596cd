package reservation_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/slotwise/reservation-engine/internal/models"
	"github.com/slotwise/reservation-engine/internal/repository"
	"github.com/slotwise/reservation-engine/internal/reservation"
	"github.com/slotwise/reservation-engine/pkg/events"
	"github.com/slotwise/reservation-engine/pkg/logger"
)

type EngineTestSuite struct {
	suite.Suite
	DB        *gorm.DB
	Engine    *reservation.Engine
	Stores    *repository.StoreRepository
	Catalog   *repository.CatalogRepository
	Timeslots *repository.TimeslotRepository
	Bookings  *repository.BookingRepository
}

func (s *EngineTestSuite) SetupSuite() {
	dsn := "host=localhost user=postgres password=postgres dbname=reservation_engine_test port=5432 sslmode=disable"
	if envURL := os.Getenv("TEST_DATABASE_URL"); envURL != "" {
		dsn = envURL
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		s.T().Fatalf("failed to connect to postgres: %v", err)
	}
	s.DB = db

	err = db.AutoMigrate(&models.Store{}, &models.User{}, &models.Treatment{}, &models.Resource{}, &models.Timeslot{}, &models.Booking{})
	require.NoError(s.T(), err)

	s.Stores = repository.NewStoreRepository(db)
	s.Catalog = repository.NewCatalogRepository(db)
	s.Timeslots = repository.NewTimeslotRepository(db)
	s.Bookings = repository.NewBookingRepository(db)

	log := logger.New("debug")
	publisher := events.NewNullPublisher(log)
	s.Engine = reservation.New(db, s.Stores, s.Catalog, s.Timeslots, s.Bookings, publisher, log)
}

func (s *EngineTestSuite) TearDownSuite() {
	sqlDB, _ := s.DB.DB()
	sqlDB.Close()
}

func (s *EngineTestSuite) SetupTest() {
	s.DB.Exec("DELETE FROM bookings")
	s.DB.Exec("DELETE FROM timeslots")
	s.DB.Exec("DELETE FROM resources")
	s.DB.Exec("DELETE FROM treatments")
	s.DB.Exec("DELETE FROM users")
	s.DB.Exec("DELETE FROM stores")
}

func allWeekOpen() models.OperatingHours {
	oh := models.OperatingHours{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		oh[d] = models.DaySchedule{Open: "00:00", Close: "23:59"}
	}
	return oh
}

func (s *EngineTestSuite) seedStore(configure func(*models.Store)) *models.Store {
	store := &models.Store{
		ID:                    uuid.New().String(),
		Name:                  "Test Store",
		Timezone:              "UTC",
		OperatingHours:        allWeekOpen(),
		MaxAdvanceBookingDays: 90,
		CancellationDeadlineHours: 24,
	}
	if configure != nil {
		configure(store)
	}
	require.NoError(s.T(), s.Stores.Create(context.Background(), store))
	return store
}

func (s *EngineTestSuite) seedTreatment(storeID string, configure func(*models.Treatment)) *models.Treatment {
	treatment := &models.Treatment{
		ID:                    uuid.New().String(),
		StoreID:               storeID,
		Name:                  "Haircut",
		Duration:              60,
		MaxConcurrentBookings: 1,
		IsActive:              true,
	}
	if configure != nil {
		configure(treatment)
	}
	require.NoError(s.T(), s.Catalog.CreateTreatment(context.Background(), treatment))
	return treatment
}

func (s *EngineTestSuite) seedTimeslot(storeID string, start time.Time, maxCapacity int) *models.Timeslot {
	slot := &models.Timeslot{
		ID:          uuid.New().String(),
		StoreID:     storeID,
		StartTime:   start,
		EndTime:     start.Add(2 * time.Hour),
		MaxCapacity: maxCapacity,
		IsActive:    true,
	}
	require.NoError(s.T(), s.DB.Create(slot).Error)
	return slot
}

func (s *EngineTestSuite) TestAdmit_HappyPath() {
	ctx := context.Background()
	store := s.seedStore(nil)
	treatment := s.seedTreatment(store.ID, nil)
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	slot := s.seedTimeslot(store.ID, start, 2)

	booking, err := s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID:     store.ID,
		CustomerID:  uuid.New().String(),
		TreatmentID: treatment.ID,
		StartTime:   start,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.BookingStatusConfirmed, booking.Status)

	var refreshed models.Timeslot
	require.NoError(s.T(), s.DB.First(&refreshed, "id = ?", slot.ID).Error)
	assert.Equal(s.T(), 1, refreshed.CurrentBookings)
}

func (s *EngineTestSuite) TestAdmit_RequireApprovalYieldsPending() {
	ctx := context.Background()
	store := s.seedStore(func(st *models.Store) { st.RequireApproval = true })
	treatment := s.seedTreatment(store.ID, nil)
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	s.seedTimeslot(store.ID, start, 2)

	booking, err := s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StartTime: start,
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.BookingStatusPending, booking.Status)
}

func (s *EngineTestSuite) TestAdmit_NoTimeslotRejected() {
	ctx := context.Background()
	store := s.seedStore(nil)
	treatment := s.seedTreatment(store.ID, nil)
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)

	_, err := s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StartTime: start,
	})
	require.Error(s.T(), err)
	rerr, ok := err.(*reservation.Error)
	require.True(s.T(), ok)
	assert.Equal(s.T(), reservation.CodeNoTimeslot, rerr.Code)
}

func (s *EngineTestSuite) TestAdmit_StaffDoubleBookRejected() {
	ctx := context.Background()
	store := s.seedStore(nil)
	treatment := s.seedTreatment(store.ID, func(t *models.Treatment) { t.MaxConcurrentBookings = 5 })
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	s.seedTimeslot(store.ID, start, 5)

	staffID := uuid.New().String()
	staff := &models.User{ID: staffID, Email: staffID + "@example.com", FirstName: "A", LastName: "B", Role: models.RoleStaff, StoreID: &store.ID, IsActive: true}
	require.NoError(s.T(), s.DB.Create(staff).Error)

	_, err := s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StaffID: staffID, StartTime: start,
	})
	require.NoError(s.T(), err)

	_, err = s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StaffID: staffID, StartTime: start.Add(30 * time.Minute),
	})
	require.Error(s.T(), err)
	rerr, ok := err.(*reservation.Error)
	require.True(s.T(), ok)
	assert.Equal(s.T(), reservation.CodeStaffConflict, rerr.Code)
}

func (s *EngineTestSuite) TestAdmit_TreatmentConcurrencyEnforced() {
	ctx := context.Background()
	store := s.seedStore(nil)
	treatment := s.seedTreatment(store.ID, func(t *models.Treatment) { t.MaxConcurrentBookings = 1 })
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	s.seedTimeslot(store.ID, start, 5)

	_, err := s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StartTime: start,
	})
	require.NoError(s.T(), err)

	_, err = s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StartTime: start.Add(15 * time.Minute),
	})
	require.Error(s.T(), err)
	rerr, ok := err.(*reservation.Error)
	require.True(s.T(), ok)
	assert.Equal(s.T(), reservation.CodeTreatmentCapacity, rerr.Code)
}

func (s *EngineTestSuite) TestAdmit_ResourceCapacityEnforced() {
	ctx := context.Background()
	store := s.seedStore(nil)
	resource := &models.Resource{ID: uuid.New().String(), StoreID: store.ID, Type: models.ResourceTypeRoom, Name: "Room 1", Capacity: 1, IsActive: true}
	require.NoError(s.T(), s.Catalog.CreateResource(ctx, resource))

	treatment := s.seedTreatment(store.ID, func(t *models.Treatment) {
		t.MaxConcurrentBookings = 5
		t.RequiredResources = []string{resource.ID}
	})
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	s.seedTimeslot(store.ID, start, 5)

	_, err := s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StartTime: start,
	})
	require.NoError(s.T(), err)

	_, err = s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StartTime: start.Add(15 * time.Minute),
	})
	require.Error(s.T(), err)
	rerr, ok := err.(*reservation.Error)
	require.True(s.T(), ok)
	assert.Equal(s.T(), reservation.CodeResourceCapacity, rerr.Code)
}

func (s *EngineTestSuite) TestCancel_RestoresTimeslotCapacity() {
	ctx := context.Background()
	store := s.seedStore(nil)
	treatment := s.seedTreatment(store.ID, nil)
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	slot := s.seedTimeslot(store.ID, start, 1)

	booking, err := s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StartTime: start,
	})
	require.NoError(s.T(), err)

	cancelled, err := s.Engine.Cancel(ctx, booking.ID, "customer request")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.BookingStatusCancelled, cancelled.Status)
	assert.NotNil(s.T(), cancelled.CancelledAt)

	var refreshed models.Timeslot
	require.NoError(s.T(), s.DB.First(&refreshed, "id = ?", slot.ID).Error)
	assert.Equal(s.T(), 0, refreshed.CurrentBookings)

	// Idempotent: cancelling again is a no-op, not an error, and does not
	// double-decrement the counter.
	again, err := s.Engine.Cancel(ctx, booking.ID, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.BookingStatusCancelled, again.Status)
	require.NoError(s.T(), s.DB.First(&refreshed, "id = ?", slot.ID).Error)
	assert.Equal(s.T(), 0, refreshed.CurrentBookings)
}

func (s *EngineTestSuite) TestCancel_RejectedPastDeadline() {
	ctx := context.Background()
	store := s.seedStore(func(st *models.Store) { st.CancellationDeadlineHours = 24 })
	treatment := s.seedTreatment(store.ID, nil)
	start := time.Now().Add(2 * time.Hour).Truncate(time.Minute)
	s.seedTimeslot(store.ID, start, 1)

	booking, err := s.Engine.Admit(ctx, reservation.AdmitRequest{
		StoreID: store.ID, CustomerID: uuid.New().String(), TreatmentID: treatment.ID, StartTime: start,
	})
	require.NoError(s.T(), err)

	_, err = s.Engine.Cancel(ctx, booking.ID, "too late")
	require.Error(s.T(), err)
	rerr, ok := err.(*reservation.Error)
	require.True(s.T(), ok)
	assert.Equal(s.T(), reservation.CodeNotCancellable, rerr.Code)
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
