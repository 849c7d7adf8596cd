// Package testutil provides fluent builder factories for the domain
// models. The module's current package tests build their fixtures as
// literals and do not import it.
package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/slotwise/reservation-engine/internal/models"
)

func NewUUID() string {
	return uuid.New().String()
}

func NewTestEmail() string {
	return fmt.Sprintf("test-%s@example.com", uuid.New().String()[:8])
}

// StoreFactory builds a models.Store with sensible defaults: open every
// day 09:00-17:00 UTC.
type StoreFactory struct {
	store models.Store
}

func NewStoreFactory() *StoreFactory {
	hours := models.OperatingHours{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		hours[d] = models.DaySchedule{Open: "09:00", Close: "17:00"}
	}
	return &StoreFactory{store: models.Store{
		Name:                      "Test Store",
		Timezone:                  "UTC",
		OperatingHours:            hours,
		BufferTimeMinutes:         15,
		MaxAdvanceBookingDays:     90,
		CancellationDeadlineHours: 24,
		AllowOnlineBooking:        true,
	}}
}

func (f *StoreFactory) WithID(id string) *StoreFactory { f.store.ID = id; return f }
func (f *StoreFactory) WithTimezone(tz string) *StoreFactory {
	f.store.Timezone = tz
	return f
}
func (f *StoreFactory) WithOperatingHours(h models.OperatingHours) *StoreFactory {
	f.store.OperatingHours = h
	return f
}
func (f *StoreFactory) ClosedAllWeek() *StoreFactory {
	f.store.OperatingHours = models.OperatingHours{}
	return f
}
func (f *StoreFactory) WithMaxDailyBookings(n int) *StoreFactory {
	f.store.MaxDailyBookings = &n
	return f
}
func (f *StoreFactory) WithMaxConcurrentBookings(n int) *StoreFactory {
	f.store.MaxConcurrentBookings = &n
	return f
}
func (f *StoreFactory) WithCancellationDeadlineHours(h int) *StoreFactory {
	f.store.CancellationDeadlineHours = h
	return f
}
func (f *StoreFactory) RequiringApproval() *StoreFactory {
	f.store.RequireApproval = true
	return f
}

func (f *StoreFactory) Build() *models.Store {
	s := f.store
	if s.ID == "" {
		s.ID = NewUUID()
	}
	return &s
}

// TreatmentFactory builds a models.Treatment.
type TreatmentFactory struct {
	treatment models.Treatment
}

func NewTreatmentFactory(storeID string) *TreatmentFactory {
	return &TreatmentFactory{treatment: models.Treatment{
		StoreID:               storeID,
		Name:                  "Test Treatment",
		Duration:              60,
		PriceAmount:           100,
		PriceCurrency:         "USD",
		RequiredStaffLevel:    models.StaffLevelAny,
		MaxConcurrentBookings: 1,
		IsActive:              true,
	}}
}

func (f *TreatmentFactory) WithID(id string) *TreatmentFactory { f.treatment.ID = id; return f }
func (f *TreatmentFactory) WithDuration(minutes int) *TreatmentFactory {
	f.treatment.Duration = minutes
	return f
}
func (f *TreatmentFactory) WithMaxConcurrentBookings(n int) *TreatmentFactory {
	f.treatment.MaxConcurrentBookings = n
	return f
}
func (f *TreatmentFactory) WithRequiredStaffLevel(level models.StaffLevel) *TreatmentFactory {
	f.treatment.RequiredStaffLevel = level
	return f
}
func (f *TreatmentFactory) WithRequiredResources(resourceIDs ...string) *TreatmentFactory {
	f.treatment.RequiredResources = pq.StringArray(resourceIDs)
	return f
}

func (f *TreatmentFactory) Build() *models.Treatment {
	t := f.treatment
	if t.ID == "" {
		t.ID = NewUUID()
	}
	return &t
}

// ResourceFactory builds a models.Resource.
type ResourceFactory struct {
	resource models.Resource
}

func NewResourceFactory(storeID string) *ResourceFactory {
	return &ResourceFactory{resource: models.Resource{
		StoreID:  storeID,
		Type:     models.ResourceTypeRoom,
		Name:     "Test Resource",
		Capacity: 1,
		IsActive: true,
	}}
}

func (f *ResourceFactory) WithID(id string) *ResourceFactory { f.resource.ID = id; return f }
func (f *ResourceFactory) WithCapacity(n int) *ResourceFactory {
	f.resource.Capacity = n
	return f
}
func (f *ResourceFactory) WithType(t models.ResourceType) *ResourceFactory {
	f.resource.Type = t
	return f
}

func (f *ResourceFactory) Build() *models.Resource {
	r := f.resource
	if r.ID == "" {
		r.ID = NewUUID()
	}
	return &r
}

// UserFactory builds a models.User (staff, store admin, or customer).
type UserFactory struct {
	user models.User
}

func NewUserFactory() *UserFactory {
	return &UserFactory{user: models.User{
		Email:     NewTestEmail(),
		FirstName: "Test",
		LastName:  "User",
		Role:      models.RoleCustomer,
		IsActive:  true,
	}}
}

func (f *UserFactory) WithID(id string) *UserFactory { f.user.ID = id; return f }
func (f *UserFactory) WithRole(role models.Role) *UserFactory {
	f.user.Role = role
	return f
}
func (f *UserFactory) WithStoreID(storeID string) *UserFactory {
	f.user.StoreID = &storeID
	return f
}
func (f *UserFactory) WithSkillLevel(level models.SkillLevel) *UserFactory {
	f.user.SkillLevel = &level
	return f
}
func (f *UserFactory) AsStaff(storeID string) *UserFactory {
	f.user.Role = models.RoleStaff
	f.user.StoreID = &storeID
	return f
}
func (f *UserFactory) Inactive() *UserFactory {
	f.user.IsActive = false
	return f
}

func (f *UserFactory) Build() *models.User {
	u := f.user
	if u.ID == "" {
		u.ID = NewUUID()
	}
	return &u
}

// TimeslotFactory builds a models.Timeslot.
type TimeslotFactory struct {
	slot models.Timeslot
}

func NewTimeslotFactory(storeID string, start, end time.Time) *TimeslotFactory {
	return &TimeslotFactory{slot: models.Timeslot{
		StoreID:     storeID,
		StartTime:   start,
		EndTime:     end,
		MaxCapacity: 1,
		IsActive:    true,
	}}
}

func (f *TimeslotFactory) WithID(id string) *TimeslotFactory { f.slot.ID = id; return f }
func (f *TimeslotFactory) WithMaxCapacity(n int) *TimeslotFactory {
	f.slot.MaxCapacity = n
	return f
}
func (f *TimeslotFactory) WithCurrentBookings(n int) *TimeslotFactory {
	f.slot.CurrentBookings = n
	return f
}
func (f *TimeslotFactory) WithAllowedTreatments(ids ...string) *TimeslotFactory {
	f.slot.AllowedTreatmentIDs = pq.StringArray(ids)
	return f
}

func (f *TimeslotFactory) Build() *models.Timeslot {
	s := f.slot
	if s.ID == "" {
		s.ID = NewUUID()
	}
	return &s
}

// BookingFactory builds a models.Booking.
type BookingFactory struct {
	booking models.Booking
}

func NewBookingFactory(storeID, treatmentID, customerID string, start time.Time, durationMinutes int) *BookingFactory {
	return &BookingFactory{booking: models.Booking{
		StoreID:       storeID,
		TreatmentID:   treatmentID,
		CustomerID:    customerID,
		BookingDateTime: start,
		Duration:      durationMinutes,
		Status:        models.BookingStatusConfirmed,
		PriceAmount:   100,
		PriceCurrency: "USD",
	}}
}

func (f *BookingFactory) WithID(id string) *BookingFactory { f.booking.ID = id; return f }
func (f *BookingFactory) WithStaffID(staffID string) *BookingFactory {
	f.booking.StaffID = &staffID
	return f
}
func (f *BookingFactory) WithStatus(status models.BookingStatus) *BookingFactory {
	f.booking.Status = status
	return f
}

func (f *BookingFactory) Build() *models.Booking {
	b := f.booking
	if b.ID == "" {
		b.ID = NewUUID()
	}
	return &b
}

// WebhookSubscriptionFactory builds a models.WebhookSubscription.
type WebhookSubscriptionFactory struct {
	sub models.WebhookSubscription
}

func NewWebhookSubscriptionFactory(url string, events ...string) *WebhookSubscriptionFactory {
	return &WebhookSubscriptionFactory{sub: models.WebhookSubscription{
		URL:        url,
		Events:     pq.StringArray(events),
		Secret:     "test-secret",
		IsActive:   true,
		MaxRetries: 5,
	}}
}

func (f *WebhookSubscriptionFactory) WithID(id string) *WebhookSubscriptionFactory {
	f.sub.ID = id
	return f
}
func (f *WebhookSubscriptionFactory) WithMaxRetries(n int) *WebhookSubscriptionFactory {
	f.sub.MaxRetries = n
	return f
}
func (f *WebhookSubscriptionFactory) Inactive() *WebhookSubscriptionFactory {
	f.sub.IsActive = false
	return f
}

func (f *WebhookSubscriptionFactory) Build() *models.WebhookSubscription {
	s := f.sub
	if s.ID == "" {
		s.ID = NewUUID()
	}
	return &s
}
