package models

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking is a passenger reservation against a trip. Bookings are never
// deleted; cancellation moves them to CANCELLED.
type Booking struct {
	ID            int64         `json:"id"`
	TripID        int64         `json:"trip_id"`
	PassengerName string        `json:"passenger_name"`
	Seats         int           `json:"seats"`
	Status        BookingStatus `json:"status"`
}
