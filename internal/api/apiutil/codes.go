package apiutil

// Error codes exposed on the HTTP boundary. Clients switch on these, never on
// message text.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidDate      = "INVALID_DATE"
	CodeInvalidSlot      = "INVALID_SLOT"
	CodePastBooking      = "PAST_BOOKING"
	CodeSlotConflict     = "SLOT_ALREADY_BOOKED"
	CodeNotFound         = "RESOURCE_NOT_FOUND"
	CodeBookingNotFound  = "BOOKING_NOT_FOUND"
	CodeAlreadyCancelled = "ALREADY_CANCELLED"
	CodeCancelForbidden  = "CANCEL_FORBIDDEN"
	CodeStaffOnly        = "STAFF_ONLY"
	CodeInviteInvalid    = "INVITE_INVALID"
	CodeRateLimited      = "RATE_LIMITED"
	CodeBookingError     = "BOOKING_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)
