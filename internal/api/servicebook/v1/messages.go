package servicebookv1

// Timestamps are RFC 3339 strings in UTC. Pointer fields are optional: nil means the
// field was omitted, a non-nil empty value clears it.

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Service struct {
	ID              string `json:"id"`
	AdminID         string `json:"admin_id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
}

type Selection struct {
	ServiceID string `json:"service_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

type BookingService struct {
	ServiceID string   `json:"service_id"`
	Quantity  int      `json:"quantity"`
	Service   *Service `json:"service"`
}

type Booking struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	BookingStart     string            `json:"booking_start"`
	BookingEnd       string            `json:"booking_end"`
	Status           string            `json:"status"`
	Notes            string            `json:"notes"`
	HandledByAdminID string            `json:"handled_by_admin_id,omitempty"`
	Customer         *User             `json:"customer"`
	HandledByAdmin   *User             `json:"handled_by_admin,omitempty"`
	Services         []*BookingService `json:"services"`
	CreatedAt        string            `json:"created_at"`
	UpdatedAt        string            `json:"updated_at"`
}

type Conflict struct {
	BookingID    string   `json:"booking_id"`
	BookingStart string   `json:"booking_start"`
	BookingEnd   string   `json:"booking_end"`
	Service      *Service `json:"service"`
	ServiceOwner *User    `json:"service_owner"`
	Customer     *User    `json:"customer"`
}

type CreateBookingRequest struct {
	BookingStart string      `json:"booking_start"`
	Services     []Selection `json:"services"`
	Notes        string      `json:"notes,omitempty"`
}

type GetBookingRequest struct {
	BookingID string `json:"booking_id"`
}

type BookingResponse struct {
	Booking *Booking `json:"booking"`
}

type ListBookingsRequest struct {
	Status      string `json:"status,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Page        int    `json:"page,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

type ListBookingsResponse struct {
	Bookings   []*Booking `json:"bookings"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"total_pages"`
}

type ListBookingsByDateRequest struct {
	Date string `json:"date"`
}

type ListBookingsByDateResponse struct {
	Bookings []*Booking `json:"bookings"`
}

type BookingStatsRequest struct{}

type BookingStatsResponse struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

type SetBookingStatusRequest struct {
	BookingID string  `json:"booking_id"`
	Status    string  `json:"status"`
	Notes     *string `json:"notes,omitempty"`
}

type UpdateBookingRequest struct {
	BookingID    string  `json:"booking_id"`
	BookingStart *string `json:"booking_start,omitempty"`
	Status       *string `json:"status,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type RescheduleBookingRequest struct {
	BookingID    string       `json:"booking_id"`
	BookingStart *string      `json:"booking_start,omitempty"`
	Services     *[]Selection `json:"services,omitempty"`
	Notes        *string      `json:"notes,omitempty"`
}

type DeleteBookingRequest struct {
	BookingID string `json:"booking_id"`
}

type CheckAvailabilityRequest struct {
	BookingStart     string   `json:"booking_start"`
	ServiceIDs       []string `json:"service_ids"`
	ExcludeBookingID string   `json:"exclude_booking_id,omitempty"`
}

type CheckAvailabilityResponse struct {
	Available    bool        `json:"available"`
	BookingStart string      `json:"booking_start"`
	BookingEnd   string      `json:"booking_end"`
	Conflicts    []*Conflict `json:"conflicts"`
}

type ListBookingSelectionsRequest struct {
	BookingID string `json:"booking_id"`
}

type ListBookingSelectionsResponse struct {
	Services []*BookingService `json:"services"`
}

type AddBookingSelectionRequest struct {
	BookingID string `json:"booking_id"`
	ServiceID string `json:"service_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

type UpdateBookingSelectionRequest struct {
	BookingID string `json:"booking_id"`
	ServiceID string `json:"service_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveBookingSelectionRequest struct {
	BookingID string `json:"booking_id"`
	ServiceID string `json:"service_id"`
}
