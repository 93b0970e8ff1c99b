package models

// Contact is an address book entry owned by one user.
// Birthday is kept as an ISO date string (YYYY-MM-DD).
type Contact struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Birthday  string
	UserID    int64
}
