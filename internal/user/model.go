package user

import "time"

// Status is the lifecycle state of an account. Pending accounts were seeded
// from the ERP during first code issuance and have not finished registration.
// Deleted and Banned are reachable only through administrative action.
type Status string

const (
	StatusPending Status = "Pending"
	StatusOpen    Status = "Open"
	StatusDeleted Status = "Deleted"
	StatusBanned  Status = "Banned"
)

// User is an account identified by its main phone number.
//
// Invariant: StatusOpen implies PasswordHash is set and PhoneVerified is true.
type User struct {
	ID            string
	PhoneMain     string
	PhoneVerified bool
	PasswordHash  []byte
	PINHash       []byte
	Status        Status
	IsAdmin       bool
	DeviceToken   string
	CardCode      string
	FullName      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
