package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the owning customer record resolved or created at assembly.
type Customer struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var ErrCustomerNotFound = &Error{Code: ENOTFOUND, Message: "Customer not found"}
