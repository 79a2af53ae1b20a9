package model

import "time"

type UserRole string

const (
	RoleSubscriber UserRole = "SUBSCRIBER"
	RoleLibrarian  UserRole = "LIBRARIAN"
)

type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterReq represents subscriber signup payload
// swagger:model RegisterReq
type RegisterReq struct {
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	AddressStreet string `json:"address_street" validate:"required"`
	AddressZip    string `json:"address_zipcode" validate:"required"`
	IBAN          string `json:"iban" validate:"required"`
}

// LoginReq represents login payload
// swagger:model LoginReq
type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
