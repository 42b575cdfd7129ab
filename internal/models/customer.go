package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Customer is a registered account
type Customer struct {
	ID           int64     `db:"customer_id" json:"customer_id"`
	Name         string    `db:"name" json:"name"`
	Mobile       *string   `db:"mobile" json:"mobile"`
	Email        string    `db:"email" json:"email"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	GoogleID     *string   `db:"google_id" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (c *Customer) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// OfflineCustomer is a walk-in customer recorded by an admin
type OfflineCustomer struct {
	ID        int64     `db:"customer_id" json:"customer_id"`
	Name      string    `db:"name" json:"name"`
	Mobile    string    `db:"mobile" json:"mobile"`
	Email     *string   `db:"email" json:"email"`
	Age       *int      `db:"age" json:"age"`
	Gender    *string   `db:"gender" json:"gender"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type OfflineCustomerView struct {
	OfflineCustomer
	Addresses []Address `json:"addresses"`
}

type State struct {
	ID           int64  `db:"state_id" json:"state_id"`
	Name         string `db:"name" json:"name"`
	Abbreviation string `db:"abbreviation" json:"abbreviation"`
}

// Address types
const (
	AddressHome = "Home"
	AddressWork = "Work"
)

// Address belongs to exactly one of a customer or an offline customer
type Address struct {
	ID                int64               `db:"address_id" json:"address_id"`
	CustomerID        *int64              `db:"customer_id" json:"customer_id"`
	OfflineCustomerID *int64              `db:"offline_customer_id" json:"offline_customer_id"`
	Name              string              `db:"name" json:"name"`
	Mobile            string              `db:"mobile" json:"mobile"`
	Pincode           string              `db:"pincode" json:"pincode"`
	Locality          string              `db:"locality" json:"locality"`
	AddressLine       string              `db:"address_line" json:"address_line"`
	City              string              `db:"city" json:"city"`
	StateID           int64               `db:"state_id" json:"state_id"`
	StateName         *string             `db:"state_name" json:"state_name,omitempty"`
	Landmark          *string             `db:"landmark" json:"landmark"`
	AlternatePhone    *string             `db:"alternate_phone" json:"alternate_phone"`
	AddressType       string              `db:"address_type" json:"address_type"`
	Latitude          decimal.NullDecimal `db:"latitude" json:"latitude"`
	Longitude         decimal.NullDecimal `db:"longitude" json:"longitude"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}
