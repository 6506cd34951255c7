package user

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionInvalid     = errors.New("session is invalid or expired")
	ErrInvalidCustomerURL = errors.New("payment customer URL has unexpected shape")
	ErrProvisioningFailed = errors.New("payment customer provisioning failed")
)

// User is the internal profile created at signup. The identity account owns
// credentials; this record owns the payment-network customer.
type User struct {
	ID                 string    `json:"id"`
	IdentityID         string    `json:"identityId"`
	Email              string    `json:"email"`
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	Address1           string    `json:"address1"`
	City               string    `json:"city"`
	State              string    `json:"state"`
	PostalCode         string    `json:"postalCode"`
	DateOfBirth        string    `json:"dateOfBirth"`
	SSN                string    `json:"-"`
	PaymentCustomerID  string    `json:"paymentCustomerId,omitempty"`
	PaymentCustomerURL string    `json:"paymentCustomerUrl,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Profile holds the write-once fields collected at signup.
type Profile struct {
	FirstName   string `json:"firstName" validate:"required,max=64"`
	LastName    string `json:"lastName" validate:"required,max=64"`
	Address1    string `json:"address1" validate:"required,max=128"`
	City        string `json:"city" validate:"required,max=64"`
	State       string `json:"state" validate:"required,len=2,alpha"`
	PostalCode  string `json:"postalCode" validate:"required,numeric,min=5,max=10"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	SSN         string `json:"ssn" validate:"required,numeric,min=4,max=9"`
}

type SignUpParams struct {
	Profile
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type CreateUserParams struct {
	IdentityID         string
	Email              string
	Profile            Profile
	PaymentCustomerID  string
	PaymentCustomerURL string
}

// Identity is what the identity gateway knows about a signed-in account.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// Session is a started identity session. Secret is the credential placed in
// the session cookie.
type Session struct {
	Secret     string
	IdentityID string
	ExpiresAt  time.Time
}
