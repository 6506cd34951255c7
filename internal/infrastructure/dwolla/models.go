package dwolla

import (
	"fmt"
	"strings"
)

// CustomerRequest is a personal verified customer.
type CustomerRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Type        string `json:"type"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
}

type link struct {
	Href string `json:"href"`
}

type fundingSourceBody struct {
	PlaidToken string          `json:"plaidToken"`
	Name       string          `json:"name"`
	Links      map[string]link `json:"_links,omitempty"`
}

type onDemandAuthorization struct {
	Links      map[string]link `json:"_links"`
	BodyText   string          `json:"bodyText"`
	ButtonText string          `json:"buttonText"`
}

type removeBody struct {
	Removed bool `json:"removed"`
}

// APIError represents an error response from the payment network
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Embedded   struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Path    string `json:"path"`
		} `json:"errors"`
	} `json:"_embedded"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("dwolla error (status %d): %s - %s", e.StatusCode, e.Code, e.Message)
	if len(e.Embedded.Errors) == 0 {
		return msg
	}
	details := make([]string, 0, len(e.Embedded.Errors))
	for _, d := range e.Embedded.Errors {
		details = append(details, d.Path+": "+d.Message)
	}
	return msg + " (" + strings.Join(details, "; ") + ")"
}

// IsInvalidInput reports whether the request itself was rejected.
func (e *APIError) IsInvalidInput() bool {
	return e.StatusCode == 400 && (e.Code == "ValidationError" || e.Code == "InvalidResource")
}
