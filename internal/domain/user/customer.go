package user

import (
	"net/url"
	"strings"
)

// ParseCustomerID extracts the customer ID from a payment-network customer
// reference URL of the form https://host/customers/{id}.
func ParseCustomerID(customerURL string) (string, error) {
	u, err := url.Parse(customerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidCustomerURL
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 || segments[0] != "customers" || segments[1] == "" {
		return "", ErrInvalidCustomerURL
	}
	return segments[1], nil
}
