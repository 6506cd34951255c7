package user

import (
	"context"
	"errors"
	"fmt"
	"log"

	"horizon/internal/infrastructure/dwolla"
)

// Service contains signup provisioning and session lookups.
type Service struct {
	repo      Repository
	identity  IdentityGateway
	customers dwolla.ClientInterface
}

func NewService(repo Repository, identity IdentityGateway, customers dwolla.ClientInterface) *Service {
	return &Service{repo: repo, identity: identity, customers: customers}
}

// SignUp creates the identity account, provisions the payment-network
// customer and persists the profile, then starts a session. If provisioning
// or persistence fails the identity account is deleted so no account is left
// without a profile.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*User, *Session, error) {
	p := params.Profile
	identityID, err := s.identity.CreateAccount(ctx, params.Email, params.Password, p.FirstName+" "+p.LastName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create identity account: %w", err)
	}

	u, err := s.provision(ctx, identityID, params)
	if err != nil {
		if delErr := s.identity.DeleteAccount(context.WithoutCancel(ctx), identityID); delErr != nil {
			log.Printf("Error deleting identity %s after failed signup: %v", identityID, delErr)
		}
		return nil, nil, err
	}
	log.Printf("User %s: signed up with payment customer %s", u.ID, u.PaymentCustomerID)

	session, err := s.identity.StartSession(ctx, params.Email, params.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start session: %w", err)
	}
	return u, session, nil
}

func (s *Service) provision(ctx context.Context, identityID string, params SignUpParams) (*User, error) {
	p := params.Profile
	customerURL, err := s.customers.CreateCustomer(ctx, dwolla.CustomerRequest{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       params.Email,
		Type:        "personal",
		Address1:    p.Address1,
		City:        p.City,
		State:       p.State,
		PostalCode:  p.PostalCode,
		DateOfBirth: p.DateOfBirth,
		SSN:         p.SSN,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}
	if customerURL == "" {
		return nil, fmt.Errorf("%w: empty customer URL", ErrProvisioningFailed)
	}

	customerID, err := ParseCustomerID(customerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvisioningFailed, err)
	}

	u, err := s.repo.Create(ctx, CreateUserParams{
		IdentityID:         identityID,
		Email:              params.Email,
		Profile:            p,
		PaymentCustomerID:  customerID,
		PaymentCustomerURL: customerURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// SignIn starts a session and resolves the profile behind it.
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, *Session, error) {
	session, err := s.identity.StartSession(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	u, err := s.repo.GetByIdentityID(ctx, session.IdentityID)
	if err != nil {
		return nil, nil, err
	}
	return u, session, nil
}

// CurrentUser resolves a session secret to the signed-in user's profile.
func (s *Service) CurrentUser(ctx context.Context, secret string) (*User, error) {
	if secret == "" {
		return nil, ErrSessionInvalid
	}

	identity, err := s.identity.CurrentUser(ctx, secret)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.GetByIdentityID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Identity without a profile: signup never completed.
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) Logout(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}
	return s.identity.EndSession(ctx, secret)
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
