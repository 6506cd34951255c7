package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"horizon/internal/domain/user"
)

const identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

// authClient is the subset of *auth.Client the gateway uses.
type authClient interface {
	CreateUser(ctx context.Context, u *auth.UserToCreate) (*auth.UserRecord, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySessionCookie(ctx context.Context, cookie string) (*auth.Token, error)
	VerifySessionCookieAndCheckRevoked(ctx context.Context, cookie string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	DeleteUser(ctx context.Context, uid string) error
}

// IdentityGateway implements user.IdentityGateway with Firebase Auth.
// Password sign-in goes through the Identity Toolkit REST API, which the
// Admin SDK does not expose; the resulting ID token is traded for a
// session cookie.
type IdentityGateway struct {
	auth         authClient
	httpClient   *http.Client
	baseURL      string
	webAPIKey    string
	sessionTTL   time.Duration
	isEmailTaken func(error) bool
	isRejected   func(error) bool
	now          func() time.Time
}

func NewIdentityGateway(ctx context.Context, app *firebase.App, webAPIKey string, sessionTTL time.Duration) (*IdentityGateway, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}
	return newIdentityGateway(client, webAPIKey, sessionTTL), nil
}

func newIdentityGateway(client authClient, webAPIKey string, sessionTTL time.Duration) *IdentityGateway {
	return &IdentityGateway{
		auth: client,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:      identityToolkitURL,
		webAPIKey:    webAPIKey,
		sessionTTL:   sessionTTL,
		isEmailTaken: auth.IsEmailAlreadyExists,
		isRejected:   isSessionRejected,
		now:          time.Now,
	}
}

func (g *IdentityGateway) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)

	record, err := g.auth.CreateUser(ctx, params)
	if err != nil {
		if g.isEmailTaken(err) {
			return "", user.ErrEmailTaken
		}
		return "", fmt.Errorf("failed to create identity account: %w", err)
	}
	return record.UID, nil
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken string `json:"idToken"`
	LocalID string `json:"localId"`
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *IdentityGateway) StartSession(ctx context.Context, email, password string) (*user.Session, error) {
	signIn, err := g.signInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	cookie, err := g.auth.SessionCookie(ctx, signIn.IDToken, g.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cookie: %w", err)
	}

	return &user.Session{
		Secret:     cookie,
		IdentityID: signIn.LocalID,
		ExpiresAt:  g.now().Add(g.sessionTTL),
	}, nil
}

func (g *IdentityGateway) signInWithPassword(ctx context.Context, email, password string) (*signInResponse, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign-in request: %w", err)
	}

	endpoint := g.baseURL + "/accounts:signInWithPassword?key=" + url.QueryEscape(g.webAPIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		var tkErr toolkitError
		_ = json.NewDecoder(resp.Body).Decode(&tkErr)
		return nil, fmt.Errorf("%w: %s", user.ErrInvalidCredentials, tkErr.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sign-in returned status %d", resp.StatusCode)
	}

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
	}
	if out.IDToken == "" {
		return nil, fmt.Errorf("sign-in response has no ID token")
	}
	return &out, nil
}

func (g *IdentityGateway) CurrentUser(ctx context.Context, secret string) (*user.Identity, error) {
	if secret == "" {
		return nil, user.ErrSessionInvalid
	}

	token, err := g.auth.VerifySessionCookieAndCheckRevoked(ctx, secret)
	if err != nil {
		if g.isRejected(err) {
			return nil, fmt.Errorf("%w: %w", user.ErrSessionInvalid, err)
		}
		return nil, fmt.Errorf("failed to verify session: %w", err)
	}

	record, err := g.auth.GetUser(ctx, token.UID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, user.ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	identity := &user.Identity{ID: token.UID}
	if record.UserInfo != nil {
		identity.Email = record.Email
		identity.Name = record.DisplayName
	}
	return identity, nil
}

// isSessionRejected reports whether Firebase refused the cookie itself, as
// opposed to failing to check it (key fetch, transport).
func isSessionRejected(err error) bool {
	return auth.IsSessionCookieInvalid(err) ||
		auth.IsSessionCookieRevoked(err) ||
		auth.IsUserDisabled(err)
}

// EndSession revokes every refresh token of the identity behind the cookie.
// An already invalid cookie counts as ended.
func (g *IdentityGateway) EndSession(ctx context.Context, secret string) error {
	token, err := g.auth.VerifySessionCookie(ctx, secret)
	if err != nil {
		return nil
	}
	if err := g.auth.RevokeRefreshTokens(ctx, token.UID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (g *IdentityGateway) DeleteAccount(ctx context.Context, identityID string) error {
	if err := g.auth.DeleteUser(ctx, identityID); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete identity account: %w", err)
	}
	return nil
}
