// Package remote provides the typed HTTP client for the IronLog exercise
// service: email+password auth plus owner-scoped record CRUD.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/mkarsten/ironlog/internal/platform/errors"
	"github.com/mkarsten/ironlog/internal/workout"
)

// Credential identifies an authenticated user against the remote service.
type Credential struct {
	UserID string
	Email  string
	Token  string
}

// Valid reports whether the credential can authorize remote calls.
func (c Credential) Valid() bool {
	return c.UserID != "" && c.Token != ""
}

// Client calls the remote exercise service.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type exercisesPayload struct {
	Exercises []workout.Exercise `json:"exercises"`
}

// SignUp registers a new account. Signing up also signs in: the response
// carries a live credential.
func (c *Client) SignUp(ctx context.Context, email, password string) (Credential, error) {
	return c.authenticate(ctx, "/v1/auth/signup", email, password)
}

// SignIn exchanges email+password for a credential.
func (c *Client) SignIn(ctx context.Context, email, password string) (Credential, error) {
	return c.authenticate(ctx, "/v1/auth/signin", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (Credential, error) {
	body, err := json.Marshal(authRequest{Email: email, Password: password})
	if err != nil {
		return Credential{}, fmt.Errorf("encode auth request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Credential{}, apperrors.Wrap(apperrors.CodeRemoteUnavailable, "auth request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		code := apperrors.CodeAuthFailed
		if resp.StatusCode == http.StatusConflict {
			code = apperrors.CodeAuthEmailTaken
		}
		return Credential{}, apperrors.New(code, remoteMessage(resp))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Credential{}, apperrors.Wrap(apperrors.CodeAuthFailed, "decode auth response", err)
	}
	cred := Credential{UserID: parsed.UserID, Email: parsed.Email, Token: parsed.Token}
	if !cred.Valid() {
		return Credential{}, apperrors.New(apperrors.CodeAuthFailed, "auth response is missing credential fields")
	}
	return cred, nil
}

// SignOut invalidates the credential on the service. Failures are surfaced
// so the caller can decide how loudly to report them; local session teardown
// does not depend on this call succeeding.
func (c *Client) SignOut(ctx context.Context, cred Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/auth/signout", nil)
	if err != nil {
		return fmt.Errorf("build sign-out request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteUnavailable, "sign-out request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.CodeAuthFailed, remoteMessage(resp))
	}
	return nil
}

// FetchAll returns every record owned by the credential's user, ordered by
// date descending. Transport failure is CodeRemoteUnavailable and is never
// conflated with an empty collection.
func (c *Client) FetchAll(ctx context.Context, cred Credential) ([]workout.Exercise, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/exercises", nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRemoteUnavailable, "fetch exercises", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.CodeRemoteUnavailable,
			fmt.Sprintf("fetch exercises: %s", remoteMessage(resp)))
	}

	var parsed exercisesPayload
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRemoteUnavailable, "decode exercises response", err)
	}
	if parsed.Exercises == nil {
		parsed.Exercises = []workout.Exercise{}
	}
	return parsed.Exercises, nil
}

// ReplaceAll replaces the user's entire remote collection: delete all owned
// rows, then insert the supplied set, in that order. Each step surfaces its
// own failure code so the caller knows whether local and remote diverged.
func (c *Client) ReplaceAll(ctx context.Context, cred Credential, records []workout.Exercise) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/exercises", nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteDeleteFailed, "delete exercises", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.CodeRemoteDeleteFailed,
			fmt.Sprintf("delete exercises: status %d", resp.StatusCode))
	}

	if records == nil {
		records = []workout.Exercise{}
	}
	body, err := json.Marshal(exercisesPayload{Exercises: records})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteInsertFailed, "encode exercises", err)
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/exercises", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build insert request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err = c.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRemoteInsertFailed, "insert exercises", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.CodeRemoteInsertFailed,
			fmt.Sprintf("insert exercises: %s", remoteMessage(resp)))
	}
	return nil
}

func remoteMessage(resp *http.Response) string {
	var parsed errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return resp.Status
}
