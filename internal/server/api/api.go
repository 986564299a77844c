// Package api implements the exercise service's HTTP endpoints: account
// auth and the owner-scoped exercise collection the tracker client syncs
// against.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/mkarsten/ironlog/internal/platform/errors"
	"github.com/mkarsten/ironlog/internal/platform/id"
	"github.com/mkarsten/ironlog/internal/server/httpx"
	"github.com/mkarsten/ironlog/internal/server/storage"
	"github.com/mkarsten/ironlog/internal/server/token"
	"github.com/mkarsten/ironlog/internal/workout"
)

const minPasswordLength = 6

// Handler serves the service's HTTP API.
type Handler struct {
	store  storage.Store
	tokens token.Config
	now    func() time.Time
}

// New builds an API handler over the given store and token configuration.
func New(store storage.Store, tokens token.Config) *Handler {
	now := tokens.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{store: store, tokens: tokens, now: now}
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

type exercisesPayload struct {
	Exercises []workout.Exercise `json:"exercises"`
}

// Routes returns the service mux with middleware applied.
func (h *Handler) Routes(service string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/auth/signup", httpx.RequireMethod(http.MethodPost)(http.HandlerFunc(h.handleSignUp)))
	mux.Handle("/v1/auth/signin", httpx.RequireMethod(http.MethodPost)(http.HandlerFunc(h.handleSignIn)))
	mux.Handle("/v1/auth/signout", httpx.RequireMethod(http.MethodPost)(http.HandlerFunc(h.handleSignOut)))
	mux.HandleFunc("/v1/exercises", h.handleExercises)

	return httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		httpx.Trace(service),
	)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	email, password, err := decodeAuthRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		httpx.WriteError(w, fmt.Errorf("hash password: %w", err))
		return
	}
	userID, err := id.NewID()
	if err != nil {
		httpx.WriteError(w, fmt.Errorf("generate user id: %w", err))
		return
	}

	now := h.now().UTC()
	user := storage.User{
		ID:           userID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		httpx.WriteError(w, err)
		return
	}
	h.writeCredential(w, user)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	email, password, err := decodeAuthRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		// A missing account and a wrong password report identically.
		httpx.WriteError(w, apperrors.New(apperrors.CodeAuthFailed, "invalid email or password"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		httpx.WriteError(w, apperrors.New(apperrors.CodeAuthFailed, "invalid email or password"))
		return
	}
	h.writeCredential(w, user)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	claims, err := h.authenticate(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.store.RevokeToken(r.Context(), claims.JWTID, claims.ExpiresAt); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExercises(w http.ResponseWriter, r *http.Request) {
	claims, err := h.authenticate(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listExercises(w, r, claims)
	case http.MethodDelete:
		h.deleteExercises(w, r, claims)
	case http.MethodPost:
		h.insertExercises(w, r, claims)
	default:
		w.Header().Set("Allow", strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodDelete}, ", "))
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listExercises(w http.ResponseWriter, r *http.Request, claims token.Claims) {
	records, err := h.store.ListExercises(r.Context(), claims.UserID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if records == nil {
		records = []workout.Exercise{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, exercisesPayload{Exercises: records})
}

func (h *Handler) deleteExercises(w http.ResponseWriter, r *http.Request, claims token.Claims) {
	if err := h.store.DeleteExercises(r.Context(), claims.UserID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) insertExercises(w http.ResponseWriter, r *http.Request, claims token.Claims) {
	var payload exercisesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "malformed exercises payload")
		return
	}

	records := payload.Exercises
	for i := range records {
		if strings.TrimSpace(records[i].ID) == "" {
			httpx.WriteError(w, apperrors.New(apperrors.CodeExerciseIDMissing, "exercise id is required"))
			return
		}
		if err := workout.Validate(records[i]); err != nil {
			httpx.WriteError(w, err)
			return
		}
		// The authenticated identity owns everything it writes, whatever
		// the payload claims.
		records[i].OwnerID = claims.UserID
	}

	if err := h.store.InsertExercises(r.Context(), claims.UserID, records); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// authenticate verifies the request's bearer token and rejects revoked
// tokens.
func (h *Handler) authenticate(r *http.Request) (token.Claims, error) {
	raw := httpx.BearerToken(r)
	if raw == "" {
		return token.Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "bearer token is required")
	}
	claims, err := token.Verify(raw, h.tokens)
	if err != nil {
		return token.Claims{}, err
	}
	revoked, err := h.store.TokenRevoked(r.Context(), claims.JWTID)
	if err != nil {
		return token.Claims{}, err
	}
	if revoked {
		return token.Claims{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token has been revoked")
	}
	return claims, nil
}

func (h *Handler) writeCredential(w http.ResponseWriter, user storage.User) {
	signed, err := token.Issue(h.tokens, user.ID, user.Email)
	if err != nil {
		httpx.WriteError(w, fmt.Errorf("issue token: %w", err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, authResponse{
		UserID: user.ID,
		Email:  user.Email,
		Token:  signed,
	})
}

func decodeAuthRequest(r *http.Request) (email, password string, err error) {
	var parsed authRequest
	if err := json.NewDecoder(r.Body).Decode(&parsed); err != nil {
		return "", "", apperrors.Wrap(apperrors.CodeAuthFailed, "decode auth request", err)
	}
	email = strings.ToLower(strings.TrimSpace(parsed.Email))
	password = parsed.Password
	if email == "" || !strings.Contains(email, "@") {
		return "", "", apperrors.New(apperrors.CodeAuthFailed, "a valid email is required")
	}
	if len(password) < minPasswordLength {
		return "", "", apperrors.New(apperrors.CodeAuthFailed,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return email, password, nil
}
