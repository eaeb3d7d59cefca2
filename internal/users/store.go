package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/httpclient"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/observe"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/types"
	"github.com/angelmondragon/storefront/pkg/validate"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const storeName = "user"

type apiClient interface {
	Get(ctx context.Context, path string) (*httpclient.Response, error)
	Post(ctx context.Context, path string, body any) (*httpclient.Response, error)
	Put(ctx context.Context, path string, body any) (*httpclient.Response, error)
}

// StoreParams bundles the dependencies required to build a user store.
type StoreParams struct {
	Client  apiClient
	Storage storage.Store
	Logger  *logger.Logger
	Metrics *metrics.StoreMetrics

	// LogoutOnUnauthorized drops the session when the backend rejects an
	// authenticated profile call with 401.
	LogoutOnUnauthorized bool
}

// Store owns the current session: token, user and the derived auth flag.
type Store struct {
	client               apiClient
	storage              storage.Store
	logg                 *logger.Logger
	metrics              *metrics.StoreMetrics
	logoutOnUnauthorized bool

	mu    sync.Mutex
	token string
	user  *User

	listeners observe.Listeners[Session]
}

// NewStore builds the store and seeds the token from device storage.
func NewStore(ctx context.Context, params StoreParams) (*Store, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	s := &Store{
		client:               params.Client,
		storage:              params.Storage,
		logg:                 params.Logger,
		metrics:              params.Metrics,
		logoutOnUnauthorized: params.LogoutOnUnauthorized,
	}

	token, ok, err := s.storage.Get(ctx, TokenKey)
	if err != nil {
		s.logg.Error(ctx, "reading stored token failed, starting anonymous", err)
	} else if ok {
		s.token = token
	}
	return s, nil
}

// Token returns the session token, if any.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// User returns the cached profile, if one has been loaded.
func (s *Store) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// IsAuthenticated is true iff a token is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Session returns a copy of the current state.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionLocked()
}

// Subscribe registers fn to run after every state change.
func (s *Store) Subscribe(fn func(Session)) func() {
	return s.listeners.Subscribe(fn)
}

// TokenExpiry reads the exp claim when the token is a JWT. The signature is
// not verified; the backend remains the authority on validity.
func (s *Store) TokenExpiry() (time.Time, bool) {
	token, ok := s.Token()
	if !ok {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Login exchanges credentials for a session.
func (s *Store) Login(ctx context.Context, username, password string) (*types.ServerResponse, error) {
	ctx = s.opContext(ctx, "login")
	req := LoginRequest{Username: username, Password: password}
	if err := validate.Struct(req); err != nil {
		s.metrics.IncOperation(storeName, "login", metrics.OutcomeRejected)
		return nil, err
	}
	return s.authenticate(ctx, "login", PathLogin, req)
}

// Register creates an account and starts a session with it.
func (s *Store) Register(ctx context.Context, payload RegisterRequest) (*types.ServerResponse, error) {
	ctx = s.opContext(ctx, "register")
	if payload == nil {
		payload = RegisterRequest{}
	}
	return s.authenticate(ctx, "register", PathRegister, payload)
}

// Logout clears the session locally. It never fails.
func (s *Store) Logout(ctx context.Context) {
	ctx = s.opContext(ctx, "logout")
	s.mutate(ctx, true, func() {
		s.token = ""
		s.user = nil
	})
	s.metrics.IncOperation(storeName, "logout", metrics.OutcomeOK)
	s.logg.Info(ctx, "session cleared")
}

// FetchUserInfo reloads the profile from the backend.
func (s *Store) FetchUserInfo(ctx context.Context) (*types.ServerResponse, error) {
	ctx = s.opContext(ctx, "fetch_user")

	start := time.Now()
	resp, err := s.client.Get(ctx, PathMe)
	s.metrics.ObserveBackendCall("fetch_user", time.Since(start))
	if err != nil {
		return nil, s.profileFailure(ctx, "fetch_user", "fetching user info failed", err)
	}

	env, user, err := decodeUser(resp)
	if err != nil {
		return nil, s.profileFailure(ctx, "fetch_user", "decoding user info failed", err)
	}

	s.mutate(ctx, false, func() { s.user = user })
	s.metrics.IncOperation(storeName, "fetch_user", metrics.OutcomeOK)
	return env, nil
}

// UpdateUserInfo sends a partial update; the server's answer replaces the
// cached user as-is.
func (s *Store) UpdateUserInfo(ctx context.Context, update UpdateUserRequest) (*types.ServerResponse, error) {
	ctx = s.opContext(ctx, "update_user")
	if err := validate.Struct(update); err != nil {
		s.logg.Error(ctx, "update user info rejected", err)
		s.metrics.IncOperation(storeName, "update_user", metrics.OutcomeRejected)
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.Put(ctx, PathMe, update)
	s.metrics.ObserveBackendCall("update_user", time.Since(start))
	if err != nil {
		return nil, s.profileFailure(ctx, "update_user", "updating user info failed", err)
	}

	env, user, err := decodeUser(resp)
	if err != nil {
		return nil, s.profileFailure(ctx, "update_user", "decoding updated user failed", err)
	}

	s.mutate(ctx, false, func() { s.user = user })
	s.metrics.IncOperation(storeName, "update_user", metrics.OutcomeOK)
	return env, nil
}

func (s *Store) authenticate(ctx context.Context, op, path string, body any) (*types.ServerResponse, error) {
	start := time.Now()
	resp, err := s.client.Post(ctx, path, body)
	s.metrics.ObserveBackendCall(op, time.Since(start))
	if err != nil {
		s.metrics.IncOperation(storeName, op, metrics.OutcomeError)
		return nil, err
	}

	env, payload, err := decodeAuth(resp)
	if err != nil {
		s.metrics.IncOperation(storeName, op, metrics.OutcomeError)
		return nil, err
	}

	s.mutate(ctx, true, func() {
		s.token = payload.Token
		s.user = payload.User
	})
	s.metrics.IncOperation(storeName, op, metrics.OutcomeOK)
	if payload.User != nil {
		ctx = s.logg.WithUserID(ctx, payload.User.ID)
	}
	s.logg.Info(ctx, "session established")
	return env, nil
}

// profileFailure logs err, applies the forced-logout policy and hands err back.
func (s *Store) profileFailure(ctx context.Context, op, msg string, err error) error {
	s.logg.Error(ctx, msg, err)
	s.metrics.IncOperation(storeName, op, metrics.OutcomeError)
	if s.logoutOnUnauthorized && pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) && s.IsAuthenticated() {
		s.logg.Warn(ctx, "backend rejected the session, logging out")
		s.Logout(ctx)
	}
	return err
}

// mutate is the only write path. It applies fn and then notifies listeners.
// Session transitions (login, register, logout) pass syncToken so the stored
// token is written or removed every time, whatever the in-memory value was.
func (s *Store) mutate(ctx context.Context, syncToken bool, fn func()) {
	s.mu.Lock()
	fn()
	snapshot := s.sessionLocked()
	s.mu.Unlock()

	if syncToken {
		s.persistToken(ctx, snapshot.Token)
	}
	s.listeners.Notify(snapshot)
}

func (s *Store) persistToken(ctx context.Context, token string) {
	if token == "" {
		if err := s.storage.Remove(ctx, TokenKey); err != nil {
			s.logg.Error(ctx, "removing stored token failed", err)
		}
		return
	}
	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		s.logg.Error(ctx, "saving token failed", err)
	}
}

func (s *Store) sessionLocked() Session {
	session := Session{Token: s.token}
	if s.user != nil {
		u := *s.user
		session.User = &u
	}
	return session
}

func (s *Store) opContext(ctx context.Context, op string) context.Context {
	ctx = s.logg.WithOperationID(ctx, uuid.NewString())
	return s.logg.WithFields(ctx, map[string]any{"store": storeName, "operation": op})
}

func decodeAuth(resp *httpclient.Response) (*types.ServerResponse, *AuthPayload, error) {
	env, err := resp.Envelope()
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected auth response")
	}
	var payload AuthPayload
	if err := env.DecodeData(&payload); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected auth response")
	}
	if payload.Token == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeDependency, "auth response missing token")
	}
	return env, &payload, nil
}

func decodeUser(resp *httpclient.Response) (*types.ServerResponse, *User, error) {
	env, err := resp.Envelope()
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected user response")
	}
	var user User
	if err := env.DecodeData(&user); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unexpected user response")
	}
	return env, &user, nil
}
