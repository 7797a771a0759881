package idbridge

import (
	"context"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// unnamedUser is the display name for identities the upstream reports
// without one.
const unnamedUser = "Unnamed User"

// Authenticator reconciles an externally authenticated identity with a
// locally persisted user and mints internal tokens. One pass per call, no
// retries at this layer; retry policy belongs to the transport around the
// broker and store.
type Authenticator struct {
	broker   IdentityBroker
	users    UserStore
	tokens   TokenService
	logger   Logger
	activity ActivitySink
}

// NewAuthenticator returns a new Authenticator.
func NewAuthenticator(broker IdentityBroker, users UserStore, tokens TokenService) *Authenticator {
	return &Authenticator{
		broker:   broker,
		users:    users,
		tokens:   tokens,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (a *Authenticator) WithActivitySink(sink ActivitySink) *Authenticator {
	a.activity = normalizeActivitySink(sink)
	return a
}

// LoginOrRegister exchanges an externally issued access token for an
// internal token and the resolved user. A first-time identity is persisted;
// a known identity is used as-is, with no profile sync on the lookup path.
func (a *Authenticator) LoginOrRegister(ctx context.Context, externalToken string) (string, *User, error) {
	identity, err := a.broker.FetchExternalIdentity(ctx, externalToken)
	if err != nil {
		a.logger.Error("LoginOrRegister identity fetch failed", "error", err)
		a.emit(ctx, ActivityLoginFailure, "", map[string]any{"error": err.Error()})
		return "", nil, err
	}

	if !identity.HasSubject() {
		err := cloneWithReason(ErrInvalidExternalIdentity, "subject missing")
		a.emit(ctx, ActivityLoginFailure, "", map[string]any{"error": err.Error()})
		return "", nil, err
	}

	user, err := a.users.FindByExternalID(ctx, identity.Subject)
	if err != nil {
		a.logger.Error("LoginOrRegister user lookup failed", "external_id", identity.Subject, "error", err)
		return "", nil, goerrors.Wrap(err, ErrUserLookupFailed.Category, ErrUserLookupFailed.Message).
			WithTextCode(ErrUserLookupFailed.TextCode)
	}

	if user == nil {
		if user, err = a.registerUser(ctx, identity); err != nil {
			a.emit(ctx, ActivityLoginFailure, "", map[string]any{
				"external_id": identity.Subject,
				"error":       err.Error(),
			})
			return "", nil, err
		}
	}

	token, err := a.mintToken(identity, user)
	if err != nil {
		a.logger.Error("LoginOrRegister token mint failed", "user_id", user.ID, "error", err)
		a.emit(ctx, ActivityLoginFailure, formatUserID(user.ID), map[string]any{"error": err.Error()})
		return "", nil, err
	}

	a.emit(ctx, ActivityLoginSuccess, formatUserID(user.ID), map[string]any{
		"external_id": identity.Subject,
	})

	return token, user, nil
}

// ResolveUserFromToken decodes an internal token and loads the user it
// references. Every call fully re-validates the token; nothing is cached.
func (a *Authenticator) ResolveUserFromToken(ctx context.Context, token string) (*User, error) {
	claims, err := a.tokens.Decode(token)
	if err != nil {
		a.emit(ctx, ActivityTokenRejected, "", map[string]any{"error": err.Error()})
		return nil, err
	}

	userID, err := parseTokenSubject(claims)
	if err != nil {
		a.emit(ctx, ActivityTokenRejected, "", map[string]any{"error": err.Error()})
		return nil, err
	}

	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		a.logger.Error("ResolveUserFromToken user lookup failed", "user_id", userID, "error", err)
		return nil, goerrors.Wrap(err, ErrUserLookupFailed.Category, ErrUserLookupFailed.Message).
			WithTextCode(ErrUserLookupFailed.TextCode)
	}
	if user == nil {
		clone := ErrUnknownUser.Clone()
		clone.Source = ErrUnknownUser
		return nil, clone.WithMetadata(map[string]any{"user_id": userID})
	}

	a.emit(ctx, ActivityTokenResolved, formatUserID(user.ID), nil)

	return user, nil
}

// registerUser persists a first-time identity. A uniqueness conflict means
// a concurrent login won the create; the now-existing row is re-read and
// used. No partial user is ever left visible.
func (a *Authenticator) registerUser(ctx context.Context, identity *ExternalIdentity) (*User, error) {
	if identity.Email == "" {
		return nil, cloneWithReason(ErrInvalidExternalIdentity, "email missing")
	}

	displayName := identity.DisplayName
	if displayName == "" {
		displayName = unnamedUser
	}

	record := &User{
		ExternalID:  identity.Subject,
		Email:       identity.Email,
		DisplayName: displayName,
		Role:        MapExternalRoles(identity.Roles),
		Active:      true,
	}

	created, err := a.users.Create(ctx, record)
	if err == nil {
		a.emit(ctx, ActivityUserRegistered, formatUserID(created.ID), map[string]any{
			"external_id": identity.Subject,
			"role":        created.Role.String(),
		})
		return created, nil
	}

	if IsConflictError(err) {
		existing, rerr := a.users.FindByExternalID(ctx, identity.Subject)
		if rerr == nil && existing != nil {
			a.logger.Debug("registerUser lost create race, using existing row", "external_id", identity.Subject)
			return existing, nil
		}
		if rerr != nil {
			err = rerr
		}
	}

	a.logger.Error("registerUser create failed", "external_id", identity.Subject, "error", err)
	return nil, goerrors.Wrap(err, ErrUserCreationFailed.Category, ErrUserCreationFailed.Message).
		WithTextCode(ErrUserCreationFailed.TextCode)
}

func (a *Authenticator) mintToken(identity *ExternalIdentity, user *User) (string, error) {
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: formatUserID(user.ID),
		},
		Roles:       NewClaimList(user.Role.String()),
		Permissions: NewClaimList(identity.Permissions...),
	}
	return a.tokens.Encode(claims, 0)
}

func (a *Authenticator) emit(ctx context.Context, kind, userID string, metadata map[string]any) {
	event := newActivityEvent(kind, userID, metadata)
	if err := a.activity.Record(ctx, event); err != nil {
		a.logger.Warn("activity sink failed", "kind", kind, "error", err)
	}
}

func parseTokenSubject(claims *TokenClaims) (int64, error) {
	subject := claims.Subject()
	if subject == "" {
		return 0, cloneWithReason(ErrInvalidTokenSubject, "subject missing")
	}
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || id <= 0 {
		clone := ErrInvalidTokenSubject.Clone()
		clone.Source = ErrInvalidTokenSubject
		return 0, clone.WithMetadata(map[string]any{"subject": subject})
	}
	return id, nil
}

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}
