// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// usernamePattern constrains usernames after lowercase normalization.
var usernamePattern = regexp.MustCompile(`^[a-z0-9@._-]{1,64}$`)

// Service drives the challenge-response protocol: it builds ceremony
// options, records outstanding challenges, verifies signed responses and
// maintains the per-credential authenticator state.
type Service struct {
	webauthn   *webauthn.WebAuthn
	config     *Config
	users      UserStore
	challenges ChallengeStore
	issuer     SessionIssuer // optional
	policy     *ModeSelector
	locks      userLocks
}

// ServiceParams contains dependencies for creating a passkey service.
type ServiceParams struct {
	// Config is the relying-party configuration (required).
	Config *Config

	// UserStore is the credential store collaborator (required).
	UserStore UserStore

	// ChallengeStore is the challenge ledger collaborator (required).
	ChallengeStore ChallengeStore

	// SessionIssuer is an optional issuer notified of verified ceremonies.
	// If nil, results carry no session token.
	SessionIssuer SessionIssuer
}

// NewService creates a passkey service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.UserStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if params.ChallengeStore == nil {
		return nil, fmt.Errorf("challenge store is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	wa, err := webauthn.New(params.Config.toWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}

	mode, err := ParseMode(params.Config.Mode)
	if err != nil {
		return nil, err
	}
	policy := NewModeSelector(mode)
	if params.Config.LockMode {
		policy.Lock()
	}

	return &Service{
		webauthn:   wa,
		config:     params.Config,
		users:      params.UserStore,
		challenges: params.ChallengeStore,
		issuer:     params.SessionIssuer,
		policy:     policy,
	}, nil
}

// BeginRegistration starts a registration ceremony for username, creating
// the user record if absent. The returned options carry a fresh challenge,
// the acceptable algorithms and an exclusion list of the user's registered
// credential IDs; the challenge is recorded in the ledger, replacing any
// outstanding one for this username.
func (s *Service) BeginRegistration(ctx context.Context, username, displayName string) (*protocol.CredentialCreation, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return nil, wrapError("begin registration", err)
	}

	unlock := s.locks.acquire(username)
	defer unlock()

	user, err := s.users.Upsert(ctx, username, displayName)
	if err != nil {
		return nil, wrapError("upsert user", err)
	}

	excludeList := make([]protocol.CredentialDescriptor, len(user.Credentials))
	for i, cred := range user.Credentials {
		excludeList[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: cred.ID,
			Transport:    cred.Transports,
		}
	}

	options, session, err := s.webauthn.BeginRegistration(user,
		webauthn.WithExclusions(excludeList),
		webauthn.WithCredentialParameters(credentialParameters()),
		webauthn.WithConveyancePreference(s.config.conveyancePreference()),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: s.policy.Mode().Requirement(),
		}),
	)
	if err != nil {
		return nil, wrapError("begin registration", err)
	}

	if err := s.challenges.Set(ctx, username, session); err != nil {
		return nil, wrapError("record challenge", err)
	}

	return options, nil
}

// FinishRegistration completes a registration ceremony. The outstanding
// challenge is consumed first and is gone regardless of outcome. A
// response that parses but fails its cryptographic or contextual checks
// yields Verified=false with a nil error; re-registering an already-stored
// credential ID is absorbed without growing the credential set.
func (s *Service) FinishRegistration(ctx context.Context, username string, response *protocol.ParsedCredentialCreationData) (*RegistrationResult, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return nil, wrapError("finish registration", err)
	}

	unlock := s.locks.acquire(username)
	defer unlock()

	session, err := s.challenges.Pop(ctx, username)
	if err != nil {
		return nil, wrapError("pop challenge", err)
	}

	user, err := s.users.Get(ctx, username)
	if err != nil {
		return nil, wrapError("get user", err)
	}

	credential, err := s.webauthn.CreateCredential(user, *session, response)
	if err != nil {
		return &RegistrationResult{
			Verified: false,
			Reason:   verificationReason(err),
		}, nil
	}

	stored := FromWebAuthnCredential(credential)
	if user.AddCredential(stored) {
		if err := s.users.Save(ctx, user); err != nil {
			return nil, wrapError("save user", err)
		}
	}

	result := &RegistrationResult{
		Verified:        true,
		CredentialID:    base64.RawURLEncoding.EncodeToString(stored.ID),
		CredentialCount: len(user.Credentials),
	}

	if s.issuer != nil {
		sess, err := s.issuer.Issue(ctx, user.Username, user.DisplayName)
		if err != nil {
			return nil, wrapError("issue session", err)
		}
		result.Session = sess
	}

	return result, nil
}

// BeginAuthentication starts an authentication ceremony. The returned
// options carry a fresh challenge and an allow-list of exactly the user's
// registered credential IDs with transport hints. An unknown username and
// a username with zero credentials fail identically with ErrUserNotFound.
func (s *Service) BeginAuthentication(ctx context.Context, username string) (*protocol.CredentialAssertion, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return nil, wrapError("begin authentication", err)
	}

	unlock := s.locks.acquire(username)
	defer unlock()

	user, err := s.users.Get(ctx, username)
	if err != nil {
		if IsUserNotFound(err) {
			return nil, wrapError("begin authentication", ErrUserNotFound)
		}
		return nil, wrapError("get user", err)
	}
	if len(user.Credentials) == 0 {
		// Same failure shape as an unknown user, to resist enumeration.
		return nil, wrapError("begin authentication", ErrUserNotFound)
	}

	options, session, err := s.webauthn.BeginLogin(user,
		webauthn.WithUserVerification(s.policy.Mode().Requirement()),
	)
	if err != nil {
		return nil, wrapError("begin authentication", err)
	}

	if err := s.challenges.Set(ctx, username, session); err != nil {
		return nil, wrapError("record challenge", err)
	}

	return options, nil
}

// FinishAuthentication completes an authentication ceremony. The
// outstanding challenge is consumed first; the asserted credential must be
// on file before signature verification is attempted. On success the
// credential's sign counter and last-used timestamp are persisted. The
// counter must strictly increase, except that authenticators reporting a
// permanent zero are tolerated; a regression yields Verified=false.
func (s *Service) FinishAuthentication(ctx context.Context, username string, response *protocol.ParsedCredentialAssertionData) (*AuthenticationResult, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return nil, wrapError("finish authentication", err)
	}

	unlock := s.locks.acquire(username)
	defer unlock()

	session, err := s.challenges.Pop(ctx, username)
	if err != nil {
		return nil, wrapError("pop challenge", err)
	}

	user, err := s.users.Get(ctx, username)
	if err != nil {
		return nil, wrapError("get user", err)
	}
	if len(user.Credentials) == 0 {
		return nil, wrapError("finish authentication", ErrUserNotFound)
	}

	match := user.Credential(response.RawID)
	if match == nil {
		return nil, wrapError("finish authentication", ErrCredentialNotFound)
	}
	storedCount := match.SignCount
	credentialID := base64.RawURLEncoding.EncodeToString(match.ID)

	validated, err := s.webauthn.ValidateLogin(user, *session, response)
	if err != nil {
		return &AuthenticationResult{
			Verified:     false,
			Reason:       verificationReason(err),
			CredentialID: credentialID,
			SignCount:    storedCount,
		}, nil
	}

	newCount := validated.Authenticator.SignCount
	if validated.Authenticator.CloneWarning || !counterAcceptable(storedCount, newCount) {
		return &AuthenticationResult{
			Verified:     false,
			Reason:       fmt.Sprintf("sign counter did not advance (stored %d, reported %d): possible cloned authenticator", storedCount, newCount),
			CredentialID: credentialID,
			SignCount:    storedCount,
		}, nil
	}

	match.SignCount = newCount
	match.LastUsedAt = time.Now().UTC()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, wrapError("save user", err)
	}

	result := &AuthenticationResult{
		Verified:     true,
		CredentialID: credentialID,
		SignCount:    newCount,
		UserVerified: response.Response.AuthenticatorData.Flags.HasUserVerified(),
	}

	if s.issuer != nil {
		sess, err := s.issuer.Issue(ctx, user.Username, user.DisplayName)
		if err != nil {
			return nil, wrapError("issue session", err)
		}
		result.Session = sess
	}

	return result, nil
}

// ListUsers returns summaries of all user records, sorted by username.
func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, wrapError("list users", err)
	}

	summaries := make([]UserSummary, len(users))
	for i, u := range users {
		summaries[i] = UserSummary{
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Credentials: len(u.Credentials),
			CreatedAt:   u.CreatedAt,
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Username < summaries[j].Username
	})
	return summaries, nil
}

// Mode returns the active user-verification mode.
func (s *Service) Mode() Mode {
	return s.policy.Mode()
}

// SetMode changes the active user-verification mode. Fails with
// ErrPolicyLocked once the policy has been locked.
func (s *Service) SetMode(mode Mode) error {
	return s.policy.SetMode(mode)
}

// LockMode permanently locks the active mode.
func (s *Service) LockMode() {
	s.policy.Lock()
}

// ModeLocked reports whether the mode is locked.
func (s *Service) ModeLocked() bool {
	return s.policy.Locked()
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// NormalizeUsername lowercases and validates a username. Validation
// happens before any storage access.
func NormalizeUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return "", ErrInvalidUsername
	}
	return username, nil
}

// counterAcceptable implements the clone-detection policy: the reported
// counter must strictly increase, except that counterless authenticators
// reporting zero forever are tolerated.
func counterAcceptable(stored, reported uint32) bool {
	return reported > stored || (stored == 0 && reported == 0)
}

// verificationReason extracts a stable failure description from a
// go-webauthn verification error.
func verificationReason(err error) string {
	var pErr *protocol.Error
	if errors.As(err, &pErr) && pErr.Details != "" {
		return pErr.Details
	}
	return err.Error()
}

// userLocks serializes ceremony operations per username so that the
// issue-then-consume challenge lifecycle cannot interleave for one
// account. Entries are never removed; the map is bounded by the number of
// distinct usernames seen.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) acquire(username string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := l.locks[username]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[username] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
