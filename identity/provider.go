// Package identity is the local identity provider: accounts, sessions,
// organizations and membership management. Callers depend on Provider so the
// implementation can be swapped for an external service.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/acme/outline-api/config"
	"github.com/acme/outline-api/internal/observability"
	"github.com/acme/outline-api/models"
	"github.com/acme/outline-api/notification"
	"github.com/acme/outline-api/repositories"
	"github.com/acme/outline-api/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Provider is the identity contract used by middleware and services
type Provider interface {
	SignUp(ctx context.Context, email, password, name string) (*AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*AuthResult, error)
	SignOut(ctx context.Context, sessionID uuid.UUID) error
	ResolveSession(ctx context.Context, token string) (models.AuthContext, error)
	CurrentSession(ctx context.Context, caller models.AuthContext) (*SessionView, error)

	CreateOrganization(ctx context.Context, caller models.AuthContext, name, slug string) (*models.Organization, error)
	ListOrganizations(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error)
	SetActiveOrganization(ctx context.Context, caller models.AuthContext, orgID uuid.UUID) error

	CreateInvitation(ctx context.Context, caller models.AuthContext, orgID uuid.UUID, email string, role models.MemberRole) (*models.Invitation, error)
	AcceptInvitation(ctx context.Context, caller models.AuthContext, invitationID uuid.UUID) (*models.Membership, error)
	UpdateMemberRole(ctx context.Context, orgID, memberID uuid.UUID, role models.MemberRole) (*models.MemberWithUser, error)
	RemoveMember(ctx context.Context, orgID, memberID uuid.UUID) error

	Close() error
}

// Notifier queues invitation emails for background delivery
type Notifier interface {
	Enqueue(email notification.InvitationEmail) error
}

// AuthResult is returned by sign-up and sign-in
type AuthResult struct {
	Token   string          `json:"token"`
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

// SessionView is the caller's user and session
type SessionView struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
}

// Deps are the collaborators of LocalProvider
type Deps struct {
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager
	Notifier  Notifier
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// LocalProvider implements Provider on top of the application database
type LocalProvider struct {
	users         repositories.UserRepository
	organizations repositories.OrganizationRepository
	memberships   repositories.MembershipRepository
	invitations   repositories.InvitationRepository
	sessions      repositories.SessionRepository
	txManager     repositories.TransactionManager

	notifier Notifier
	signer   *TokenSigner
	cache    *expirable.LRU[uuid.UUID, models.Session]
	metrics  *observability.Metrics
	logger   *zap.Logger

	sessionTTL      time.Duration
	invitationTTL   time.Duration
	bcryptCost      int
	minPasswordSize int
	frontEndURL     string
	now             func() time.Time
}

var _ Provider = (*LocalProvider)(nil)

// New creates a LocalProvider
func New(cfg *config.Config, deps Deps) (*LocalProvider, error) {
	if deps.Repos == nil || deps.TxManager == nil {
		return nil, fmt.Errorf("identity: repositories and transaction manager are required")
	}
	if cfg.Auth.SessionSecret == "" {
		return nil, fmt.Errorf("identity: session secret is required")
	}

	cacheSize := cfg.Auth.CacheSize
	if cacheSize < 1 {
		cacheSize = 1
	}
	cost := cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &LocalProvider{
		users:           deps.Repos.Users,
		organizations:   deps.Repos.Organizations,
		memberships:     deps.Repos.Memberships,
		invitations:     deps.Repos.Invitations,
		sessions:        deps.Repos.Sessions,
		txManager:       deps.TxManager,
		notifier:        deps.Notifier,
		signer:          NewTokenSigner(cfg.Auth.SessionSecret),
		cache:           expirable.NewLRU[uuid.UUID, models.Session](cacheSize, nil, cfg.Auth.CacheTTL),
		metrics:         deps.Metrics,
		logger:          deps.Logger,
		sessionTTL:      cfg.Auth.SessionTTL,
		invitationTTL:   cfg.Invitations.TTL,
		bcryptCost:      cost,
		minPasswordSize: cfg.Auth.MinPasswordSize,
		frontEndURL:     cfg.FrontEndURL,
		now:             func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close drops cached sessions
func (p *LocalProvider) Close() error {
	p.cache.Purge()
	return nil
}

// SignUp creates an account and a first session
func (p *LocalProvider) SignUp(ctx context.Context, email, password, name string) (*AuthResult, error) {
	if len(password) < p.minPasswordSize {
		return nil, services.ErrWeakPassword.WithDetail("password", fmt.Sprintf("password must be at least %d characters", p.minPasswordSize))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(email, name, string(hash))
	if err := p.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, services.ErrDuplicateEmail
		}
		return nil, services.WrapInternal("failed to create user", err)
	}

	observability.ForRequest(ctx, p.logger).Info("user signed up", zap.String("user_id", user.ID.String()))
	return p.issueSession(ctx, user, nil)
}

// SignIn verifies credentials and opens a session. The session starts on the
// earliest organization the user owns, if any.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := p.users.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvalidCredentials
		}
		return nil, services.WrapInternal("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, services.ErrInvalidCredentials
	}

	var activeOrg *uuid.UUID
	owned, err := p.memberships.FindFirstOwnedByUser(ctx, user.ID)
	switch {
	case err == nil:
		activeOrg = &owned.OrganizationID
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, services.WrapInternal("failed to resolve default organization", err)
	}

	return p.issueSession(ctx, user, activeOrg)
}

func (p *LocalProvider) issueSession(ctx context.Context, user *models.User, activeOrg *uuid.UUID) (*AuthResult, error) {
	session := models.NewSession(user.ID, activeOrg, p.sessionTTL)
	if err := p.sessions.Create(ctx, session); err != nil {
		return nil, services.WrapInternal("failed to create session", err)
	}

	token, err := p.signer.Sign(user.ID, session.ID, session.ExpiresAt)
	if err != nil {
		return nil, services.WrapInternal("failed to issue token", err)
	}

	p.cache.Add(session.ID, *session)
	return &AuthResult{Token: token, User: user, Session: session}, nil
}

// SignOut deletes a session. Signing out twice is not an error.
func (p *LocalProvider) SignOut(ctx context.Context, sessionID uuid.UUID) error {
	p.cache.Remove(sessionID)
	if err := p.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return services.WrapInternal("failed to delete session", err)
	}
	return nil
}

// ResolveSession verifies a token and returns the caller's identity
func (p *LocalProvider) ResolveSession(ctx context.Context, token string) (models.AuthContext, error) {
	claims, err := p.signer.Parse(token)
	if err != nil {
		if errors.Is(err, errTokenExpired) {
			return models.AuthContext{}, services.ErrSessionExpired
		}
		return models.AuthContext{}, services.ErrInvalidToken.WithCause(err)
	}

	session, err := p.loadSession(ctx, claims.SessionID)
	if err != nil {
		return models.AuthContext{}, err
	}
	if session.UserID != claims.UserID {
		return models.AuthContext{}, services.ErrInvalidToken
	}
	if session.IsExpired(p.now()) {
		p.cache.Remove(session.ID)
		return models.AuthContext{}, services.ErrSessionExpired
	}

	return models.AuthContext{
		UserID:               session.UserID,
		SessionID:            session.ID,
		ActiveOrganizationID: session.ActiveOrganizationID,
	}, nil
}

func (p *LocalProvider) loadSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	if cached, ok := p.cache.Get(id); ok {
		p.metrics.RecordSessionCache(true)
		return &cached, nil
	}
	p.metrics.RecordSessionCache(false)

	session, err := p.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvalidToken
		}
		return nil, services.WrapInternal("failed to load session", err)
	}
	p.cache.Add(session.ID, *session)
	return session, nil
}

// CurrentSession returns the caller's user and session records
func (p *LocalProvider) CurrentSession(ctx context.Context, caller models.AuthContext) (*SessionView, error) {
	session, err := p.loadSession(ctx, caller.SessionID)
	if err != nil {
		return nil, err
	}
	user, err := p.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, services.WrapInternal("failed to load user", err)
	}
	return &SessionView{User: user, Session: session}, nil
}

// CreateOrganization creates an organization owned by the caller and makes it
// the calling session's active organization
func (p *LocalProvider) CreateOrganization(ctx context.Context, caller models.AuthContext, name, slug string) (*models.Organization, error) {
	org := models.NewOrganization(name, slug)
	if !models.IsValidSlug(org.Slug) {
		return nil, services.ErrInvalidSlug
	}

	err := services.WithTransaction(ctx, p.txManager, func(ctx context.Context) error {
		if err := p.organizations.Create(ctx, org); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return services.ErrDuplicateSlug
			}
			return services.WrapInternal("failed to create organization", err)
		}
		if err := p.memberships.Create(ctx, models.NewMembership(caller.UserID, org.ID, models.RoleOwner)); err != nil {
			return services.WrapInternal("failed to create owner membership", err)
		}
		if err := p.sessions.SetActiveOrganization(ctx, caller.SessionID, org.ID); err != nil {
			return services.WrapInternal("failed to activate organization", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.cache.Remove(caller.SessionID)
	observability.ForRequest(ctx, p.logger).Info("organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.String("user_id", caller.UserID.String()))
	return org, nil
}

// ListOrganizations returns the organizations userID belongs to
func (p *LocalProvider) ListOrganizations(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	orgs, err := p.organizations.ListByUserID(ctx, userID)
	if err != nil {
		return nil, services.WrapInternal("failed to list organizations", err)
	}
	return orgs, nil
}

// SetActiveOrganization points the calling session at orgID. Membership is required.
func (p *LocalProvider) SetActiveOrganization(ctx context.Context, caller models.AuthContext, orgID uuid.UUID) error {
	if _, err := p.memberships.GetByUserAndOrganization(ctx, caller.UserID, orgID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrNotMember
		}
		return services.WrapInternal("failed to check membership", err)
	}

	if err := p.sessions.SetActiveOrganization(ctx, caller.SessionID, orgID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrInvalidToken
		}
		return services.WrapInternal("failed to activate organization", err)
	}
	p.cache.Remove(caller.SessionID)
	return nil
}

// CreateInvitation persists a pending invitation and queues the email. A
// failure to queue the email is logged and does not fail the invitation.
func (p *LocalProvider) CreateInvitation(ctx context.Context, caller models.AuthContext, orgID uuid.UUID, email string, role models.MemberRole) (*models.Invitation, error) {
	if !role.IsValid() {
		return nil, services.ErrInvalidRole
	}
	email = models.NormalizeEmail(email)

	org, err := p.organizations.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrOrganizationNotFound
		}
		return nil, services.WrapInternal("failed to load organization", err)
	}

	if invitee, err := p.users.GetByEmail(ctx, email); err == nil {
		if _, err := p.memberships.GetByUserAndOrganization(ctx, invitee.ID, orgID); err == nil {
			return nil, services.ErrAlreadyMember
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, services.WrapInternal("failed to check membership", err)
		}
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.WrapInternal("failed to look up invitee", err)
	}

	if _, err := p.invitations.FindPending(ctx, orgID, email); err == nil {
		return nil, services.ErrInvitationPending
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.WrapInternal("failed to check pending invitations", err)
	}

	inv := models.NewInvitation(orgID, caller.UserID, email, role, p.invitationTTL)
	if err := p.invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, services.ErrInvitationPending
		}
		return nil, services.WrapInternal("failed to create invitation", err)
	}

	p.notifyInvitation(ctx, caller, org, inv)
	return inv, nil
}

func (p *LocalProvider) notifyInvitation(ctx context.Context, caller models.AuthContext, org *models.Organization, inv *models.Invitation) {
	logger := observability.ForRequest(ctx, p.logger, zap.String("invitation_id", inv.ID.String()))
	if p.notifier == nil {
		logger.Warn("no notifier configured, invitation email skipped")
		return
	}

	inviterName := "A teammate"
	if inviter, err := p.users.GetByID(ctx, caller.UserID); err == nil {
		inviterName = inviter.DisplayName()
	}

	err := p.notifier.Enqueue(notification.InvitationEmail{
		To:               inv.Email,
		OrganizationName: org.Name,
		InviterName:      inviterName,
		AcceptURL:        p.AcceptURL(inv.ID),
	})
	if err != nil {
		logger.Error("failed to queue invitation email, invitation still created", zap.Error(err))
	}
}

// AcceptURL is the front-end link an invitee follows
func (p *LocalProvider) AcceptURL(invitationID uuid.UUID) string {
	return fmt.Sprintf("%s/join-organization?token=%s", p.frontEndURL, invitationID)
}

// AcceptInvitation joins the caller to the inviting organization with the
// invited role and makes it the session's active organization
func (p *LocalProvider) AcceptInvitation(ctx context.Context, caller models.AuthContext, invitationID uuid.UUID) (*models.Membership, error) {
	inv, err := p.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvitationNotFound
		}
		return nil, services.WrapInternal("failed to load invitation", err)
	}

	if !inv.IsAcceptable(p.now()) {
		if inv.Status == models.InvitationPending {
			if err := p.invitations.UpdateStatus(ctx, inv.ID, models.InvitationExpired); err != nil {
				observability.ForRequest(ctx, p.logger).Warn("failed to mark invitation expired", zap.Error(err))
			}
		}
		return nil, services.ErrInvitationState
	}

	user, err := p.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, services.WrapInternal("failed to load user", err)
	}
	if user.Email != inv.Email {
		return nil, services.ErrInvitationEmailMismatch
	}

	membership := models.NewMembership(user.ID, inv.OrganizationID, inv.Role)
	err = services.WithTransaction(ctx, p.txManager, func(ctx context.Context) error {
		if err := p.memberships.Create(ctx, membership); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return services.ErrAlreadyMember
			}
			return services.WrapInternal("failed to create membership", err)
		}
		if err := p.invitations.UpdateStatus(ctx, inv.ID, models.InvitationAccepted); err != nil {
			return services.WrapInternal("failed to accept invitation", err)
		}
		if err := p.sessions.SetActiveOrganization(ctx, caller.SessionID, inv.OrganizationID); err != nil {
			return services.WrapInternal("failed to activate organization", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.cache.Remove(caller.SessionID)
	observability.ForRequest(ctx, p.logger).Info("invitation accepted",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("organization_id", inv.OrganizationID.String()),
		zap.String("user_id", user.ID.String()))
	return membership, nil
}

// UpdateMemberRole changes a membership's role. Demoting the last owner is refused.
func (p *LocalProvider) UpdateMemberRole(ctx context.Context, orgID, memberID uuid.UUID, role models.MemberRole) (*models.MemberWithUser, error) {
	if !role.IsValid() {
		return nil, services.ErrInvalidRole
	}

	return services.WithTransactionResult(ctx, p.txManager, func(ctx context.Context) (*models.MemberWithUser, error) {
		m, err := p.memberInOrganization(ctx, orgID, memberID)
		if err != nil {
			return nil, err
		}

		if m.IsOwner() && role != models.RoleOwner {
			if err := p.ensureAnotherOwner(ctx, orgID); err != nil {
				return nil, err
			}
		}

		if err := p.memberships.UpdateRole(ctx, orgID, memberID, role); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.ErrMemberNotFound
			}
			return nil, services.WrapInternal("failed to update role", err)
		}
		m.Role = role

		user, err := p.users.GetByID(ctx, m.UserID)
		if err != nil {
			return nil, services.WrapInternal("failed to load member profile", err)
		}

		return &models.MemberWithUser{
			Membership: *m,
			User:       models.UserProfile{ID: user.ID, Email: user.Email, Name: user.Name, CreatedAt: user.CreatedAt},
		}, nil
	})
}

// RemoveMember deletes a membership and clears the removed user's sessions
// that pointed at orgID. Removing the last owner is refused.
func (p *LocalProvider) RemoveMember(ctx context.Context, orgID, memberID uuid.UUID) error {
	cleared, err := services.WithTransactionResult(ctx, p.txManager, func(ctx context.Context) ([]uuid.UUID, error) {
		m, err := p.memberInOrganization(ctx, orgID, memberID)
		if err != nil {
			return nil, err
		}

		if m.IsOwner() {
			if err := p.ensureAnotherOwner(ctx, orgID); err != nil {
				return nil, err
			}
		}

		if err := p.memberships.Delete(ctx, orgID, memberID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.ErrMemberNotFound
			}
			return nil, services.WrapInternal("failed to remove member", err)
		}

		ids, err := p.sessions.ClearActiveOrganization(ctx, m.UserID, orgID)
		if err != nil {
			return nil, services.WrapInternal("failed to clear sessions", err)
		}
		return ids, nil
	})
	if err != nil {
		return err
	}

	for _, id := range cleared {
		p.cache.Remove(id)
	}
	observability.ForRequest(ctx, p.logger).Info("member removed",
		zap.String("organization_id", orgID.String()),
		zap.String("member_id", memberID.String()),
		zap.Int("sessions_cleared", len(cleared)))
	return nil
}

func (p *LocalProvider) memberInOrganization(ctx context.Context, orgID, memberID uuid.UUID) (*models.Membership, error) {
	m, err := p.memberships.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrMemberNotFound
		}
		return nil, services.WrapInternal("failed to load member", err)
	}
	if m.OrganizationID != orgID {
		return nil, services.ErrMemberNotFound
	}
	return m, nil
}

// TODO: lock the organization row so two concurrent demotions cannot both pass this check.
func (p *LocalProvider) ensureAnotherOwner(ctx context.Context, orgID uuid.UUID) error {
	owners, err := p.memberships.CountByRole(ctx, orgID, models.RoleOwner)
	if err != nil {
		return services.WrapInternal("failed to count owners", err)
	}
	if owners <= 1 {
		return services.ErrLastOwner
	}
	return nil
}
