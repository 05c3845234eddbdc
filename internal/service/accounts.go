package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dramclub/internal/auth"
	"dramclub/internal/model"
)

type ProfileStore interface {
	InsertProfile(ctx context.Context, p *model.Profile) error
	GetProfileByID(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	UpdateProfileRole(ctx context.Context, id string, role model.Role) error
}

type TokenIssuer interface {
	Issue(p *model.Profile) (string, time.Time, error)
}

// Accounts manages back office users and their sessions.
type Accounts struct {
	store  ProfileStore
	tokens TokenIssuer
	log    *zerolog.Logger
}

func NewAccounts(store ProfileStore, tokens TokenIssuer, log *zerolog.Logger) *Accounts {
	return &Accounts{store: store, tokens: tokens, log: log}
}

type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   *model.Profile `json:"profile"`
}

func (a *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	p, err := a.store.GetProfileByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrUnauthorized
		}
		return nil, err
	}
	if !auth.CheckPassword(p.PasswordHash, password) {
		a.log.Warn().Str("email", p.Email).Msg("login rejected")
		return nil, model.ErrUnauthorized
	}
	token, exp, err := a.tokens.Issue(p)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, Profile: p}, nil
}

// ResolveActor re-reads the stored role so a demoted admin loses access
// before their token expires.
func (a *Accounts) ResolveActor(ctx context.Context, claimed model.Actor) (model.Actor, error) {
	p, err := a.store.GetProfileByID(ctx, claimed.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Actor{}, model.ErrUnauthorized
		}
		return model.Actor{}, err
	}
	return model.Actor{UserID: p.ID, Role: p.Role}, nil
}

type UserInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     model.Role
}

func (a *Accounts) CreateUser(ctx context.Context, actor model.Actor, in UserInput) (*model.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	if email == "" || len(in.Password) < 8 {
		return nil, model.InvalidInput("email and a password of at least 8 characters are required")
	}
	if in.Role == "" {
		in.Role = model.RoleMember
	}
	if !in.Role.Valid() {
		return nil, model.InvalidInput("role %q is not supported", in.Role)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	p := &model.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := a.store.InsertProfile(ctx, p); err != nil {
		return nil, err
	}
	a.log.Info().Str("user_id", p.ID).Str("role", string(p.Role)).Str("actor", actor.UserID).Msg("user created")
	return p, nil
}

func (a *Accounts) ListUsers(ctx context.Context, actor model.Actor) ([]model.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return a.store.ListProfiles(ctx)
}

// UpdateRole changes another user's role. Admins cannot change their own.
func (a *Accounts) UpdateRole(ctx context.Context, actor model.Actor, userID string, role model.Role) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if userID == actor.UserID {
		return model.InvalidInput("you cannot change your own role")
	}
	if !role.Valid() {
		return model.InvalidInput("role %q is not supported", role)
	}
	if err := a.store.UpdateProfileRole(ctx, userID, role); err != nil {
		return err
	}
	a.log.Info().Str("user_id", userID).Str("role", string(role)).Str("actor", actor.UserID).Msg("user role updated")
	return nil
}

// EnsureAdmin creates the bootstrap admin on first start. An existing
// profile with that email is left untouched.
func (a *Accounts) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	_, err := a.store.GetProfileByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}
	system := model.Actor{UserID: "bootstrap", Role: model.RoleAdmin}
	_, err = a.CreateUser(ctx, system, UserInput{Email: email, Password: password, Role: model.RoleAdmin})
	return err
}
