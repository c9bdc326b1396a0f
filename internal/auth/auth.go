// Package auth signs users up and in, with a password or through Google,
// and keeps their profile documents.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/s/peripatos/internal/logger"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/storage"
	"github.com/s/peripatos/internal/validation"
)

const (
	collection = "users"

	msgPasswordTooShort = "Password must be at least 6 characters long."
	msgUsernameRequired = "Username is required."
)

var (
	ErrEmailInUse         = errors.New("auth: email already in use")
	ErrUsernameTaken      = errors.New("auth: username already taken")
	ErrUnknownUsername    = errors.New("auth: unknown username")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrUserNotFound       = errors.New("auth: user not found")
)

type Service struct {
	store storage.Store
	log   *logger.Logger
	cost  int
}

type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(store storage.Store, log *logger.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log.With("component", "auth"), cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUpInput is the email sign-up form. ReceiveUpdates is read by the HTTP
// layer, which subscribes the new user to the newsletter.
type SignUpInput struct {
	Email          string            `json:"email" validate:"required,email"`
	Password       string            `json:"password" validate:"required,min=6"`
	Username       string            `json:"username" validate:"notblank,max=50,excludes=@"`
	DisplayName    string            `json:"displayName" validate:"max=100"`
	UserType       []models.UserType `json:"userType" validate:"user_types"`
	ReceiveUpdates bool              `json:"receiveUpdates"`
}

func (in *SignUpInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
}

func (in SignUpInput) validate() error {
	err := validation.Struct(in)
	var verr *validation.Error
	if errors.As(err, &verr) {
		if _, ok := verr.Fields["password"]; ok {
			verr.Fields["password"] = msgPasswordTooShort
		}
		if _, ok := verr.Fields["username"]; ok && in.Username == "" {
			verr.Fields["username"] = msgUsernameRequired
		}
	}
	return err
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	if u, err := s.findOne(ctx, "email", in.Email); err != nil {
		return nil, err
	} else if u != nil {
		return nil, ErrEmailInUse
	}
	if u, err := s.findOne(ctx, "username", in.Username); err != nil {
		return nil, err
	} else if u != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	displayName := in.DisplayName
	if displayName == "" {
		displayName = in.Username
	}
	id, err := s.store.Create(ctx, collection, storage.Fields{
		"email":        in.Email,
		"username":     in.Username,
		"displayName":  displayName,
		"userType":     in.UserType,
		"passwordHash": string(hash),
		"createdAt":    storage.ServerTimestamp,
	})
	if err != nil {
		s.log.Error("failed to create user", "email", in.Email, "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user signed up", "user_id", id, "email", in.Email)
	return s.GetUser(ctx, id)
}

// SignIn accepts an email address or, when identifier has no "@", a username.
func (s *Service) SignIn(ctx context.Context, identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	var (
		u   *models.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.findOne(ctx, "email", strings.ToLower(identifier))
	} else {
		u, err = s.findOne(ctx, "username", identifier)
		if err == nil && u == nil {
			return nil, ErrUnknownUsername
		}
	}
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GoogleSignUp holds what the user picked on the sign-up form before the
// Google popup. It only applies when a new account is created.
type GoogleSignUp struct {
	Username string
	UserType []models.UserType
}

// GoogleSignIn finds the user by Google id, then by email, and merges in the
// Google profile. Unknown users are created with the choices in pref, falling
// back to the email local part and the student type.
func (s *Service) GoogleSignIn(ctx context.Context, gu *GoogleUser, pref GoogleSignUp) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(gu.Email))
	u, err := s.findOne(ctx, "googleId", gu.ID)
	if err != nil {
		return nil, err
	}
	if u == nil && email != "" {
		if u, err = s.findOne(ctx, "email", email); err != nil {
			return nil, err
		}
	}

	if u == nil {
		username, err := s.googleUsername(ctx, pref.Username, email)
		if err != nil {
			return nil, err
		}
		id, err := s.store.Create(ctx, collection, storage.Fields{
			"email":       email,
			"username":    username,
			"displayName": gu.Name,
			"userType":    googleUserTypes(pref.UserType),
			"googleId":    gu.ID,
			"pictureUrl":  gu.Picture,
			"createdAt":   storage.ServerTimestamp,
		})
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.log.Info("user created from google", "user_id", id, "email", email)
		return s.GetUser(ctx, id)
	}

	patch := storage.Fields{"googleId": gu.ID, "pictureUrl": gu.Picture, "email": email}
	if u.DisplayName == "" {
		patch["displayName"] = gu.Name
	}
	if err := s.store.Update(ctx, storage.Join(collection, u.ID), patch); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

// googleUsername keeps the chosen username unless it is unusable or taken.
func (s *Service) googleUsername(ctx context.Context, chosen, email string) (string, error) {
	fallback := strings.SplitN(email, "@", 2)[0]
	chosen = strings.TrimSpace(chosen)
	if chosen == "" || strings.Contains(chosen, "@") || len(chosen) > 50 {
		return fallback, nil
	}
	taken, err := s.findOne(ctx, "username", chosen)
	if err != nil {
		return "", err
	}
	if taken != nil {
		s.log.Warn("chosen username taken, using email", "username", chosen)
		return fallback, nil
	}
	return chosen, nil
}

func googleUserTypes(chosen []models.UserType) []models.UserType {
	var out []models.UserType
	for _, t := range chosen {
		if t.Valid() {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []models.UserType{models.UserTypeStudent}
	}
	return out
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	doc, err := s.store.Get(ctx, storage.Join(collection, id))
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u models.User
	if err := storage.DecodeDocument(doc, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

type ProfileUpdate struct {
	DisplayName *string            `json:"displayName" validate:"omitempty,notblank,max=100"`
	UserType    *[]models.UserType `json:"userType" validate:"omitempty,user_types"`
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	patch := storage.Fields{}
	if in.DisplayName != nil {
		patch["displayName"] = strings.TrimSpace(*in.DisplayName)
	}
	if in.UserType != nil {
		patch["userType"] = *in.UserType
	}
	if len(patch) > 0 {
		err := s.store.Update(ctx, storage.Join(collection, id), patch)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}
	return s.GetUser(ctx, id)
}

func (s *Service) findOne(ctx context.Context, field, value string) (*models.User, error) {
	if value == "" {
		return nil, nil
	}
	docs, err := s.store.List(ctx, collection, storage.Query{Where: []storage.Filter{{Field: field, Value: value}}})
	if err != nil {
		return nil, fmt.Errorf("find user by %s: %w", field, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var u models.User
	if err := storage.DecodeDocument(docs[0], &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
