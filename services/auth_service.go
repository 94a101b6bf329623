package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cozzyhub/authtoken"
	"cozzyhub/mailer"
	"cozzyhub/models"
	"cozzyhub/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AccountStore is the privileged account store the auth flow writes through.
type AccountStore interface {
	authtoken.Lookup
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	CreateProfile(ctx context.Context, p *models.Profile) error
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)
	ProfileByAuthToken(ctx context.Context, token string) (*models.Profile, error)
	MarkAuthorized(ctx context.Context, id string, at time.Time) error
}

// EmailSender delivers outbound mail.
type EmailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

const (
	profileAttempts = 3
	landingPath     = "/account"
	authorizePath   = "/api/auth/authorize/"
)

type AuthConfig struct {
	SiteURL   string
	JWTSecret string
	JWTTTL    time.Duration
}

type AuthService struct {
	store  AccountStore
	mail   EmailSender
	tokens *authtoken.Generator
	cfg    AuthConfig

	now            func() time.Time
	profileBackoff time.Duration
}

func NewAuthService(store AccountStore, mail EmailSender, cfg AuthConfig) *AuthService {
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 24 * time.Hour
	}
	return &AuthService{
		store:          store,
		mail:           mail,
		tokens:         authtoken.NewGenerator(store),
		cfg:            cfg,
		now:            time.Now,
		profileBackoff: 100 * time.Millisecond,
	}
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=120"`
}

type RegisterResult struct {
	UserID           string
	Email            string
	AuthToken        string
	AuthorizationURL string
}

// AuthorizationURL is the link emailed to a registrant.
func (s *AuthService) AuthorizationURL(token string) string {
	return s.cfg.SiteURL + authorizePath + token
}

// LandingURL is where redemption sends the browser.
func (s *AuthService) LandingURL(justAuthorized bool) string {
	if justAuthorized {
		return s.cfg.SiteURL + landingPath + "?authorized=true"
	}
	return s.cfg.SiteURL + landingPath
}

// Register creates an unauthorized account holding a fresh authorization
// token and emails the authorization link. Email failure is logged only.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountCreation, err)
	}

	user := &models.User{ID: uuid.NewString(), Email: in.Email, PasswordHash: string(hash)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrAccountCreation, err)
	}

	profile, err := s.provisionProfile(ctx, user, in.FullName)
	if err != nil {
		// Drop the credentials row so the same registration can be retried.
		if derr := s.store.DeleteUser(context.WithoutCancel(ctx), user.ID); derr != nil {
			log.Error().Err(derr).Str("user_id", user.ID).Msg("[AUTH] could not roll back user after failed provisioning")
		}
		return nil, err
	}

	token := *profile.AuthToken
	result := &RegisterResult{
		UserID:           user.ID,
		Email:            user.Email,
		AuthToken:        token,
		AuthorizationURL: s.AuthorizationURL(token),
	}

	s.sendAuthorizationEmail(ctx, profile, result.AuthorizationURL)

	log.Info().Str("user_id", user.ID).Msg("[AUTH] account registered, awaiting authorization")
	return result, nil
}

// provisionProfile attaches the profile row and its token, retrying a few
// times. A token collision at insert time draws a new token.
func (s *AuthService) provisionProfile(ctx context.Context, user *models.User, fullName string) (*models.Profile, error) {
	token := s.tokens.GenerateUnique(ctx)
	for attempt := 1; attempt <= profileAttempts; attempt++ {
		t := token
		profile := &models.Profile{
			ID:        user.ID,
			Email:     user.Email,
			FullName:  fullName,
			AuthToken: &t,
		}
		err := s.store.CreateProfile(ctx, profile)
		if err == nil {
			return profile, nil
		}

		log.Warn().Err(err).Int("attempt", attempt).Str("user_id", user.ID).Msg("[AUTH] profile provisioning failed")
		if errors.Is(err, repository.ErrDuplicate) {
			// auth_token is unique; a racing registration took ours.
			token = s.tokens.GenerateUnique(ctx)
		}

		if attempt < profileAttempts {
			select {
			case <-ctx.Done():
				return nil, ErrProfileProvisioning
			case <-time.After(s.profileBackoff * time.Duration(attempt)):
			}
		}
	}
	return nil, ErrProfileProvisioning
}

func (s *AuthService) sendAuthorizationEmail(ctx context.Context, p *models.Profile, url string) {
	msg, err := mailer.AuthorizationMessage(p.Email, p.FullName, url)
	if err != nil {
		log.Warn().Err(err).Msg("[AUTH] could not render authorization email")
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.mail.Send(sendCtx, msg); err != nil {
		log.Warn().Err(err).Str("user_id", p.ID).Msg("[AUTH] authorization email failed, registration kept")
	}
}

// RedeemResult is the outcome of a successful redemption.
type RedeemResult struct {
	Profile *models.Profile
	// JustAuthorized is true only for the visit that flipped the account. It
	// drives a UI banner and carries no security meaning.
	JustAuthorized bool
	RedirectURL    string
}

// Redeem moves the account holding token from unauthorized to authorized.
// Repeat visits succeed without mutating anything.
func (s *AuthService) Redeem(ctx context.Context, token string) (*RedeemResult, error) {
	if !authtoken.IsRedeemable(token) {
		return nil, ErrInvalidTokenFormat
	}

	profile, err := s.store.ProfileByAuthToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		log.Error().Err(err).Msg("[AUTH] token lookup failed")
		return nil, fmt.Errorf("failed to look up authorization token: %w", err)
	}

	if profile.IsAuthorized {
		return &RedeemResult{Profile: profile, RedirectURL: s.LandingURL(false)}, nil
	}

	now := s.now()
	if err := s.store.MarkAuthorized(ctx, profile.ID, now); err != nil {
		log.Error().Err(err).Str("user_id", profile.ID).Msg("[AUTH] authorization update failed, token stays valid")
		return nil, fmt.Errorf("%w: %v", ErrAuthorizeFailed, err)
	}

	profile.IsAuthorized = true
	profile.AuthorizedAt = &now
	log.Info().Str("user_id", profile.ID).Msg("[AUTH] account authorized")
	return &RedeemResult{Profile: profile, JustAuthorized: true, RedirectURL: s.LandingURL(true)}, nil
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Profile     *models.Profile `json:"profile"`
}

// Login checks credentials and issues a signed session token. Unauthorized
// accounts may log in; guarded routes re-check is_authorized per request.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.store.UserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	profile, err := s.store.ProfileByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	expires := s.now().Add(s.cfg.JWTTTL)
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expires),
		Issuer:    "cozzyhub",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return &LoginResult{AccessToken: signed, ExpiresAt: expires, Profile: profile}, nil
}

// ParseSession verifies a session token and returns the user id it names.
func (s *AuthService) ParseSession(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("cozzyhub"))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("session token has no subject")
	}
	return claims.Subject, nil
}

// Profile re-reads the account record; guards use it for every request.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	return s.store.ProfileByID(ctx, userID)
}
