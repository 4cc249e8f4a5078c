package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"anoa.com/clubportal/internal/entity"
	adminService "anoa.com/clubportal/internal/modules/admin/service"
	challengeService "anoa.com/clubportal/internal/modules/challenge/service"
	"anoa.com/clubportal/internal/modules/user/dto"
	"anoa.com/clubportal/internal/modules/user/repository"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrSignInFailed = fmt.Errorf("google sign-in failed: %w", apperror.ErrUnauthorized)

type AuthService interface {
	GoogleLogin(state string) string
	GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error)
	// SignIn creates the default user document on first sign-in and issues
	// a session token.
	SignIn(ctx context.Context, profile entity.Profile) (*dto.AuthResponse, error)
	Me(ctx context.Context, uid string, admins entity.AdminSet) (*dto.MeResponse, error)
	// DeleteUserData drops admin status first, then progress, then the user.
	DeleteUserData(ctx context.Context, uid string) error
}

type Options struct {
	JWTSecret    string
	TokenTTL     time.Duration
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

type authService struct {
	repo         repository.UserRepository
	admins       adminService.AdminService
	challenges   challengeService.ChallengeService
	secret       []byte
	tokenTTL     time.Duration
	googleConfig *oauth2.Config
	userInfoURL  string
}

func NewAuthService(
	repo repository.UserRepository,
	admins adminService.AdminService,
	challenges challengeService.ChallengeService,
	opts Options,
) AuthService {
	if opts.JWTSecret == "" {
		opts.JWTSecret = "change-me"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Endpoint.TokenURL == "" {
		opts.Endpoint = google.Endpoint
	}
	if opts.UserInfoURL == "" {
		opts.UserInfoURL = googleUserInfoURL
	}

	return &authService{
		repo:       repo,
		admins:     admins,
		challenges: challenges,
		secret:     []byte(opts.JWTSecret),
		tokenTTL:   opts.TokenTTL,
		googleConfig: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: opts.Endpoint,
		},
		userInfoURL: opts.UserInfoURL,
	}
}

func (s *authService) GoogleLogin(state string) string {
	return s.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (s *authService) GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange token: %v", ErrSignInFailed, err)
	}

	client := s.googleConfig.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: get user info: %v", ErrSignInFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: user info status %d", ErrSignInFailed, resp.StatusCode)
	}

	var googleUser dto.GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return nil, fmt.Errorf("%w: decode user info: %v", ErrSignInFailed, err)
	}
	if googleUser.ID == "" {
		return nil, fmt.Errorf("%w: user info without id", ErrSignInFailed)
	}

	return s.SignIn(ctx, entity.Profile{
		UID:      googleUser.ID,
		Name:     googleUser.Name,
		Email:    googleUser.Email,
		PhotoURL: googleUser.Picture,
	})
}

func (s *authService) SignIn(ctx context.Context, profile entity.Profile) (*dto.AuthResponse, error) {
	if profile.UID == "" {
		return nil, apperror.ErrUnauthorized
	}

	user, created, err := s.repo.GetOrCreate(ctx, profile)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("user: created %s (%s)", user.UID, user.Email)
	}

	token, expiresAt, err := s.generateToken(profile)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
		Created:     created,
	}, nil
}

func (s *authService) generateToken(profile entity.Profile) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := dto.Claims{
		Name:    profile.Name,
		Email:   profile.Email,
		Picture: profile.PhotoURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.UID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}

func (s *authService) Me(ctx context.Context, uid string, admins entity.AdminSet) (*dto.MeResponse, error) {
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &dto.MeResponse{
		User:    user,
		Points:  user.Points(),
		IsAdmin: admins.Contains(uid),
	}, nil
}

func (s *authService) DeleteUserData(ctx context.Context, uid string) error {
	// an admin without a user document would keep its rights, so the
	// admin status goes first
	if _, err := s.admins.RemoveAdmin(ctx, uid); err != nil {
		return fmt.Errorf("remove admin status: %w", err)
	}
	if err := s.challenges.DeleteProgress(ctx, uid); err != nil {
		return fmt.Errorf("delete challenge progress: %w", err)
	}
	if err := s.repo.Delete(ctx, uid); err != nil {
		return err
	}

	logger.Info("user: deleted data of %s", uid)
	return nil
}
