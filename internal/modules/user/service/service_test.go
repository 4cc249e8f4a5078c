package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/clubportal/internal/entity"
	adminRepo "anoa.com/clubportal/internal/modules/admin/repository"
	adminService "anoa.com/clubportal/internal/modules/admin/service"
	challengeRepo "anoa.com/clubportal/internal/modules/challenge/repository"
	challengeService "anoa.com/clubportal/internal/modules/challenge/service"
	ledgerService "anoa.com/clubportal/internal/modules/ledger/service"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	searchService "anoa.com/clubportal/internal/modules/search/service"
	"anoa.com/clubportal/internal/modules/user/dto"
	userRepo "anoa.com/clubportal/internal/modules/user/repository"
	userService "anoa.com/clubportal/internal/modules/user/service"
	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/clubdate"
	"anoa.com/clubportal/pkg/docstore"
	"anoa.com/clubportal/pkg/docstore/docstoretest"
	"anoa.com/clubportal/pkg/judge"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const secret = "test-secret"

type fixture struct {
	store  docstore.Store
	admins adminRepo.AdminRepository
	users  userRepo.UserRepository
	auth   userService.AuthService
}

func newFixture(t *testing.T, opts userService.Options) *fixture {
	t.Helper()
	store, _ := docstoretest.New(t)
	clock := clubdate.FixedClock(time.Date(2024, time.May, 1, 18, 0, 0, 0, time.UTC))
	users := userRepo.NewUserRepository(store)
	admins := adminRepo.NewAdminRepository(store)
	live := liveService.NewSynchronizer(store, liveService.NewLocalBroker())

	challenges := challengeService.NewChallengeService(
		challengeRepo.NewChallengeRepository(store),
		challengeRepo.NewProgressRepository(store),
		ledgerService.NewLedgerService(users, clock),
		judge.NewHTTPClient("http://127.0.0.1:1", time.Second),
		challengeService.NewSubmitLock(nil, time.Minute),
		searchService.NewNoopSearchService(),
		clock,
	)

	opts.JWTSecret = secret
	auth := userService.NewAuthService(users, adminService.NewAdminService(admins, users, live), challenges, opts)
	return &fixture{store: store, admins: admins, users: users, auth: auth}
}

func parse(t *testing.T, token string) *dto.Claims {
	t.Helper()
	claims := &dto.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims
}

func TestSignInCreatesDefaultUserOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, userService.Options{})
	profile := entity.Profile{UID: "g-1", Name: "Ana", Email: "ana@club.org", PhotoURL: "https://p/ana"}

	res, err := f.auth.SignIn(ctx, profile)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, "Bearer", res.TokenType)
	require.Empty(t, res.User.History)
	require.NotNil(t, res.User.History)

	claims := parse(t, res.AccessToken)
	require.Equal(t, "g-1", claims.Subject)
	require.Equal(t, "Ana", claims.Name)
	require.Equal(t, "ana@club.org", claims.Email)
	require.Equal(t, "https://p/ana", claims.Picture)

	// a later sign-in keeps the stored history
	_, err = f.users.MutateUser(ctx, "g-1", func(u *entity.User) (bool, error) {
		u.History = append(u.History, entity.PointEntry{Amount: 5, Reason: "x"})
		return true, nil
	})
	require.NoError(t, err)

	res, err = f.auth.SignIn(ctx, profile)
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Len(t, res.User.History, 1)

	_, err = f.auth.SignIn(ctx, entity.Profile{})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestGoogleCallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(dto.GoogleUser{ID: "g-7", Email: "bo@club.org", Name: "Bo", Picture: "https://p/bo"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	f := newFixture(t, userService.Options{
		ClientID:    "id",
		RedirectURL: "http://localhost/cb",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: srv.URL + "/userinfo",
	})

	require.Contains(t, f.auth.GoogleLogin("s1"), "state=s1")

	res, err := f.auth.GoogleCallback(ctx, "good")
	require.NoError(t, err)
	require.Equal(t, "g-7", parse(t, res.AccessToken).Subject)

	user, err := f.users.FindByID(ctx, "g-7")
	require.NoError(t, err)
	require.Equal(t, "Bo", user.Name)

	_, err = f.auth.GoogleCallback(ctx, "bad")
	require.ErrorIs(t, err, userService.ErrSignInFailed)
}

func TestMeReportsPointsAndAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, userService.Options{})
	user := entity.NewUser(entity.Profile{UID: "u1", Name: "Ana"})
	user.History = []entity.PointEntry{{Amount: 50}, {Amount: -10}}
	require.NoError(t, f.store.Set(ctx, entity.UserPath("u1"), user))

	me, err := f.auth.Me(ctx, "u1", entity.NewAdminSet([]string{"u1"}))
	require.NoError(t, err)
	require.Equal(t, 40, me.Points)
	require.True(t, me.IsAdmin)

	_, err = f.auth.Me(ctx, "nobody", entity.NewAdminSet(nil))
	require.ErrorIs(t, err, userRepo.ErrUserNotFound)
}

func TestDeleteUserDataRemovesAdminFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, userService.Options{})
	_, err := f.auth.SignIn(ctx, entity.Profile{UID: "u1", Name: "Ana"})
	require.NoError(t, err)

	_, err = f.admins.AddAdminID(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, f.admins.SaveProfile(ctx, entity.AdminProfile{UID: "u1", Name: "Ana"}))
	require.NoError(t, f.store.Set(ctx, entity.ProgressPath("u1", "c1"), entity.NewChallengeProgress("c1")))

	require.NoError(t, f.auth.DeleteUserData(ctx, "u1"))

	ids, err := f.admins.AdminIDs(ctx)
	require.NoError(t, err)
	require.False(t, ids.Contains("u1"))
	_, err = f.admins.FindProfile(ctx, "u1")
	require.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.users.FindByID(ctx, "u1")
	require.ErrorIs(t, err, userRepo.ErrUserNotFound)
	docs, err := f.store.List(ctx, entity.UserPath("u1")+"/challenges")
	require.NoError(t, err)
	require.Empty(t, docs)

	// deleting again is harmless
	require.NoError(t, f.auth.DeleteUserData(ctx, "u1"))
}
