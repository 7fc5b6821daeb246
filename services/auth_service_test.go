package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/chesscom"
	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/storage"
)

func (e *testEnv) authService() AuthService {
	security := NewSecurityService(e.security, storage.NewMemoryCache(), e.logger)
	return NewAuthService(e.players, e.chess, security, "test-secret", time.Hour, e.logger)
}

func kenyanProfile(username string) *chesscom.Profile {
	return &chesscom.Profile{
		Username: username,
		Avatar:   "https://images.chesscomfiles.com/" + username + ".png",
		Country:  "https://api.chess.com/pub/country/KE",
		Status:   "basic",
	}
}

func registration(username string) RegisterInput {
	return RegisterInput{
		ChessComUsername: username,
		Password:         "secret123",
		Phone:            "0712345678",
		Age:              30,
		Gender:           "Male",
		County:           strPtr("Kisumu"),
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	auth := env.authService()
	ctx := context.Background()
	client := ClientInfo{IP: "41.90.1.1", UserAgent: "test"}

	env.chess.On("Profile", mock.Anything, "odhiambo").Return(kenyanProfile("Odhiambo"), nil)
	env.chess.On("Stats", mock.Anything, "odhiambo").Return(rapidStats(1550), nil)

	res, err := auth.Register(ctx, registration(" Odhiambo "), client)
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.TokenType)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "odhiambo", res.Player.ChessComUsername)
	assert.Equal(t, "+254712345678", res.Player.Phone)
	assert.Equal(t, 1550, *res.Player.RatingRapid)
	assert.Equal(t, "KE", *res.Player.ChessComCountry)

	player, err := auth.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Player.ID, player.ID)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := auth.Register(ctx, registration("odhiambo"), client)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("duplicate phone", func(t *testing.T) {
		env.chess.On("Profile", mock.Anything, "akinyi").Return(kenyanProfile("akinyi"), nil)
		_, err := auth.Register(ctx, registration("akinyi"), client)
		assert.ErrorIs(t, err, ErrConflict)
		assert.EqualError(t, err, ErrAuthPhoneTaken.Error())
	})

	t.Run("foreign account", func(t *testing.T) {
		profile := kenyanProfile("hikaru")
		profile.Country = "https://api.chess.com/pub/country/US"
		env.chess.On("Profile", mock.Anything, "hikaru").Return(profile, nil)
		in := registration("hikaru")
		in.Phone = "0799000111"
		_, err := auth.Register(ctx, in, client)
		assert.ErrorIs(t, err, ErrRegistrationBlocked)
		assert.Contains(t, err.Error(), "registered in US, not Kenya")
	})

	t.Run("unknown chess.com user", func(t *testing.T) {
		env.chess.On("Profile", mock.Anything, "ghost").Return(nil, chesscom.ErrNotFound)
		in := registration("ghost")
		in.Phone = "0799000222"
		_, err := auth.Register(ctx, in, client)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("bad token", func(t *testing.T) {
		_, err := auth.Authenticate(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("deactivated player", func(t *testing.T) {
		require.NoError(t, env.players.SetActive(ctx, player.ID, false))
		_, err := auth.Authenticate(ctx, res.AccessToken)
		assert.ErrorIs(t, err, ErrAccountDisabled)
		require.NoError(t, env.players.SetActive(ctx, player.ID, true))
	})
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	auth := env.authService()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(in *RegisterInput)
	}{
		{"short password", func(in *RegisterInput) { in.Password = "123" }},
		{"bad phone", func(in *RegisterInput) { in.Phone = "12345" }},
		{"too young", func(in *RegisterInput) { in.Age = 3 }},
		{"bad gender", func(in *RegisterInput) { in.Gender = "robot" }},
		{"unknown county", func(in *RegisterInput) { in.County = strPtr("Gotham") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := registration("validuser")
			tt.mutate(&in)
			_, err := auth.Register(ctx, in, ClientInfo{})
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
	env.chess.AssertNotCalled(t, "Profile", mock.Anything, mock.Anything)
}

func TestLoginLockout(t *testing.T) {
	env := newTestEnv(t)
	auth := env.authService()
	ctx := context.Background()
	client := ClientInfo{IP: "41.90.2.2"}

	env.chess.On("Profile", mock.Anything, "wekesa").Return(kenyanProfile("wekesa"), nil)
	env.chess.On("Stats", mock.Anything, "wekesa").Return(rapidStats(1400), nil)
	_, err := auth.Register(ctx, registration("wekesa"), client)
	require.NoError(t, err)

	fp := &models.DeviceFingerprint{Platform: "Linux", ScreenResolution: "1920x1080", Timezone: "Africa/Nairobi"}
	res, err := auth.Login(ctx, LoginInput{ChessComUsername: "WEKESA", Password: "secret123", Fingerprint: fp}, client, true)
	require.NoError(t, err)
	assert.Equal(t, "wekesa", res.Player.ChessComUsername)

	flags, err := env.security.ListFlags(ctx, res.Player.ID, "open")
	require.NoError(t, err)
	require.Len(t, flags, 1, "registration used an unknown device")
	assert.Equal(t, "new_device", flags[0].FlagType)

	bad := LoginInput{ChessComUsername: "wekesa", Password: "wrong"}
	_, err = auth.Login(ctx, bad, client, true)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.EqualError(t, err, ErrAuthInvalidCredentials.Error())

	_, _ = auth.Login(ctx, bad, client, true)
	_, err = auth.Login(ctx, bad, client, true)
	assert.EqualError(t, err, "Incorrect username or password. 2 attempts remaining.")

	_, _ = auth.Login(ctx, bad, client, true)
	_, _ = auth.Login(ctx, bad, client, true)

	_, err = auth.Login(ctx, LoginInput{ChessComUsername: "wekesa", Password: "secret123"}, client, true)
	assert.ErrorIs(t, err, ErrTooManyRequests)
	assert.EqualError(t, err, "Too many failed attempts. Try again in 15 minutes.")

	_, err = auth.Login(ctx, LoginInput{ChessComUsername: "wekesa", Password: "secret123"}, ClientInfo{IP: "41.90.3.3"}, true)
	require.NoError(t, err, "the lockout is per address")

	_, err = auth.Login(ctx, LoginInput{ChessComUsername: "wekesa", Password: "secret123"}, client, false)
	require.NoError(t, err, "form logins are not rate limited")
}

func TestVerifyUsername(t *testing.T) {
	env := newTestEnv(t)
	auth := env.authService()
	ctx := context.Background()

	env.chess.On("Profile", mock.Anything, "nobody").Return(nil, chesscom.ErrNotFound)
	env.chess.On("Profile", mock.Anything, "mutua").Return(kenyanProfile("mutua"), nil)
	env.chess.On("Stats", mock.Anything, "mutua").Return(rapidStats(1200), nil)

	check, err := auth.VerifyUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, check.Exists)

	check, err = auth.VerifyUsername(ctx, "mutua")
	require.NoError(t, err)
	assert.True(t, check.Exists)
	assert.Equal(t, "KE", check.Country)
	assert.Equal(t, 1200, *check.Stats.Rapid)
}
