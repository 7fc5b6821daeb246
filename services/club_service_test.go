package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/checked/models"
	"github.com/Dosada05/checked/storage"
)

const logoBase = "https://cdn.example.co.ke"

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, key, contentType string, r io.Reader) (*storage.UploadResult, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, key, contentType, string(body))
	res, _ := args.Get(0).(*storage.UploadResult)
	return res, args.Error(1)
}

func (m *mockUploader) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockUploader) GetPublicURL(key string) string {
	return logoBase + "/" + key
}

func TestClubMembership(t *testing.T) {
	env := newTestEnv(t)
	svc := NewClubService(env.db, env.clubs, env.players, nil, "", env.logger)
	ctx := context.Background()

	club, err := svc.Create(ctx, ClubInput{Name: strPtr("Kisumu Knights"), County: strPtr("Kisumu")})
	require.NoError(t, err)
	assert.Equal(t, models.ClubTypeCommunity, club.ClubType)
	assert.True(t, club.IsActive)

	_, err = svc.Create(ctx, ClubInput{Name: strPtr("kisumu knights")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, ClubInput{Name: strPtr("Bad County"), County: strPtr("Narnia")})
	assert.ErrorIs(t, err, ErrValidationFailed)

	alice := env.player(t, "alice", 1800)
	bob := env.player(t, "bob", 1600)

	msg, err := svc.Join(ctx, alice, club.ID)
	require.NoError(t, err)
	assert.Equal(t, "Successfully joined Kisumu Knights", msg)

	alice, err = env.players.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	_, err = svc.Join(ctx, alice, club.ID)
	assert.EqualError(t, err, "Already a member of this club")

	msg, err = svc.AddMember(ctx, club.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Added bob to Kisumu Knights", msg)

	info, err := svc.Get(ctx, club.ID)
	require.NoError(t, err)
	require.Len(t, info.Members, 2)
	assert.Equal(t, "alice", info.Members[0].ChessComUsername)
	assert.Equal(t, 2, info.MemberCount)

	stats, err := svc.RefreshStats(ctx, club.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MemberCount)
	assert.Equal(t, 1700, stats.AverageRating)

	msg, err = svc.Leave(ctx, alice, club.ID)
	require.NoError(t, err)
	assert.Equal(t, "Successfully left Kisumu Knights", msg)

	assert.ErrorIs(t, svc.RemoveMember(ctx, club.ID, alice.ID), ErrValidationFailed)
	require.NoError(t, svc.RemoveMember(ctx, club.ID, bob.ID))

	require.NoError(t, svc.Delete(ctx, club.ID))
	got, err := svc.Get(ctx, club.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = svc.Join(ctx, &models.Player{ID: bob.ID}, club.ID)
	assert.EqualError(t, err, "Club is not active")

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrClubNotFound)
}

func TestClubLogoUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("storage not configured", func(t *testing.T) {
		svc := NewClubService(env.db, env.clubs, env.players, nil, "", env.logger)
		_, err := svc.UploadLogo(ctx, "any", "image/png", 10, strings.NewReader("png"))
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	up := &mockUploader{}
	svc := NewClubService(env.db, env.clubs, env.players, up, logoBase, env.logger)
	club, err := svc.Create(ctx, ClubInput{Name: strPtr("Nakuru Rooks")})
	require.NoError(t, err)

	_, err = svc.UploadLogo(ctx, club.ID, "application/pdf", 10, strings.NewReader("pdf"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.UploadLogo(ctx, club.ID, "image/png", 3<<20, strings.NewReader("big"))
	assert.ErrorIs(t, err, ErrValidationFailed)

	up.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "clubs/"+club.ID+"/logo-") && strings.HasSuffix(key, ".png")
	}), "image/png", "first").Return(&storage.UploadResult{Key: "clubs/" + club.ID + "/logo-1.png"}, nil).Once()
	got, err := svc.UploadLogo(ctx, club.ID, "image/png", 5, strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, logoBase+"/clubs/"+club.ID+"/logo-1.png", *got.LogoURL)

	up.On("Upload", mock.Anything, mock.Anything, "image/webp", "second").
		Return(&storage.UploadResult{Key: "clubs/" + club.ID + "/logo-2.webp"}, nil).Once()
	up.On("Delete", mock.Anything, "clubs/"+club.ID+"/logo-1.png").Return(nil).Once()
	got, err = svc.UploadLogo(ctx, club.ID, "image/webp", 6, strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, logoBase+"/clubs/"+club.ID+"/logo-2.webp", *got.LogoURL)
	up.AssertExpectations(t)
}
