package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/repository"
	"github.com/princinho/videotube/repository/repotest"
	"github.com/princinho/videotube/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func newService(t *testing.T, repo repository.UserRepository) (*TokenService, *utils.TokenManager) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	tm := utils.NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	return NewTokenService(repo, tm, log), tm
}

func seedUser(t *testing.T, repo *repotest.UserRepository) *models.User {
	t.Helper()
	u := &models.User{Username: "ab", Email: "a@b.com", FullName: "A B", Avatar: "https://cdn.test/a.png"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func requireApiError(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *utils.ApiError
	require.True(t, errors.As(err, &apiErr), "expected ApiError, got %v", err)
	assert.Equal(t, status, apiErr.StatusCode)
}

func TestIssueTokenPair(t *testing.T) {
	repo := repotest.NewUserRepository()
	svc, tm := newService(t, repo)
	user := seedUser(t, repo)

	pair, err := svc.IssueTokenPair(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshToken, repo.StoredRefreshToken(user.ID))

	claims, err := tm.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "ab", claims.Username)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "A B", claims.FullName)

	refresh, err := tm.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), refresh.UserID)
}

func TestIssueTokenPair_ReplacesPreviousSession(t *testing.T) {
	repo := repotest.NewUserRepository()
	svc, _ := newService(t, repo)
	user := seedUser(t, repo)

	first, err := svc.IssueTokenPair(context.Background(), user.ID)
	require.NoError(t, err)
	second, err := svc.IssueTokenPair(context.Background(), user.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, second.RefreshToken, repo.StoredRefreshToken(user.ID))
}

func TestIssueTokenPair_UnknownUser(t *testing.T) {
	svc, _ := newService(t, repotest.NewUserRepository())

	_, err := svc.IssueTokenPair(context.Background(), bson.NewObjectID())
	requireApiError(t, err, http.StatusInternalServerError)
}

func TestRotateTokenPair(t *testing.T) {
	repo := repotest.NewUserRepository()
	svc, _ := newService(t, repo)
	user := seedUser(t, repo)
	ctx := context.Background()

	issued, err := svc.IssueTokenPair(ctx, user.ID)
	require.NoError(t, err)

	rotated, err := svc.RotateTokenPair(ctx, user, issued.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, issued.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, rotated.RefreshToken, repo.StoredRefreshToken(user.ID))

	// the old token was rotated out
	_, err = svc.RotateTokenPair(ctx, user, issued.RefreshToken)
	requireApiError(t, err, http.StatusUnauthorized)
	assert.Equal(t, rotated.RefreshToken, repo.StoredRefreshToken(user.ID))
}

func TestRotateTokenPair_AfterLogout(t *testing.T) {
	repo := repotest.NewUserRepository()
	svc, _ := newService(t, repo)
	user := seedUser(t, repo)
	ctx := context.Background()

	issued, err := svc.IssueTokenPair(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, repo.ClearRefreshToken(ctx, user.ID))

	_, err = svc.RotateTokenPair(ctx, user, issued.RefreshToken)
	requireApiError(t, err, http.StatusUnauthorized)
}
