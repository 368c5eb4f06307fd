// Package services holds the token issuing logic shared by the account
// handlers.
package services

import (
	"context"
	"errors"

	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/repository"
	"github.com/princinho/videotube/utils"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	msgTokenFailure = "Something went wrong while generating refresh and access token"
	msgTokenUsed    = "Refresh token is expired or used"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type TokenService struct {
	users  repository.UserRepository
	tokens *utils.TokenManager
	log    logrus.FieldLogger
}

func NewTokenService(users repository.UserRepository, tokens *utils.TokenManager, log logrus.FieldLogger) *TokenService {
	return &TokenService{users: users, tokens: tokens, log: log}
}

// IssueTokenPair mints a pair for the user and stores the refresh token,
// replacing whatever session the user had.
func (s *TokenService) IssueTokenPair(ctx context.Context, userID bson.ObjectID) (*TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID.Hex()).Error("load user for token issue")
		return nil, utils.Internal(msgTokenFailure)
	}

	pair, err := s.sign(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		s.log.WithError(err).WithField("user_id", userID.Hex()).Error("persist refresh token")
		return nil, utils.Internal(msgTokenFailure)
	}
	return pair, nil
}

// RotateTokenPair replaces presented with a fresh pair. It fails with 401
// when presented is no longer the stored token, which also covers two
// concurrent refreshes racing with the same token.
func (s *TokenService) RotateTokenPair(ctx context.Context, user *models.User, presented string) (*TokenPair, error) {
	pair, err := s.sign(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.SwapRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrTokenMismatch) {
			return nil, utils.Unauthorized(msgTokenUsed)
		}
		s.log.WithError(err).WithField("user_id", user.ID.Hex()).Error("rotate refresh token")
		return nil, utils.Internal(msgTokenFailure)
	}
	return pair, nil
}

func (s *TokenService) sign(user *models.User) (*TokenPair, error) {
	id := user.ID.Hex()
	access, err := s.tokens.GenerateAccessToken(id, user.Email, user.Username, user.FullName)
	if err != nil {
		s.log.WithError(err).Error("sign access token")
		return nil, utils.Internal(msgTokenFailure)
	}
	refresh, err := s.tokens.GenerateRefreshToken(id)
	if err != nil {
		s.log.WithError(err).Error("sign refresh token")
		return nil, utils.Internal(msgTokenFailure)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
