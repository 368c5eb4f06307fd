package repository

import (
	"context"
	"errors"

	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a username or email is already taken.
	ErrDuplicate = errors.New("user already exists")
	// ErrTokenMismatch is returned when the stored refresh token is not the
	// one presented, i.e. it was rotated out or cleared.
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

// ImageField names a user document field that holds an uploaded image URL.
type ImageField string

const (
	AvatarField     ImageField = "avatar"
	CoverImageField ImageField = "coverImage"
)

// UserRepository is the credential store. It is the only component that
// writes user documents.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// FindByID returns the full document, password hash and refresh token included.
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	// FindPublicByID returns the document without password hash and refresh token.
	FindPublicByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)

	SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error
	// SwapRefreshToken replaces current with next only if current is still stored.
	SwapRefreshToken(ctx context.Context, id bson.ObjectID, current, next string) error
	ClearRefreshToken(ctx context.Context, id bson.ObjectID) error

	UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error
	UpdateAccount(ctx context.Context, id bson.ObjectID, fullName, email string) (*models.User, error)
	UpdateImage(ctx context.Context, id bson.ObjectID, field ImageField, url string) (*models.User, error)

	// ChannelProfile looks a channel up by username. viewer may be nil for
	// anonymous callers.
	ChannelProfile(ctx context.Context, username string, viewer *bson.ObjectID) (*dto.ChannelProfile, error)
	WatchHistory(ctx context.Context, id bson.ObjectID) ([]dto.WatchHistoryVideo, error)
}
