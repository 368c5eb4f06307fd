// Package repotest provides an in-memory repository.UserRepository for tests.
package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UserRepository struct {
	mu            sync.Mutex
	users         map[bson.ObjectID]models.User
	videos        map[bson.ObjectID]models.Video
	subscriptions []models.Subscription
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:  make(map[bson.ObjectID]models.User),
		videos: make(map[bson.ObjectID]models.Video),
	}
}

// AddVideo stores a video for the watch history lookup.
func (r *UserRepository) AddVideo(v models.Video) models.Video {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID.IsZero() {
		v.ID = bson.NewObjectID()
	}
	r.videos[v.ID] = v
	return v
}

func (r *UserRepository) AddSubscription(subscriber, channel bson.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	r.subscriptions = append(r.subscriptions, models.Subscription{
		ID:         bson.NewObjectID(),
		Subscriber: subscriber,
		Channel:    channel,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (r *UserRepository) AddToWatchHistory(userID, videoID bson.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.WatchHistory = append(u.WatchHistory, videoID)
		r.users[userID] = u
	}
}

// StoredRefreshToken exposes the persisted token for assertions.
func (r *UserRepository) StoredRefreshToken(id bson.ObjectID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].RefreshToken
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if user.WatchHistory == nil {
		user.WatchHistory = []bson.ObjectID{}
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindPublicByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s := u.Sanitized()
	return &s, nil
}

func (r *UserRepository) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) update(id bson.ObjectID, fn func(u *models.User) error) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	s := u.Sanitized()
	return &s, nil
}

func (r *UserRepository) SetRefreshToken(_ context.Context, id bson.ObjectID, token string) error {
	_, err := r.update(id, func(u *models.User) error {
		u.RefreshToken = token
		return nil
	})
	return err
}

func (r *UserRepository) SwapRefreshToken(_ context.Context, id bson.ObjectID, current, next string) error {
	_, err := r.update(id, func(u *models.User) error {
		if current == "" || u.RefreshToken != current {
			return repository.ErrTokenMismatch
		}
		u.RefreshToken = next
		return nil
	})
	if err == repository.ErrNotFound {
		return repository.ErrTokenMismatch
	}
	return err
}

func (r *UserRepository) ClearRefreshToken(_ context.Context, id bson.ObjectID) error {
	_, err := r.update(id, func(u *models.User) error {
		u.RefreshToken = ""
		return nil
	})
	return err
}

func (r *UserRepository) UpdatePassword(_ context.Context, id bson.ObjectID, passwordHash string) error {
	_, err := r.update(id, func(u *models.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
	return err
}

func (r *UserRepository) UpdateAccount(_ context.Context, id bson.ObjectID, fullName, email string) (*models.User, error) {
	return r.update(id, func(u *models.User) error {
		for otherID, other := range r.users {
			if otherID != id && other.Email == email {
				return repository.ErrDuplicate
			}
		}
		u.FullName = fullName
		u.Email = email
		return nil
	})
}

func (r *UserRepository) UpdateImage(_ context.Context, id bson.ObjectID, field repository.ImageField, url string) (*models.User, error) {
	return r.update(id, func(u *models.User) error {
		switch field {
		case repository.AvatarField:
			u.Avatar = url
		case repository.CoverImageField:
			u.CoverImage = url
		}
		return nil
	})
}

func (r *UserRepository) ChannelProfile(_ context.Context, username string, viewer *bson.ObjectID) (*dto.ChannelProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username != username {
			continue
		}
		p := dto.ChannelProfile{
			ID:         u.ID,
			FullName:   u.FullName,
			Username:   u.Username,
			Email:      u.Email,
			Avatar:     u.Avatar,
			CoverImage: u.CoverImage,
		}
		for _, s := range r.subscriptions {
			if s.Channel == u.ID {
				p.SubscribersCount++
				if viewer != nil && s.Subscriber == *viewer {
					p.IsSubscribed = true
				}
			}
			if s.Subscriber == u.ID {
				p.ChannelsSubscribedToCount++
			}
		}
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) WatchHistory(_ context.Context, id bson.ObjectID) ([]dto.WatchHistoryVideo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return []dto.WatchHistoryVideo{}, nil
	}
	out := make([]dto.WatchHistoryVideo, 0, len(u.WatchHistory))
	for _, vid := range u.WatchHistory {
		v, ok := r.videos[vid]
		if !ok {
			continue
		}
		item := dto.WatchHistoryVideo{
			ID:          v.ID,
			VideoFile:   v.VideoFile,
			Thumbnail:   v.Thumbnail,
			Title:       v.Title,
			Description: v.Description,
			Duration:    v.Duration,
			Views:       v.Views,
			IsPublished: v.IsPublished,
			CreatedAt:   v.CreatedAt,
			UpdatedAt:   v.UpdatedAt,
		}
		if owner, ok := r.users[v.Owner]; ok {
			item.Owner = &dto.VideoOwner{
				ID:       owner.ID,
				FullName: owner.FullName,
				Username: owner.Username,
				Avatar:   owner.Avatar,
			}
		}
		out = append(out, item)
	}
	return out, nil
}
