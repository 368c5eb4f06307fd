package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princinho/videotube/dto"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoUserRepository struct {
	users *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(usersCollection)}
}

var _ UserRepository = (*MongoUserRepository)(nil)

// EnsureIndexes creates the unique indexes the duplicate checks rely on.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "fullName", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if user.WatchHistory == nil {
		user.WatchHistory = []bson.ObjectID{}
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if utils.IsDuplicateKey(err) {
			return fmt.Errorf("insert user: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, false)
}

func (r *MongoUserRepository) FindPublicByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, true)
}

func (r *MongoUserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	or := bson.A{}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"$or": or}, false)
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, sanitized bool) (*models.User, error) {
	opts := options.FindOne()
	if sanitized {
		opts.SetProjection(sanitizedProjection)
	}

	var user models.User
	if err := r.users.FindOne(ctx, filter, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"refreshToken": token, "updatedAt": time.Now().UTC()},
	}, ErrNotFound)
}

func (r *MongoUserRepository) SwapRefreshToken(ctx context.Context, id bson.ObjectID, current, next string) error {
	if current == "" {
		return ErrTokenMismatch
	}
	return r.updateOne(ctx, bson.M{"_id": id, "refreshToken": current}, bson.M{
		"$set": bson.M{"refreshToken": next, "updatedAt": time.Now().UTC()},
	}, ErrTokenMismatch)
}

func (r *MongoUserRepository) ClearRefreshToken(ctx context.Context, id bson.ObjectID) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{"refreshToken": 1},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}, ErrNotFound)
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()},
	}, ErrNotFound)
}

func (r *MongoUserRepository) updateOne(ctx context.Context, filter, update bson.M, noMatch error) error {
	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return noMatch
	}
	return nil
}

func (r *MongoUserRepository) UpdateAccount(ctx context.Context, id bson.ObjectID, fullName, email string) (*models.User, error) {
	return r.findOneAndSet(ctx, id, bson.M{"fullName": fullName, "email": email})
}

func (r *MongoUserRepository) UpdateImage(ctx context.Context, id bson.ObjectID, field ImageField, url string) (*models.User, error) {
	return r.findOneAndSet(ctx, id, bson.M{string(field): url})
}

func (r *MongoUserRepository) findOneAndSet(ctx context.Context, id bson.ObjectID, set bson.M) (*models.User, error) {
	set["updatedAt"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(sanitizedProjection)

	var user models.User
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		case utils.IsDuplicateKey(err):
			return nil, fmt.Errorf("update user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) ChannelProfile(ctx context.Context, username string, viewer *bson.ObjectID) (*dto.ChannelProfile, error) {
	cursor, err := r.users.Aggregate(ctx, ChannelProfilePipeline(username, viewer))
	if err != nil {
		return nil, fmt.Errorf("channel profile aggregate: %w", err)
	}

	var channels []dto.ChannelProfile
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("channel profile decode: %w", err)
	}
	if len(channels) == 0 {
		return nil, ErrNotFound
	}
	return &channels[0], nil
}

func (r *MongoUserRepository) WatchHistory(ctx context.Context, id bson.ObjectID) ([]dto.WatchHistoryVideo, error) {
	cursor, err := r.users.Aggregate(ctx, WatchHistoryPipeline(id))
	if err != nil {
		return nil, fmt.Errorf("watch history aggregate: %w", err)
	}

	var rows []struct {
		WatchHistory []bson.ObjectID         `bson:"watchHistory"`
		Videos       []dto.WatchHistoryVideo `bson:"videos"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("watch history decode: %w", err)
	}
	if len(rows) == 0 {
		return []dto.WatchHistoryVideo{}, nil
	}
	return orderByWatchHistory(rows[0].WatchHistory, rows[0].Videos), nil
}
