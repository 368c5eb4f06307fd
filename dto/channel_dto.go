package dto

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ChannelProfile is the public view of a user plus subscription counters.
type ChannelProfile struct {
	ID                        bson.ObjectID `bson:"_id" json:"_id"`
	FullName                  string        `bson:"fullName" json:"fullName"`
	Username                  string        `bson:"username" json:"username"`
	Email                     string        `bson:"email" json:"email"`
	Avatar                    string        `bson:"avatar" json:"avatar"`
	CoverImage                string        `bson:"coverImage" json:"coverImage"`
	SubscribersCount          int           `bson:"subscribersCount" json:"subscribersCount"`
	ChannelsSubscribedToCount int           `bson:"channelsSubscribedToCount" json:"channelsSubscribedToCount"`
	IsSubscribed              bool          `bson:"isSubscribed" json:"isSubscribed"`
}

type VideoOwner struct {
	ID       bson.ObjectID `bson:"_id" json:"_id"`
	FullName string        `bson:"fullName" json:"fullName"`
	Username string        `bson:"username" json:"username"`
	Avatar   string        `bson:"avatar" json:"avatar"`
}

// WatchHistoryVideo is a watched video with its uploader embedded.
type WatchHistoryVideo struct {
	ID          bson.ObjectID `bson:"_id" json:"_id"`
	VideoFile   string        `bson:"videoFile" json:"videoFile"`
	Thumbnail   string        `bson:"thumbnail" json:"thumbnail"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Duration    float64       `bson:"duration" json:"duration"`
	Views       int64         `bson:"views" json:"views"`
	IsPublished bool          `bson:"isPublished" json:"isPublished"`
	Owner       *VideoOwner   `bson:"owner,omitempty" json:"owner"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}
