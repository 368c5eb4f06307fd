package repository

import (
	"github.com/princinho/videotube/dto"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	usersCollection         = "users"
	videosCollection        = "videos"
	subscriptionsCollection = "subscriptions"
)

// sanitizedProjection drops the credential fields from user reads.
var sanitizedProjection = bson.M{"password": 0, "refreshToken": 0}

// ChannelProfilePipeline matches a user by username and counts subscriptions
// in both directions.
func ChannelProfilePipeline(username string, viewer *bson.ObjectID) mongo.Pipeline {
	var isSubscribed any = false
	if viewer != nil {
		isSubscribed = bson.M{
			"$cond": bson.M{
				"if":   bson.M{"$in": bson.A{*viewer, "$subscribers.subscriber"}},
				"then": true,
				"else": false,
			},
		}
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscribersCount":          bson.M{"$size": "$subscribers"},
			"channelsSubscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed":              isSubscribed,
		}}},
		{{Key: "$project", Value: bson.M{
			"fullName":                  1,
			"username":                  1,
			"email":                     1,
			"avatar":                    1,
			"coverImage":                1,
			"subscribersCount":          1,
			"channelsSubscribedToCount": 1,
			"isSubscribed":              1,
		}}},
	}
}

// WatchHistoryPipeline joins the watched videos and their owners. The joined
// videos come back unordered; watchHistory keeps the ids in watch order.
func WatchHistoryPipeline(id bson.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         videosCollection,
			"localField":   "watchHistory",
			"foreignField": "_id",
			"as":           "videos",
			"pipeline": bson.A{
				bson.M{"$lookup": bson.M{
					"from":         usersCollection,
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "owner",
					"pipeline": bson.A{
						bson.M{"$project": bson.M{"fullName": 1, "username": 1, "avatar": 1}},
					},
				}},
				bson.M{"$addFields": bson.M{"owner": bson.M{"$first": "$owner"}}},
			},
		}}},
		{{Key: "$project", Value: bson.M{"watchHistory": 1, "videos": 1}}},
	}
}

// orderByWatchHistory lays videos out in the order of ids. Ids without a
// matching video are skipped; repeated ids repeat the video.
func orderByWatchHistory(ids []bson.ObjectID, videos []dto.WatchHistoryVideo) []dto.WatchHistoryVideo {
	byID := make(map[bson.ObjectID]dto.WatchHistoryVideo, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	out := make([]dto.WatchHistoryVideo, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out
}
