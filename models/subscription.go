package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Subscription struct {
	ID         bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Subscriber bson.ObjectID `bson:"subscriber" json:"subscriber"`
	Channel    bson.ObjectID `bson:"channel" json:"channel"`
	CreatedAt  time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time     `bson:"updatedAt" json:"updatedAt"`
}
