package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/fleet-analytics/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrUserNotFound is returned when no owner matches an ID.
var ErrUserNotFound = errors.New("user not found")

// MongoUserCollection implements UserStore for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new owner and sets its ID.
func (c *MongoUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	if c.Collection == nil {
		return errNilCollection
	}
	now := time.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := c.Collection.InsertOne(ctx, user)
	return Classify(err)
}

// FindUserByID finds an owner by its ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}

	var user models.User
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id.Hex())
		}
		return nil, Classify(err)
	}
	return &user, nil
}
