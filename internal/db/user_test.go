package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-analytics/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoUserCollection_NilCollection(t *testing.T) {
	coll := &MongoUserCollection{}

	assert.Error(t, coll.InsertUser(context.Background(), &models.User{Name: "Jean Dupont"}))
	_, err := coll.FindUserByID(context.Background(), primitive.NewObjectID())
	assert.Error(t, err)
}

func TestMongoUserCollection_Integration(t *testing.T) {
	database := testDatabase(t)
	users := &MongoUserCollection{Collection: database.Collection("users")}
	ctx := context.Background()

	user := &models.User{Name: "Jean Dupont"}
	require.NoError(t, users.InsertUser(ctx, user))
	assert.False(t, user.ID.IsZero())
	assert.NotZero(t, user.CreatedAt)

	found, err := users.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jean Dupont", found.Name)

	_, err = users.FindUserByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
