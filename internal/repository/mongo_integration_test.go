package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start mongo container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(fmt.Sprintf("mongodb://%s:%s", host, port.Port())))
	if err != nil {
		t.Fatalf("Failed to connect to mongo: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("Failed to ping mongo: %v", err)
	}

	cleanup := func() {
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Failed to disconnect: %v", err)
		}
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}
	return client.Database("bookstore_test"), cleanup
}

func TestMongoRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := NewMongoStore(ctx, db)
	require.NoError(t, err)

	t.Run("users", func(t *testing.T) {
		u := &models.User{Fullname: "Ada Lovelace", Email: "Ada@Example.com", Password: "hash"}
		require.NoError(t, store.Users.Create(ctx, u))
		assert.False(t, u.ID.IsZero())

		err := store.Users.Create(ctx, &models.User{Fullname: "Dup", Email: "ada@example.com"})
		assert.ErrorIs(t, err, apperr.ErrEmailTaken)

		found, err := store.Users.FindByEmail(ctx, "ADA@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.ID)

		_, err = store.Users.FindByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, apperr.ErrUserNotFound)

		recent, err := store.Users.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Empty(t, recent[0].Password)
	})

	t.Run("books and reviews", func(t *testing.T) {
		books := []models.Book{
			{Name: "Dune", Price: 11.5, Category: "Science Fiction", Title: "Arrakis"},
			{Name: "Emma", Price: 7.25, Category: "Classic", Title: "Highbury"},
			{Name: "Neuromancer", Price: 9, Category: "Science Fiction", Title: "Cyberspace"},
		}
		require.NoError(t, store.Books.InsertMany(ctx, books))

		hits, err := store.Books.Search(ctx, "science")
		require.NoError(t, err)
		assert.Len(t, hits, 2)

		hits, err = store.Books.Search(ctx, "(")
		require.NoError(t, err)
		assert.Empty(t, hits)

		all, err := store.Books.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		dune := all[0]

		owner := primitive.NewObjectID()
		rv := models.Review{ID: primitive.NewObjectID(), UserID: owner, Username: "ada", Rating: 4, Review: "good", CreatedAt: time.Now().UTC()}
		require.NoError(t, store.Books.AddReview(ctx, dune.ID, rv))

		err = store.Books.DeleteReview(ctx, dune.ID, rv.ID, primitive.NewObjectID())
		assert.ErrorIs(t, err, apperr.ErrReviewNotFound)

		require.NoError(t, store.Books.UpdateReview(ctx, dune.ID, rv.ID, owner, 5, "great"))
		got, err := store.Books.FindByID(ctx, dune.ID)
		require.NoError(t, err)
		require.Len(t, got.Reviews, 1)
		assert.Equal(t, 5, got.Reviews[0].Rating)

		popular, err := store.Books.Popular(ctx, nil, 2)
		require.NoError(t, err)
		require.Len(t, popular, 2)
		assert.Equal(t, dune.ID, popular[0].ID)

		byCat, err := store.Books.ByCategories(ctx, []string{"Science Fiction"}, []primitive.ObjectID{dune.ID}, 10)
		require.NoError(t, err)
		require.Len(t, byCat, 1)
		assert.Equal(t, "Neuromancer", byCat[0].Name)

		require.NoError(t, store.Books.DeleteReview(ctx, dune.ID, rv.ID, owner))
		got, err = store.Books.FindByID(ctx, dune.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Reviews)
	})

	t.Run("carts", func(t *testing.T) {
		user := primitive.NewObjectID()
		_, err := store.Carts.FindByUser(ctx, user)
		assert.ErrorIs(t, err, apperr.ErrCartNotFound)

		cart := &models.Cart{UserID: user, Items: []models.CartItem{{BookID: primitive.NewObjectID(), Quantity: 2}}}
		require.NoError(t, store.Carts.Save(ctx, cart))
		got, err := store.Carts.FindByUser(ctx, user)
		require.NoError(t, err)
		assert.Len(t, got.Items, 1)

		require.NoError(t, store.Carts.Delete(ctx, user))
		_, err = store.Carts.FindByUser(ctx, user)
		assert.ErrorIs(t, err, apperr.ErrCartNotFound)
	})

	t.Run("orders", func(t *testing.T) {
		user := primitive.NewObjectID()
		jan := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
		feb := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.Orders.Create(ctx, &models.Order{User: user, TotalAmount: 10, CreatedAt: jan}))
		require.NoError(t, store.Orders.Create(ctx, &models.Order{User: user, TotalAmount: 5.5, CreatedAt: feb}))
		require.NoError(t, store.Orders.Create(ctx, &models.Order{User: user, TotalAmount: 4.5, CreatedAt: feb}))

		mine, err := store.Orders.ListByUser(ctx, user)
		require.NoError(t, err)
		require.Len(t, mine, 3)
		assert.True(t, !mine[0].CreatedAt.Before(mine[2].CreatedAt))

		rev, err := store.Orders.RevenueByMonth(ctx)
		require.NoError(t, err)
		require.Len(t, rev, 2)
		assert.Equal(t, 1, rev[0].Month)
		assert.InDelta(t, 10.0, rev[1].Amount, 0.001)
	})

	t.Run("chat sessions", func(t *testing.T) {
		user := primitive.NewObjectID()
		s := &models.ChatSession{UserID: user, Active: true, StartedAt: time.Now().UTC(), LastActivity: time.Now().UTC()}
		require.NoError(t, store.Chats.Create(ctx, s))

		msgs := []models.ChatMessage{
			{Content: "hi", Sender: models.SenderUser, Timestamp: time.Now().UTC()},
			{Content: "hello", Sender: models.SenderBot, Timestamp: time.Now().UTC()},
		}
		require.NoError(t, store.Chats.AppendMessages(ctx, s.ID, msgs, time.Now().UTC()))

		err := store.Chats.End(ctx, s.ID, primitive.NewObjectID())
		assert.ErrorIs(t, err, apperr.ErrSessionNotFound)
		require.NoError(t, store.Chats.End(ctx, s.ID, user))

		got, err := store.Chats.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		assert.Len(t, got.Messages, 2)
	})

	t.Run("admins", func(t *testing.T) {
		a := &models.AdminUser{Fullname: "Root", Email: "root@shop.io", Password: "hash", Role: models.RoleSuperAdmin, IsActive: true}
		require.NoError(t, store.Admins.Create(ctx, a))
		assert.ErrorIs(t, store.Admins.Create(ctx, &models.AdminUser{Email: "ROOT@shop.io"}), apperr.ErrEmailTaken)

		n, err := store.Admins.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		now := time.Now().UTC()
		require.NoError(t, store.Admins.TouchLogin(ctx, a.ID, now))
		got, err := store.Admins.FindByEmail(ctx, "root@shop.io")
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
	})
}
