// Package mongodb implements the repositories on MongoDB, reading and writing
// documents in the layout of the "questions" and "users" collections.
package mongodb

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/homeworkhelper/api/core"
)

const (
	questionsCollection = "questions"
	usersCollection     = "users"
)

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to conf.Database.URI and waits for the primary to answer.
// The database is the one named in the URI, else conf.Database.Name.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	cs, err := connstring.ParseAndValidate(conf.Database.URI)
	if err != nil {
		return nil, errors.Wrap(err, "parsing mongodb uri")
	}
	name := cs.Database
	if name == "" {
		name = conf.Database.Name
	}

	opts := options.Client().ApplyURI(conf.Database.URI)
	if conf.Database.ConnectTimeout > 0 {
		opts.SetConnectTimeout(conf.Database.ConnectTimeout)
		opts.SetServerSelectionTimeout(conf.Database.ConnectTimeout)
	}
	if conf.Database.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(conf.Database.MaxPoolSize))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = ping(ctx, client, conf.Database.ConnectTimeout); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &DB{client: client, db: client.Database(name)}, nil
}

func ping(ctx context.Context, client *mongo.Client, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = timeout

	err := backoff.Retry(func() error {
		return client.Ping(ctx, readpref.Primary())
	}, backoff.WithContext(b, ctx))
	return errors.Wrap(err, "mongodb ping timeout")
}

// EnsureIndexes creates the indexes the repositories rely on.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	_, err := db.questions().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "askedBy", Value: 1}, {Key: "askedAt", Value: -1}}},
		{Keys: bson.D{{Key: "text", Value: 1}, {Key: "subject", Value: 1}, {Key: "askedBy", Value: 1}}},
		{Keys: bson.D{{Key: "topic", Value: 1}}},
	})
	if err != nil {
		return storageErr(err, "creating question indexes")
	}
	_, err = db.users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "uid", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	return storageErr(err, "creating user indexes")
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *DB) questions() *mongo.Collection { return db.db.Collection(questionsCollection) }

func (db *DB) users() *mongo.Collection { return db.db.Collection(usersCollection) }

// storageErr maps connectivity failures to core.ErrUnavailable and keeps the rest.
func storageErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return errors.WithMessage(core.ErrUnavailable, msg+": "+err.Error())
	}
	var srvErr topology.ServerSelectionError
	if errors.As(err, &srvErr) {
		return errors.WithMessage(core.ErrUnavailable, msg+": "+err.Error())
	}
	return errors.Wrap(err, msg)
}
