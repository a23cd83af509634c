package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/analytics"
	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/user"
	dummydb "github.com/homeworkhelper/api/storage/database/dummy"
	inmemdb "github.com/homeworkhelper/api/storage/database/inmem"
	mongodb "github.com/homeworkhelper/api/storage/database/mongo"
	sqlxrepos "github.com/homeworkhelper/api/storage/database/sqlx"
)

// Store holds the repositories of the configured storage engine.
type Store struct {
	Engine    string
	Questions question.Repository
	Stats     analytics.Repository
	Users     user.Repository
	// SQL is the Postgres connection pool; nil for other engines.
	SQL *sql.DB

	available bool
	close     func(ctx context.Context) error
}

// Available reports whether the configured engine could be reached.
func (s *Store) Available() bool { return s.available }

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStore connects to conf.Database.Engine. When the engine cannot be set up
// the error is logged and the returned Store fails every call with
// core.ErrUnavailable, so the API keeps serving what does not need storage.
func OpenStore(ctx context.Context, conf *core.Config, logger core.Logger) *Store {
	store, err := openStore(ctx, conf, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("storage unavailable, continuing without it: %v", err), err)
		return NewUnavailableStore(conf.Database.Engine, err)
	}
	logger.Info(fmt.Sprintf("storage ready: %s", store.Engine))
	return store
}

func openStore(ctx context.Context, conf *core.Config, logger core.Logger) (*Store, error) {
	switch conf.Database.Engine {
	case core.EnginePostgres:
		if err := CreateIfNotExist(ctx, conf); err != nil {
			logger.Warn(fmt.Sprintf("could not create database, assuming it exists: %v", err), err)
		}
		db, err := Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Store{
			Engine:    core.EnginePostgres,
			Questions: sqlxrepos.NewQuestionRepository(db),
			Stats:     sqlxrepos.NewStatsRepository(db),
			Users:     sqlxrepos.NewUserRepository(db),
			SQL:       db.DB,
			available: true,
			close:     func(context.Context) error { return db.Close() },
		}, nil

	case core.EngineMongo:
		db, err := mongodb.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = db.EnsureIndexes(ctx); err != nil {
			logger.Warn(fmt.Sprintf("could not create indexes: %v", err), err)
		}
		return &Store{
			Engine:    core.EngineMongo,
			Questions: mongodb.NewQuestionRepository(db),
			Stats:     mongodb.NewStatsRepository(db),
			Users:     mongodb.NewUserRepository(db),
			available: true,
			close:     db.Close,
		}, nil

	case core.EngineMemory:
		db, err := inmemdb.Open()
		if err != nil {
			return nil, err
		}
		return NewMemoryStore(db), nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

// NewMemoryStore serves the repositories of an in-memory database.
func NewMemoryStore(db *inmemdb.DB) *Store {
	return &Store{
		Engine:    core.EngineMemory,
		Questions: inmemdb.NewQuestionRepository(db),
		Stats:     inmemdb.NewStatsRepository(db),
		Users:     inmemdb.NewUserRepository(db),
		available: true,
	}
}

// NewUnavailableStore fails every call with core.ErrUnavailable.
func NewUnavailableStore(engine string, cause error) *Store {
	db := dummydb.Open(cause)
	return &Store{
		Engine:    engine,
		Questions: dummydb.NewQuestionRepository(db),
		Stats:     dummydb.NewStatsRepository(db),
		Users:     dummydb.NewUserRepository(db),
	}
}
