package mongodb

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/homeworkhelper/api/core/user"
)

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UID        string             `bson:"uid,omitempty"`
	Email      string             `bson:"email"`
	Role       string             `bson:"role"`
	LastActive time.Time          `bson:"lastActive"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d userDoc) toUser() user.User {
	role := d.Role
	if role == "" {
		role = user.RoleStudent
	}
	return user.User{
		ID:         d.ID.Hex(),
		UID:        d.UID,
		Email:      d.Email,
		Role:       role,
		LastActive: d.LastActive.UTC(),
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

// emailFilter matches email exactly, ignoring case.
func emailFilter(email string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(email) + "$", Options: "i"}
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) getUser(ctx context.Context, filter bson.M) (user.User, error) {
	var doc userDoc
	err := repo.db.users().FindOne(ctx, filter).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return user.User{}, user.ErrNotFound
	case err != nil:
		return user.User{}, storageErr(err, "finding user")
	}
	return doc.toUser(), nil
}

func (repo *userRepository) GetUserByUID(ctx context.Context, uid string) (user.User, error) {
	if uid == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(ctx, bson.M{"uid": uid})
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, bson.M{"email": emailFilter(email)})
}

func (repo *userRepository) SaveUser(ctx context.Context, usr user.User) (user.User, error) {
	set := bson.M{
		"email":      usr.Email,
		"role":       usr.Role,
		"lastActive": usr.LastActive,
		"updatedAt":  usr.UpdatedAt,
	}
	if usr.UID != "" {
		set["uid"] = usr.UID
	}
	var doc userDoc
	err := repo.db.users().FindOneAndUpdate(ctx,
		bson.M{"email": emailFilter(usr.Email)},
		bson.M{"$set": set, "$setOnInsert": bson.M{"createdAt": usr.CreatedAt}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return user.User{}, storageErr(err, "saving user")
	}
	return doc.toUser(), nil
}

func (repo *userRepository) TouchUser(ctx context.Context, uid, email string, at time.Time) error {
	or := bson.A{bson.M{"uid": uid}}
	if email != "" {
		or = append(or, bson.M{"email": emailFilter(email)})
	}
	res, err := repo.db.users().UpdateOne(ctx,
		bson.M{"$or": or},
		bson.M{"$set": bson.M{"uid": uid, "lastActive": at, "updatedAt": at}},
	)
	if err != nil {
		return storageErr(err, "touching user")
	}
	if res.MatchedCount > 0 || email == "" {
		return nil
	}

	_, err = repo.db.users().InsertOne(ctx, userDoc{
		UID:        uid,
		Email:      email,
		Role:       user.RoleStudent,
		LastActive: at,
		CreatedAt:  at,
		UpdatedAt:  at,
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return storageErr(err, "creating touched user")
}

func (repo *userRepository) DeleteUsersByEmail(ctx context.Context, emails ...string) (int64, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	res, err := repo.db.users().DeleteMany(ctx, bson.M{"email": bson.M{"$in": emails}})
	if err != nil {
		return 0, storageErr(err, "deleting users")
	}
	return res.DeletedCount, nil
}
