package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/torqueworks/workshop-api/internal/core/domain"
)

const userCollection = "users"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(userCollection)}
}

type mongoUser struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	FirstName             string             `bson:"first_name"`
	LastName              string             `bson:"last_name"`
	Email                 string             `bson:"email"`
	PasswordHash          string             `bson:"password_hash"`
	Role                  string             `bson:"role"`
	Enabled               bool               `bson:"enabled"`
	MobileNumber          string             `bson:"mobile_number,omitempty"`
	DateOfBirth           string             `bson:"date_of_birth,omitempty"`
	Address               string             `bson:"address,omitempty"`
	ImageURL              string             `bson:"image_url,omitempty"`
	VerificationCode      string             `bson:"verification_code,omitempty"`
	VerificationExpiresAt int64              `bson:"verification_expires_at,omitempty"`
	ResetCode             string             `bson:"reset_code,omitempty"`
	ResetExpiresAt        int64              `bson:"reset_expires_at,omitempty"`
	Deleted               bool               `bson:"deleted"`
	DeletedAt             int64              `bson:"deleted_at,omitempty"`
	CreatedAt             int64              `bson:"created_at"`
	UpdatedAt             int64              `bson:"updated_at"`
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	res, err := r.coll.InsertOne(ctx, toMongoUser(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created := *user
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid, "deleted": false})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email, "deleted": false})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return fromMongoUser(&mu), nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	doc := toMongoUser(user)
	doc.ID = oid
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "deleted_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{
		"deleted":    true,
		"deleted_at": bson.M{"$lt": cutoff.Unix()},
	})
	if err != nil {
		return 0, fmt.Errorf("purge users: %w", err)
	}
	return res.DeletedCount, nil
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		Role:                  string(u.Role),
		Enabled:               u.Enabled,
		MobileNumber:          u.MobileNumber,
		DateOfBirth:           u.DateOfBirth,
		Address:               u.Address,
		ImageURL:              u.ImageURL,
		VerificationCode:      u.VerificationCode,
		VerificationExpiresAt: unixOrZero(u.VerificationExpiresAt),
		ResetCode:             u.ResetCode,
		ResetExpiresAt:        unixOrZero(u.ResetExpiresAt),
		Deleted:               u.Deleted,
		DeletedAt:             unixOrZero(u.DeletedAt),
		CreatedAt:             u.CreatedAt.Unix(),
		UpdatedAt:             u.UpdatedAt.Unix(),
	}
}

func fromMongoUser(mu *mongoUser) *domain.User {
	return &domain.User{
		ID:                    mu.ID.Hex(),
		FirstName:             mu.FirstName,
		LastName:              mu.LastName,
		Email:                 mu.Email,
		PasswordHash:          mu.PasswordHash,
		Role:                  domain.Role(mu.Role),
		Enabled:               mu.Enabled,
		MobileNumber:          mu.MobileNumber,
		DateOfBirth:           mu.DateOfBirth,
		Address:               mu.Address,
		ImageURL:              mu.ImageURL,
		VerificationCode:      mu.VerificationCode,
		VerificationExpiresAt: unixToTime(mu.VerificationExpiresAt),
		ResetCode:             mu.ResetCode,
		ResetExpiresAt:        unixToTime(mu.ResetExpiresAt),
		Deleted:               mu.Deleted,
		DeletedAt:             unixToTime(mu.DeletedAt),
		CreatedAt:             unixToTime(mu.CreatedAt),
		UpdatedAt:             unixToTime(mu.UpdatedAt),
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
