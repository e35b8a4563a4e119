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

const tokenCollection = "tokens"

// TokenRepository is the Mongo-backed issued-token ledger.
type TokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{coll: db.Collection(tokenCollection)}
}

type mongoToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Value     string             `bson:"token"`
	Type      string             `bson:"type"`
	Expired   bool               `bson:"expired"`
	Revoked   bool               `bson:"revoked"`
	Deleted   bool               `bson:"deleted"`
	CreatedAt int64              `bson:"created_at"`
}

func (r *TokenRepository) Save(ctx context.Context, token *domain.Token) (*domain.Token, error) {
	doc := mongoToken{
		UserID:    token.UserID,
		Value:     token.Value,
		Type:      string(token.Type),
		Expired:   token.Expired,
		Revoked:   token.Revoked,
		Deleted:   token.Deleted,
		CreatedAt: token.CreatedAt.Unix(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}

	saved := *token
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		saved.ID = oid.Hex()
	}
	return &saved, nil
}

func (r *TokenRepository) FindByValue(ctx context.Context, value string) (*domain.Token, error) {
	var mt mongoToken
	err := r.coll.FindOne(ctx, bson.M{"token": value, "deleted": false}).Decode(&mt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return fromMongoToken(&mt), nil
}

// FindUsableByUser returns tokens not yet fully retired: expired=false OR
// revoked=false.
func (r *TokenRepository) FindUsableByUser(ctx context.Context, userID string) ([]*domain.Token, error) {
	filter := bson.M{
		"user_id": userID,
		"deleted": false,
		"$or":     bson.A{bson.M{"expired": false}, bson.M{"revoked": false}},
	}

	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find usable tokens: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.Token
	for cur.Next(ctx) {
		var mt mongoToken
		if err := cur.Decode(&mt); err != nil {
			return nil, fmt.Errorf("decode token: %w", err)
		}
		out = append(out, fromMongoToken(&mt))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return out, nil
}

func (r *TokenRepository) UpdateAll(ctx context.Context, tokens []*domain.Token) error {
	if len(tokens) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(tokens))
	for _, t := range tokens {
		oid, err := primitive.ObjectIDFromHex(t.ID)
		if err != nil {
			return fmt.Errorf("update tokens: bad id %q", t.ID)
		}
		ids = append(ids, oid)
	}

	// All bulk updates in this flow set the same retired state.
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"expired": true, "revoked": true}},
	)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	return nil
}

// PurgeRetired physically removes fully retired tokens created before cutoff.
func (r *TokenRepository) PurgeRetired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{
		"expired":    true,
		"revoked":    true,
		"created_at": bson.M{"$lt": cutoff.Unix()},
	})
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return res.DeletedCount, nil
}

func fromMongoToken(mt *mongoToken) *domain.Token {
	return &domain.Token{
		ID:        mt.ID.Hex(),
		UserID:    mt.UserID,
		Value:     mt.Value,
		Type:      domain.TokenType(mt.Type),
		Expired:   mt.Expired,
		Revoked:   mt.Revoked,
		Deleted:   mt.Deleted,
		CreatedAt: unixToTime(mt.CreatedAt),
	}
}
