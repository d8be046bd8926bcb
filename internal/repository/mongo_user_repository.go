package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/profile-service/internal/domain"
)

const usersCollection = "users"

// userDocument is the stored shape of a user.
type userDocument struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	ExternalID       string             `bson:"externalId"`
	Username         string             `bson:"username,omitempty"`
	FirstName        string             `bson:"firstName"`
	LastName         string             `bson:"lastName"`
	Email            string             `bson:"email"`
	Avatar           string             `bson:"avatar"`
	State            domain.UserState   `bson:"state"`
	RegistrationDone bool               `bson:"registrationDone"`
	Cohorts          []string           `bson:"cohorts"`
	Messages         []domain.Message   `bson:"messages,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

func (d *userDocument) toDomain() *domain.User {
	cohorts := d.Cohorts
	if cohorts == nil {
		cohorts = []string{}
	}
	return &domain.User{
		ID:               d.ID.Hex(),
		ExternalID:       d.ExternalID,
		Username:         d.Username,
		FirstName:        d.FirstName,
		LastName:         d.LastName,
		Email:            d.Email,
		Avatar:           d.Avatar,
		State:            d.State,
		RegistrationDone: d.RegistrationDone,
		Cohorts:          cohorts,
		Messages:         d.Messages,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// MongoUserRepository stores users as documents in a MongoDB collection.
type MongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository returns a MongoDB-backed implementation.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique external id and username indexes.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "externalId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_external_id"),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("users_username").
				SetPartialFilterExpression(bson.M{"username": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetName("users_state"),
		},
	})
	return err
}

// withoutMessages keeps pending messages out of profile reads.
var withoutMessages = bson.M{"messages": 0}

func (r *MongoUserRepository) List(ctx context.Context, filter UserFilter, skip, take int64) ([]domain.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetProjection(withoutMessages)
	if take > 0 {
		opts.SetLimit(take)
	}

	cur, err := r.users.Find(ctx, toBSONFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toDomain())
	}
	return users, nil
}

func (r *MongoUserRepository) Count(ctx context.Context, filter UserFilter) (int64, error) {
	return r.users.CountDocuments(ctx, toBSONFilter(filter))
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepository) GetCohortsByID(ctx context.Context, id string) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	var doc userDocument
	err = r.users.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(bson.M{"cohorts": 1})).Decode(&doc)
	if err != nil {
		return nil, mapMongoError(err)
	}
	return doc.toDomain().Cohorts, nil
}

func (r *MongoUserRepository) AddCohort(ctx context.Context, id, cohortID string) ([]string, error) {
	return r.updateCohorts(ctx, id, bson.M{"$addToSet": bson.M{"cohorts": cohortID}})
}

func (r *MongoUserRepository) RemoveCohort(ctx context.Context, id, cohortID string) ([]string, error) {
	return r.updateCohorts(ctx, id, bson.M{"$pull": bson.M{"cohorts": cohortID}})
}

func (r *MongoUserRepository) updateCohorts(ctx context.Context, id string, update bson.M) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	update["$set"] = bson.M{"updatedAt": time.Now().UTC()}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"cohorts": 1})

	var doc userDocument
	if err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	return doc.toDomain().Cohorts, nil
}

func (r *MongoUserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"externalId": externalID})
}

func (r *MongoUserRepository) Save(ctx context.Context, user *domain.User) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return ErrUserNotFound
	}

	now := time.Now().UTC()
	set := bson.M{
		"firstName":        user.FirstName,
		"lastName":         user.LastName,
		"email":            user.Email,
		"avatar":           user.Avatar,
		"state":            user.State,
		"registrationDone": user.RegistrationDone,
		"updatedAt":        now,
	}
	if user.Username != "" {
		set["username"] = user.Username
	}

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUsernameTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	user.UpdatedAt = now
	return nil
}

func (r *MongoUserRepository) Remove(ctx context.Context, user *domain.User) (*RemoveResult, error) {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	res, err := r.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	return &RemoveResult{ID: user.ID, Deleted: res.DeletedCount}, nil
}

func (r *MongoUserRepository) GetMessages(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var doc userDocument
	err = r.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$unset": bson.M{"messages": ""}}, opts).Decode(&doc)
	if err != nil {
		return nil, mapMongoError(err)
	}
	return doc.toDomain(), nil
}

func (r *MongoUserRepository) Provision(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	doc := userDocument{
		ExternalID: user.ExternalID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		Avatar:     user.Avatar,
		State:      domain.UserStateOffline,
		Cohorts:    []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	res, err := r.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserExists
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	user.State = doc.State
	user.Cohorts = doc.Cohorts
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

func (r *MongoUserRepository) Ping(ctx context.Context) error {
	return r.users.Database().Client().Ping(ctx, nil)
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, filter, options.FindOne().SetProjection(withoutMessages)).Decode(&doc)
	if err != nil {
		return nil, mapMongoError(err)
	}
	return doc.toDomain(), nil
}

func toBSONFilter(filter UserFilter) bson.M {
	out := bson.M{}
	if filter.State != "" {
		out["state"] = filter.State
	}
	return out
}

func mapMongoError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrUserNotFound
	}
	return err
}
