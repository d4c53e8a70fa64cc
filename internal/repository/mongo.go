package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Clark-Hu/lms-api/internal/domain"
)

// maxAppendAttempts bounds the compare-and-swap loop of MongoCourses.AppendReview.
const maxAppendAttempts = 5

const (
	coursesCollection = "courses"
	usersCollection   = "users"
)

type courseDocument struct {
	ID          string           `bson:"_id"`
	Name        string           `bson:"name"`
	Description string           `bson:"description"`
	Rating      float64          `bson:"rating"`
	Reviews     []reviewDocument `bson:"reviews"`
	CreatedAt   time.Time        `bson:"createdAt"`
	Version     int64            `bson:"version"`
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	Favorites    []string  `bson:"favorites"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// NewMongo builds a Repository over a mongo database and makes sure the
// required indexes exist.
func NewMongo(ctx context.Context, db *mongo.Database, logger zerolog.Logger) (*Repository, error) {
	courses := &MongoCourses{
		collection: db.Collection(coursesCollection),
		logger:     logger.With().Str("component", "mongo_courses").Logger(),
	}
	users := &MongoUsers{collection: db.Collection(usersCollection)}

	if err := courses.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := users.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return Compose(courses, users), nil
}

// MongoCourses stores courses as documents with embedded reviews.
type MongoCourses struct {
	collection *mongo.Collection
	logger     zerolog.Logger
}

func (r *MongoCourses) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create course indexes: %w", err)
	}
	return nil
}

// Create inserts a new course with no reviews.
func (r *MongoCourses) Create(ctx context.Context, params CourseCreateParams) (domain.Course, error) {
	doc := courseDocument{
		ID:          uuid.NewString(),
		Name:        params.Name,
		Description: params.Description,
		Reviews:     []reviewDocument{},
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return domain.Course{}, fmt.Errorf("insert course: %w", err)
	}
	return doc.toDomain(), nil
}

// GetByID fetches a course with its reviews.
func (r *MongoCourses) GetByID(ctx context.Context, id string) (domain.Course, error) {
	doc, err := r.find(ctx, id)
	if err != nil {
		return domain.Course{}, err
	}
	return doc.toDomain(), nil
}

// List returns courses in the requested order.
func (r *MongoCourses) List(ctx context.Context, opts CourseListOptions) ([]domain.Course, error) {
	findOpts := options.Find()
	switch opts.Order {
	case OrderNewest:
		findOpts.SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	case OrderTopRated:
		findOpts.SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: -1}})
	default:
		findOpts.SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	return r.findMany(ctx, bson.M{}, findOpts)
}

// ListByIDs resolves ids to courses. Unknown ids are skipped.
func (r *MongoCourses) ListByIDs(ctx context.Context, ids []string) ([]domain.Course, error) {
	if len(ids) == 0 {
		return []domain.Course{}, nil
	}
	return r.findMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// AppendReview appends the review and stores the recomputed rating with a
// version check so that concurrent appends never overwrite each other.
func (r *MongoCourses) AppendReview(ctx context.Context, courseID string, review domain.Review) (domain.Course, error) {
	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		doc, err := r.find(ctx, courseID)
		if err != nil {
			return domain.Course{}, err
		}

		course := doc.toDomain()
		course.AppendReview(review)

		filter := bson.M{"_id": courseID, "version": doc.Version}
		update := bson.M{
			"$set": bson.M{
				"reviews": toReviewDocuments(course.Reviews),
				"rating":  course.Rating,
			},
			"$inc": bson.M{"version": 1},
		}
		res, err := r.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return domain.Course{}, fmt.Errorf("update course reviews: %w", err)
		}
		if res.MatchedCount == 1 {
			return course, nil
		}
		r.logger.Debug().Str("course_id", courseID).Int("attempt", attempt).Msg("review append lost race, retrying")
	}
	return domain.Course{}, ErrConflict
}

func (r *MongoCourses) find(ctx context.Context, id string) (courseDocument, error) {
	var doc courseDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return courseDocument{}, ErrNotFound
		}
		return courseDocument{}, err
	}
	return doc, nil
}

func (r *MongoCourses) findMany(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]domain.Course, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []courseDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]domain.Course, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toDomain())
	}
	return items, nil
}

func (d courseDocument) toDomain() domain.Course {
	reviews := make([]domain.Review, 0, len(d.Reviews))
	for _, rv := range d.Reviews {
		reviews = append(reviews, domain.Review{Comment: rv.Comment, Rating: rv.Rating})
	}
	return domain.Course{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Rating:      d.Rating,
		Reviews:     reviews,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

func toReviewDocuments(reviews []domain.Review) []reviewDocument {
	docs := make([]reviewDocument, 0, len(reviews))
	for _, rv := range reviews {
		docs = append(docs, reviewDocument{Comment: rv.Comment, Rating: rv.Rating})
	}
	return docs
}

// MongoUsers stores identity records.
type MongoUsers struct {
	collection *mongo.Collection
}

func (r *MongoUsers) ensureIndexes(ctx context.Context) error {
	emailIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, emailIndex); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Create inserts a new user. A taken email yields ErrDuplicateEmail.
func (r *MongoUsers) Create(ctx context.Context, params UserCreateParams) (domain.User, error) {
	doc := userDocument{
		ID:           uuid.NewString(),
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Favorites:    []string{},
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

// GetByID fetches a user by identifier.
func (r *MongoUsers) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail fetches a user by email.
func (r *MongoUsers) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// AddFavorite adds courseID to the favorites set unless it is already present.
func (r *MongoUsers) AddFavorite(ctx context.Context, userID, courseID string) (domain.User, error) {
	return r.update(ctx, userID, bson.M{"$addToSet": bson.M{"favorites": courseID}})
}

// RemoveFavorite drops every occurrence of courseID from the favorites set.
func (r *MongoUsers) RemoveFavorite(ctx context.Context, userID, courseID string) (domain.User, error) {
	return r.update(ctx, userID, bson.M{"$pull": bson.M{"favorites": courseID}})
}

func (r *MongoUsers) update(ctx context.Context, userID string, update bson.M) (domain.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return doc.toDomain(), nil
}

func (r *MongoUsers) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return doc.toDomain(), nil
}

func (d userDocument) toDomain() domain.User {
	favorites := d.Favorites
	if favorites == nil {
		favorites = []string{}
	}
	return domain.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Favorites:    favorites,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}
