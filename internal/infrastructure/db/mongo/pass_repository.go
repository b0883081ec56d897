package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/corepass/hallpass/internal/core/domain"
	"github.com/corepass/hallpass/internal/core/ports"
)

const collectionPasses = "passes"

// passDocument mirrors a document of the passes collection. Field names are
// shared with the mobile client and must not change.
type passDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Author    string             `bson:"author"`
	FromRoom  string             `bson:"fromRoom"`
	ToRoom    string             `bson:"toRoom"`
	CreatedAt time.Time          `bson:"created_at"`
	Approved  string             `bson:"approved"`
	StartTime *time.Time         `bson:"start_time,omitempty"`
	Duration  *int               `bson:"duration,omitempty"`
	Active    bool               `bson:"active"`
	SchoolID  string             `bson:"schoolId,omitempty"`
}

func (d passDocument) toDomain() (domain.Pass, error) {
	status := domain.ApprovalStatus(d.Approved)
	if !status.Valid() {
		return domain.Pass{}, fmt.Errorf("pass %s: unknown approval status %q", d.ID.Hex(), d.Approved)
	}
	if d.CreatedAt.IsZero() {
		return domain.Pass{}, fmt.Errorf("pass %s: missing created_at", d.ID.Hex())
	}
	p := domain.Pass{
		ID:        d.ID.Hex(),
		Author:    d.Author,
		FromRoom:  d.FromRoom,
		ToRoom:    d.ToRoom,
		CreatedAt: d.CreatedAt.UTC(),
		Approved:  status,
		Duration:  d.Duration,
		Active:    d.Active,
		SchoolID:  d.SchoolID,
	}
	if d.StartTime != nil {
		st := d.StartTime.UTC()
		p.StartTime = &st
	}
	return p, nil
}

// decodePass turns a raw document into a Pass.
func decodePass(raw bson.Raw) (domain.Pass, error) {
	var doc passDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return domain.Pass{}, err
	}
	return doc.toDomain()
}

// PassRepository implements ports.PassStore on the passes collection.
type PassRepository struct {
	col *mongo.Collection
	log zerolog.Logger
}

func NewPassRepository(db *mongo.Database, log zerolog.Logger) *PassRepository {
	return &PassRepository{col: db.Collection(collectionPasses), log: log}
}

// ListByAuthor returns the author's passes newest first. Documents that do not
// decode into a valid pass are skipped.
func (r *PassRepository) ListByAuthor(ctx context.Context, author string) ([]domain.Pass, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"author": author}, opts)
	if err != nil {
		return nil, fmt.Errorf("find passes: %w", err)
	}
	defer cur.Close(ctx)

	passes := make([]domain.Pass, 0)
	for cur.Next(ctx) {
		p, err := decodePass(cur.Current)
		if err != nil {
			r.log.Warn().Err(err).Str("author", author).Msg("skipping undecodable pass")
			continue
		}
		passes = append(passes, p)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// FindByID retrieves a single pass owned by author.
func (r *PassRepository) FindByID(ctx context.Context, id, author string) (*domain.Pass, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrPassNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	raw, err := r.col.FindOne(ctx, bson.M{"_id": oid, "author": author}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPassNotFound
		}
		return nil, err
	}
	p, err := decodePass(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// WatchAuthor opens a change stream that fires whenever one of the author's
// passes is inserted, replaced or updated. Deletes carry no author and always
// fire.
func (r *PassRepository) WatchAuthor(ctx context.Context, author string) (ports.ChangeFeed, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$or": bson.A{
				bson.M{"fullDocument.author": author},
				bson.M{"operationType": "delete"},
			},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := r.col.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("watch passes: %w", err)
	}
	return stream, nil
}

// Create inserts a pending pass. The id is generated client side while
// created_at is stamped by the server through $currentDate, so ordering does
// not depend on device clocks.
func (r *PassRepository) Create(ctx context.Context, p *domain.Pass) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid := primitive.NewObjectID()
	fields := bson.M{
		"author":   p.Author,
		"fromRoom": p.FromRoom,
		"toRoom":   p.ToRoom,
		"approved": string(p.Approved),
		"active":   p.Active,
	}
	if p.Duration != nil {
		fields["duration"] = *p.Duration
	}
	if p.SchoolID != "" {
		fields["schoolId"] = p.SchoolID
	}

	update := bson.M{
		"$setOnInsert": fields,
		"$currentDate": bson.M{"created_at": bson.M{"$type": "date"}},
	}
	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, update, options.Update().SetUpsert(true)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert pass: duplicate id %s: %w", oid.Hex(), err)
		}
		return fmt.Errorf("insert pass: %w", err)
	}

	var stamped struct {
		CreatedAt time.Time `bson:"created_at"`
	}
	projection := options.FindOne().SetProjection(bson.M{"created_at": 1})
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}, projection).Decode(&stamped); err != nil {
		return fmt.Errorf("read back pass: %w", err)
	}

	p.ID = oid.Hex()
	p.CreatedAt = stamped.CreatedAt.UTC()
	return nil
}

// Deactivate ends a pass with a single-field update.
func (r *PassRepository) Deactivate(ctx context.Context, id, author string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrPassNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "author": author},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return fmt.Errorf("deactivate pass: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPassNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes the pass queries rely on. The partial
// unique index keeps an author to a single active pass at the storage
// boundary.
func (r *PassRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			Keys: bson.D{{Key: "author", Value: 1}},
			Options: options.Index().
				SetName("one_active_pass_per_author").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
