package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionRooms = "rooms"

type RoomRepository struct {
	col *mongo.Collection
}

func NewRoomRepository(db *mongo.Database) *RoomRepository {
	return &RoomRepository{col: db.Collection(collectionRooms)}
}

// ListNames fetches the name of every room. Documents without a string name
// are ignored.
func (r *RoomRepository) ListNames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"name": 1, "_id": 0})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find rooms: %w", err)
	}
	defer cur.Close(ctx)

	names := make([]string, 0)
	for cur.Next(ctx) {
		if name, ok := roomName(cur.Current); ok {
			names = append(names, name)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return names, nil
}

func roomName(raw bson.Raw) (string, bool) {
	v, err := raw.LookupErr("name")
	if err != nil {
		return "", false
	}
	return v.StringValueOK()
}
