package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guy0090/lostarklogs/model"
	"github.com/guy0090/lostarklogs/plan"
)

type MongoStore struct {
	logs  *mongo.Collection
	users *mongo.Collection
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		logs:  db.Collection("logs"),
		users: db.Collection("users"),
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	// Logs indexes
	_, err := s.logs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "entities.npcId", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return err
	}

	// Users indexes
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "apiKey", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})

	return err
}

// Logs

func (s *MongoStore) InsertLog(ctx context.Context, log model.Log) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.logs.InsertOne(ctx, log)
	return err
}

func (s *MongoStore) GetLog(ctx context.Context, id string) (model.Log, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var log model.Log
	err := s.logs.FindOne(ctx, bson.M{"_id": id}).Decode(&log)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Log{}, ErrNotFound
		}
		return model.Log{}, err
	}
	return log, nil
}

func (s *MongoStore) GetLogs(ctx context.Context, ids []string) ([]model.Log, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := s.logs.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var logs []model.Log
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (s *MongoStore) DeleteLog(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.logs.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) DeleteLogsByCreator(ctx context.Context, creator string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.logs.DeleteMany(ctx, bson.M{"creator": creator})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Queries

func (s *MongoStore) AggregateLogs(ctx context.Context, p *plan.Plan) ([]model.LogGroup, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cur, err := s.logs.Aggregate(ctx, p.Pipeline())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	// Each grouped row is {_id: {id, createdAt, dps}}.
	var rows []struct {
		Key model.LogGroup `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	groups := make([]model.LogGroup, len(rows))
	for i, row := range rows {
		groups[i] = row.Key
	}
	return groups, nil
}

func (s *MongoStore) DistinctEntities(ctx context.Context, types []model.EntityType) ([]model.EntityPair, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipeline := []bson.D{
		{{Key: "$unwind", Value: "$entities"}},
	}
	if len(types) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
			{Key: "entities.type", Value: bson.D{{Key: "$in", Value: types}}},
		}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{
				{Key: "npcId", Value: "$entities.npcId"},
				{Key: "type", Value: "$entities.type"},
			}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "_id.type", Value: 1},
			{Key: "_id.npcId", Value: 1},
		}}},
	)

	cur, err := s.logs.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Key model.EntityPair `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	pairs := make([]model.EntityPair, len(rows))
	for i, row := range rows {
		pairs[i] = row.Key
	}
	return pairs, nil
}

// Users

func (s *MongoStore) FindUserByAPIKey(ctx context.Context, key string) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var user model.User
	err := s.users.FindOne(ctx, bson.M{"apiKey": key}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) Close() error {
	// MongoDB client is shared, no need to close here
	return nil
}
