package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/stockpulse/internal/types"
)

// mongoSchemaVersion is reported by Migrate once the indexes exist.
const mongoSchemaVersion = 2

type commentDoc struct {
	Stock        string    `bson:"stock"`
	CommentTime  time.Time `bson:"comment_time"`
	Comments     string    `bson:"comments"`
	SentimentTag *string   `bson:"sentiment_tag"`
	Influence    int       `bson:"influence"`
	Sentiment    string    `bson:"sentiment,omitempty"`
	Score        float64   `bson:"score,omitempty"`
}

func toDoc(c types.Comment) commentDoc {
	return commentDoc{
		Stock:        c.Stock,
		CommentTime:  c.CommentTime.UTC(),
		Comments:     c.Comments,
		SentimentTag: c.SentimentTag,
		Influence:    c.Influence,
	}
}

func (d commentDoc) comment() types.Comment {
	return types.Comment{
		Stock:        d.Stock,
		CommentTime:  d.CommentTime.UTC(),
		Comments:     d.Comments,
		SentimentTag: d.SentimentTag,
		Influence:    d.Influence,
	}
}

// MongoRepository writes comments to MongoDB collections named after the SQL tables.
type MongoRepository struct {
	client     *mongo.Client
	comments   *mongo.Collection
	sentiments *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoRepository connects to uri and selects database.
func NewMongoRepository(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoRepository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	db := client.Database(database)
	return &MongoRepository{
		client:     client,
		comments:   db.Collection("comments"),
		sentiments: db.Collection("comment_sentiments"),
		logger:     logger.With("component", "mongo_repository"),
	}, nil
}

func (r *MongoRepository) Name() string { return "mongodb" }

// Migrate creates the (stock, comment_time) indexes. Collections are created
// implicitly on first insert.
func (r *MongoRepository) Migrate(ctx context.Context) (uint, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "stock", Value: 1}, {Key: "comment_time", Value: 1}}}
	for _, coll := range []*mongo.Collection{r.comments, r.sentiments} {
		if _, err := coll.Indexes().CreateOne(ctx, idx); err != nil {
			return 0, fmt.Errorf("mongodb index %s: %w", coll.Name(), err)
		}
	}
	return mongoSchemaVersion, nil
}

func (r *MongoRepository) AppendComments(ctx context.Context, comments []types.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	docs := make([]any, len(comments))
	for i, c := range comments {
		docs[i] = toDoc(c)
	}

	insertCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.comments.InsertMany(insertCtx, docs); err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}

	r.mu.Lock()
	r.count += len(comments)
	total := r.count
	r.mu.Unlock()
	r.logger.Debug("comments stored in mongodb", "count", len(comments), "total", total)
	return nil
}

func (r *MongoRepository) AppendSentiments(ctx context.Context, scored []types.ScoredComment) error {
	if len(scored) == 0 {
		return nil
	}
	docs := make([]any, len(scored))
	for i, s := range scored {
		d := toDoc(s.Comment)
		d.Sentiment = s.Sentiment
		d.Score = s.Score
		docs[i] = d
	}

	insertCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := r.sentiments.InsertMany(insertCtx, docs); err != nil {
		return fmt.Errorf("mongodb insert sentiments: %w", err)
	}
	return nil
}

func (r *MongoRepository) Comments(ctx context.Context) ([]types.Comment, error) {
	docs, err := r.findAll(ctx, r.comments)
	if err != nil {
		return nil, err
	}
	out := make([]types.Comment, len(docs))
	for i, d := range docs {
		out[i] = d.comment()
	}
	return out, nil
}

func (r *MongoRepository) Sentiments(ctx context.Context) ([]types.ScoredComment, error) {
	docs, err := r.findAll(ctx, r.sentiments)
	if err != nil {
		return nil, err
	}
	out := make([]types.ScoredComment, len(docs))
	for i, d := range docs {
		out[i] = types.ScoredComment{Comment: d.comment(), Sentiment: d.Sentiment, Score: d.Score}
	}
	return out, nil
}

func (r *MongoRepository) findAll(ctx context.Context, coll *mongo.Collection) ([]commentDoc, error) {
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongodb find %s: %w", coll.Name(), err)
	}
	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb decode %s: %w", coll.Name(), err)
	}
	return docs, nil
}

func (r *MongoRepository) Close() error {
	r.logger.Info("mongodb repository closing", "total_comments", r.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
