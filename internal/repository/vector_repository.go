package repository

import (
	"context"
	"errors"
	"fmt"

	"ecommerce-chatbot/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

var ErrCollectionNotFound = errors.New("collection not found")

// rows per INSERT statement when loading a collection
const insertBatchSize = 500

var vectorSchema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS vector_collections (
		name       TEXT PRIMARY KEY,
		dimension  INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS vector_documents (
		collection TEXT NOT NULL REFERENCES vector_collections (name) ON DELETE CASCADE,
		id         TEXT NOT NULL,
		document   TEXT NOT NULL,
		metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
		embedding  vector NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
}

type VectorRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewVectorRepository(db *pgxpool.Pool, logger *zap.Logger) *VectorRepository {
	return &VectorRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the pgvector extension and collection tables when missing.
func (r *VectorRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range vectorSchema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply vector schema: %w", err)
		}
	}
	return nil
}

// GetCollection returns the stored collection or ErrCollectionNotFound.
func (r *VectorRepository) GetCollection(ctx context.Context, name string) (*models.Collection, error) {
	query := squirrel.Select("name", "dimension", "created_at").
		From("vector_collections").
		Where(squirrel.Eq{"name": name}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var c models.Collection
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.Name, &c.Dimension, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &c, nil
}

// CreateCollection creates the collection and stores its documents in one transaction.
// Concurrent creators serialize on an advisory lock keyed by the collection name; the
// loser sees the existing row and gets created == false with nothing written.
func (r *VectorRepository) CreateCollection(ctx context.Context, collection models.Collection, docs []models.VectorDocument) (created bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if !created {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", collection.Name); err != nil {
		return false, fmt.Errorf("failed to lock collection: %w", err)
	}

	insertCollection := squirrel.Insert("vector_collections").
		Columns("name", "dimension").
		Values(collection.Name, collection.Dimension).
		Suffix("ON CONFLICT (name) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := insertCollection.ToSql()
	if err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("failed to create collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Info("Collection already exists, skipping create", zap.String("collection", collection.Name))
		return false, nil
	}

	for start := 0; start < len(docs); start += insertBatchSize {
		end := min(start+insertBatchSize, len(docs))

		insertDocs := squirrel.Insert("vector_documents").
			Columns("collection", "id", "document", "metadata", "embedding").
			PlaceholderFormat(squirrel.Dollar)
		for _, doc := range docs[start:end] {
			metadata := doc.Metadata
			if metadata == nil {
				metadata = map[string]any{}
			}
			insertDocs = insertDocs.Values(collection.Name, doc.ID, doc.Document, metadata, pgvector.NewVector(doc.Embedding))
		}

		sql, args, err := insertDocs.ToSql()
		if err != nil {
			return false, err
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return false, fmt.Errorf("failed to insert documents %d-%d: %w", start, end, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit collection: %w", err)
	}
	created = true

	r.logger.Info("Collection created",
		zap.String("collection", collection.Name),
		zap.Int("documents", len(docs)),
		zap.Int("dimension", collection.Dimension),
	)

	return true, nil
}

// DeleteCollection removes the collection and, through the foreign key, its documents.
func (r *VectorRepository) DeleteCollection(ctx context.Context, name string) error {
	query := squirrel.Delete("vector_collections").
		Where(squirrel.Eq{"name": name}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// Query returns the k documents nearest to embedding by cosine distance.
func (r *VectorRepository) Query(ctx context.Context, collection string, embedding []float32, k int) ([]models.VectorMatch, error) {
	if _, err := r.GetCollection(ctx, collection); err != nil {
		return nil, err
	}

	query := squirrel.Select("id", "document", "metadata").
		Column(squirrel.Expr("embedding <=> ? AS distance", pgvector.NewVector(embedding))).
		From("vector_documents").
		Where(squirrel.Eq{"collection": collection}).
		OrderBy("distance ASC").
		Limit(uint64(k)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	defer rows.Close()

	var results []models.VectorMatch
	for rows.Next() {
		var m models.VectorMatch
		if err := rows.Scan(&m.ID, &m.Document, &m.Metadata, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	return results, nil
}
