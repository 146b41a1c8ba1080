package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/moodreel/internal/detect"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// DetectionRepository persists face detection records keyed by content ID.
// It implements detect.Store.
type DetectionRepository struct {
	pool *Pool
}

// NewDetectionRepository creates a PostgreSQL detection repository.
func NewDetectionRepository(pool *Pool) *DetectionRepository {
	return &DetectionRepository{pool: pool}
}

// Lookup returns the stored record for a content ID, or (nil, nil) when the
// content was never processed. A processed image with zero faces returns an
// empty record, not nil.
func (r *DetectionRepository) Lookup(ctx context.Context, contentID string) (*detect.Record, error) {
	var faceCount int
	err := r.pool.QueryRow(
		ctx, "SELECT face_count FROM detections_processed WHERE content_id = $1", contentID,
	).Scan(&faceCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("check detections processed: %w", err)
	}

	record := &detect.Record{ContentID: contentID, Faces: []detect.Face{}}
	if faceCount == 0 {
		return record, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT embedding, bbox, det_score, emotions
		FROM detections
		WHERE content_id = $1
		ORDER BY face_index
	`, contentID)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vec pgvector.Vector
		var bbox pq.Float64Array
		var detScore float64
		var emotionsJSON []byte

		if err := rows.Scan(&vec, &bbox, &detScore, &emotionsJSON); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}

		emotions := make(map[string]float64)
		if err := json.Unmarshal(emotionsJSON, &emotions); err != nil {
			return nil, fmt.Errorf("decode emotions for %.12s: %w", contentID, err)
		}

		record.Faces = append(record.Faces, detect.Face{
			BBox:      []float64(bbox),
			DetScore:  detScore,
			Embedding: vec.Slice(),
			Emotions:  emotions,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detections: %w", err)
	}

	return record, nil
}

// Save stores a record, replacing any previous faces for the same content.
// The faces and the processed marker commit in one transaction.
func (r *DetectionRepository) Save(ctx context.Context, record *detect.Record) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM detections WHERE content_id = $1", record.ContentID); err != nil {
		return fmt.Errorf("delete existing detections: %w", err)
	}

	for i, face := range record.Faces {
		emotionsJSON, err := json.Marshal(face.Emotions)
		if err != nil {
			return fmt.Errorf("encode emotions for face %d: %w", i, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO detections (content_id, face_index, embedding, bbox, det_score, emotions)
			VALUES ($1, $2, $3::vector, $4, $5, $6)
		`,
			record.ContentID,
			i,
			pgvector.NewVector(face.Embedding),
			pq.Array(face.BBox),
			face.DetScore,
			emotionsJSON,
		)
		if err != nil {
			return fmt.Errorf("insert detection %d: %w", i, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO detections_processed (content_id, face_count)
		VALUES ($1, $2)
		ON CONFLICT (content_id) DO UPDATE SET
			face_count = EXCLUDED.face_count,
			created_at = NOW()
	`, record.ContentID, len(record.Faces))
	if err != nil {
		return fmt.Errorf("mark detections processed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Count returns the total number of stored faces.
func (r *DetectionRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM detections").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count detections: %w", err)
	}
	return count, nil
}

// CountProcessed returns the number of images that went through detection.
func (r *DetectionRepository) CountProcessed(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM detections_processed").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count processed: %w", err)
	}
	return count, nil
}

// FindSimilar returns the content IDs of the faces closest to the embedding
// by cosine distance.
func (r *DetectionRepository) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT content_id
		FROM detections
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar detections: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan content ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content IDs: %w", err)
	}
	return ids, nil
}

// Verify interface compliance.
var _ detect.Store = (*DetectionRepository)(nil)
