package renders

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/reelforge/reelforge/internal/timeline"
)

type Repository interface {
	CreateRender(ctx context.Context, r *Render) error
	GetRender(ctx context.Context, id string) (*Render, error)
	ListRenders(ctx context.Context, limit int) ([]*Render, error)
	ListActiveRenders(ctx context.Context) ([]*Render, error)
	CountRendersByStatus(ctx context.Context) (map[string]int, error)
	SetRenderPrepared(ctx context.Context, id string, p Prepared) error
	TransitionRender(ctx context.Context, id string, t Transition) (bool, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const renderColumns = `id, title, status, source, renderer_id, total_duration, duration_source,
	track_count, clip_count, payload_path, output_url, youtube_video_id, publish_options,
	error, created_at, updated_at`

func (r *SQLiteRepository) CreateRender(ctx context.Context, rd *Render) error {
	publish, err := encodePublish(rd.Publish)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO renders (`+renderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rd.ID, nullString(rd.Title), rd.Status, rd.Source, nullString(rd.RendererID),
		rd.TotalDuration, nullString(rd.DurationSource), rd.TrackCount, rd.ClipCount,
		nullString(rd.PayloadPath), nullString(rd.OutputURL), nullString(rd.YouTubeVideoID),
		publish, nullString(rd.Error),
		rd.CreatedAt.UTC().Format(time.RFC3339), rd.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRender(ctx context.Context, id string) (*Render, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+renderColumns+` FROM renders WHERE id = ?`, id)
	rd, err := scanRender(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rd, err
}

func (r *SQLiteRepository) ListRenders(ctx context.Context, limit int) ([]*Render, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+renderColumns+` FROM renders ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRenders(rows)
}

func (r *SQLiteRepository) ListActiveRenders(ctx context.Context) ([]*Render, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+renderColumns+` FROM renders
		WHERE status IN (?, ?) AND renderer_id IS NOT NULL
		ORDER BY created_at ASC
	`, StatusSubmitted, StatusRendering)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRenders(rows)
}

func (r *SQLiteRepository) CountRendersByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM renders GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *SQLiteRepository) SetRenderPrepared(ctx context.Context, id string, p Prepared) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE renders SET total_duration = ?, duration_source = ?, track_count = ?, clip_count = ?,
			payload_path = ?, updated_at = ?
		WHERE id = ?
	`, p.TotalDuration, nullString(p.DurationSource), p.TrackCount, p.ClipCount,
		nullString(p.PayloadPath), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

// TransitionRender applies t atomically and reports whether the render was in
// one of the From states. Concurrent callers racing on the same transition
// see exactly one true.
func (r *SQLiteRepository) TransitionRender(ctx context.Context, id string, t Transition) (bool, error) {
	query := `
		UPDATE renders SET status = ?, error = ?,
			renderer_id = COALESCE(?, renderer_id),
			output_url = COALESCE(?, output_url),
			youtube_video_id = COALESCE(?, youtube_video_id),
			updated_at = ?
		WHERE id = ?`
	args := []interface{}{
		t.To, nullString(t.Error),
		nullString(t.RendererID), nullString(t.OutputURL), nullString(t.YouTubeVideoID),
		time.Now().UTC().Format(time.RFC3339), id,
	}
	if len(t.From) > 0 {
		query += " AND status IN (?" + strings.Repeat(", ?", len(t.From)-1) + ")"
		for _, s := range t.From {
			args = append(args, s)
		}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRender(s scanner) (*Render, error) {
	var rd Render
	var title, rendererID, durationSource, payloadPath, outputURL, videoID, publish, errMsg sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&rd.ID, &title, &rd.Status, &rd.Source, &rendererID, &rd.TotalDuration, &durationSource,
		&rd.TrackCount, &rd.ClipCount, &payloadPath, &outputURL, &videoID, &publish,
		&errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rd.Title = title.String
	rd.RendererID = rendererID.String
	rd.DurationSource = durationSource.String
	rd.PayloadPath = payloadPath.String
	rd.OutputURL = outputURL.String
	rd.YouTubeVideoID = videoID.String
	rd.Error = errMsg.String
	if publish.Valid && publish.String != "" {
		var opts timeline.PublishOptions
		if err := json.Unmarshal([]byte(publish.String), &opts); err == nil {
			rd.Publish = &opts
		}
	}
	rd.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rd.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &rd, nil
}

func scanRenders(rows *sql.Rows) ([]*Render, error) {
	var out []*Render
	for rows.Next() {
		rd, err := scanRender(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

func encodePublish(p *timeline.PublishOptions) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
