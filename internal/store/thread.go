// thread.go — threads 表 CRUD (线程元数据)。
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ThreadRecord 线程元数据。标题随 title_update 帧更新。
type ThreadRecord struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Mode      string    `db:"mode" json:"mode"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ThreadStore threads 存储。
type ThreadStore struct{ BaseStore }

func NewThreadStore(pool *pgxpool.Pool) *ThreadStore {
	return &ThreadStore{NewBaseStore(pool)}
}

const threadCols = "id, title, mode, created_at, updated_at"

// Upsert 建线程; 已存在时只刷新 updated_at。
func (s *ThreadStore) Upsert(ctx context.Context, t *ThreadRecord) error {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	_, err := s.pool.Exec(ctx,
		`INSERT INTO threads (id, title, mode, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
		t.ID, t.Title, t.Mode, t.CreatedAt, t.UpdatedAt)
	return err
}

// SetTitle 更新线程标题。
func (s *ThreadStore) SetTitle(ctx context.Context, threadID, title string) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE threads SET title=$2, updated_at=NOW() WHERE id=$1",
		threadID, title)
	return err
}

// Get 取单线程, 不存在返回 nil。
func (s *ThreadStore) Get(ctx context.Context, id string) (*ThreadRecord, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+threadCols+" FROM threads WHERE id=$1", id)
	if err != nil {
		return nil, err
	}
	return collectOne[ThreadRecord](rows)
}

// List 最近活跃线程列表。
func (s *ThreadStore) List(ctx context.Context, limit int) ([]ThreadRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+threadCols+" FROM threads ORDER BY updated_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	return collectRows[ThreadRecord](rows)
}
