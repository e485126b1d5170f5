// brief.go — briefs 表读写 (收敛轮询的数据源)。
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/multi-agent/reasonspace/internal/brief"
)

// BriefStore briefs 存储。服务端异步重算写入, 客户端轮询读取。
type BriefStore struct{ BaseStore }

func NewBriefStore(pool *pgxpool.Pool) *BriefStore {
	return &BriefStore{NewBaseStore(pool)}
}

// briefRow 行结构, 与 brief.Brief 字段对齐。
type briefRow struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	Status    string    `db:"status"`
	Summary   string    `db:"summary"`
	Version   int       `db:"version"`
	UpdatedAt time.Time `db:"updated_at"`
}

const briefCols = "id, title, status, summary, version, updated_at"

// List 按 id 升序返回全部简报 (顺序稳定, 指纹比较依赖这一点)。
func (s *BriefStore) List(ctx context.Context) ([]brief.Brief, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+briefCols+" FROM briefs ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	items, err := collectRows[briefRow](rows)
	if err != nil {
		return nil, err
	}
	out := make([]brief.Brief, len(items))
	for i, r := range items {
		out[i] = brief.Brief{
			ID:        r.ID,
			Title:     r.Title,
			Status:    r.Status,
			Summary:   r.Summary,
			Version:   r.Version,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return out, nil
}

// Upsert 写入简报, 版本自增语义由调用方负责。
func (s *BriefStore) Upsert(ctx context.Context, b *brief.Brief) error {
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO briefs (id, title, status, summary, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     title = EXCLUDED.title,
		     status = EXCLUDED.status,
		     summary = EXCLUDED.summary,
		     version = EXCLUDED.version,
		     updated_at = EXCLUDED.updated_at`,
		b.ID, b.Title, b.Status, b.Summary, b.Version, b.UpdatedAt)
	return err
}
