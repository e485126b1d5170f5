// message.go — messages 表 CRUD (持久化消息)。
//
// 流式会话收敛后的持久消息。position_statement 随回载产出
// 立场更新建议, 不走实时流。
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRecord 持久化消息记录。
type MessageRecord struct {
	ID                string    `db:"id" json:"id"`
	ThreadID          string    `db:"thread_id" json:"threadId"`
	Role              string    `db:"role" json:"role"` // user | assistant
	Content           string    `db:"content" json:"content"`
	PositionStatement string    `db:"position_statement" json:"positionStatement,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}

// MessageStore messages 存储。
type MessageStore struct{ BaseStore }

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{NewBaseStore(pool)}
}

const msgCols = "id, thread_id, role, content, position_statement, created_at"

// Upsert 写入消息; 持久 id 已存在时更新内容 (done 重放安全)。
func (s *MessageStore) Upsert(ctx context.Context, m *MessageRecord) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, thread_id, role, content, position_statement, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content,
		     position_statement = EXCLUDED.position_statement`,
		m.ID, m.ThreadID, m.Role, m.Content, m.PositionStatement, m.CreatedAt)
	return err
}

// ListByThread 按线程加载历史 (时间升序, 供回载时间线)。
func (s *MessageStore) ListByThread(ctx context.Context, threadID string, limit int) ([]MessageRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+msgCols+" FROM messages WHERE thread_id=$1 ORDER BY created_at ASC, id ASC LIMIT $2",
		threadID, limit)
	if err != nil {
		return nil, err
	}
	return collectRows[MessageRecord](rows)
}

// Search 跨线程关键词搜索 (面板用)。
func (s *MessageStore) Search(ctx context.Context, threadID, keyword string, limit int) ([]MessageRecord, error) {
	qb := NewQueryBuilder().
		Eq("thread_id", threadID).
		KeywordLike(keyword, "content", "position_statement")
	sql, params := qb.Build("SELECT "+msgCols+" FROM messages", "created_at DESC", limit)

	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	return collectRows[MessageRecord](rows)
}

// Get 按持久 id 取单条, 不存在返回 nil。
func (s *MessageStore) Get(ctx context.Context, id string) (*MessageRecord, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+msgCols+" FROM messages WHERE id=$1", id)
	if err != nil {
		return nil, err
	}
	return collectOne[MessageRecord](rows)
}

// CountByThread 统计线程消息数。
func (s *MessageStore) CountByThread(ctx context.Context, threadID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM messages WHERE thread_id=$1", threadID).Scan(&count)
	return count, err
}

// ThreadIDs 返回有消息的线程 id 列表 (面板筛选器)。
func (s *MessageStore) ThreadIDs(ctx context.Context) ([]string, error) {
	return DistinctValues(ctx, s.pool, "messages", "thread_id")
}
