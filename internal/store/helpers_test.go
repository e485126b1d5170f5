package store

import (
	"strings"
	"testing"
)

func TestQueryBuilderEmpty(t *testing.T) {
	sql, params := NewQueryBuilder().Build("SELECT * FROM messages", "created_at DESC", 10)
	if strings.Contains(sql, "WHERE") {
		t.Fatalf("empty builder produced WHERE: %s", sql)
	}
	if !strings.Contains(sql, "ORDER BY created_at DESC") {
		t.Fatalf("missing order by: %s", sql)
	}
	if !strings.HasSuffix(sql, "LIMIT $1") {
		t.Fatalf("missing limit: %s", sql)
	}
	if len(params) != 1 || params[0] != 10 {
		t.Fatalf("params = %v, want [10]", params)
	}
}

func TestQueryBuilderEqSkipsEmpty(t *testing.T) {
	sql, params := NewQueryBuilder().
		Eq("thread_id", "t-1").
		Eq("role", "").
		Build("SELECT * FROM messages", "", 50)
	if !strings.Contains(sql, "thread_id = $1") {
		t.Fatalf("missing eq clause: %s", sql)
	}
	if strings.Contains(sql, "role") {
		t.Fatalf("empty value produced clause: %s", sql)
	}
	if len(params) != 2 {
		t.Fatalf("len(params) = %d, want 2", len(params))
	}
}

func TestQueryBuilderKeywordLike(t *testing.T) {
	sql, params := NewQueryBuilder().
		KeywordLike("Plan_B", "content", "position_statement").
		Build("SELECT * FROM messages", "", 20)
	if !strings.Contains(sql, "LOWER(content) LIKE $1") || !strings.Contains(sql, "LOWER(position_statement) LIKE $2") {
		t.Fatalf("keyword clauses missing: %s", sql)
	}
	// 通配符转义 + 小写化。
	if params[0] != `%plan\_b%` {
		t.Fatalf("params[0] = %q, want escaped lowercase pattern", params[0])
	}
}

func TestQueryBuilderLimitClamped(t *testing.T) {
	_, params := NewQueryBuilder().Build("SELECT 1", "", 999999)
	if params[0] != 2000 {
		t.Fatalf("limit = %v, want clamped 2000", params[0])
	}
	_, params = NewQueryBuilder().Build("SELECT 1", "", -5)
	if params[0] != 1 {
		t.Fatalf("limit = %v, want clamped 1", params[0])
	}
}
