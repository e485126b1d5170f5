package util

import (
	"sync"
	"testing"
	"time"
)

func TestClampInt(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{5, 1, 10, 5},
		{0, 1, 10, 1},
		{99, 1, 10, 10},
	}
	for _, tc := range cases {
		if got := ClampInt(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Fatalf("ClampInt(%d, %d, %d) = %d, want %d", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("RS_TEST_INT", "42")
	if got := EnvInt("RS_TEST_INT", 7, 0); got != 42 {
		t.Fatalf("EnvInt = %d, want 42", got)
	}
	t.Setenv("RS_TEST_INT", "not-a-number")
	if got := EnvInt("RS_TEST_INT", 7, 0); got != 7 {
		t.Fatalf("EnvInt invalid = %d, want default 7", got)
	}
	t.Setenv("RS_TEST_INT", "-5")
	if got := EnvInt("RS_TEST_INT", 7, 1); got != 1 {
		t.Fatalf("EnvInt below min = %d, want 1", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("RS_TEST_BOOL", "yes")
	if !EnvBool("RS_TEST_BOOL", false) {
		t.Fatal("EnvBool(yes) should be true")
	}
	t.Setenv("RS_TEST_BOOL", "off")
	if EnvBool("RS_TEST_BOOL", true) {
		t.Fatal("EnvBool(off) should be false")
	}
	t.Setenv("RS_TEST_BOOL", "maybe")
	if !EnvBool("RS_TEST_BOOL", true) {
		t.Fatal("EnvBool(invalid) should fall back to default")
	}
}

func TestEscapeLike(t *testing.T) {
	if got := EscapeLike(`50%_a\b`); got != `50\%\_a\\b` {
		t.Fatalf("EscapeLike = %q", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	type cfg struct {
		Name    string  `env:"RS_TEST_NAME" default:"fallback"`
		Count   int     `env:"RS_TEST_COUNT" default:"3" min:"1"`
		Ratio   float64 `env:"RS_TEST_RATIO" default:"0.5" min:"0"`
		Enabled bool    `env:"RS_TEST_ENABLED" default:"true"`
		skipped string
	}
	t.Setenv("RS_TEST_NAME", "from-env")
	t.Setenv("RS_TEST_COUNT", "0")

	var c cfg
	LoadFromEnv(&c)
	if c.Name != "from-env" {
		t.Fatalf("Name = %q, want from-env", c.Name)
	}
	if c.Count != 1 {
		t.Fatalf("Count = %d, want clamped 1", c.Count)
	}
	if c.Ratio != 0.5 {
		t.Fatalf("Ratio = %v, want default 0.5", c.Ratio)
	}
	if !c.Enabled {
		t.Fatal("Enabled should default to true")
	}
	_ = c.skipped
}

func TestLoadFromEnv_NilSafe(t *testing.T) {
	LoadFromEnv(nil)
	var p *struct{}
	LoadFromEnv(p)
}

func TestSafeGo_RecoverPanic(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	SafeGo(func() {
		defer wg.Done()
		panic("should be recovered")
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SafeGo goroutine did not finish")
	}
}
