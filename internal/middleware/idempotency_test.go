package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newTestRouter(t *testing.T) (*gin.Engine, *miniredis.Miniredis, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	calls := 0
	r := gin.New()
	r.POST("/pay", Idempotency(rdb, time.Hour), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/status", Idempotency(rdb, time.Hour), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r, mr, &calls
}

func doPost(r *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/pay", bytes.NewBufferString(body))
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMissingKey(t *testing.T) {
	r, _, calls := newTestRouter(t)

	w := doPost(r, "", `{"project_id":1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
	if *calls != 0 {
		t.Error("handler must not run without idempotency key")
	}
}

func TestIdempotencyReplay(t *testing.T) {
	r, _, calls := newTestRouter(t)

	first := doPost(r, "key-1", `{"project_id":1}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first code = %d", first.Code)
	}
	second := doPost(r, "key-1", `{"project_id":1}`)
	if second.Code != http.StatusOK {
		t.Fatalf("replay code = %d", second.Code)
	}

	if *calls != 1 {
		t.Errorf("handler ran %d times, want 1", *calls)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("replay body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
}

func TestIdempotencyKeyReuseDifferentBody(t *testing.T) {
	r, _, _ := newTestRouter(t)

	doPost(r, "key-1", `{"project_id":1}`)
	w := doPost(r, "key-1", `{"project_id":2}`)
	if w.Code != http.StatusConflict {
		t.Errorf("code = %d, want 409", w.Code)
	}
	if !strings.Contains(w.Body.String(), "different body") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestIdempotencyInProgress(t *testing.T) {
	r, mr, calls := newTestRouter(t)

	// 手工写入处理中的占位锁
	first := doPost(r, "key-1", `{"project_id":1}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first code = %d", first.Code)
	}
	entry, err := mr.Get("idemp:POST:/pay:key-1")
	if err != nil {
		t.Fatalf("entry not stored: %v", err)
	}
	inProgress := strings.Replace(entry, `"in_progress":false`, `"in_progress":true`, 1)
	mr.Set("idemp:POST:/pay:key-1", inProgress)

	w := doPost(r, "key-1", `{"project_id":1}`)
	if w.Code != http.StatusConflict {
		t.Errorf("code = %d, want 409 while in progress", w.Code)
	}
	if *calls != 1 {
		t.Errorf("handler ran %d times, want 1", *calls)
	}
}

func TestIdempotencyDifferentKeys(t *testing.T) {
	r, _, calls := newTestRouter(t)

	doPost(r, "key-1", `{"project_id":1}`)
	doPost(r, "key-2", `{"project_id":1}`)
	if *calls != 2 {
		t.Errorf("handler ran %d times, want 2 for distinct keys", *calls)
	}
}

func TestIdempotencySkipsReads(t *testing.T) {
	r, _, calls := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", w.Code)
	}
	if *calls != 1 {
		t.Error("GET must pass through without idempotency key")
	}
}

func TestIdempotencyExpiry(t *testing.T) {
	r, mr, calls := newTestRouter(t)

	doPost(r, "key-1", `{"project_id":1}`)
	mr.FastForward(2 * time.Hour)

	w := doPost(r, "key-1", `{"project_id":1}`)
	if w.Code != http.StatusOK {
		t.Errorf("code = %d, want 200 after expiry", w.Code)
	}
	if *calls != 2 {
		t.Errorf("handler ran %d times, want 2 after expiry", *calls)
	}
}
