package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/blues/ess/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HeaderIdempotencyKey 资金变动接口要求的幂等键请求头
const HeaderIdempotencyKey = "X-Idempotency-Key"

// 处理中的占位锁的有效期，超过后视为上次处理已死亡，允许重试
const provisionalLockTTL = 60 * time.Second

// idempEntry 幂等记录
type idempEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

// bodyWriter 捕获响应体用于重放
type bodyWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency 资金变动接口的幂等中间件：
// 相同幂等键的重复请求重放首次响应，处理中的并发请求返回409。
func Idempotency(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		reqID := c.GetHeader(HeaderIdempotencyKey)
		if reqID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				gin.H{"error": gin.H{"kind": "validation", "message": "missing " + HeaderIdempotencyKey}})
			return
		}

		// 缓存并哈希请求体
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		digest := sha256.Sum256(body)
		bhash := hex.EncodeToString(digest[:])

		key := "idemp:" + c.Request.Method + ":" + c.FullPath() + ":" + reqID
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ok, err := provisionalSet(ctx, rdb, key, idempEntry{
			InProgress: true,
			BodySHA256: bhash,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": gin.H{"kind": "internal", "message": "idempotency store unavailable"}})
			return
		}
		if !ok {
			cur, errLoad := loadEntry(ctx, rdb, key)
			if errLoad != nil {
				logger.Error("Failed to load idempotency entry %s: %v", key, errLoad)
			}
			if cur.BodySHA256 != "" && cur.BodySHA256 != bhash {
				c.AbortWithStatusJSON(http.StatusConflict,
					gin.H{"error": gin.H{"kind": "validation", "message": "idempotency key reused with different body"}})
				return
			}
			if !cur.InProgress && cur.Code != 0 && len(cur.Body) > 0 {
				// 重放首次响应
				c.Data(cur.Code, "application/json; charset=utf-8", cur.Body)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusConflict,
				gin.H{"error": gin.H{"kind": "precondition", "message": "request is already in progress"}})
			return
		}

		// 执行处理并记录最终响应
		writer := &bodyWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = writer
		c.Next()

		final := idempEntry{
			InProgress: false,
			Code:       writer.Status(),
			Body:       writer.buf.Bytes(),
			BodySHA256: bhash,
			CreatedAt:  time.Now().UTC(),
		}
		if err := saveFinal(context.Background(), rdb, key, final, ttl); err != nil {
			logger.Error("Failed to save idempotency entry %s: %v", key, err)
		}
	}
}

func provisionalSet(ctx context.Context, rdb *redis.Client, key string, entry idempEntry) (bool, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	return rdb.SetNX(ctx, key, data, provisionalLockTTL).Result()
}

func loadEntry(ctx context.Context, rdb *redis.Client, key string) (idempEntry, error) {
	var entry idempEntry
	data, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return entry, err
	}
	err = json.Unmarshal(data, &entry)
	return entry, err
}

func saveFinal(ctx context.Context, rdb *redis.Client, key string, entry idempEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, data, ttl).Err()
}
