package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"eagle-ledger/internal/core/domain"
	"eagle-ledger/internal/core/ports"
	"eagle-ledger/pkg/apperror"
	"eagle-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"
	maxIdempotencyKeyLen     = 255
)

// captureWriter tees the response body so it can be stored for replay.
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through. Responses with a 5xx status are
// not stored, so the client may retry them under the same key. A key reused
// with a different body is rejected with IDEM_002. Must run after JWTAuth:
// keys are scoped to the caller and the request path.
func Idempotency(cache ports.IdempotencyCache, ttl time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if clientKey == "" {
			c.Next()
			return
		}
		if len(clientKey) > maxIdempotencyKeyLen {
			response.Error(c, apperror.Validation("Idempotency-Key is too long"))
			c.Abort()
			return
		}
		caller, ok := Identity(c)
		if !ok {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		body, err := readBody(c)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				response.Error(c, apperror.ErrPayloadTooLarge())
			} else {
				response.Error(c, apperror.Validation("unreadable request body"))
			}
			c.Abort()
			return
		}
		fingerprint := domain.RequestFingerprint(body)

		ctx := c.Request.Context()
		key := domain.BuildIdempotencyKey(caller.UserID, c.Request.Method+" "+c.Request.URL.Path, clientKey)

		if replay(c, cache, key, fingerprint, log) {
			return
		}

		reserved, err := cache.Reserve(ctx, key, ttl)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("idempotency reserve failed, processing without replay protection")
			c.Next()
			return
		}
		if !reserved {
			// Completed between our lookup and reservation, or still running.
			if replay(c, cache, key, fingerprint, log) {
				return
			}
			response.Error(c, apperror.ErrRequestInProgress())
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status >= http.StatusInternalServerError {
			if err := cache.Release(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to release idempotency key")
			}
			return
		}

		stored := &domain.StoredResponse{
			StatusCode:  status,
			Body:        cw.body.Bytes(),
			RequestHash: fingerprint,
			CreatedAt:   time.Now().UTC(),
		}
		if err := cache.Save(ctx, key, stored, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to store idempotent response")
		}
	}
}

// readBody drains the request body and puts it back for the handler.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func replay(c *gin.Context, cache ports.IdempotencyCache, key, fingerprint string, log zerolog.Logger) bool {
	stored, err := cache.Get(c.Request.Context(), key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
		return false
	}
	if stored == nil {
		return false
	}
	if !stored.Matches(fingerprint) {
		response.Error(c, apperror.ErrIdempotencyKeyReused())
		c.Abort()
		return true
	}
	c.Header(HeaderIdempotentReplayed, "true")
	c.Data(stored.StatusCode, "application/json; charset=utf-8", stored.Body)
	c.Abort()
	return true
}
