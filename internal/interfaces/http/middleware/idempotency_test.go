package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotency(t *testing.T) {
	newRouter := func(store shared.IdempotencyStore, status *int, calls *int) *gin.Engine {
		r := gin.New()
		r.Use(RequestID())
		r.POST("/orders", Idempotency(store, time.Minute, zap.NewNop()), func(c *gin.Context) {
			*calls++
			c.Status(*status)
		})
		return r
	}

	send := func(r *gin.Engine, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("repeat key is rejected", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusCreated, 0
		r := newRouter(store, &status, &calls)

		assert.Equal(t, http.StatusCreated, send(r, "k1").Code)
		w := send(r, "k1")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_DUPLICATE_REQUEST")
		assert.Equal(t, 1, calls)

		assert.Equal(t, http.StatusCreated, send(r, "k2").Code)
		assert.Equal(t, 2, calls)
	})

	t.Run("requests without a key pass through", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusCreated, 0
		r := newRouter(store, &status, &calls)

		send(r, "")
		send(r, "")
		assert.Equal(t, 2, calls)
	})

	t.Run("failed request releases its key", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusUnprocessableEntity, 0
		r := newRouter(store, &status, &calls)

		assert.Equal(t, http.StatusUnprocessableEntity, send(r, "retry").Code)
		status = http.StatusCreated
		assert.Equal(t, http.StatusCreated, send(r, "retry").Code)
		assert.Equal(t, 2, calls)
		assert.Equal(t, http.StatusConflict, send(r, "retry").Code)
	})

	t.Run("store failure fails open", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		store.On("MarkProcessed", mock.Anything, "POST:/orders:k", time.Minute).
			Return(false, errors.New("redis down"))
		status, calls := http.StatusCreated, 0
		r := newRouter(store, &status, &calls)

		assert.Equal(t, http.StatusCreated, send(r, "k").Code)
		assert.Equal(t, 1, calls)
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("oversized key is rejected", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		status, calls := http.StatusCreated, 0
		r := newRouter(store, &status, &calls)

		w := send(r, strings.Repeat("k", maxIdempotencyKeyLength+1))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, calls)
		store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})
}
