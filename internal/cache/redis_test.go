package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Get(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedis(client, "alpha:", time.Minute)
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("alpha:v1/2024/WR/w5/200").SetVal(`{"players":[]}`)

		v, ok, err := c.Get(ctx, "v1/2024/WR/w5/200")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"players":[]}`, string(v))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("alpha:missing").RedisNil()

		v, ok, err := c.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectGet("alpha:broken").SetErr(errors.New("connection refused"))

		_, _, err := c.Get(ctx, "broken")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis get broken")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	s := c.Stats()
	assert.Equal(t, "redis", s.Backend)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
}

func TestRedis_Set(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedis(client, "alpha:", 5*time.Minute)

	value := []byte(`{"as_of_week":5}`)
	mock.ExpectSet("alpha:k", value, 5*time.Minute).SetVal("OK")
	require.NoError(t, c.Set(context.Background(), "k", value))

	mock.ExpectSet("alpha:k", value, 5*time.Minute).SetErr(errors.New("READONLY"))
	assert.Error(t, c.Set(context.Background(), "k", value))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_Invalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedis(client, "alpha:", time.Minute)

	mock.ExpectScan(0, "alpha:v1/2024/*", 100).SetVal([]string{"alpha:v1/2024/WR/w5/200", "alpha:v1/2024/ALL/latest/200"}, 42)
	mock.ExpectDel("alpha:v1/2024/WR/w5/200", "alpha:v1/2024/ALL/latest/200").SetVal(2)
	mock.ExpectScan(42, "alpha:v1/2024/*", 100).SetVal([]string{}, 0)

	require.NoError(t, c.Invalidate(context.Background(), CohortPrefix("v1", 2024)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_InvalidateScanError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedis(client, "alpha:", time.Minute)

	mock.ExpectScan(0, "alpha:v1/2024/*", 100).SetErr(errors.New("timeout"))

	err := c.Invalidate(context.Background(), CohortPrefix("v1", 2024))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis scan")
	assert.NoError(t, mock.ExpectationsWereMet())
}
