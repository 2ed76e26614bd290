package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "lesson-scheduler:categories:all", Key("categories", "all"))
	assert.Equal(t, "lesson-scheduler:today:2030-03-04:UTC", Key("today", "2030-03-04", "UTC"))
}

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, client)
}
