package common

import (
	"testing"

	"github.com/lgulliver/simpledrive/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestNewCache_Unreachable(t *testing.T) {
	cache, err := NewCache(&config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
	assert.Nil(t, cache)
}
