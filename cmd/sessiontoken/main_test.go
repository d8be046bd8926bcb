package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/profile-service/internal/config"
)

func TestCheckSharedStore(t *testing.T) {
	assert.Error(t, checkSharedStore(config.StoreConfig{Driver: config.StoreMemory}))
	assert.NoError(t, checkSharedStore(config.StoreConfig{Driver: config.StoreMongo}))
	assert.NoError(t, checkSharedStore(config.StoreConfig{Driver: config.StorePostgres}))
}
