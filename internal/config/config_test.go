package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresCoreFields(t *testing.T) {
	t.Setenv("INTUITION_CONTRACT_ADDRESS", "")
	t.Setenv("RAW_CONSUMER_QUEUE_URL", "")
	t.Setenv("PG_HOST", "")
	t.Setenv("PG_DB", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadPopulatesFromEnv(t *testing.T) {
	t.Setenv("INTUITION_CONTRACT_ADDRESS", "0xabc")
	t.Setenv("RAW_CONSUMER_QUEUE_URL", "raw-queue")
	t.Setenv("PG_HOST", "localhost")
	t.Setenv("PG_DB", "indexer")
	t.Setenv("PG_USER", "postgres")
	t.Setenv("PG_PORT", "5432")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0xabc", cfg.IntuitionContractAddress)
	assert.Equal(t, "postgres://postgres:@localhost:5432/indexer", cfg.Postgres.ConnString())
	assert.Equal(t, "sqs", cfg.ConsumerType)
}
