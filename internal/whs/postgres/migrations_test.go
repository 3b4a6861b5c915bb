package postgres_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worksafe/worksafe-backend/internal/whs/postgres"
	"github.com/worksafe/worksafe-backend/pkg/migrate"
)

func TestMigrations_Valid(t *testing.T) {
	ms := postgres.Migrations()

	require.NoError(t, migrate.Validate(ms))
	assert.Len(t, ms, 6)
}

func TestMigrations_Shape(t *testing.T) {
	for _, m := range postgres.Migrations() {
		assert.NotEmpty(t, m.Name, "migration %d has no name", m.Version)
		assert.NotEmpty(t, strings.TrimSpace(m.Up), "migration %d has no SQL", m.Version)
	}
}
