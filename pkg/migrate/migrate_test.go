package migrate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/worksafe/worksafe-backend/pkg/migrate"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		migrations []migrate.Migration
		wantErr    string
	}{
		{
			name: "contiguous set passes",
			migrations: []migrate.Migration{
				{Version: 1, Name: "core", Up: "CREATE TABLE a (id INT)"},
				{Version: 2, Name: "more", Up: "CREATE TABLE b (id INT)"},
			},
		},
		{
			name: "order does not matter",
			migrations: []migrate.Migration{
				{Version: 2, Name: "more", Up: "CREATE TABLE b (id INT)"},
				{Version: 1, Name: "core", Up: "CREATE TABLE a (id INT)"},
			},
		},
		{
			name:       "empty set passes",
			migrations: nil,
		},
		{
			name: "duplicate version rejected",
			migrations: []migrate.Migration{
				{Version: 1, Name: "core", Up: "CREATE TABLE a (id INT)"},
				{Version: 1, Name: "again", Up: "CREATE TABLE b (id INT)"},
			},
			wantErr: "duplicate migration version 1",
		},
		{
			name: "gap rejected",
			migrations: []migrate.Migration{
				{Version: 1, Name: "core", Up: "CREATE TABLE a (id INT)"},
				{Version: 3, Name: "later", Up: "CREATE TABLE c (id INT)"},
			},
			wantErr: "gap",
		},
		{
			name: "zero version rejected",
			migrations: []migrate.Migration{
				{Version: 0, Name: "bad", Up: "CREATE TABLE a (id INT)"},
			},
			wantErr: "non-positive version",
		},
		{
			name: "missing SQL rejected",
			migrations: []migrate.Migration{
				{Version: 1, Name: "empty"},
			},
			wantErr: "has no SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := migrate.Validate(tt.migrations)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
