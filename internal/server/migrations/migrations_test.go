package migrations

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upSection(t *testing.T, name string) string {
	t.Helper()
	b, err := fs.ReadFile(Migrations, name)
	require.NoError(t, err)

	sql := string(b)
	up := strings.Index(sql, "-- +goose Up")
	down := strings.Index(sql, "-- +goose Down")
	require.True(t, up >= 0 && down > up, "goose Up/Down markers missing in %s", name)
	return sql[up:down]
}

func TestInit_PostsCascadeWithAuthor(t *testing.T) {
	up := upSection(t, "00001_init.sql")

	fk := regexp.MustCompile(`(?i)author_id\s+BIGINT\s+NOT\s+NULL\s+REFERENCES\s+users\s*\(id\)\s+ON\s+DELETE\s+CASCADE`)
	assert.Regexp(t, fk, up)
}

func TestInit_UniqueConstraints(t *testing.T) {
	up := upSection(t, "00001_init.sql")

	assert.Regexp(t, regexp.MustCompile(`(?i)CONSTRAINT\s+users_email_key\s+UNIQUE\s*\(email\)`), up)
	assert.Regexp(t, regexp.MustCompile(`(?i)CONSTRAINT\s+posts_slug_key\s+UNIQUE\s*\(slug\)`), up)
}
