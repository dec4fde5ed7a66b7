package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vertexautomation/site-server/internal/database"
	"github.com/vertexautomation/site-server/internal/model"
)

// setupTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// every table. Tests are skipped when no database is configured.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Connect(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	_, err = db.Exec(`TRUNCATE users, user_sessions, user_roles, access_codes, legal_documents,
		user_consents, legal_document_access_logs, services, case_studies, testimonials,
		certifications, client_logos, site_settings, contact_messages CASCADE`)
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, db *database.DB, email string) *model.User {
	t.Helper()
	user, err := NewUserRepository(db.DB).Create(context.Background(), model.CreateUserParams{
		Email:        email,
		PasswordHash: "$2a$10$notarealhash",
	})
	require.NoError(t, err)
	return user
}
