package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/npezzotti/go-curio/internal/database"
	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// ObservedLogger returns a logger whose entries can be inspected by the test.
func ObservedLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// SQLiteRepository opens a migrated repository in a temporary directory.
func SQLiteRepository(t *testing.T) *database.SqlCurioRepository {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "curio.db")
	if err := database.Migrate(database.SQLite, dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo, err := database.NewCurioRepository(database.SQLite, dsn)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

// TestSession creates an account in repo and returns a session for it.
func TestSession(t *testing.T, repo database.CurioRepository, id, email string) types.Session {
	t.Helper()

	acc, err := repo.CreateAccount(context.Background(), database.CreateAccountParams{
		Id:           id,
		EmailAddress: email,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	return types.Session{UserId: acc.Id, EmailAddress: acc.EmailAddress}
}
