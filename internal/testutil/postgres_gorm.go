// Package testutil opens isolated PostgreSQL handles for integration tests.
// Every test gets its own schema, created on open and dropped on cleanup, so
// tests can run in parallel against one database.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"orcsync.io/hub/internal/model"
)

var nonIdentChars = regexp.MustCompile(`[^a-z0-9_]+`)

// OpenGorm opens a GORM handle backed by PostgreSQL with an isolated schema
// per test and the full hub schema migrated. Tests are skipped when neither
// TEST_DATABASE_URL nor DATABASE_URL is set.
func OpenGorm(t *testing.T, prefix string) *gorm.DB {
	t.Helper()

	dsn := testDSN(t)
	schema := newSchemaName(prefix)

	adminDB, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres admin connection: %v", err)
	}
	t.Cleanup(func() { _ = adminDB.Close() })

	if err := adminDB.PingContext(context.Background()); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}

	if _, err := adminDB.ExecContext(context.Background(), fmt.Sprintf(`CREATE SCHEMA "%s"`, schema)); err != nil {
		t.Fatalf("create test schema %q: %v", schema, err)
	}
	t.Cleanup(func() {
		_, _ = adminDB.ExecContext(context.Background(), fmt.Sprintf(`DROP SCHEMA IF EXISTS "%s" CASCADE`, schema))
	})

	schemaDSN, err := dsnWithSearchPath(dsn, schema)
	if err != nil {
		t.Fatalf("build postgres DSN with search_path: %v", err)
	}

	testDB, err := sql.Open("pgx", schemaDSN)
	if err != nil {
		t.Fatalf("open postgres test connection: %v", err)
	}
	t.Cleanup(func() { _ = testDB.Close() })

	// Same options as the production handle: translated duplicate-key
	// errors, quiet SQL log.
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: testDB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}
	return db
}

// testDSN returns the PostgreSQL DSN for integration tests, skipping the
// test when none is configured.
func testDSN(t *testing.T) string {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		t.Skip("integration test requires PostgreSQL: set TEST_DATABASE_URL or DATABASE_URL")
	}
	return dsn
}

func dsnWithSearchPath(dsn, schema string) (string, error) {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse DSN: %w", err)
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	if strings.Contains(dsn, "search_path=") {
		re := regexp.MustCompile(`search_path=\S+`)
		return re.ReplaceAllString(dsn, "search_path="+schema), nil
	}
	return dsn + " search_path=" + schema, nil
}

func newSchemaName(prefix string) string {
	base := strings.ToLower(prefix)
	base = strings.ReplaceAll(base, "-", "_")
	base = nonIdentChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "test"
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	const maxPostgresIdentLen = 63
	maxBaseLen := maxPostgresIdentLen - len("t__") - len(suffix)
	if maxBaseLen < 1 {
		maxBaseLen = 1
	}
	if len(base) > maxBaseLen {
		base = base[:maxBaseLen]
	}
	return fmt.Sprintf("t_%s_%s", base, suffix)
}
