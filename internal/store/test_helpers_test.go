package store

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"stakepit/internal/config"
)

var schemaNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// openStore mirrors testutil.OpenTestStore, which this package cannot
// import without a cycle. Each test gets a throwaway schema on
// TEST_POSTGRES_DSN, or is skipped when the variable is unset.
func openStore(t *testing.T) (*Store, context.Context, func()) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	dsn := cfg.TestPostgresDSN

	schema := fmt.Sprintf("stakepit_store_%d", time.Now().UnixNano())
	if err := schemaExec(dsn, "CREATE SCHEMA %s", schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	st, err := New(schemaDSN(dsn, schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		t.Fatalf("migrate test schema: %v", err)
	}

	cleanup := func() {
		st.Close()
		_ = schemaExec(dsn, "DROP SCHEMA %s CASCADE", schema)
	}
	return st, context.Background(), cleanup
}

func schemaExec(dsn, format, schema string) error {
	if !schemaNameRe.MatchString(schema) {
		return fmt.Errorf("unsafe schema name %q", schema)
	}
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, fmt.Sprintf(format, pgx.Identifier{schema}.Sanitize()))
	return err
}

func schemaDSN(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}

func testLobby(sessionID string) Lobby {
	return Lobby{
		SessionID:     sessionID,
		ModelNames:    []string{"gpt-4o", "claude-sonnet"},
		StartingChips: 1000,
		SmallBlind:    10,
		BigBlind:      20,
		MaxHands:      50,
		Status:        "waiting",
	}
}
