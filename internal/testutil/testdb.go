package testutil

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"stakepit/internal/config"
	"stakepit/internal/store"

	"github.com/jackc/pgx/v5"
)

var schemaNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// OpenTestStore opens a store against TEST_POSTGRES_DSN inside a
// throwaway schema and applies the embedded migration. Tests are
// skipped when the variable is unset. The returned cleanup drops the
// schema again.
func OpenTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()
	cfg, err := config.LoadTest()
	if err != nil {
		t.Skipf("skip test db: %v", err)
	}
	dsn := cfg.TestPostgresDSN

	schema := fmt.Sprintf("stakepit_test_%d", time.Now().UnixNano())
	if err := execSchemaDDL(dsn, "CREATE SCHEMA %s", schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	st, err := store.New(scopedDSN(dsn, schema))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		t.Fatalf("migrate test schema: %v", err)
	}

	return st, func() {
		st.Close()
		_ = execSchemaDDL(dsn, "DROP SCHEMA %s CASCADE", schema)
	}
}

// execSchemaDDL runs a one-off DDL statement with the schema name
// substituted. DDL cannot take bind parameters, so the name is
// pattern-checked and quoted instead.
func execSchemaDDL(dsn, format, schema string) error {
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

func scopedDSN(dsn, schema string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "search_path=" + url.QueryEscape(schema)
}
