package database

import (
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

func TestMigrationVersionsSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_cards.sql": {Data: []byte("SELECT 1;")},
		"migrations/0001_init.sql":  {Data: []byte("SELECT 1;")},
		"migrations/README.md":      {Data: []byte("notes")},
	}
	got, err := migrationVersions(fsys)
	if err != nil {
		t.Fatalf("migrationVersions: %v", err)
	}
	want := []string{"0001_init", "0002_cards"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("versions = %v, want %v", got, want)
	}
}

func TestEmbeddedSchemaDefinesLedgerTables(t *testing.T) {
	versions, err := migrationVersions(migrationFiles)
	if err != nil {
		t.Fatalf("migrationVersions: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no embedded migrations")
	}
	body, err := migrationFiles.ReadFile("migrations/" + versions[0] + ".sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"users", "banks", "accounts", "cards", "transactions"} {
		if !strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("schema missing table %s", table)
		}
	}
	if !strings.Contains(string(body), "transactions_reference_key") {
		t.Error("schema missing unique reference constraint")
	}
}
