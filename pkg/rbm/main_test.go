package rbm

import (
	"database/sql"
	"math/rand/v2"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testCodec builds a codec or fails the test.
func testCodec(t *testing.T, alphabet string, maxlen int, filler rune) *Codec {
	t.Helper()
	codec, err := NewCodec(alphabet, maxlen, filler)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return codec
}

// testModel builds a model with a fixed random seed so sampling tests
// are reproducible.
func testModel(t *testing.T, codec *Codec, numHidden int) *Model {
	t.Helper()
	model, err := NewModel(codec, numHidden)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	model.SetRand(rand.New(rand.NewPCG(7, 13)))
	return model
}

// setupTestStore creates a new SQLite database and Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T, codec *Codec) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	store, err := NewStore(db, codec)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(store.Close)

	return db, store
}
