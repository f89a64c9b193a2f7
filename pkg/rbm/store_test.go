package rbm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStoreIngestAndDraw(t *testing.T) {
	codec := testCodec(t, "abc$", 4, '$')
	_, store := setupTestStore(t, codec)
	ctx := context.Background()

	data := "ab\nabc\nabcab\naxc\nc\n"
	if err := store.Ingest(ctx, strings.NewReader(data)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3 (unencodable lines skipped)", count)
	}

	vis, err := store.Draw(ctx, 8, nil)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	rows, cols := vis.Dims()
	if rows != 8 || cols != codec.VisibleSize() {
		t.Fatalf("got shape (%d, %d), want (8, %d)", rows, cols, codec.VisibleSize())
	}

	valid := map[string]bool{"ab": true, "abc": true, "c": true}
	for i := 0; i < rows; i++ {
		decoded, err := codec.Decode(vis.RawRowView(i), true, true)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !valid[decoded] {
			t.Errorf("row %d decoded to %q, not a stored example", i, decoded)
		}
	}
}

func TestStoreDrawOnEmptyStore(t *testing.T) {
	codec := testCodec(t, "abc$", 4, '$')
	_, store := setupTestStore(t, codec)

	if _, err := store.Draw(context.Background(), 3, nil); !errors.Is(err, ErrConfig) {
		t.Errorf("Draw() on empty store error = %v, want ErrConfig", err)
	}
}

func TestStoreAsExampleSourceForSilhouettes(t *testing.T) {
	codec := testCodec(t, "abc $", 6, '$')
	_, store := setupTestStore(t, codec)
	ctx := context.Background()

	if err := store.Ingest(ctx, strings.NewReader("ab c\nca\n")); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	model := testModel(t, codec, 5)
	vis, err := StartingVisible(ctx, InitSilhouettes, 6, model, store)
	if err != nil {
		t.Fatalf("StartingVisible(silhouettes) error = %v", err)
	}
	assertOneHot(t, vis, codec)

	// Silhouettes keep the filled-versus-blank shape of a stored example
	// even when the characters themselves are remixed.
	shapes := map[string]bool{"xx x": true, "xx": true}
	for i := 0; i < 6; i++ {
		decoded, err := codec.Decode(vis.RawRowView(i), true, true)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		var shape strings.Builder
		for _, r := range decoded {
			if r == ' ' {
				shape.WriteRune(' ')
			} else {
				shape.WriteRune('x')
			}
		}
		if !shapes[shape.String()] {
			t.Errorf("row %d has shape %q, want one of the stored shapes", i, shape.String())
		}
	}
}
