package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/fkhayef/grpprotocol/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStore_PutGetReplaceDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)

	info, err := store.Put(ctx, "protocols/1/protokoll.pdf", bytes.NewReader([]byte("first")), core.PutOptions{ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 5 {
		t.Fatalf("unexpected info %+v", info)
	}

	// whole-file replacement
	if _, err := store.Put(ctx, "protocols/1/protokoll.pdf", bytes.NewReader([]byte("second")), core.PutOptions{ContentType: "application/pdf"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, rc, err := store.Get(ctx, "protocols/1/protokoll.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "second" || got.ContentType != "application/pdf" || got.Size != 6 {
		t.Fatalf("unexpected get %q %+v", b, got)
	}

	url, err := store.URL(ctx, "protocols/1/protokoll.pdf")
	if err != nil || url != "/media/protocols/1/protokoll.pdf" {
		t.Fatalf("url: %v %s", err, url)
	}

	ok, err := store.Delete(ctx, "protocols/1/protokoll.pdf")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "protocols/1/protokoll.pdf")
	if err != nil || ok {
		t.Fatalf("second delete should be false")
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := newTempStore(t)
	_, _, err := store.Get(context.Background(), "nope.pdf")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PathTraversal(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "../escape.txt", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected traversal error")
	}
	if _, err := store.Put(ctx, "/abs.txt", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected absolute key error")
	}
}
