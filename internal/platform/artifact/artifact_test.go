package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValidateUpload_Allowed(t *testing.T) {
	for _, ct := range []string{"image/png", "image/jpeg", "image/webp", "application/pdf"} {
		if err := ValidateUpload(ct, 1024, 0); err != nil {
			t.Errorf("content type %q should be allowed: %v", ct, err)
		}
	}
}

func TestValidateUpload_Disallowed(t *testing.T) {
	for _, ct := range []string{"text/html", "application/octet-stream", "image/svg+xml", ""} {
		if err := ValidateUpload(ct, 1024, 0); !errors.Is(err, ErrInvalidContentType) {
			t.Errorf("content type %q: expected ErrInvalidContentType, got %v", ct, err)
		}
	}
}

func TestValidateUpload_TooLarge(t *testing.T) {
	if err := ValidateUpload("image/png", DefaultMaxSize+1, 0); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
	if err := ValidateUpload("image/png", 2048, 1024); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge with custom cap, got %v", err)
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ref, err := s.Put(ctx, "procedures/p1/before.png", strings.NewReader("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if ref != "memory://procedures/p1/before.png" {
		t.Errorf("unexpected reference: %s", ref)
	}

	rc, ct, err := s.Get(ctx, "procedures/p1/before.png")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, []byte("png-bytes")) {
		t.Errorf("unexpected content: %q", data)
	}
	if ct != "image/png" {
		t.Errorf("unexpected content type: %s", ct)
	}
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_Delete_Idempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Put(ctx, "a/b", strings.NewReader("x"), "image/png"); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := s.Delete(ctx, "a/b"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	// Deleting a missing path is not an error.
	if err := s.Delete(ctx, "a/b"); err != nil {
		t.Errorf("second Delete() should be a no-op, got %v", err)
	}
	if err := s.Delete(ctx, "never/existed"); err != nil {
		t.Errorf("Delete() of unknown path should be a no-op, got %v", err)
	}
}

func TestMemoryStore_Exists(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.Exists(ctx, "a/b")
	if err != nil || ok {
		t.Errorf("expected not-exists, got ok=%v err=%v", ok, err)
	}

	s.Put(ctx, "a/b", strings.NewReader("x"), "image/jpeg")
	ok, err = s.Exists(ctx, "a/b")
	if err != nil || !ok {
		t.Errorf("expected exists, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_PutVisibleImmediately(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("v"), "image/png"); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); !ok {
		t.Error("artifact should be visible immediately after Put returns")
	}
}

func TestMemoryStore_PutTooLarge(t *testing.T) {
	s := NewMemoryStore()
	s.maxSize = 8
	_, err := s.Put(context.Background(), "big", strings.NewReader("123456789"), "image/png")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestS3Store_ReferenceFor(t *testing.T) {
	s := &S3Store{bucket: "evidence", region: "eu-west-1"}
	got := s.ReferenceFor("procedures/p1/after.jpg")
	want := "https://evidence.s3.eu-west-1.amazonaws.com/procedures/p1/after.jpg"
	if got != want {
		t.Errorf("ReferenceFor() = %s, want %s", got, want)
	}
}
