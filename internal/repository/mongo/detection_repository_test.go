package mongo

import (
	"context"
	"testing"
)

func TestConnect_InvalidURI(t *testing.T) {
	repo, err := Connect(context.Background(), "not-a-mongo-uri", "smartdate", "detections")
	if err == nil {
		repo.Close()
		t.Fatal("Expected error for an invalid URI")
	}
}

func TestConnect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo, err := Connect(ctx, "mongodb://127.0.0.1:1", "smartdate", "detections")
	if err == nil {
		repo.Close()
		t.Fatal("Expected error when the context is already cancelled")
	}
}
