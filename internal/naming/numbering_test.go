package naming

import (
	"context"
	"testing"

	"gocloud.dev/blob/memblob"
)

func TestComputeStartIndex(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		expected uint64
	}{
		{"empty", nil, 1},
		{"no matches", []string{"photo.jpg", "readme.txt", "img_3.png"}, 1},
		{"gaps preserved", []string{"image_1.jpg", "image_2.png", "image_5.gif"}, 6},
		{"single", []string{"image_7.webp"}, 8},
		{"mixed with noise", []string{"image_3.jpg", "notes.md", "image_9.png", "image_x.jpg"}, 10},
		// Suffix without extension doesn't match
		{"bare number", []string{"image_12"}, 1},
		// First embedded match wins per name
		{"double match", []string{"image_3.jpg.image_9.png"}, 4},
	}

	for _, tt := range tests {
		if got := ComputeStartIndex(tt.existing); got != tt.expected {
			t.Errorf("%s: ComputeStartIndex(%v) = %d, want %d", tt.name, tt.existing, got, tt.expected)
		}
	}
}

func TestComputeStartIndexHugeSuffix(t *testing.T) {
	// A suffix wider than 64 bits is ignored, not truncated.
	got := ComputeStartIndex([]string{"image_99999999999999999999999999.jpg", "image_4.png"})
	if got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestStartIndexFromBucket(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	for _, key := range []string{"image_1.jpg", "image_2.png", "image_5.gif", "thumbs.db"} {
		if err := bucket.WriteAll(ctx, key, []byte("x"), nil); err != nil {
			t.Fatalf("write %s: %v", key, err)
		}
	}

	start, err := StartIndex(ctx, bucket)
	if err != nil {
		t.Fatalf("StartIndex: %v", err)
	}
	if start != 6 {
		t.Errorf("expected start index 6, got %d", start)
	}
}

func TestStartIndexEmptyBucket(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	start, err := StartIndex(ctx, bucket)
	if err != nil {
		t.Fatalf("StartIndex: %v", err)
	}
	if start != 1 {
		t.Errorf("expected start index 1 for empty bucket, got %d", start)
	}
}
