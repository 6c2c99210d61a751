package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestReadURLList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "https://host/a.jpg\n\n  \nhttps://host/b.png\n\thttps://host/c.gif\t\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write list: %v", err)
	}

	urls, skipped, err := readURLList(path)
	if err != nil {
		t.Fatalf("readURLList: %v", err)
	}

	if len(urls) != 3 {
		t.Fatalf("expected 3 URLs, got %d: %v", len(urls), urls)
	}
	if skipped != 2 {
		t.Errorf("expected 2 skipped blank rows, got %d", skipped)
	}
	if urls[2] != "https://host/c.gif" {
		t.Errorf("expected whitespace trimmed, got %q", urls[2])
	}
}

func TestReadURLListCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		urls    []string
		skipped int
	}{
		{
			name:    "image_url column",
			content: "id,image_url\n1,https://host/a.jpg\n2,https://host/b.png\n",
			urls:    []string{"https://host/a.jpg", "https://host/b.png"},
		},
		{
			name:    "uppercase header",
			content: "id,IMAGE_URL\n1,https://host/a.jpg\n",
			urls:    []string{"https://host/a.jpg"},
		},
		{
			name:    "mixed-case header",
			content: "Image_URL,id\nhttps://host/a.jpg,1\n",
			urls:    []string{"https://host/a.jpg"},
		},
		{
			name:    "plain url header",
			content: "id,url\n1,https://host/a.jpg\n",
			urls:    []string{"https://host/a.jpg"},
		},
		{
			name:    "image_url preferred over url",
			content: "url,image_url\nhttps://host/page,https://host/a.jpg\n",
			urls:    []string{"https://host/a.jpg"},
		},
		{
			name:    "blank and short rows skipped",
			content: "id,image_url\n1,https://host/a.jpg\n2,\n3\n4,https://host/b.png\n",
			urls:    []string{"https://host/a.jpg", "https://host/b.png"},
			skipped: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "export.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write csv: %v", err)
			}

			urls, skipped, err := readURLList(path)
			if err != nil {
				t.Fatalf("readURLList: %v", err)
			}
			if len(urls) != len(tt.urls) {
				t.Fatalf("expected %d URLs, got %d: %v", len(tt.urls), len(urls), urls)
			}
			for i := range urls {
				if urls[i] != tt.urls[i] {
					t.Errorf("url %d: expected %q, got %q", i, tt.urls[i], urls[i])
				}
			}
			if skipped != tt.skipped {
				t.Errorf("expected %d skipped rows, got %d", tt.skipped, skipped)
			}
		})
	}
}

func TestReadURLListCSVMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte("id,species\n1,camponotus\n"), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	if _, _, err := readURLList(path); err == nil {
		t.Error("expected error for CSV without a URL column")
	}
}

func TestReadURLListMissingFile(t *testing.T) {
	if _, _, err := readURLList(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOpenDestRejectsMissingDir(t *testing.T) {
	if _, err := openDest(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestOpenDestRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := openDest(context.Background(), path); err == nil {
		t.Error("expected error for non-directory destination")
	}
}

func TestOpenDestLocalDirRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	bucket, err := openDest(ctx, dir)
	if err != nil {
		t.Fatalf("openDest: %v", err)
	}
	defer bucket.Close()

	if err := probeDest(ctx, bucket); err != nil {
		t.Fatalf("probeDest: %v", err)
	}

	if err := bucket.WriteAll(ctx, "image_1.jpg", []byte("payload"), nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The write must land as a plain file with no metadata sidecar:
	// the directory's names are the resume state.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "image_1.jpg" {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected exactly [image_1.jpg], got %v", names)
	}
}
