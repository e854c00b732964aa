package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
)

func TestNewUnconfigured(t *testing.T) {
	c, err := New("", "", "", "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Error("expected nil client when storage is not configured")
	}
}

func TestNewRejectsEndpointWithoutScheme(t *testing.T) {
	if _, err := New("minio:9000", "", "key", "secret", "photos", ""); err == nil {
		t.Error("expected error for endpoint without scheme")
	}
}

func TestFileURL(t *testing.T) {
	c, err := New("http://minio:9000/", "", "key", "secret", "photos", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.FileURL("listings/a/b.jpg"); got != "http://minio:9000/photos/listings/a/b.jpg" {
		t.Errorf("unexpected path-style url %q", got)
	}

	c, err = New("http://minio:9000", "", "key", "secret", "photos", "https://cdn.example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.FileURL("listings/a/b.jpg"); got != "https://cdn.example.com/listings/a/b.jpg" {
		t.Errorf("unexpected public url %q", got)
	}
}

func TestPresignUpload(t *testing.T) {
	c, err := New("http://minio:9000", "eu-central-1", "key", "secret", "photos", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := c.PresignUpload(context.Background(), "listings/a/b.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("presigned url does not parse: %v", err)
	}
	if u.Host != "minio:9000" {
		t.Errorf("expected host minio:9000, got %q", u.Host)
	}
	if u.Path != "/photos/listings/a/b.jpg" {
		t.Errorf("expected path-style key, got %q", u.Path)
	}
	if u.Query().Get("X-Amz-Signature") == "" {
		t.Error("expected a signature in the presigned url")
	}
	if !strings.Contains(u.Query().Get("X-Amz-Credential"), "eu-central-1") {
		t.Errorf("expected region in credential scope, got %q", u.Query().Get("X-Amz-Credential"))
	}
}

func TestPhotoKey(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", "listings/L/P.jpg"},
		{"image/png", "listings/L/P.png"},
		{"image/webp", "listings/L/P.webp"},
		{"application/octet-stream", "listings/L/P"},
	}
	for _, tt := range tests {
		if got := PhotoKey("L", "P", tt.contentType); got != tt.want {
			t.Errorf("PhotoKey(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
