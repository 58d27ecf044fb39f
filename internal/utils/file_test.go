package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsAnswersFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"answers.json", true},
		{"answers.YAML", true},
		{"dir/answers.yml", true},
		{"answers.txt", false},
		{"answers", false},
	}

	for _, tt := range tests {
		if got := IsAnswersFile(tt.filename); got != tt.want {
			t.Errorf("IsAnswersFile(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestCheckFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.json")
	if err := os.WriteFile(path, make([]byte, 2048), 0600); err != nil {
		t.Fatal(err)
	}

	if err := CheckFileSize(path, 0); err != nil {
		t.Errorf("disabled limit: unexpected error %v", err)
	}
	if err := CheckFileSize(path, 4096); err != nil {
		t.Errorf("under limit: unexpected error %v", err)
	}
	if err := CheckFileSize(path, 1024); err == nil {
		t.Error("over limit: expected an error")
	}
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "answers.yaml")
	if err := os.WriteFile(path, []byte("a: b"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := ValidateInputFile(path); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateInputFile(""); err == nil {
		t.Error("empty filename: expected an error")
	}
	if err := ValidateInputFile(dir); err == nil {
		t.Error("directory: expected an error")
	}
	if err := ValidateInputFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file: expected an error")
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
