package questions

import (
	"os"
	"path/filepath"
	"testing"
)

func writeBank(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeBank(t, `questions:
  - id: q1
    text: "Tell me about yourself."
    category: general
  - id: q2
    text: "Why do you want this role?"
`)

	bank, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if bank.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", bank.Len())
	}
	if got := bank.Text(0); got != "Tell me about yourself." {
		t.Errorf("Text(0) = %q", got)
	}
	if got := bank.Text(1); got != "Why do you want this role?" {
		t.Errorf("Text(1) = %q", got)
	}
}

func TestTextFallback(t *testing.T) {
	bank := Empty()
	if got := bank.Text(2); got != "Question 3" {
		t.Errorf("Text(2) = %q, want Question 3", got)
	}
	if got := bank.Text(-1); got != "Question 0" {
		t.Errorf("Text(-1) = %q, want Question 0", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeBank(t, "questions: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}
}
