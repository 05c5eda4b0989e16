// Package questions loads the interview question bank from a YAML file.
// The bank supplies question text for analysis prompts when a session
// record does not carry its own selected questions.
package questions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Question is one entry in the bank.
type Question struct {
	ID       string `yaml:"id"`
	Text     string `yaml:"text"`
	Category string `yaml:"category,omitempty"`
}

// Bank is an ordered question list loaded from YAML.
type Bank struct {
	questions []Question
}

type bankFile struct {
	Questions []Question `yaml:"questions"`
}

// Load reads a question bank from a YAML file.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	return &Bank{questions: f.Questions}, nil
}

// Empty returns a bank with no questions; Text falls back to placeholders.
func Empty() *Bank {
	return &Bank{}
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.questions)
}

// Text returns the question text at index (0-based), or a numbered
// placeholder when the bank has no entry for it.
func (b *Bank) Text(index int) string {
	if index >= 0 && index < len(b.questions) {
		return b.questions[index].Text
	}
	return fmt.Sprintf("Question %d", index+1)
}

// Texts returns all question texts in bank order.
func (b *Bank) Texts() []string {
	out := make([]string, len(b.questions))
	for i, q := range b.questions {
		out[i] = q.Text
	}
	return out
}
