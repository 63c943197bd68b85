package ai

import (
	"fmt"
	"os"
	"strings"
)

// LoadRubric reads the grading instruction prompt from disk. The rubric is a
// static asset loaded once per process; an absent or empty file is a startup
// error rather than something to recover from mid-grading.
func LoadRubric(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read rubric prompt: %w", err)
	}

	rubric := strings.TrimSpace(string(data))
	if rubric == "" {
		return "", fmt.Errorf("rubric prompt %s is empty", path)
	}

	return rubric, nil
}
