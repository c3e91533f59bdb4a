package reduce

import (
	"fmt"
	"strings"
)

// Wrap builds an error message that pins a failure to its detector and
// pipeline step. The underlying error stays unwrappable so callers can test
// against the collaborator sentinels (unknown source mode, axis detection,
// shape mismatch, and so on).
func Wrap(det int, step, message string, err error) error {
	detail := buildDetail(det, step, message)
	if err != nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	return fmt.Errorf("%s", detail)
}

func buildDetail(det int, step, message string) string {
	parts := make([]string, 0, 3)
	parts = append(parts, fmt.Sprintf("detector %d", det))
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	return strings.Join(parts, ": ")
}
