package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation              = errors.New("validation error")
	ErrConfiguration           = errors.New("configuration error")
	ErrNotFound                = errors.New("not found")
	ErrTimeout                 = errors.New("timeout")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrCacheCorrupt            = errors.New("cache corrupt")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrCollaboratorUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Cause renders err as a short single-line string suitable for a decision reason.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	const limit = 200
	runes := []rune(msg)
	if len(runes) > limit {
		msg = string(runes[:limit]) + "..."
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
