package storage

import (
	"fmt"
	"strings"
)

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func split(p string) ([]string, error) {
	if p == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	parts := strings.Split(p, "/")
	for _, s := range parts {
		if s == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, p)
		}
	}
	return parts, nil
}

// CheckCollection validates a collection path (odd number of segments).
func CheckCollection(p string) error {
	parts, err := split(p)
	if err != nil {
		return err
	}
	if len(parts)%2 != 1 {
		return fmt.Errorf("%w: %q is not a collection", ErrInvalidPath, p)
	}
	return nil
}

// SplitDocument validates a document path and returns its parent collection and id.
func SplitDocument(p string) (collection, id string, err error) {
	parts, err := split(p)
	if err != nil {
		return "", "", err
	}
	if len(parts)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q is not a document", ErrInvalidPath, p)
	}
	return Join(parts[:len(parts)-1]...), parts[len(parts)-1], nil
}
