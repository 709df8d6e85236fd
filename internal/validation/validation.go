// Package validation checks names that become paths in a verse store:
// book directories read from a corpus and entries read from an archive.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// Length limits.
const (
	// MaxNameLength is the longest book directory name accepted.
	MaxNameLength = 255
	// MaxPathLength is the longest archive entry path accepted.
	MaxPathLength = 4096
)

// Validation errors.
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrInvalidName   = errors.New("invalid name")
	ErrNameTooLong   = errors.New("name too long")
	ErrPathTooLong   = errors.New("path too long")
	ErrEmptyPath     = errors.New("path cannot be empty")
)

// BookDir checks that name can be used as a single directory name
// inside a store.
func BookDir(name string) error {
	switch {
	case name == "":
		return ErrInvalidName
	case len(name) > MaxNameLength:
		return ErrNameTooLong
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: path separator in %q", ErrInvalidName, name)
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("%w: %q starts with a hyphen", ErrInvalidName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character in %q", ErrInvalidName, name)
		}
	}
	return nil
}

// EntryPath resolves an archive entry name against baseDir. The entry
// must be relative and must stay inside baseDir once cleaned.
func EntryPath(baseDir, name string) (string, error) {
	if name == "" {
		return "", ErrEmptyPath
	}
	if len(name) > MaxPathLength {
		return "", ErrPathTooLong
	}

	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: absolute path %q", ErrPathTraversal, name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	target := filepath.Join(absBase, clean)
	rel, err := filepath.Rel(absBase, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return filepath.Join(baseDir, clean), nil
}
