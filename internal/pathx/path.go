// Package pathx implements the small path algebra used to build storage keys:
// normalization, joining and computing a key relative to a scope prefix.
//
// All functions work on plain strings with a fixed delimiter ("/"). They are
// independent of the host OS, unlike path/filepath.
package pathx

import (
	"errors"
	"strings"
)

// Delimiter separates path segments in storage keys.
const Delimiter = "/"

// ErrPathTraversal is returned by Clean when a path tries to climb above its base.
var ErrPathTraversal = errors.New("path escapes its base")

// Normalize collapses repeated delimiters and strips leading and trailing ones.
//
//	Normalize("//a///b/") == "a/b"
func Normalize(p string) string {
	parts := strings.Split(p, Delimiter)
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, Delimiter)
}

// Join glues path segments with a single delimiter. Empty segments are skipped.
//
// The first segment keeps its leading edge and loses its trailing delimiters,
// the last segment keeps its trailing edge and loses its leading delimiters,
// interior segments are normalized. A single segment is returned unchanged, so
// Join("/a/") == "/a/" while Join("/a/", "b/") == "/a/b/".
func Join(segments ...string) string {
	filtered := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			filtered = append(filtered, s)
		}
	}

	switch len(filtered) {
	case 0:
		return ""
	case 1:
		return filtered[0]
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(filtered[0], Delimiter))

	if len(filtered) > 2 {
		for _, s := range filtered[1 : len(filtered)-1] {
			if s = Normalize(s); s != "" {
				b.WriteString(Delimiter)
				b.WriteString(s)
			}
		}
	}

	b.WriteString(Delimiter)
	b.WriteString(strings.TrimLeft(filtered[len(filtered)-1], Delimiter))
	return b.String()
}

// RelativeTo returns the part of to that lies below from. Both paths are
// normalized and compared segment by segment; the remaining segments of to,
// starting at the first divergence, are joined back together.
//
//	RelativeTo("site/alice", "site/alice/docs/a.txt") == "docs/a.txt"
func RelativeTo(from, to string) string {
	fromParts := split(from)
	toParts := split(to)

	i := 0
	for i < len(fromParts) && i < len(toParts) && fromParts[i] == toParts[i] {
		i++
	}
	if i >= len(toParts) {
		return ""
	}
	return strings.Join(toParts[i:], Delimiter)
}

// Clean normalizes p and resolves "." segments. A ".." segment is rejected
// with ErrPathTraversal rather than resolved, so the result can always be
// appended to a base without leaving it.
func Clean(p string) (string, error) {
	parts := split(p)
	out := parts[:0]
	for _, s := range parts {
		switch s {
		case ".":
			continue
		case "..":
			return "", ErrPathTraversal
		}
		out = append(out, s)
	}
	return strings.Join(out, Delimiter), nil
}

// Base returns the last segment of p, or "" for an empty path.
func Base(p string) string {
	parts := split(p)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func split(p string) []string {
	p = Normalize(p)
	if p == "" {
		return nil
	}
	return strings.Split(p, Delimiter)
}
