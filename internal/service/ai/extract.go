package ai

import (
	"errors"
)

var (
	// ErrNoJSON is returned when the text holds no opening delimiter.
	ErrNoJSON = errors.New("no json value found")
	// ErrUnbalancedJSON is returned when the opening delimiter is never closed.
	ErrUnbalancedJSON = errors.New("unbalanced json value")
)

// ExtractArray returns the first '[' through its matching ']'.
func ExtractArray(text string) (string, error) {
	return extractBalanced(text, '[', ']')
}

// ExtractObject returns the first '{' through its matching '}'.
func ExtractObject(text string) (string, error) {
	return extractBalanced(text, '{', '}')
}

// extractBalanced scans from the first open byte and tracks nesting depth,
// skipping delimiters that appear inside JSON strings.
func extractBalanced(text string, open, close byte) (string, error) {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == open {
			start = i
			break
		}
	}
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrUnbalancedJSON
}
