package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyContent   = errors.New("message content is empty")
	ErrContentTooLong = errors.New("message content is too long")
	ErrInvalidContent = errors.New("message content is not valid UTF-8")
)

// ValidateContent checks a message body. Length is counted in runes.
func ValidateContent(content string, maxLength int) error {
	if !utf8.ValidString(content) {
		return ErrInvalidContent
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if n := utf8.RuneCountInString(content); maxLength > 0 && n > maxLength {
		return fmt.Errorf("%w: %d > %d", ErrContentTooLong, n, maxLength)
	}
	return nil
}
