// Package validation checks user-supplied input before it reaches services.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"dumdummies/internal/models"
)

const (
	minPasswordLength = 12
	maxPasswordLength = 128
	maxEmailLength    = 254

	// MaxChallengeNameLength bounds a challenge name after trimming.
	MaxChallengeNameLength = 80
	// MaxDonationMessageLength bounds the optional donation note.
	MaxDonationMessageLength = 200
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,30}$`)
	emailRegex    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)+$`)
)

// ValidateUsername requires 3-30 letters, digits, '_' or '-', not starting
// or ending with a separator.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return errors.New("username must be 3-30 characters of letters, numbers, '_' or '-'")
	}
	first, last := username[0], username[len(username)-1]
	if first == '-' || first == '_' || last == '-' || last == '_' {
		return errors.New("username cannot start or end with '-' or '_'")
	}
	return nil
}

// ValidateEmail performs a structural check on an email address.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLength {
		return fmt.Errorf("email must be at most %d characters", maxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return errors.New("email address is invalid")
	}
	return nil
}

// ValidatePassword requires 12-128 characters including an upper-case
// letter, a lower-case letter, a digit and a symbol.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		return fmt.Errorf("password must be %d-%d characters", minPasswordLength, maxPasswordLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return errors.New("password needs upper and lower case letters, a digit and a symbol")
	}
	return nil
}

// ChallengeName trims name and checks it is non-empty and short enough.
func ChallengeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("challenge name is required")
	}
	if utf8.RuneCountInString(name) > MaxChallengeNameLength {
		return "", fmt.Errorf("challenge name must be at most %d characters", MaxChallengeNameLength)
	}
	return name, nil
}

// ChatText trims text and checks it is non-empty and within the chat limit.
func ChatText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("message cannot be empty")
	}
	if utf8.RuneCountInString(text) > models.MaxChatMessageLength {
		return "", fmt.Errorf("message must be at most %d characters", models.MaxChatMessageLength)
	}
	return text, nil
}

// DonationMessage trims an optional donation note.
func DonationMessage(msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if utf8.RuneCountInString(msg) > MaxDonationMessageLength {
		return "", fmt.Errorf("donation message must be at most %d characters", MaxDonationMessageLength)
	}
	return msg, nil
}
