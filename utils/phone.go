package utils

import (
	"regexp"
	"strings"
)

// FormatPhoneNumber formats a phone number to a standard format
// Removes all non-digit characters and ensures it starts with country code
func FormatPhoneNumber(phoneNumber string) string {
	// Remove all non-digit characters
	re := regexp.MustCompile(`\D`)
	digits := re.ReplaceAllString(phoneNumber, "")

	// If it doesn't start with country code, assume Burkina Faso (+226)
	if len(digits) > 0 && !strings.HasPrefix(digits, "226") {
		// Remove leading zeros
		digits = strings.TrimLeft(digits, "0")
		// Add Burkina Faso country code
		digits = "226" + digits
	}

	return digits
}

// ValidatePhoneNumber validates if a phone number is in correct format
func ValidatePhoneNumber(phoneNumber string) bool {
	re := regexp.MustCompile(`\D`)
	cleaned := re.ReplaceAllString(phoneNumber, "")

	// Burkina Faso numbers: 226 + 8 digits
	if strings.HasPrefix(cleaned, "226") {
		return len(cleaned) == 11
	}

	// Local format: 8 digits
	return len(cleaned) == 8
}
