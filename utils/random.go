package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateCode returns n random bytes as upper-case hex.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// BookingReference returns a short reference such as "BK-3F9A1C0D" that
// groups the tickets of one booking.
func BookingReference() (string, error) {
	code, err := GenerateCode(4)
	if err != nil {
		return "", err
	}
	return "BK-" + code, nil
}
