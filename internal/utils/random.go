package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	letterBytes  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberBytes  = "0123456789"
	alphanumeric = letterBytes + numberBytes
)

func GenerateRandomString(length int) string {
	return generateRandom(length, alphanumeric)
}

func GenerateRandomNumericString(length int) string {
	return generateRandom(length, numberBytes)
}

func generateRandom(length int, charset string) string {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(charset)))

	for i := range result {
		num, _ := rand.Int(rand.Reader, charsetLength)
		result[i] = charset[num.Int64()]
	}

	return string(result)
}

func SecureRandomInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// GenerateOTP returns a numeric handoff code. The first digit is never zero so
// the code survives integer round-trips in client apps.
func GenerateOTP(length int) string {
	if length < 4 {
		length = 4
	}
	first := fmt.Sprintf("%d", 1+SecureRandomInt(9))
	return first + GenerateRandomNumericString(length-1)
}

// GenerateBookingCode returns a human-readable code like CRG-7K2M9KQA.
func GenerateBookingCode() string {
	code := strings.ToUpper(GenerateRandomString(BookingCodeLength))

	// Avoid confusing characters (0, O, I, L)
	code = strings.ReplaceAll(code, "0", "2")
	code = strings.ReplaceAll(code, "O", "3")
	code = strings.ReplaceAll(code, "I", "4")
	code = strings.ReplaceAll(code, "L", "5")

	return BookingCodePrefix + "-" + code
}
