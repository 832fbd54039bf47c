package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// GenerateID generates a unique ID with the given prefix
func GenerateID(prefix string) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 12

	result := make([]byte, length)
	for i := range result {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result[i] = charset[num.Int64()]
	}

	return fmt.Sprintf("%s-%s", prefix, string(result))
}

// GenerateReference returns prefix followed by 12 uppercase hex characters.
// Uniqueness is enforced by the database index, not by construction.
func GenerateReference(prefix string) string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return prefix + strings.ToUpper(hex.EncodeToString(b))
}

// GenerateTransferID returns the correlation id shared by both legs of a transfer.
func GenerateTransferID() string {
	return "TRF-" + uuid.NewString()
}

// GenerateAccountNumber generates "ACCT" followed by 12 digits
func GenerateAccountNumber() string {
	return "ACCT" + randomDigits(12)
}

// GenerateCardNumber generates a 16-digit Luhn-valid card number on the given issuer prefix.
func GenerateCardNumber(iin string) string {
	body := iin + randomDigits(15-len(iin))
	return body + string(rune('0'+luhnCheckDigit(body)))
}

// GenerateCVV generates a 3-digit card verification value.
func GenerateCVV() string {
	return randomDigits(3)
}

func randomDigits(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		num, _ := rand.Int(rand.Reader, big.NewInt(10))
		sb.WriteByte(byte('0' + num.Int64()))
	}
	return sb.String()
}

func luhnCheckDigit(body string) int {
	sum := 0
	double := true
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

// ValidLuhn reports whether a digit string passes the Luhn checksum.
func ValidLuhn(number string) bool {
	if len(number) < 2 {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	last := int(number[len(number)-1] - '0')
	return luhnCheckDigit(number[:len(number)-1]) == last
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword checks if a password matches a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// MaskAccountNumber keeps the last four characters.
func MaskAccountNumber(accountNumber string) string {
	if len(accountNumber) > 4 {
		return "****" + accountNumber[len(accountNumber)-4:]
	}
	return accountNumber
}

// MaskCardNumber keeps the last four digits.
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) > 4 {
		return strings.Repeat("*", len(cardNumber)-4) + cardNumber[len(cardNumber)-4:]
	}
	return cardNumber
}
