package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only reads the first 72 bytes.
const bcryptMaxBytes = 72

// bcryptInput returns plain unchanged when bcrypt can take it whole and a
// base64 SHA-256 digest (44 bytes) otherwise.
func bcryptInput(plain string) []byte {
	if len(plain) <= bcryptMaxBytes {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(bcryptInput(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain)) == nil
}

// PasswordProblems lists every signup rule the password breaks. An empty
// result means the password is acceptable.
func PasswordProblems(pw string) []string {
	var upper, lower, digits, symbols, spaces int
	for _, r := range pw {
		switch {
		case unicode.IsSpace(r):
			spaces++
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsDigit(r):
			digits++
		default:
			symbols++
		}
	}

	n := len([]rune(pw))
	var out []string
	if n < 8 {
		out = append(out, "Password must be at least 8 characters long")
	}
	if n > 100 {
		out = append(out, "Password is too long (maximum 100 characters)")
	}
	if upper == 0 {
		out = append(out, "Password must contain at least one uppercase letter")
	}
	if lower == 0 {
		out = append(out, "Password must contain at least one lowercase letter")
	}
	if digits < 2 {
		out = append(out, "Password must contain at least 2 numbers")
	}
	if symbols == 0 {
		out = append(out, "Password must contain at least 1 special character")
	}
	if spaces > 0 {
		out = append(out, "Password cannot contain spaces")
	}
	return out
}
