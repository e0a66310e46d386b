/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is used to generate fixed-length Base62 guest and token identifiers, and
standard UUIDs for socket and message IDs.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, a-z, A-Z).
	Base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))
)

// Base62 generates a string consisting of prefix followed by length random Base62 characters,
// using a cryptographically secure random number generator (crypto/rand).
func Base62(prefix string, length int) (string, error) {
	var b strings.Builder
	b.Grow(len(prefix) + length)
	b.WriteString(prefix)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for identifier: %w", err)
		}
		b.WriteByte(Base62Chars[num.Int64()])
	}

	return b.String(), nil
}

// IsBase62 reports whether s is non-empty and consists only of Base62 characters.
func IsBase62(s string) bool {
	if s == "" {
		return false
	}

	for _, char := range s {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// SocketID generates a standard UUID v4 string identifying a single connection.
func SocketID() string {
	return uuid.New().String()
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}
