package utils

import "github.com/sethvargo/go-password/password"

// GeneratePIN returns a random numeric PIN of the given length.
func GeneratePIN(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	return password.Generate(length, length, 0, false, true)
}
