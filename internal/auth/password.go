package auth

import "golang.org/x/crypto/bcrypt"

// PasswordCost matches the work factor the rest of the deployment was
// provisioned with; existing digests were produced at cost 10.
const PasswordCost = 10

// HashPassword derives a one-way salted digest of the plaintext.
func HashPassword(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPassword verifies a plaintext against a stored digest in constant
// time with respect to the secret content. A malformed digest simply
// fails verification; it never propagates an error to the caller.
func CheckPassword(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
