package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentialFormat indica un digest almacenado que bcrypt no
// puede interpretar; señal de corrupción de datos, no de password errónea.
var ErrInvalidCredentialFormat = errors.New("invalid credential format")

// HashPassword transforma la password en claro a su hash bcrypt con salt.
func HashPassword(plaintext string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// VerifyPassword confirma si la password corresponde al digest almacenado.
// Un mismatch devuelve (false, nil); solo un digest malformado es error.
func VerifyPassword(plaintext, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrInvalidCredentialFormat, err)
}
