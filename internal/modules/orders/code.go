package orders

import "crypto/rand"

// Alphabet for payment codes. 0/O and 1/I are excluded so a code survives
// being typed by hand into a bank transfer memo field.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codePrefix = "ORD-"
	codeLength = 4
)

// GeneratePaymentCode returns a fresh transfer reference, e.g. "ORD-A7X9".
// Uniqueness is enforced by the orders unique index, not here; Create
// retries on collision.
func GeneratePaymentCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	out := make([]byte, 0, len(codePrefix)+codeLength)
	out = append(out, codePrefix...)
	for _, v := range b {
		out = append(out, codeAlphabet[int(v)%len(codeAlphabet)])
	}
	return string(out), nil
}
