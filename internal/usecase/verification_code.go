package usecase

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

const verificationCodePrefix = "RDM-"

// newVerificationCode returns a receipt code of the form RDM-<ULID>. ULIDs sort
// by issue time, so codes handed to providers are ordered as well as unique.
func newVerificationCode(at time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return "", err
	}
	return verificationCodePrefix + id.String(), nil
}
