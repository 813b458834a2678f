package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh ULID string. Notification and device-token ids are
// ULIDs so that rows sort by creation time even when read outside their
// GSI, and stay safe as DynamoDB keys.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
