package domain

import "time"

// Platform identifies the OS family a device token belongs to.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// ValidPlatform reports whether p is one of the supported platforms.
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

// DeviceToken is one app installation able to receive pushes. The token string
// is the primary key: re-registration of the same token upserts the row and
// reassigns ownership. Rows are never hard-deleted, only disabled.
type DeviceToken struct {
	TokenID    string            `json:"id" dynamodbav:"token_id"`
	UserID     string            `json:"user_id" dynamodbav:"user_id"`
	Token      string            `json:"token" dynamodbav:"token"`
	Platform   Platform          `json:"platform" dynamodbav:"platform"`
	DeviceInfo map[string]string `json:"device_info,omitempty" dynamodbav:"device_info,omitempty"`
	Enable     bool              `json:"enable" dynamodbav:"enable"`
	CreatedAt  time.Time         `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time         `json:"updated" dynamodbav:"updated_at"`
}
