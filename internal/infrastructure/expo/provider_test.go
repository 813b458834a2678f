package expo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-push-gateway/internal/domain"
	sdk "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

func TestClassify_Success(t *testing.T) {
	r := classify("tok-1", sdk.PushResponse{Status: sdk.SuccessStatus})
	assert.True(t, r.OK)
	assert.False(t, r.Permanent)
	assert.Equal(t, "tok-1", r.Token)
}

func TestClassify_DeviceNotRegistered_IsPermanent(t *testing.T) {
	r := classify("tok-1", sdk.PushResponse{
		Status:  "error",
		Details: map[string]string{"error": sdk.ErrorDeviceNotRegistered},
	})
	assert.False(t, r.OK)
	assert.True(t, r.Permanent)
}

func TestClassify_OtherError_IsTransient(t *testing.T) {
	r := classify("tok-1", sdk.PushResponse{
		Status:  "error",
		Message: "rate limited",
		Details: map[string]string{"error": sdk.ErrorMessageRateExceeded},
	})
	assert.False(t, r.OK)
	assert.False(t, r.Permanent)
	assert.Equal(t, "rate limited", r.Detail)
}

func TestClassify_NoDetails(t *testing.T) {
	r := classify("tok-1", sdk.PushResponse{Status: "error", Message: "boom"})
	assert.False(t, r.OK)
	assert.False(t, r.Permanent)
	assert.Equal(t, "boom", r.Detail)
}

func TestPayloadData_FoldsImageAndClickAction(t *testing.T) {
	data := payloadData(domain.PushMessage{
		Data:        map[string]string{"order_id": "42"},
		ImageURL:    "https://cdn.example.com/banner.png",
		ClickAction: "OPEN_ORDER",
	})
	assert.Equal(t, "42", data["order_id"])
	assert.Equal(t, "https://cdn.example.com/banner.png", data["image_url"])
	assert.Equal(t, "OPEN_ORDER", data["click_action"])
}

func TestPayloadData_DoesNotMutateCallerData(t *testing.T) {
	original := map[string]string{"order_id": "42"}
	payloadData(domain.PushMessage{Data: original, ImageURL: "https://x/y.png"})
	assert.NotContains(t, original, "image_url")
}

func TestPayloadData_PassthroughWithoutExtras(t *testing.T) {
	original := map[string]string{"order_id": "42"}
	assert.Equal(t, original, payloadData(domain.PushMessage{Data: original}))
}
