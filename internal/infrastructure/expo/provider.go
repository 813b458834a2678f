package expo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-push-gateway/internal/config"
	"github.com/go-push-gateway/internal/domain"
	sdk "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

// Provider sends multicast pushes through the Expo push API.
type Provider struct {
	client *sdk.PushClient
	logger *slog.Logger
}

// NewProvider builds a Provider from config. Returns an error when no access
// token is configured; callers keep running without a provider in that case.
func NewProvider(cfg *config.Config, logger *slog.Logger) (*Provider, error) {
	if cfg.ExpoAccessToken == "" {
		return nil, fmt.Errorf("expo access token not configured")
	}
	return &Provider{
		client: sdk.NewPushClient(&sdk.ClientConfig{AccessToken: cfg.ExpoAccessToken}),
		logger: logger,
	}, nil
}

// Send submits one batched request covering every token and returns a result
// per token, in input order. Tokens that fail Expo's format check never reach
// the wire and come back as permanent failures.
func (p *Provider) Send(ctx context.Context, tokens []string, msg domain.PushMessage) ([]domain.PushResult, error) {
	results := make([]domain.PushResult, len(tokens))
	data := payloadData(msg)

	var messages []sdk.PushMessage
	var sentIdx []int
	for i, raw := range tokens {
		pushToken, err := sdk.NewExponentPushToken(raw)
		if err != nil {
			p.logger.Warn("malformed push token", "token", raw, "err", err)
			results[i] = domain.PushResult{Token: raw, Permanent: true, Detail: "malformed token"}
			continue
		}
		messages = append(messages, sdk.PushMessage{
			To:       []sdk.ExponentPushToken{pushToken},
			Title:    msg.Title,
			Body:     msg.Body,
			Data:     data,
			Sound:    "default",
			Priority: sdk.DefaultPriority,
		})
		sentIdx = append(sentIdx, i)
	}

	if len(messages) == 0 {
		return results, nil
	}

	responses, err := p.client.PublishMultiple(messages)
	if err != nil {
		return nil, fmt.Errorf("expo publish: %w", err)
	}
	if len(responses) != len(messages) {
		return nil, fmt.Errorf("expo publish: got %d tickets for %d messages", len(responses), len(messages))
	}

	for j, resp := range responses {
		i := sentIdx[j]
		results[i] = classify(tokens[i], resp)
	}
	return results, nil
}

// payloadData builds the data map shipped to the device. Expo messages have no
// dedicated image or click-action fields, so those ride along in the data map
// under well-known keys the app reads on tap.
func payloadData(msg domain.PushMessage) map[string]string {
	if msg.ImageURL == "" && msg.ClickAction == "" {
		return msg.Data
	}
	data := make(map[string]string, len(msg.Data)+2)
	for k, v := range msg.Data {
		data[k] = v
	}
	if msg.ImageURL != "" {
		data["image_url"] = msg.ImageURL
	}
	if msg.ClickAction != "" {
		data["click_action"] = msg.ClickAction
	}
	return data
}

// classify maps one Expo ticket onto a PushResult. Only DeviceNotRegistered
// is permanent; every other non-ok status is transient.
func classify(token string, resp sdk.PushResponse) domain.PushResult {
	if resp.Status == sdk.SuccessStatus {
		return domain.PushResult{Token: token, OK: true}
	}
	result := domain.PushResult{Token: token, Detail: resp.Message}
	if detail := resp.Details["error"]; detail != "" {
		if result.Detail == "" {
			result.Detail = detail
		}
		if detail == sdk.ErrorDeviceNotRegistered {
			result.Permanent = true
		}
	}
	return result
}
