package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-push-gateway/internal/domain"
)

// TokenRepo provides typed DynamoDB operations for the device_tokens table.
// The token string is the partition key, so PutItem doubles as upsert.
type TokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTokenRepo(client *dynamodb.Client, tableName string) *TokenRepo {
	return &TokenRepo{client: client, tableName: tableName}
}

func (r *TokenRepo) Put(ctx context.Context, t *domain.DeviceToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal device token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TokenRepo) Get(ctx context.Context, token string) (*domain.DeviceToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("device token not found: %w", domain.ErrNotFound)
	}
	var t domain.DeviceToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListActiveByUser queries the user_id GSI and filters for enabled tokens.
func (r *TokenRepo) ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		FilterExpression:       aws.String("#en = :t"),
		ExpressionAttributeNames: map[string]string{
			"#en": fieldEnable,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
			":t":   &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		return nil, err
	}
	var tokens []domain.DeviceToken
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Disable flips enable to false for an existing row. Returns domain.ErrNotFound
// when the token was never registered.
func (r *TokenRepo) Disable(ctx context.Context, token string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldEnable:  false,
		fieldUpdated: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("token", token),
		ConditionExpression:       aws.String("attribute_exists(#tk)"),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  withName(ue.Names, "#tk", "token"),
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("device token not found: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// DisableBatch disables every token in the set. Failures are collected rather
// than aborting, so one bad row cannot keep the rest of the set active.
func (r *TokenRepo) DisableBatch(ctx context.Context, tokens []string) error {
	var errs []error
	for _, token := range tokens {
		if err := r.Disable(ctx, token); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, fmt.Errorf("disable %s: %w", token, err))
		}
	}
	return errors.Join(errs...)
}

// CountActive scans the table counting enabled rows. Used only by the stats
// aggregation, never on the send path.
func (r *TokenRepo) CountActive(ctx context.Context) (int64, error) {
	var total int64
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			Select:           types.SelectCount,
			FilterExpression: aws.String("#en = :t"),
			ExpressionAttributeNames: map[string]string{
				"#en": fieldEnable,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberBOOL{Value: true},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, err
		}
		total += int64(out.Count)
		if out.LastEvaluatedKey == nil {
			return total, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// withName copies names and adds one extra alias used by a condition expression.
func withName(names map[string]string, alias, attr string) map[string]string {
	merged := make(map[string]string, len(names)+1)
	for k, v := range names {
		merged[k] = v
	}
	merged[alias] = attr
	return merged
}
