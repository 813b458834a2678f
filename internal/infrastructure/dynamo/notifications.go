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

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser returns a user's notifications newest-first via the
// user_id-created_at GSI. max bounds the number of rows collected; 0 means no
// bound beyond table exhaustion.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, max int32) ([]domain.Notification, error) {
	var notifications []domain.Notification
	var startKey map[string]types.AttributeValue
	for {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("user_id-created_at-index"),
			KeyConditionExpression: aws.String("user_id = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		}
		if max > 0 {
			input.Limit = aws.Int32(max - int32(len(notifications)))
		}
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.Notification
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		notifications = append(notifications, page...)
		if out.LastEvaluatedKey == nil || (max > 0 && int32(len(notifications)) >= max) {
			return notifications, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// CountByUser counts all of a user's notifications for pagination metadata.
func (r *NotificationRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("user_id-created_at-index"),
			KeyConditionExpression: aws.String("user_id = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
			Select:            types.SelectCount,
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

// ListDue returns pending scheduled notifications whose scheduled_at is not
// after now, via the status-scheduled_at GSI. Timestamps are stored as
// RFC3339Nano UTC strings, so lexicographic range comparison is chronological.
func (r *NotificationRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("status-scheduled_at-index"),
		KeyConditionExpression: aws.String("#st = :pending AND scheduled_at <= :now"),
		FilterExpression:       aws.String("#ty = :scheduled"),
		ExpressionAttributeNames: map[string]string{
			"#st": fieldStatus,
			"#ty": "type",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending":   &types.AttributeValueMemberS{Value: string(domain.StatusPending)},
			":scheduled": &types.AttributeValueMemberS{Value: string(domain.NotificationScheduled)},
			":now":       &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return nil, err
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// ClaimPending atomically transitions a row from pending to processing.
// Returns domain.ErrConflict when another sweep already claimed the row, so
// the same due notification is never delivered twice.
func (r *NotificationRepo) ClaimPending(ctx context.Context, notificationID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("notification_id", notificationID),
		ConditionExpression: aws.String("#st = :pending"),
		UpdateExpression:    aws.String("SET #st = :processing"),
		ExpressionAttributeNames: map[string]string{
			"#st": fieldStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending":    &types.AttributeValueMemberS{Value: string(domain.StatusPending)},
			":processing": &types.AttributeValueMemberS{Value: string(domain.StatusProcessing)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("notification already claimed: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// MarkResult writes the terminal status and sent_at for a processed row.
func (r *NotificationRepo) MarkResult(ctx context.Context, notificationID string, status domain.NotificationStatus, sentAt time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus: string(status),
		fieldSentAt: sentAt.UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// MarkRead sets read_at once. The attribute_not_exists guard makes re-marking
// a no-op, so a second call never moves the timestamp.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID string, readAt time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("notification_id", notificationID),
		ConditionExpression: aws.String("attribute_not_exists(#ra)"),
		UpdateExpression:    aws.String("SET #ra = :ra"),
		ExpressionAttributeNames: map[string]string{
			"#ra": fieldReadAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ra": &types.AttributeValueMemberS{Value: readAt.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Already read, so repeating the call is a success.
			return nil
		}
		return err
	}
	return nil
}

// CountAll counts every row in the table.
func (r *NotificationRepo) CountAll(ctx context.Context) (int64, error) {
	return r.scanCount(ctx, nil, nil)
}

// CountByStatus counts rows carrying the given status.
func (r *NotificationRepo) CountByStatus(ctx context.Context, status domain.NotificationStatus) (int64, error) {
	return r.scanCount(ctx,
		aws.String("#st = :s"),
		map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
		},
	)
}

func (r *NotificationRepo) scanCount(ctx context.Context, filter *string, values map[string]types.AttributeValue) (int64, error) {
	var total int64
	var startKey map[string]types.AttributeValue
	for {
		input := &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		}
		if filter != nil {
			input.FilterExpression = filter
			input.ExpressionAttributeNames = map[string]string{"#st": fieldStatus}
			input.ExpressionAttributeValues = values
		}
		out, err := r.client.Scan(ctx, input)
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
