package ddb

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/greengliwice/trees-backend/internal/models"
)

// LeaderboardRepo wraps the Leaderboard table, one item per user.
type LeaderboardRepo struct {
	DB    API
	Table string
}

func (r *LeaderboardRepo) key(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"PK": s(UserPK(userID))}
}

// Create adds the user's entry. ErrExists if the user already has one.
func (r *LeaderboardRepo) Create(ctx context.Context, userID, userName string, points int) (models.LeaderboardEntry, error) {
	e := models.LeaderboardEntry{
		PK:        UserPK(userID),
		UserID:    userID,
		UserName:  userName,
		Points:    points,
		UpdatedAt: NowISO(),
	}
	av, err := attributevalue.MarshalMap(e)
	if err != nil {
		return models.LeaderboardEntry{}, err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                av,
		ConditionExpression: awsStr("attribute_not_exists(PK)"),
	})
	if isConditionFailed(err) {
		return models.LeaderboardEntry{}, ErrExists
	}
	if err != nil {
		return models.LeaderboardEntry{}, fmt.Errorf("create entry: %w", err)
	}
	return e, nil
}

// Get returns the user's entry.
func (r *LeaderboardRepo) Get(ctx context.Context, userID string) (models.LeaderboardEntry, error) {
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{TableName: &r.Table, Key: r.key(userID)})
	if err != nil {
		return models.LeaderboardEntry{}, fmt.Errorf("get entry: %w", err)
	}
	if len(out.Item) == 0 {
		return models.LeaderboardEntry{}, ErrNotFound
	}
	var e models.LeaderboardEntry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return models.LeaderboardEntry{}, err
	}
	return e, nil
}

// List returns every entry, highest score first.
func (r *LeaderboardRepo) List(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.DB.Scan(ctx, &dynamodb.ScanInput{TableName: &r.Table, ExclusiveStartKey: startKey})
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		var page []models.LeaderboardEntry
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		entries = append(entries, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserName < entries[j].UserName
	})
	return entries, nil
}

// AddPoints atomically adds delta to the user's score. ErrNotFound if the
// user has no entry.
func (r *LeaderboardRepo) AddPoints(ctx context.Context, userID string, delta int) (models.LeaderboardEntry, error) {
	out, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.Table,
		Key:                 r.key(userID),
		UpdateExpression:    awsStr("ADD points :delta SET updated_at = :now"),
		ConditionExpression: awsStr("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: strconv.Itoa(delta)},
			":now":   s(NowISO()),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return models.LeaderboardEntry{}, ErrNotFound
	}
	if err != nil {
		return models.LeaderboardEntry{}, fmt.Errorf("add points: %w", err)
	}
	var e models.LeaderboardEntry
	if err := attributevalue.UnmarshalMap(out.Attributes, &e); err != nil {
		return models.LeaderboardEntry{}, err
	}
	return e, nil
}

// Delete removes the user's entry. Deleting a missing entry is not an error.
func (r *LeaderboardRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.DB.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: &r.Table, Key: r.key(userID)})
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}
