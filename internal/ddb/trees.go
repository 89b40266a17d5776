package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/oklog/ulid/v2"

	"github.com/greengliwice/trees-backend/internal/models"
)

// ByIDIndex is the global secondary index on tree_id.
const ByIDIndex = "ById"

// TreeRepo wraps the Trees table.
type TreeRepo struct {
	DB    API
	Table string
}

// Put assigns a fresh ULID, the keys and the creation time, then writes t.
func (r *TreeRepo) Put(ctx context.Context, t models.Tree) (models.Tree, error) {
	t.ID = ulid.Make().String()
	t.PK, t.SK = MakeKeys(t.UserID, t.ID)
	if t.CreatedAt == "" {
		t.CreatedAt = NowISO()
	}

	av, err := attributevalue.MarshalMap(t)
	if err != nil {
		return models.Tree{}, err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                av,
		ConditionExpression: awsStr("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return models.Tree{}, fmt.Errorf("put tree: %w", err)
	}
	return t, nil
}

// GetForUser fetches one of the user's trees.
func (r *TreeRepo) GetForUser(ctx context.Context, userID, treeID string) (models.Tree, error) {
	pk, sk := MakeKeys(userID, treeID)
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.Table,
		Key:       map[string]types.AttributeValue{"PK": s(pk), "SK": s(sk)},
	})
	if err != nil {
		return models.Tree{}, fmt.Errorf("get tree: %w", err)
	}
	if len(out.Item) == 0 {
		return models.Tree{}, ErrNotFound
	}
	var t models.Tree
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return models.Tree{}, err
	}
	return t, nil
}

// Get fetches a tree by id regardless of owner.
func (r *TreeRepo) Get(ctx context.Context, treeID string) (models.Tree, error) {
	out, err := r.DB.Query(ctx, &dynamodb.QueryInput{
		TableName:                 &r.Table,
		IndexName:                 awsStr(ByIDIndex),
		KeyConditionExpression:    awsStr("tree_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":id": s(treeID)},
		Limit:                     aws32(1),
	})
	if err != nil {
		return models.Tree{}, fmt.Errorf("get tree %s: %w", treeID, err)
	}
	if len(out.Items) == 0 {
		return models.Tree{}, ErrNotFound
	}
	var t models.Tree
	if err := attributevalue.UnmarshalMap(out.Items[0], &t); err != nil {
		return models.Tree{}, err
	}
	return t, nil
}

// ListByUser returns the user's trees oldest first.
func (r *TreeRepo) ListByUser(ctx context.Context, userID string) ([]models.Tree, error) {
	var trees []models.Tree
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.DB.Query(ctx, &dynamodb.QueryInput{
			TableName:              &r.Table,
			KeyConditionExpression: awsStr("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": s(UserPK(userID)),
				":sk": s("TREE#"),
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("list trees: %w", err)
		}
		var page []models.Tree
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		trees = append(trees, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return trees, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// ListAll scans every tree in the table.
func (r *TreeRepo) ListAll(ctx context.Context) ([]models.Tree, error) {
	var trees []models.Tree
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.DB.Scan(ctx, &dynamodb.ScanInput{
			TableName:         &r.Table,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan trees: %w", err)
		}
		var page []models.Tree
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		trees = append(trees, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return trees, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// Delete removes one of the user's trees and returns what was deleted.
func (r *TreeRepo) Delete(ctx context.Context, userID, treeID string) (models.Tree, error) {
	pk, sk := MakeKeys(userID, treeID)
	out, err := r.DB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    &r.Table,
		Key:          map[string]types.AttributeValue{"PK": s(pk), "SK": s(sk)},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return models.Tree{}, fmt.Errorf("delete tree: %w", err)
	}
	if len(out.Attributes) == 0 {
		return models.Tree{}, ErrNotFound
	}
	var t models.Tree
	if err := attributevalue.UnmarshalMap(out.Attributes, &t); err != nil {
		return models.Tree{}, err
	}
	return t, nil
}

func aws32(n int32) *int32 { return &n }
