package ddb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/greengliwice/trees-backend/internal/models"
)

// batchWriteLimit is DynamoDB's per-request item cap for BatchWriteItem.
const batchWriteLimit = 25

// DictRef names one reference-data entry to resolve.
type DictRef struct {
	Type models.DictType
	ID   string
}

// DictRepo wraps the Dicts table: partition "type", sort "id".
type DictRepo struct {
	DB    API
	Table string

	// TableWait bounds how long EnsureTable waits for a new table to turn active.
	TableWait time.Duration
}

// Seed writes items in batches. Seed ids are deterministic, so a replay
// overwrites rather than duplicates.
func (r *DictRepo) Seed(ctx context.Context, items []models.DictItem) error {
	for start := 0; start < len(items); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(items))
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, it := range items[start:end] {
			av, err := attributevalue.MarshalMap(it)
			if err != nil {
				return err
			}
			reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
		}
		out, err := r.DB.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.Table: reqs},
		})
		if err != nil {
			return fmt.Errorf("seed %s: %w", r.Table, err)
		}
		if n := len(out.UnprocessedItems[r.Table]); n > 0 {
			return fmt.Errorf("seed %s: %d items unprocessed", r.Table, n)
		}
	}
	return nil
}

// EnsureSeeded creates the table and seeds it when it was just created or
// is still empty, so a seed that failed on a previous cold start is retried.
func (r *DictRepo) EnsureSeeded(ctx context.Context, items []models.DictItem) (seeded bool, err error) {
	created, err := r.EnsureTable(ctx)
	if err != nil {
		return false, err
	}
	if !created {
		out, err := r.DB.Scan(ctx, &dynamodb.ScanInput{TableName: &r.Table, Limit: aws32(1)})
		if err != nil {
			return false, fmt.Errorf("check %s: %w", r.Table, err)
		}
		if out.Count > 0 {
			return false, nil
		}
	}
	if err := r.Seed(ctx, items); err != nil {
		return false, err
	}
	return true, nil
}

// Resolve fetches every referenced entry in a single BatchGetItem. Entries
// that don't exist are simply absent from the result.
func (r *DictRepo) Resolve(ctx context.Context, refs []DictRef) ([]models.DictItem, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	keys := make([]map[string]types.AttributeValue, 0, len(refs))
	seen := map[DictRef]bool{}
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		keys = append(keys, map[string]types.AttributeValue{"type": s(string(ref.Type)), "id": s(ref.ID)})
	}

	out, err := r.DB.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{r.Table: {Keys: keys}},
	})
	if err != nil {
		return nil, fmt.Errorf("resolve dicts: %w", err)
	}
	if len(out.UnprocessedKeys) > 0 {
		return nil, fmt.Errorf("resolve dicts: %d tables unprocessed", len(out.UnprocessedKeys))
	}

	var items []models.DictItem
	if err := attributevalue.UnmarshalListOfMaps(out.Responses[r.Table], &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListByType returns every entry of one dictionary in insertion order.
func (r *DictRepo) ListByType(ctx context.Context, t models.DictType) ([]models.DictItem, error) {
	var items []models.DictItem
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.DB.Query(ctx, &dynamodb.QueryInput{
			TableName:                 &r.Table,
			KeyConditionExpression:    awsStr("#t = :t"),
			ExpressionAttributeNames:  map[string]string{"#t": "type"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":t": s(string(t))},
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", t, err)
		}
		var page []models.DictItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		items = append(items, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}
