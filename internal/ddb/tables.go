package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const defaultTableWait = 2 * time.Minute

// ensureTable creates a table and waits for it to become active. created is
// false when the table already existed.
func ensureTable(ctx context.Context, db API, in *dynamodb.CreateTableInput, wait time.Duration) (created bool, err error) {
	in.BillingMode = types.BillingModePayPerRequest
	_, err = db.CreateTable(ctx, in)
	if isTableExists(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create table %s: %w", *in.TableName, err)
	}

	if wait <= 0 {
		wait = defaultTableWait
	}
	waiter := dynamodb.NewTableExistsWaiter(db)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: in.TableName}, wait); err != nil {
		return true, fmt.Errorf("wait table %s: %w", *in.TableName, err)
	}
	return true, nil
}

func stringKey(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: awsStr(name), AttributeType: types.ScalarAttributeTypeS}
}

func keyElem(name string, kt types.KeyType) types.KeySchemaElement {
	return types.KeySchemaElement{AttributeName: awsStr(name), KeyType: kt}
}

// EnsureTable creates the Trees table with its ById index.
func (r *TreeRepo) EnsureTable(ctx context.Context) (bool, error) {
	return ensureTable(ctx, r.DB, &dynamodb.CreateTableInput{
		TableName:            &r.Table,
		AttributeDefinitions: []types.AttributeDefinition{stringKey("PK"), stringKey("SK"), stringKey("tree_id")},
		KeySchema:            []types.KeySchemaElement{keyElem("PK", types.KeyTypeHash), keyElem("SK", types.KeyTypeRange)},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName:  awsStr(ByIDIndex),
			KeySchema:  []types.KeySchemaElement{keyElem("tree_id", types.KeyTypeHash)},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
	}, 0)
}

// EnsureTable creates the Leaderboard table.
func (r *LeaderboardRepo) EnsureTable(ctx context.Context) (bool, error) {
	return ensureTable(ctx, r.DB, &dynamodb.CreateTableInput{
		TableName:            &r.Table,
		AttributeDefinitions: []types.AttributeDefinition{stringKey("PK")},
		KeySchema:            []types.KeySchemaElement{keyElem("PK", types.KeyTypeHash)},
	}, 0)
}

// EnsureTable creates the Dicts table: partition "type", sort "id".
func (r *DictRepo) EnsureTable(ctx context.Context) (created bool, err error) {
	return ensureTable(ctx, r.DB, &dynamodb.CreateTableInput{
		TableName:            &r.Table,
		AttributeDefinitions: []types.AttributeDefinition{stringKey("type"), stringKey("id")},
		KeySchema:            []types.KeySchemaElement{keyElem("type", types.KeyTypeHash), keyElem("id", types.KeyTypeRange)},
	}, r.TableWait)
}
