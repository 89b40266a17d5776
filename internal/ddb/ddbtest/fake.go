// Package ddbtest provides an in-memory stand-in for the DynamoDB client
// used by the repositories' tests.
package ddbtest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type table struct {
	hash, rng string
	indexes   map[string]string // index name -> hash attribute
	items     map[string]map[string]types.AttributeValue
}

// Fake implements ddb.API over maps. It understands the handful of
// expressions the repositories emit. It is safe for concurrent use.
type Fake struct {
	// PageSize, when positive, caps the items returned by Query and Scan so
	// callers must follow LastEvaluatedKey.
	PageSize int

	mu     sync.Mutex
	tables map[string]*table
	calls  map[string]int
	fail   map[string]error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{tables: map[string]*table{}, calls: map[string]int{}, fail: map[string]error{}}
}

// Define registers a table with its key schema and optional hash-only
// secondary indexes given as name/attribute pairs.
func (f *Fake) Define(name, hash, rng string, indexes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &table{hash: hash, rng: rng, indexes: map[string]string{}, items: map[string]map[string]types.AttributeValue{}}
	for i := 0; i+1 < len(indexes); i += 2 {
		t.indexes[indexes[i]] = indexes[i+1]
	}
	f.tables[name] = t
}

// Fail makes every later call to op return err.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

// Calls reports how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Total reports the number of calls of any kind.
func (f *Fake) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// Len reports how many items the table holds.
func (f *Fake) Len(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tables[name]; ok {
		return len(t.items)
	}
	return 0
}

func (f *Fake) enter(op, name string) (*table, error) {
	f.calls[op]++
	if err := f.fail[op]; err != nil {
		return nil, err
	}
	t, ok := f.tables[name]
	if !ok && op != "CreateTable" {
		return nil, &types.ResourceNotFoundException{Message: strPtr("table " + name + " not found")}
	}
	return t, nil
}

func strPtr(s string) *string { return &s }

func scalar(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	case nil:
		return ""
	default:
		return fmt.Sprintf("%T", av)
	}
}

func (t *table) keyOf(item map[string]types.AttributeValue) string {
	k := scalar(item[t.hash])
	if t.rng != "" {
		k += "|" + scalar(item[t.rng])
	}
	return k
}

func (t *table) sorted() []map[string]types.AttributeValue {
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, clone(t.items[k]))
	}
	return out
}

func clone(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *Fake) page(t *table, items []map[string]types.AttributeValue, start map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	if len(start) > 0 {
		after := t.keyOf(start)
		for i, it := range items {
			if t.keyOf(it) == after {
				items = items[i+1:]
				break
			}
		}
	}
	if f.PageSize <= 0 || len(items) <= f.PageSize {
		return items, nil
	}
	items = items[:f.PageSize]
	last := items[len(items)-1]
	lek := map[string]types.AttributeValue{t.hash: last[t.hash]}
	if t.rng != "" {
		lek[t.rng] = last[t.rng]
	}
	return items, lek
}

func conditionFails(cond *string, exists bool) bool {
	if cond == nil {
		return false
	}
	switch {
	case strings.Contains(*cond, "attribute_not_exists"):
		return exists
	case strings.Contains(*cond, "attribute_exists"):
		return !exists
	}
	return false
}

func conditionErr() error {
	return &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
}

func (f *Fake) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("PutItem", *in.TableName)
	if err != nil {
		return nil, err
	}
	k := t.keyOf(in.Item)
	_, exists := t.items[k]
	if conditionFails(in.ConditionExpression, exists) {
		return nil, conditionErr()
	}
	t.items[k] = clone(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *Fake) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("GetItem", *in.TableName)
	if err != nil {
		return nil, err
	}
	out := &dynamodb.GetItemOutput{}
	if item, ok := t.items[t.keyOf(in.Key)]; ok {
		out.Item = clone(item)
	}
	return out, nil
}

func (f *Fake) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("DeleteItem", *in.TableName)
	if err != nil {
		return nil, err
	}
	k := t.keyOf(in.Key)
	old, exists := t.items[k]
	if conditionFails(in.ConditionExpression, exists) {
		return nil, conditionErr()
	}
	delete(t.items, k)
	out := &dynamodb.DeleteItemOutput{}
	if exists && in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

var (
	addClause = regexp.MustCompile(`ADD (\w+) (:\w+)`)
	setClause = regexp.MustCompile(`SET (\w+) = (:\w+)`)
)

func (f *Fake) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("UpdateItem", *in.TableName)
	if err != nil {
		return nil, err
	}
	k := t.keyOf(in.Key)
	item, exists := t.items[k]
	if conditionFails(in.ConditionExpression, exists) {
		return nil, conditionErr()
	}
	if !exists {
		item = clone(in.Key)
	} else {
		item = clone(item)
	}

	expr := ""
	if in.UpdateExpression != nil {
		expr = *in.UpdateExpression
	}
	for _, m := range addClause.FindAllStringSubmatch(expr, -1) {
		delta, ok := in.ExpressionAttributeValues[m[2]].(*types.AttributeValueMemberN)
		if !ok {
			return nil, errors.New("ddbtest: ADD needs a number")
		}
		d, _ := strconv.Atoi(delta.Value)
		cur := 0
		if n, ok := item[m[1]].(*types.AttributeValueMemberN); ok {
			cur, _ = strconv.Atoi(n.Value)
		}
		item[m[1]] = &types.AttributeValueMemberN{Value: strconv.Itoa(cur + d)}
	}
	for _, m := range setClause.FindAllStringSubmatch(expr, -1) {
		item[m[1]] = in.ExpressionAttributeValues[m[2]]
	}
	t.items[k] = item

	out := &dynamodb.UpdateItemOutput{}
	if in.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = clone(item)
	}
	return out, nil
}

var (
	eqCond    = regexp.MustCompile(`(#?\w+) = (:\w+)`)
	beginCond = regexp.MustCompile(`begins_with\((#?\w+), (:\w+)\)`)
)

func attrName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		return names[name]
	}
	return name
}

func (f *Fake) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("Query", *in.TableName)
	if err != nil {
		return nil, err
	}
	expr := *in.KeyConditionExpression
	eq := eqCond.FindStringSubmatch(expr)
	if eq == nil {
		return nil, fmt.Errorf("ddbtest: unsupported key condition %q", expr)
	}
	attr := attrName(eq[1], in.ExpressionAttributeNames)
	if in.IndexName != nil {
		if _, ok := t.indexes[*in.IndexName]; !ok {
			return nil, fmt.Errorf("ddbtest: no index %s", *in.IndexName)
		}
	}
	want := scalar(in.ExpressionAttributeValues[eq[2]])

	var prefixAttr, prefix string
	if b := beginCond.FindStringSubmatch(expr); b != nil {
		prefixAttr = attrName(b[1], in.ExpressionAttributeNames)
		if sv, ok := in.ExpressionAttributeValues[b[2]].(*types.AttributeValueMemberS); ok {
			prefix = sv.Value
		}
	}

	var matched []map[string]types.AttributeValue
	for _, it := range t.sorted() {
		if scalar(it[attr]) != want {
			continue
		}
		if prefixAttr != "" {
			sv, ok := it[prefixAttr].(*types.AttributeValueMemberS)
			if !ok || !strings.HasPrefix(sv.Value, prefix) {
				continue
			}
		}
		matched = append(matched, it)
	}
	if in.Limit != nil && int(*in.Limit) < len(matched) {
		matched = matched[:*in.Limit]
	}
	items, lek := f.page(t, matched, in.ExclusiveStartKey)
	return &dynamodb.QueryOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: lek}, nil
}

func (f *Fake) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.enter("Scan", *in.TableName)
	if err != nil {
		return nil, err
	}
	all := t.sorted()
	if in.Limit != nil && int(*in.Limit) < len(all) {
		all = all[:*in.Limit]
	}
	items, lek := f.page(t, all, in.ExclusiveStartKey)
	return &dynamodb.ScanOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: lek}, nil
}

func (f *Fake) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["BatchGetItem"]++
	if err := f.fail["BatchGetItem"]; err != nil {
		return nil, err
	}
	out := &dynamodb.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{}}
	for name, ka := range in.RequestItems {
		t, ok := f.tables[name]
		if !ok {
			return nil, &types.ResourceNotFoundException{Message: strPtr("table " + name + " not found")}
		}
		for _, key := range ka.Keys {
			if item, ok := t.items[t.keyOf(key)]; ok {
				out.Responses[name] = append(out.Responses[name], clone(item))
			}
		}
	}
	return out, nil
}

func (f *Fake) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["BatchWriteItem"]++
	if err := f.fail["BatchWriteItem"]; err != nil {
		return nil, err
	}
	for name, reqs := range in.RequestItems {
		t, ok := f.tables[name]
		if !ok {
			return nil, &types.ResourceNotFoundException{Message: strPtr("table " + name + " not found")}
		}
		if len(reqs) > 25 {
			return nil, errors.New("ddbtest: too many items in batch")
		}
		for _, r := range reqs {
			switch {
			case r.PutRequest != nil:
				t.items[t.keyOf(r.PutRequest.Item)] = clone(r.PutRequest.Item)
			case r.DeleteRequest != nil:
				delete(t.items, t.keyOf(r.DeleteRequest.Key))
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *Fake) CreateTable(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["CreateTable"]++
	if err := f.fail["CreateTable"]; err != nil {
		return nil, err
	}
	if _, ok := f.tables[*in.TableName]; ok {
		return nil, &types.ResourceInUseException{Message: strPtr("Table already exists: " + *in.TableName)}
	}
	t := &table{indexes: map[string]string{}, items: map[string]map[string]types.AttributeValue{}}
	for _, k := range in.KeySchema {
		if k.KeyType == types.KeyTypeHash {
			t.hash = *k.AttributeName
		} else {
			t.rng = *k.AttributeName
		}
	}
	for _, gsi := range in.GlobalSecondaryIndexes {
		for _, k := range gsi.KeySchema {
			if k.KeyType == types.KeyTypeHash {
				t.indexes[*gsi.IndexName] = *k.AttributeName
			}
		}
	}
	f.tables[*in.TableName] = t
	return &dynamodb.CreateTableOutput{
		TableDescription: &types.TableDescription{TableName: in.TableName, TableStatus: types.TableStatusCreating},
	}, nil
}

func (f *Fake) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.enter("DescribeTable", *in.TableName); err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{TableName: in.TableName, TableStatus: types.TableStatusActive},
	}, nil
}
