// Package dynamodb implements store.Store on a DynamoDB single table with
// three global secondary indexes.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"publication-backend/infrastructure/persistence/store"
	pkgerrors "publication-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DynamoClient is the subset of the DynamoDB API the store uses
type DynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store is a store.Store on one DynamoDB table
type Store struct {
	client    DynamoClient
	tableName string
	logger    *zap.Logger
}

// NewStore creates a store writing to tableName
func NewStore(client DynamoClient, tableName string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// TransactWrite implements store.Store. A single op is sent as a conditional
// PutItem or DeleteItem; several ops go through TransactWriteItems.
func (s *Store) TransactWrite(ctx context.Context, ops []store.WriteOp) error {
	if err := store.CheckTransaction(ops); err != nil {
		return err
	}
	if len(ops) == 1 {
		return s.writeSingle(ctx, ops[0])
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		item, err := s.transactItem(op)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return s.translateTransactionError(ops, err)
	}

	s.logger.Debug("Transaction committed", zap.String("table", s.tableName), zap.Int("items", len(ops)))
	return nil
}

func (s *Store) writeSingle(ctx context.Context, op store.WriteOp) error {
	expr, hasCondition, err := conditionExpression(op.Condition)
	if err != nil {
		return err
	}

	switch op.Kind {
	case store.OpPut:
		item, err := attributevalue.MarshalMap(op.Record)
		if err != nil {
			return pkgerrors.NewInternalError("marshal record").WithCause(err)
		}
		input := &dynamodb.PutItemInput{
			TableName:                           aws.String(s.tableName),
			Item:                                item,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		}
		if hasCondition {
			input.ConditionExpression = expr.Condition()
			input.ExpressionAttributeNames = expr.Names()
			input.ExpressionAttributeValues = expr.Values()
		}
		_, err = s.client.PutItem(ctx, input)
		if err != nil {
			return s.translateSingleError(op, err)
		}

	case store.OpDelete:
		input := &dynamodb.DeleteItemInput{
			TableName:                           aws.String(s.tableName),
			Key:                                 keyAttributes(op.Key),
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		}
		if hasCondition {
			input.ConditionExpression = expr.Condition()
			input.ExpressionAttributeNames = expr.Names()
			input.ExpressionAttributeValues = expr.Values()
		}
		_, err = s.client.DeleteItem(ctx, input)
		if err != nil {
			return s.translateSingleError(op, err)
		}
	}

	s.logger.Debug("Item written",
		zap.String("table", s.tableName),
		zap.String("pk", op.Target().PartitionKey),
		zap.String("sk", op.Target().SortKey))
	return nil
}

func (s *Store) transactItem(op store.WriteOp) (types.TransactWriteItem, error) {
	expr, hasCondition, err := conditionExpression(op.Condition)
	if err != nil {
		return types.TransactWriteItem{}, err
	}

	switch op.Kind {
	case store.OpPut:
		item, err := attributevalue.MarshalMap(op.Record)
		if err != nil {
			return types.TransactWriteItem{}, pkgerrors.NewInternalError("marshal record").WithCause(err)
		}
		put := &types.Put{
			TableName:                           aws.String(s.tableName),
			Item:                                item,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		}
		if hasCondition {
			put.ConditionExpression = expr.Condition()
			put.ExpressionAttributeNames = expr.Names()
			put.ExpressionAttributeValues = expr.Values()
		}
		return types.TransactWriteItem{Put: put}, nil

	default:
		del := &types.Delete{
			TableName:                           aws.String(s.tableName),
			Key:                                 keyAttributes(op.Key),
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		}
		if hasCondition {
			del.ConditionExpression = expr.Condition()
			del.ExpressionAttributeNames = expr.Names()
			del.ExpressionAttributeValues = expr.Values()
		}
		return types.TransactWriteItem{Delete: del}, nil
	}
}

// Get implements store.Store with a strongly consistent read
func (s *Store) Get(ctx context.Context, key store.Key) (store.Record, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            keyAttributes(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return store.Record{}, false, s.translateReadError("get", err)
	}
	if len(out.Item) == 0 {
		return store.Record{}, false, nil
	}

	var record store.Record
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return store.Record{}, false, pkgerrors.NewInternalError("unmarshal record").WithCause(err)
	}
	return record, true, nil
}

// Query implements store.Store. Pages are followed until the partition is
// exhausted or the limit is reached.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	pkAttr, skAttr := store.KeyAttributes(q.Index)
	keyCond := expression.Key(pkAttr).Equal(expression.Value(q.PartitionKey))
	if q.SortKeyPrefix != "" {
		keyCond = keyCond.And(expression.Key(skAttr).BeginsWith(q.SortKeyPrefix))
	}

	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("build key condition").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!q.Descending),
	}
	if q.Index != store.IndexPrimary {
		input.IndexName = aws.String(string(q.Index))
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}

	var records []store.Record
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.translateReadError("query", err)
		}

		var batch []store.Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, pkgerrors.NewInternalError("unmarshal records").WithCause(err)
		}
		records = append(records, batch...)

		if q.Limit > 0 && len(records) >= q.Limit {
			records = records[:q.Limit]
			break
		}
	}

	s.logger.Debug("Query completed",
		zap.String("index", string(q.Index)),
		zap.String("partition", q.PartitionKey),
		zap.Int("count", len(records)))
	return records, nil
}

// conditionExpression builds the expression for c; the bool is false for ConditionNone
func conditionExpression(c store.Condition) (expression.Expression, bool, error) {
	var cond expression.ConditionBuilder
	switch c.Kind {
	case store.ConditionNone:
		return expression.Expression{}, false, nil
	case store.ConditionNotExists:
		cond = expression.Name(store.AttrPK0).AttributeNotExists()
	case store.ConditionExists:
		cond = expression.Name(store.AttrPK0).AttributeExists()
	case store.ConditionVersionEquals:
		cond = expression.Name(store.AttrVersion).Equal(expression.Value(c.Version))
	default:
		return expression.Expression{}, false, pkgerrors.NewInternalError(fmt.Sprintf("unknown condition kind %d", c.Kind))
	}

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return expression.Expression{}, false, pkgerrors.NewInternalError("build condition").WithCause(err)
	}
	return expr, true, nil
}

func keyAttributes(key store.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		store.AttrPK0: &types.AttributeValueMemberS{Value: key.PartitionKey},
		store.AttrSK0: &types.AttributeValueMemberS{Value: key.SortKey},
	}
}

// conditionFailure maps a failed precondition to the taxonomy. old is the
// item as it was when the condition failed; an empty old item means the
// target did not exist.
func conditionFailure(op store.WriteOp, old map[string]types.AttributeValue) error {
	var current store.Record
	exists := len(old) > 0
	if exists {
		if err := attributevalue.UnmarshalMap(old, &current); err != nil {
			return pkgerrors.NewConflictError("condition failed on " + op.Target().SortKey)
		}
	}
	if err := store.Evaluate(op, current, exists); err != nil {
		return err
	}
	// The item changed between the failure and our view of it
	return pkgerrors.NewConflictError("condition failed on " + op.Target().SortKey)
}

func (s *Store) translateSingleError(op store.WriteOp, err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		mapped := conditionFailure(op, ccf.Item)
		s.logger.Warn("Conditional write rejected",
			zap.String("pk", op.Target().PartitionKey),
			zap.String("sk", op.Target().SortKey),
			zap.Error(mapped))
		return mapped
	}
	return s.translateReadError("write", err)
}

func (s *Store) translateTransactionError(ops []store.WriteOp, err error) error {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for i, reason := range canceled.CancellationReasons {
			if i >= len(ops) {
				break
			}
			switch aws.ToString(reason.Code) {
			case "", "None":
				continue
			case "ConditionalCheckFailed":
				mapped := conditionFailure(ops[i], reason.Item)
				s.logger.Warn("Transaction condition rejected",
					zap.Int("item", i),
					zap.String("sk", ops[i].Target().SortKey),
					zap.Error(mapped))
				return mapped
			case "TransactionConflict":
				return pkgerrors.NewConflictError("concurrent transaction on " + ops[i].Target().SortKey)
			case "ThrottlingError", "ProvisionedThroughputExceeded":
				return pkgerrors.NewUnavailableError("dynamodb", err)
			default:
				s.logger.Error("Transaction canceled",
					zap.Int("item", i),
					zap.String("code", aws.ToString(reason.Code)),
					zap.String("message", aws.ToString(reason.Message)))
				return pkgerrors.NewDatabaseError("transact write", err)
			}
		}
		return pkgerrors.NewConflictError("transaction canceled")
	}

	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return pkgerrors.NewConflictError("concurrent transaction")
	}
	return s.translateReadError("transact write", err)
}
