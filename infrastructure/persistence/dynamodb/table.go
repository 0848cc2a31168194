package dynamodb

import (
	"context"
	"errors"
	"time"

	"publication-backend/infrastructure/persistence/store"
	pkgerrors "publication-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableAdmin is the control plane subset needed to provision the table
type TableAdmin interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// TableDefinition returns the CreateTable input for the publication table:
// PK0/SK0 plus one all-projected GSI per secondary index.
func TableDefinition(tableName string) *dynamodb.CreateTableInput {
	input := &dynamodb.CreateTableInput{
		TableName:   aws.String(tableName),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(store.AttrPK0), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(store.AttrSK0), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(store.AttrPK0), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(store.AttrSK0), AttributeType: types.ScalarAttributeTypeS},
		},
	}

	for _, index := range store.Indexes {
		pk, sk := store.KeyAttributes(index)
		input.AttributeDefinitions = append(input.AttributeDefinitions,
			types.AttributeDefinition{AttributeName: aws.String(pk), AttributeType: types.ScalarAttributeTypeS},
			types.AttributeDefinition{AttributeName: aws.String(sk), AttributeType: types.ScalarAttributeTypeS},
		)
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName: aws.String(string(index)),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(sk), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	return input
}

// EnsureTable creates the table unless it already exists and waits until it is active.
// It reports whether the table was created.
func EnsureTable(ctx context.Context, admin TableAdmin, tableName string, maxWait time.Duration) (bool, error) {
	_, err := admin.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)})
	if err == nil {
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, pkgerrors.NewDatabaseError("describe table", err)
	}

	if _, err := admin.CreateTable(ctx, TableDefinition(tableName)); err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return false, pkgerrors.NewDatabaseError("create table", err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(admin)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, maxWait); err != nil {
		return false, pkgerrors.NewUnavailableError("dynamodb", err)
	}
	return true, nil
}
