package main

import (
	"fmt"

	"publication-backend/infrastructure/config"
	"publication-backend/infrastructure/di"
	"publication-backend/infrastructure/persistence/dynamodb"

	"github.com/spf13/cobra"
)

var createTableCmd = &cobra.Command{
	Use:   "create-table",
	Short: "Create the DynamoDB table and its indexes",
	Long: `Create the table named by TABLE_NAME with the primary key and the three
secondary indexes, then wait until it is active. An existing table is left
untouched.

Example:
  DYNAMODB_ENDPOINT=http://localhost:8000 tablectl create-table`,
	Args: cobra.NoArgs,
	RunE: runCreateTable,
}

func runCreateTable(cmd *cobra.Command, args []string) error {
	if cfg.StoreBackend != config.StoreDynamoDB {
		return fmt.Errorf("create-table needs STORE_BACKEND=%s, got %s", config.StoreDynamoDB, cfg.StoreBackend)
	}

	awsCfg, err := di.ProvideAWSConfig(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	client := di.ProvideDynamoDBClient(awsCfg, cfg)

	created, err := dynamodb.EnsureTable(cmd.Context(), client, cfg.TableName, cfg.TableWaitTimeout)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if created {
		fmt.Printf("Table %s created\n", cfg.TableName)
	} else {
		fmt.Printf("Table %s already exists\n", cfg.TableName)
	}
	return nil
}
