package dynamodb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"publication-backend/infrastructure/persistence/store"
	"publication-backend/infrastructure/persistence/store/storetest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// startDynamoDBLocal runs amazon/dynamodb-local and returns a client for it
func startDynamoDBLocal(ctx context.Context, t *testing.T) *dynamodb.Client {
	req := testcontainers.ContainerRequest{
		Image:        "amazon/dynamodb-local:latest",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
		WaitingFor:   wait.ForListeningPort("8000/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8000")
	require.NoError(t, err)

	return dynamodb.New(dynamodb.Options{
		Region:       "eu-west-1",
		BaseEndpoint: aws.String(fmt.Sprintf("http://%s:%s", host, port.Port())),
		Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
	})
}

func TestDynamoDBLocalConformance(t *testing.T) {
	if os.Getenv("RUN_DYNAMODB_LOCAL") == "" {
		t.Skip("set RUN_DYNAMODB_LOCAL=1 to run against a dynamodb-local container")
	}

	ctx := context.Background()
	client := startDynamoDBLocal(ctx, t)

	storetest.Run(t, func(t *testing.T) store.Store {
		table := "publications-" + uuid.NewString()[:8]
		_, err := EnsureTable(ctx, client, table, 30*time.Second)
		require.NoError(t, err)
		return NewStore(client, table, zap.NewNop())
	})
}
