package dynamodb

import (
	"context"
	"errors"

	pkgerrors "publication-backend/pkg/errors"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// throttlingCodes are API error codes that mean "try again later"
var throttlingCodes = map[string]bool{
	"ThrottlingException":                    true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
}

// translateReadError maps infrastructure failures that are not condition
// failures. Nothing store specific leaves this package.
func (s *Store) translateReadError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.NewUnavailableError("dynamodb", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if throttlingCodes[apiErr.ErrorCode()] {
			s.logger.Warn("DynamoDB throttled",
				zap.String("operation", operation),
				zap.String("code", apiErr.ErrorCode()))
			return pkgerrors.NewUnavailableError("dynamodb", err)
		}
		s.logger.Error("DynamoDB request failed",
			zap.String("operation", operation),
			zap.String("code", apiErr.ErrorCode()),
			zap.String("message", apiErr.ErrorMessage()))
		return pkgerrors.NewDatabaseError(operation, err).WithCode(apiErr.ErrorCode())
	}

	s.logger.Error("DynamoDB request failed", zap.String("operation", operation), zap.Error(err))
	return pkgerrors.NewDatabaseError(operation, err)
}
