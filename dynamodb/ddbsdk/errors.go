package ddbsdk

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/sony/gobreaker"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

// classify maps SDK errors onto the ddbiface sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %w", ddbiface.ErrConditionFailed, err)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ConditionalCheckFailedException":
			return fmt.Errorf("%w: %w", ddbiface.ErrConditionFailed, err)
		case "TransactionConflictException":
			return fmt.Errorf("%w: %w", ddbiface.ErrContention, err)
		case "ProvisionedThroughputExceededException",
			"RequestLimitExceeded",
			"ThrottlingException",
			"Throttling",
			"LimitExceededException",
			"InternalServerError",
			"ServiceUnavailable":
			return fmt.Errorf("%w: %w", ddbiface.ErrUnavailable, err)
		case "RequestTimeout", "RequestTimeoutException":
			return fmt.Errorf("%w: %w", ddbiface.ErrTimeout, err)
		}
	}

	var re *smithyhttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() >= 500 {
		return fmt.Errorf("%w: %w", ddbiface.ErrUnavailable, err)
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return fmt.Errorf("%w: %w", ddbiface.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ddbiface.ErrUnavailable, err)
	}
	return err
}

func isTransient(err error) bool {
	return errors.Is(err, ddbiface.ErrUnavailable) || errors.Is(err, ddbiface.ErrTimeout)
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit breaker: %w", ddbiface.ErrUnavailable, err)
	}
	return err
}
