package db

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrValidationFailure       = errors.New("document failed schema validation")
	ErrDuplicateKey            = errors.New("duplicate key")
	ErrCollectionAlreadyExists = errors.New("collection already exists")
	ErrIndexBuildConflict      = errors.New("index build conflicts with existing data")
	ErrConnection              = errors.New("database connection error")
	ErrQueryExecution          = errors.New("query execution failed")
	ErrVehicleNotFound         = errors.New("vehicle not found")
)

// Server error codes, see src/mongo/base/error_codes.yml.
const (
	codeNamespaceExists           = 48
	codeDocumentValidationFailure = 121
)

var taxonomy = []error{
	ErrValidationFailure,
	ErrDuplicateKey,
	ErrCollectionAlreadyExists,
	ErrIndexBuildConflict,
	ErrConnection,
	ErrQueryExecution,
	ErrVehicleNotFound,
}

// Classify tags a driver error with the matching fleet error so callers can
// test it with errors.Is. Errors that match nothing are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range taxonomy {
		if errors.Is(err, kind) {
			return err
		}
	}

	switch {
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return wrap(ErrConnection, err)
	case mongo.IsDuplicateKeyError(err):
		return wrap(ErrDuplicateKey, err)
	case hasCode(err, codeDocumentValidationFailure):
		return wrap(ErrValidationFailure, err)
	case hasCode(err, codeNamespaceExists):
		return wrap(ErrCollectionAlreadyExists, err)
	}
	return err
}

// ClassifyQuery is Classify for read paths: anything that is not a
// connection problem becomes ErrQueryExecution.
func ClassifyQuery(err error) error {
	err = Classify(err)
	if err == nil || errors.Is(err, ErrConnection) || errors.Is(err, ErrQueryExecution) {
		return err
	}
	return wrap(ErrQueryExecution, err)
}

func hasCode(err error, code int) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(code)
}

func wrap(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}
