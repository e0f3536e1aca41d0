package blob

import (
	"errors"

	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// StoreError is returned when the AWS session or S3 client cannot be
// initialized.
type StoreError struct {
	Msg string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// CredentialsError is returned when AWS credentials cannot be resolved.
// Warehouse connectors demote it to a warning and run with object storage
// disabled.
type CredentialsError struct {
	Err error
}

func (e *CredentialsError) Error() string {
	if e.Err != nil {
		return "credentials could not be set: " + e.Err.Error()
	}
	return "credentials could not be set"
}

func (e *CredentialsError) Unwrap() error { return e.Err }

// UploadError wraps any transport failure while uploading an object.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return "error uploading to S3: " + e.Err.Error()
	}
	return "error uploading to S3"
}

func (e *UploadError) Unwrap() error { return e.Err }

// DownloadError wraps any transport failure while downloading an object.
type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return "error downloading from S3: " + e.Err.Error()
	}
	return "error downloading from S3"
}

func (e *DownloadError) Unwrap() error { return e.Err }

// DeletionError wraps any transport failure while deleting an object.
type DeletionError struct {
	Err error
}

func (e *DeletionError) Error() string {
	if e.Err != nil {
		return "error deleting from S3: " + e.Err.Error()
	}
	return "error deleting from S3"
}

func (e *DeletionError) Unwrap() error { return e.Err }

// httpStatus extracts the HTTP status code from a transport error, or 0 if
// the error did not make it to an HTTP response.
func httpStatus(err error) int {
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}
