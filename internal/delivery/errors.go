package delivery

import (
	"errors"
	"fmt"
)

var (
	// ErrNoNetwork reports that the server could not be reached.
	ErrNoNetwork = errors.New("no network")

	// ErrRemoteTimeout reports that the server did not answer in time.
	ErrRemoteTimeout = errors.New("remote timeout")
)

// UploadError is a non-2xx answer from the server.
type UploadError struct {
	Op     string
	Status int
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s rejected with status %d", e.Op, e.Status)
}

// IsUploadRejected reports whether err is an UploadError.
func IsUploadRejected(err error) bool {
	var ue *UploadError
	return errors.As(err, &ue)
}

// IsNoNetwork reports whether err means the server was unreachable.
func IsNoNetwork(err error) bool { return errors.Is(err, ErrNoNetwork) }
