package verifier

import (
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNavigationErrorMessage(t *testing.T) {
	cause := errors.New("net::ERR_CONNECTION_REFUSED")

	err := &NavigationError{URL: "http://localhost:3000/", Err: cause}
	assert.Equal(t, "navigation to http://localhost:3000/ failed: net::ERR_CONNECTION_REFUSED", err.Error())
	assert.ErrorIs(t, err, cause)

	err = &NavigationError{URL: "http://localhost:3000/", StatusCode: 404}
	assert.Equal(t, "navigation to http://localhost:3000/ failed with status 404", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestVisibilityTimeoutErrorMessage(t *testing.T) {
	err := &VisibilityTimeoutError{
		Locator: "role=heading[name=/BIENVENIDO A ENERGY/i]",
		Elapsed: 10*time.Second + 3*time.Millisecond + 400*time.Microsecond,
		Err:     ErrWaitTimeout,
	}

	assert.Equal(t, "role=heading[name=/BIENVENIDO A ENERGY/i] not visible after 10.003s", err.Error())
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestFilesystemErrorUnwrap(t *testing.T) {
	err := &FilesystemError{Op: "mkdir", Path: "jules-scratch/verification", Err: fs.ErrPermission}

	assert.Equal(t, "mkdir jules-scratch/verification: permission denied", err.Error())
	assert.ErrorIs(t, err, fs.ErrPermission)
}
