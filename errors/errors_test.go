package errors_test

import (
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/dargueta/llfs/errors"
	"github.com/stretchr/testify/assert"
)

func TestDriverErrorWithMessage(t *testing.T) {
	newErr := errors.ErrNoSpaceOnDevice.WithMessage("asdfqwerty")
	assert.Equal(
		t, "No space left on device: asdfqwerty", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, errors.ErrNoSpaceOnDevice)
	assert.Equal(t, errors.ENOSPC, newErr.Errno())
}

func TestDriverErrorWithMessage__Chained(t *testing.T) {
	specific := errors.ErrNoSpaceOnDevice.WithMessage("directory full")
	detailed := specific.WithMessage("can't add \"x\"")

	assert.ErrorIs(t, detailed, specific)
	assert.ErrorIs(t, detailed, errors.ErrNoSpaceOnDevice)
	assert.NotErrorIs(t, detailed, errors.ErrFileTooLarge)
}

func TestDriverErrorWrap(t *testing.T) {
	originalErr := goerrors.New("original error")
	newErr := errors.ErrExists.Wrap(originalErr)
	expectedMessage := "File exists: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, errors.ErrExists, "driver error not set as parent")
}

func TestStrError__Unknown(t *testing.T) {
	assert.Equal(t, "error 9999 not recognized.", errors.StrError(9999))
	assert.Equal(t, "Structure needs cleaning", errors.ErrFileSystemCorrupted.Error())
}

func TestCastToDriverError(t *testing.T) {
	assert.Nil(t, errors.CastToDriverError(nil))

	same := errors.ErrBusy
	assert.Equal(t, same, errors.CastToDriverError(same))

	plain := goerrors.New("disk fell over")
	cast := errors.CastToDriverError(plain)
	assert.Equal(t, errors.EIO, cast.Errno())
	assert.ErrorIs(t, cast, plain)

	wrapped := fmt.Errorf("context: %w", errors.ErrNotFound)
	cast = errors.CastToDriverError(wrapped)
	assert.Equal(t, errors.ENOENT, cast.Errno())
	assert.ErrorIs(t, cast, errors.ErrNotFound)
}
