// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ormkit/ormkit/pkg/migration"
)

func TestExitCodeNilIsZero(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
}

func TestExitCodeValidationErrorsAreTwo(t *testing.T) {
	cases := []error{
		migration.SchemaValidationError{Kind: migration.EntityHasNoColumns, Table: "t"},
		migration.InvalidDatetimeError{Datetime: "bad"},
		migration.DirectoryMissingError{Dir: "/nope"},
		migration.DuplicateVersionError{Version: "202601010000"},
	}
	for _, err := range cases {
		assert.Equal(t, 2, exitCode(err), "%T", err)
	}
}

func TestExitCodeDatabaseErrorsAreThree(t *testing.T) {
	cases := []error{
		migration.AlreadyExecutedError{Version: "202601010000"},
		migration.OrphanExecutedError{Version: "202601010000"},
		migration.FailedError{Version: "202601010000", Err: errors.New("boom")},
	}
	for _, err := range cases {
		assert.Equal(t, 3, exitCode(err), "%T", err)
	}
}

func TestExitCodeGenericErrorIsOne(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("something else")))
}

func TestExitCodeWrappedErrorStillTranslates(t *testing.T) {
	wrapped := errors.New("context: " + migration.AlreadyExecutedError{Version: "x"}.Error())
	// errors.New does not preserve the type, so a plainly-wrapped string
	// should fall through to the generic exit code.
	assert.Equal(t, 1, exitCode(wrapped))

	asErrorsAs := fmtErrorf(migration.AlreadyExecutedError{Version: "x"})
	assert.Equal(t, 3, exitCode(asErrorsAs))
}

func fmtErrorf(err error) error {
	return errWrap{err}
}

type errWrap struct{ err error }

func (e errWrap) Error() string { return "wrapped: " + e.err.Error() }
func (e errWrap) Unwrap() error { return e.err }
