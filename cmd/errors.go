// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"

	"github.com/ormkit/ormkit/pkg/migration"
)

// exitCode translates an error kind into a process exit code:
// 0 success, 1 generic error, 2 validation error, 3 database error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var validationErr migration.SchemaValidationError
	var invalidDatetimeErr migration.InvalidDatetimeError
	var dirMissingErr migration.DirectoryMissingError
	var duplicateErr migration.DuplicateVersionError
	if errors.As(err, &validationErr) || errors.As(err, &invalidDatetimeErr) ||
		errors.As(err, &dirMissingErr) || errors.As(err, &duplicateErr) {
		return 2
	}

	var alreadyExecutedErr migration.AlreadyExecutedError
	var orphanExecutedErr migration.OrphanExecutedError
	var failedErr migration.FailedError
	if errors.As(err, &alreadyExecutedErr) || errors.As(err, &orphanExecutedErr) || errors.As(err, &failedErr) {
		return 3
	}

	return 1
}
