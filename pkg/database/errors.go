package database

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes surfaced to services.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// UniqueViolation reports whether err is a unique constraint violation and
// returns the offending constraint name.
func UniqueViolation(err error) (string, bool) {
	return violation(err, codeUniqueViolation)
}

// ForeignKeyViolation reports whether err is a foreign key violation and
// returns the offending constraint name.
func ForeignKeyViolation(err error) (string, bool) {
	return violation(err, codeForeignKeyViolation)
}

// InvalidTextRepresentation reports whether err came from a value Postgres
// could not parse for its column type, such as a malformed UUID.
func InvalidTextRepresentation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeInvalidText
}

func violation(err error, code pq.ErrorCode) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	if pqErr.Code != code {
		return "", false
	}
	return pqErr.Constraint, true
}
