// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrEntityNotFound is returned when no entity matches the requested
	// collection and local id (or server id).
	ErrEntityNotFound = errors.New("entity was not found")

	// ErrPendingOperationNotFound is returned when a pending operation
	// lookup targets an entity with nothing queued.
	ErrPendingOperationNotFound = errors.New("pending operation was not found")

	// ErrOperationSuperseded is returned by Discard when the entity was
	// edited again after the discarded revision was sent. The newer
	// operation stays queued.
	ErrOperationSuperseded = errors.New("pending operation was superseded by a newer revision")

	// ErrEmptyCollection is returned when a method is called with an empty
	// collection name.
	ErrEmptyCollection = errors.New("collection name is empty")

	// ErrEmptyLocalID is returned when a method is called with an empty local
	// id.
	ErrEmptyLocalID = errors.New("local id is empty")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT against the
	// database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a result
	// row fails.
	ErrScanningRow = errors.New("failed to scan row")
)
