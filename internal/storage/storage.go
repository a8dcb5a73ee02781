// Package storage defines persistence contracts for the roll log.
//
// Only evaluated results are stored. Compiled expressions are rebuilt from
// their text whenever they are needed.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested roll record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a roll record with the same ID exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrInvalidPageToken indicates a page token that is malformed or was
	// issued for a different filter.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// RollRecord is one evaluated expression.
type RollRecord struct {
	ID         string
	Expression string
	Value      int64
	// Passed is nil when the expression has no condition.
	Passed     *bool
	Detail     string
	Locale     string
	Seed       int64
	SeedSource string
	CreatedAt  time.Time
}

// RollPageRequest selects one page of the roll log.
type RollPageRequest struct {
	PageSize  int
	PageToken string
	// Expression limits the page to rolls of this exact expression text.
	Expression string
}

// RollPage is one page of records in insertion order, newest first.
type RollPage struct {
	Records []RollRecord
	// NextPageToken is empty on the last page.
	NextPageToken string
}

// RollLog persists roll records.
type RollLog interface {
	AppendRoll(ctx context.Context, record RollRecord) (RollRecord, error)
	GetRoll(ctx context.Context, id string) (RollRecord, error)
	// ListRolls returns the most recent records first.
	ListRolls(ctx context.Context, limit int) ([]RollRecord, error)
	ListRollPage(ctx context.Context, req RollPageRequest) (RollPage, error)
}
