// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package idalloc hands out identifier blocks from a shared database row,
// so multiple area nodes can mint object identifiers without colliding.
package idalloc

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/areanode/internal/model"
)

// BlockSize is the number of identifiers claimed per round trip to the
// database, matching the original schema's Config.FieldNumber increment.
const BlockSize = 5000

// Allocator hands out model.ID values in blocks of BlockSize, refilling
// from the database only when the current block is exhausted. An Allocator
// is not safe for concurrent use.
type Allocator struct {
	db *sql.DB

	next model.ID
	end  model.ID // exclusive
}

// New constructs an Allocator against db. The first Next call triggers the
// first block claim.
func New(db *sql.DB) *Allocator {
	return &Allocator{db: db}
}

// Next returns the next unused identifier, claiming a fresh block from the
// database when the current one is exhausted.
func (a *Allocator) Next(ctx context.Context) (model.ID, error) {
	if a.next >= a.end {
		if err := a.claimBlock(ctx); err != nil {
			return 0, err
		}
	}
	id := a.next
	a.next++
	return id, nil
}

// claimBlock atomically advances the shared Config.NextId row by BlockSize
// and adopts the resulting range, grounded on the schema's
//
//	UPDATE Config SET FieldNumber = FieldNumber + 5000
//	WHERE FieldName = 'NextId' RETURNING FieldNumber
//
// contract: the row stores the exclusive end of the last-claimed block, so
// the new block is [returned-5000, returned).
func (a *Allocator) claimBlock(ctx context.Context) error {
	row := a.db.QueryRowContext(ctx,
		`UPDATE Config SET FieldNumber = FieldNumber + ? WHERE FieldName = 'NextId' RETURNING FieldNumber`,
		BlockSize)

	var newEnd int64
	if err := row.Scan(&newEnd); err != nil {
		return fmt.Errorf("claim id block: %w", err)
	}
	a.end = model.ID(newEnd)
	a.next = a.end - BlockSize
	return nil
}
