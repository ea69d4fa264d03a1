package store_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomtom215/areanode/internal/store"
)

func TestIsConflictRecognizesDuckDBMessages(t *testing.T) {
	assert.True(t, store.IsConflict(errors.New("Transaction conflict: write-write conflict")))
	assert.True(t, store.IsConflict(errors.New("Conflict on update of table Objects")))
	assert.True(t, store.IsConflict(errors.New("cannot update a table that has been altered")))
	assert.False(t, store.IsConflict(nil))
	assert.False(t, store.IsConflict(errors.New("syntax error near SELECT")))
}

func TestIsConnectionLost(t *testing.T) {
	assert.True(t, store.IsConnectionLost(errors.New("dial: connection refused")))
	assert.True(t, store.IsConnectionLost(errors.New("sql: database is closed")))
	assert.False(t, store.IsConnectionLost(nil))
	assert.False(t, store.IsConnectionLost(errors.New("constraint violation")))
}
