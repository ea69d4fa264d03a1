package idalloc_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/areanode/internal/idalloc"
)

// fakeDriver simulates the single RETURNING-clause query the allocator
// issues, without depending on a real database connection. No mocking
// library in the retrieved example pack targets database/sql, so this
// hand-rolled driver is the narrowest standard-library substitute for the
// one query under test.
type fakeDriver struct{ counter int64 }

func (d *fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{d: d}, nil }

type fakeConn struct{ d *fakeDriver }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) { return &fakeStmt{c: c}, nil }
func (c *fakeConn) Close() error                              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)                 { return nil, fmt.Errorf("not implemented") }

type fakeStmt struct{ c *fakeConn }

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }
func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, fmt.Errorf("not implemented")
}
func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.c.d.counter += 5000
	return &fakeRows{value: s.c.d.counter}, nil
}

type fakeRows struct {
	value int64
	done  bool
}

func (r *fakeRows) Columns() []string { return []string{"FieldNumber"} }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
	if r.done {
		return fmt.Errorf("EOF")
	}
	r.done = true
	dest[0] = r.value
	return nil
}

func TestAllocatorClaimsSequentialBlocks(t *testing.T) {
	sql.Register("idalloc_fake", &fakeDriver{})
	db, err := sql.Open("idalloc_fake", "")
	require.NoError(t, err)
	defer db.Close()

	a := idalloc.New(db)
	ctx := context.Background()

	first, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), uint64(first))

	for i := 1; i < idalloc.BlockSize; i++ {
		id, err := a.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), uint64(id))
	}

	next, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(idalloc.BlockSize), uint64(next))
}
