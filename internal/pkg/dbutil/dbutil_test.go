package dbutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalizeRebindsPlaceholders(t *testing.T) {
	query, args := Finalize("SELECT id FROM notes WHERE user_id=? AND state=?", []interface{}{"u1", 1})
	require.Equal(t, "SELECT id FROM notes WHERE user_id=$1 AND state=$2", query)
	require.Equal(t, []interface{}{"u1", 1}, args)
}

func TestFinalizeRewritesLimit(t *testing.T) {
	query, args := Finalize("SELECT id FROM notes WHERE user_id=? ORDER BY mtime DESC LIMIT ?,?", []interface{}{"u1", uint(10), uint(20)})
	require.Equal(t, "SELECT id FROM notes WHERE user_id=$1 ORDER BY mtime DESC LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{"u1", uint(20), uint(10)}, args)
}
