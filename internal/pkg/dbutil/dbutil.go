package dbutil

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var reMySQLLimit = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize converts a gendry-built query from the MySQL placeholder dialect
// to postgres: the two-arg LIMIT form becomes LIMIT ? OFFSET ? (swapping the
// offset/count args to match) and every ? is rebound to $n.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	if loc := reMySQLLimit.FindStringIndex(query); loc != nil {
		offsetPos := strings.Count(query[:loc[0]], "?")
		if offsetPos+1 < len(args) {
			args[offsetPos], args[offsetPos+1] = args[offsetPos+1], args[offsetPos]
			query = reMySQLLimit.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

// IsConflict reports whether err is a postgres unique violation.
func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
