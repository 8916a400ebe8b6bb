package rvndb

import (
	"database/sql"

	"golang.org/x/exp/constraints"
)

// sqlInt32 turns a numerical integer type into the int32 used for INTEGER
// columns.
//
// We use this constraints.Integer constraint here which maps to all signed and
// unsigned integer types.
func sqlInt32[T constraints.Integer](num T) int32 {
	return int32(num)
}

// extractSqlInt32 turns an int32 read from an INTEGER column into a numerical
// type.
func extractSqlInt32[T constraints.Integer](num int32) T {
	return T(num)
}

// sqlInt16 turns a numerical integer type into the int16 used for SMALLINT
// columns.
func sqlInt16[T constraints.Integer](num T) int16 {
	return int16(num)
}

// sqlStr turns a string into the NullString that sql uses when a text field
// can be permitted to be NULL. An empty string is mapped to NULL.
func sqlStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{
		String: s,
		Valid:  true,
	}
}
