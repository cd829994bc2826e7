package pgdb

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Коды ошибок PostgreSQL, которые репозитории переводят в доменные ошибки.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

func postgresDuplicate(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

// categoryViolation сообщает, что запись ссылается на несуществующую или некорректную категорию.
func categoryViolation(err error) bool {
	code := pgErrorCode(err)
	return code == pgForeignKeyViolation || code == pgInvalidTextRepr
}
