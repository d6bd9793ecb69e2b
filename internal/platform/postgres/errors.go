package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/atelier-api/internal/store"
)

// SQLSTATE codes the stores translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidTextRep      = "22P02"
)

// Foreign keys whose violation means the referenced parent is missing.
const (
	templateForeignKey    = "generation_tasks_template_id_fkey"
	promptGroupForeignKey = "prompt_config_options_group_id_fkey"
)

// MapError translates driver errors into store errors, keeping the
// original error in the message for logs.
//
// A task insert that references a missing template maps to
// store.ErrTemplateNotFound so callers see the same error they would get
// from a lookup. An option insert under a missing group likewise maps to
// store.ErrPromptGroupNotFound.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	pgErr, ok := pgError(err)
	if !ok {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s: %v", store.ErrDuplicate, pgErr.ConstraintName, err)
	case codeForeignKeyViolation:
		switch pgErr.ConstraintName {
		case templateForeignKey:
			return fmt.Errorf("%w: %v", store.ErrTemplateNotFound, err)
		case promptGroupForeignKey:
			return fmt.Errorf("%w: %v", store.ErrPromptGroupNotFound, err)
		}
		return fmt.Errorf("%w: foreign key %s: %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case codeCheckViolation:
		return fmt.Errorf("%w: check %s: %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case codeNotNullViolation:
		return fmt.Errorf("%w: column %s is required: %v", store.ErrInvalidEntity, pgErr.ColumnName, err)
	case codeInvalidTextRep:
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return err
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// CheckRowsAffected returns notFound when result touched no rows.
// A nil notFound means store.ErrNotFound.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return errors.New("no result to check")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if notFound == nil {
		return store.ErrNotFound
	}
	return notFound
}
