package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"triplestore/internal/registry"
	"triplestore/internal/value"
)

// attemptedRow is the tuple CreateStatements tries to persist for one
// Statement, captured so the post-upsert RETURNING rows can be checked
// for a triple conflict.
type attemptedRow struct {
	handle      value.StatementHandle
	subjectID   int64
	predicateID int64
	column      value.Column
	dbValue     any
}

// CreateStatements upserts every Statement in reg that carries a
// triple and has not already been marked Saved. It first resolves
// every reachable Statement and Blob reference to an
// internal row id via FillIDs(allowCreate=true), then issues one batched
// INSERT ... ON CONFLICT (handle) DO UPDATE per call. A handle that
// already has a different triple on file is left untouched by the
// upsert (the CASE expression below only adopts a new triple into a row
// that has none) and reported back as ErrTripleConflict.
func (r *Repository) CreateStatements(ctx context.Context, reg *registry.Registry) error {
	if err := r.FillIDs(ctx, reg, true); err != nil {
		return err
	}

	var pending []*value.Statement
	for _, s := range reg.AllStatements() {
		if s.HasTriple && !s.Saved {
			pending = append(pending, s)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	attempts := make(map[value.StatementHandle]attemptedRow, len(pending))
	args := make([]any, 0, len(pending)*10)
	var rowsSQL string
	for i, s := range pending {
		dbValue, column, err := value.PrepareForDB(s.Object)
		if err != nil {
			return fmt.Errorf("store: prepare object for %x: %w", s.Handle, err)
		}

		attempts[s.Handle] = attemptedRow{
			handle:      s.Handle,
			subjectID:   s.Subject.ID,
			predicateID: s.Predicate.ID,
			column:      column,
			dbValue:     dbValue,
		}

		base := i * 10
		rowsSQL += fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
		if i != len(pending)-1 {
			rowsSQL += ","
		}

		var objStmt, objBlob, objInt any
		var objDec, objStr, objBool, objDT any
		switch column {
		case value.ColumnObjectStatement:
			objStmt = dbValue
		case value.ColumnObjectBlob:
			objBlob = dbValue
		case value.ColumnObjectInteger:
			objInt = dbValue
		case value.ColumnObjectDecimal:
			objDec = dbValue
		case value.ColumnObjectString:
			objStr = dbValue
		case value.ColumnObjectBoolean:
			objBool = dbValue
		case value.ColumnObjectDatetime:
			objDT = dbValue
		}

		args = append(args,
			s.Handle[:], s.Subject.ID, s.Predicate.ID,
			objStmt, objBlob, objInt, objDec, objStr, objBool, objDT,
		)
	}

	query := `
		INSERT INTO statement (
			handle, subject_id, predicate_id,
			object_statement_id, object_blob_id, object_integer,
			object_decimal, object_string, object_boolean, object_datetime
		)
		VALUES ` + rowsSQL + `
		ON CONFLICT (handle) DO UPDATE SET
			subject_id           = CASE WHEN statement.subject_id IS NULL THEN EXCLUDED.subject_id ELSE statement.subject_id END,
			predicate_id         = CASE WHEN statement.subject_id IS NULL THEN EXCLUDED.predicate_id ELSE statement.predicate_id END,
			object_statement_id  = CASE WHEN statement.subject_id IS NULL THEN EXCLUDED.object_statement_id ELSE statement.object_statement_id END,
			object_blob_id       = CASE WHEN statement.subject_id IS NULL THEN EXCLUDED.object_blob_id ELSE statement.object_blob_id END,
			object_integer       = CASE WHEN statement.subject_id IS NULL THEN EXCLUDED.object_integer ELSE statement.object_integer END,
			object_decimal       = CASE WHEN statement.subject_id IS NULL THEN EXCLUDED.object_decimal ELSE statement.object_decimal END,
			object_string        = CASE WHEN statement.subject_id IS NULL THEN EXCLUDED.object_string ELSE statement.object_string END,
			object_boolean       = CASE WHEN statement.subject_id IS NULL THEN EXCLUDED.object_boolean ELSE statement.object_boolean END,
			object_datetime      = CASE WHEN statement.subject_id IS NULL THEN EXCLUDED.object_datetime ELSE statement.object_datetime END
		RETURNING
			handle, id, subject_id, predicate_id,
			object_statement_id, object_blob_id, object_integer,
			object_decimal, object_string, object_boolean, object_datetime`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return classifyPgError(fmt.Errorf("store: upsert statements: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rawHandle               []byte
			id                      int64
			subjectID, predicateID  sql.NullInt64
			objStmtID, objBlobID    sql.NullInt64
			objInt                  sql.NullInt64
			objDec                  decimal.NullDecimal
			objStr                  sql.NullString
			objBool                 sql.NullBool
			objDT                   sql.NullTime
		)
		if err := rows.Scan(&rawHandle, &id, &subjectID, &predicateID,
			&objStmtID, &objBlobID, &objInt, &objDec, &objStr, &objBool, &objDT); err != nil {
			return classifyPgError(fmt.Errorf("store: scan upserted statement: %w", err))
		}

		h, err := toStatementHandle(rawHandle)
		if err != nil {
			return err
		}
		attempt, ok := attempts[h]
		if !ok {
			continue
		}

		s, _ := reg.LookupStatement(h)
		if s == nil {
			continue
		}
		s.ID = id

		if !subjectID.Valid || subjectID.Int64 != attempt.subjectID || predicateID.Int64 != attempt.predicateID {
			return fmt.Errorf("%w: handle %x", ErrTripleConflict, h)
		}
		if conflict := columnMismatch(attempt.column, attempt.dbValue, objStmtID, objBlobID, objInt, objDec, objStr, objBool, objDT); conflict {
			return fmt.Errorf("%w: handle %x", ErrTripleConflict, h)
		}

		s.Saved = true
	}
	if err := rows.Err(); err != nil {
		return classifyPgError(err)
	}

	return nil
}

// columnMismatch reports whether the object column actually on file
// (the RETURNING values) differs from what this call attempted to
// write, which can only happen when an earlier, different triple was
// already persisted under the same handle.
func columnMismatch(column value.Column, attempted any,
	objStmtID, objBlobID, objInt sql.NullInt64, objDec decimal.NullDecimal,
	objStr sql.NullString, objBool sql.NullBool, objDT sql.NullTime) bool {

	switch column {
	case value.ColumnObjectStatement:
		want, _ := attempted.(int64)
		return !objStmtID.Valid || objStmtID.Int64 != want
	case value.ColumnObjectBlob:
		want, _ := attempted.(int64)
		return !objBlobID.Valid || objBlobID.Int64 != want
	case value.ColumnObjectInteger:
		want, _ := attempted.(int64)
		return !objInt.Valid || objInt.Int64 != want
	case value.ColumnObjectDecimal:
		want, _ := attempted.(decimal.Decimal)
		return !objDec.Valid || !objDec.Decimal.Equal(want)
	case value.ColumnObjectString:
		want, _ := attempted.(string)
		return !objStr.Valid || objStr.String != want
	case value.ColumnObjectBoolean:
		want, _ := attempted.(bool)
		return !objBool.Valid || objBool.Bool != want
	case value.ColumnObjectDatetime:
		want, _ := attempted.(time.Time)
		return !objDT.Valid || !objDT.Time.Equal(want)
	default:
		return false
	}
}

// GetByHandles fetches and reconstructs the statements identified by
// handles, interning every Statement and Blob it touches (subject,
// predicate, and object references included) into reg so the result
// shares identity with anything else the caller has already loaded.
func (r *Repository) GetByHandles(ctx context.Context, reg *registry.Registry, handles []value.StatementHandle) ([]*value.Statement, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	raw := make([][]byte, len(handles))
	for i, h := range handles {
		raw[i] = h[:]
	}
	return r.queryStatements(ctx, reg, statementSelect+` WHERE s.handle = ANY($1) ORDER BY s.handle`, raw)
}

// GetAllStatements returns every persisted statement ordered by
// handle, the traversal order the query compiler relies on for
// deterministic pagination.
func (r *Repository) GetAllStatements(ctx context.Context, reg *registry.Registry) ([]*value.Statement, error) {
	return r.queryStatements(ctx, reg, statementSelect+` ORDER BY s.handle`)
}

const statementSelect = `
	SELECT
		s.handle, s.id,
		subj.handle, subj.id,
		pred.handle, pred.id,
		s.object_statement_id, objstmt.handle,
		s.object_blob_id, objblob.handle,
		s.object_integer, s.object_decimal, s.object_string, s.object_boolean, s.object_datetime
	FROM statement s
	LEFT JOIN statement subj ON subj.id = s.subject_id
	LEFT JOIN statement pred ON pred.id = s.predicate_id
	LEFT JOIN statement objstmt ON objstmt.id = s.object_statement_id
	LEFT JOIN blob objblob ON objblob.id = s.object_blob_id`

func (r *Repository) queryStatements(ctx context.Context, reg *registry.Registry, query string, args ...any) ([]*value.Statement, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPgError(fmt.Errorf("store: query statements: %w", err))
	}
	defer rows.Close()

	var out []*value.Statement
	for rows.Next() {
		s, err := scanStatementRow(rows, reg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err)
	}
	return out, nil
}

func scanStatementRow(row interface{ Scan(dest ...any) error }, reg *registry.Registry) (*value.Statement, error) {
	var (
		handle, subjHandle, predHandle, objStmtHandle, objBlobHandle []byte
		id                                                           int64
		subjID, predID, objStmtID, objBlobID                         sql.NullInt64
		objInt                                                       sql.NullInt64
		objDec                                                       decimal.NullDecimal
		objStr                                                       sql.NullString
		objBool                                                      sql.NullBool
		objDT                                                        sql.NullTime
	)
	if err := row.Scan(
		&handle, &id,
		&subjHandle, &subjID,
		&predHandle, &predID,
		&objStmtID, &objStmtHandle,
		&objBlobID, &objBlobHandle,
		&objInt, &objDec, &objStr, &objBool, &objDT,
	); err != nil {
		return nil, classifyPgError(fmt.Errorf("store: scan statement row: %w", err))
	}

	h, err := toStatementHandle(handle)
	if err != nil {
		return nil, err
	}

	s := reg.UniqueStatement(&value.Statement{Handle: h, ID: id})
	s.ID = id

	if subjID.Valid {
		sh, err := toStatementHandle(subjHandle)
		if err != nil {
			return nil, err
		}
		subj := reg.UniqueStatement(&value.Statement{Handle: sh, ID: subjID.Int64})
		pred := subj
		if predID.Valid {
			ph, err := toStatementHandle(predHandle)
			if err != nil {
				return nil, err
			}
			pred = reg.UniqueStatement(&value.Statement{Handle: ph, ID: predID.Int64})
		}

		object, err := assembleObject(reg, objStmtID, objStmtHandle, objBlobID, objBlobHandle, objInt, objDec, objStr, objBool, objDT)
		if err != nil {
			return nil, err
		}

		s = reg.UniqueStatement(&value.Statement{
			Handle: h, ID: id, Subject: subj, Predicate: pred, Object: object, HasTriple: true, Saved: true,
		})
	}

	return s, nil
}

func assembleObject(reg *registry.Registry,
	objStmtID sql.NullInt64, objStmtHandle []byte,
	objBlobID sql.NullInt64, objBlobHandle []byte,
	objInt sql.NullInt64, objDec decimal.NullDecimal, objStr sql.NullString,
	objBool sql.NullBool, objDT sql.NullTime) (value.Value, error) {

	switch {
	case objStmtID.Valid:
		h, err := toStatementHandle(objStmtHandle)
		if err != nil {
			return value.Value{}, err
		}
		s := reg.UniqueStatement(&value.Statement{Handle: h, ID: objStmtID.Int64})
		return value.FromStatement(s), nil
	case objBlobID.Valid:
		d, err := toBlobDigest(objBlobHandle)
		if err != nil {
			return value.Value{}, err
		}
		b := reg.UniqueBlob(&value.Blob{Handle: d, ID: objBlobID.Int64})
		return value.FromBlob(b), nil
	case objInt.Valid:
		return value.FromInteger(objInt.Int64), nil
	case objDec.Valid:
		return value.FromDecimal(objDec.Decimal), nil
	case objStr.Valid:
		return value.FromString(objStr.String), nil
	case objBool.Valid:
		return value.FromBoolean(objBool.Bool), nil
	case objDT.Valid:
		return value.FromDatetime(objDT.Time), nil
	default:
		return value.None(), nil
	}
}
