package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/hanzinote/internal/model"
	"github.com/xxxsen/hanzinote/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hanzinote/internal/pkg/errors"
)

var pageFields = []string{
	"id", "note_id", "user_id", "seq", "photo_key",
	"processing", "processed", "stream_status", "progress",
	"completed_units", "completed_at", "state", "ctime", "mtime",
}

type PageRepo struct {
	db *sql.DB
}

func NewPageRepo(db *sql.DB) *PageRepo {
	return &PageRepo{db: db}
}

func scanPage(rows *sql.Rows) (*model.Page, error) {
	var page model.Page
	if err := rows.Scan(
		&page.ID, &page.NoteID, &page.UserID, &page.Seq, &page.PhotoKey,
		&page.Processing, &page.Processed, &page.StreamStatus, &page.Progress,
		&page.CompletedUnits, &page.CompletedAt, &page.State, &page.Ctime, &page.Mtime,
	); err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *PageRepo) Create(ctx context.Context, page *model.Page) error {
	data := map[string]interface{}{
		"id":              page.ID,
		"note_id":         page.NoteID,
		"user_id":         page.UserID,
		"seq":             page.Seq,
		"photo_key":       page.PhotoKey,
		"processing":      page.Processing,
		"processed":       page.Processed,
		"stream_status":   page.StreamStatus,
		"progress":        page.Progress,
		"completed_units": page.CompletedUnits,
		"completed_at":    page.CompletedAt,
		"state":           page.State,
		"ctime":           page.Ctime,
		"mtime":           page.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("pages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *PageRepo) GetByID(ctx context.Context, userID, pageID string) (*model.Page, error) {
	where := map[string]interface{}{
		"id":      pageID,
		"user_id": userID,
		"state":   model.NoteStateNormal,
	}
	sqlStr, args, err := builder.BuildSelect("pages", where, pageFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanPage(rows)
}

func (r *PageRepo) ListByNote(ctx context.Context, noteID string) ([]model.Page, error) {
	where := map[string]interface{}{
		"note_id":  noteID,
		"state":    model.NoteStateNormal,
		"_orderby": "seq asc",
	}
	sqlStr, args, err := builder.BuildSelect("pages", where, pageFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pages := make([]model.Page, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

// Update writes only the given columns. Pipeline writers race against each
// other on purpose, last write wins per column set.
func (r *PageRepo) Update(ctx context.Context, pageID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	where := map[string]interface{}{
		"id":    pageID,
		"state": model.NoteStateNormal,
	}
	sqlStr, args, err := builder.BuildUpdate("pages", where, fields)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// ListStale returns pages still marked preparing or streaming whose last
// update is older than the cutoff.
func (r *PageRepo) ListStale(ctx context.Context, olderThan time.Duration, limit uint) ([]model.Page, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	where := map[string]interface{}{
		"stream_status in": []interface{}{string(model.StatusPreparing), string(model.StatusStreaming)},
		"mtime <":          cutoff,
		"state":            model.NoteStateNormal,
		"_orderby":         "mtime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("pages", where, pageFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pages := make([]model.Page, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

// ListDeleted returns soft-deleted pages whose last update is older than the
// cutoff, oldest first. Used by the photo cleanup job before purging.
func (r *PageRepo) ListDeleted(ctx context.Context, olderThan time.Duration, limit uint) ([]model.Page, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	where := map[string]interface{}{
		"state":    model.NoteStateDeleted,
		"mtime <":  cutoff,
		"_orderby": "mtime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("pages", where, pageFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	pages := make([]model.Page, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

// Purge removes a page row for good. Only call after its photo is gone.
func (r *PageRepo) Purge(ctx context.Context, pageID string) error {
	where := map[string]interface{}{
		"id": pageID,
	}
	sqlStr, args, err := builder.BuildDelete("pages", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *PageRepo) DeleteByNote(ctx context.Context, noteID string, mtime int64) error {
	where := map[string]interface{}{
		"note_id": noteID,
		"state":   model.NoteStateNormal,
	}
	update := map[string]interface{}{
		"state": model.NoteStateDeleted,
		"mtime": mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("pages", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
