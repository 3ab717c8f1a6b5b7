package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/hanzinote/internal/model"
	"github.com/xxxsen/hanzinote/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hanzinote/internal/pkg/errors"
)

var noteFields = []string{"id", "user_id", "title", "share_token", "state", "ctime", "mtime"}

type NoteRepo struct {
	db *sql.DB
}

func NewNoteRepo(db *sql.DB) *NoteRepo {
	return &NoteRepo{db: db}
}

func scanNote(rows *sql.Rows) (*model.Note, error) {
	var note model.Note
	if err := rows.Scan(&note.ID, &note.UserID, &note.Title, &note.ShareToken, &note.State, &note.Ctime, &note.Mtime); err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *NoteRepo) Create(ctx context.Context, note *model.Note) error {
	data := map[string]interface{}{
		"id":          note.ID,
		"user_id":     note.UserID,
		"title":       note.Title,
		"share_token": note.ShareToken,
		"state":       note.State,
		"ctime":       note.Ctime,
		"mtime":       note.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("notes", []map[string]interface{}{data})
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

func (r *NoteRepo) GetByID(ctx context.Context, userID, noteID string) (*model.Note, error) {
	where := map[string]interface{}{
		"id":      noteID,
		"user_id": userID,
		"state":   model.NoteStateNormal,
	}
	sqlStr, args, err := builder.BuildSelect("notes", where, noteFields)
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
	return scanNote(rows)
}

func (r *NoteRepo) GetByShareToken(ctx context.Context, token string) (*model.Note, error) {
	if token == "" {
		return nil, appErr.ErrNotFound
	}
	where := map[string]interface{}{
		"share_token": token,
		"state":       model.NoteStateNormal,
	}
	sqlStr, args, err := builder.BuildSelect("notes", where, noteFields)
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
	return scanNote(rows)
}

func (r *NoteRepo) List(ctx context.Context, userID string, limit, offset uint) ([]model.Note, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"state":    model.NoteStateNormal,
		"_orderby": "mtime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("notes", where, noteFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	notes := make([]model.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *note)
	}
	return notes, rows.Err()
}

func (r *NoteRepo) Count(ctx context.Context, userID string) (int, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(1) FROM notes WHERE user_id=? AND state=?",
		[]interface{}{userID, model.NoteStateNormal})
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *NoteRepo) UpdateTitle(ctx context.Context, userID, noteID, title string, mtime int64) error {
	where := map[string]interface{}{
		"id":      noteID,
		"user_id": userID,
		"state":   model.NoteStateNormal,
	}
	update := map[string]interface{}{
		"title": title,
		"mtime": mtime,
	}
	return r.update(ctx, where, update)
}

func (r *NoteRepo) UpdateShareToken(ctx context.Context, userID, noteID, token string, mtime int64) error {
	where := map[string]interface{}{
		"id":      noteID,
		"user_id": userID,
		"state":   model.NoteStateNormal,
	}
	update := map[string]interface{}{
		"share_token": token,
		"mtime":       mtime,
	}
	return r.update(ctx, where, update)
}

func (r *NoteRepo) Delete(ctx context.Context, userID, noteID string, mtime int64) error {
	where := map[string]interface{}{
		"id":      noteID,
		"user_id": userID,
		"state":   model.NoteStateNormal,
	}
	update := map[string]interface{}{
		"state": model.NoteStateDeleted,
		"mtime": mtime,
	}
	return r.update(ctx, where, update)
}

func (r *NoteRepo) update(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("notes", where, update)
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
