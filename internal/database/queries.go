package database

import (
	"context"
	"database/sql"
	"time"
)

const messageColumns = "id, external_id, project_id, pair_key, sender_id, sender_name, receiver_id, " +
	"content, kind, file_name, file_url, file_size, is_edited, edited_at, created_at, updated_at"

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var m Message
	var editedAt sql.NullTime
	err := row.Scan(
		&m.Id,
		&m.ExternalId,
		&m.ProjectId,
		&m.PairKey,
		&m.SenderId,
		&m.SenderName,
		&m.ReceiverId,
		&m.Content,
		&m.Kind,
		&m.FileName,
		&m.FileUrl,
		&m.FileSize,
		&m.IsEdited,
		&editedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if editedAt.Valid {
		t := editedAt.Time
		m.EditedAt = &t
	}

	return m, err
}

func (db *PgMessageRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO messages (external_id, project_id, pair_key, sender_id, sender_name, receiver_id, "+
			"content, kind, file_name, file_url, file_size, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) "+
			"RETURNING "+messageColumns,
		params.ExternalId,
		params.ProjectId,
		params.PairKey,
		params.SenderId,
		params.SenderName,
		params.ReceiverId,
		params.Content,
		params.Kind,
		params.FileName,
		params.FileUrl,
		params.FileSize,
		now,
	)

	return scanMessage(row)
}

func (db *PgMessageRepository) GetMessage(ctx context.Context, externalId string) (Message, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	return scanMessage(row)
}

// GetTextMessage fetches a message only if it is editable, which means
// its kind is text. Non-text messages are indistinguishable from absent
// ones to the caller.
func (db *PgMessageRepository) GetTextMessage(ctx context.Context, externalId string) (Message, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE external_id = $1 AND kind = 'text' LIMIT 1",
		externalId,
	)

	return scanMessage(row)
}

func (db *PgMessageRepository) UpdateMessageContent(ctx context.Context, externalId, content string) (Message, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"UPDATE messages SET content = $2, is_edited = TRUE, edited_at = $3, updated_at = $3 "+
			"WHERE external_id = $1 RETURNING "+messageColumns,
		externalId,
		content,
		now,
	)

	return scanMessage(row)
}

func (db *PgMessageRepository) DeleteMessage(ctx context.Context, externalId string) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM messages WHERE external_id = $1", externalId)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// GetMessages returns messages for one conversation, newest first,
// optionally bounded by an exclusive upper created_at bound.
func (db *PgMessageRepository) GetMessages(ctx context.Context, params GetMessagesParams) ([]Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE "
	args := []any{}

	if params.ProjectId != "" {
		query += "project_id = $1"
		args = append(args, params.ProjectId)
	} else {
		query += "pair_key = $1"
		args = append(args, params.PairKey)
	}

	if !params.Before.IsZero() {
		query += " AND created_at < $2"
		args = append(args, params.Before)
	}

	query += " ORDER BY created_at DESC"
	if params.Limit > 0 {
		args = append(args, params.Limit)
		if params.Before.IsZero() {
			query += " LIMIT $2"
		} else {
			query += " LIMIT $3"
		}
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
