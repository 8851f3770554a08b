package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/vvm-sync/internal/model"
)

const voicemailColumns = `
	id, phone_account, source_data, number, timestamp,
	is_read, is_deleted, dirty, has_content, mime_type`

// GetReadVoicemails returns read voicemails with an unpushed read state.
func (s *SQLiteStore) GetReadVoicemails(ctx context.Context, account string) ([]model.Voicemail, error) {
	return s.selectVoicemails(ctx, "read", `
		SELECT `+voicemailColumns+` FROM voicemails
		WHERE phone_account = ? AND is_read = 1 AND dirty = 1 AND is_deleted = 0
		ORDER BY timestamp`, account)
}

// GetDeletedVoicemails returns voicemails deleted locally.
func (s *SQLiteStore) GetDeletedVoicemails(ctx context.Context, account string) ([]model.Voicemail, error) {
	return s.selectVoicemails(ctx, "deleted", `
		SELECT `+voicemailColumns+` FROM voicemails
		WHERE phone_account = ? AND is_deleted = 1
		ORDER BY timestamp`, account)
}

// GetAllVoicemails returns every voicemail of the account.
func (s *SQLiteStore) GetAllVoicemails(ctx context.Context, account string) ([]model.Voicemail, error) {
	return s.selectVoicemails(ctx, "all", `
		SELECT `+voicemailColumns+` FROM voicemails
		WHERE phone_account = ?
		ORDER BY timestamp DESC`, account)
}

func (s *SQLiteStore) selectVoicemails(
	ctx context.Context, kind, query string, args ...interface{},
) ([]model.Voicemail, error) {
	voicemails := []model.Voicemail{}
	if err := s.db.SelectContext(ctx, &voicemails, query, args...); err != nil {
		return nil, fmt.Errorf("querying %s voicemails: %w", kind, err)
	}
	return voicemails, nil
}

// DeleteVoicemails removes the given rows in one transaction.
func (s *SQLiteStore) DeleteVoicemails(ctx context.Context, voicemails []model.Voicemail) error {
	return s.execForEach(ctx, "deleting", voicemails,
		"DELETE FROM voicemails WHERE id = ?")
}

// MarkReadInDatabase marks the rows read and clears their dirty marker.
func (s *SQLiteStore) MarkReadInDatabase(ctx context.Context, voicemails []model.Voicemail) error {
	return s.execForEach(ctx, "marking read", voicemails,
		"UPDATE voicemails SET is_read = 1, dirty = 0 WHERE id = ?")
}

func (s *SQLiteStore) execForEach(
	ctx context.Context, verb string, voicemails []model.Voicemail, query string,
) error {
	if len(voicemails) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, vm := range voicemails {
		if vm.ID == "" {
			return fmt.Errorf("%s voicemail %s: missing local id", verb, vm.SourceData)
		}
		if _, err := stmt.ExecContext(ctx, vm.ID); err != nil {
			return fmt.Errorf("%s voicemail %s: %w", verb, vm.ID, err)
		}
	}

	return tx.Commit()
}

// InsertVoicemail inserts a voicemail and returns its local ID. A new
// UUID is generated when the record has none.
func (s *SQLiteStore) InsertVoicemail(ctx context.Context, vm model.Voicemail) (string, error) {
	if vm.PhoneAccount == "" || vm.SourceData == "" {
		return "", fmt.Errorf("voicemail needs a phone account and source data")
	}
	if vm.ID == "" {
		vm.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voicemails (
			id, phone_account, source_data, number, timestamp,
			is_read, is_deleted, dirty, has_content, mime_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		vm.ID, vm.PhoneAccount, vm.SourceData, vm.Number, vm.Timestamp.UTC(),
		boolToInt(vm.IsRead), boolToInt(vm.IsDeleted), boolToInt(vm.Dirty),
		boolToInt(vm.HasContent), vm.MimeType,
	)
	if err != nil {
		return "", fmt.Errorf("inserting voicemail %s: %w", vm.SourceData, err)
	}
	return vm.ID, nil
}

// GetVoicemail retrieves a single voicemail by local ID.
func (s *SQLiteStore) GetVoicemail(ctx context.Context, id string) (*model.Voicemail, error) {
	return s.getVoicemail(ctx, id,
		"SELECT "+voicemailColumns+" FROM voicemails WHERE id = ?", id)
}

// GetVoicemailBySource retrieves a voicemail by its remote UID.
func (s *SQLiteStore) GetVoicemailBySource(
	ctx context.Context, account, sourceData string,
) (*model.Voicemail, error) {
	return s.getVoicemail(ctx, sourceData,
		"SELECT "+voicemailColumns+" FROM voicemails WHERE phone_account = ? AND source_data = ?",
		account, sourceData)
}

func (s *SQLiteStore) getVoicemail(
	ctx context.Context, key, query string, args ...interface{},
) (*model.Voicemail, error) {
	var vm model.Voicemail
	err := s.db.GetContext(ctx, &vm, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("voicemail %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting voicemail %s: %w", key, err)
	}
	return &vm, nil
}

// UpdatePayload stores the fetched audio of a voicemail.
func (s *SQLiteStore) UpdatePayload(ctx context.Context, id string, payload model.Payload) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE voicemails SET content = ?, mime_type = ?, has_content = 1
		WHERE id = ?`,
		payload.Data, payload.MimeType, id,
	)
	if err != nil {
		return fmt.Errorf("storing payload of %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// GetPayload returns the stored audio of a voicemail.
func (s *SQLiteStore) GetPayload(ctx context.Context, id string) (model.Payload, error) {
	var row struct {
		MimeType string `db:"mime_type"`
		Content  []byte `db:"content"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT mime_type, content FROM voicemails WHERE id = ? AND has_content = 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payload{}, fmt.Errorf("payload of %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Payload{}, fmt.Errorf("getting payload of %s: %w", id, err)
	}
	return model.Payload{MimeType: row.MimeType, Data: row.Content}, nil
}

// MarkLocallyRead marks an unread voicemail read, pending upload.
func (s *SQLiteStore) MarkLocallyRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE voicemails SET dirty = CASE WHEN is_read = 0 THEN 1 ELSE dirty END, is_read = 1
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking voicemail %s read: %w", id, err)
	}
	return requireAffected(res, id)
}

// MarkLocallyDeleted marks a voicemail deleted, pending upload.
func (s *SQLiteStore) MarkLocallyDeleted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE voicemails SET is_deleted = 1, dirty = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking voicemail %s deleted: %w", id, err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("voicemail %s: %w", id, ErrNotFound)
	}
	return nil
}
