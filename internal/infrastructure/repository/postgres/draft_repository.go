package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
	"github.com/Skrufy/ConstructionManager-sub015/internal/core/ports"
)

type DraftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// pageListBlob is the persisted JSONB layout. The version gate rejects rows
// written by incompatible builds instead of silently misreading them.
type pageListBlob struct {
	SchemaVersion int                `json:"schema_version"`
	Pages         []domain.PageEntry `json:"pages"`
}

func marshalPages(pages []domain.PageEntry) ([]byte, error) {
	raw, err := json.Marshal(pageListBlob{
		SchemaVersion: domain.PageListSchemaVersion,
		Pages:         pages,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal pages: %w", err)
	}
	return raw, nil
}

func unmarshalPages(raw []byte) ([]domain.PageEntry, error) {
	var blob pageListBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("unmarshal pages: %w", err)
	}
	if blob.SchemaVersion != domain.PageListSchemaVersion {
		return nil, fmt.Errorf("unsupported page list schema version %d", blob.SchemaVersion)
	}
	return blob.Pages, nil
}

func (r *DraftRepository) Create(ctx context.Context, draft *domain.SplitDraft) error {
	pagesJSON, err := marshalPages(draft.Pages)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO split_drafts (
	id, project_id, uploader_id, source_path, original_filename, status, page_count, verified_count, pages, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		draft.ID, draft.ProjectID, draft.UploaderID, draft.SourcePath, draft.OriginalFilename,
		string(draft.Status), draft.PageCount, draft.VerifiedCount, pagesJSON, draft.CreatedAt, draft.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert split draft: %w", err)
	}
	return nil
}

func (r *DraftRepository) GetByID(ctx context.Context, id string) (*domain.SplitDraft, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, uploader_id, source_path, original_filename, status, page_count, verified_count, pages, created_at, updated_at
FROM split_drafts
WHERE id = $1
`, id)

	var draft domain.SplitDraft
	var status string
	var pagesRaw []byte

	err := row.Scan(
		&draft.ID, &draft.ProjectID, &draft.UploaderID, &draft.SourcePath, &draft.OriginalFilename,
		&status, &draft.PageCount, &draft.VerifiedCount, &pagesRaw, &draft.CreatedAt, &draft.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDraftNotFound, "get split draft", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan split draft: %w", err)
	}

	draft.Pages, err = unmarshalPages(pagesRaw)
	if err != nil {
		return nil, err
	}
	draft.Status = domain.DraftStatus(status)
	return &draft, nil
}

func (r *DraftRepository) SavePages(ctx context.Context, id string, pages []domain.PageEntry, verifiedCount int) error {
	pagesJSON, err := marshalPages(pages)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE split_drafts
SET pages = $2, verified_count = $3, updated_at = $4
WHERE id = $1 AND status = $5
`, id, pagesJSON, verifiedCount, time.Now().UTC(), string(domain.StatusDraft))
	if err != nil {
		return fmt.Errorf("save draft pages: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save draft pages rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrInvalidState, "save draft pages",
			fmt.Errorf("draft %s is not editable", id))
	}
	return nil
}

func (r *DraftRepository) TransitionStatus(ctx context.Context, id string, from, to domain.DraftStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE split_drafts
SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2
`, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("transition draft status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition draft status rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrInvalidState, "transition draft status",
			fmt.Errorf("draft %s is not in %s", id, from))
	}
	return nil
}

func (r *DraftRepository) ListByUploader(ctx context.Context, uploaderID string, filter ports.DraftFilter) ([]domain.SplitDraft, error) {
	query := `
SELECT id, project_id, uploader_id, source_path, original_filename, status, page_count, verified_count, pages, created_at, updated_at
FROM split_drafts
WHERE uploader_id = $1`
	args := []any{uploaderID}

	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list split drafts: %w", err)
	}
	defer rows.Close()

	var drafts []domain.SplitDraft
	for rows.Next() {
		var draft domain.SplitDraft
		var status string
		var pagesRaw []byte
		if err := rows.Scan(
			&draft.ID, &draft.ProjectID, &draft.UploaderID, &draft.SourcePath, &draft.OriginalFilename,
			&status, &draft.PageCount, &draft.VerifiedCount, &pagesRaw, &draft.CreatedAt, &draft.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan split draft row: %w", err)
		}
		draft.Pages, err = unmarshalPages(pagesRaw)
		if err != nil {
			return nil, err
		}
		draft.Status = domain.DraftStatus(status)
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate split drafts: %w", err)
	}
	return drafts, nil
}
