package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skrufy/ConstructionManager-sub015/internal/core/domain"
)

func newRevisionID() string {
	return uuid.NewString()
}

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, project_id, filename, COALESCE(drawing_number,''), COALESCE(sheet_title,''), COALESCE(discipline,''), COALESCE(revision,''), COALESCE(scale,''), storage_path, current_version, is_latest, size_bytes, uploaded_by, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*domain.ProjectDocument, error) {
	var doc domain.ProjectDocument
	err := row.Scan(
		&doc.ID, &doc.ProjectID, &doc.Filename, &doc.DrawingNumber, &doc.SheetTitle,
		&doc.Discipline, &doc.Revision, &doc.Scale, &doc.StoragePath, &doc.CurrentVersion,
		&doc.IsLatest, &doc.SizeBytes, &doc.UploadedBy, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.ProjectDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM project_documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) FindLatestByDrawingNumbers(ctx context.Context, projectID string, numbers []string) ([]domain.ProjectDocument, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(numbers))
	args := make([]any, 0, len(numbers)+1)
	args = append(args, projectID)
	for i, number := range numbers {
		args = append(args, domain.NormalizeDrawingNumber(number))
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := `
SELECT ` + documentColumns + `
FROM project_documents
WHERE project_id = $1
  AND is_latest
  AND UPPER(TRIM(drawing_number)) IN (` + strings.Join(placeholders, ",") + `)
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find latest by drawing numbers: %w", err)
	}
	defer rows.Close()

	var docs []domain.ProjectDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) CreateWithRevision(ctx context.Context, doc *domain.ProjectDocument, rev *domain.DocumentRevision) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO project_documents (
	id, project_id, filename, drawing_number, sheet_title, discipline, revision, scale,
	storage_path, current_version, is_latest, size_bytes, uploaded_by, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		doc.ID, doc.ProjectID, doc.Filename, doc.DrawingNumber, doc.SheetTitle, doc.Discipline,
		doc.Revision, doc.Scale, doc.StoragePath, doc.CurrentVersion, doc.IsLatest,
		doc.SizeBytes, doc.UploadedBy, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO document_revisions (
	id, document_id, version, storage_path, change_notes, uploaded_by, size_bytes, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		rev.ID, rev.DocumentID, rev.Version, rev.StoragePath, rev.ChangeNotes,
		rev.UploadedBy, rev.SizeBytes, rev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create tx: %w", err)
	}
	return nil
}

// ApplyRevision swaps the document's content pointer and appends a revision row
// in one transaction. Metadata columns are filled only where currently empty so
// user-verified values are never clobbered by inference output.
func (r *DocumentRepository) ApplyRevision(ctx context.Context, documentID string, update domain.RevisionUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revision tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
UPDATE project_documents
SET storage_path = $2,
	current_version = $3,
	size_bytes = $4,
	revision = COALESCE(NULLIF($5,''), revision),
	scale = COALESCE(NULLIF($6,''), scale),
	sheet_title = COALESCE(NULLIF($7,''), sheet_title),
	discipline = COALESCE(NULLIF($8,''), discipline),
	updated_at = $9
WHERE id = $1 AND current_version = $3 - 1
`, documentID, update.StoragePath, update.NewVersion, update.SizeBytes,
		update.Revision, update.Scale, update.SheetTitle, update.Discipline, now)
	if err != nil {
		return fmt.Errorf("update document pointer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document pointer rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrInvalidState, "apply revision",
			fmt.Errorf("document %s is not at version %d", documentID, update.NewVersion-1))
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO document_revisions (
	id, document_id, version, storage_path, change_notes, uploaded_by, size_bytes, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		newRevisionID(), documentID, update.NewVersion, update.StoragePath,
		update.ChangeNotes, update.UploadedBy, update.SizeBytes, now,
	)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revision tx: %w", err)
	}
	return nil
}
