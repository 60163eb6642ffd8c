package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"deedflow/internal/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Deals stores deal aggregates across the deals table and its child tables.
type Deals struct {
	db *DB
}

func NewDeals(db *DB) *Deals { return &Deals{db: db} }

func (r *Deals) Create(ctx context.Context, d *domain.Deal) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO deals (id, org_id, name, local_name, city, property_type, address, local_address,
			tokenization_mode, total_shares, share_price, currency, total_value, status,
			compliance_score, risk_score, est_days_to_close, parties, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::text::numeric, $12, $13::text::numeric, $14,
			$15, $16, $17, $18, $19, $20, 1)
	`, d.ID, d.OrgID, d.Name, d.LocalName, d.City, string(d.PropertyType), d.Address, d.LocalAddress,
		string(d.TokenizationMode), d.TotalShares, d.SharePrice.String(), d.Currency, d.TotalValue.String(), string(d.Status),
		d.Metrics.ComplianceScore, d.Metrics.RiskScore, d.Metrics.EstTimeToCloseDays, partiesJSON(d.Parties), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.Errorf(domain.KindConflict, "deal %s already exists", d.ID)
		}
		return err
	}
	if err = writeChildren(ctx, tx, d); err != nil {
		return err
	}
	d.Version = 1
	return nil
}

func (r *Deals) Get(ctx context.Context, dealID string) (domain.Deal, error) {
	if !validID(dealID) {
		return domain.Deal{}, dealNotFound(dealID)
	}
	var (
		d                  domain.Deal
		sharePrice, total  string
		status, mode, prop string
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id::text, org_id, name, local_name, city, property_type, address, local_address,
			tokenization_mode, total_shares, share_price::text, currency, total_value::text, status,
			compliance_score, risk_score, est_days_to_close, parties, created_at, updated_at, version
		FROM deals WHERE id = $1
	`, dealID).Scan(&d.ID, &d.OrgID, &d.Name, &d.LocalName, &d.City, &prop, &d.Address, &d.LocalAddress,
		&mode, &d.TotalShares, &sharePrice, &d.Currency, &total, &status,
		&d.Metrics.ComplianceScore, &d.Metrics.RiskScore, &d.Metrics.EstTimeToCloseDays, &d.Parties,
		&d.CreatedAt, &d.UpdatedAt, &d.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Deal{}, dealNotFound(dealID)
	}
	if err != nil {
		return domain.Deal{}, err
	}
	d.PropertyType = domain.PropertyType(prop)
	d.TokenizationMode = domain.TokenizationMode(mode)
	d.Status = domain.DealStatus(status)
	if d.SharePrice, err = decimal.NewFromString(sharePrice); err != nil {
		return domain.Deal{}, fmt.Errorf("deal %s share price: %w", dealID, err)
	}
	if d.TotalValue, err = decimal.NewFromString(total); err != nil {
		return domain.Deal{}, fmt.Errorf("deal %s total value: %w", dealID, err)
	}

	if d.Steps, err = r.steps(ctx, dealID); err != nil {
		return domain.Deal{}, err
	}
	if d.Documents, err = r.documents(ctx, dealID); err != nil {
		return domain.Deal{}, err
	}
	if d.Audit, err = r.audit(ctx, dealID); err != nil {
		return domain.Deal{}, err
	}
	if d.Notifications, err = r.notifications(ctx, dealID); err != nil {
		return domain.Deal{}, err
	}
	return d, nil
}

func (r *Deals) steps(ctx context.Context, dealID string) ([]domain.Step, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, key, title, local_title, status, position, required_docs, notes,
			started_at, completed_at, block_reason
		FROM deal_steps WHERE deal_id = $1 ORDER BY position
	`, dealID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Step, error) {
		var (
			s        domain.Step
			status   string
			required []string
		)
		err := row.Scan(&s.ID, &s.Key, &s.Title, &s.LocalTitle, &status, &s.Order, &required, &s.Notes,
			&s.StartedAt, &s.CompletedAt, &s.BlockReason)
		s.Status = domain.StepStatus(status)
		for _, t := range required {
			s.RequiredDocs = append(s.RequiredDocs, domain.DocType(t))
		}
		if len(s.Notes) == 0 {
			s.Notes = nil
		}
		return s, err
	})
}

func (r *Deals) documents(ctx context.Context, dealID string) ([]domain.Document, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, type, filename, uploaded_at, extracted_fields, status, uploaded_by, confidence
		FROM deal_documents WHERE deal_id = $1 ORDER BY seq
	`, dealID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Document, error) {
		var (
			doc         domain.Document
			typ, status string
		)
		err := row.Scan(&doc.ID, &typ, &doc.Filename, &doc.UploadedAt, &doc.ExtractedFields, &status, &doc.UploadedBy, &doc.Confidence)
		doc.Type = domain.DocType(typ)
		doc.Status = domain.VerificationStatus(status)
		return doc, err
	})
}

func (r *Deals) audit(ctx context.Context, dealID string) ([]domain.AuditEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, at, actor, action, detail, icon
		FROM audit_entries WHERE deal_id = $1 ORDER BY seq
	`, dealID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AuditEntry, error) {
		var a domain.AuditEntry
		err := row.Scan(&a.ID, &a.At, &a.Actor, &a.Action, &a.Detail, &a.Icon)
		return a, err
	})
}

func (r *Deals) notifications(ctx context.Context, dealID string) ([]domain.Notification, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, severity, message, dedupe_key, created_at, read_at
		FROM notifications WHERE deal_id = $1 ORDER BY created_at, seq
	`, dealID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Notification, error) {
		var (
			n   domain.Notification
			sev string
		)
		err := row.Scan(&n.ID, &sev, &n.Message, &n.DedupeKey, &n.CreatedAt, &n.ReadAt)
		n.Severity = domain.Severity(sev)
		return n, err
	})
}

// Save writes the aggregate when the stored version still equals d.Version.
// Audit entries are append-only and never rewritten.
func (r *Deals) Save(ctx context.Context, d *domain.Deal) (err error) {
	if !validID(d.ID) {
		return dealNotFound(d.ID)
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE deals SET name=$3, local_name=$4, status=$5, compliance_score=$6, risk_score=$7,
			est_days_to_close=$8, parties=$9, updated_at=$10, version = version + 1
		WHERE id = $1 AND version = $2
	`, d.ID, d.Version, d.Name, d.LocalName, string(d.Status), d.Metrics.ComplianceScore, d.Metrics.RiskScore,
		d.Metrics.EstTimeToCloseDays, partiesJSON(d.Parties), d.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current int64
		switch qerr := tx.QueryRow(ctx, `SELECT version FROM deals WHERE id = $1`, d.ID).Scan(&current); {
		case errors.Is(qerr, pgx.ErrNoRows):
			err = dealNotFound(d.ID)
		case qerr != nil:
			err = qerr
		default:
			err = domain.WithMeta(domain.KindConflict,
				fmt.Sprintf("deal %s is at version %d, not %d", d.ID, current, d.Version),
				map[string]string{"deal_id": d.ID})
		}
		return err
	}
	if err = writeChildren(ctx, tx, d); err != nil {
		return err
	}
	d.Version++
	return nil
}

// writeChildren upserts steps, documents and notifications and appends
// audit entries that are not stored yet.
func writeChildren(ctx context.Context, tx pgx.Tx, d *domain.Deal) error {
	batch := &pgx.Batch{}
	for _, s := range d.Steps {
		batch.Queue(`
			INSERT INTO deal_steps (id, deal_id, key, title, local_title, status, position, required_docs, notes,
				started_at, completed_at, block_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes,
				started_at = EXCLUDED.started_at, completed_at = EXCLUDED.completed_at,
				block_reason = EXCLUDED.block_reason
		`, s.ID, d.ID, s.Key, s.Title, s.LocalTitle, string(s.Status), s.Order, docTypeStrings(s.RequiredDocs),
			nonNilStrings(s.Notes), s.StartedAt, s.CompletedAt, s.BlockReason)
	}
	for _, doc := range d.Documents {
		batch.Queue(`
			INSERT INTO deal_documents (id, deal_id, type, filename, uploaded_at, extracted_fields, status, uploaded_by, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, extracted_fields = EXCLUDED.extracted_fields
		`, doc.ID, d.ID, string(doc.Type), doc.Filename, doc.UploadedAt, fieldsJSON(doc.ExtractedFields),
			string(doc.Status), doc.UploadedBy, doc.Confidence)
	}
	for _, a := range d.Audit {
		batch.Queue(`
			INSERT INTO audit_entries (id, deal_id, at, actor, action, detail, icon)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, a.ID, d.ID, a.At, a.Actor, a.Action, a.Detail, a.Icon)
	}
	for _, n := range d.Notifications {
		batch.Queue(`
			INSERT INTO notifications (id, deal_id, severity, message, dedupe_key, created_at, read_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET message = EXCLUDED.message, severity = EXCLUDED.severity,
				created_at = EXCLUDED.created_at, read_at = EXCLUDED.read_at
		`, n.ID, d.ID, string(n.Severity), n.Message, n.DedupeKey, n.CreatedAt, n.ReadAt)
	}
	if batch.Len() == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

// List returns summaries for one org, most recently updated first. An empty
// org id lists every deal.
func (r *Deals) List(ctx context.Context, orgID string) ([]domain.DealSummary, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT d.id::text, d.name, d.city, d.status, d.total_value::text, d.compliance_score, d.risk_score,
			(SELECT count(*) FROM deal_steps s WHERE s.deal_id = d.id AND s.status = 'done'),
			(SELECT count(*) FROM deal_steps s WHERE s.deal_id = d.id),
			d.updated_at
		FROM deals d
		WHERE $1 = '' OR d.org_id = $1
		ORDER BY d.updated_at DESC, d.id
	`, orgID)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DealSummary, error) {
		var (
			s             domain.DealSummary
			status, total string
		)
		if err := row.Scan(&s.ID, &s.Name, &s.City, &status, &total, &s.ComplianceScore, &s.RiskScore,
			&s.StepsDone, &s.TotalSteps, &s.UpdatedAt); err != nil {
			return s, err
		}
		s.Status = domain.DealStatus(status)
		v, err := decimal.NewFromString(total)
		s.TotalValue = v
		return s, err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.DealSummary{}
	}
	return out, nil
}

func (r *Deals) DealIDForDocument(ctx context.Context, documentID string) (string, error) {
	var dealID string
	err := pgx.ErrNoRows
	if validID(documentID) {
		err = r.db.Pool.QueryRow(ctx, `SELECT deal_id::text FROM deal_documents WHERE id = $1`, documentID).Scan(&dealID)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.WithMeta(domain.KindDocumentNotFound, fmt.Sprintf("document %s not found", documentID), map[string]string{"document_id": documentID})
	}
	return dealID, err
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func dealNotFound(dealID string) error {
	return domain.WithMeta(domain.KindDealNotFound, fmt.Sprintf("deal %s not found", dealID), map[string]string{"deal_id": dealID})
}

// jsonb columns are NOT NULL; nil collections are stored empty.
func partiesJSON(p []domain.Party) []domain.Party {
	if p == nil {
		return []domain.Party{}
	}
	return p
}

func fieldsJSON(f map[string]string) map[string]string {
	if f == nil {
		return map[string]string{}
	}
	return f
}

func docTypeStrings(types []domain.DocType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
