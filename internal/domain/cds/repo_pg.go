package cds

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) Create(ctx context.Context, rule *Rule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO cds_rule (id, kind, subject_a, subject_b, severity, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		rule.ID, string(rule.Kind), rule.SubjectA, rule.SubjectB, string(rule.Severity), rule.Message,
	).Scan(&rule.CreatedAt)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM cds_rule WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cds rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Rule, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, kind, subject_a, subject_b, severity, message, created_at
		FROM cds_rule ORDER BY kind, subject_a, subject_b`)
	if err != nil {
		return nil, fmt.Errorf("list cds rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.Kind, &rule.SubjectA, &rule.SubjectB,
			&rule.Severity, &rule.Message, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}
