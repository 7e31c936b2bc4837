package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tradecompass/internal/common"
	"tradecompass/internal/model"
)

const ruleColumns = "scope, code, chapter, business_type, rule_type, threshold, documentation, is_default"

// GetRuleByCode returns the qualification rule stored for an exact
// classification code. Misses are common.ErrNotFound.
func (s *SQLiteStorage) GetRuleByCode(ctx context.Context, code string) (*model.QualificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateCode(code); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM qualification_rules
		WHERE code = ?
		LIMIT 1`, code)
	return scanRule(row, "code "+code)
}

// GetRuleByChapter returns the chapter-wide rule. Misses are common.ErrNotFound.
func (s *SQLiteStorage) GetRuleByChapter(ctx context.Context, chapter string) (*model.QualificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(chapter, "chapter"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM qualification_rules
		WHERE chapter = ? AND (code IS NULL OR code = '')
		LIMIT 1`, chapter)
	return scanRule(row, "chapter "+chapter)
}

// GetRuleByBusinessType returns the rule stored for a business category,
// optionally narrowed to a chapter. Misses are common.ErrNotFound.
func (s *SQLiteStorage) GetRuleByBusinessType(ctx context.Context, businessType, chapter string) (*model.QualificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(businessType, "businessType"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM qualification_rules
		WHERE business_type = ? AND (chapter = ? OR chapter IS NULL OR chapter = '')
		ORDER BY chapter DESC
		LIMIT 1`, businessType, chapter)
	return scanRule(row, "business type "+businessType)
}

// GetDefaultRule returns the stored catch-all rule. Misses are
// common.ErrNotFound; the resolver then falls through to its built-in
// conservative default.
func (s *SQLiteStorage) GetDefaultRule(ctx context.Context) (*model.QualificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM qualification_rules
		WHERE is_default = 1
		LIMIT 1`)
	return scanRule(row, "default rule")
}

// GetAllRules returns every stored rule, used to warm the rule cache at
// engine initialization.
func (s *SQLiteStorage) GetAllRules(ctx context.Context) ([]model.QualificationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM qualification_rules
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.QualificationRule
	for rows.Next() {
		rule, scanErr := scanRuleRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rule row iteration: %w", err)
	}
	return rules, nil
}

// SaveRules bulk-inserts qualification rules inside a single transaction.
func (s *SQLiteStorage) SaveRules(ctx context.Context, rules []model.QualificationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(rules) == 0 {
		return fmt.Errorf("%w: rules", ErrEmptySlice)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO qualification_rules
			(scope, code, chapter, business_type, rule_type, threshold, documentation, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range rules {
		docs, marshalErr := json.Marshal(r.DocumentationRequired)
		if marshalErr != nil {
			return fmt.Errorf("rule at index %d: failed to encode documentation: %w", i, marshalErr)
		}
		if _, err := stmt.ExecContext(ctx, string(r.Scope), r.Code, r.Chapter, r.BusinessType, r.RuleType, r.Threshold, string(docs), r.IsDefault); err != nil {
			return fmt.Errorf("rule at index %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rules: %w", err)
	}
	return nil
}

// rowScanner lets scanRuleRow serve both QueryRow and Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row *sql.Row, subject string) (*model.QualificationRule, error) {
	rule, err := scanRuleRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("qualification rule for %s: %w", subject, common.ErrNotFound)
	}
	return rule, err
}

func scanRuleRow(row rowScanner) (*model.QualificationRule, error) {
	var (
		rule model.QualificationRule
		docs string
	)
	err := row.Scan(&rule.Scope, &rule.Code, &rule.Chapter, &rule.BusinessType, &rule.RuleType, &rule.Threshold, &docs, &rule.IsDefault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan qualification rule: %w", err)
	}
	if err := json.Unmarshal([]byte(docs), &rule.DocumentationRequired); err != nil {
		return nil, fmt.Errorf("failed to decode rule documentation: %w", err)
	}
	return &rule, nil
}
