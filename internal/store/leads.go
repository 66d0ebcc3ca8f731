package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Lead is a completed audit, kept for the sales team.
type Lead struct {
	ID             string // report id
	SessionID      string
	Email          string
	Name           string
	Company        string
	Industry       string
	PainScore      int
	EstimatedValue float64
	Report         string // JSON
	CRMContactID   string
	CRMDealID      string
	CreatedAt      int64 // unix ms
}

const leadColumns = `id, session_id, email, name, company, industry, pain_score,
	estimated_value, report, crm_contact_id, crm_deal_id, created_at`

// SaveLead inserts or replaces a lead.
func (s *Store) SaveLead(l *Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.CreatedAt == 0 {
		l.CreatedAt = time.Now().UnixMilli()
	}

	query := `INSERT OR REPLACE INTO leads (` + leadColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query,
		l.ID, l.SessionID, l.Email, l.Name, l.Company, l.Industry, l.PainScore,
		l.EstimatedValue, l.Report,
		nullString(l.CRMContactID), nullString(l.CRMDealID),
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}
	return nil
}

// GetLead retrieves a lead by report id. It returns nil, nil when missing.
func (s *Store) GetLead(id string) (*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	l, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return l, nil
}

// ListLeads returns the newest leads first.
func (s *Store) ListLeads(limit int) ([]*Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []*Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leads: %w", err)
	}
	return leads, nil
}

// SetLeadCRMIDs records the CRM identifiers for a lead.
func (s *Store) SetLeadCRMIDs(id, contactID, dealID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.execOne("setting crm ids for lead "+id,
		`UPDATE leads SET crm_contact_id = ?, crm_deal_id = ? WHERE id = ?`,
		nullString(contactID), nullString(dealID), id,
	)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(sc scanner) (*Lead, error) {
	l := &Lead{}
	var contactID, dealID sql.NullString
	err := sc.Scan(
		&l.ID, &l.SessionID, &l.Email, &l.Name, &l.Company, &l.Industry, &l.PainScore,
		&l.EstimatedValue, &l.Report, &contactID, &dealID, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.CRMContactID = contactID.String
	l.CRMDealID = dealID.String
	return l, nil
}
