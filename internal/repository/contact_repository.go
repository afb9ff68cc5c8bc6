package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/okwach/wablast-backend/internal/model"
)

// ContactRepositoryInterface is the recipient-list collaborator: it returns
// the ordered contacts behind a campaign's configured lists. No extra
// deduplication happens here.
type ContactRepositoryInterface interface {
	ListByListIDs(listIDs []int64) ([]model.Contact, error)
	GetByID(id int) (*model.Contact, error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *sql.DB
}

// ListByListIDs fetches all contacts belonging to the given lists, in a
// stable order (list, then insertion order).
func (r *ContactRepository) ListByListIDs(listIDs []int64) ([]model.Contact, error) {
	query := `
        SELECT id, list_id, phone, name
        FROM contacts
        WHERE list_id = ANY($1)
        ORDER BY list_id, id
    `
	rows, err := r.DB.Query(query, pq.Array(listIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.ListID, &c.Phone, &c.Name); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// GetByID fetches a contact by ID
func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	query := `
        SELECT id, list_id, phone, name
        FROM contacts
        WHERE id = $1
    `
	row := r.DB.QueryRow(query, id)

	var c model.Contact
	if err := row.Scan(&c.ID, &c.ListID, &c.Phone, &c.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
