package model

import "time"

// Metadata carries the audit timestamps the persistence layer maintains on
// every row.
type Metadata struct {
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
