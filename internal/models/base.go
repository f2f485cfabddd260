package models

import (
	"github.com/google/uuid"
)

// ensureID assigns a fresh UUID to an unset primary key. IDs are generated in
// the application so the schema carries no database-specific defaults.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
