package postgres

import (
	"context"
	"fmt"
)

// The tables mirror the existing Supabase project: camelCase columns are
// quoted. annee was added later and defaults to 0 (unknown year).
const schemaUp = `
CREATE TABLE IF NOT EXISTS eleves (
    id                BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    nom               TEXT NOT NULL,
    niveau            TEXT NOT NULL,
    "dateInscription" DATE,
    "typeCours"       TEXT NOT NULL DEFAULT 'classe',
    created_at        TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS paiements (
    id              BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    "eleveId"       BIGINT NOT NULL,
    montant         NUMERIC(14,2) NOT NULL DEFAULT 0,
    mois            TEXT NOT NULL DEFAULT '',
    "dateVersement" DATE,
    created_at      TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

ALTER TABLE paiements ADD COLUMN IF NOT EXISTS annee INTEGER NOT NULL DEFAULT 0;

CREATE INDEX IF NOT EXISTS idx_eleves_nom ON eleves (nom);
CREATE INDEX IF NOT EXISTS idx_paiements_eleve ON paiements ("eleveId");
CREATE INDEX IF NOT EXISTS idx_paiements_annee_mois ON paiements (annee, mois);
`

// EnsureSchema creates the tables when they are missing. It is safe to run
// against a database that already has them.
func (c *Connection) EnsureSchema(ctx context.Context) error {
	if _, err := c.Pool().Exec(ctx, schemaUp); err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}
	return nil
}
