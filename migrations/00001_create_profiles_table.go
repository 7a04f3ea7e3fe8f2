package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateProfilesTable, downCreateProfilesTable)
}

func upCreateProfilesTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE profiles (
	  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	  owner_id UUID UNIQUE NOT NULL,
	  email TEXT NOT NULL DEFAULT '',
	  name TEXT,
	  country TEXT,
	  bio TEXT CHECK (char_length(bio) <= 500),
	  profile_image_url TEXT,
	  banner_image_url TEXT,
	  created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE UNIQUE INDEX profiles_email_unique ON profiles (email) WHERE email <> '';
	`

	_, err := tx.ExecContext(ctx, query)

	if err != nil {
		return err
	}

	return nil
}

func downCreateProfilesTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS profiles;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}
	return nil
}
