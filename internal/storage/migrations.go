package storage

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create hackathon snapshot tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS hackathon_snapshots (
					id TEXT PRIMARY KEY,
					position INTEGER NOT NULL,
					data TEXT NOT NULL, -- JSON
					refreshed_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_hackathon_snapshots_position ON hackathon_snapshots(position);

				CREATE TABLE IF NOT EXISTS hackathon_details (
					id TEXT PRIMARY KEY,
					data TEXT NOT NULL, -- JSON
					refreshed_at DATETIME NOT NULL
				);
			`,
		},
		{
			Version:     "002",
			Description: "Create transactions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					tx_hash TEXT,
					account TEXT NOT NULL,
					status TEXT NOT NULL,
					params TEXT, -- JSON
					block_number INTEGER,
					error TEXT,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account);
				CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
				CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create hackathon snapshot tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS hackathon_snapshots (
					id TEXT PRIMARY KEY,
					position INTEGER NOT NULL,
					data JSONB NOT NULL,
					refreshed_at TIMESTAMP WITH TIME ZONE NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_hackathon_snapshots_position ON hackathon_snapshots(position);

				CREATE TABLE IF NOT EXISTS hackathon_details (
					id TEXT PRIMARY KEY,
					data JSONB NOT NULL,
					refreshed_at TIMESTAMP WITH TIME ZONE NOT NULL
				);
			`,
		},
		{
			Version:     "002",
			Description: "Create transactions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					tx_hash TEXT,
					account TEXT NOT NULL,
					status TEXT NOT NULL,
					params JSONB,
					block_number BIGINT,
					error TEXT,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL,
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account);
				CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
				CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
			`,
		},
	}
}
