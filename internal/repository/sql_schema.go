package repository

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		event_date    TEXT NOT NULL,
		event_time    TEXT NOT NULL,
		is_published  INTEGER NOT NULL DEFAULT 0,
		created_at    INTEGER NOT NULL,
		last_modified INTEGER NOT NULL,
		published_at  INTEGER NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		event_id    TEXT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
		ticket_type TEXT NOT NULL CHECK (ticket_type IN ('full', 'concession')),
		price_cents INTEGER NOT NULL CHECK (price_cents >= 0),
		original    INTEGER NOT NULL CHECK (original >= 0),
		remaining   INTEGER NOT NULL,
		PRIMARY KEY (event_id, ticket_type),
		CHECK (remaining >= 0 AND remaining <= original)
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             TEXT PRIMARY KEY,
		event_id       TEXT NOT NULL,
		attendee_name  TEXT NOT NULL,
		attendee_email TEXT NOT NULL,
		created_at     INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS bookings_event_id_idx ON bookings (event_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS booking_items (
		booking_id  TEXT NOT NULL REFERENCES bookings (id) ON DELETE CASCADE,
		ticket_type TEXT NOT NULL,
		quantity    INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (booking_id, ticket_type)
	)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id            VARCHAR(36) PRIMARY KEY,
		title         VARCHAR(255) NOT NULL,
		description   TEXT NOT NULL,
		event_date    VARCHAR(10) NOT NULL,
		event_time    VARCHAR(5) NOT NULL,
		is_published  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    BIGINT NOT NULL,
		last_modified BIGINT NOT NULL,
		published_at  BIGINT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		event_id    VARCHAR(36) NOT NULL,
		ticket_type VARCHAR(16) NOT NULL,
		price_cents BIGINT NOT NULL,
		original    INT NOT NULL,
		remaining   INT NOT NULL,
		PRIMARY KEY (event_id, ticket_type),
		CONSTRAINT tickets_event_fk FOREIGN KEY (event_id) REFERENCES events (id) ON DELETE CASCADE,
		CONSTRAINT tickets_type_chk CHECK (ticket_type IN ('full', 'concession')),
		CONSTRAINT tickets_price_chk CHECK (price_cents >= 0),
		CONSTRAINT tickets_remaining_chk CHECK (remaining >= 0 AND remaining <= original)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id             VARCHAR(36) PRIMARY KEY,
		event_id       VARCHAR(36) NOT NULL,
		attendee_name  VARCHAR(255) NOT NULL,
		attendee_email VARCHAR(255) NOT NULL,
		created_at     BIGINT NOT NULL,
		INDEX bookings_event_id_idx (event_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS booking_items (
		booking_id  VARCHAR(36) NOT NULL,
		ticket_type VARCHAR(16) NOT NULL,
		quantity    INT NOT NULL,
		PRIMARY KEY (booking_id, ticket_type),
		CONSTRAINT booking_items_fk FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
