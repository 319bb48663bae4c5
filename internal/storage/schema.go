package storage

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS stores (
	id            BIGSERIAL PRIMARY KEY,
	slug          TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	contact_email TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
	id        BIGSERIAL PRIMARY KEY,
	store_id  BIGINT NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	name      TEXT NOT NULL,
	price     NUMERIC(10,2) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS product_variants (
	id         BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	size_name  TEXT NOT NULL,
	sku        TEXT NOT NULL UNIQUE,
	stock      INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	UNIQUE (product_id, size_name)
);

CREATE TABLE IF NOT EXISTS orders (
	id                   BIGSERIAL PRIMARY KEY,
	store_id             BIGINT NOT NULL REFERENCES stores(id),
	buyer_email          TEXT NOT NULL,
	buyer_phone          TEXT NOT NULL,
	shipping_address     TEXT NOT NULL,
	notes                TEXT,
	total_amount         NUMERIC(10,2) NOT NULL,
	payment_status       TEXT NOT NULL DEFAULT 'pending',
	shipping_status      TEXT NOT NULL DEFAULT 'pending',
	tracking_number      TEXT,
	shipping_invoice_ref TEXT,
	issued_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS orders_store_issued_idx
	ON orders (store_id, issued_at DESC);

CREATE TABLE IF NOT EXISTS order_lines (
	id                    BIGSERIAL PRIMARY KEY,
	order_id              BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	seq                   INTEGER NOT NULL,
	variant_id            BIGINT REFERENCES product_variants(id) ON DELETE SET NULL,
	quantity              INTEGER NOT NULL CHECK (quantity > 0),
	price_per_unit        NUMERIC(10,2) NOT NULL,
	subtotal              NUMERIC(10,2) NOT NULL,
	product_name_snapshot TEXT NOT NULL,
	product_sku_snapshot  TEXT,
	UNIQUE (order_id, seq)
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id            UUID PRIMARY KEY,
	actor         TEXT,
	action        TEXT NOT NULL,
	message       TEXT NOT NULL,
	related_model TEXT,
	related_id    TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the tables on startup if they are missing. The stock
// CHECK constraint is the last line of defense behind the ledger's atomic
// decrement.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
