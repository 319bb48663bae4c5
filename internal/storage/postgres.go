package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/example/marketplace/internal/audit"
	"github.com/example/marketplace/internal/domain/catalog"
	"github.com/example/marketplace/internal/domain/order"
)

// ConnectPostgres establishes a connection to PostgreSQL.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Postgres implements Store and audit.Writer over database/sql.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// WithinTx runs fn inside one transaction, rolling back on any error path.
// Serialization and deadlock aborts are translated to ErrSerialization so
// orchestrators can retry.
func (s *Postgres) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateErr(err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{q: tx}); err != nil {
		return translateErr(err)
	}
	return translateErr(tx.Commit())
}

func (s *Postgres) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, s.db, id, false)
}

func (s *Postgres) ListStoreOrders(ctx context.Context, storeSlug string, f OrderFilter) ([]*order.Order, error) {
	var storeID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM stores WHERE slug = $1`, storeSlug).Scan(&storeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store %q: %w", storeSlug, ErrStoreNotFound)
	}
	if err != nil {
		return nil, err
	}

	query := `SELECT o.id, o.store_id, s.slug, o.buyer_email, o.buyer_phone, o.shipping_address,
			o.notes, o.total_amount, o.payment_status, o.shipping_status,
			o.tracking_number, o.shipping_invoice_ref, o.issued_at, o.updated_at
		FROM orders o
		JOIN stores s ON s.id = o.store_id
		WHERE o.store_id = $1`
	args := []any{storeID}

	if f.PaymentStatus != "" {
		args = append(args, f.PaymentStatus)
		query += fmt.Sprintf(" AND o.payment_status = $%d", len(args))
	}
	if f.ShippingStatus != "" {
		args = append(args, f.ShippingStatus)
		query += fmt.Sprintf(" AND o.shipping_status = $%d", len(args))
	}
	if f.BuyerEmail != "" {
		args = append(args, f.BuyerEmail)
		query += fmt.Sprintf(" AND o.buyer_email = $%d", len(args))
	}
	query += " ORDER BY o.issued_at DESC, o.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if o.Lines, err = loadLines(ctx, s.db, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// InsertAuditLog implements audit.Writer.
func (s *Postgres) InsertAuditLog(ctx context.Context, e audit.Entry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_logs
			(id, actor, action, message, related_model, related_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Actor, e.Action, e.Message,
		nullString(e.RelatedModel), nullString(e.RelatedID), e.CreatedAt)
	return err
}

// pgTx is the transactional view handed to WithinTx callbacks.
type pgTx struct {
	q queryer
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (t *pgTx) ResolveVariant(ctx context.Context, variantID int64) (*catalog.Variant, error) {
	v := &catalog.Variant{}
	err := t.q.QueryRowContext(ctx, `SELECT v.id, v.product_id, p.store_id, s.slug,
			p.name, v.sku, v.size_name, p.price, v.stock
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		JOIN stores s ON s.id = p.store_id
		WHERE v.id = $1 AND p.is_active`, variantID).
		Scan(&v.ID, &v.ProductID, &v.StoreID, &v.StoreSlug,
			&v.ProductName, &v.SKU, &v.SizeName, &v.UnitPrice, &v.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DecrementStock is the authoritative reservation: the WHERE clause makes the
// compare and the decrement one atomic row update, so concurrent checkouts
// serialize on the row and the counter can never go negative.
func (t *pgTx) DecrementStock(ctx context.Context, variantID int64, qty int) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE product_variants SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
		variantID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := t.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM product_variants WHERE id = $1)`, variantID).
		Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrVariantNotFound
	}
	return ErrInsufficientStock
}

func (t *pgTx) IncrementStock(ctx context.Context, variantID int64, qty int) (bool, error) {
	res, err := t.q.ExecContext(ctx,
		`UPDATE product_variants SET stock = stock + $2 WHERE id = $1`,
		variantID, qty)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *order.Order) error {
	err := t.q.QueryRowContext(ctx, `INSERT INTO orders
			(store_id, buyer_email, buyer_phone, shipping_address, notes,
			 total_amount, payment_status, shipping_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, issued_at, updated_at`,
		o.StoreID, o.BuyerEmail, o.BuyerPhone, o.ShippingAddress, nullString(o.Notes),
		o.TotalAmount, string(o.PaymentStatus), string(o.ShippingStatus)).
		Scan(&o.ID, &o.IssuedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range o.Lines {
		line := &o.Lines[i]
		_, err := t.q.ExecContext(ctx, `INSERT INTO order_lines
				(order_id, seq, variant_id, quantity, price_per_unit, subtotal,
				 product_name_snapshot, product_sku_snapshot)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			o.ID, line.Seq, nullInt64(line.VariantID), line.Quantity,
			line.PricePerUnit, line.PricePerUnit.Mul(decimal.NewFromInt(int64(line.Quantity))),
			line.ProductName, nullString(line.ProductSKU))
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return getOrder(ctx, t.q, id, true)
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, o *order.Order) error {
	return t.q.QueryRowContext(ctx, `UPDATE orders
		SET payment_status = $2, shipping_status = $3,
			tracking_number = $4, shipping_invoice_ref = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		o.ID, string(o.PaymentStatus), string(o.ShippingStatus),
		nullString(o.TrackingNumber), nullString(o.ShippingInvoiceRef)).
		Scan(&o.UpdatedAt)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getOrder(ctx context.Context, q queryer, id int64, forUpdate bool) (*order.Order, error) {
	query := `SELECT o.id, o.store_id, s.slug, o.buyer_email, o.buyer_phone, o.shipping_address,
			o.notes, o.total_amount, o.payment_status, o.shipping_status,
			o.tracking_number, o.shipping_invoice_ref, o.issued_at, o.updated_at
		FROM orders o
		JOIN stores s ON s.id = o.store_id
		WHERE o.id = $1`
	if forUpdate {
		query += " FOR UPDATE OF o"
	}

	o, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if o.Lines, err = loadLines(ctx, q, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func scanOrder(r rowScanner) (*order.Order, error) {
	o := &order.Order{}
	var notes, tracking, invoiceRef sql.NullString
	var payment, shipping string
	if err := r.Scan(&o.ID, &o.StoreID, &o.StoreSlug, &o.BuyerEmail, &o.BuyerPhone,
		&o.ShippingAddress, &notes, &o.TotalAmount, &payment, &shipping,
		&tracking, &invoiceRef, &o.IssuedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Notes = notes.String
	o.TrackingNumber = tracking.String
	o.ShippingInvoiceRef = invoiceRef.String
	o.PaymentStatus = order.PaymentStatus(payment)
	o.ShippingStatus = order.ShippingStatus(shipping)
	return o, nil
}

func loadLines(ctx context.Context, q queryer, orderID int64) ([]order.Line, error) {
	rows, err := q.QueryContext(ctx, `SELECT seq, variant_id, quantity, price_per_unit,
			subtotal, product_name_snapshot, product_sku_snapshot
		FROM order_lines WHERE order_id = $1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]order.Line, 0, 4)
	for rows.Next() {
		var line order.Line
		var variantID sql.NullInt64
		var sku sql.NullString
		if err := rows.Scan(&line.Seq, &variantID, &line.Quantity, &line.PricePerUnit,
			&line.Subtotal, &line.ProductName, &sku); err != nil {
			return nil, err
		}
		if variantID.Valid {
			v := variantID.Int64
			line.VariantID = &v
		}
		line.ProductSKU = sku.String
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// translateErr maps storage-level aborts onto the retryable sentinel.
// 40001 is serialization_failure, 40P01 deadlock_detected.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrSerialization, pqErr.Message)
		}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
