package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Order mirrors a row of the orders table.
type Order struct {
	ID              pgtype.UUID
	UserID          pgtype.UUID
	OrderNumber     string
	Status          string
	PaymentMethod   pgtype.Text
	PaymentStatus   string
	RazorpayOrderID pgtype.Text
	Subtotal        pgtype.Numeric
	TaxAmount       pgtype.Numeric
	ShippingCost    pgtype.Numeric
	AddonTotal      pgtype.Numeric
	TotalAmount     pgtype.Numeric
	ShippingAddress []byte
	ShipmentAwb     pgtype.Text
	CreatedAt       pgtype.Timestamptz
}

// OrderItem mirrors a row of the order_items table with the price frozen at
// materialization time.
type OrderItem struct {
	ID              pgtype.UUID
	OrderID         pgtype.UUID
	ArtworkID       pgtype.UUID
	Title           string
	Quantity        int32
	UnitPrice       pgtype.Numeric
	LineTotal       pgtype.Numeric
	SelectedOptions []byte
}

const orderColumns = `id, user_id, order_number, status, payment_method, payment_status,
	razorpay_order_id, subtotal, tax_amount, shipping_cost, addon_total,
	total_amount, shipping_address, shipment_awb, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.RazorpayOrderID, &o.Subtotal, &o.TaxAmount, &o.ShippingCost, &o.AddonTotal,
		&o.TotalAmount, &o.ShippingAddress, &o.ShipmentAwb, &o.CreatedAt,
	)
	return o, err
}

// InsertOrderParams carries the frozen totals for a new order row.
type InsertOrderParams struct {
	UserID          pgtype.UUID
	OrderNumber     string
	Status          string
	PaymentMethod   pgtype.Text
	PaymentStatus   string
	Subtotal        pgtype.Numeric
	TaxAmount       pgtype.Numeric
	ShippingCost    pgtype.Numeric
	AddonTotal      pgtype.Numeric
	TotalAmount     pgtype.Numeric
	ShippingAddress []byte
}

// InsertOrder persists a new order header.
func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	const query = `INSERT INTO orders
		(id, user_id, order_number, status, payment_method, payment_status,
		 subtotal, tax_amount, shipping_cost, addon_total, total_amount,
		 shipping_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		RETURNING ` + orderColumns
	return scanOrder(q.db.QueryRow(ctx, query,
		NewUUID(), arg.UserID, arg.OrderNumber, arg.Status, arg.PaymentMethod, arg.PaymentStatus,
		arg.Subtotal, arg.TaxAmount, arg.ShippingCost, arg.AddonTotal, arg.TotalAmount,
		arg.ShippingAddress,
	))
}

// InsertOrderItemParams freezes one priced line onto an order.
type InsertOrderItemParams struct {
	OrderID         pgtype.UUID
	ArtworkID       pgtype.UUID
	Title           string
	Quantity        int32
	UnitPrice       pgtype.Numeric
	LineTotal       pgtype.Numeric
	SelectedOptions []byte
}

// InsertOrderItem persists a single frozen order line.
func (q *Queries) InsertOrderItem(ctx context.Context, arg InsertOrderItemParams) error {
	const query = `INSERT INTO order_items
		(id, order_id, artwork_id, title, quantity, unit_price, line_total, selected_options)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.db.Exec(ctx, query,
		NewUUID(), arg.OrderID, arg.ArtworkID, arg.Title, arg.Quantity,
		arg.UnitPrice, arg.LineTotal, arg.SelectedOptions,
	)
	return err
}

// GetOrder loads an order owned by the given user.
func (q *Queries) GetOrder(ctx context.Context, userID, orderID pgtype.UUID) (Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND id = $2`
	return scanOrder(q.db.QueryRow(ctx, query, userID, orderID))
}

// GetOrderByRazorpayID loads an order by its gateway order reference.
func (q *Queries) GetOrderByRazorpayID(ctx context.Context, razorpayOrderID string) (Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE razorpay_order_id = $1`
	return scanOrder(q.db.QueryRow(ctx, query, razorpayOrderID))
}

// ListOrders returns the user's orders newest first.
func (q *Queries) ListOrders(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListOrderItems returns the frozen lines for an order.
func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	const query = `SELECT id, order_id, artwork_id, title, quantity, unit_price, line_total, selected_options
		FROM order_items WHERE order_id = $1 ORDER BY title ASC`
	rows, err := q.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		err := rows.Scan(&it.ID, &it.OrderID, &it.ArtworkID, &it.Title, &it.Quantity,
			&it.UnitPrice, &it.LineTotal, &it.SelectedOptions)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AttachRazorpayOrder stores the gateway order id once payment is initiated.
func (q *Queries) AttachRazorpayOrder(ctx context.Context, orderID pgtype.UUID, razorpayOrderID string) error {
	const query = `UPDATE orders SET razorpay_order_id = $2, payment_status = 'initiated' WHERE id = $1`
	_, err := q.db.Exec(ctx, query, orderID, razorpayOrderID)
	return err
}

// MarkOrderPaid transitions an order to paid after signature verification.
func (q *Queries) MarkOrderPaid(ctx context.Context, orderID pgtype.UUID, method string) error {
	const query = `UPDATE orders SET payment_status = 'paid', status = 'processing', payment_method = $2
		WHERE id = $1 AND payment_status <> 'paid'`
	_, err := q.db.Exec(ctx, query, orderID, method)
	return err
}

// CountOrders returns how many orders the user has placed.
func (q *Queries) CountOrders(ctx context.Context, userID pgtype.UUID) (int64, error) {
	const query = `SELECT count(*) FROM orders WHERE user_id = $1`
	var total int64
	err := q.db.QueryRow(ctx, query, userID).Scan(&total)
	return total, err
}

// SetOrderAwb stores the courier AWB once a shipment is booked.
func (q *Queries) SetOrderAwb(ctx context.Context, orderID pgtype.UUID, awb string) error {
	const query = `UPDATE orders SET shipment_awb = $2, status = 'shipped'
		WHERE id = $1 AND status = 'processing'`
	_, err := q.db.Exec(ctx, query, orderID, awb)
	return err
}

// CancelOrder cancels an owned order while it is still pending.
func (q *Queries) CancelOrder(ctx context.Context, userID, orderID pgtype.UUID) (int64, error) {
	const query = `UPDATE orders SET status = 'cancelled'
		WHERE user_id = $1 AND id = $2 AND status = 'pending'`
	tag, err := q.db.Exec(ctx, query, userID, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
