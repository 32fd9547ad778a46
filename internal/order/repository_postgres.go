package order

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	// FOR UPDATE holds the product rows from validation through commit,
	// so two placements racing for the last unit serialize and the loser
	// observes the winner's decrement.
	lockProductQuery = `
		SELECT product_id, store_id, product_name, sale_price, stock
		FROM products
		WHERE product_id = $1
		FOR UPDATE
	`
	decrementStockQuery = `
		UPDATE products
		SET stock = stock - $2
		WHERE product_id = $1
	`
	insertOrderQuery = `
		INSERT INTO orders (user_id, address, city, postal_code, country, items_price, shipping_price, total_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING order_id, created_at
	`
	insertLineItemQuery = `
		INSERT INTO order_items (order_id, product_id, store_id, product_name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	orderColumns = `order_id, user_id, address, city, postal_code, country, items_price, shipping_price, total_price, status, delivered_at, created_at`

	getOrderByIDQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE order_id = $1
	`
	listOrdersByUserQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY order_id DESC
	`
	listOrdersPageQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY order_id DESC
		LIMIT $1 OFFSET $2
	`
	countOrdersQuery = `SELECT COUNT(*), COALESCE(SUM(total_price), 0) FROM orders`

	listOrdersByStoreQuery = `
		SELECT DISTINCT ` + prefixedOrderColumns + `
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.order_id
		WHERE oi.store_id = $1
		ORDER BY o.order_id DESC
	`
	storeTotalQuery = `
		SELECT COALESCE(SUM(unit_price * quantity), 0)
		FROM order_items
		WHERE store_id = $1
	`

	listItemsQuery = `
		SELECT order_id, product_id, store_id, product_name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1::int[])
		ORDER BY order_id, product_id
	`

	updateStatusQuery = `
		UPDATE orders
		SET status = $3, delivered_at = COALESCE($4, delivered_at)
		WHERE order_id = $1 AND status = $2
		RETURNING ` + orderColumns + `
	`
	deleteOrderQuery      = `DELETE FROM orders WHERE order_id = $1`
	deleteOrderItemsQuery = `DELETE FROM order_items WHERE order_id = $1`
)

const prefixedOrderColumns = `o.order_id, o.user_id, o.address, o.city, o.postal_code, o.country, o.items_price, o.shipping_price, o.total_price, o.status, o.delivered_at, o.created_at`

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Place runs the two-phase placement inside a single transaction scoped
// to this call. Nothing is shared between concurrent invocations; every
// statement goes through the local tx handle.
func (r *PostgresRepository) Place(ctx context.Context, req PlacementRequest) (Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, fmt.Errorf("begin placement tx: %w", err)
	}
	// no-op once Commit succeeds
	defer tx.Rollback()

	// lock rows in ascending product id order so two placements naming
	// overlapping products in opposite orders cannot deadlock
	reqItems := make([]ItemRequest, len(req.Items))
	copy(reqItems, req.Items)
	sort.Slice(reqItems, func(i, j int) bool { return reqItems[i].ProductID < reqItems[j].ProductID })

	// phase 1: lock and validate every product before touching stock
	items := make([]LineItem, 0, len(reqItems))
	for _, it := range reqItems {
		var li LineItem
		var stock int
		err := tx.QueryRowContext(ctx, lockProductQuery, it.ProductID).
			Scan(&li.ProductID, &li.StoreID, &li.Name, &li.UnitPrice, &stock)
		if err == sql.ErrNoRows {
			return Order{}, &ProductNotFoundError{ProductID: it.ProductID}
		}
		if err != nil {
			return Order{}, fmt.Errorf("lock product %d: %w", it.ProductID, err)
		}
		if stock < it.Quantity {
			return Order{}, &InsufficientStockError{
				ProductID: li.ProductID,
				Name:      li.Name,
				Available: stock,
				Requested: it.Quantity,
			}
		}
		li.Quantity = it.Quantity
		items = append(items, li)
	}

	// phase 2: decrement stock and insert the order + snapshots
	for _, it := range reqItems {
		if _, err := tx.ExecContext(ctx, decrementStockQuery, it.ProductID, it.Quantity); err != nil {
			return Order{}, fmt.Errorf("decrement product %d: %w", it.ProductID, err)
		}
	}

	ord := Order{
		UserID:        req.UserID,
		Items:         items,
		Shipping:      req.Shipping,
		ItemsPrice:    req.ItemsPrice,
		ShippingPrice: req.ShippingPrice,
		TotalPrice:    req.TotalPrice,
		Status:        StatusProcessing,
	}
	err = tx.QueryRowContext(ctx, insertOrderQuery,
		req.UserID, req.Shipping.Address, req.Shipping.City, req.Shipping.PostalCode, req.Shipping.Country,
		req.ItemsPrice, req.ShippingPrice, req.TotalPrice, StatusProcessing,
	).Scan(&ord.ID, &ord.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, li := range items {
		if _, err := tx.ExecContext(ctx, insertLineItemQuery,
			ord.ID, li.ProductID, li.StoreID, li.Name, li.UnitPrice, li.Quantity,
		); err != nil {
			return Order{}, fmt.Errorf("insert line item for product %d: %w", li.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Order{}, fmt.Errorf("commit placement: %w", err)
	}
	return ord, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Order, error) {
	ord, err := scanOrder(r.db.QueryRowContext(ctx, getOrderByIDQuery, id))
	if err != nil {
		return Order{}, err
	}
	orders := []Order{ord}
	if err := r.attachItems(ctx, orders); err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	return r.queryOrders(ctx, listOrdersByUserQuery, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context, page, limit int) ([]Order, int, float64, error) {
	var count int
	var total float64
	if err := r.db.QueryRowContext(ctx, countOrdersQuery).Scan(&count, &total); err != nil {
		return nil, 0, 0, err
	}

	orders, err := r.queryOrders(ctx, listOrdersPageQuery, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, 0, err
	}
	return orders, count, total, nil
}

func (r *PostgresRepository) ListByStore(ctx context.Context, storeID int) ([]Order, float64, error) {
	var total float64
	if err := r.db.QueryRowContext(ctx, storeTotalQuery, storeID).Scan(&total); err != nil {
		return nil, 0, err
	}

	orders, err := r.queryOrders(ctx, listOrdersByStoreQuery, storeID)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int, from, to Status, deliveredAt *time.Time) (Order, error) {
	ord, err := scanOrder(r.db.QueryRowContext(ctx, updateStatusQuery, id, from, to, deliveredAt))
	if err != nil {
		return Order{}, err
	}
	orders := []Order{ord}
	if err := r.attachItems(ctx, orders); err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteOrderItemsQuery, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, deleteOrderQuery, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOrderNotFound
	}
	return tx.Commit()
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads line items for the given orders in one query and
// distributes them in place.
func (r *PostgresRepository) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int, 0, len(orders))
	index := make(map[int]*Order, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
		index[orders[i].ID] = &orders[i]
		orders[i].Items = make([]LineItem, 0)
	}

	rows, err := r.db.QueryContext(ctx, listItemsQuery, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int
		var li LineItem
		if err := rows.Scan(&orderID, &li.ProductID, &li.StoreID, &li.Name, &li.UnitPrice, &li.Quantity); err != nil {
			return err
		}
		if ord, ok := index[orderID]; ok {
			ord.Items = append(ord.Items, li)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var ord Order
	var deliveredAt sql.NullTime
	err := row.Scan(
		&ord.ID, &ord.UserID,
		&ord.Shipping.Address, &ord.Shipping.City, &ord.Shipping.PostalCode, &ord.Shipping.Country,
		&ord.ItemsPrice, &ord.ShippingPrice, &ord.TotalPrice,
		&ord.Status, &deliveredAt, &ord.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		ord.DeliveredAt = &t
	}
	return ord, nil
}
