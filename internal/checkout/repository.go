package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type Repository interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	GetVoucherByCode(ctx context.Context, code string) (*Voucher, error)
	IncrementVoucherUse(ctx context.Context, code string) error
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderNumber string, newStatus OrderStatus) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	query := `
		SELECT id, name, sku, unit_price, stock_quantity
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make(map[uuid.UUID]Product, len(ids))
	for rows.Next() {
		var p Product
		var stockQty int
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.UnitPrice, &stockQty); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		// Zero stock means the product's inventory is untracked, not sold out.
		if stockQty > 0 {
			p.Stock = TrackedStock(stockQty)
		} else {
			p.Stock = UntrackedStock()
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	query := `
		SELECT user_id, full_name, email, phone, address
		FROM profiles
		WHERE user_id = $1
	`

	var p Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.FullName, &p.Email, &p.Phone, &p.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("repository: failed to select profile %s: %w", userID, err)
	}

	return &p, nil
}

func (r *postgresRepository) GetVoucherByCode(ctx context.Context, code string) (*Voucher, error) {
	query := `
		SELECT code, discount_type, discount_value, min_purchase, max_uses,
		       current_uses, valid_from, valid_until, is_active
		FROM vouchers
		WHERE code = $1
	`

	var v Voucher
	err := r.db.QueryRow(ctx, query, code).Scan(
		&v.Code,
		&v.DiscountType,
		&v.DiscountValue,
		&v.MinPurchase,
		&v.MaxUses,
		&v.CurrentUses,
		&v.ValidFrom,
		&v.ValidUntil,
		&v.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("repository: failed to select voucher %s: %w", code, err)
	}

	return &v, nil
}

// IncrementVoucherUse bumps the usage counter. The WHERE clause repeats the
// cap check so current_uses can never pass max_uses, even under concurrent
// checkouts.
func (r *postgresRepository) IncrementVoucherUse(ctx context.Context, code string) error {
	query := `
		UPDATE vouchers
		SET current_uses = current_uses + 1
		WHERE code = $1
		  AND (max_uses IS NULL OR current_uses < max_uses)
	`

	cmdTag, err := r.db.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("repository: failed to increment voucher use %s: %w", code, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("repository: voucher %s missing or at usage cap", code)
	}

	return nil
}

// CreateOrder inserts the order row and all its items in one transaction, so
// a failed item insert rolls everything back instead of leaving an orphaned
// order behind.
func (r *postgresRepository) CreateOrder(ctx context.Context, order *Order) (err error) {
	orderID, genErr := uuid.NewV4()
	if genErr != nil {
		return fmt.Errorf("repository: failed to generate order id: %w", genErr)
	}
	order.ID = orderID

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("%w: %v", ErrOrderPersist, beginErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderID).Msg("repository: failed to rollback order transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("%w: %v", ErrOrderPersist, commitErr)
			}
		}
	}()

	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	queryOrder := `
		INSERT INTO orders (
			id, order_number, user_id, status, subtotal, discount_amount,
			shipping_cost, total, payment_method, payment_status,
			payment_trx_id, customer_name, contact_number, shipping_address,
			delivery_location, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = tx.Exec(ctx, queryOrder,
		order.ID,
		order.OrderNumber,
		order.UserID,
		string(order.Status),
		order.Subtotal,
		order.DiscountAmount,
		order.ShippingCost,
		order.Total,
		string(order.PaymentMethod),
		string(order.PaymentStatus),
		order.PaymentTrxID,
		order.CustomerName,
		order.ContactNumber,
		order.ShippingAddress,
		string(order.DeliveryLocation),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderPersist, err)
	}

	queryItem := `
		INSERT INTO order_items (
			id, order_id, product_id, product_name, product_sku,
			quantity, unit_price, total_price, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range order.Items {
		item := &order.Items[i]

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			err = fmt.Errorf("%w: %v", ErrOrderItemsPersist, genErr)
			return err
		}
		item.ID = itemID
		item.OrderID = order.ID
		item.CreatedAt = now

		_, err = tx.Exec(ctx, queryItem,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.ProductSKU,
			item.Quantity,
			item.UnitPrice,
			item.TotalPrice,
			item.CreatedAt,
		)
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrOrderItemsPersist, err)
			return err
		}
	}

	return nil
}

func (r *postgresRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	queryOrder := `
		SELECT id, order_number, user_id, status, subtotal, discount_amount,
		       shipping_cost, total, payment_method, payment_status,
		       payment_trx_id, customer_name, contact_number, shipping_address,
		       delivery_location, created_at, updated_at
		FROM orders
		WHERE order_number = $1
	`

	var order Order
	err := r.db.QueryRow(ctx, queryOrder, orderNumber).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.Subtotal,
		&order.DiscountAmount,
		&order.ShippingCost,
		&order.Total,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.PaymentTrxID,
		&order.CustomerName,
		&order.ContactNumber,
		&order.ShippingAddress,
		&order.DeliveryLocation,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", orderNumber, err)
	}

	queryItems := `
		SELECT id, order_id, product_id, product_name, product_sku,
		       quantity, unit_price, total_price, created_at
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.db.Query(ctx, queryItems, order.ID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items for order %s: %w", orderNumber, err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductSKU,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan item for order %s: %w", orderNumber, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items for order %s: %w", orderNumber, err)
	}
	order.Items = items

	return &order, nil
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderNumber string, newStatus OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE order_number = $3
	`

	cmdTag, err := r.db.Exec(ctx, query, string(newStatus), time.Now().UTC(), orderNumber)
	if err != nil {
		return fmt.Errorf("repository: failed to update status for order %s: %w", orderNumber, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}
