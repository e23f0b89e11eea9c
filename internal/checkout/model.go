package checkout

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

func (os OrderStatus) String() string {
	return string(os)
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "cod"
	PaymentBkash PaymentMethod = "bkash"
)

type DeliveryLocation string

const (
	DeliveryInside  DeliveryLocation = "inside"
	DeliveryOutside DeliveryLocation = "outside"
)

type ShippingSpeed string

const (
	ShippingStandard ShippingSpeed = "standard"
	ShippingExpress  ShippingSpeed = "express"
)

// Stock distinguishes tracked inventory from untracked inventory. A product
// whose stock is untracked never blocks a checkout line, whatever the
// requested quantity. The catalog stores untracked stock as a zero quantity,
// so the repository maps zero to Untracked on read.
type Stock struct {
	Tracked  bool
	Quantity int
}

func TrackedStock(n int) Stock {
	return Stock{Tracked: true, Quantity: n}
}

func UntrackedStock() Stock {
	return Stock{}
}

// Product is the authoritative catalog snapshot for one product, fetched
// fresh at checkout time. Client-supplied prices are never trusted.
type Product struct {
	ID        uuid.UUID
	Name      string
	SKU       string
	UnitPrice decimal.Decimal
	Stock     Stock
}

// CartLine is one untrusted client cart entry.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderID     uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	ProductSKU  string          `json:"product_sku" db:"product_sku"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price" db:"total_price"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type Order struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	OrderNumber      string           `json:"order_number" db:"order_number"`
	UserID           uuid.NullUUID    `json:"user_id,omitempty" db:"user_id"`
	Status           OrderStatus      `json:"status" db:"status"`
	Items            []OrderItem      `json:"items" db:"-"`
	Subtotal         decimal.Decimal  `json:"subtotal" db:"subtotal"`
	DiscountAmount   decimal.Decimal  `json:"discount_amount" db:"discount_amount"`
	ShippingCost     decimal.Decimal  `json:"shipping_cost" db:"shipping_cost"`
	Total            decimal.Decimal  `json:"total" db:"total"`
	PaymentMethod    PaymentMethod    `json:"payment_method" db:"payment_method"`
	PaymentStatus    PaymentStatus    `json:"payment_status" db:"payment_status"`
	PaymentTrxID     string           `json:"payment_trx_id,omitempty" db:"payment_trx_id"`
	CustomerName     string           `json:"customer_name" db:"customer_name"`
	ContactNumber    string           `json:"contact_number" db:"contact_number"`
	ShippingAddress  string           `json:"shipping_address" db:"shipping_address"`
	DeliveryLocation DeliveryLocation `json:"delivery_location" db:"delivery_location"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

type VoucherType string

const (
	VoucherPercentage VoucherType = "percentage"
	VoucherFixed      VoucherType = "fixed"
)

type Voucher struct {
	Code          string          `json:"code" db:"code"`
	DiscountType  VoucherType     `json:"discount_type" db:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value" db:"discount_value"`
	MinPurchase   decimal.Decimal `json:"min_purchase" db:"min_purchase"`
	MaxUses       *int            `json:"max_uses" db:"max_uses"`
	CurrentUses   int             `json:"current_uses" db:"current_uses"`
	ValidFrom     *time.Time      `json:"valid_from" db:"valid_from"`
	ValidUntil    *time.Time      `json:"valid_until" db:"valid_until"`
	IsActive      bool            `json:"is_active" db:"is_active"`
}

// GuestDetails is the inline contact/address capture for guest checkout.
type GuestDetails struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Division string `json:"division" validate:"required"`
	District string `json:"district" validate:"required"`
	City     string `json:"city" validate:"required"`
	Road     string `json:"road" validate:"required"`
	ZipCode  string `json:"zip_code" validate:"omitempty,len=4,numeric"`
	Address  string `json:"address"`
}

// Profile is the stored contact record for an authenticated user.
type Profile struct {
	UserID   uuid.UUID `db:"user_id"`
	FullName string    `db:"full_name"`
	Email    string    `db:"email"`
	Phone    string    `db:"phone"`
	Address  string    `db:"address"`
}

// Identity is the resolved requester: either an authenticated account or a
// guest with inline details. Exactly one branch is taken per checkout.
type Identity interface {
	isIdentity()
}

type Authenticated struct {
	UserID uuid.UUID
}

type Guest struct {
	Details GuestDetails
}

func (Authenticated) isIdentity() {}
func (Guest) isIdentity()         {}

// customer is the normalized output of identity resolution. Email is only
// known for authenticated accounts; guests get no invoice email.
type customer struct {
	Name    string
	Email   string
	Phone   string
	Address string
	UserID  uuid.NullUUID
}

// CheckoutInput carries one checkout request through the pipeline.
type CheckoutInput struct {
	ClientKey        string
	BearerToken      string
	Guest            *GuestDetails
	Lines            []CartLine
	DeliveryLocation DeliveryLocation
	ShippingSpeed    ShippingSpeed
	DiscountCode     string
	PaymentMethod    PaymentMethod
	TrxID            string
}

// VoucherUpdate reports the post-commit usage increment. A failed increment
// never fails the checkout; the caller logs it.
type VoucherUpdate struct {
	Attempted bool
	Err       error
}

// OrderResult is the two-phase outcome: the committed order plus the
// best-effort voucher side effect.
type OrderResult struct {
	Order         *Order
	VoucherUpdate VoucherUpdate
}
