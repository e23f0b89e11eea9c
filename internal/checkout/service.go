package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

var ErrInvalidStatusTransition = errors.New("invalid order status transition")

// RateLimiter gates checkout attempts per client key. Denied attempts report
// the remaining wait.
type RateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

// TokenVerifier exchanges a bearer token for a user id via the external auth
// provider.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// InvoiceMailer sends the order invoice through the transactional email API.
// Failures are best-effort like the voucher increment.
type InvoiceMailer interface {
	SendInvoice(ctx context.Context, order *Order, toName, toEmail string) error
}

type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*OrderResult, error)
	TrackOrder(ctx context.Context, orderNumber, contactPhone string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderNumber string, newStatus OrderStatus) error
}

type service struct {
	repo     Repository
	limiter  RateLimiter
	verifier TokenVerifier
	mailer   InvoiceMailer
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository, limiter RateLimiter, verifier TokenVerifier, mailer InvoiceMailer) Service {
	return &service{
		repo:     repo,
		limiter:  limiter,
		verifier: verifier,
		mailer:   mailer,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Checkout runs the pricing/validation pipeline: rate limit, identity,
// payment method, catalog snapshot, line building, voucher, shipping, total,
// persist. The voucher usage increment and the invoice email run after the
// order has committed and never fail the checkout.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*OrderResult, error) {
	if ok, wait := s.limiter.Allow(input.ClientKey); !ok {
		return nil, &RateLimitError{RetryAfter: wait}
	}

	// The limiter has already counted the attempt; all validation runs after it.
	if input.PaymentMethod != PaymentCOD && input.PaymentMethod != PaymentBkash {
		return nil, ErrUnsupportedPayment
	}

	cust, err := s.resolveIdentity(ctx, input)
	if err != nil {
		return nil, err
	}

	if input.PaymentMethod == PaymentBkash && strings.TrimSpace(input.TrxID) == "" {
		return nil, ErrMissingTrxID
	}

	items, subtotal, err := s.buildLineItems(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	discount := decimal.Zero
	code := strings.ToUpper(strings.TrimSpace(input.DiscountCode))
	if code != "" {
		voucher, err := s.repo.GetVoucherByCode(ctx, code)
		if err != nil {
			if errors.Is(err, ErrVoucherNotFound) {
				return nil, ErrInvalidVoucher
			}
			log.Error().Err(err).Str("code", code).Msg("service: failed to look up voucher")
			return nil, fmt.Errorf("service: failed to look up voucher: %w", err)
		}
		discount, err = EvaluateVoucher(voucher, subtotal, s.now())
		if err != nil {
			return nil, err
		}
	}

	shipping := ShippingCost(input.DeliveryLocation, normalizeSpeed(input.ShippingSpeed))

	order := &Order{
		OrderNumber:      s.newOrderNumber(),
		UserID:           cust.UserID,
		Status:           StatusPending,
		Items:            items,
		Subtotal:         subtotal,
		DiscountAmount:   discount,
		ShippingCost:     shipping,
		Total:            composeTotal(subtotal, discount, shipping),
		PaymentMethod:    input.PaymentMethod,
		PaymentStatus:    PaymentPending,
		PaymentTrxID:     strings.TrimSpace(input.TrxID),
		CustomerName:     cust.Name,
		ContactNumber:    cust.Phone,
		ShippingAddress:  cust.Address,
		DeliveryLocation: normalizeLocation(input.DeliveryLocation),
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("service: failed to persist order")
		return nil, err
	}

	result := &OrderResult{Order: order}
	if code != "" {
		result.VoucherUpdate.Attempted = true
		if err := s.repo.IncrementVoucherUse(ctx, code); err != nil {
			// The order has already committed; report success to the
			// customer and only log the failed increment.
			result.VoucherUpdate.Err = err
			log.Error().Err(err).Str("code", code).Str("order_number", order.OrderNumber).
				Msg("service: voucher usage increment failed after commit")
		}
	}

	if s.mailer != nil && cust.Email != "" {
		if err := s.mailer.SendInvoice(ctx, order, cust.Name, cust.Email); err != nil {
			log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("service: invoice email failed")
		}
	}

	log.Info().
		Str("order_number", order.OrderNumber).
		Str("total", order.Total.String()).
		Str("payment_method", string(order.PaymentMethod)).
		Msg("service: order created")

	return result, nil
}

func (s *service) resolveIdentity(ctx context.Context, input CheckoutInput) (*customer, error) {
	identity, err := s.classifyIdentity(input)
	if err != nil {
		return nil, err
	}

	switch id := identity.(type) {
	case Authenticated:
		profile, err := s.repo.GetProfile(ctx, id.UserID)
		if err != nil {
			if errors.Is(err, ErrProfileNotFound) {
				return nil, ErrIncompleteProfile
			}
			log.Error().Err(err).Stringer("user_id", id.UserID).Msg("service: failed to load profile")
			return nil, fmt.Errorf("service: failed to load profile: %w", err)
		}
		if profile.FullName == "" || profile.Phone == "" || profile.Address == "" {
			return nil, ErrIncompleteProfile
		}
		phone, err := NormalizePhone(profile.Phone)
		if err != nil {
			return nil, ErrIncompleteProfile
		}
		return &customer{
			Name:    profile.FullName,
			Email:   profile.Email,
			Phone:   phone,
			Address: profile.Address,
			UserID:  uuid.NullUUID{UUID: id.UserID, Valid: true},
		}, nil

	case Guest:
		d := id.Details
		if err := s.validate.Struct(d); err != nil {
			return nil, ErrInvalidGuestDetails
		}
		phone, err := NormalizePhone(d.Phone)
		if err != nil {
			return nil, err
		}
		return &customer{
			Name:    d.FullName,
			Phone:   phone,
			Address: formatGuestAddress(d),
			UserID:  uuid.NullUUID{},
		}, nil

	default:
		return nil, ErrInvalidGuestDetails
	}
}

// classifyIdentity picks the checkout branch: a bearer token means an
// authenticated account, its absence means guest checkout.
func (s *service) classifyIdentity(input CheckoutInput) (Identity, error) {
	if token := strings.TrimSpace(input.BearerToken); token != "" {
		userID, err := s.verifier.Verify(token)
		if err != nil {
			log.Warn().Err(err).Msg("service: bearer token rejected")
			return nil, ErrUnauthorized
		}
		return Authenticated{UserID: userID}, nil
	}
	if input.Guest == nil {
		return nil, ErrInvalidGuestDetails
	}
	return Guest{Details: *input.Guest}, nil
}

func (s *service) buildLineItems(ctx context.Context, lines []CartLine) ([]OrderItem, decimal.Decimal, error) {
	kept := make([]CartLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity > 0 {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return nil, decimal.Zero, ErrEmptyOrder
	}

	ids := make([]uuid.UUID, 0, len(kept))
	seen := make(map[uuid.UUID]bool)
	for _, line := range kept {
		id, err := uuid.FromString(line.ProductID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrProductUnavailable, line.ProductID)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch catalog snapshot")
		return nil, decimal.Zero, ErrCatalogUnavailable
	}
	if len(products) == 0 {
		return nil, decimal.Zero, ErrCatalogUnavailable
	}

	items := make([]OrderItem, 0, len(kept))
	subtotal := decimal.Zero
	for _, line := range kept {
		id, _ := uuid.FromString(line.ProductID)
		product, ok := products[id]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("%w: %s", ErrProductUnavailable, line.ProductID)
		}
		// Untracked stock never blocks a line; only tracked stock is
		// checked against the requested quantity.
		if product.Stock.Tracked && line.Quantity > product.Stock.Quantity {
			return nil, decimal.Zero, fmt.Errorf("%w for %s", ErrInsufficientStock, product.Name)
		}

		lineTotal := product.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		items = append(items, OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			ProductSKU:  product.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   product.UnitPrice,
			TotalPrice:  lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	return items, subtotal, nil
}

// composeTotal guards against a discount exceeding the subtotal even though
// the voucher evaluator already clamps. Shipping is never discounted.
func composeTotal(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	goods := subtotal.Sub(discount)
	if goods.IsNegative() {
		goods = decimal.Zero
	}
	return goods.Add(shipping)
}

// newOrderNumber generates ORD-<YYYYMMDD>-<4 random digits>. Uniqueness is
// not checked here; the order_number unique constraint is the backstop.
func (s *service) newOrderNumber() string {
	return fmt.Sprintf("ORD-%s-%04d", s.now().Format("20060102"), rand.Intn(10000))
}

func normalizeSpeed(speed ShippingSpeed) ShippingSpeed {
	if speed == ShippingExpress {
		return ShippingExpress
	}
	return ShippingStandard
}

func normalizeLocation(loc DeliveryLocation) DeliveryLocation {
	if loc == DeliveryInside {
		return DeliveryInside
	}
	return DeliveryOutside
}

func formatGuestAddress(d GuestDetails) string {
	parts := []string{d.Address, d.Road, d.City, d.District, d.Division}
	kept := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	if d.ZipCode != "" {
		kept = append(kept, d.ZipCode)
	}
	return strings.Join(kept, ", ")
}

func (s *service) TrackOrder(ctx context.Context, orderNumber, contactPhone string) (*Order, error) {
	phone, err := NormalizePhone(contactPhone)
	if err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_number", orderNumber).Msg("service: failed to fetch order")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	// The contact number is the guest's only credential, so a mismatch reads
	// the same as a missing order.
	if order.ContactNumber != phone {
		return nil, ErrOrderNotFound
	}

	return order, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderNumber string, newStatus OrderStatus) error {
	current, err := s.repo.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_number", orderNumber).Msg("service: failed to fetch order for status update")
		return fmt.Errorf("service: failed to fetch order for status update: %w", err)
	}

	if current.Status == newStatus {
		return nil
	}

	transitions, ok := allowedTransitions[current.Status]
	if !ok || !transitions[newStatus] {
		log.Warn().
			Str("order_number", orderNumber).
			Str("current_status", current.Status.String()).
			Str("new_status", newStatus.String()).
			Msg("service: invalid status transition attempt")
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, newStatus)
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderNumber, newStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Str("order_number", orderNumber).Msg("service: failed to update order status")
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().
		Str("order_number", orderNumber).
		Str("old_status", current.Status.String()).
		Str("new_status", newStatus.String()).
		Msg("service: order status updated")
	return nil
}
