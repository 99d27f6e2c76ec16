package order

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/pos-orders/internal/domain/product"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-+()]{7,20}$`)
)

// Config parameterises the order service.
type Config struct {
	// DefaultListLimit is used when a listing request carries no valid limit.
	DefaultListLimit int
	// MaxListLimit caps the page size of a listing request.
	MaxListLimit int
}

func (c Config) withDefaults() Config {
	if c.DefaultListLimit <= 0 {
		c.DefaultListLimit = 50
	}
	if c.MaxListLimit <= 0 {
		c.MaxListLimit = 200
	}
	if c.DefaultListLimit > c.MaxListLimit {
		c.DefaultListLimit = c.MaxListLimit
	}
	return c
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides how order and item IDs are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// Service orchestrates order operations against the catalog and the order
// repository.
type Service struct {
	cfg      Config
	products product.Repository
	orders   Repository
	now      func() time.Time
	newID    func() string
}

// NewService creates an order Service.
func NewService(cfg Config, products product.Repository, orders Repository, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg.withDefaults(),
		products: products,
		orders:   orders,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	// Timestamps carry the microsecond precision of the store.
	clock := s.now
	s.now = func() time.Time { return clock().Truncate(time.Microsecond) }
	return s
}

// ItemRequest is a product-quantity pair requested by a caller.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
	Items         []ItemRequest
	// Actor is the opaque identity of the caller, if known.
	Actor string
}

// Create validates the request, resolves every product, establishes the
// order currency and persists the order and its items in one unit.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, invalid("customer name is required")
	}
	email, err := contactField(req.CustomerEmail, emailPattern, "invalid email format")
	if err != nil {
		return nil, err
	}
	phone, err := contactField(req.CustomerPhone, phonePattern, "invalid phone number format")
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, invalid("at least one item is required")
	}

	ids := make([]string, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == "" {
			return nil, invalid("each item must have a valid product_id")
		}
		if item.Quantity < 1 {
			return nil, invalid("each item must have a quantity of at least 1")
		}
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storageError(err)
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	now := s.now()
	o := &Order{
		ID:            s.newID(),
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: phone,
		Notes:         optional(strings.TrimSpace(req.Notes)),
		Status:        StatusPending,
		CreatedBy:     optional(req.Actor),
		UpdatedBy:     optional(req.Actor),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// Items are added in request order so the first product establishes the
	// currency and the first mismatch is the one reported.
	for _, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if _, err := o.AddItem(p, item.Quantity, now, s.newID); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, storageError(err)
	}
	return o, nil
}

// Get returns an order with its items. A purely numeric ref is an order
// number, anything else an order ID.
func (s *Service) Get(ctx context.Context, ref string) (*Order, error) {
	o, err := s.orders.Get(ctx, ParseRef(ref))
	if err != nil {
		return nil, storageError(err)
	}
	return o, nil
}

// ListQuery carries raw listing parameters as received from a caller.
// Unrecognised values are ignored rather than rejected.
type ListQuery struct {
	Status       string
	CustomerName string
	OrderNumber  string
	Limit        string
	Offset       string
	Sort         string
	Order        string
}

// Filter normalises q into a ListFilter using the service configuration.
func (s *Service) Filter(q ListQuery) ListFilter {
	f := ListFilter{
		Limit:        s.cfg.DefaultListLimit,
		Sort:         SortCreatedAt,
		Descending:   q.Order != "asc",
		CustomerName: strings.TrimSpace(q.CustomerName),
	}
	if st, err := ParseStatus(q.Status); err == nil {
		f.Status = &st
	}
	if n, err := strconv.ParseInt(q.OrderNumber, 10, 64); err == nil {
		f.OrderNumber = &n
	}
	if n, err := strconv.Atoi(q.Limit); err == nil && n > 0 {
		f.Limit = min(n, s.cfg.MaxListLimit)
	}
	if n, err := strconv.Atoi(q.Offset); err == nil && n > 0 {
		f.Offset = n
	}
	if _, ok := sortKeys[SortKey(q.Sort)]; ok {
		f.Sort = SortKey(q.Sort)
	}
	return f
}

// List returns orders matching q, without their items.
func (s *Service) List(ctx context.Context, q ListQuery) ([]Order, error) {
	orders, err := s.orders.List(ctx, s.Filter(q))
	if err != nil {
		return nil, storageError(err)
	}
	return orders, nil
}

// UpdateRequest holds order fields to change. Unset fields are left alone;
// a null or empty email, phone or notes clears the field.
type UpdateRequest struct {
	CustomerName  OptString
	CustomerEmail OptNilString
	CustomerPhone OptNilString
	Notes         OptNilString
	Actor         string
}

type fieldUpdate struct {
	name   *string
	email  **string
	phone  **string
	notes  **string
	fields int
}

func (req UpdateRequest) validate() (fieldUpdate, error) {
	var u fieldUpdate
	if req.CustomerName.Set {
		name := strings.TrimSpace(req.CustomerName.Value)
		if name == "" {
			return u, invalid("customer name cannot be empty")
		}
		u.name = &name
		u.fields++
	}
	if req.CustomerEmail.Set {
		v, err := contactField(nilString(req.CustomerEmail), emailPattern, "invalid email format")
		if err != nil {
			return u, err
		}
		u.email = &v
		u.fields++
	}
	if req.CustomerPhone.Set {
		v, err := contactField(nilString(req.CustomerPhone), phonePattern, "invalid phone number format")
		if err != nil {
			return u, err
		}
		u.phone = &v
		u.fields++
	}
	if req.Notes.Set {
		v := optional(strings.TrimSpace(nilString(req.Notes)))
		u.notes = &v
		u.fields++
	}
	if u.fields == 0 {
		return u, invalid("at least one field must be provided for update")
	}
	return u, nil
}

// Update changes customer and note fields of a non-terminal order.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Order, error) {
	u, err := req.validate()
	if err != nil {
		return nil, err
	}
	o, err := s.orders.Update(ctx, id, func(_ context.Context, o *Order) error {
		if o.Status.IsTerminal() {
			return invalidState("cannot update a %s order", o.Status)
		}
		if u.name != nil {
			o.CustomerName = *u.name
		}
		if u.email != nil {
			o.CustomerEmail = *u.email
		}
		if u.phone != nil {
			o.CustomerPhone = *u.phone
		}
		if u.notes != nil {
			o.Notes = *u.notes
		}
		s.stamp(o, req.Actor)
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return o, nil
}

// UpdateStatus moves the order through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id, status, actor string) (*Order, error) {
	target, err := ParseStatus(status)
	if err != nil {
		return nil, invalid("invalid status, must be one of: %s", validStatusList())
	}
	o, err := s.orders.Update(ctx, id, func(_ context.Context, o *Order) error {
		changed, err := o.Transition(target, s.now())
		if err != nil {
			return err
		}
		if changed {
			s.stamp(o, actor)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return o, nil
}

// AddItem adds a product to an order, merging with an existing line for
// the same product. The returned Item is the line after the change.
func (s *Service) AddItem(ctx context.Context, orderID string, req ItemRequest, actor string) (*Order, Item, error) {
	if req.ProductID == "" {
		return nil, Item{}, invalid("product id is required")
	}
	if err := checkQuantity(req.Quantity); err != nil {
		return nil, Item{}, err
	}
	// The catalog is read before the order is locked so the lookup never
	// needs a second connection while the lock is held. Its failure is only
	// reported after the order itself has been checked.
	p, lookupErr := s.products.GetByID(ctx, req.ProductID)

	var line Item
	o, err := s.orders.Update(ctx, orderID, func(_ context.Context, o *Order) error {
		if err := o.checkMutable(); err != nil {
			return err
		}
		if lookupErr != nil {
			if errors.Is(lookupErr, product.ErrNotFound) {
				return &ProductNotFoundError{ProductID: req.ProductID}
			}
			return errors.Wrap(lookupErr, "get product")
		}
		var err error
		line, err = o.AddItem(*p, req.Quantity, s.now(), s.newID)
		if err != nil {
			return err
		}
		s.stamp(o, actor)
		return nil
	})
	if err != nil {
		return nil, Item{}, storageError(err)
	}
	return o, line, nil
}

// UpdateItem sets the quantity of one line of an order.
func (s *Service) UpdateItem(ctx context.Context, orderID, itemID string, quantity int, actor string) (*Order, Item, error) {
	if err := checkQuantity(quantity); err != nil {
		return nil, Item{}, err
	}
	var line Item
	o, err := s.orders.Update(ctx, orderID, func(_ context.Context, o *Order) error {
		var err error
		line, err = o.UpdateItemQuantity(itemID, quantity, s.now())
		if err != nil {
			return err
		}
		s.stamp(o, actor)
		return nil
	})
	if err != nil {
		return nil, Item{}, storageError(err)
	}
	return o, line, nil
}

// RemoveItem deletes one line of an order. The removed line is returned.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID, actor string) (*Order, Item, error) {
	var removed Item
	o, err := s.orders.Update(ctx, orderID, func(_ context.Context, o *Order) error {
		var err error
		removed, err = o.RemoveItem(itemID, s.now())
		if err != nil {
			return err
		}
		s.stamp(o, actor)
		return nil
	})
	if err != nil {
		return nil, Item{}, storageError(err)
	}
	return o, removed, nil
}

// Delete removes a pending or cancelled order together with its items and
// returns the order as it was before deletion.
func (s *Service) Delete(ctx context.Context, id string) (*Order, error) {
	var deleted Order
	err := s.orders.Delete(ctx, id, func(o *Order) error {
		if !o.Status.IsDeletable() {
			return invalidState("cannot delete order with status %q, only pending or cancelled orders can be deleted", o.Status)
		}
		deleted = *o
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return &deleted, nil
}

func (s *Service) stamp(o *Order, actor string) {
	o.UpdatedAt = s.now()
	if actor != "" {
		o.UpdatedBy = &actor
	}
}

// contactField validates an optional contact value. Empty means unset.
func contactField(v string, pattern *regexp.Regexp, msg string) (*string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if !pattern.MatchString(v) {
		return nil, invalid("%s", msg)
	}
	return &v, nil
}

func nilString(v OptNilString) string {
	if v.Null {
		return ""
	}
	return v.Value
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
