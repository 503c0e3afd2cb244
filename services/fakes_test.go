package services_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yashrajoria/shopswift-api/events"
	"github.com/yashrajoria/shopswift-api/models"
	"github.com/yashrajoria/shopswift-api/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// store is an in-memory stand-in for the products, carts and orders
// collections. The repo types below are views over it.
type store struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]models.Product
	carts    map[string]models.Cart
	orders   map[primitive.ObjectID]models.Order
	users    map[string]models.UserSummary

	// hooks
	afterView     func()
	createErr     error
	decrementErr  error
	incrementErr  error
	increments    int
	deletedOrders int
}

func newStore() *store {
	return &store{
		products: map[primitive.ObjectID]models.Product{},
		carts:    map[string]models.Cart{},
		orders:   map[primitive.ObjectID]models.Order{},
		users:    map[string]models.UserSummary{},
	}
}

func (s *store) addProduct(name, price string, stock int) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Product{ID: primitive.NewObjectID(), Name: name, Price: models.MustMoney(price), Stock: stock}
	s.products[p.ID] = p
	return p.ID
}

func (s *store) setCart(userID string, lines ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := models.Cart{ID: primitive.NewObjectID(), UserID: userID, Version: 1}
	for i := 0; i+1 < len(lines); i += 2 {
		cart.Items = append(cart.Items, models.CartItem{
			ID:       primitive.NewObjectID(),
			Product:  lines[i].(primitive.ObjectID),
			Quantity: lines[i+1].(int),
		})
	}
	s.carts[userID] = cart
}

func (s *store) stock(id primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *store) setStock(id primitive.ObjectID, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.Stock = stock
	s.products[id] = p
}

func (s *store) setPrice(id primitive.ObjectID, price string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.Price = models.MustMoney(price)
	s.products[id] = p
}

func (s *store) hasCart(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.carts[userID]
	return ok
}

func (s *store) bumpCart(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.carts[userID]
	c.Version++
	s.carts[userID] = c
}

func (s *store) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type fakeProducts struct{ s *store }

func (r fakeProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r fakeProducts) DecrementStock(_ context.Context, id primitive.ObjectID, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.decrementErr != nil {
		return r.s.decrementErr
	}
	p, ok := r.s.products[id]
	if !ok || p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	r.s.products[id] = p
	return nil
}

func (r fakeProducts) IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.incrementErr != nil {
		return r.s.incrementErr
	}
	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Stock += qty
	r.s.products[id] = p
	r.s.increments++
	return nil
}

type fakeCarts struct{ s *store }

func (r fakeCarts) FindByUser(_ context.Context, userID string) (*models.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Items = append([]models.CartItem(nil), c.Items...)
	return &c, nil
}

func (r fakeCarts) FindWithProducts(_ context.Context, userID string) (*models.CartView, error) {
	r.s.mu.Lock()
	c, ok := r.s.carts[userID]
	if !ok {
		r.s.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	view := &models.CartView{Cart: c}
	for _, item := range c.Items {
		line := models.CartLine{Item: item}
		if p, ok := r.s.products[item.Product]; ok {
			line.Product = &p
		}
		view.Lines = append(view.Lines, line)
	}
	hook := r.s.afterView
	r.s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return view, nil
}

func (r fakeCarts) Save(_ context.Context, cart *models.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.carts[cart.UserID]
	if ok && stored.Version != cart.Version {
		return repository.ErrConflict
	}
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	cart.Version++
	saved := *cart
	saved.Items = append([]models.CartItem(nil), cart.Items...)
	r.s.carts[cart.UserID] = saved
	return nil
}

func (r fakeCarts) DeleteIfUnchanged(_ context.Context, userID string, version int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[userID]
	if !ok || c.Version != version {
		return repository.ErrConflict
	}
	delete(r.s.carts, userID)
	return nil
}

type fakeOrders struct{ s *store }

func (r fakeOrders) Create(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return r.s.createErr
	}
	r.s.orders[order.ID] = *order
	return nil
}

func (r fakeOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r fakeOrders) list(match func(models.Order) bool, page repository.Page) ([]models.Order, int64) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Order
	for _, o := range r.s.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if page.Limit > 0 {
		start := (page.Page - 1) * page.Limit
		if start < 0 {
			start = 0
		}
		if start > len(out) {
			start = len(out)
		}
		end := start + page.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total
}

func (r fakeOrders) FindByUser(_ context.Context, userID string, page repository.Page) ([]models.Order, int64, error) {
	out, total := r.list(func(o models.Order) bool { return o.UserID == userID }, page)
	return out, total, nil
}

func (r fakeOrders) FindAll(_ context.Context, page repository.Page) ([]models.Order, int64, error) {
	out, total := r.list(func(models.Order) bool { return true }, page)
	return out, total, nil
}

func (r fakeOrders) MarkDelivered(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Status != models.OrderStatusDelivered {
		o.Status = models.OrderStatusDelivered
		o.DeliveredAt = &at
		o.UpdatedAt = at
		r.s.orders[id] = o
	}
	return &o, nil
}

func (r fakeOrders) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.orders, id)
	r.s.deletedOrders++
	return nil
}

type fakeUsers struct{ s *store }

func (r fakeUsers) FindSummaries(_ context.Context, ids []string) (map[string]models.UserSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]models.UserSummary{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: map[string]string{}}
}

func (f *fakeIdempotency) Reserve(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.keys[key]
	if !ok {
		f.keys[key] = "pending"
		return "", true, nil
	}
	if v == "pending" {
		return "", false, nil
	}
	return v, false, nil
}

func (f *fakeIdempotency) Complete(_ context.Context, key, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = orderID
	return nil
}

func (f *fakeIdempotency) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

// atomicTransactor pretends the database rolled back; it only records the
// outcome so tests can check compensations were skipped.
type atomicTransactor struct {
	failures int
}

func (t *atomicTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err != nil {
		t.failures++
	}
	return err
}

func (t *atomicTransactor) Atomic() bool { return true }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// stalledPublisher never reaches its broker; Publish returns only when ctx ends.
type stalledPublisher struct {
	mu  sync.Mutex
	err error
}

func (p *stalledPublisher) Publish(ctx context.Context, _ events.Event) error {
	<-ctx.Done()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = ctx.Err()
	return p.err
}

func (p *stalledPublisher) Close() error { return nil }

func (p *stalledPublisher) lastErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: map[string]int{}}
}

func (m *recordingMetrics) RecordCount(_ context.Context, name string, _ map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
	return nil
}

func (m *recordingMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

func (m *recordingMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

// barrier releases all callers once n of them have arrived
func barrier(n int) func() {
	var mu sync.Mutex
	arrived := 0
	release := make(chan struct{})
	return func() {
		mu.Lock()
		arrived++
		if arrived == n {
			close(release)
		}
		mu.Unlock()
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
	}
}

var errBoom = errors.New("boom")
