package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/coursegate/coursegate/internal/subscriber/domain"
	"github.com/coursegate/coursegate/internal/subscriber/repository"
	subscriberservice "github.com/coursegate/coursegate/internal/subscriber/service"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE subscribers (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			provider TEXT NOT NULL DEFAULT 'UNKNOWN',
			created_at TIMESTAMPTZ NOT NULL,
			first_name TEXT,
			last_name TEXT,
			phone TEXT,
			document TEXT,
			zipcode TEXT,
			city TEXT,
			state TEXT,
			country TEXT,
			product_id TEXT,
			product_name TEXT,
			transaction_id TEXT,
			price NUMERIC,
			currency TEXT,
			purchase_date TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX subscribers_email_key ON subscribers(email)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	return subscriberservice.New(subscriberservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestUpsertCreatesSubscriber(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	price := decimal.RequireFromString("150.6")
	purchaseDate := time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC)

	created, err := svc.Upsert(ctx, domain.UpsertRequest{
		Name:          "John Doe",
		Email:         "john@example.com",
		FirstName:     "John",
		LastName:      "Doe",
		Phone:         "+31 999999999",
		ProductID:     "213344",
		ProductName:   "Go Course",
		TransactionID: "HP12345",
		Price:         &price,
		Currency:      "BRL",
		PurchaseDate:  &purchaseDate,
	}, domain.ProviderHotmart)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	assert.NotZero(t, created.ID)
	assert.Equal(t, "john@example.com", created.Email)
	assert.Equal(t, domain.ProviderHotmart, created.Provider)

	var stored domain.Subscriber
	if err := db.Where("email = ?", "john@example.com").First(&stored).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
	assert.Equal(t, created.ID, stored.ID)
	assert.Equal(t, "213344", stored.ProductID)
	assert.Equal(t, "BRL", stored.Currency)
	if assert.NotNil(t, stored.Price) {
		assert.True(t, stored.Price.Equal(price), "price %s != %s", stored.Price, price)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	req := domain.UpsertRequest{Name: "Jane", Email: "jane@example.com", City: "Utrecht"}

	first, err := svc.Upsert(ctx, req, domain.ProviderEduzz)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := svc.Upsert(ctx, req, domain.ProviderEduzz)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	assert.Equal(t, first.ID, second.ID)
	assertCount(t, db, "SELECT COUNT(1) FROM subscribers", 1)
}

func TestUpsertMergesChangedFields(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	price := decimal.RequireFromString("99.90")
	first, err := svc.Upsert(ctx, domain.UpsertRequest{
		Name:  "Jane",
		Email: "jane@example.com",
		City:  "Utrecht",
		Price: &price,
	}, domain.ProviderHotmart)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Later delivery renames and adds a document; blank fields must not
	// clear what is already stored.
	updated, err := svc.Upsert(ctx, domain.UpsertRequest{
		Name:     "Jane Smith",
		Email:    "jane@example.com",
		Document: "12345678900",
	}, domain.ProviderHotmart)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, "Jane Smith", updated.Name)
	assert.Equal(t, "12345678900", updated.Document)
	assert.Equal(t, "Utrecht", updated.City)
	if assert.NotNil(t, updated.Price) {
		assert.True(t, updated.Price.Equal(price))
	}
}

func TestUpsertRefreshesProvider(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	req := domain.UpsertRequest{Name: "Jane", Email: "jane@example.com"}

	if _, err := svc.Upsert(ctx, req, domain.ProviderEduzz); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	updated, err := svc.Upsert(ctx, req, domain.ProviderHotmart)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	assert.Equal(t, domain.ProviderHotmart, updated.Provider)
}

func TestUpsertRejectsBlankEmail(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	_, err := svc.Upsert(ctx, domain.UpsertRequest{Name: "Jane", Email: "   "}, domain.ProviderHotmart)
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	assertCount(t, db, "SELECT COUNT(1) FROM subscribers", 0)
}

// blindRepo hides existing rows from the first reads so the insert collides
// with the unique email index, the same interleaving two concurrent
// deliveries produce.
type blindRepo struct {
	domain.Repository
	misses int
}

func (r *blindRepo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Subscriber, error) {
	if r.misses > 0 {
		r.misses--
		return nil, nil
	}
	return r.Repository.FindByEmail(ctx, db, email)
}

func TestUpsertRecoversFromDuplicateInsert(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := subscriberservice.New(subscriberservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  &blindRepo{Repository: repository.Provide(), misses: 2},
	})

	seeded := domain.Subscriber{
		ID:        node.Generate(),
		Name:      "Jane",
		Email:     "jane@example.com",
		Provider:  domain.ProviderHotmart,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.Create(&seeded).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := svc.Upsert(ctx, domain.UpsertRequest{Name: "Jane", Email: "jane@example.com"}, domain.ProviderHotmart)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	assert.Equal(t, seeded.ID, got.ID)
	assertCount(t, db, "SELECT COUNT(1) FROM subscribers", 1)
}

func TestListPaginatesWithCursor(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	for i := 0; i < 3; i++ {
		_, err := svc.Upsert(ctx, domain.UpsertRequest{
			Name:  fmt.Sprintf("Subscriber %d", i),
			Email: fmt.Sprintf("subscriber%d@example.com", i),
		}, domain.ProviderHotmart)
		if err != nil {
			t.Fatalf("seed upsert %d: %v", i, err)
		}
	}

	page, err := svc.List(ctx, domain.ListRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	assert.Len(t, page.Subscribers, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextPageToken)

	rest, err := svc.List(ctx, domain.ListRequest{PageSize: 2, PageToken: page.NextPageToken})
	if err != nil {
		t.Fatalf("list rest: %v", err)
	}
	assert.Len(t, rest.Subscribers, 1)
	assert.False(t, rest.HasMore)
}

func TestListFiltersByProvider(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db)

	if _, err := svc.Upsert(ctx, domain.UpsertRequest{Name: "A", Email: "a@example.com"}, domain.ProviderHotmart); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Upsert(ctx, domain.UpsertRequest{Name: "B", Email: "b@example.com"}, domain.ProviderEduzz); err != nil {
		t.Fatalf("seed: %v", err)
	}

	page, err := svc.List(ctx, domain.ListRequest{Provider: "eduzz"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if assert.Len(t, page.Subscribers, 1) {
		assert.Equal(t, "b@example.com", page.Subscribers[0].Email)
	}
}

func assertCount(t *testing.T, db *gorm.DB, query string, want int64) {
	t.Helper()

	var got int64
	if err := db.Raw(query).Scan(&got).Error; err != nil {
		t.Fatalf("count query: %v", err)
	}
	if got != want {
		t.Fatalf("expected %d rows, got %d (%s)", want, got, query)
	}
}
