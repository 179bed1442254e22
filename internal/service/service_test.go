package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/bistro-boss/internal/model"
	"github.com/mmeshcher/bistro-boss/internal/notify"
	"github.com/mmeshcher/bistro-boss/internal/repository"
	"github.com/mmeshcher/bistro-boss/internal/validation"
)

type stubRepo struct {
	getUser    *model.User
	getUserErr error

	createUserRes model.InsertResult
	createUserErr error
	createdUsers  []model.User

	cartItems    []model.CartItem
	cartItemsErr error

	finalizeRes    model.FinalizeResult
	finalizeErr    error
	finalizedCalls []model.Payment

	categoryStats []model.CategoryStat
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) ListMenu(ctx context.Context) ([]model.MenuItem, error) { return nil, nil }

func (s *stubRepo) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	return nil, repository.ErrNotFound
}

func (s *stubRepo) CreateMenuItem(ctx context.Context, item model.MenuItem) (model.InsertResult, error) {
	return model.Inserted("m1"), nil
}

func (s *stubRepo) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (model.UpdateResult, error) {
	return model.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *stubRepo) DeleteMenuItem(ctx context.Context, id string) (model.DeleteResult, error) {
	return model.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
}

func (s *stubRepo) ListReviews(ctx context.Context) ([]model.Review, error) { return nil, nil }

func (s *stubRepo) ListCartItems(ctx context.Context, email string) ([]model.CartItem, error) {
	return s.cartItems, s.cartItemsErr
}

func (s *stubRepo) CartItemsByIDs(ctx context.Context, ids []string) ([]model.CartItem, error) {
	return s.cartItems, s.cartItemsErr
}

func (s *stubRepo) AddCartItem(ctx context.Context, item model.CartItem) (model.InsertResult, error) {
	return model.Inserted("c1"), nil
}

func (s *stubRepo) DeleteCartItem(ctx context.Context, id string) (model.DeleteResult, error) {
	return model.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
}

func (s *stubRepo) CreateUser(ctx context.Context, u model.User) (model.InsertResult, error) {
	s.createdUsers = append(s.createdUsers, u)
	return s.createUserRes, s.createUserErr
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]model.User, error) { return nil, nil }

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser, s.getUserErr
}

func (s *stubRepo) DeleteUser(ctx context.Context, id string) (model.DeleteResult, error) {
	return model.DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
}

func (s *stubRepo) PromoteUser(ctx context.Context, id string) (model.UpdateResult, error) {
	return model.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *stubRepo) FinalizePayment(ctx context.Context, p model.Payment) (model.FinalizeResult, error) {
	s.finalizedCalls = append(s.finalizedCalls, p)
	return s.finalizeRes, s.finalizeErr
}

func (s *stubRepo) ListPaymentsByEmail(ctx context.Context, email string) ([]model.Payment, error) {
	return nil, nil
}

func (s *stubRepo) AdminStats(ctx context.Context) (model.AdminStats, error) {
	return model.AdminStats{}, nil
}

func (s *stubRepo) CategoryStats(ctx context.Context) ([]model.CategoryStat, error) {
	return s.categoryStats, nil
}

type stubDispatcher struct {
	receipts []notify.Receipt
	err      error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, r notify.Receipt) error {
	d.receipts = append(d.receipts, r)
	return d.err
}

type stubProvider struct {
	price  float64
	secret string
}

func (p *stubProvider) CreateIntent(ctx context.Context, price float64) (string, error) {
	p.price = price
	return p.secret, nil
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name    string
		repo    *stubRepo
		want    bool
		wantErr bool
	}{
		{name: "admin", repo: &stubRepo{getUser: &model.User{Email: "a@x.com", Role: model.RoleAdmin}}, want: true},
		{name: "regular user", repo: &stubRepo{getUser: &model.User{Email: "a@x.com"}}, want: false},
		{name: "unknown user", repo: &stubRepo{getUserErr: repository.ErrUserNotFound}, want: false},
		{name: "store failure", repo: &stubRepo{getUserErr: errors.New("db down")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, nil, nil, nil)

			got, err := svc.IsAdmin(context.Background(), "a@x.com")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("IsAdmin error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("IsAdmin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateUser_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{createUserErr: repository.ErrUserExists}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CreateUser(context.Background(), model.User{Email: "a@x.com"})
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestCreateUser_DropsSubmittedRole(t *testing.T) {
	repo := &stubRepo{createUserRes: model.Inserted("u1")}
	svc := NewService(repo, nil, nil, nil)

	if _, err := svc.CreateUser(context.Background(), model.User{Email: "a@x.com", Role: model.RoleAdmin}); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if len(repo.createdUsers) != 1 || repo.createdUsers[0].Role != "" {
		t.Fatalf("role must not be accepted from the request body: %+v", repo.createdUsers)
	}
}

func TestCreateUser_InvalidEmail(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.CreateUser(context.Background(), model.User{Email: "nope"})
	if !errors.Is(err, validation.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(repo.createdUsers) != 0 {
		t.Fatalf("store must not be called for invalid input")
	}
}

func ownedCart() []model.CartItem {
	return []model.CartItem{
		{ID: "c1", Email: "a@x.com", MenuItemID: "m1", Price: 14.5},
		{ID: "c2", Email: "a@x.com", MenuItemID: "m2", Price: 9.25},
	}
}

func TestFinalizePayment_RecomputesTotalAndEnqueuesReceipt(t *testing.T) {
	repo := &stubRepo{
		cartItems: ownedCart(),
		finalizeRes: model.FinalizeResult{
			Payment: model.Inserted("p1"),
			Cart:    model.DeleteResult{Acknowledged: true, DeletedCount: 2},
		},
	}
	dispatcher := &stubDispatcher{}
	svc := NewService(repo, nil, dispatcher, nil)

	res, err := svc.FinalizePayment(context.Background(), model.Payment{
		Email:         "a@x.com",
		TransactionID: "pi_1",
		Price:         1,
		CartIDs:       []string{"c1", "c2"},
	})
	if err != nil {
		t.Fatalf("FinalizePayment error: %v", err)
	}
	if res.Cart.DeletedCount != 2 || res.Payment.InsertedID == nil || *res.Payment.InsertedID != "p1" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(repo.finalizedCalls) != 1 {
		t.Fatalf("store FinalizePayment calls = %d, want 1", len(repo.finalizedCalls))
	}
	stored := repo.finalizedCalls[0]
	if stored.Price != 23.75 {
		t.Fatalf("stored price = %v, want 23.75", stored.Price)
	}
	if len(stored.MenuItemIDs) != 2 || stored.MenuItemIDs[0] != "m1" || stored.MenuItemIDs[1] != "m2" {
		t.Fatalf("menu item ids = %v", stored.MenuItemIDs)
	}
	if stored.Status != model.PaymentStatusPending {
		t.Fatalf("status = %q, want pending", stored.Status)
	}
	if stored.Date.IsZero() {
		t.Fatalf("date must be set")
	}

	if len(dispatcher.receipts) != 1 || dispatcher.receipts[0].TransactionID != "pi_1" {
		t.Fatalf("unexpected receipts: %+v", dispatcher.receipts)
	}
}

func TestFinalizePayment_KeepsSubmittedMenuItemsAndDate(t *testing.T) {
	date := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := &stubRepo{cartItems: ownedCart()}
	svc := NewService(repo, nil, &stubDispatcher{}, nil)

	_, err := svc.FinalizePayment(context.Background(), model.Payment{
		Email:         "a@x.com",
		TransactionID: "pi_1",
		Price:         23.75,
		CartIDs:       []string{"c1", "c2"},
		MenuItemIDs:   []string{"m9"},
		Date:          date,
	})
	if err != nil {
		t.Fatalf("FinalizePayment error: %v", err)
	}

	stored := repo.finalizedCalls[0]
	if len(stored.MenuItemIDs) != 1 || stored.MenuItemIDs[0] != "m9" {
		t.Fatalf("menu item ids = %v", stored.MenuItemIDs)
	}
	if !stored.Date.Equal(date) {
		t.Fatalf("date = %v, want %v", stored.Date, date)
	}
}

func TestFinalizePayment_MatchesCartIDsCaseInsensitively(t *testing.T) {
	repo := &stubRepo{cartItems: []model.CartItem{
		{ID: "6f9619ff-8b86-d011-b42d-00cf4fc964ff", Email: "a@x.com", MenuItemID: "m1", Price: 14.5},
	}}
	svc := NewService(repo, nil, &stubDispatcher{}, nil)

	_, err := svc.FinalizePayment(context.Background(), model.Payment{
		Email:         "a@x.com",
		TransactionID: "pi_1",
		Price:         14.5,
		CartIDs:       []string{"6F9619FF-8B86-D011-B42D-00CF4FC964FF"},
	})
	if err != nil {
		t.Fatalf("FinalizePayment error: %v", err)
	}
	if len(repo.finalizedCalls) != 1 || repo.finalizedCalls[0].Price != 14.5 {
		t.Fatalf("unexpected store calls: %+v", repo.finalizedCalls)
	}
}

func TestFinalizePayment_RejectsForeignCart(t *testing.T) {
	tests := []struct {
		name  string
		items []model.CartItem
	}{
		{
			name: "other owner",
			items: []model.CartItem{
				{ID: "c1", Email: "a@x.com", Price: 1},
				{ID: "c2", Email: "b@x.com", Price: 1},
			},
		},
		{
			name:  "missing item",
			items: []model.CartItem{{ID: "c1", Email: "a@x.com", Price: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{cartItems: tt.items}
			dispatcher := &stubDispatcher{}
			svc := NewService(repo, nil, dispatcher, nil)

			_, err := svc.FinalizePayment(context.Background(), model.Payment{
				Email:         "a@x.com",
				TransactionID: "pi_1",
				CartIDs:       []string{"c1", "c2"},
			})
			if !errors.Is(err, ErrCartOwnership) {
				t.Fatalf("expected ErrCartOwnership, got %v", err)
			}
			if len(repo.finalizedCalls) != 0 || len(dispatcher.receipts) != 0 {
				t.Fatalf("nothing must be written for a foreign cart")
			}
		})
	}
}

func TestFinalizePayment_ConflictSkipsReceipt(t *testing.T) {
	repo := &stubRepo{cartItems: ownedCart(), finalizeErr: repository.ErrCartConflict}
	dispatcher := &stubDispatcher{}
	svc := NewService(repo, nil, dispatcher, nil)

	_, err := svc.FinalizePayment(context.Background(), model.Payment{
		Email:         "a@x.com",
		TransactionID: "pi_1",
		CartIDs:       []string{"c1", "c2"},
	})
	if !errors.Is(err, repository.ErrCartConflict) {
		t.Fatalf("expected ErrCartConflict, got %v", err)
	}
	if len(dispatcher.receipts) != 0 {
		t.Fatalf("receipt must not be sent when finalization fails")
	}
}

func TestFinalizePayment_DispatchFailureIsNotReturned(t *testing.T) {
	repo := &stubRepo{cartItems: ownedCart(), finalizeRes: model.FinalizeResult{Payment: model.Inserted("p1")}}
	svc := NewService(repo, nil, &stubDispatcher{err: errors.New("queue down")}, nil)

	_, err := svc.FinalizePayment(context.Background(), model.Payment{
		Email:         "a@x.com",
		TransactionID: "pi_1",
		CartIDs:       []string{"c1", "c2"},
	})
	if err != nil {
		t.Fatalf("dispatch failure must not fail finalization, got %v", err)
	}
}

func TestFinalizePayment_InvalidBody(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.FinalizePayment(context.Background(), model.Payment{Email: "a@x.com"})
	if !errors.Is(err, validation.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOrderStats_EmptyIsNotNil(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil, nil)

	stats, err := svc.OrderStats(context.Background())
	if err != nil {
		t.Fatalf("OrderStats error: %v", err)
	}
	if stats == nil || len(stats) != 0 {
		t.Fatalf("OrderStats = %#v, want empty slice", stats)
	}
}

func TestCreatePaymentIntent(t *testing.T) {
	if _, err := NewService(&stubRepo{}, nil, nil, nil).CreatePaymentIntent(context.Background(), 1); !errors.Is(err, ErrPaymentUnavailable) {
		t.Fatalf("expected ErrPaymentUnavailable, got %v", err)
	}

	provider := &stubProvider{secret: "pi_secret"}
	svc := NewService(&stubRepo{}, provider, nil, nil)

	if _, err := svc.CreatePaymentIntent(context.Background(), -1); !errors.Is(err, validation.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	secret, err := svc.CreatePaymentIntent(context.Background(), 0.3)
	if err != nil {
		t.Fatalf("CreatePaymentIntent error: %v", err)
	}
	if secret != "pi_secret" || provider.price != 0.3 {
		t.Fatalf("secret = %q, price = %v", secret, provider.price)
	}
}
