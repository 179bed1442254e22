package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/bistro-boss/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		retryable := isConnectionError(err)

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			retryable = pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
		}

		if !retryable || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func parseID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return u.String(), nil
}

func parseIDs(ids []string) ([]string, error) {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		parsed, err := parseID(id)
		if err != nil {
			return nil, err
		}
		res = append(res, parsed)
	}
	return res, nil
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// ListMenu возвращает все блюда меню.
func (r *PostgresRepository) ListMenu(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, recipe, image, category, price_cents
		 FROM menu_items
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("select menu: %w", err)
	}
	defer rows.Close()

	items := make([]model.MenuItem, 0)
	for rows.Next() {
		var (
			item       model.MenuItem
			priceCents int64
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Recipe, &item.Image, &item.Category, &priceCents); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		item.Price = model.FromCents(priceCents)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetMenuItem возвращает блюдо по идентификатору.
func (r *PostgresRepository) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	id, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var (
		item       model.MenuItem
		priceCents int64
	)
	err = r.pool.QueryRow(ctx,
		`SELECT id, name, recipe, image, category, price_cents FROM menu_items WHERE id = $1`,
		id,
	).Scan(&item.ID, &item.Name, &item.Recipe, &item.Image, &item.Category, &priceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	item.Price = model.FromCents(priceCents)

	return &item, nil
}

// CreateMenuItem добавляет блюдо в меню.
func (r *PostgresRepository) CreateMenuItem(ctx context.Context, item model.MenuItem) (model.InsertResult, error) {
	id := uuid.NewString()
	err := r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO menu_items (id, name, recipe, image, category, price_cents) VALUES ($1, $2, $3, $4, $5, $6)`,
			id, item.Name, item.Recipe, item.Image, item.Category, model.ToCents(item.Price),
		)
		return err
	})
	if err != nil {
		return model.InsertResult{}, fmt.Errorf("insert menu item: %w", err)
	}
	return model.Inserted(id), nil
}

// UpdateMenuItem изменяет переданные поля блюда.
func (r *PostgresRepository) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (model.UpdateResult, error) {
	id, err := parseID(id)
	if err != nil {
		return model.UpdateResult{}, err
	}

	var priceCents *int64
	if patch.Price != nil {
		v := model.ToCents(*patch.Price)
		priceCents = &v
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE menu_items SET
			name = COALESCE($2, name),
			recipe = COALESCE($3, recipe),
			image = COALESCE($4, image),
			category = COALESCE($5, category),
			price_cents = COALESCE($6, price_cents)
		 WHERE id = $1`,
		id, patch.Name, patch.Recipe, patch.Image, patch.Category, priceCents,
	)
	if err != nil {
		return model.UpdateResult{}, fmt.Errorf("update menu item: %w", err)
	}

	n := cmdTag.RowsAffected()
	return model.UpdateResult{Acknowledged: true, MatchedCount: n, ModifiedCount: n}, nil
}

// DeleteMenuItem удаляет блюдо из меню.
func (r *PostgresRepository) DeleteMenuItem(ctx context.Context, id string) (model.DeleteResult, error) {
	return r.deleteByID(ctx, "menu_items", id)
}

func (r *PostgresRepository) deleteByID(ctx context.Context, table, id string) (model.DeleteResult, error) {
	id, err := parseID(id)
	if err != nil {
		return model.DeleteResult{}, err
	}

	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return model.DeleteResult{}, fmt.Errorf("delete from %s: %w", table, err)
	}

	return model.DeleteResult{Acknowledged: true, DeletedCount: cmdTag.RowsAffected()}, nil
}

// ListReviews возвращает все отзывы.
func (r *PostgresRepository) ListReviews(ctx context.Context) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, details, rating FROM reviews ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]model.Review, 0)
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.Name, &rv.Details, &rv.Rating); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}

// ListCartItems возвращает корзину пользователя.
func (r *PostgresRepository) ListCartItems(ctx context.Context, email string) ([]model.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, menu_item_id, name, image, price_cents
		 FROM carts
		 WHERE email = $1
		 ORDER BY created_at`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart: %w", err)
	}
	return scanCartItems(rows)
}

// CartItemsByIDs возвращает позиции корзины с указанными идентификаторами.
func (r *PostgresRepository) CartItemsByIDs(ctx context.Context, ids []string) ([]model.CartItem, error) {
	ids, err := parseIDs(ids)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, email, menu_item_id, name, image, price_cents
		 FROM carts
		 WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	return scanCartItems(rows)
}

func scanCartItems(rows pgx.Rows) ([]model.CartItem, error) {
	defer rows.Close()

	items := make([]model.CartItem, 0)
	for rows.Next() {
		var (
			item       model.CartItem
			priceCents int64
		)
		if err := rows.Scan(&item.ID, &item.Email, &item.MenuItemID, &item.Name, &item.Image, &priceCents); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.Price = model.FromCents(priceCents)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// AddCartItem кладёт позицию в корзину пользователя.
func (r *PostgresRepository) AddCartItem(ctx context.Context, item model.CartItem) (model.InsertResult, error) {
	menuItemID, err := parseID(item.MenuItemID)
	if err != nil {
		return model.InsertResult{}, err
	}

	id := uuid.NewString()
	err = r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO carts (id, email, menu_item_id, name, image, price_cents) VALUES ($1, $2, $3, $4, $5, $6)`,
			id, item.Email, menuItemID, item.Name, item.Image, model.ToCents(item.Price),
		)
		return err
	})
	if err != nil {
		return model.InsertResult{}, fmt.Errorf("insert cart item: %w", err)
	}
	return model.Inserted(id), nil
}

// DeleteCartItem удаляет позицию корзины.
func (r *PostgresRepository) DeleteCartItem(ctx context.Context, id string) (model.DeleteResult, error) {
	return r.deleteByID(ctx, "carts", id)
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) (model.InsertResult, error) {
	id := uuid.NewString()
	cmdTag, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, role) VALUES ($1, $2, $3, $4) ON CONFLICT (email) DO NOTHING`,
		id, u.Name, u.Email, u.Role,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.InsertResult{}, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return model.InsertResult{}, fmt.Errorf("create user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return model.InsertResult{}, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
	}
	return model.Inserted(id), nil
}

// ListUsers возвращает всех пользователей.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, role FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, role FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// DeleteUser удаляет пользователя.
func (r *PostgresRepository) DeleteUser(ctx context.Context, id string) (model.DeleteResult, error) {
	return r.deleteByID(ctx, "users", id)
}

// PromoteUser назначает пользователю роль администратора.
func (r *PostgresRepository) PromoteUser(ctx context.Context, id string) (model.UpdateResult, error) {
	id, err := parseID(id)
	if err != nil {
		return model.UpdateResult{}, err
	}

	var matched, modified int64
	err = r.pool.QueryRow(ctx,
		`WITH target AS (SELECT id FROM users WHERE id = $1),
		      updated AS (UPDATE users SET role = $2 WHERE id = $1 AND role <> $2 RETURNING id)
		 SELECT (SELECT count(*) FROM target), (SELECT count(*) FROM updated)`,
		id, model.RoleAdmin,
	).Scan(&matched, &modified)
	if err != nil {
		return model.UpdateResult{}, fmt.Errorf("promote user: %w", err)
	}

	return model.UpdateResult{Acknowledged: true, MatchedCount: matched, ModifiedCount: modified}, nil
}

// FinalizePayment в одной транзакции удаляет оплаченные позиции корзины и сохраняет оплату.
// Если удалено меньше позиций, чем указано в оплате, транзакция откатывается с ErrCartConflict.
func (r *PostgresRepository) FinalizePayment(ctx context.Context, p model.Payment) (model.FinalizeResult, error) {
	cartIDs, err := parseIDs(p.CartIDs)
	if err != nil {
		return model.FinalizeResult{}, err
	}

	menuItemIDs := p.MenuItemIDs
	if menuItemIDs == nil {
		menuItemIDs = []string{}
	}

	id := uuid.NewString()
	var deleted int64

	err = r.withRetry(ctx, func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		cmdTag, err := tx.Exec(ctx,
			`DELETE FROM carts WHERE id = ANY($1) AND email = $2`,
			cartIDs, p.Email,
		)
		if err != nil {
			return fmt.Errorf("delete cart items: %w", err)
		}

		deleted = cmdTag.RowsAffected()
		if deleted != int64(len(cartIDs)) {
			return ErrCartConflict
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO payments (id, email, price_cents, transaction_id, status, cart_ids, menu_item_ids, paid_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, p.Email, model.ToCents(p.Price), p.TransactionID, p.Status, cartIDs, menuItemIDs, p.Date,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrPaymentExists, p.TransactionID)
			}
			return fmt.Errorf("insert payment: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.FinalizeResult{}, err
	}

	return model.FinalizeResult{
		Payment: model.Inserted(id),
		Cart:    model.DeleteResult{Acknowledged: true, DeletedCount: deleted},
	}, nil
}

// ListPaymentsByEmail возвращает историю оплат пользователя, новые первыми.
func (r *PostgresRepository) ListPaymentsByEmail(ctx context.Context, email string) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, price_cents, transaction_id, status, cart_ids, menu_item_ids, paid_at
		 FROM payments
		 WHERE email = $1
		 ORDER BY paid_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	payments := make([]model.Payment, 0)
	for rows.Next() {
		var (
			p          model.Payment
			priceCents int64
		)
		if err := rows.Scan(&p.ID, &p.Email, &priceCents, &p.TransactionID, &p.Status, &p.CartIDs, &p.MenuItemIDs, &p.Date); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Price = model.FromCents(priceCents)
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return payments, nil
}

// AdminStats возвращает количество пользователей, блюд, заказов и общую выручку.
func (r *PostgresRepository) AdminStats(ctx context.Context) (model.AdminStats, error) {
	var (
		stats        model.AdminStats
		revenueCents int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM menu_items),
			(SELECT count(*) FROM payments),
			(SELECT COALESCE(SUM(price_cents), 0)::bigint FROM payments)`,
	).Scan(&stats.Users, &stats.MenuItems, &stats.Orders, &revenueCents)
	if err != nil {
		return model.AdminStats{}, fmt.Errorf("admin stats: %w", err)
	}
	stats.Revenue = model.FromCents(revenueCents)

	return stats, nil
}

// CategoryStats группирует позиции всех оплат по категориям блюд.
// Выручка считается по текущим ценам меню.
func (r *PostgresRepository) CategoryStats(ctx context.Context) ([]model.CategoryStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.category, count(*), COALESCE(SUM(m.price_cents), 0)::bigint
		 FROM payments p
		 CROSS JOIN LATERAL unnest(p.menu_item_ids) AS item(menu_item_id)
		 JOIN menu_items m ON m.id = item.menu_item_id
		 GROUP BY m.category
		 ORDER BY m.category`,
	)
	if err != nil {
		return nil, fmt.Errorf("select category stats: %w", err)
	}
	defer rows.Close()

	stats := make([]model.CategoryStat, 0)
	for rows.Next() {
		var (
			s            model.CategoryStat
			revenueCents int64
		)
		if err := rows.Scan(&s.Category, &s.Quantity, &revenueCents); err != nil {
			return nil, fmt.Errorf("scan category stat: %w", err)
		}
		s.Revenue = model.FromCents(revenueCents)
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stats, nil
}
