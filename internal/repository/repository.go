package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/go_store/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type CartRepository interface {
	Create(ctx context.Context, cart *domain.Cart) error
	GetWithItems(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	// GetWithItemsForUpdate also locks the cart row until the transaction ends.
	GetWithItemsForUpdate(ctx context.Context, id uuid.UUID) (*domain.Cart, error)
	SaveItem(ctx context.Context, cartID uuid.UUID, item domain.LineItem) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetWithItems(ctx context.Context, id int64) (*domain.Order, error)
	GetStatus(ctx context.Context, id int64) (domain.PaymentStatus, error)
	ListByCustomer(ctx context.Context, customer domain.CustomerID) ([]*domain.Order, error)
	// UpdateStatusIfPending reports whether the order was PENDING and now holds status.
	UpdateStatusIfPending(ctx context.Context, id int64, status domain.PaymentStatus) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type OutboxRepository interface {
	Insert(ctx context.Context, event *OutboxEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error
}

// Tx groups the repositories bound to one unit of work.
type Tx interface {
	Carts() CartRepository
	Orders() OrderRepository
	Outbox() OutboxRepository
}

type RepoInterface interface {
	Tx
	// WithTx commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
	RunMigrations(*Credentials) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "store_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Carts() CartRepository { return &cartRepository{q: r.db} }
func (r *Repository) Orders() OrderRepository { return &orderRepository{q: r.db} }
func (r *Repository) Outbox() OutboxRepository { return &outboxRepository{q: r.db} }

func (r *Repository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txRepository{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txRepository struct {
	tx *sql.Tx
}

func (t *txRepository) Carts() CartRepository { return &cartRepository{q: t.tx} }
func (t *txRepository) Orders() OrderRepository { return &orderRepository{q: t.tx} }
func (t *txRepository) Outbox() OutboxRepository { return &outboxRepository{q: t.tx} }
