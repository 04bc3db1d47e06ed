// Package memrepo хранилище в памяти процесса. Используется в тестах и при локальной разработке.
package memrepo

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

type Store struct {
	mu sync.RWMutex
	// txMu сериализует единицы работы и записи вне их.
	txMu sync.Mutex

	users        map[string]domain.User
	usernames    map[string]string
	products     map[string]domain.Product
	skus         map[string]string
	orders       map[string]domain.Order
	carts        map[string]domain.Cart
	transactions []domain.Transaction
	seq          int64
}

func New() *Store {
	return &Store{
		users:        make(map[string]domain.User),
		usernames:    make(map[string]string),
		products:     make(map[string]domain.Product),
		skus:         make(map[string]string),
		orders:       make(map[string]domain.Order),
		carts:        make(map[string]domain.Cart),
		transactions: make([]domain.Transaction, 0),
	}
}

func (s *Store) Conn() uow.Conn {
	return s
}

// InTx выполняет fn последовательно с другими единицами работы и одиночными записями. При ошибке fn
// откатываются только изменения, сделанные внутри fn.
func (s *Store) InTx(ctx context.Context, fn func(context.Context, uow.Conn) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txConn{s: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// lockWrite берет блокировку на запись. Вне единицы работы запись ждет ее завершения.
func (s *Store) lockWrite(tx *txConn) func() {
	if tx != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

// txConn соединение единицы работы с журналом отката.
type txConn struct {
	s    *Store
	undo []func()
}

func (tx *txConn) onRollback(fn func()) {
	if tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

func (tx *txConn) rollback() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for _, fn := range slices.Backward(tx.undo) {
		fn()
	}
	tx.undo = nil
}

// put записывает значение и запоминает прежнее для отката. Вызывается под s.mu.
func put[K comparable, V any](tx *txConn, m map[K]V, key K, value V) {
	if prev, ok := m[key]; ok {
		tx.onRollback(func() { m[key] = prev })
	} else {
		tx.onRollback(func() { delete(m, key) })
	}
	m[key] = value
}

// Register регистрирует фабрики репозиториев хранилища в unit of work.
func Register(u *uow.UnitOfWork) error {
	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.UserRepoName: func(c uow.Conn) uow.Repository {
			s, tx := storeFromConn(c)
			return &UserRepository{s: s, tx: tx}
		},
		repoargs.OrderRepoName: func(c uow.Conn) uow.Repository {
			s, tx := storeFromConn(c)
			return &OrderRepository{s: s, tx: tx}
		},
		repoargs.ProductRepoName: func(c uow.Conn) uow.Repository {
			s, tx := storeFromConn(c)
			return &ProductRepository{s: s, tx: tx}
		},
		repoargs.TransactionRepoName: func(c uow.Conn) uow.Repository {
			s, tx := storeFromConn(c)
			return &TransactionRepository{s: s, tx: tx}
		},
		repoargs.CartRepoName: func(c uow.Conn) uow.Repository {
			s, tx := storeFromConn(c)
			return &CartRepository{s: s, tx: tx}
		},
	}
	for name, factory := range factories {
		if err := u.Register(uow.RepositoryName(name), factory); err != nil {
			return fmt.Errorf("register memory repositories: %w", err)
		}
	}
	return nil
}

// NewUnitOfWork создает unit of work поверх хранилища со всеми зарегистрированными репозиториями.
func NewUnitOfWork(s *Store) (*uow.UnitOfWork, error) {
	u := uow.NewUnitOfWork(s)
	if err := Register(u); err != nil {
		return nil, err
	}
	return u, nil
}

func storeFromConn(c uow.Conn) (*Store, *txConn) {
	switch conn := c.(type) {
	case *Store:
		return conn, nil
	case *txConn:
		return conn.s, conn
	default:
		panic(fmt.Sprintf("memrepo: unexpected connection %T", c))
	}
}

func now() time.Time {
	return time.Now().UTC()
}
