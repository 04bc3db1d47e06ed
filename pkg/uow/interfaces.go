package uow

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks
import (
	"context"
)

type TX interface {
	Get(name RepositoryName) (Repository, error)
}

// Transactor абстрагирует хранилище: отдает соединение вне транзакции и выполняет функцию внутри транзакции.
// Conn, переданный в fn, привязан к транзакции.
type Transactor interface {
	Conn() Conn
	InTx(ctx context.Context, fn func(ctx context.Context, conn Conn) error) error
}

type UOW interface {
	Register(name RepositoryName, factory RepositoryFactory) error
	Do(ctx context.Context, fn func(ctx context.Context, tx TX) error) error
	GetRepository(name RepositoryName) (Repository, error)
}
