package pgrepo

import (
	"fmt"

	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewUnitOfWork создает unit of work поверх пула и регистрирует в нем репозитории postgres.
func NewUnitOfWork(pool *pgxpool.Pool) (*uow.UnitOfWork, error) {
	u := uow.NewUnitOfWork(uow.NewPgxTransactor(pool))

	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.UserRepoName: func(c uow.Conn) uow.Repository {
			return NewUserRepository(dbtxFromConn(c))
		},
		repoargs.OrderRepoName: func(c uow.Conn) uow.Repository {
			return NewOrderRepository(dbtxFromConn(c))
		},
		repoargs.ProductRepoName: func(c uow.Conn) uow.Repository {
			return NewProductRepository(dbtxFromConn(c))
		},
		repoargs.TransactionRepoName: func(c uow.Conn) uow.Repository {
			return NewTransactionRepository(dbtxFromConn(c))
		},
		repoargs.CartRepoName: func(c uow.Conn) uow.Repository {
			return NewCartRepository(dbtxFromConn(c))
		},
	}
	for name, factory := range factories {
		if err := u.Register(uow.RepositoryName(name), factory); err != nil {
			return nil, fmt.Errorf("register postgres repositories: %w", err)
		}
	}
	return u, nil
}

func dbtxFromConn(c uow.Conn) uow.DBTX {
	conn, err := uow.ConnAs[uow.DBTX](c)
	if err != nil {
		panic(err)
	}
	return conn
}
