package repoargs

import (
	"time"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/shopspring/decimal"
)

type CreateUser struct {
	Username string
	Password string
	Role     domain.Role
}

// BalanceSwap условная запись баланса: New записывается, только если в хранилище все еще Expected.
type BalanceSwap struct {
	UserID   string
	Expected decimal.Decimal
	New      decimal.Decimal
}

// BalanceMutation изменение баланса на Delta в направлении Direction относительно прочитанного Expected.
type BalanceMutation struct {
	UserID    string
	Expected  decimal.Decimal
	Delta     decimal.Decimal
	Direction domain.DirectionType
}

// UpdateUser правка профиля. nil поля не меняются.
type UpdateUser struct {
	ID     string
	Name   *string
	Avatar *string
}

type UserSortField string

const (
	UserSortCreatedAt UserSortField = "created_at"
	UserSortUsername  UserSortField = "username"
	UserSortName      UserSortField = "name"
)

// UserFilter выборка пользователей. Удаленные пользователи в выборку не попадают.
type UserFilter struct {
	Role domain.Role
	// Search подстрока логина или имени без учета регистра.
	Search    string
	SortBy    UserSortField
	SortOrder SortOrder
	Limit     uint
	Offset    uint
}

type SoftDeleteUser struct {
	ID string
	At time.Time
}
