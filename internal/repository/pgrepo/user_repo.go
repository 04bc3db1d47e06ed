package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, password, role, name, avatar, balance, balance_version, created_at, updated_at,
	deleted_at`

type UserRepository struct {
	conn uow.DBTX
}

func NewUserRepository(conn uow.DBTX) *UserRepository {
	return &UserRepository{conn: conn}
}

// CreateUser создает юзера в базе данных. В случае конфликта юзернейма возвращает ошибку domain.ErrDuplicateKey.
func (u *UserRepository) CreateUser(ctx context.Context, user repoargs.CreateUser) (*domain.User, error) {
	role := user.Role
	if role == "" {
		role = domain.RoleUser
	}
	row := u.conn.QueryRow(ctx,
		`INSERT INTO users (id, username, password, role) VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		uuid.NewString(), user.Username, user.Password, string(role),
	)
	dbUser, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "creating user")
	}
	return dbUser, nil
}

// FindUserByUsername ищет юзера по его юзернейму. Возвращает ошибку domain.ErrRecordNotFound если запись не найдена.
func (u *UserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := u.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	dbUser, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by username %s", username)
	}
	return dbUser, nil
}

func (u *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := u.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	dbUser, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user %s", id)
	}
	return dbUser, nil
}

// SwapBalance условный UPDATE баланса. Ни одной обновленной строки - значит баланс успел измениться,
// это domain.ErrConcurrentModification.
func (u *UserRepository) SwapBalance(ctx context.Context, swap repoargs.BalanceSwap) (*domain.BalanceChange, error) {
	var change domain.BalanceChange
	err := u.conn.QueryRow(ctx,
		`UPDATE users
		SET balance = $3, balance_version = balance_version + 1, updated_at = now()
		WHERE id = $1 AND balance = $2
		RETURNING id, balance, balance_version, updated_at`,
		swap.UserID, swap.Expected, swap.New,
	).Scan(&change.UserID, &change.Balance, &change.Version, &change.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("[repository/swapping balance of user %s] %w",
				swap.UserID, domain.ErrConcurrentModification)
		}
		return nil, convertErr(err, "swapping balance of user %s", swap.UserID)
	}
	return &change, nil
}

func (u *UserRepository) UpdateUser(ctx context.Context, args repoargs.UpdateUser) (*domain.User, error) {
	b := newUpdateBuilder("users", args.ID)
	if args.Name != nil {
		b.set("name", *args.Name)
	}
	if args.Avatar != nil {
		b.set("avatar", *args.Avatar)
	}
	b.whereExpr("deleted_at IS NULL")

	query, queryArgs := b.build(userColumns)
	dbUser, err := scanUser(u.conn.QueryRow(ctx, query, queryArgs...))
	if err != nil {
		return nil, convertErr(err, "updating user %s", args.ID)
	}
	return dbUser, nil
}

func (u *UserRepository) List(ctx context.Context, filter repoargs.UserFilter) ([]domain.User, int64, error) {
	conds := []string{"deleted_at IS NULL"}
	var args []any
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(username ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int64
	if err := u.conn.QueryRow(ctx, `SELECT count(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting users")
	}

	sortBy := "created_at"
	switch filter.SortBy {
	case repoargs.UserSortUsername:
		sortBy = "username"
	case repoargs.UserSortName:
		sortBy = "name"
	case repoargs.UserSortCreatedAt:
	}
	direction := "ASC"
	if filter.SortOrder == repoargs.SortDesc {
		direction = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY %s %s, id %s%s`,
		userColumns, where, sortBy, direction, direction, limitOffset(filter.Limit, filter.Offset))

	rows, err := u.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, convertErr(err, "listing users")
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		dbUser, scanErr := scanUser(row)
		if scanErr != nil {
			return domain.User{}, scanErr
		}
		return *dbUser, nil
	})
	if err != nil {
		return nil, 0, convertErr(err, "listing users")
	}
	return users, total, nil
}

func (u *UserRepository) SoftDelete(ctx context.Context, args repoargs.SoftDeleteUser) (*domain.User, error) {
	b := newUpdateBuilder("users", args.ID)
	b.set("deleted_at", args.At)
	b.whereExpr("deleted_at IS NULL")

	query, queryArgs := b.build(userColumns)
	dbUser, err := scanUser(u.conn.QueryRow(ctx, query, queryArgs...))
	if err != nil {
		return nil, convertErr(err, "deleting user %s", args.ID)
	}
	return dbUser, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var role string
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&role,
		&user.Name,
		&user.Avatar,
		&user.Balance,
		&user.BalanceVersion,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	user.Role = domain.Role(role)
	return &user, nil
}
