package memrepo

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserRepository struct {
	s  *Store
	tx *txConn
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

func (r *UserRepository) CreateUser(_ context.Context, args repoargs.CreateUser) (*domain.User, error) {
	defer r.s.lockWrite(r.tx)()

	if _, ok := r.s.usernames[args.Username]; ok {
		return nil, fmt.Errorf("[repository/creating user] %w", domain.ErrDuplicateKey)
	}
	role := args.Role
	if role == "" {
		role = domain.RoleUser
	}
	t := now()
	user := domain.User{
		ID:        uuid.NewString(),
		CreatedAt: t,
		UpdatedAt: t,
		Username:  args.Username,
		Password:  args.Password,
		Role:      role,
		Balance:   decimal.Zero,
	}
	put(r.tx, r.s.users, user.ID, user)
	put(r.tx, r.s.usernames, user.Username, user.ID)
	return &user, nil
}

func (r *UserRepository) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usernames[username]
	if !ok {
		return nil, fmt.Errorf("[repository/finding user by username %s] %w", username, domain.ErrRecordNotFound)
	}
	user := r.s.users[id]
	return &user, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("[repository/finding user %s] %w", id, domain.ErrRecordNotFound)
	}
	return &user, nil
}

// SwapBalance сравнивает и записывает баланс под одной блокировкой.
func (r *UserRepository) SwapBalance(_ context.Context, swap repoargs.BalanceSwap) (*domain.BalanceChange, error) {
	defer r.s.lockWrite(r.tx)()

	user, ok := r.s.users[swap.UserID]
	if !ok || !user.Balance.Equal(swap.Expected) {
		return nil, fmt.Errorf("[repository/swapping balance of user %s] %w", swap.UserID, domain.ErrConcurrentModification)
	}
	user.Balance = swap.New
	user.BalanceVersion++
	user.UpdatedAt = now()
	put(r.tx, r.s.users, user.ID, user)

	return &domain.BalanceChange{
		UserID:    user.ID,
		Balance:   user.Balance,
		Version:   user.BalanceVersion,
		UpdatedAt: user.UpdatedAt,
	}, nil
}

func (r *UserRepository) UpdateUser(_ context.Context, args repoargs.UpdateUser) (*domain.User, error) {
	defer r.s.lockWrite(r.tx)()

	user, ok := r.s.users[args.ID]
	if !ok || user.Deleted() {
		return nil, fmt.Errorf("[repository/updating user %s] %w", args.ID, domain.ErrRecordNotFound)
	}
	if args.Name != nil {
		user.Name = *args.Name
	}
	if args.Avatar != nil {
		user.Avatar = *args.Avatar
	}
	user.UpdatedAt = now()
	put(r.tx, r.s.users, user.ID, user)
	return &user, nil
}

func (r *UserRepository) List(_ context.Context, filter repoargs.UserFilter) ([]domain.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []domain.User
	for _, u := range r.s.users {
		if u.Deleted() {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.Name), search) {
			continue
		}
		matched = append(matched, u)
	}

	slices.SortFunc(matched, func(a, b domain.User) int {
		var c int
		switch filter.SortBy {
		case repoargs.UserSortUsername:
			c = cmp.Compare(a.Username, b.Username)
		case repoargs.UserSortName:
			c = cmp.Compare(a.Name, b.Name)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if filter.SortOrder == repoargs.SortDesc {
			c = -c
		}
		return c
	})
	return paginate(matched, filter.Limit, filter.Offset), int64(len(matched)), nil
}

func (r *UserRepository) SoftDelete(_ context.Context, args repoargs.SoftDeleteUser) (*domain.User, error) {
	defer r.s.lockWrite(r.tx)()

	user, ok := r.s.users[args.ID]
	if !ok || user.Deleted() {
		return nil, fmt.Errorf("[repository/deleting user %s] %w", args.ID, domain.ErrRecordNotFound)
	}
	at := args.At
	user.DeletedAt = &at
	user.UpdatedAt = at
	put(r.tx, r.s.users, user.ID, user)
	return &user, nil
}

// SetBalance выставляет баланс в обход журнала. Нужен для подготовки данных в тестах.
func (r *UserRepository) SetBalance(id string, balance decimal.Decimal) {
	defer r.s.lockWrite(r.tx)()
	if user, ok := r.s.users[id]; ok {
		user.Balance = balance
		put(r.tx, r.s.users, id, user)
	}
}
