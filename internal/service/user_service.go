package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"github.com/fsdevblog/groph-shop/internal/repository/repoargs"
	"github.com/fsdevblog/groph-shop/internal/service/tokens"
	"github.com/fsdevblog/groph-shop/pkg/uow"
)

const JWTTokenExpire = 24 * time.Hour

type UserService struct {
	uow            uow.UOW
	userRepo       UserRepository
	hasher         PasswordHasher
	jwtTokenSecret []byte
}

func NewUserService(u uow.UOW, hasher PasswordHasher, jwtTokenSecret []byte) (*UserService, error) {
	userRepo, err := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &UserService{
		uow:            u,
		userRepo:       userRepo,
		hasher:         hasher,
		jwtTokenSecret: jwtTokenSecret,
	}, nil
}

type RegisterUserArgs struct {
	Username string
	Password string
	Role     domain.Role
}

// Register создает пользователя с нулевым балансом и выдает ему jwt token. Возвращает 3 значения:
// созданный юзер, токен и ошибку. Занятое имя - domain.ErrDuplicateKey.
func (s *UserService) Register(ctx context.Context, args RegisterUserArgs) (*domain.User, string, error) {
	password, hashErr := s.hasher.HashPassword(args.Password)
	if hashErr != nil {
		return nil, "", fmt.Errorf("registering user: %s", hashErr.Error())
	}
	role := args.Role
	if role == "" {
		role = domain.RoleUser
	}

	var user *domain.User
	var token string
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		userRepo, repoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		var userErr, tokenErr error
		user, userErr = userRepo.CreateUser(c, repoargs.CreateUser{
			Username: args.Username,
			Password: password,
			Role:     role,
		})
		if userErr != nil {
			return userErr //nolint:wrapcheck
		}

		token, tokenErr = tokens.GenerateUserJWT(user.ID, user.Role, JWTTokenExpire, s.jwtTokenSecret)
		return tokenErr //nolint:wrapcheck
	})
	if txErr != nil {
		return nil, "", fmt.Errorf("registering user: %w", txErr)
	}
	return user, token, nil
}

type LoginUserArgs struct {
	Username string
	Password string
}

// Login проверяет пароль и выдает jwt token. Неизвестный, удаленный пользователь и неверный пароль
// возвращаются как domain.ErrPasswordMissMatch.
func (s *UserService) Login(ctx context.Context, args LoginUserArgs) (*domain.User, string, error) {
	user, err := s.userRepo.FindUserByUsername(ctx, args.Username)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("login: %w", domain.ErrPasswordMissMatch)
		}
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if user.Deleted() || !s.hasher.ComparePassword(args.Password, user.Password) {
		return nil, "", fmt.Errorf("login: %w", domain.ErrPasswordMissMatch)
	}

	token, err := tokens.GenerateUserJWT(user.ID, user.Role, JWTTokenExpire, s.jwtTokenSecret)
	if err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	return user, token, nil
}

// Get возвращает пользователя. Удаленный пользователь неотличим от несуществующего.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if user.Deleted() {
		return nil, fmt.Errorf("getting user %s: %w", userID, domain.ErrRecordNotFound)
	}
	return user, nil
}

const (
	minUserNameLen = 2
	maxUserNameLen = 100
)

type UpdateProfileArgs struct {
	UserID string
	Name   *string
	Avatar *string
}

// UpdateProfile меняет имя и аватар. Баланс и роль здесь не меняются.
func (s *UserService) UpdateProfile(ctx context.Context, args UpdateProfileArgs) (*domain.User, error) {
	if args.Name == nil && args.Avatar == nil {
		return nil, domain.NewValidationError("name", "at least one of name or avatar is required")
	}
	update := repoargs.UpdateUser{ID: args.UserID, Avatar: args.Avatar}
	if args.Name != nil {
		name := strings.TrimSpace(*args.Name)
		if n := utf8.RuneCountInString(name); n < minUserNameLen || n > maxUserNameLen {
			return nil, domain.NewValidationError("name",
				fmt.Sprintf("must be between %d and %d characters", minUserNameLen, maxUserNameLen))
		}
		update.Name = &name
	}

	user, err := s.userRepo.UpdateUser(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return user, nil
}

type ListUsersArgs struct {
	Role      domain.Role
	Search    string
	SortBy    repoargs.UserSortField
	SortOrder repoargs.SortOrder
	Limit     uint
	Offset    uint
}

func (s *UserService) List(ctx context.Context, args ListUsersArgs) ([]domain.User, int64, error) {
	if args.Role != "" && !args.Role.Valid() {
		return nil, 0, domain.NewValidationError("role", "unknown role")
	}
	users, total, err := s.userRepo.List(ctx, repoargs.UserFilter{
		Role:      args.Role,
		Search:    strings.TrimSpace(args.Search),
		SortBy:    args.SortBy,
		SortOrder: args.SortOrder,
		Limit:     args.Limit,
		Offset:    args.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	return users, total, nil
}

// Delete мягко удаляет пользователя. Баланс и журнал сохраняются.
func (s *UserService) Delete(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.SoftDelete(ctx, repoargs.SoftDeleteUser{ID: userID, At: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("deleting user: %w", err)
	}
	return user, nil
}
