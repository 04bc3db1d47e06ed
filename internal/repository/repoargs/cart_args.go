package repoargs

import "github.com/fsdevblog/groph-shop/internal/domain"

// SaveCart полностью заменяет содержимое корзины пользователя.
type SaveCart struct {
	UserID string
	Items  []domain.CartItem
}
