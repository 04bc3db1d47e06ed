package mongorepo

import (
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-shop/internal/domain"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// convertErr приводит ошибки драйвера mongo к ошибкам domain так же, как это делает pgrepo.
func convertErr(err error, format string, formatArgs ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, formatArgs...)

	if isNoDocuments(err) {
		return fmt.Errorf("[repository/%s] %w", msg, domain.ErrRecordNotFound)
	}

	errType := domain.ErrPersistence
	if mongo.IsDuplicateKeyError(err) {
		errType = domain.ErrDuplicateKey
	}
	return fmt.Errorf("[repository/%s] %w: %s", msg, errType, err.Error())
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
