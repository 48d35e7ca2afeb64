package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Внутренние ошибки пересчёта матчей
	ErrRebuildInProgress = fmt.Errorf("rebuild already in progress")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect env variable")
	ErrBucketNotFound       = fmt.Errorf("bucket not found")

	// 400 Bad Request
	ErrStatusBadRequest = fmt.Errorf("bad request")
	ErrInvalidItemID    = fmt.Errorf("invalid item id")
	ErrInvalidMinScore  = fmt.Errorf("invalid min_score")
	ErrInvalidLimit     = fmt.Errorf("invalid limit")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
