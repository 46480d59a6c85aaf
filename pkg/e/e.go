package e

import "fmt"

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Хранилище товаров
	ErrCorruptStore    = fmt.Errorf("product store is corrupt")
	ErrProductNotFound = fmt.Errorf("product not found")

	// 400 Bad Request
	ErrInvalidBody       = fmt.Errorf("invalid request body")
	ErrExpectedMultipart = fmt.Errorf("expected multipart/form-data")
	ErrTooManyFiles      = fmt.Errorf("only one file is accepted per field")
	ErrMissingFile       = fmt.Errorf("file is required")
	ErrInvalidPrice      = fmt.Errorf("invalid price")
	ErrInvalidWorkbook   = fmt.Errorf("invalid workbook")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
	ErrUnknownStoreDriver   = fmt.Errorf("unknown store driver")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
