package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinContractTitleLength       = 3
	MaxContractTitleLength       = 200
	MaxContractDescriptionLength = 5000
	MinMilestoneTitleLength      = 1
	MaxMilestoneTitleLength      = 200
	MaxMilestoneDescriptionLength = 2000
	MinMessageLength             = 1
	MaxMessageLength             = 5000
	MaxDisputeReasonLength       = 2000
	MaxNameLength                = 100
	MinBudget                    = 1.0
	MaxBudget                    = 100000000.0 // 100 миллионов
	MaxMilestonesPerContract     = 50
	MaxFilesPerMessage           = 10
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	// Базовая проверка формата
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	// Проверка на валидные символы в локальной части
	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	// Проверка на валидные символы в доменной части
	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateAmount проверяет денежную сумму.
func ValidateAmount(fieldName string, amount float64) error {
	if amount < MinBudget {
		return fmt.Errorf("%s должен быть не менее %.2f", fieldName, MinBudget)
	}
	if amount > MaxBudget {
		return fmt.Errorf("%s должен быть не более %.2f", fieldName, MaxBudget)
	}
	return nil
}

// ValidateContractTitle проверяет заголовок контракта.
func ValidateContractTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок контракта обязателен")
	}

	title = strings.TrimSpace(title)

	if err := ValidateLength("заголовок контракта", title, MinContractTitleLength, MaxContractTitleLength); err != nil {
		return err
	}

	return nil
}

// ValidateMilestoneTitle проверяет заголовок этапа.
func ValidateMilestoneTitle(title string) error {
	if title == "" {
		return fmt.Errorf("заголовок этапа обязателен")
	}

	title = strings.TrimSpace(title)

	if err := ValidateLength("заголовок этапа", title, MinMilestoneTitleLength, MaxMilestoneTitleLength); err != nil {
		return err
	}

	return nil
}

// ValidateMessage проверяет текст сообщения в чате.
func ValidateMessage(message string, filesCount int) error {
	message = strings.TrimSpace(message)

	if message == "" && filesCount == 0 {
		return fmt.Errorf("сообщение должно содержать текст или файлы")
	}

	if filesCount > MaxFilesPerMessage {
		return fmt.Errorf("сообщение может содержать не более %d файлов", MaxFilesPerMessage)
	}

	if message != "" {
		if err := ValidateLength("сообщение", message, MinMessageLength, MaxMessageLength); err != nil {
			return err
		}
	}

	return nil
}

// ValidateDisputeReason проверяет причину спора.
func ValidateDisputeReason(reason string) error {
	if err := ValidateNonEmpty("причина спора", reason); err != nil {
		return err
	}
	return ValidateLength("причина спора", reason, 1, MaxDisputeReasonLength)
}
