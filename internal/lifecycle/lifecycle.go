// Package lifecycle содержит единые таблицы переходов статусов контрактов,
// вех, споров и KYC. Все мутирующие операции обязаны проверять переход
// через эти таблицы, а не сравнивать строки на месте.
package lifecycle

import "fmt"

// TransitionError возвращается при попытке недопустимого перехода статуса.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход %s из %q в %q", e.Entity, e.From, e.To)
}

// transitions — таблица допустимых переходов: from -> множество to.
type transitions map[string]map[string]struct{}

func (t transitions) allowed(from, to string) bool {
	next, ok := t[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

func set(statuses ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		m[s] = struct{}{}
	}
	return m
}
