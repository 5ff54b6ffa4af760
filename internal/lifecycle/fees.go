package lifecycle

import (
	"fmt"
	"math"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

// Fee — результат расчёта комиссии платформы.
type Fee struct {
	Fee        float64 `json:"fee"`
	Percentage float64 `json:"percentage"`
}

// feeTier — ступень тарифной сетки: процент действует для сумм,
// не превышающих Max (верхняя граница включительно).
type feeTier struct {
	Max        float64
	Percentage float64
}

// Тарифные сетки по типу контракта. Процент не растёт с ростом суммы.
var feeSchedules = map[string][]feeTier{
	models.ContractTypeServices: {
		{Max: 500, Percentage: 10},
		{Max: 2000, Percentage: 8.5},
		{Max: 10000, Percentage: 7},
		{Max: math.Inf(1), Percentage: 5},
	},
	models.ContractTypeProducts: {
		{Max: 500, Percentage: 8},
		{Max: 2000, Percentage: 6.5},
		{Max: 10000, Percentage: 5},
		{Max: math.Inf(1), Percentage: 3.5},
	},
}

// ThirdPartyFee рассчитывает комиссию платформы для указанной суммы и типа
// контракта. Функция чистая и детерминированная: комиссия округляется до
// двух знаков, процент берётся из ступенчатой сетки с верхними границами
// включительно.
func ThirdPartyFee(amount float64, contractType string) (Fee, error) {
	if amount <= 0 {
		return Fee{}, fmt.Errorf("lifecycle: сумма должна быть положительной")
	}
	schedule, ok := feeSchedules[contractType]
	if !ok {
		return Fee{}, fmt.Errorf("lifecycle: неизвестный тип контракта %q", contractType)
	}

	for _, tier := range schedule {
		if amount <= tier.Max {
			fee := math.Round(amount*tier.Percentage) / 100
			return Fee{Fee: fee, Percentage: tier.Percentage}, nil
		}
	}

	// Недостижимо: последняя ступень не ограничена сверху.
	return Fee{}, fmt.Errorf("lifecycle: тарифная сетка не покрывает сумму %.2f", amount)
}
