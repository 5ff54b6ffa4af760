package service

import (
	"github.com/jaevor/go-nanoid"
)

// Генераторы публичных идентификаторов. Алфавит без строчных букв,
// чтобы идентификаторы читались в письмах и поддержке однозначно.
var (
	newContractSuffix  = mustGenerator()
	newMilestoneSuffix = mustGenerator()
	newDisputeSuffix   = mustGenerator()
)

func mustGenerator() func() string {
	gen, err := nanoid.CustomASCII("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ", 10)
	if err != nil {
		panic(err)
	}
	return gen
}

// NewContractID возвращает публичный идентификатор контракта.
func NewContractID() string { return "CT-" + newContractSuffix() }

// NewMilestoneID возвращает публичный идентификатор вехи.
func NewMilestoneID() string { return "MS-" + newMilestoneSuffix() }

// NewDisputeID возвращает публичный идентификатор спора.
func NewDisputeID() string { return "DI-" + newDisputeSuffix() }
