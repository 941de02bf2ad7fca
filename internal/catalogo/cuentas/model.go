package cuentas

import (
	"strings"
	"time"
)

// Kind enumerates the statutory account classifications.
type Kind string

const (
	KindActivo   Kind = "ACTIVO"
	KindPasivo   Kind = "PASIVO"
	KindHacienda Kind = "HACIENDA"
	KindIngresos Kind = "INGRESOS"
	KindGastos   Kind = "GASTOS"
)

// Nature enumerates the normal balance side of an account.
type Nature string

const (
	NatureDeudora   Nature = "DEUDORA"
	NatureAcreedora Nature = "ACREEDORA"
)

// Account models a chart of accounts node. Codes are dotted hierarchical
// strings such as "1.1.1.01"; only detail accounts accept movements.
type Account struct {
	ID        int64
	EnteID    int64
	Code      string
	Name      string
	Kind      Kind
	Nature    Nature
	Level     int
	IsDetail  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Postable reports whether the account may be referenced by a movement line.
func (a Account) Postable() bool {
	return a.IsDetail || a.Level >= 3
}

// ParentCode returns the dotted code of the parent node, or "" at the root.
func (a Account) ParentCode() string {
	if idx := strings.LastIndex(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	return ""
}

// NatureForKind derives the normal balance side from the classification.
// Catalogs imported without an explicit nature fall back to this rule.
func NatureForKind(kind Kind) Nature {
	switch kind {
	case KindActivo, KindGastos:
		return NatureDeudora
	default:
		return NatureAcreedora
	}
}
