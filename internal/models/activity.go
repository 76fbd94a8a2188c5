package models

import "time"

// ActivityKind auxiliary activity type. The value doubles as table name and URL segment.
type ActivityKind string

const (
	ActivityTravel ActivityKind = "deslocamentos"
	ActivityWait   ActivityKind = "aguardos"
	ActivityMeal   ActivityKind = "refeicoes"
	ActivityRefuel ActivityKind = "abastecimentos"
)

// ActivityKinds lists every activity kind.
var ActivityKinds = []ActivityKind{ActivityTravel, ActivityWait, ActivityMeal, ActivityRefuel}

// Valid reports whether k is a known activity kind.
func (k ActivityKind) Valid() bool {
	for _, v := range ActivityKinds {
		if k == v {
			return true
		}
	}
	return false
}

// RefuelType what was refilled
type RefuelType string

const (
	RefuelWater RefuelType = "AGUA"
	RefuelFuel  RefuelType = "COMBUSTIVEL"
)

// Valid reports whether t is a known refuel type.
func (t RefuelType) Valid() bool {
	return t == RefuelWater || t == RefuelFuel
}

// Activity travel, wait, meal or refuel record. EndTime is nil while the activity is in progress.
type Activity struct {
	ID              int64        `json:"id" db:"id"`
	Kind            ActivityKind `json:"-" db:"-"`
	TeamID          int64        `json:"equipe_id" db:"equipe_id"`
	OperationID     *int64       `json:"operacao_id" db:"operacao_id"`
	StartTime       time.Time    `json:"hora_inicio" db:"hora_inicio"`
	EndTime         *time.Time   `json:"hora_fim" db:"hora_fim"`
	DurationSeconds *int64       `json:"duracao_segundos" db:"duracao_segundos"`
	Notes           *string      `json:"observacoes" db:"observacoes"`

	// deslocamentos
	Origin        *string  `json:"origem,omitempty" db:"origem"`
	Destination   *string  `json:"destino,omitempty" db:"destino"`
	StartOdometer *float64 `json:"km_inicial,omitempty" db:"km_inicial"`
	EndOdometer   *float64 `json:"km_final,omitempty" db:"km_final"`
	DistanceKm    *float64 `json:"distancia_km,omitempty" db:"-"`

	// aguardos
	Reason *string `json:"motivo,omitempty" db:"motivo"`

	// abastecimentos
	RefuelType *RefuelType `json:"tipo_abastecimento,omitempty" db:"tipo_abastecimento"`

	// owning operation, joined for display
	OperationKind *string `json:"operacao_tipo,omitempty" db:"operacao_tipo"`
	OperationWell *string `json:"operacao_poco,omitempty" db:"operacao_poco"`
	OperationCity *string `json:"operacao_cidade,omitempty" db:"operacao_cidade"`
}

// IsOpen reports whether the activity has not been finished yet.
func (a *Activity) IsOpen() bool {
	return a.EndTime == nil
}

// Derive fills computed fields after a read.
func (a *Activity) Derive() {
	a.DistanceKm = nil
	if a.StartOdometer != nil && a.EndOdometer != nil && *a.EndOdometer >= *a.StartOdometer {
		d := *a.EndOdometer - *a.StartOdometer
		a.DistanceKm = &d
	}
}

// ActivityFilter optional list filters
type ActivityFilter struct {
	TeamID      *int64
	OperationID *int64
}
