package models

import "time"

// OperationKind kind of work performed on site
type OperationKind string

const (
	OperationThermal  OperationKind = "TERMICA"
	OperationLeakTest OperationKind = "TESTE_ESTANQUEIDADE"
	OperationCleaning OperationKind = "LIMPEZA"
	OperationPig      OperationKind = "PIG"
)

// OperationKinds lists every accepted operation kind.
var OperationKinds = []OperationKind{OperationThermal, OperationLeakTest, OperationCleaning, OperationPig}

// Valid reports whether k is a known operation kind.
func (k OperationKind) Valid() bool {
	for _, v := range OperationKinds {
		if k == v {
			return true
		}
	}
	return false
}

// Stage operation progress stage
type Stage string

const (
	StageMobilizing   Stage = "MOBILIZANDO"
	StageOperating    Stage = "OPERANDO"
	StageDemobilizing Stage = "DESMOBILIZANDO"
	StageWaiting      Stage = "AGUARDANDO"
	StageFinished     Stage = "FINALIZADA"
)

// Stages lists the stages in their nominal order.
var Stages = []Stage{StageMobilizing, StageOperating, StageDemobilizing, StageWaiting, StageFinished}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, v := range Stages {
		if s == v {
			return true
		}
	}
	return false
}

// Operation unit of work owned by a team
type Operation struct {
	ID         int64         `json:"id" db:"id"`
	TeamID     int64         `json:"equipe_id" db:"equipe_id"`
	Kind       OperationKind `json:"tipo" db:"tipo"`
	Well       *string       `json:"poco,omitempty" db:"poco"`
	City       *string       `json:"cidade,omitempty" db:"cidade"`
	Notes      *string       `json:"observacoes,omitempty" db:"observacoes"`
	Status     Status        `json:"status" db:"status"`
	Stage      Stage         `json:"etapa" db:"etapa"`
	StartedAt  time.Time     `json:"data_inicio" db:"data_inicio"`
	FinishedAt *time.Time    `json:"data_fim,omitempty" db:"data_fim"`
}

// IsActive reports whether the operation still accepts stage changes.
func (o *Operation) IsActive() bool {
	return o.Status == StatusActive && o.Stage != StageFinished
}
