package models

import "time"

// Status record status, shared by teams and operations
type Status string

const (
	StatusActive   Status = "ativa"
	StatusInactive Status = "inativa"
)

// Team field crew. Only one team is active at a time.
type Team struct {
	ID        int64     `json:"id" db:"id"`
	Operator  string    `json:"operador" db:"operador"`
	Assistant string    `json:"auxiliar" db:"auxiliar"`
	Unit      string    `json:"unidade" db:"unidade"`
	Plate     string    `json:"placa" db:"placa"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
