package store

import (
	"fmt"
	"strings"

	"github.com/langchou/fieldops/internal/models"
)

// SQL shared by every backend. Placeholders are written as '?' and rebound by drivers that need it.

const teamColumns = `id, operador, auxiliar, unidade, placa, status, created_at`

const (
	QueryDeactivateTeams = `UPDATE equipes SET status = 'inativa' WHERE status = 'ativa'`
	QueryInsertTeam      = `
		INSERT INTO equipes (operador, auxiliar, unidade, placa, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	QueryTeamByID         = `SELECT ` + teamColumns + ` FROM equipes WHERE id = ?`
	QueryLatestActiveTeam = `SELECT ` + teamColumns + ` FROM equipes WHERE status = 'ativa' ORDER BY created_at DESC, id DESC LIMIT 1`
	QueryListTeams        = `SELECT ` + teamColumns + ` FROM equipes ORDER BY id DESC LIMIT ? OFFSET ?`
	QueryCountTeams       = `SELECT COUNT(*) FROM equipes`
)

const operationColumns = `id, equipe_id, tipo, poco, cidade, observacoes, status, etapa, data_inicio, data_fim`

const (
	QueryActiveOperationExists = `SELECT COUNT(*) FROM operacoes WHERE status = 'ativa'`
	QueryInsertOperation       = `
		INSERT INTO operacoes (equipe_id, tipo, poco, cidade, observacoes, status, etapa, data_inicio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	QueryOperationByID         = `SELECT ` + operationColumns + ` FROM operacoes WHERE id = ?`
	QueryLatestActiveOperation = `
		SELECT ` + operationColumns + ` FROM operacoes
		WHERE status = 'ativa' AND etapa <> 'FINALIZADA'
		ORDER BY id DESC LIMIT 1
	`
	QueryListOperations    = `SELECT ` + operationColumns + ` FROM operacoes ORDER BY id DESC LIMIT ? OFFSET ?`
	QueryCountOperations   = `SELECT COUNT(*) FROM operacoes`
	// stage updates only apply while the row is still active and at the expected stage
	QuerySetOperationStage = `UPDATE operacoes SET etapa = ? WHERE id = ? AND status = 'ativa' AND etapa = ?`
	QueryFinishOperation   = `UPDATE operacoes SET etapa = ?, status = 'inativa', data_fim = ? WHERE id = ? AND status = 'ativa' AND etapa = ?`
)

var baseActivityColumns = []string{"id", "equipe_id", "operacao_id", "hora_inicio", "hora_fim", "duracao_segundos", "observacoes"}

// ActivityExtraColumns kind-specific columns of an activity table.
func ActivityExtraColumns(kind models.ActivityKind) []string {
	switch kind {
	case models.ActivityTravel:
		return []string{"origem", "destino", "km_inicial", "km_final"}
	case models.ActivityWait:
		return []string{"motivo"}
	case models.ActivityRefuel:
		return []string{"tipo_abastecimento"}
	default:
		return nil
	}
}

func activityTable(kind models.ActivityKind) string {
	if !kind.Valid() {
		// table names are interpolated, never let an unknown kind through
		panic(fmt.Sprintf("store: unknown activity kind %q", kind))
	}
	return string(kind)
}

func activitySelect(kind models.ActivityKind) string {
	cols := make([]string, 0, 10)
	for _, c := range baseActivityColumns {
		cols = append(cols, "a."+c)
	}
	for _, c := range ActivityExtraColumns(kind) {
		cols = append(cols, "a."+c)
	}
	cols = append(cols, "o.tipo AS operacao_tipo", "o.poco AS operacao_poco", "o.cidade AS operacao_cidade")
	return `SELECT ` + strings.Join(cols, ", ") + ` FROM ` + activityTable(kind) + ` a LEFT JOIN operacoes o ON o.id = a.operacao_id`
}

// QueryActivityByID selects one activity with its joined operation fields.
func QueryActivityByID(kind models.ActivityKind) string {
	return activitySelect(kind) + ` WHERE a.id = ?`
}

// QueryOpenActivity selects the open activity of a team.
func QueryOpenActivity(kind models.ActivityKind) string {
	return activitySelect(kind) + ` WHERE a.equipe_id = ? AND a.hora_fim IS NULL ORDER BY a.hora_inicio DESC LIMIT 1`
}

// QueryOpenActivityExists counts open activities of a team.
func QueryOpenActivityExists(kind models.ActivityKind) string {
	return `SELECT COUNT(*) FROM ` + activityTable(kind) + ` WHERE equipe_id = ? AND hora_fim IS NULL`
}

// QueryActivityState returns whether the row exists and is still open.
func QueryActivityState(kind models.ActivityKind) string {
	return `SELECT hora_fim IS NULL FROM ` + activityTable(kind) + ` WHERE id = ?`
}

func activityWhere(f models.ActivityFilter) (string, []any) {
	var conds []string
	var args []any
	if f.TeamID != nil {
		conds = append(conds, "a.equipe_id = ?")
		args = append(args, *f.TeamID)
	}
	if f.OperationID != nil {
		conds = append(conds, "a.operacao_id = ?")
		args = append(args, *f.OperationID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// QueryListActivities pages activities, most recent first.
func QueryListActivities(kind models.ActivityKind, f models.ActivityFilter, limit, offset int) (string, []any) {
	where, args := activityWhere(f)
	args = append(args, limit, offset)
	return activitySelect(kind) + where + ` ORDER BY a.hora_inicio DESC, a.id DESC LIMIT ? OFFSET ?`, args
}

// QueryCountActivities counts activities matching f.
func QueryCountActivities(kind models.ActivityKind, f models.ActivityFilter) (string, []any) {
	where, args := activityWhere(f)
	return `SELECT COUNT(*) FROM ` + activityTable(kind) + ` a` + where, args
}

// QueryInsertActivity builds the insert of an open activity.
func QueryInsertActivity(a *models.Activity) (string, []any) {
	cols := []string{"equipe_id", "operacao_id", "hora_inicio", "observacoes"}
	args := []any{a.TeamID, a.OperationID, a.StartTime, a.Notes}
	switch a.Kind {
	case models.ActivityTravel:
		cols = append(cols, "origem", "destino", "km_inicial")
		args = append(args, a.Origin, a.Destination, a.StartOdometer)
	case models.ActivityWait:
		cols = append(cols, "motivo")
		args = append(args, a.Reason)
	case models.ActivityRefuel:
		cols = append(cols, "tipo_abastecimento")
		args = append(args, a.RefuelType)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	q := `INSERT INTO ` + activityTable(a.Kind) + ` (` + strings.Join(cols, ", ") + `) VALUES (` + marks + `) RETURNING id`
	return q, args
}

// QueryFinishActivity builds the conditional close of an activity. Notes and odometer keep
// their stored value when the parameter is NULL.
func QueryFinishActivity(kind models.ActivityKind, id int64, p FinishParams) (string, []any) {
	sets := []string{"hora_fim = ?", "duracao_segundos = ?", "observacoes = COALESCE(?, observacoes)"}
	args := []any{p.EndTime, p.DurationSeconds, p.Notes}
	if kind == models.ActivityTravel {
		sets = append(sets, "km_final = COALESCE(?, km_final)")
		args = append(args, p.EndOdometer)
	}
	args = append(args, id)
	return `UPDATE ` + activityTable(kind) + ` SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND hora_fim IS NULL`, args
}
