package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/langchou/fieldops/internal/store"
)

// DB wraps the Postgres connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// PoolOptions connection pool sizing
type PoolOptions struct {
	MaxConns int32
	MinConns int32
}

// New opens the pool and pings the server.
func New(ctx context.Context, databaseURL string, opts PoolOptions) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 && opts.MinConns <= config.MaxConns {
		config.MinConns = opts.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Migrate creates the schema. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateTeams,
		migrationCreateOperations,
		migrationCreateTravels,
		migrationCreateWaits,
		migrationCreateMeals,
		migrationCreateRefuels,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// rebind converts the shared '?' placeholders to $n.
func rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// mapError translates driver errors to store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", store.ErrReference, pgErr.ConstraintName)
		}
	}
	return err
}

const migrationCreateTeams = `
CREATE TABLE IF NOT EXISTS equipes (
    id BIGSERIAL PRIMARY KEY,
    operador VARCHAR(100) NOT NULL,
    auxiliar VARCHAR(100) NOT NULL,
    unidade VARCHAR(100) NOT NULL,
    placa VARCHAR(20) NOT NULL,
    status VARCHAR(10) NOT NULL DEFAULT 'ativa' CHECK (status IN ('ativa', 'inativa')),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_equipes_ativa ON equipes(status) WHERE status = 'ativa';
`

const migrationCreateOperations = `
CREATE TABLE IF NOT EXISTS operacoes (
    id BIGSERIAL PRIMARY KEY,
    equipe_id BIGINT NOT NULL REFERENCES equipes(id),
    tipo VARCHAR(30) NOT NULL CHECK (tipo IN ('TERMICA', 'TESTE_ESTANQUEIDADE', 'LIMPEZA', 'PIG')),
    poco VARCHAR(100),
    cidade VARCHAR(100),
    observacoes TEXT,
    status VARCHAR(10) NOT NULL DEFAULT 'ativa' CHECK (status IN ('ativa', 'inativa')),
    etapa VARCHAR(20) NOT NULL DEFAULT 'MOBILIZANDO'
        CHECK (etapa IN ('MOBILIZANDO', 'OPERANDO', 'DESMOBILIZANDO', 'AGUARDANDO', 'FINALIZADA')),
    data_inicio TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    data_fim TIMESTAMP WITH TIME ZONE
);
CREATE INDEX IF NOT EXISTS idx_operacoes_equipe_id ON operacoes(equipe_id);
CREATE UNIQUE INDEX IF NOT EXISTS ux_operacoes_ativa ON operacoes(status) WHERE status = 'ativa';
`

const migrationCreateTravels = `
CREATE TABLE IF NOT EXISTS deslocamentos (
    id BIGSERIAL PRIMARY KEY,
    equipe_id BIGINT NOT NULL REFERENCES equipes(id),
    operacao_id BIGINT REFERENCES operacoes(id),
    origem VARCHAR(255),
    destino VARCHAR(255),
    km_inicial DOUBLE PRECISION NOT NULL,
    km_final DOUBLE PRECISION,
    hora_inicio TIMESTAMP WITH TIME ZONE NOT NULL,
    hora_fim TIMESTAMP WITH TIME ZONE,
    duracao_segundos BIGINT,
    observacoes TEXT,
    CHECK (km_final IS NULL OR km_final >= km_inicial)
);
CREATE INDEX IF NOT EXISTS idx_deslocamentos_operacao_id ON deslocamentos(operacao_id);
CREATE INDEX IF NOT EXISTS idx_deslocamentos_hora_inicio ON deslocamentos(hora_inicio);
CREATE UNIQUE INDEX IF NOT EXISTS ux_deslocamentos_aberto ON deslocamentos(equipe_id) WHERE hora_fim IS NULL;
`

const migrationCreateWaits = `
CREATE TABLE IF NOT EXISTS aguardos (
    id BIGSERIAL PRIMARY KEY,
    equipe_id BIGINT NOT NULL REFERENCES equipes(id),
    operacao_id BIGINT REFERENCES operacoes(id),
    motivo TEXT NOT NULL,
    hora_inicio TIMESTAMP WITH TIME ZONE NOT NULL,
    hora_fim TIMESTAMP WITH TIME ZONE,
    duracao_segundos BIGINT,
    observacoes TEXT
);
CREATE INDEX IF NOT EXISTS idx_aguardos_operacao_id ON aguardos(operacao_id);
CREATE INDEX IF NOT EXISTS idx_aguardos_hora_inicio ON aguardos(hora_inicio);
CREATE UNIQUE INDEX IF NOT EXISTS ux_aguardos_aberto ON aguardos(equipe_id) WHERE hora_fim IS NULL;
`

const migrationCreateMeals = `
CREATE TABLE IF NOT EXISTS refeicoes (
    id BIGSERIAL PRIMARY KEY,
    equipe_id BIGINT NOT NULL REFERENCES equipes(id),
    operacao_id BIGINT REFERENCES operacoes(id),
    hora_inicio TIMESTAMP WITH TIME ZONE NOT NULL,
    hora_fim TIMESTAMP WITH TIME ZONE,
    duracao_segundos BIGINT,
    observacoes TEXT
);
CREATE INDEX IF NOT EXISTS idx_refeicoes_operacao_id ON refeicoes(operacao_id);
CREATE INDEX IF NOT EXISTS idx_refeicoes_hora_inicio ON refeicoes(hora_inicio);
CREATE UNIQUE INDEX IF NOT EXISTS ux_refeicoes_aberto ON refeicoes(equipe_id) WHERE hora_fim IS NULL;
`

const migrationCreateRefuels = `
CREATE TABLE IF NOT EXISTS abastecimentos (
    id BIGSERIAL PRIMARY KEY,
    equipe_id BIGINT NOT NULL REFERENCES equipes(id),
    operacao_id BIGINT REFERENCES operacoes(id),
    tipo_abastecimento VARCHAR(20) NOT NULL CHECK (tipo_abastecimento IN ('AGUA', 'COMBUSTIVEL')),
    hora_inicio TIMESTAMP WITH TIME ZONE NOT NULL,
    hora_fim TIMESTAMP WITH TIME ZONE,
    duracao_segundos BIGINT,
    observacoes TEXT
);
CREATE INDEX IF NOT EXISTS idx_abastecimentos_operacao_id ON abastecimentos(operacao_id);
CREATE INDEX IF NOT EXISTS idx_abastecimentos_hora_inicio ON abastecimentos(hora_inicio);
CREATE UNIQUE INDEX IF NOT EXISTS ux_abastecimentos_aberto ON abastecimentos(equipe_id) WHERE hora_fim IS NULL;
`
