package sqlite

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS equipes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		operador TEXT NOT NULL,
		auxiliar TEXT NOT NULL,
		unidade TEXT NOT NULL,
		placa TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ativa' CHECK (status IN ('ativa', 'inativa')),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_equipes_ativa ON equipes(status) WHERE status = 'ativa'`,

	`CREATE TABLE IF NOT EXISTS operacoes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipe_id INTEGER NOT NULL REFERENCES equipes(id),
		tipo TEXT NOT NULL CHECK (tipo IN ('TERMICA', 'TESTE_ESTANQUEIDADE', 'LIMPEZA', 'PIG')),
		poco TEXT,
		cidade TEXT,
		observacoes TEXT,
		status TEXT NOT NULL DEFAULT 'ativa' CHECK (status IN ('ativa', 'inativa')),
		etapa TEXT NOT NULL DEFAULT 'MOBILIZANDO'
			CHECK (etapa IN ('MOBILIZANDO', 'OPERANDO', 'DESMOBILIZANDO', 'AGUARDANDO', 'FINALIZADA')),
		data_inicio DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		data_fim DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_operacoes_equipe_id ON operacoes(equipe_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_operacoes_ativa ON operacoes(status) WHERE status = 'ativa'`,

	`CREATE TABLE IF NOT EXISTS deslocamentos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipe_id INTEGER NOT NULL REFERENCES equipes(id),
		operacao_id INTEGER REFERENCES operacoes(id),
		origem TEXT,
		destino TEXT,
		km_inicial REAL NOT NULL,
		km_final REAL,
		hora_inicio DATETIME NOT NULL,
		hora_fim DATETIME,
		duracao_segundos INTEGER,
		observacoes TEXT,
		CHECK (km_final IS NULL OR km_final >= km_inicial)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deslocamentos_operacao_id ON deslocamentos(operacao_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_deslocamentos_aberto ON deslocamentos(equipe_id) WHERE hora_fim IS NULL`,

	`CREATE TABLE IF NOT EXISTS aguardos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipe_id INTEGER NOT NULL REFERENCES equipes(id),
		operacao_id INTEGER REFERENCES operacoes(id),
		motivo TEXT NOT NULL,
		hora_inicio DATETIME NOT NULL,
		hora_fim DATETIME,
		duracao_segundos INTEGER,
		observacoes TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_aguardos_operacao_id ON aguardos(operacao_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_aguardos_aberto ON aguardos(equipe_id) WHERE hora_fim IS NULL`,

	`CREATE TABLE IF NOT EXISTS refeicoes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipe_id INTEGER NOT NULL REFERENCES equipes(id),
		operacao_id INTEGER REFERENCES operacoes(id),
		hora_inicio DATETIME NOT NULL,
		hora_fim DATETIME,
		duracao_segundos INTEGER,
		observacoes TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refeicoes_operacao_id ON refeicoes(operacao_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_refeicoes_aberto ON refeicoes(equipe_id) WHERE hora_fim IS NULL`,

	`CREATE TABLE IF NOT EXISTS abastecimentos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipe_id INTEGER NOT NULL REFERENCES equipes(id),
		operacao_id INTEGER REFERENCES operacoes(id),
		tipo_abastecimento TEXT NOT NULL CHECK (tipo_abastecimento IN ('AGUA', 'COMBUSTIVEL')),
		hora_inicio DATETIME NOT NULL,
		hora_fim DATETIME,
		duracao_segundos INTEGER,
		observacoes TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_abastecimentos_operacao_id ON abastecimentos(operacao_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_abastecimentos_aberto ON abastecimentos(equipe_id) WHERE hora_fim IS NULL`,
}
