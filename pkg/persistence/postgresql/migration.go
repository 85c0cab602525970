package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: schemaV1,
	}
}

const schemaV1 = `
	CREATE TABLE IF NOT EXISTS processes (
		id BIGSERIAL PRIMARY KEY,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		prazo TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS units (
		id BIGSERIAL PRIMARY KEY,
		code BIGINT NOT NULL UNIQUE,
		sigla TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		titular_id TEXT NOT NULL DEFAULT '',
		superior_id BIGINT REFERENCES units(id)
	);

	CREATE TABLE IF NOT EXISTS competency_maps (
		id BIGSERIAL PRIMARY KEY,
		subprocess_id BIGINT NOT NULL,
		sugestoes TEXT NOT NULL DEFAULT '',
		sugestoes_apresentadas_em TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS subprocesses (
		id BIGSERIAL PRIMARY KEY,
		process_id BIGINT NOT NULL REFERENCES processes(id),
		unit_id BIGINT NOT NULL REFERENCES units(id),
		situacao TEXT NOT NULL,
		map_id BIGINT REFERENCES competency_maps(id),
		prazo_etapa1 TIMESTAMP WITH TIME ZONE,
		data_fim_etapa1 TIMESTAMP WITH TIME ZONE,
		prazo_etapa2 TIMESTAMP WITH TIME ZONE,
		data_fim_etapa2 TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		UNIQUE (process_id, unit_id)
	);

	CREATE TABLE IF NOT EXISTS movements (
		id UUID PRIMARY KEY,
		subprocess_id BIGINT NOT NULL REFERENCES subprocesses(id),
		origin_unit_id BIGINT NOT NULL REFERENCES units(id),
		destination_unit_id BIGINT NOT NULL REFERENCES units(id),
		description TEXT NOT NULL,
		caller_title TEXT NOT NULL,
		date TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_subprocess_date
		ON movements (subprocess_id, date DESC);

	CREATE TABLE IF NOT EXISTS analyses (
		id UUID PRIMARY KEY,
		subprocess_id BIGINT NOT NULL REFERENCES subprocesses(id),
		stage TEXT NOT NULL,
		action TEXT NOT NULL,
		justification TEXT NOT NULL DEFAULT '',
		caller_title TEXT NOT NULL,
		date TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_subprocess_date
		ON analyses (subprocess_id, date DESC);

	CREATE TABLE IF NOT EXISTS activities (
		id BIGSERIAL PRIMARY KEY,
		map_id BIGINT NOT NULL REFERENCES competency_maps(id),
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS knowledge_items (
		id BIGSERIAL PRIMARY KEY,
		activity_id BIGINT NOT NULL REFERENCES activities(id),
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS competencies (
		id BIGSERIAL PRIMARY KEY,
		map_id BIGINT NOT NULL REFERENCES competency_maps(id),
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity_competencies (
		activity_id BIGINT NOT NULL REFERENCES activities(id),
		competency_id BIGINT NOT NULL REFERENCES competencies(id),
		PRIMARY KEY (activity_id, competency_id)
	);
`
