package migration

// getAllMigrations retorna todas as migrações disponíveis
func getAllMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_workflow_tables",
			Up: `
				CREATE TABLE workflows (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP
				);

				CREATE TABLE tasks (
					id BIGSERIAL PRIMARY KEY,
					workflow_id BIGINT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
					position INTEGER NOT NULL,
					name VARCHAR(255) NOT NULL,
					description TEXT,
					frequency VARCHAR(50) NOT NULL DEFAULT 'daily',
					time_per_task INTEGER NOT NULL DEFAULT 0,
					category VARCHAR(100),
					complexity VARCHAR(50) NOT NULL DEFAULT 'medium',
					UNIQUE (workflow_id, position)
				);

				CREATE INDEX idx_tasks_workflow ON tasks(workflow_id);
			`,
			Down: `
				DROP TABLE IF EXISTS tasks;
				DROP TABLE IF EXISTS workflows;
			`,
		},
		{
			Version: 2,
			Name:    "create_analysis_tables",
			Up: `
				-- Uma análise por workflow; reanálise substitui a anterior
				CREATE TABLE analyses (
					id BIGSERIAL PRIMARY KEY,
					workflow_id BIGINT NOT NULL UNIQUE REFERENCES workflows(id) ON DELETE CASCADE,
					hourly_rate DOUBLE PRECISION NOT NULL,
					automation_score DOUBLE PRECISION NOT NULL,
					hours_saved DOUBLE PRECISION NOT NULL,
					annual_savings DOUBLE PRECISION NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE TABLE analysis_results (
					id BIGSERIAL PRIMARY KEY,
					analysis_id BIGINT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
					task_id BIGINT REFERENCES tasks(id) ON DELETE CASCADE,
					position INTEGER NOT NULL,
					ai_readiness_score DOUBLE PRECISION NOT NULL CHECK (ai_readiness_score BETWEEN 0 AND 100),
					time_saved_percentage DOUBLE PRECISION NOT NULL CHECK (time_saved_percentage BETWEEN 0 AND 100),
					difficulty VARCHAR(20) NOT NULL,
					recommendation TEXT NOT NULL,
					estimated_hours_saved DOUBLE PRECISION NOT NULL CHECK (estimated_hours_saved >= 0),
					UNIQUE (analysis_id, position)
				);

				CREATE INDEX idx_analysis_results_analysis ON analysis_results(analysis_id);
			`,
			Down: `
				DROP TABLE IF EXISTS analysis_results;
				DROP TABLE IF EXISTS analyses;
			`,
		},
	}
}
