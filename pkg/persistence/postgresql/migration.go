package postgresql

// migrations returns the versioned schema for the execution store. The check
// constraint on executions enforces the wait_till/waiting invariant at the
// lowest level the store can reach.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				mode TEXT NOT NULL,
				status TEXT NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				stopped_at TIMESTAMP WITH TIME ZONE,
				wait_till TIMESTAMP WITH TIME ZONE,
				finished BOOLEAN NOT NULL DEFAULT FALSE,
				retry_of TEXT,
				retry_success_id TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				CONSTRAINT executions_wait_till_iff_waiting
					CHECK ((status = 'waiting') = (wait_till IS NOT NULL))
			);

			CREATE INDEX IF NOT EXISTS idx_executions_workflow_id ON executions (workflow_id);
			CREATE INDEX IF NOT EXISTS idx_executions_status_wait_till ON executions (status, wait_till);
			CREATE INDEX IF NOT EXISTS idx_executions_started_at ON executions (started_at DESC);

			CREATE TABLE IF NOT EXISTS execution_data (
				execution_id TEXT PRIMARY KEY REFERENCES executions(id) ON DELETE CASCADE,
				data BYTEA NOT NULL,
				workflow_data JSONB NOT NULL
			);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS execution_metadata (
				execution_id TEXT NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				key VARCHAR(255) NOT NULL,
				value TEXT NOT NULL,
				PRIMARY KEY (execution_id, key)
			);

			CREATE INDEX IF NOT EXISTS idx_execution_metadata_key_value ON execution_metadata (key, value);
		`,
	}
}
