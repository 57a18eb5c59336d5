package postgresql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Versions(t *testing.T) {
	t.Parallel()

	m := migrations()
	require.Len(t, m, 2)

	for version := 1; version <= len(m); version++ {
		assert.Contains(t, m, version)
		assert.NotEmpty(t, strings.TrimSpace(m[version]))
	}
}

func TestMigrations_WaitTillInvariant(t *testing.T) {
	t.Parallel()

	m := migrations()

	assert.Contains(t, m[1], "executions_wait_till_iff_waiting")
	assert.Contains(t, m[1], "(status = 'waiting') = (wait_till IS NOT NULL)")
}

func TestMigrations_CascadingDelete(t *testing.T) {
	t.Parallel()

	m := migrations()

	assert.Contains(t, m[1], "REFERENCES executions(id) ON DELETE CASCADE")
	assert.Contains(t, m[2], "REFERENCES executions(id) ON DELETE CASCADE")
}
