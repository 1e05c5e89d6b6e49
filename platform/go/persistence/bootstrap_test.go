package persistence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	sqlassets "github.com/zenGate-Global/leadcapture/database"
)

func TestSplitStatementsDropsCommentsAndBlanks(t *testing.T) {
	t.Parallel()

	input := `-- header comment
CREATE TABLE a (id INT);

-- another
CREATE INDEX a_idx ON a (id);
;`

	statements := splitStatements(input)
	require.Equal(t, []string{
		"CREATE TABLE a (id INT)",
		"CREATE INDEX a_idx ON a (id)",
	}, statements)
}

func TestEmbeddedSchemaIsIdempotent(t *testing.T) {
	t.Parallel()

	for name, sql := range map[string]string{
		"tenants":       sqlassets.TenantsSQL,
		"capture_pages": sqlassets.CapturePagesSQL,
		"leads":         sqlassets.LeadsSQL,
	} {
		statements := splitStatements(sql)
		require.NotEmpty(t, statements, name)
		for _, stmt := range statements {
			require.Contains(t, strings.ToUpper(stmt), "IF NOT EXISTS", name)
		}
	}
}
