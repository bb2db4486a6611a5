package enum

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkValues returns the quoted values of the `column IN (...)` CHECK in the
// initial migration.
func checkValues(t *testing.T, column string) []string {
	t.Helper()
	data, err := os.ReadFile("../../migrations/000001_init.up.sql")
	require.NoError(t, err)

	m := regexp.MustCompile(`\b` + column + `\b[^\n]*CHECK \(` + column + ` IN \(([^)]*)\)\)`).FindSubmatch(data)
	if m == nil {
		return nil
	}
	var values []string
	for _, v := range strings.Split(string(m[1]), ",") {
		values = append(values, strings.Trim(strings.TrimSpace(v), "'"))
	}
	return values
}

func TestGroupA_MatchesDBConstraints(t *testing.T) {
	assert.ElementsMatch(t, []string{KindOrder, KindDelivery, KindProduction}, checkValues(t, "kind"))
	assert.ElementsMatch(t, []string{
		ActionCreate, ActionEdit, ActionStatusChange, ActionDelete,
		ActionRestore, ActionAssign, ActionSendMessage,
	}, checkValues(t, "action"))
}

func TestGroupB_HasNoDBConstraint(t *testing.T) {
	assert.Nil(t, checkValues(t, "status"))
	assert.Nil(t, checkValues(t, "category"))
}
