package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSQL(t *testing.T) {
	in := stripSQLComments("-- header\nCREATE TABLE a (id INT);\n\n-- note\nCREATE INDEX b ON a (id);\n")
	got := splitSQL(in)
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX b ON a (id)"}, got)
}
