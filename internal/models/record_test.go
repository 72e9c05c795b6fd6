package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestIngestRecordSuggestions(t *testing.T) {
	record := &IngestRecord{}
	assert.Equal(t, []string{}, record.SuggestionList())

	require.NoError(t, record.SetSuggestions(nil))
	assert.JSONEq(t, "[]", string(record.Suggestions))

	require.NoError(t, record.SetSuggestions([]string{"What is recursion?", "“Base case”?"}))
	assert.Equal(t, []string{"What is recursion?", "“Base case”?"}, record.SuggestionList())

	// 损坏的JSON按空列表处理
	record.Suggestions = datatypes.JSON("{not json")
	assert.Equal(t, []string{}, record.SuggestionList())
}
