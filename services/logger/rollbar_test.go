package logsvc

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/member"
)

func TestRollbarLogger(t *testing.T) {
	conf := core.NewTestConfig()
	var buf bytes.Buffer
	logger := NewRollbarLogger(NewLogrusEntry(conf, "API", &buf), conf)
	logger.Enable(false)

	ada := member.Member{ID: "1", MemberID: "M100", Email: "ada@test.in"}
	logger.Error("submitting", errors.New("storage down"), map[string]interface{}{"screen": "s1"}, ada)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "submitting", line["msg"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "API", line["component"])
	assert.Equal(t, "storage down", line["error"])
	assert.Equal(t, "s1", line["screen"])
	assert.Equal(t, "M100", line["member"])

	buf.Reset()
	logger.Debug("hidden")
	assert.Empty(t, buf.String(), "debug is off outside debug mode")
}
