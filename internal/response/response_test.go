package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOK_KeepsEmptyData(t *testing.T) {
	raw, err := json.Marshal(OK([]string{}, "fetched"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"fetched","data":[]}`, string(raw))

	raw, err = json.Marshal(OK(map[string]int{}, "fetched"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"fetched","data":{}}`, string(raw))
}

func TestError_HasNoData(t *testing.T) {
	raw, err := json.Marshal(Error("link not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"link not found"}`, string(raw))
}
