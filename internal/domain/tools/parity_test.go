package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

func pair(params ...types.Param) (types.Tool, types.Tool) {
	h := types.Tool{Name: "op", Form: types.FormHandle, Category: types.CategoryGeometry, Params: withIdentifier(handleParam, params)}
	p := types.Tool{Name: "op_by_path", Form: types.FormPath, Category: types.CategoryGeometry, Params: withIdentifier(sourcePathParam, params)}
	return h, p
}

func TestCheckParityAccepts(t *testing.T) {
	h, p := pair(types.Param{Name: "size", Type: types.ParamNumber, Default: 1.0})
	cmd := types.Tool{Name: "get_registry_status", Form: types.FormNone}
	assert.NoError(t, CheckParity([]types.Tool{h, p, cmd}))
}

func TestCheckParityMissingTwin(t *testing.T) {
	h, p := pair()

	err := CheckParity([]types.Tool{h})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op has no op_by_path twin")

	err = CheckParity([]types.Tool{p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handle-form twin")
}

func TestCheckParityDifferences(t *testing.T) {
	h, p := pair(types.Param{Name: "size", Type: types.ParamNumber, Default: 1.0})
	p.Params[1].Default = 2.0
	p.Mutates = true

	err := CheckParity([]types.Tool{h, p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameters differ")
	assert.Contains(t, err.Error(), "mutates differs")
}

func TestCheckParityIdentifier(t *testing.T) {
	h, p := pair()
	p.Params = nil

	err := CheckParity([]types.Tool{h, p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing source_path")

	bad := types.Tool{Name: "lonely", Form: types.FormPath}
	err = CheckParity([]types.Tool{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without the _by_path suffix")
}
