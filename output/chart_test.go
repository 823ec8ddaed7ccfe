package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderChart(t *testing.T) {
	var buff bytes.Buffer
	require.NoError(t, RenderChart(testCurves(), "Conversion", "Days", &buff))

	b := buff.Bytes()
	require.NotEmpty(t, b)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, b[:4])
}
