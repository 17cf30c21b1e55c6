package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func squareWithHole(t *testing.T) gocv.Mat {
	t.Helper()
	buf := make([]byte, 25*25)
	for y := 8; y < 17; y++ {
		for x := 8; x < 17; x++ {
			buf[y*25+x] = 255
		}
	}
	buf[12*25+12] = 0
	mat, err := gocv.NewMatFromBytes(25, 25, gocv.MatTypeCV8U, buf)
	require.NoError(t, err)
	return mat
}

func TestClosingFillsSmallHole(t *testing.T) {
	input := squareWithHole(t)
	defer input.Close()

	out, err := Apply("closing", input, map[string]interface{}{"kernel_size": 3})
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, uint8(255), out.GetUCharAt(12, 12))
	assert.Equal(t, uint8(0), out.GetUCharAt(0, 0))
}

func TestOpeningRemovesSpeck(t *testing.T) {
	buf := make([]byte, 15*15)
	buf[7*15+7] = 255
	input, err := gocv.NewMatFromBytes(15, 15, gocv.MatTypeCV8U, buf)
	require.NoError(t, err)
	defer input.Close()

	out, err := Apply("opening", input, map[string]interface{}{"kernel_size": 3})
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 0, gocv.CountNonZero(out))
}

func TestValidateRejectsBadKernels(t *testing.T) {
	input := squareWithHole(t)
	defer input.Close()

	_, err := Apply("dilation", input, map[string]interface{}{"kernel_size": 4})
	assert.Error(t, err)
	_, err = Apply("dilation", input, map[string]interface{}{"kernel_size": 53})
	assert.Error(t, err)
	_, err = Apply("closing", input, map[string]interface{}{"kernel_size": 3, "shape": "star"})
	assert.Error(t, err)
	_, err = Apply("no_such_algorithm", input, nil)
	assert.Error(t, err)
}

func TestFeatherKernelSize(t *testing.T) {
	assert.Equal(t, 7, FeatherKernelSize(1.0, 100, 100))
	assert.Equal(t, 13, FeatherKernelSize(2.0, 100, 100))
	assert.Equal(t, 9, FeatherKernelSize(5.0, 40, 8), "capped to the smaller dimension, forced odd")
	assert.Equal(t, 5, FeatherKernelSize(0.5, 40, 40))
}

func TestGaussianFeatherSoftensEdge(t *testing.T) {
	mat := gocv.Zeros(20, 20, gocv.MatTypeCV32F)
	defer mat.Close()
	for y := 0; y < 20; y++ {
		for x := 10; x < 20; x++ {
			mat.SetFloatAt(y, x, 1)
		}
	}

	out, err := Apply("gaussian_feather", mat, map[string]interface{}{"sigma": 1.0})
	require.NoError(t, err)
	defer out.Close()

	edge := out.GetFloatAt(10, 10)
	assert.Greater(t, edge, float32(0.0))
	assert.Less(t, edge, float32(1.0))
	assert.InDelta(t, 0, out.GetFloatAt(10, 0), 1e-6)
}
