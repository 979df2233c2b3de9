package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformComposeMatchesSequentialApply(t *testing.T) {
	pts := []Point{{0, 0}, {100, 0}, {37, -12}, {-5, 250}}
	trans := []Transform{
		{},
		{Rot: 1, Disp: Vector{10, 20}},
		{Rot: 2, Mirror: true, Disp: Vector{-3, 4}},
		{Rot: 3, Mirror: true},
		{Rot: 1, Mirror: true, Disp: Vector{1000, -1000}},
	}
	for _, a := range trans {
		for _, b := range trans {
			ab := a.Compose(b)
			for _, p := range pts {
				assert.Equal(t, a.Apply(b.Apply(p)), ab.Apply(p), "a=%v b=%v p=%v", a, b, p)
			}
		}
	}
}

func TestTransformInvert(t *testing.T) {
	for _, tr := range []Transform{
		{Rot: 1, Disp: Vector{10, 20}},
		{Rot: 2, Mirror: true, Disp: Vector{-3, 4}},
		{Rot: 3, Mirror: true, Disp: Vector{7, 7}},
	} {
		inv := tr.Invert()
		for _, p := range []Point{{0, 0}, {5, -9}, {123, 456}} {
			assert.Equal(t, p, inv.Apply(tr.Apply(p)))
		}
		assert.True(t, tr.Compose(inv).IsIdentity())
	}
}

func TestApplyAngle(t *testing.T) {
	tr := Transform{Rot: 1}
	assert.Equal(t, 90, tr.ApplyAngle(0))
	assert.Equal(t, 270, tr.ApplyAngle(180))

	m := Transform{Mirror: true}
	assert.Equal(t, 270, m.ApplyAngle(90))
	assert.Equal(t, 0, m.ApplyAngle(0))

	for _, a := range []int{0, 90, 180, 270} {
		v := CardinalVector(a)
		for _, tr := range []Transform{{Rot: 3}, {Rot: 1, Mirror: true}, {Rot: 2, Mirror: true}} {
			got, err := AngleOf(tr.ApplyVector(v))
			require.NoError(t, err)
			assert.Equal(t, tr.ApplyAngle(a), got)
		}
	}
}

func TestSignedAreaAndBox(t *testing.T) {
	sq := []Point{{0, 0}, {10, 0}, {10, 5}, {0, 5}}
	assert.Equal(t, 50.0, SignedArea(sq))
	assert.True(t, IsCCW(sq))
	assert.Equal(t, -50.0, SignedArea(Reversed(sq)))

	b := BoxOf(sq)
	assert.Equal(t, 10, b.Width())
	assert.Equal(t, 5, b.Height())
	assert.True(t, b.OnBoundary(Point{10, 3}))
	assert.False(t, b.OnBoundary(Point{5, 3}))
	assert.True(t, EmptyBox().IsEmpty())
}

func TestToDBURounding(t *testing.T) {
	assert.Equal(t, Point{10000, -250}, ToDBU(DPoint{10, -0.25}, DefaultDBU))
	assert.Equal(t, Point{2, -2}, ToDBU(DPoint{0.0016, -0.0016}, DefaultDBU))
	assert.Equal(t, []Point{{1, 2}}, Dedupe([]Point{{1, 2}, {1, 2}}, false))
}
