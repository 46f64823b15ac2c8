package main

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/vmapd/internal/testutil"
)

func TestRunQueries(t *testing.T) {
	dir := testutil.VMapDir(t)
	base := []string{"-data", dir, "-map", "0", "-tile", "32,32"}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"exists", []string{"-q", "exists"}, "exists: Success\n"},
		{"blocked", []string{"-q", "los", "-from", "90,100,5", "-to", "110,100,5"}, "los: false\n"},
		{"clear", []string{"-q", "los", "-from", "90,100,30", "-to", "110,100,30"}, "los: true\n"},
		{"m2 ignored", []string{"-q", "los", "-ignore-m2", "-from", "90,100,5", "-to", "110,100,5"}, "los: true\n"},
		{"hitpos", []string{"-q", "hitpos", "-modify-dist", "-1", "-from", "90,100,5", "-to", "110,100,5"}, "hit: true pos: 99.000,100.000,5.000\n"},
		{"height", []string{"-q", "height", "-from", "105,100,10"}, "height: 0.000\n"},
		{"no height", []string{"-q", "height", "-from", "300,300,10"}, "height: none\n"},
		{"no area", []string{"-q", "area", "-from", "105,100,50"}, "area: none\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(append(base, tt.args...), &out))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRunArea(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-data", testutil.VMapDir(t), "-q", "area", "-from", "105,100,5"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "root=42 group=7")
}

func TestRunErrors(t *testing.T) {
	dir := testutil.VMapDir(t)

	var out bytes.Buffer
	assert.ErrorContains(t, run([]string{"-data", dir, "-q", "los", "-from", "1,2"}, &out), "-from")
	assert.ErrorContains(t, run([]string{"-data", dir, "-q", "los", "-from", "1,2,3"}, &out), "-to")
	assert.ErrorContains(t, run([]string{"-data", dir, "-q", "nope", "-from", "1,2,3"}, &out), "unknown query")
	assert.ErrorContains(t, run([]string{"-data", dir, "-map", "9", "-from", "1,2,3", "-to", "1,2,3"}, &out), "FileNotFound")
	assert.ErrorContains(t, run([]string{"-tile", "x,1", "-q", "exists"}, &out), "-tile")
}

func TestParseVec3(t *testing.T) {
	v, err := parseVec3(" 1.5, -2,3 ")
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1.5, -2, 3}, v)

	_, err = parseVec3("")
	assert.Error(t, err)
	_, err = parseVec3("1,2,3,4")
	assert.Error(t, err)
}
