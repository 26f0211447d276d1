package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseROI(t *testing.T) {
	got, err := parseROI("10, 20,300,200")
	assert.NoError(t, err)
	assert.Equal(t, [4]int{10, 20, 300, 200}, got)

	for _, bad := range []string{"", "1,2,3", "1,2,3,x", "1,2,3,4,5"} {
		_, err := parseROI(bad)
		assert.Error(t, err, bad)
	}
}
