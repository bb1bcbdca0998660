package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyPrefixJoin(t *testing.T) {
	cases := []struct {
		prefix string
		key    string
		want   string
	}{
		{"", "doses", "doses"},
		{"mediminder", "doses", "mediminder:doses"},
		{"mediminder:", "doses", "mediminder:doses"},
	}
	for _, tc := range cases {
		s := &kvStore{prefix: tc.prefix}
		assert.Equal(t, tc.want, s.key(tc.key), "prefix %q", tc.prefix)
	}
}
