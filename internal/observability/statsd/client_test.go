package statsd

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  metrics.app  ": "metrics.app",
		"..foo..":         "foo",
		".":               "",
		"":                "",
	}

	for input, want := range tests {
		assert.Equal(t, want, sanitizePrefix(input), "input %q", input)
	}
}

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/metric ":  "job_metric",
		"foo..bar":      "foo.bar",
		"multi  space":  "multi__space",
		"slash/name/id": "slash_name_id",
		"":              "",
	}

	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), "input %q", input)
	}
}

func TestQualify(t *testing.T) {
	t.Parallel()

	withPrefix := &Client{prefix: "taskspring"}
	assert.Equal(t, "taskspring.job.transition", withPrefix.qualify("job.transition"))
	assert.Equal(t, "taskspring", withPrefix.qualify("  "))

	bare := &Client{}
	assert.Equal(t, "job.transition", bare.qualify("job.transition"))
	assert.Equal(t, "", bare.qualify(""))
}

func TestEncodeTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env":       "prod",
		" service ": " jobs ",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	assert.Equal(t, "|#env:stage,result:success,service:jobs", encodeTags(global, local))
	assert.Equal(t, "", encodeTags(nil, nil))
	assert.Equal(t, "", encodeTags(map[string]string{" ": "blank key only"}, nil))
}

func TestCopyTags(t *testing.T) {
	t.Parallel()

	original := map[string]string{
		"env": "prod",
		"":    "ignored",
	}

	cloned := copyTags(original)
	require.NotNil(t, cloned)
	assert.NotContains(t, cloned, "")

	cloned["env"] = "stage"
	assert.Equal(t, "prod", original["env"])
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer func() { _ = peerConn.Close() }()

	client := &Client{
		enabled: true,
		conn:    clientConn,
	}

	assert.True(t, client.Enabled())
	require.NoError(t, client.Close())
	assert.False(t, client.Enabled())

	// Close is idempotent.
	require.NoError(t, client.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	require.NoError(t, nilClient.Close())
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		Enabled: true,
		Address: "   ",
	})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{
		Enabled: true,
		Address: "bad address",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd dial")
}
