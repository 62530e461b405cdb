package channel

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/site-api/internal/config"
)

func TestMailtoChannel_Deliver(t *testing.T) {
	ch := NewMailtoChannel(testContactConfig())

	receipt, err := ch.Deliver(context.Background(), testSubmission())
	require.NoError(t, err)

	assert.Equal(t, NameMailto, receipt.Channel)
	assert.True(t, receipt.ManualRequired)
	assert.True(t, strings.HasPrefix(receipt.ActionURL, "mailto:hello@meridianlabs.io?"), receipt.ActionURL)

	parsed, err := url.Parse(receipt.ActionURL)
	require.NoError(t, err)
	values, err := url.ParseQuery(parsed.RawQuery)
	require.NoError(t, err)
	assert.Contains(t, values.Get("subject"), "Ada Lovelace")
	assert.Contains(t, values.Get("body"), "I would like a quote.")
}

func TestMailtoChannel_Available(t *testing.T) {
	assert.True(t, NewMailtoChannel(testContactConfig()).Available())
	assert.True(t, NewMailtoChannel(config.ContactConfig{ToAddress: "x@y.io"}).Available())
	assert.False(t, NewMailtoChannel(config.ContactConfig{}).Available())
}

func TestMailtoChannel_FallsBackToToAddress(t *testing.T) {
	ch := NewMailtoChannel(config.ContactConfig{ToAddress: "owners@example.com"})

	receipt, err := ch.Deliver(context.Background(), testSubmission())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt.ActionURL, "mailto:owners@example.com?"))
}
