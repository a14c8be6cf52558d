package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrintOutputFormats(t *testing.T) {
	v := struct {
		UserID  string `json:"user_id"`
		Balance int    `json:"balance"`
	}{UserID: "u1", Balance: 42}

	t.Cleanup(func() { outputFormat = "yaml" })

	var buf bytes.Buffer
	outputFormat = "yaml"
	require.NoError(t, printOutput(&buf, v))
	require.Equal(t, "balance: 42\nuser_id: u1\n", buf.String())

	buf.Reset()
	outputFormat = "json"
	require.NoError(t, printOutput(&buf, v))
	require.JSONEq(t, `{"user_id":"u1","balance":42}`, buf.String())

	outputFormat = "xml"
	require.Error(t, printOutput(&buf, v))
}
