package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoreply-project/internal/adapters/wechat"
	"autoreply-project/internal/service"
)

func TestParseFormat(t *testing.T) {
	f, err := parseFormat("xml")
	require.NoError(t, err)
	assert.Equal(t, wechat.FormatXML, f)

	f, err = parseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, wechat.FormatJSON, f)

	_, err = parseFormat("yaml")
	assert.Error(t, err)
}

func TestTextCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		msg, err := service.ExtractMarkup(string(body))
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "hello world", msg.Text.Content)
		assert.NotEmpty(t, msg.Text.MsgID)

		out, _ := wechat.NewEncoder(nil).XML(msg, "got it")
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, out)
	}))
	defer srv.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--url", srv.URL, "--format", "xml", "--token", "", "text", "hello", "world"})

	require.NoError(t, Execute())
	assert.Contains(t, out.String(), "got it")
	assert.Contains(t, out.String(), "to:      o_sim_user_0001")
}
