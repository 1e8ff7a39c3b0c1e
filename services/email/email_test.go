package emailsvc

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/fs"
	"github.com/trezcool/khidmat/tests"
)

func setup(t *testing.T) (*core.Config, *testutil.Logger) {
	t.Helper()
	conf := core.NewConfig()
	logger := &testutil.Logger{}
	core.ParseEmailTemplates(conf, appfs.FS, appfs.EmailTemplatesDir, logger)
	return conf, logger
}

func TestConsoleServiceMock(t *testing.T) {
	conf, logger := setup(t)
	svc := NewConsoleServiceMock(conf, logger)

	tests := []struct {
		name     string
		msg      *core.EmailMessage
		wantSent bool
	}{
		{
			name: "templated",
			msg: &core.EmailMessage{
				To:           []mail.Address{{Address: "inbox@khidmat.test"}},
				Subject:      "New review",
				TemplateName: "review_submitted",
				TemplateData: map[string]interface{}{"Name": "Omar", "Rating": 5, "Lang": "ar", "Content": "ممتاز"},
			},
			wantSent: true,
		},
		{
			name:     "plain",
			msg:      &core.EmailMessage{To: []mail.Address{{Address: "inbox@khidmat.test"}}, BodyStr: "ping"},
			wantSent: true,
		},
		{
			name: "no recipient",
			msg:  &core.EmailMessage{BodyStr: "ping"},
		},
		{
			name: "unknown template",
			msg:  &core.EmailMessage{To: []mail.Address{{Address: "inbox@khidmat.test"}}, TemplateName: "nope"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(svc.Sent())
			svc.SendMessages(tt.msg)
			if tt.wantSent {
				require.Len(t, svc.Sent(), before+1)
				assert.True(t, svc.Sent()[before].HasContent())
			} else {
				assert.Len(t, svc.Sent(), before)
			}
		})
	}
	assert.True(t, logger.Contains("rendering email"))
}

func TestConsoleService_build(t *testing.T) {
	conf, logger := setup(t)
	svc := &consoleService{defaultFromEmail: conf.DefaultFromEmail(), subjPrefix: "[Khidmat] ", logger: logger}

	body, err := svc.build(core.EmailMessage{
		To:          []mail.Address{{Name: "Inbox", Address: "inbox@khidmat.test"}},
		ReplyTo:     &mail.Address{Name: "Amina", Address: "amina@example.com"},
		Subject:     "Hello",
		TextContent: "plain",
		HTMLContent: "<p>html</p>",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Khidmat] Hello")
	assert.Contains(t, body, `Reply-To: "Amina" <amina@example.com>`)
	assert.Contains(t, body, "<p>html</p>")
	assert.NotContains(t, body, "CC:")
}

func TestSendgridService(t *testing.T) {
	conf, logger := setup(t)

	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := NewSendgridService(conf, logger)
	svc.key = "sg-key"
	svc.host = srv.URL

	svc.send(core.EmailMessage{
		To:          []mail.Address{{Address: "inbox@khidmat.test"}},
		ReplyTo:     &mail.Address{Address: "amina@example.com"},
		Subject:     "Hello",
		TextContent: "plain",
	})

	require.NotNil(t, got)
	assert.Equal(t, map[string]interface{}{"email": "amina@example.com"}, got["reply_to"])
	assert.Len(t, got["content"], 1, "no empty html part")
	personalizations := got["personalizations"].([]interface{})
	assert.Equal(t, "["+conf.AppName+"] Hello", personalizations[0].(map[string]interface{})["subject"])
	assert.Empty(t, logger.Messages)
}
