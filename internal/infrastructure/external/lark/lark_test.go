package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
)

type fakeMessages struct {
	reqs []*larkim.CreateMessageReq
	code int
	err  error
}

func (f *fakeMessages) Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &larkim.CreateMessageResp{
		CodeError: larkcore.CodeError{Code: f.code, Msg: "denied"},
		Data:      &larkim.CreateMessageRespData{MessageId: larkcore.StringPtr("om_1")},
	}, nil
}

func newFakeClient(f *fakeMessages) *Client {
	return &Client{messages: f, logger: zap.NewNop()}
}

func TestMessenger_SendText(t *testing.T) {
	f := &fakeMessages{}
	m := NewMessenger(newFakeClient(f))

	require.NoError(t, m.SendText(context.Background(), "ou_123", "JOB-00001: \"Scan\" completed\nready"))
	require.Len(t, f.reqs, 1)

	body := f.reqs[0].Body
	assert.Equal(t, "ou_123", *body.ReceiveId)
	assert.Equal(t, "text", *body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*body.Content), &content))
	assert.Equal(t, "JOB-00001: \"Scan\" completed\nready", content["text"])

	assert.Error(t, m.SendText(context.Background(), "", "x"))
	assert.Error(t, m.SendText(context.Background(), "ou", ""))
}

func TestMessenger_Failures(t *testing.T) {
	m := NewMessenger(newFakeClient(&fakeMessages{code: 230001}))
	assert.ErrorContains(t, m.SendText(context.Background(), "ou", "hi"), "code=230001")

	m = NewMessenger(newFakeClient(&fakeMessages{err: errors.New("dial tcp: timeout")}))
	assert.ErrorContains(t, m.SendText(context.Background(), "ou", "hi"), "timeout")
}

func TestEmailSender_Send(t *testing.T) {
	f := &fakeMessages{}
	s := NewEmailSender(newFakeClient(f))

	err := s.Send(context.Background(), port.EmailMessage{
		To:      "ap@acme.test",
		Subject: "Your scan is complete",
		HTML:    "<h1>Hello Acme</h1><p>Model <b>Tower</b> is done &amp; delivered.</p>",
	})
	require.NoError(t, err)
	require.Len(t, f.reqs, 1)
	assert.Equal(t, "ap@acme.test", *f.reqs[0].Body.ReceiveId)
	assert.Equal(t, "post", *f.reqs[0].Body.MsgType)

	var content map[string]postBody
	require.NoError(t, json.Unmarshal([]byte(*f.reqs[0].Body.Content), &content))
	post := content["en_us"]
	assert.Equal(t, "Your scan is complete", post.Title)
	require.Len(t, post.Content, 2)
	assert.Equal(t, "Hello Acme", post.Content[0][0].Text)
	assert.Equal(t, "Model Tower is done & delivered.", post.Content[1][0].Text)

	assert.Error(t, s.Send(context.Background(), port.EmailMessage{Subject: "x"}))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"<p>a</p><p>b</p>", "a\nb"},
		{"line<br>break<br/>", "line\nbreak"},
		{"<div>  spaced  </div>\n\n\n\n<div>x</div>", "spaced\n\nx"},
		{"&lt;tag&gt;", "<tag>"},
		{"Fish &amp; chips&nbsp;&#8212; done", "Fish & chips\u00a0\u2014 done"},
		{`<a title="a > b" href="/x">link</a> text`, "link text"},
		{"<style>p { color: red; }</style><p>body</p>", "body"},
		{"<script>if (a < b) { x() }</script>hello", "hello"},
		{"<h1>Title</h1><ul><li>one</li><li>two</li></ul>", "Title\none\ntwo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlainText(tt.in), tt.in)
	}
}
