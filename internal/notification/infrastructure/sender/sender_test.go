package sender

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/storefront/internal/notification/domain"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+919876543210": "+919876543210",
		"9876543210":    "+919876543210",
		"09876543210":   "+919876543210",
		" 9876543210 ":  "+919876543210",
		"":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in, "+91"), in)
	}
}

func TestWhatsAppSend(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.NoError(t, r.ParseForm())
		form = map[string]string{"From": r.PostForm.Get("From"), "To": r.PostForm.Get("To"), "Body": r.PostForm.Get("Body")}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"sid":"SM1"}`)
	}))
	defer srv.Close()

	s := NewWhatsAppSender(WhatsAppConfig{BaseURL: srv.URL, AccountSID: "AC123", AuthToken: "secret", From: "+14155238886"})
	assert.Equal(t, domain.ChannelWhatsApp, s.Channel())

	err := s.Send(context.Background(), domain.Message{Target: "09876543210", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+14155238886", form["From"])
	assert.Equal(t, "whatsapp:+919876543210", form["To"])
	assert.Equal(t, "hello", form["Body"])
}

func TestWhatsAppSendRejectsNon201(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"message":"queued?"}`)
	}))
	defer srv.Close()

	s := NewWhatsAppSender(WhatsAppConfig{BaseURL: srv.URL, AccountSID: "AC123", AuthToken: "secret", From: "+1"})
	err := s.Send(context.Background(), domain.Message{Target: "+15550001", Text: "x"})
	assert.True(t, errors.Is(err, domain.ErrSendFailed))
	assert.Contains(t, err.Error(), "status 200")
}

func TestWhatsAppWithoutCredentialsIsDisabled(t *testing.T) {
	s := NewWhatsAppSender(WhatsAppConfig{})
	err := s.Send(context.Background(), domain.Message{Target: "+15550001", Text: "x"})
	assert.True(t, errors.Is(err, domain.ErrChannelDisabled))
}

func TestDisabledSender(t *testing.T) {
	d := NewDisabled(domain.ChannelEmail)
	assert.Equal(t, domain.ChannelEmail, d.Channel())
	assert.True(t, errors.Is(d.Send(context.Background(), domain.Message{}), domain.ErrChannelDisabled))
}

func TestSMTPComposeMultipart(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "no-reply@example.com"})
	raw, err := s.compose(domain.Message{
		Target:  "asha@example.com",
		Subject: "Order Confirmation - #ORD1",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})
	require.NoError(t, err)

	m, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", m.Header.Get("To"))
	assert.Equal(t, "no-reply@example.com", m.Header.Get("From"))

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(m.Body, params["boundary"])
	var bodies []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(p)
		require.NoError(t, err)
		bodies = append(bodies, p.Header.Get("Content-Type")+"|"+string(b))
	}
	assert.Equal(t, []string{
		"text/plain; charset=utf-8|plain body",
		"text/html; charset=utf-8|<p>html body</p>",
	}, bodies)
}
