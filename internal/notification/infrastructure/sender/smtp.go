// Package sender 通知渠道实现：SMTP 邮件、WhatsApp 与禁用渠道
package sender

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/storefront/internal/notification/domain"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// SMTPConfig SMTP 连接配置
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender 邮件发送，正文为 text/plain 与 text/html 的 multipart/alternative
type SMTPSender struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPSender 创建邮件发送器
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, now: time.Now}
}

// Channel 实现 domain.Sender
func (s *SMTPSender) Channel() domain.Channel { return domain.ChannelEmail }

// Send 实现 domain.Sender
func (s *SMTPSender) Send(ctx context.Context, msg domain.Message) error {
	body, err := s.compose(msg)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "sending email", "target", msg.Target, "subject", msg.Subject)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return domain.ErrSendFailed.Wrap(err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return domain.ErrSendFailed.Wrap(err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return domain.ErrSendFailed.Wrap(err)
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return domain.ErrSendFailed.Wrap(err)
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return domain.ErrSendFailed.Wrap(err)
	}
	if err := c.Rcpt(msg.Target); err != nil {
		return domain.ErrSendFailed.Wrap(err)
	}
	w, err := c.Data()
	if err != nil {
		return domain.ErrSendFailed.Wrap(err)
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return domain.ErrSendFailed.Wrap(err)
	}
	if err := w.Close(); err != nil {
		return domain.ErrSendFailed.Wrap(err)
	}
	return c.Quit()
}

// compose 构造 MIME 邮件
func (s *SMTPSender) compose(msg domain.Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.Target)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s@%s>\r\n", uuid.NewString(), s.cfg.Host)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	parts := []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
