package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"os"
	"strings"
)

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool
}

func NewMailService() *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Println("⚠️ MailService disabled: Missing SMTP environment variables.")
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		Enabled:  enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: 寻物小助手 <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

		err := smtp.SendMail(addr, auth, s.From, to, msg)
		if err != nil {
			log.Printf("❌ Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("✅ Email sent to %v: %s", to, subject)
		}
	}()
}

// 邮件模板内置在二进制里，部署时不依赖模板目录
var (
	claimMailTmpl = template.Must(template.New("claim").Parse(`
<p>你好，</p>
<p>用户 <b>{{.Claimant}}</b> 对你发布的《{{.ItemTitle}}》提交了认领申请：</p>
<blockquote>{{.Description}}</blockquote>
<p>请登录寻物平台查看并处理。</p>`))

	resolveMailTmpl = template.Must(template.New("resolve").Parse(`
<p>你好，</p>
<p>你发布的《{{.ItemTitle}}》已确认物归原主 🎉</p>
<p>该信息将在 30 天后自动清理，无需任何操作。</p>`))
)

func (s *MailService) renderTemplate(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// SendClaimEmail 有人提交认领申请时通知发布者
func (s *MailService) SendClaimEmail(email, itemTitle, claimant, description string) {
	body, err := s.renderTemplate(claimMailTmpl, map[string]string{
		"ItemTitle":   itemTitle,
		"Claimant":    claimant,
		"Description": description,
	})
	if err != nil {
		log.Printf("Error rendering claim email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "📦 [寻物] 你的《"+itemTitle+"》收到认领申请", body)
}

// SendResolutionEmail 归还确认后通知发布者
func (s *MailService) SendResolutionEmail(email, itemTitle string) {
	body, err := s.renderTemplate(resolveMailTmpl, map[string]string{
		"ItemTitle": itemTitle,
	})
	if err != nil {
		log.Printf("Error rendering resolution email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "🎉 [寻物] 《"+itemTitle+"》已物归原主", body)
}
