package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/gatepass/backend/internal/emaillogs"
	"github.com/gatepass/backend/internal/models"
	"github.com/gatepass/backend/pkg/queue"
)

// MailConfig holds SMTP settings for decision notifications.
type MailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// DecisionMailer processes decision-email jobs: render, send via SMTP,
// record the attempt in email_logs.
type DecisionMailer struct {
	emailLogs *emaillogs.Repository
	queue     *queue.Queue
	mail      MailConfig
	logger    *zap.Logger
	send      func(payload queue.DecisionEmailPayload, subject, body string) error
}

// NewDecisionMailer creates a decision email processor.
func NewDecisionMailer(emailLogs *emaillogs.Repository, q *queue.Queue, mail MailConfig, logger *zap.Logger) *DecisionMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &DecisionMailer{emailLogs: emailLogs, queue: q, mail: mail, logger: logger}
	m.send = m.sendSMTP
	return m
}

// Process executes one decision email job.
func (m *DecisionMailer) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeDecisionEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.DecisionEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	subject, body := renderDecision(payload.EmailType)
	sendErr := m.send(payload, subject, body)

	el := &models.EmailLog{
		EventID:        &payload.EventID,
		RegistrationID: &payload.RegistrationID,
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        subject,
		Status:         models.EmailLogStatusSent,
	}
	if sendErr != nil {
		el.Status = models.EmailLogStatusFailed
		el.ErrorMessage = sendErr.Error()
	}
	if err := m.emailLogs.Record(ctx, el); err != nil {
		m.logger.Error("record email log failed", zap.Error(err), zap.String("registration_id", payload.RegistrationID.String()))
	}
	if sendErr != nil {
		return fmt.Errorf("send email: %w", sendErr)
	}

	m.logger.Info("decision email sent",
		zap.String("registration_id", payload.RegistrationID.String()),
		zap.String("email_type", payload.EmailType))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (m *DecisionMailer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("decision mailer stopping")
			return
		default:
		}

		job, err := m.queue.Dequeue(ctx)
		if err != nil {
			m.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		m.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := m.Process(ctx, job); err != nil {
			m.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := m.queue.Retry(ctx, job); reErr != nil {
				m.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}

func (m *DecisionMailer) sendSMTP(payload queue.DecisionEmailPayload, subject, body string) error {
	if m.mail.SMTPHost == "" {
		return fmt.Errorf("smtp not configured")
	}
	addr := fmt.Sprintf("%s:%d", m.mail.SMTPHost, m.mail.SMTPPort)
	var auth smtp.Auth
	if m.mail.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.mail.SMTPUser, m.mail.SMTPPass, m.mail.SMTPHost)
	}
	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.mail.FromName, m.mail.FromAddress, payload.RecipientEmail, subject, body)
	return smtp.SendMail(addr, auth, m.mail.FromAddress, []string{payload.RecipientEmail}, []byte(msg))
}

func renderDecision(emailType string) (subject, body string) {
	switch emailType {
	case models.EmailTypeApproved:
		return "Your registration is approved",
			"Good news: your registration has been approved. Bring your check-in code to the event entrance."
	case models.EmailTypeRejected:
		return "Your registration was not accepted",
			"We're sorry: your registration was not accepted this time."
	default:
		return "Registration update", "Your registration status has changed."
	}
}
