// Package notification delivers borrower emails over SMTP. Delivery is best
// effort: every send is retried a bounded number of times and failures are
// logged, never surfaced to the operation that triggered them.
package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/fintecol/prestamos-engine/internal/config"
	"github.com/fintecol/prestamos-engine/internal/domain"
	"github.com/fintecol/prestamos-engine/internal/repository"
)

const (
	sendRetries = 2
	sendTimeout = 20 * time.Second
)

// Mailer implements service.Notifier over SMTP.
type Mailer struct {
	clientRepo      repository.ClientRepository
	loanRepo        repository.LoanRepository
	installmentRepo repository.InstallmentRepository
	config          *config.Config
	dial            func(m *gomail.Message) error
}

func NewMailer(
	clientRepo repository.ClientRepository,
	loanRepo repository.LoanRepository,
	installmentRepo repository.InstallmentRepository,
	cfg *config.Config,
) *Mailer {
	dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password)
	return &Mailer{
		clientRepo:      clientRepo,
		loanRepo:        loanRepo,
		installmentRepo: installmentRepo,
		config:          cfg,
		dial: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}
}

// NotifyLoanCreated mails the borrower a plain-text summary of the new loan:
// client name, amount and rate, term and modality, the due-date list, and the
// first installment's interest.
func (m *Mailer) NotifyLoanCreated(loanID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	loan, err := m.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		log.Printf("loan-created email: préstamo %s no disponible: %v", loanID, err)
		return
	}
	client, err := m.clientRepo.GetByCode(ctx, loan.ClientCode)
	if err != nil {
		log.Printf("loan-created email: cliente %s no disponible: %v", loan.ClientCode, err)
		return
	}
	if client.Email == nil || strings.TrimSpace(*client.Email) == "" {
		log.Printf("loan-created email: cliente %s sin email, se omite el envío", client.Codigo)
		return
	}
	installments, err := m.installmentRepo.ListByLoan(ctx, loanID)
	if err != nil {
		log.Printf("loan-created email: cuotas de %s no disponibles: %v", loanID, err)
		return
	}

	subject := fmt.Sprintf("Nuevo préstamo P-%s - %s", shortID(loanID), client.Nombre)
	m.send(*client.Email, subject, renderLoanCreated(client, loan, installments))
}

// NotifyInstallmentDue mails the borrower a reminder for an upcoming
// installment.
func (m *Mailer) NotifyInstallmentDue(installment *domain.Installment) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	loan, err := m.loanRepo.GetByID(ctx, installment.LoanID)
	if err != nil {
		log.Printf("reminder email: préstamo %s no disponible: %v", installment.LoanID, err)
		return
	}
	client, err := m.clientRepo.GetByCode(ctx, loan.ClientCode)
	if err != nil || client.Email == nil || strings.TrimSpace(*client.Email) == "" {
		return
	}

	subject := fmt.Sprintf("Recordatorio: cuota %d vence el %s",
		installment.Number, installment.DueDate.Format("2006-01-02"))
	body := fmt.Sprintf(
		"Hola %s,\n\nLa cuota %d de tu préstamo vence el %s.\nInterés a pagar: %s\n",
		client.Nombre, installment.Number,
		installment.DueDate.Format("2006-01-02"),
		installment.PlannedInterest.StringFixed(2),
	)
	m.send(*client.Email, subject, body)
}

// send delivers one message with bounded retries and linear backoff.
func (m *Mailer) send(to, subject, body string) {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.config.SMTP.From, m.config.SMTP.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	msg.AddAlternative("text/html",
		"<pre style='font-family:system-ui,Arial;line-height:1.4'>"+body+"</pre>")

	for attempt := 1; attempt <= sendRetries+1; attempt++ {
		err := m.dial(msg)
		if err == nil {
			log.Printf("email enviado a %s (asunto: %s)", to, subject)
			return
		}
		log.Printf("fallo enviando email (intento %d/%d): %v", attempt, sendRetries+1, err)
		if attempt <= sendRetries {
			time.Sleep(time.Duration(attempt) * 1500 * time.Millisecond)
		}
	}
	log.Printf("no se pudo enviar el email a %s tras %d intentos", to, sendRetries+1)
}

func renderLoanCreated(client *domain.Client, loan *domain.Loan, installments []*domain.Installment) string {
	var b strings.Builder

	b.WriteString("El interés de cada cuota se calcula en base al abono mensual a capital.\n\n")
	fmt.Fprintf(&b, "Nombre: %s\n", client.Nombre)
	fmt.Fprintf(&b, "Monto: %s  |  Tasa: %s%%\n", loan.Principal.StringFixed(2), loan.InterestRate.String())
	fmt.Fprintf(&b, "Plazo: %d cuota(s)  |  Modalidad: %s\n", loan.NumInstallments, loan.Periodicity)

	b.WriteString("Fechas de cuotas:\n")
	for _, in := range installments {
		if in.PlannedCapital.IsPositive() {
			fmt.Fprintf(&b, "  - %s  (cuota: %s)\n", in.DueDate.Format("2006-01-02"), in.Total().StringFixed(2))
			continue
		}
		fmt.Fprintf(&b, "  - %s\n", in.DueDate.Format("2006-01-02"))
	}

	if len(installments) > 0 {
		fmt.Fprintf(&b, "Interés a pagar, primera cuota: %s\n", installments[0].PlannedInterest.StringFixed(2))
	}

	return b.String()
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
