// Package audit appends prepayment records to a durable CSV log. The log is
// an operational paper trail, not part of the ledger's correctness contract:
// writers treat failures as best-effort and never roll back the payment.
package audit

import (
	"encoding/csv"
	"os"
	"sync"

	"github.com/fintecol/prestamos-engine/internal/domain"
)

var header = []string{"fecha", "loan_id", "cuota_id", "nombre_cliente", "monto"}

// CSVLogger serializes appends to a single CSV file.
type CSVLogger struct {
	mu   sync.Mutex
	path string
}

func NewCSVLogger(path string) *CSVLogger {
	return &CSVLogger{path: path}
}

// AppendPrepayment appends one prepayment row, writing the header first on a
// fresh file.
func (l *CSVLogger) AppendPrepayment(payment *domain.PrincipalPayment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return err
		}
	}

	cuotaID := ""
	if payment.InstallmentID != nil {
		cuotaID = payment.InstallmentID.String()
	}
	name := ""
	if payment.ClientName != nil {
		name = *payment.ClientName
	}

	record := []string{
		payment.Date.Format("2006-01-02"),
		payment.LoanID.String(),
		cuotaID,
		name,
		payment.Amount.StringFixed(2),
	}
	if err := w.Write(record); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
