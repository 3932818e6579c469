package tracking

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/barangay-nit/eservices/internal/domain"
)

type Kind string

const (
	KindCertificate Kind = "CERT"
	KindAppointment Kind = "APPT"
)

// MaxSequence is the last sequence number a (kind, day) pair can issue.
const MaxSequence = 9999

const dayLayout = "20060102"

func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindCertificate, KindAppointment:
		return Kind(s), true
	}
	return "", false
}

// Sequencer hands out the next per-day sequence number for a kind. It must be
// atomic: two callers never observe the same value for the same (kind, day).
type Sequencer interface {
	NextSequence(ctx context.Context, kind Kind, day time.Time) (int, error)
}

type Generator struct {
	seq Sequencer
}

func NewGenerator(seq Sequencer) *Generator {
	return &Generator{seq: seq}
}

// Generate issues a tracking ID such as CERT-20241222-0007 for the calendar
// day of date.
func (g *Generator) Generate(ctx context.Context, kind Kind, date time.Time) (string, error) {
	if _, ok := ParseKind(string(kind)); !ok {
		return "", fmt.Errorf("unknown tracking kind %q", kind)
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	n, err := g.seq.NextSequence(ctx, kind, day)
	if err != nil {
		return "", fmt.Errorf("next tracking sequence: %w", err)
	}
	if n < 1 || n > MaxSequence {
		log.Printf("tracking sequence exhausted kind=%s day=%s seq=%d", kind, day.Format(dayLayout), n)
		return "", domain.ErrGenerationExhausted
	}

	return Format(kind, day, n), nil
}

func Format(kind Kind, day time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", kind, day.Format(dayLayout), seq)
}

// ID is a parsed tracking identifier.
type ID struct {
	Kind     Kind
	Day      time.Time
	Sequence int
}

// Parse checks the KIND-YYYYMMDD-NNNN shape. It is strict about case.
func Parse(s string) (ID, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return ID{}, false
	}

	kind, ok := ParseKind(parts[0])
	if !ok {
		return ID{}, false
	}

	if len(parts[1]) != len(dayLayout) {
		return ID{}, false
	}
	day, err := time.Parse(dayLayout, parts[1])
	if err != nil {
		return ID{}, false
	}

	if len(parts[2]) != 4 {
		return ID{}, false
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return ID{}, false
	}

	return ID{Kind: kind, Day: day, Sequence: seq}, true
}
