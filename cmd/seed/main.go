package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/barangay-nit/eservices/internal/app"
	"github.com/barangay-nit/eservices/internal/appointment"
	"github.com/barangay-nit/eservices/internal/auth"
	"github.com/barangay-nit/eservices/internal/certificate"
	"github.com/barangay-nit/eservices/internal/config"
	"github.com/barangay-nit/eservices/internal/domain"
	"github.com/barangay-nit/eservices/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	var (
		username     = flag.String("staff-user", "admin", "staff username to create")
		password     = flag.String("staff-password", "", "staff password (required)")
		fullName     = flag.String("staff-name", "Barangay Administrator", "staff display name")
		role         = flag.String("staff-role", auth.RoleAdmin, "staff role: staff or admin")
		certificates = flag.Int("certificates", 50, "fake certificate requests to create")
		appointments = flag.Int("appointments", 80, "fake appointment bookings to attempt")
	)
	flag.Parse()

	if *password == "" {
		log.Fatal("-staff-password is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	// Fake residents must never be mailed.
	cfg.NotifyDriver = config.NotifyLog

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer a.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if _, err := a.Auth.Register(ctx, *username, *password, *fullName, *role); err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			log.Fatalf("create staff: %v", err)
		}
		log.Printf("staff %q already exists, skipping", *username)
	} else {
		log.Printf("staff %q created role=%s", *username, *role)
	}

	if err := seedCertificates(ctx, a.Certificates, *certificates); err != nil {
		log.Fatalf("seed certificates: %v", err)
	}
	if err := seedAppointments(ctx, a.Appointments, a.Slots, *appointments); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedCertificates(ctx context.Context, svc *certificate.Service, count int) error {
	log.Printf("seeding %d certificate requests", count)

	for i := 0; i < count; i++ {
		_, err := svc.Submit(ctx, certificate.SubmitInput{
			Name:            gofakeit.Name(),
			Email:           gofakeit.Email(),
			Phone:           "09" + gofakeit.Numerify("#########"),
			CertificateType: certificate.Types[gofakeit.Number(0, len(certificate.Types)-1)],
			Purpose:         gofakeit.RandomString([]string{"Employment", "School enrollment", "Bank account", "Scholarship", "Medical assistance"}),
			IDType:          certificate.IDTypes[gofakeit.Number(0, len(certificate.IDTypes)-1)],
			IDNumber:        gofakeit.Numerify("####-####-####"),
		})
		if err != nil {
			return err
		}
	}

	log.Println("certificate requests seeded")
	return nil
}

var concerns = []string{
	"Follow-up on blood pressure",
	"Child's scheduled vaccine",
	"Toothache for three days",
	"Prenatal check, second trimester",
	"Persistent cough",
	"",
}

// seedAppointments books random free slots over the next two weeks. Slots
// already taken are skipped, so fewer than count may be created.
func seedAppointments(ctx context.Context, svc *appointment.Service, slots *schedule.Calculator, count int) error {
	log.Printf("seeding up to %d appointments", count)

	services := slots.Catalog().Services()
	today := slots.Today()
	booked := 0

	for i := 0; i < count; i++ {
		svcDef := services[gofakeit.Number(0, len(services)-1)]
		day := today.AddDate(0, 0, gofakeit.Number(1, 14))

		free, err := slots.FreeSlots(ctx, day, svcDef.Name)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidSlotQuery) {
				continue
			}
			return err
		}
		if len(free) == 0 {
			continue
		}
		at := free[gofakeit.Number(0, len(free)-1)]

		_, err = svc.Book(ctx, appointment.BookInput{
			Name:          gofakeit.Name(),
			Email:         gofakeit.Email(),
			Phone:         "09" + gofakeit.Numerify("#########"),
			ServiceType:   svcDef.Name,
			Date:          day.Format(schedule.DateLayout),
			Time:          at.String(),
			HealthConcern: gofakeit.RandomString(concerns),
		})
		if err != nil {
			if errors.Is(err, domain.ErrSlotUnavailable) {
				continue
			}
			return err
		}
		booked++
	}

	log.Printf("appointments seeded: %d", booked)
	return nil
}
