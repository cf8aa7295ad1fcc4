// Command bookings-import creates bookings from the rows of an xlsx sheet.
//
//	bookings-import -file bookings.xlsx [-sheet Sheet1] [-operator ops@example.com] [-dry-run]
//
// Rows are imported one at a time; a failing row is logged and skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Eursukkul/courier-backoffice/config"
	"github.com/Eursukkul/courier-backoffice/internal/events"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/internal/service"
	"github.com/Eursukkul/courier-backoffice/pkg/awb"
	"github.com/Eursukkul/courier-backoffice/pkg/database"
	"github.com/Eursukkul/courier-backoffice/pkg/logger"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type summary struct {
	Created int
	Failed  int
	Skipped int
}

func main() {
	file := flag.String("file", "", "path to the xlsx workbook")
	sheet := flag.String("sheet", "Sheet1", "sheet holding the bookings")
	operator := flag.String("operator", "bulk-import", "recorded_by for the Booked events")
	dryRun := flag.Bool("dry-run", false, "parse the sheet without writing bookings")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	zl, err := logger.New(logger.Options{Level: cfg.LogLevel, Service: "bookings-import"})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	f, err := os.Open(*file)
	if err != nil {
		zl.Fatal("open workbook", zap.Error(err))
	}
	defer f.Close()

	rows, err := readRows(f, *sheet)
	if err != nil {
		zl.Fatal("read workbook", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var create func(context.Context, service.CreateBookingInput) (string, error)
	if *dryRun {
		create = func(context.Context, service.CreateBookingInput) (string, error) { return "", nil }
	} else {
		svc, err := buildService(cfg, zl)
		if err != nil {
			zl.Fatal("setup", zap.Error(err))
		}
		create = func(ctx context.Context, in service.CreateBookingInput) (string, error) {
			b, err := svc.CreateBooking(ctx, in)
			if err != nil {
				return "", err
			}
			return b.AWB, nil
		}
	}

	s := importRows(ctx, rows, *operator, create, zl)
	zl.Info("import finished",
		zap.Int("created", s.Created),
		zap.Int("failed", s.Failed),
		zap.Int("skipped", s.Skipped),
		zap.Bool("dry_run", *dryRun),
	)
	if s.Failed > 0 {
		os.Exit(1)
	}
}

func readRows(r io.Reader, sheet string) ([][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// importRows skips the header row and blank rows. Row numbers in logs are sheet rows.
func importRows(
	ctx context.Context,
	rows [][]string,
	operator string,
	create func(context.Context, service.CreateBookingInput) (string, error),
	zl *zap.Logger,
) summary {
	var s summary
	if len(rows) == 0 {
		return s
	}

	for i, row := range rows[1:] {
		if ctx.Err() != nil {
			break
		}
		rowNum := i + 2
		if isBlank(row) {
			s.Skipped++
			continue
		}

		in, err := parseRow(rowNum, row)
		if err != nil {
			s.Failed++
			zl.Warn("row rejected", zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		in.RecordedBy = operator

		awbNo, err := create(ctx, in)
		if err != nil {
			s.Failed++
			fields := []zap.Field{zap.Int("row", rowNum), zap.Error(err)}
			var fe validation.FieldErrors
			if errors.As(err, &fe) {
				fields = append(fields, zap.Any("fields", fe))
			}
			zl.Warn("booking not created", fields...)
			continue
		}
		s.Created++
		zl.Info("booking created", zap.Int("row", rowNum), zap.String("awb", awbNo))
	}
	return s
}

func buildService(cfg *config.Config, zl *zap.Logger) (service.BookingService, error) {
	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		return nil, err
	}
	awbGen, err := awb.NewGenerator(cfg.AWBPrefix, cfg.AWBNodeID)
	if err != nil {
		return nil, err
	}

	txm := repository.NewTransactor(db)
	bookingRepo := repository.NewBookingRepository(db)
	historyRepo := repository.NewStatusEventRepository(db)

	// Booked events are seeded directly and never published, so a local dispatcher suffices.
	ledger := service.NewLedger(txm, bookingRepo, historyRepo, events.NewDispatcher(zl), zl)

	return service.NewBookingService(service.BookingDeps{
		Transactor: txm,
		Bookings:   bookingRepo,
		History:    historyRepo,
		Shippers:   repository.NewShipperRepository(db),
		Consignees: repository.NewConsigneeRepository(db),
		Ledger:     ledger,
		AWB:        awbGen,
		Validator:  validation.New(cfg.PhoneRegion),
		Tariff:     cfg.Tariff,
		Logger:     zl,
	}), nil
}
