package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	sqlx "github.com/jmoiron/sqlx"
	reco "stereoreco/pkg"
)

var dbConn *sqlx.DB
var configuration reco.Configuration

var (
	logger         Logger
	VerbosityLevel int
	DiscardErrors  bool
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	reco.SetConfiguration(configuration)
	reco.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	DiscardErrors = configuration.Discard
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
	}
	if VerbosityLevel > 0 {
		printConfiguration(configuration, logger)
	}

	procID := uuid.New().String()
	logger.Info(fmt.Sprintf("Processing id: %s", procID), "main")

	if !configuration.NoDB {
		dbConn, err = reco.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			message := fmt.Errorf("Error connecting to database: %w", err)
			logger.Error(message.Error())
			return
		}
		defer dbConn.Close()
	}

	file, err := os.Open(configuration.FileIn)
	if err != nil {
		message := fmt.Errorf("Error opening file: %w", err)
		logger.Error(message.Error())
		return
	}
	defer file.Close()

	runHeader, instrument, err := reco.ReadRunHeader(file)
	if err != nil {
		message := fmt.Errorf("Error reading run header: %w", err)
		logger.Error(message.Error())
		return
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Run %d with %d telescopes", runHeader.RunNumber, runHeader.NTelescopes)
		logger.Info(message, "main")
	}

	evtCount, err := reco.CountEvents(file)
	if err != nil {
		message := fmt.Errorf("Error counting events: %w", err)
		logger.Error(message.Error())
		return
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Number of events: %d", evtCount)
		logger.Info(message, "main")
	}

	cuts := reco.DefaultCutTable()
	calibration := make(reco.CalibrationMap)
	if !configuration.NoDB {
		cuts, calibration, err = reco.LoadDatabase(dbConn, int(runHeader.RunNumber))
		if err != nil {
			return
		}
	}

	registry := reco.NewGeometryRegistry()
	camTypes, err := reco.InferCameraTypes(instrument, registry)
	if err != nil {
		message := fmt.Errorf("Error inferring camera types: %w", err)
		logger.Error(message.Error())
		return
	}

	r1 := &reco.R1Calibrator{Constants: calibration}
	dl0 := &reco.DL0Reducer{Constants: calibration}
	dl1 := &reco.DL1Calibrator{Constants: calibration}

	fitter := reco.NewAxisIntersectionFitter(registry)
	energy := reco.NewScalingEnergyEstimator()
	reconstructor := reco.NewEventReconstructor(instrument, registry, cuts, fitter, energy)

	writer, err := reco.NewWriter(configuration.FileOut, procID)
	if err != nil {
		logger.Error(err.Error())
		return
	}
	if err := writer.WriteRunInfo(runHeader.RunNumber, instrument, camTypes, cuts); err != nil {
		logger.Error(err.Error())
		writer.Close()
		return
	}

	source := reco.NewEventSource(file)

	processed := 0
	written := 0
	for {
		event, err := source.NextEvent()
		if err != nil {
			if err != io.EOF {
				message := fmt.Errorf("error reading event: %w", err)
				logger.Error(message.Error())
			}
			break
		}
		processed++

		row, err := processEvent(event, r1, dl0, dl1, reconstructor)
		if err != nil {
			message := fmt.Errorf("error reconstructing event: %w", err)
			logger.Error(message.Error())
			break
		}
		if row == nil {
			continue
		}
		if configuration.WriteData {
			if err := writer.WriteEvent(row); err != nil {
				logger.Error(err.Error())
				break
			}
			written++
		}
	}

	if err := writer.Close(); err != nil {
		logger.Error(err.Error())
	}
	fmt.Println("Total events processed: ", processed)
	fmt.Println("Total events written: ", written)
}

func processEvent(event *reco.EventType, r1 *reco.R1Calibrator, dl0 *reco.DL0Reducer,
	dl1 *reco.DL1Calibrator, reconstructor *reco.EventReconstructor) (row *reco.ReconstructedEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			errMessage := fmt.Errorf("reconstruction recovered from panic on event %d: %v", event.EventID, r)
			logger.Error(errMessage.Error())
			message := fmt.Sprintf("discarding event %d", event.EventID)
			logger.Error(message)
			row, err = nil, nil
		}
	}()

	if event.Error && DiscardErrors {
		message := fmt.Sprintf("discarding event %d", event.EventID)
		logger.Error(message)
		return nil, nil
	}

	r1.Calibrate(event)
	dl0.Reduce(event)
	dl1.Calibrate(event)

	return reconstructor.ReconstructEvent(event)
}
