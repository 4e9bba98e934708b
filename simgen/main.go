package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	reco "stereoreco/pkg"
)

var logger Logger

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
	fileOut := flag.String("out", "run.dat", "Output run file path")
	nEvents := flag.Int("events", 100, "Number of physics events")
	seed := flag.Int64("seed", 42, "Random seed")
	runNumber := flag.Int("run", 1, "Run number")
	nLST := flag.Int("lst", 4, "Number of LSTCam telescopes")
	nNectar := flag.Int("nectar", 0, "Number of NectarCam telescopes")
	nFlash := flag.Int("flash", 0, "Number of FlashCam telescopes")
	nGCT := flag.Int("gct", 0, "Number of GCT telescopes")
	ringRadius := flag.Float64("ring", 150, "Telescope ring radius in meters")
	altDeg := flag.Float64("alt", 70, "Pointing altitude in degrees")
	azDeg := flag.Float64("az", 0, "Pointing azimuth in degrees")
	emin := flag.Float64("emin", 0.05, "Minimum energy in TeV")
	emax := flag.Float64("emax", 50, "Maximum energy in TeV")
	noise := flag.Float64("noise", 1.5, "Pixel noise sigma in photoelectrons")
	calibEvery := flag.Int("calib-every", 0, "Insert a calibration event every N physics events (0 disables)")
	verbosity := flag.Int("verbosity", 0, "Verbosity level")
	flag.Parse()

	reco.SetConfiguration(reco.Configuration{Verbosity: *verbosity})
	reco.SetLogger(logger)

	instrument, err := BuildArray(*nLST, *nNectar, *nFlash, *nGCT, *ringRadius)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	pointing := reco.HorizonCoord{
		Alt: *altDeg * reco.DegToRad,
		Az:  *azDeg * reco.DegToRad,
	}

	file, err := os.Create(*fileOut)
	if err != nil {
		message := fmt.Errorf("Error creating output file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	defer file.Close()

	startSec := uint32(time.Now().Unix())
	writer := reco.NewRunFileWriter(file)
	if err := writer.WriteRunHeader(uint32(*runNumber), startSec, instrument); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	generator := NewShowerGenerator(*seed, instrument, uint32(*runNumber), pointing, *emin, *emax, *noise)

	message := fmt.Sprintf("Generating %d events for %d telescopes", *nEvents, len(instrument.Telescopes))
	logger.Info(message, "simgen")

	eventID := uint32(0)
	written := 0
	calibWritten := 0
	for i := 0; i < *nEvents; i++ {
		eventID++
		timestamp := uint64(startSec)*1_000_000 + uint64(i)*20_000

		event, err := generator.GenerateEvent(eventID, timestamp)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		if err := writer.WriteEvent(event, reco.PHYSICS_EVENT); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		written++

		if *calibEvery > 0 && (i+1)%*calibEvery == 0 {
			eventID++
			calibEvent := generator.GenerateCalibrationEvent(eventID, timestamp+10_000)
			if err := writer.WriteEvent(calibEvent, reco.CALIBRATION_EVENT); err != nil {
				logger.Error(err.Error())
				os.Exit(1)
			}
			calibWritten++
		}
	}

	fmt.Println("Physics events written: ", written)
	fmt.Println("Calibration events written: ", calibWritten)
}
