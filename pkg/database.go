package reco

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// LoadDatabase reads the run-dependent configuration: selection cuts
// per camera type and calibration constants per telescope. Cut rows
// override the compiled-in defaults; telescopes without a calibration
// row fall back to the defaults at lookup time.
func LoadDatabase(dbConn *sqlx.DB, runNumber int) (CutTable, CalibrationMap, error) {
	cuts, err := getCutsFromDB(dbConn, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting camera cuts from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, nil, errMessage
	}
	calibration, err := getCalibrationFromDB(dbConn, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting calibration constants from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, nil, errMessage
	}
	return cuts, calibration, nil
}

// CameraCutsEntry is one CameraCuts table row. DistCut is stored in
// degrees in the database.
type CameraCutsEntry struct {
	CamType        string  `db:"CamType"`
	AmpCut         float64 `db:"AmpCut"`
	DistCut        float64 `db:"DistCut"`
	BoundaryThresh float64 `db:"BoundaryThresh"`
	PictureThresh  float64 `db:"PictureThresh"`
}

type CalibrationEntry struct {
	TelID uint16 `db:"TelID"`
	TelescopeCalibration
}

func getCutsFromDB(db *sqlx.DB, runNumber int) (CutTable, error) {
	query := "SELECT CamType, AmpCut, DistCut, BoundaryThresh, PictureThresh FROM CameraCuts WHERE MinRun <= %d and MaxRun >= %d"
	query = fmt.Sprintf(query, runNumber, runNumber)

	if configuration.Verbosity > 0 {
		logger.Info("Camera cuts read from DB", "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(query)
	if err != nil {
		errMessage := fmt.Errorf("error querying database: %w", err)
		return nil, errMessage
	}

	cuts := DefaultCutTable()
	for rows.Next() {
		result := CameraCutsEntry{}
		err := rows.StructScan(&result)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return nil, errMessage
		}
		cuts[result.CamType] = CameraCuts{
			AmpCut:  result.AmpCut,
			DistCut: result.DistCut * DegToRad,
			TailCuts: TailCuts{
				Boundary: result.BoundaryThresh,
				Picture:  result.PictureThresh,
			},
		}
	}
	return cuts, nil
}

func getCalibrationFromDB(db *sqlx.DB, runNumber int) (CalibrationMap, error) {
	query := "SELECT TelID, PedestalHG, PedestalLG, GainHG, GainLG, FlatField, SaturationADC FROM TelescopeCalibration WHERE MinRun <= %d and MaxRun >= %d ORDER BY TelID"
	query = fmt.Sprintf(query, runNumber, runNumber)

	if configuration.Verbosity > 0 {
		logger.Info("Calibration constants read from DB", "database")
	}
	if configuration.Verbosity > 2 {
		message := fmt.Sprintf("Query: %s", query)
		logger.Info(message, "database")
	}

	rows, err := db.Queryx(query)
	if err != nil {
		errMessage := fmt.Errorf("error querying database: %w", err)
		return nil, errMessage
	}

	calibration := make(CalibrationMap)
	for rows.Next() {
		result := CalibrationEntry{}
		err := rows.StructScan(&result)
		if err != nil {
			errMessage := fmt.Errorf("error scanning DB row: %w", err)
			return nil, errMessage
		}
		constants := result.TelescopeCalibration
		calibration[result.TelID] = &constants
	}
	return calibration, nil
}
