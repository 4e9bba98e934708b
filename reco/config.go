package main

import (
	"encoding/json"
	"fmt"
	"os"

	reco "stereoreco/pkg"
)

func LoadConfiguration(filename string) (reco.Configuration, error) {
	var config reco.Configuration

	// Set default values
	config.MaxEvents = 1000000000
	config.Verbosity = 0
	config.NoDB = false
	config.Discard = true
	config.Skip = 0
	config.Host = "db.cta-array.org"
	config.User = "recoreader"
	config.Passwd = "readonly"
	config.DBName = "ARRAYCONF"
	config.WriteData = true
	config.UseBlosc = false
	config.CompressionLevel = 4
	config.BloscAlgorithm = reco.BloscAlgorithm{Name: "blosclz", Code: reco.BLOSC_BLOSCLZ}
	config.BloscShuffle = reco.BloscShuffle{Name: "byte-shuffle", Code: reco.BLOSC_SHUFFLE}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config reco.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Telescopes: %v", config.Telescopes), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Discard: %t", config.Discard), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Use Blosc: %t", config.UseBlosc), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Blosc algorithm: %s", config.BloscAlgorithm), "config")
	logger.Info(fmt.Sprintf("Blosc shuffle: %s", config.BloscShuffle), "config")
}
