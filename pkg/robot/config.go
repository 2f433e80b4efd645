package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

const DefaultConfigFile = "so101.json"

// Config maps arm identifiers (the names used in a program's actor mapping,
// e.g. "so101_left") to their serial port and calibration.
type Config struct {
	Arms map[string]ArmConfig `json:"arms"`
}

// ArmConfig holds configuration for a single arm. Calibration is either
// embedded or referenced via CalibrationFile (the LeRobot layout keeps one
// calibration JSON per arm).
type ArmConfig struct {
	Port            string      `json:"port"`
	Calibration     Calibration `json:"calibration,omitempty"`
	CalibrationFile string      `json:"calibration_file,omitempty"`
}

// IsCalibrated returns true if the arm has embedded calibration data.
func (a *ArmConfig) IsCalibrated() bool {
	return len(a.Calibration) > 0
}

// ResolveCalibration returns the arm's calibration, reading CalibrationFile
// when none is embedded.
func (a *ArmConfig) ResolveCalibration() (Calibration, error) {
	if a.IsCalibrated() {
		return a.Calibration, nil
	}
	if a.CalibrationFile == "" {
		return nil, fmt.Errorf("arm has no calibration (embed it or set calibration_file)")
	}
	return LoadCalibration(a.CalibrationFile)
}

// LoadConfig loads configuration from the default config file.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Arm returns the configuration for one arm identifier.
func (c *Config) Arm(id string) (ArmConfig, error) {
	arm, ok := c.Arms[id]
	if !ok {
		return ArmConfig{}, fmt.Errorf("arm %q not configured", id)
	}
	return arm, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists.
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
