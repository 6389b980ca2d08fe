// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Sensor source kinds.
const (
	SourceIMU    = "imu"
	SourceSerial = "serial"
	SourceMock   = "mock"
)

// Timestamp modes for logged samples.
const (
	TimestampDelta    = "delta"    // ms since the previous logged sample
	TimestampAbsolute = "absolute" // ms since start-up
)

// Config holds all application configuration values.
type Config struct {
	// Sensor selection: "imu", "serial" or "mock"
	SensorSource string `yaml:"sensor_source"`

	// IMU Hardware (MPU9250 over SPI)
	IMUSPIDevice string `yaml:"imu_spi_device"`
	IMUCSPin     string `yaml:"imu_cs_pin"`
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte `yaml:"imu_accel_range"`
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte `yaml:"imu_gyro_range"`

	// Magnetometer (HMC5883L/HMC5983 over I2C)
	MagI2CBus      string `yaml:"mag_i2c_bus"`
	MagI2CAddr     uint16 `yaml:"mag_i2c_addr"`
	MagGainCode    int    `yaml:"mag_gain_code"`
	MagODRHz       int    `yaml:"mag_odr_hz"`
	MagAvgSamples  int    `yaml:"mag_avg_samples"`
	MagSwapXY      bool   `yaml:"mag_swap_xy"` // board mounting: sensor X/Y are exchanged
	MagInvertZ     bool   `yaml:"mag_invert_z"`
	SerialPort     string `yaml:"serial_port"`
	SerialBaudRate int    `yaml:"serial_baud_rate"`

	// Logging
	SampleCapacity int    `yaml:"sample_capacity"`
	SampleInterval int    `yaml:"sample_interval"` // milliseconds, minimum spacing between ticks
	TimestampMode  string `yaml:"timestamp_mode"`  // "delta" or "absolute"

	// Calibration
	CalibrationDuration     int    `yaml:"calibration_duration"`      // milliseconds
	CalibrationPollInterval int    `yaml:"calibration_poll_interval"` // milliseconds
	CalibrationFile         string `yaml:"calibration_file"`          // optional; offsets are kept in memory only when empty

	// Export
	ExportDir  string `yaml:"export_dir"`
	ExportFile string `yaml:"export_file"`

	// Display
	DisplayEnabled bool   `yaml:"display_enabled"`
	DisplayI2CBus  string `yaml:"display_i2c_bus"`

	// Buttons (GPIO names, active low; empty disables the button)
	ButtonLeftPin   string `yaml:"button_left_pin"`
	ButtonMiddlePin string `yaml:"button_middle_pin"`
	ButtonRightPin  string `yaml:"button_right_pin"`
}

// Package-level unexported variables for the singleton: InitGlobal sets
// globalConfig exactly once, Get reads it under the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration that runs on the simulated source with
// no attached peripherals.
func Default() *Config {
	return &Config{
		SensorSource:            SourceMock,
		IMUSPIDevice:            "/dev/spidev0.0",
		IMUCSPin:                "8",
		MagI2CAddr:              0x1E,
		MagGainCode:             1,
		MagODRHz:                75,
		MagAvgSamples:           1,
		MagSwapXY:               true,
		SerialPort:              "/dev/ttyACM0",
		SerialBaudRate:          115200,
		SampleCapacity:          1000,
		SampleInterval:          100,
		TimestampMode:           TimestampDelta,
		CalibrationDuration:     10000,
		CalibrationPollInterval: 20,
		ExportDir:               "./sd",
		ExportFile:              "imu_log.csv",
	}
}

// Load reads the configuration file and returns a Config struct. Files
// ending in .yaml or .yml are decoded as YAML; anything else is parsed as
// KEY=VALUE lines. Missing keys keep their Default value.
func Load(configPath string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		cfg, err = loadYAML(configPath)
	default:
		cfg, err = loadKeyValue(configPath)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

func loadKeyValue(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "SENSOR_SOURCE":
		c.SensorSource = value

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := parseIntRange(key, value, 0, 3)
		if err != nil {
			return err
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := parseIntRange(key, value, 0, 3)
		if err != nil {
			return err
		}
		c.IMUGyroRange = byte(rangeVal)

	// Magnetometer
	case "MAG_I2C_BUS":
		c.MagI2CBus = value
	case "MAG_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid MAG_I2C_ADDR %q: %w", value, err)
		}
		c.MagI2CAddr = uint16(addr)
	case "MAG_GAIN_CODE":
		val, err := parseIntRange(key, value, 0, 7)
		if err != nil {
			return err
		}
		c.MagGainCode = val
	case "MAG_ODR_HZ":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MAG_ODR_HZ %q: %w", value, err)
		}
		c.MagODRHz = val
	case "MAG_AVG_SAMPLES":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MAG_AVG_SAMPLES %q: %w", value, err)
		}
		c.MagAvgSamples = val
	case "MAG_SWAP_XY":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MAG_SWAP_XY %q: %w", value, err)
		}
		c.MagSwapXY = b
	case "MAG_INVERT_Z":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MAG_INVERT_Z %q: %w", value, err)
		}
		c.MagInvertZ = b

	// Serial
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	// Logging
	case "SAMPLE_CAPACITY":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_CAPACITY %q: %w", value, err)
		}
		c.SampleCapacity = n
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval
	case "TIMESTAMP_MODE":
		c.TimestampMode = value

	// Calibration
	case "CALIBRATION_DURATION":
		d, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_DURATION %q: %w", value, err)
		}
		c.CalibrationDuration = d
	case "CALIBRATION_POLL_INTERVAL":
		d, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CALIBRATION_POLL_INTERVAL %q: %w", value, err)
		}
		c.CalibrationPollInterval = d
	case "CALIBRATION_FILE":
		c.CalibrationFile = value

	// Export
	case "EXPORT_DIR":
		c.ExportDir = value
	case "EXPORT_FILE":
		c.ExportFile = value

	// Display
	case "DISPLAY_ENABLED":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, err)
		}
		c.DisplayEnabled = b
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value

	// Buttons
	case "BUTTON_LEFT_PIN":
		c.ButtonLeftPin = value
	case "BUTTON_MIDDLE_PIN":
		c.ButtonMiddlePin = value
	case "BUTTON_RIGHT_PIN":
		c.ButtonRightPin = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parseIntRange(key, value string, lo, hi int) (int, error) {
	val, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val < lo || val > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, val)
	}
	return val, nil
}

// validate checks value ranges and required fields for the chosen source.
func (c *Config) validate() error {
	switch c.SensorSource {
	case SourceIMU:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for SENSOR_SOURCE=imu")
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for SENSOR_SOURCE=serial")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
		}
	case SourceMock:
	default:
		return fmt.Errorf("SENSOR_SOURCE must be one of imu, serial, mock, got %q", c.SensorSource)
	}
	if c.IMUAccelRange > 3 {
		return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3, got %d", c.IMUAccelRange)
	}
	if c.IMUGyroRange > 3 {
		return fmt.Errorf("IMU_GYRO_RANGE must be 0-3, got %d", c.IMUGyroRange)
	}
	if c.SampleCapacity <= 0 {
		return fmt.Errorf("SAMPLE_CAPACITY must be positive, got %d", c.SampleCapacity)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive, got %d", c.SampleInterval)
	}
	if c.TimestampMode != TimestampDelta && c.TimestampMode != TimestampAbsolute {
		return fmt.Errorf("TIMESTAMP_MODE must be %q or %q, got %q", TimestampDelta, TimestampAbsolute, c.TimestampMode)
	}
	if c.CalibrationDuration <= 0 || c.CalibrationPollInterval <= 0 {
		return fmt.Errorf("CALIBRATION_DURATION and CALIBRATION_POLL_INTERVAL must be positive")
	}
	if c.ExportFile == "" || strings.ContainsAny(c.ExportFile, `/\`) {
		return fmt.Errorf("EXPORT_FILE must be a plain file name, got %q", c.ExportFile)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
