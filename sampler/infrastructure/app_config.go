package infrastructure

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/samoilenko/sensorlog/sampler/domain"
	"gopkg.in/yaml.v3"
)

// SensorConfig configures one simulated sensor.
type SensorConfig struct {
	Period      domain.Period
	FailureRate float64
	Offline     bool
}

// MQTTConfig enables the MQTT record mirror when Broker is set.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
}

// AppConfig holds all validated configuration parameters of the sampler.
type AppConfig struct {
	BindAddress    domain.BindAddress
	LogPath        domain.LogPath
	BufferSize     domain.BufferSize
	FlushInterval  domain.FlushInterval
	QueueCapacity  domain.QueueCapacity
	Sensors        map[domain.SensorKind]SensorConfig
	Autostart      bool
	RequireSensors bool
	MQTT           MQTTConfig
}

// FileConfig is the YAML layout accepted by -config. Durations are Go duration strings.
type FileConfig struct {
	BindAddress    string                      `yaml:"bind_address"`
	LogFile        string                      `yaml:"log_file"`
	BufferSize     int                         `yaml:"buffer_size"`
	FlushInterval  string                      `yaml:"flush_interval"`
	QueueCapacity  int                         `yaml:"queue_capacity"`
	Autostart      *bool                       `yaml:"autostart"`
	RequireSensors *bool                       `yaml:"require_sensors"`
	Sensors        map[string]FileSensorConfig `yaml:"sensors"`
	MQTT           FileMQTTConfig              `yaml:"mqtt"`
}

// FileSensorConfig is the per-sensor section of FileConfig, keyed by kind name or tag.
type FileSensorConfig struct {
	Period      string   `yaml:"period"`
	FailureRate *float64 `yaml:"failure_rate"`
	Offline     *bool    `yaml:"offline"`
}

// FileMQTTConfig is the mqtt section of FileConfig.
type FileMQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// LoadFileConfig reads and decodes a YAML configuration file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %s", domain.ErrValidation, path, err.Error())
	}
	return &cfg, nil
}

// GetFromCommandLineParameters parses os.Args and returns the validated configuration.
func GetFromCommandLineParameters() (*AppConfig, error) {
	return ParseAppConfig(flag.CommandLine, os.Args[1:])
}

// ParseAppConfig resolves configuration from defaults, the optional -config file and
// the flags in args, in increasing order of precedence.
func ParseAppConfig(fs *flag.FlagSet, args []string) (*AppConfig, error) {
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	rawBindAddress := fs.String("bind-address", ":8081", "Control server bind address (e.g. 0.0.0.0:8081)")
	rawLogPath := fs.String("log-file", "./sensor.txt", "Path to the record log")
	rawBufferSize := fs.Int("buffer-size", 4096, "Log write buffer in bytes")
	rawFlushInterval := fs.Duration("flush-interval", 20*time.Second, "Time between queue drains")
	rawQueueCapacity := fs.Int("queue-capacity", domain.DefaultQueueCapacity, "Records buffered between sampling and flushing")
	htPeriod := fs.Duration("ht-period", domain.DefaultPeriod(domain.HumidityTemp), "Humidity/temperature sampling period")
	pressurePeriod := fs.Duration("pressure-period", domain.DefaultPeriod(domain.Pressure), "Pressure sampling period")
	imuPeriod := fs.Duration("imu-period", domain.DefaultPeriod(domain.Inertial), "Inertial sampling period")
	failureRate := fs.Float64("failure-rate", 0, "Fraction of simulated reads that fail (0..1)")
	offline := fs.String("offline", "", "Comma separated sensor kinds whose device is absent")
	autostart := fs.Bool("autostart", true, "Start sampling immediately")
	requireSensors := fs.Bool("require-sensors", false, "Exit if any sensor fails to initialise")
	mqttBroker := fs.String("mqtt-broker", "", "MQTT broker URL for the record mirror (e.g. tcp://localhost:1883)")
	mqttTopic := fs.String("mqtt-topic", "sensorlog", "MQTT topic prefix")
	mqttClientID := fs.String("mqtt-client-id", "", "MQTT client id (generated when empty)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	file := &FileConfig{}
	if *configPath != "" {
		loaded, err := LoadFileConfig(*configPath)
		if err != nil {
			return nil, err
		}
		file = loaded
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	pickString := func(name, flagVal, fileVal string) string {
		if explicit[name] || fileVal == "" {
			return flagVal
		}
		return fileVal
	}
	pickInt := func(name string, flagVal, fileVal int) int {
		if explicit[name] || fileVal == 0 {
			return flagVal
		}
		return fileVal
	}
	pickBool := func(name string, flagVal bool, fileVal *bool) bool {
		if explicit[name] || fileVal == nil {
			return flagVal
		}
		return *fileVal
	}
	pickDuration := func(name string, flagVal time.Duration, fileVal string) (time.Duration, error) {
		if explicit[name] || fileVal == "" {
			return flagVal, nil
		}
		d, err := time.ParseDuration(fileVal)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %s", domain.ErrValidation, name, err.Error())
		}
		return d, nil
	}

	bindAddress, err := domain.NewBindAddress(pickString("bind-address", *rawBindAddress, file.BindAddress))
	if err != nil {
		return nil, err
	}
	logPath, err := domain.NewLogPath(pickString("log-file", *rawLogPath, file.LogFile))
	if err != nil {
		return nil, err
	}
	bufferSize, err := domain.NewBufferSize(pickInt("buffer-size", *rawBufferSize, file.BufferSize))
	if err != nil {
		return nil, err
	}
	interval, err := pickDuration("flush-interval", *rawFlushInterval, file.FlushInterval)
	if err != nil {
		return nil, err
	}
	flushInterval, err := domain.NewFlushInterval(interval)
	if err != nil {
		return nil, err
	}
	queueCapacity, err := domain.NewQueueCapacity(pickInt("queue-capacity", *rawQueueCapacity, file.QueueCapacity))
	if err != nil {
		return nil, err
	}

	fileSensors := make(map[domain.SensorKind]FileSensorConfig, len(file.Sensors))
	for name, sc := range file.Sensors {
		kind, err := domain.ParseSensorKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: sensors: %w", domain.ErrValidation, err)
		}
		fileSensors[kind] = sc
	}

	offlineKinds := make(map[domain.SensorKind]bool)
	if *offline != "" {
		for _, name := range strings.Split(*offline, ",") {
			kind, err := domain.ParseSensorKind(name)
			if err != nil {
				return nil, fmt.Errorf("%w: offline: %w", domain.ErrValidation, err)
			}
			offlineKinds[kind] = true
		}
	}

	periodFlags := map[domain.SensorKind]struct {
		name  string
		value time.Duration
	}{
		domain.HumidityTemp: {"ht-period", *htPeriod},
		domain.Pressure:     {"pressure-period", *pressurePeriod},
		domain.Inertial:     {"imu-period", *imuPeriod},
	}

	sensors := make(map[domain.SensorKind]SensorConfig, len(periodFlags))
	for _, kind := range domain.Kinds() {
		fsc := fileSensors[kind]
		pf := periodFlags[kind]
		d, err := pickDuration(pf.name, pf.value, fsc.Period)
		if err != nil {
			return nil, err
		}
		period, err := domain.NewPeriod(d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}

		rate := *failureRate
		if !explicit["failure-rate"] && fsc.FailureRate != nil {
			rate = *fsc.FailureRate
		}
		if rate < 0 || rate > 1 {
			return nil, fmt.Errorf("%w: %s: failure rate must be within 0..1", domain.ErrValidation, kind)
		}

		sensors[kind] = SensorConfig{
			Period:      period,
			FailureRate: rate,
			Offline:     pickBool("offline", offlineKinds[kind], fsc.Offline),
		}
	}

	return &AppConfig{
		BindAddress:    bindAddress,
		LogPath:        logPath,
		BufferSize:     bufferSize,
		FlushInterval:  flushInterval,
		QueueCapacity:  queueCapacity,
		Sensors:        sensors,
		Autostart:      pickBool("autostart", *autostart, file.Autostart),
		RequireSensors: pickBool("require-sensors", *requireSensors, file.RequireSensors),
		MQTT: MQTTConfig{
			Broker:   pickString("mqtt-broker", *mqttBroker, file.MQTT.Broker),
			Topic:    pickString("mqtt-topic", *mqttTopic, file.MQTT.Topic),
			ClientID: pickString("mqtt-client-id", *mqttClientID, file.MQTT.ClientID),
		},
	}, nil
}
