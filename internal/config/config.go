package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultPath = "./config/agenda.yaml"

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Application struct {
	Server   Server   `koanf:"server"`
	Storage  Storage  `koanf:"storage"`
	Database Database `koanf:"db"`
	Schedule Schedule `koanf:"schedule"`
	Export   Export   `koanf:"export"`
	Log      Log      `koanf:"log"`
}

type Server struct {
	Addr string `koanf:"addr"`
}

type Storage struct {
	// Driver is one of "file", "sqlite" or "postgres".
	Driver string `koanf:"driver"`
	// Path is the JSON file for the file driver or the database file for sqlite.
	Path string `koanf:"path"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Schedule struct {
	// ConflictPolicy is "fixed" (existing events last 60 minutes) or "stored".
	ConflictPolicy string `koanf:"conflictpolicy"`
	WeekDays       int    `koanf:"weekdays"`
}

type Export struct {
	// ICSPath, when set, is rewritten with an iCalendar export after every change.
	ICSPath string `koanf:"icspath"`
}

type Log struct {
	Level string `koanf:"level"`
	// File enables rotating file output in addition to stderr.
	File string `koanf:"file"`
}

func Defaults() Application {
	return Application{
		Server: Server{Addr: ":8181"},
		Storage: Storage{
			Driver: DriverFile,
			Path:   "events.json",
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "agenda",
			Pass:   "",
			Name:   "agenda",
			Schema: "public",
		},
		Schedule: Schedule{
			ConflictPolicy: "fixed",
			WeekDays:       7,
		},
		Log: Log{Level: "info"},
	}
}

// Load layers defaults, the optional YAML file at path and AGENDA_* environment variables.
func Load(path string) (Application, error) {
	var k = koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Debugf("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: "AGENDA_",
		TransformFunc: func(k, v string) (string, any) {
			// AGENDA_STORAGE_DRIVER -> storage.driver
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "AGENDA_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
